package content

import (
	"fmt"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	readability "github.com/go-shiori/go-readability"
)

const DefaultMinWords = 80

// Teaser/paywall markers checked against the converted text. Matching any of
// them classifies the item as paywalled and excludes it from summarization.
var paywallMarkers = []string{
	"subscribe to continue reading",
	"subscribers only",
	"for paid subscribers",
	"for paying subscribers",
	"sign in to read",
	"to continue reading this",
	"become a member to read",
	"unlock this article",
}

// Result is the outcome of converting one raw HTML document.
type Result struct {
	Markdown  string
	WordCount int

	// Rejected marks content that should never be summarized: a paywall
	// teaser or a fragment too short to be worth the model call.
	Rejected bool
	Reason   string
}

// Converter turns raw fetched HTML into clean Markdown and classifies
// content quality. Pure transformation, no I/O.
type Converter struct {
	minWords int
}

func NewConverter(minWords int) *Converter {
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	return &Converter{minWords: minWords}
}

func (c *Converter) Run(rawHTML []byte, pageURL string) (*Result, error) {
	if len(rawHTML) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}

	extracted := c.extract(rawHTML, pageURL)

	markdown, err := htmltomarkdown.ConvertString(extracted)
	if err != nil {
		return nil, fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return nil, fmt.Errorf("no content left after conversion")
	}

	result := &Result{
		Markdown:  markdown,
		WordCount: len(strings.Fields(markdown)),
	}

	lowered := strings.ToLower(markdown)
	for _, marker := range paywallMarkers {
		if strings.Contains(lowered, marker) {
			result.Rejected = true
			result.Reason = "paywall marker: " + marker
			return result, nil
		}
	}

	if result.WordCount < c.minWords {
		result.Rejected = true
		result.Reason = fmt.Sprintf("too short: %d words", result.WordCount)
	}

	return result, nil
}

// extract isolates the article body. Feed entries often carry bare HTML
// fragments readability cannot improve on, so extraction failure falls back
// to the raw input.
func (c *Converter) extract(rawHTML []byte, pageURL string) string {
	var parsed *url.URL
	if pageURL != "" {
		parsed, _ = url.Parse(pageURL)
	}

	article, err := readability.FromReader(strings.NewReader(string(rawHTML)), parsed)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		return string(rawHTML)
	}

	return article.Content
}
