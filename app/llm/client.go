package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tlees/content-curator/app/database"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Client generates summaries through a generateContent-style text API.
type Client struct {
	client  *resty.Client
	apiKey  string
	model   string
	baseURL string
}

type generateRequest struct {
	Contents []requestContent `json:"contents"`
}

type requestContent struct {
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewClient(apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		client: resty.New().
			SetTimeout(timeout).
			SetRetryCount(2).
			SetRetryWaitTime(2 * time.Second).
			SetRetryMaxWaitTime(10 * time.Second),
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
	}
}

// Summarize produces one summary of the given type. It either returns the
// full summary text or an error; there is no partial output.
func (c *Client) Summarize(ctx context.Context, text string, summaryType database.SummaryType) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("summarizer API key is not configured")
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no content to summarize")
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	req := generateRequest{
		Contents: []requestContent{{
			Parts: []requestPart{{
				Text: instructionFor(summaryType, text),
			}},
		}},
	}

	var resp generateResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&resp).
		Post(url)
	if err != nil {
		return "", fmt.Errorf("summarization request failed: %w", err)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("summarization API error: %s", resp.Error.Message)
	}
	if httpResp.IsError() {
		return "", fmt.Errorf("summarization API returned status %d", httpResp.StatusCode())
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("summarization API returned no content")
	}

	summary := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
	if summary == "" {
		return "", fmt.Errorf("summarization API returned an empty summary")
	}

	return summary, nil
}
