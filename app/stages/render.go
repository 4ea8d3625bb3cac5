package stages

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: -apple-system, Helvetica, Arial, sans-serif; max-width: 680px; margin: 0 auto; padding: 20px; color: #222; }
h1 { border-bottom: 2px solid #eee; padding-bottom: 8px; }
h2 { margin-top: 28px; }
a { color: #0969da; }
</style>
</head>
<body>
%s
</body>
</html>
`

// renderHTML converts a digest markdown document into a self-contained HTML
// page suitable for email bodies.
func renderHTML(markdown []byte) (string, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert(markdown, &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}

	return fmt.Sprintf(htmlTemplate, buf.String()), nil
}
