package writer

import (
	"bytes"

	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// RenderHTML converts a markdown document to HTML for the serve API.
func RenderHTML(doc string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(doc), &buf); err != nil {
		return "", eris.Wrap(err, "writer: render html")
	}
	return buf.String(), nil
}
