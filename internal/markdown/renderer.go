// Package markdown renders Markdown files found in Drive to HTML ahead of
// sanitizing, so that only the visible text is matched.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts Markdown to HTML. Raw HTML in the source is dropped and
// soft line breaks become <br />, keeping one line of source per output line.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a Renderer with the GFM extensions, so table cells,
// task items and bare links render as text instead of pipe and bracket noise.
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
				html.WithXHTML(),
			),
		),
	}
}

// Render converts source to HTML.
func (r *Renderer) Render(source []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
