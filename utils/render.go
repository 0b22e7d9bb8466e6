package utils

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.UGCPolicy()

// Renderer converts user markup into sanitized display HTML. It implements
// the engine's rendering collaborator interface.
type Renderer struct{}

// RenderToDisplay renders markdown to HTML and strips everything the UGC
// policy rejects. Parser state is per call; the function is pure.
func (Renderer) RenderToDisplay(markup string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return sanitizer.Sanitize(string(markdown.ToHTML([]byte(markup), p, r)))
}

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
