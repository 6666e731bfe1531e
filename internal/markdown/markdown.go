// Package markdown turns user-authored markdown into HTML that is safe to store and serve verbatim.
//
// Rendering is two-stage: goldmark converts the source (GFM, single newlines become <br>) with raw
// HTML passed through, then a bluemonday UGC policy strips anything that could execute script or
// escape the page. Raw HTML has to survive the first stage so the editor's <img width=...> tags
// keep their sizing.
package markdown

import (
	"bytes"
	stdhtml "html"

	"beam/internal/middleware"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts markdown to sanitized HTML. It is safe for concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New builds a Renderer with the production configuration.
func New() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
				html.WithUnsafe(),
			),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render returns the sanitized HTML for src. It never fails: if conversion errors out the
// source is returned as escaped text.
func (r *Renderer) Render(src string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		middleware.Logger.Warn("markdown conversion failed, falling back to escaped text", "error", err)
		return r.policy.Sanitize("<p>" + stdhtml.EscapeString(src) + "</p>")
	}
	return string(r.policy.SanitizeBytes(buf.Bytes()))
}

var defaultRenderer = New()

// Render converts src with the shared default Renderer.
func Render(src string) string {
	return defaultRenderer.Render(src)
}
