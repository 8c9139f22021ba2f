package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/papercomputeco/chatterbox/pkg/llm"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageData is what the chat page template renders.
type pageData struct {
	Title   string
	Model   string
	Tracing bool
	Bubbles []bubble
	Error   string
}

// bubble is a single rendered chat turn.
type bubble struct {
	Role  string
	Label string
	HTML  template.HTML
}

// renderer turns conversation history into the chat page. User text is escaped;
// assistant replies are rendered from markdown and sanitised.
type renderer struct {
	page   *template.Template
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func newRenderer() (*renderer, error) {
	page, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &renderer{
		page:   page,
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.UGCPolicy(),
	}, nil
}

func (r *renderer) bubbles(turns []llm.Turn) []bubble {
	out := make([]bubble, 0, len(turns))
	for _, t := range turns {
		b := bubble{Role: string(t.Role), Label: t.Role.Label()}
		if t.Role == llm.RoleAssistant {
			b.HTML = r.markdown(t.Text)
		} else {
			b.HTML = template.HTML(template.HTMLEscapeString(t.Text))
		}
		out = append(out, b)
	}
	return out
}

// markdown renders text to sanitised HTML, falling back to escaped text.
func (r *renderer) markdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes()))
}

func (r *renderer) render(data pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.page.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}
