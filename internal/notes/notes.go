package notes

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed note.html.tmpl
var pageTemplate string

// Renderer turns model output into the files persisted under the notes
// directory.
type Renderer struct {
	md    goldmark.Markdown
	tmpl  *template.Template
	title cases.Caser
}

// NewRenderer creates a renderer with GFM tables and strikethrough enabled.
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
		tmpl:  template.Must(template.New("note").Parse(pageTemplate)),
		title: cases.Title(language.Und),
	}
}

// TitleFor derives a human title from an item key: separators become spaces
// and words are title-cased, so "signal_processing-03" yields
// "Signal Processing 03".
func (r *Renderer) TitleFor(key string) string {
	cleaned := strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(key)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return key
	}
	return r.title.String(cleaned)
}

// EnsureHeading prepends a level-one heading when the markdown body does not
// already start with one.
func (r *Renderer) EnsureHeading(title, markdown string) string {
	trimmed := strings.TrimSpace(markdown)
	if strings.HasPrefix(trimmed, "# ") {
		return trimmed + "\n"
	}
	return fmt.Sprintf("# %s\n\n%s\n", title, trimmed)
}

// RenderHTML converts the markdown body into a standalone HTML page.
func (r *Renderer) RenderHTML(title, markdown string) ([]byte, error) {
	var body bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	var page bytes.Buffer
	data := struct {
		Title string
		Body  template.HTML
	}{
		Title: title,
		Body:  template.HTML(body.String()), //nolint:gosec
	}
	if err := r.tmpl.Execute(&page, data); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return page.Bytes(), nil
}
