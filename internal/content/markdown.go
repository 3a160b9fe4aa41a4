// Package content は埋め込みMarkdownから静的ページのHTMLを生成する。
package content

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/hitoshi/btcdash/internal/security"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed pages/*.md
var pagesFS embed.FS

// Renderer はMarkdownをサニタイズ済みHTMLに変換する。
type Renderer struct {
	md        goldmark.Markdown
	sanitizer security.Sanitizer
}

// NewRenderer はRendererを生成する。表記法としてGFMの表を有効にする。
func NewRenderer(sanitizer security.Sanitizer) *Renderer {
	return &Renderer{
		md:        goldmark.New(goldmark.WithExtensions(extension.Table)),
		sanitizer: sanitizer,
	}
}

// Render はMarkdownソースをHTMLに変換し、サニタイズして返す。
func (r *Renderer) Render(src []byte) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return template.HTML(r.sanitizer.Sanitize(buf.String())), nil
}

// Page は埋め込みページ名（拡張子なし）のMarkdownを変換して返す。
func (r *Renderer) Page(name string) (template.HTML, error) {
	src, err := pagesFS.ReadFile("pages/" + name + ".md")
	if err != nil {
		return "", fmt.Errorf("page %q not found: %w", name, err)
	}
	return r.Render(src)
}
