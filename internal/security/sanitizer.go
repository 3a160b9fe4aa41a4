// Package security はHTML出力のサニタイズを提供する。
//
// 静的ページのMarkdown変換結果と、外部投入データ由来の文字列を
// bluemondayの許可リストポリシーで無害化する。
package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer はHTML文字列のサニタイズ機能のインターフェースを定義する。
type Sanitizer interface {
	// Sanitize は許可リスト外のタグと属性を除去したHTMLを返す。
	Sanitize(rawHTML string) string
	// PlainText は全てのタグを除去したテキストを返す。
	// 戻り値はエスケープされていないため、出力時にエスケープすること。
	PlainText(s string) string
}

// pageSanitizer はSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなので共有して使う。
type pageSanitizer struct {
	page   *bluemonday.Policy
	strict *bluemonday.Policy
}

// NewSanitizer は新しいSanitizerを生成する。
// ページ用ポリシーの内容:
//   - 許可タグ: h1-h4, p, br, ul, ol, li, blockquote, pre, code, strong, em, table系, hr, a
//   - aタグ: href（相対URL可）。外部リンクにはtarget="_blank"とrel="noopener noreferrer"を付与
//   - script, iframe, styleおよびon*イベント属性は除去
func NewSanitizer() Sanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"h1", "h2", "h3", "h4",
		"p", "br", "hr", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
		"table", "thead", "tbody", "tr", "th", "td",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.AllowRelativeURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &pageSanitizer{
		page:   p,
		strict: bluemonday.StrictPolicy(),
	}
}

// Sanitize はページ用ポリシーでHTMLをサニタイズする。
func (s *pageSanitizer) Sanitize(rawHTML string) string {
	return s.page.Sanitize(rawHTML)
}

// PlainText はタグを全て除去する。
// StrictPolicyの出力はエスケープ済みなので、html/templateでの二重エスケープを避けるため戻す。
func (s *pageSanitizer) PlainText(str string) string {
	return html.UnescapeString(s.strict.Sanitize(str))
}
