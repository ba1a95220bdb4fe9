package blogservice

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const excerptLength = 200

var (
	contentPolicy = bluemonday.UGCPolicy()
	textPolicy    = bluemonday.StrictPolicy()
)

// sanitizeContent keeps user-generated formatting and drops scripts, event handlers and unsafe URLs.
func sanitizeContent(content string) string {
	return strings.TrimSpace(contentPolicy.Sanitize(content))
}

// plainText strips every tag and collapses whitespace.
func plainText(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(textPolicy.Sanitize(s))), " ")
}

// makeExcerpt returns the first n runes of the content's plain text.
func makeExcerpt(content string, n int) string {
	r := []rune(plainText(content))
	if len(r) <= n {
		return string(r)
	}

	return strings.TrimSpace(string(r[:n]))
}
