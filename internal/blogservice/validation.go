package blogservice

import (
	"strings"
	"unicode/utf8"

	"github.com/sushihentaime/blogsphere/internal/common"
)

const (
	maxTitleLength   = 200
	minContentLength = 10
	maxExcerptLength = 300
	maxCoverLength   = 500
	maxTags          = 20
	maxTagLength     = 50
)

func validateTitle(v *common.Validator, title string) {
	v.Check(title != "", "title", "must be provided")
	v.Check(v.CheckStringLength(title, 0, maxTitleLength), "title", "must not be more than 200 characters long")
}

func validateContent(v *common.Validator, content string) {
	v.Check(content != "", "content", "must be provided")
	v.Check(utf8.RuneCountInString(content) >= minContentLength, "content", "must be at least 10 characters long")
}

func validateExcerpt(v *common.Validator, excerpt string) {
	v.Check(v.CheckStringLength(excerpt, 0, maxExcerptLength), "excerpt", "must not be more than 300 characters long")
}

func validateCoverImage(v *common.Validator, url string) {
	v.Check(v.CheckStringLength(url, 0, maxCoverLength), "coverImage", "must not be more than 500 characters long")
}

func validateTags(v *common.Validator, tags []string) {
	v.Check(len(tags) <= maxTags, "tags", "must not contain more than 20 tags")
	for _, t := range tags {
		if !v.CheckStringLength(t, 0, maxTagLength) {
			v.AddError("tags", "must not contain tags longer than 50 characters")
			return
		}
	}
}

func validateStatus(v *common.Validator, status Status) {
	v.Check(common.PermittedValue(status, StatusDraft, StatusPublished), "status", "must be either draft or published")
}

// normalizeTags trims, lowercases and de-duplicates tags, dropping empty entries. The result is never nil.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	return out
}

// NewPage applies the blog listing defaults to the requested page and limit.
func NewPage(page, limit int) common.Page {
	return common.NewPage(page, limit, defaultPageLimit, maxPageLimit)
}
