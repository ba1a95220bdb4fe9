package blogservice

import (
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const maxSlugLength = 120

var SlugRX = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// makeSlug derives a lowercase, hyphen-separated slug from a title.
func makeSlug(title string) string {
	s := slug.Make(title)
	if len(s) > maxSlugLength {
		s = s[:maxSlugLength]
		for len(s) > 0 && s[len(s)-1] == '-' {
			s = s[:len(s)-1]
		}
	}

	if s == "" {
		return "post"
	}

	// a uuid-shaped slug would always be read back as an id
	if _, err := uuid.Parse(s); err == nil && len(s) == 36 {
		s += "-post"
	}

	return s
}

// withSuffix disambiguates a colliding slug with a time-based token. Uniqueness is best-effort, the insert still
// relies on the unique index.
func withSuffix(s string, now time.Time) string {
	return s + "-" + strconv.FormatInt(now.UnixMilli(), 10)
}

// identifier is a parsed blog reference: a UUID primary key or a slug.
type identifier struct {
	id   uuid.UUID
	slug string
}

func (i identifier) isID() bool {
	return i.id != uuid.Nil
}

func (i identifier) String() string {
	if i.isID() {
		return i.id.String()
	}
	return i.slug
}

// parseIdentifier tells ids and slugs apart by format. ok is false when the value is neither.
func parseIdentifier(s string) (identifier, bool) {
	if id, err := uuid.Parse(s); err == nil && len(s) == 36 {
		return identifier{id: id}, true
	}

	if SlugRX.MatchString(s) {
		return identifier{slug: s}, true
	}

	return identifier{}, false
}
