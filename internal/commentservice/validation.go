package commentservice

import "github.com/sushihentaime/blogsphere/internal/common"

const maxContentLength = 1000

func validateContent(v *common.Validator, content string) {
	v.Check(content != "", "content", "must be provided")
	v.Check(v.CheckStringLength(content, 1, maxContentLength), "content", "must be between 1 and 1000 characters long")
}

// NewPage applies the comment listing defaults to the requested page and limit.
func NewPage(page, limit int) common.Page {
	return common.NewPage(page, limit, defaultPageLimit, maxPageLimit)
}
