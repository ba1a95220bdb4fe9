package common

import "math"

// MaxPageNumber bounds page numbers so that offsets stay far from integer overflow.
const MaxPageNumber = 1_000_000

// Page is a normalized page/limit pair. The zero value is not valid, build it with NewPage.
type Page struct {
	Number int
	Limit  int
}

// NewPage clamps page into [1, MaxPageNumber] and limit into [1, max], substituting def when limit is not positive.
func NewPage(page, limit, def, max int) Page {
	if page < 1 {
		page = 1
	}

	if page > MaxPageNumber {
		page = MaxPageNumber
	}

	if limit < 1 {
		limit = def
	}

	if limit > max {
		limit = max
	}

	return Page{Number: page, Limit: limit}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

func NewPagination(total int, p Page) *Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}

	return &Pagination{
		Total: total,
		Page:  p.Number,
		Limit: p.Limit,
		Pages: pages,
	}
}
