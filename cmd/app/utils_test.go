package main

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sushihentaime/blogsphere/internal/common"
)

func TestReadPage(t *testing.T) {
	app := &application{config: testConfig(), logger: discardLogger()}

	testCases := []struct {
		name       string
		query      string
		wantPage   int
		wantLimit  int
		wantErrors map[string]string
	}{
		{name: "Defaults", query: "", wantPage: 1, wantLimit: 0},
		{name: "Explicit", query: "page=3&limit=25", wantPage: 3, wantLimit: 25},
		{name: "Zero Page", query: "page=0", wantPage: 0, wantErrors: map[string]string{"page": "must be greater than zero"}},
		{name: "Negative Limit", query: "limit=-1", wantPage: 1, wantLimit: -1, wantErrors: map[string]string{"limit": "must not be negative"}},
		{name: "Not A Number", query: "page=abc", wantPage: 1, wantErrors: map[string]string{"page": "must be an integer value"}},
		{
			name:       "Huge Page",
			query:      "page=9223372036854775807",
			wantPage:   9223372036854775807,
			wantErrors: map[string]string{"page": "must not be more than 1000000"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			qs, err := url.ParseQuery(tc.query)
			assert.NoError(t, err)

			v := common.NewValidator()
			page, limit := app.readPage(qs, v)

			assert.Equal(t, tc.wantPage, page)
			assert.Equal(t, tc.wantLimit, limit)
			if tc.wantErrors == nil {
				assert.True(t, v.Valid())
			} else {
				assert.Equal(t, tc.wantErrors, v.Errors)
			}
		})
	}
}
