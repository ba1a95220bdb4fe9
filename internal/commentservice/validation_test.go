package commentservice

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sushihentaime/blogsphere/internal/common"
)

func TestValidateContent(t *testing.T) {
	testCases := []struct {
		name     string
		content  string
		expected map[string]string
	}{
		{name: "valid", content: "Nice post", expected: map[string]string{}},
		{name: "single rune", content: "k", expected: map[string]string{}},
		{name: "empty", content: "", expected: map[string]string{"content": "must be provided"}},
		{name: "too long", content: strings.Repeat("x", 1001), expected: map[string]string{"content": "must be between 1 and 1000 characters long"}},
		{name: "multibyte at limit", content: strings.Repeat("é", 1000), expected: map[string]string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := common.NewValidator()
			validateContent(v, tc.content)
			assert.Equal(t, tc.expected, v.Errors)
		})
	}
}

func TestNewPage(t *testing.T) {
	assert.Equal(t, common.Page{Number: 1, Limit: 20}, NewPage(0, 0))
	assert.Equal(t, common.Page{Number: 3, Limit: 100}, NewPage(3, 500))
}
