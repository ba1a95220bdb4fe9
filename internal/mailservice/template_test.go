package mailservice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTemplate(t *testing.T) {
	template := &Template{}

	testCases := []struct {
		name         string
		templateName string
		data         any
		expectedErr  bool
	}{
		{
			name:         "success",
			templateName: welcomeTemplate,
			data: welcomeData{
				Name:     "Test User",
				Username: "testuser",
				LoginURL: "http://localhost:5173/login",
			},
			expectedErr: false,
		},
		{
			name:         "invalid template name",
			templateName: "invalid_template.html",
			data:         nil,
			expectedErr:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, p, h, err := template.ParseTemplate(tc.templateName, tc.data)
			assert.Equal(t, tc.expectedErr, err != nil)

			if err == nil {
				assert.Equal(t, "Welcome to Blogsphere, Test User!", s.String())
				assert.Contains(t, p.String(), "testuser")
				assert.Contains(t, h.String(), `href="http://localhost:5173/login"`)
			}
		})
	}
}
