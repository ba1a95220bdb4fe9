package mailservice

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-mail/mail/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSendEmail(t *testing.T) {
	data := welcomeData{Name: "Test User", Username: "testuser", LoginURL: "http://localhost:5173/login"}

	testCases := []struct {
		name        string
		parseErr    error
		dialErr     error
		expectedErr bool
	}{
		{name: "sent"},
		{name: "template error", parseErr: errors.New("bad template"), expectedErr: true},
		{name: "smtp error", dialErr: errors.New("connection refused"), expectedErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockParser := new(MockTemplate)
			mockDialer := new(MockDialer)

			mailer := Mail{
				dialer: mockDialer,
				parser: mockParser,
				sender: "Blogsphere <no-reply@blogsphere.dev>",
			}

			if tc.parseErr != nil {
				mockParser.On("ParseTemplate", welcomeTemplate, data).Return(nil, nil, nil, tc.parseErr)
			} else {
				subject := bytes.NewBufferString("Welcome")
				plainBody := bytes.NewBufferString("Plain body")
				htmlBody := bytes.NewBufferString("<p>HTML body</p>")
				mockParser.On("ParseTemplate", welcomeTemplate, data).Return(subject, plainBody, htmlBody, nil)
				mockDialer.On("DialAndSend", mock.MatchedBy(func(msgs []*mail.Message) bool {
					return len(msgs) == 1 && msgs[0].GetHeader("To")[0] == "test@example.com" && msgs[0].GetHeader("Subject")[0] == "Welcome"
				})).Return(tc.dialErr)
			}

			err := mailer.send("test@example.com", data, welcomeTemplate)
			assert.Equal(t, tc.expectedErr, err != nil)

			mockParser.AssertExpectations(t)
			mockDialer.AssertExpectations(t)
		})
	}
}
