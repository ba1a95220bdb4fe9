package mailservice

import (
	"bytes"
	"context"
	"html/template"
	"sync"

	"github.com/go-mail/mail/v2"

	"github.com/sushihentaime/blogsphere/internal/common"
)

const welcomeTemplate = "welcome_email.html"

type MailService struct {
	mb          common.MessageConsumer
	m           Mailer
	logger      MailLogger
	frontendURL string
	ctx         context.Context
	cancel      context.CancelFunc
}

type MailLogger interface {
	Error(msg string, args ...any)
	Info(msg string, args ...any)
}

type Mail struct {
	mu     sync.Mutex
	dialer Dialer
	parser TemplateParser
	sender string
}

type Mailer interface {
	send(recipient string, data any, templateFile string) error
}

type Template struct {
	mu     sync.Mutex
	parsed map[string]*template.Template
}

type Dialer interface {
	DialAndSend(m ...*mail.Message) error
}

type TemplateParser interface {
	ParseTemplate(name string, data any) (*bytes.Buffer, *bytes.Buffer, *bytes.Buffer, error)
}

// userCreated is the user.created message body.
type userCreated struct {
	Email    string
	Name     string
	Username string
}

// welcomeData is the data rendered into the welcome email.
type welcomeData struct {
	Name     string
	Username string
	LoginURL string
}
