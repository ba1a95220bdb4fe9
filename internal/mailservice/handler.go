package mailservice

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sushihentaime/blogsphere/internal/common"
	"golang.org/x/exp/rand"
)

const (
	maxRetries = 5
	baseDelay  = 500 * time.Millisecond
)

func NewMailService(mb common.MessageConsumer, host, username, password, sender, frontendURL string, port int, logger *slog.Logger) *MailService {
	ctx, cancel := context.WithCancel(context.Background())
	return &MailService{
		mb:          mb,
		m:           NewMailer(host, port, username, password, sender, NewTemplate()),
		logger:      logger,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SendWelcomeEmail consumes user.created messages until Close is called and mails each new user a welcome message.
func (s *MailService) SendWelcomeEmail() {
	msgs, err := s.mb.Consume(common.UserCreatedKey, common.UserExchange, common.UserCreatedQueue)
	if err != nil {
		s.logger.Error("could not consume message", slog.String("error", err.Error()))
		return
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				s.welcome(msg)

			case <-s.ctx.Done():
				s.logger.Info("stopping SendWelcomeEmail due to context cancellation")
				return
			}
		}
	}()
}

// welcome sends one welcome email, retrying with exponential backoff and jitter. The message is acked either way.
func (s *MailService) welcome(msg amqp.Delivery) {
	defer msg.Ack(false)

	var data userCreated
	if err := json.Unmarshal(msg.Body, &data); err != nil {
		s.logger.Error("could not unmarshal message", slog.String("error", err.Error()))
		return
	}

	payload := welcomeData{
		Name:     data.Name,
		Username: data.Username,
		LoginURL: s.frontendURL + "/login",
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := s.m.send(data.Email, payload, welcomeTemplate)
		if err == nil {
			s.logger.Info("welcome email sent", slog.String("email", data.Email))
			return
		}

		delay := time.Duration(rand.Int63n(int64(baseDelay) << uint(attempt)))
		s.logger.Info("delaying welcome email", slog.String("email", data.Email), slog.Int("attempt", attempt), slog.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-s.ctx.Done():
			return
		}
	}

	s.logger.Error("could not send welcome email", slog.String("email", data.Email))
}

func (s *MailService) Close() {
	s.cancel()
}
