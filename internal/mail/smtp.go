package mail

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/gordonpn/portfolio-api/internal/config"
	"github.com/gordonpn/portfolio-api/internal/contact"
)

const sendTimeout = 30 * time.Second

// SMTPMailer delivers contact mail through an authenticated SMTP relay.
type SMTPMailer struct {
	config config.SMTPConfig
	dial   func(ctx context.Context, message *gomail.Msg) error
}

var _ contact.Mailer = (*SMTPMailer)(nil)

func NewSMTPMailer(smtp config.SMTPConfig) (*SMTPMailer, error) {
	if !smtp.Configured() {
		return nil, fmt.Errorf("smtp mailer requires user, password and destination")
	}

	options := []gomail.Option{
		gomail.WithPort(smtp.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(smtp.User),
		gomail.WithPassword(smtp.Password),
		gomail.WithTimeout(sendTimeout),
	}
	if smtp.Secure {
		options = append(options, gomail.WithSSL())
	} else {
		options = append(options, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}

	client, err := gomail.NewClient(smtp.Host, options...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPMailer{
		config: smtp,
		dial: func(ctx context.Context, message *gomail.Msg) error {
			return client.DialAndSendWithContext(ctx, message)
		},
	}, nil
}

func (mailer *SMTPMailer) Send(ctx context.Context, message contact.Message) error {
	msg, err := buildMessage(message)
	if err != nil {
		return err
	}

	if err := mailer.dial(ctx, msg); err != nil {
		return fmt.Errorf("smtp send via %s:%d: %w", mailer.config.Host, mailer.config.Port, err)
	}
	return nil
}

func buildMessage(message contact.Message) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(message.FromName, message.From); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(message.To); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	// The guard's email check is looser than RFC 5322. An address go-mail
	// cannot parse is left out of Reply-To; it is still in the body.
	_ = msg.ReplyTo(message.ReplyTo)
	msg.Subject(message.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, message.Body)
	return msg, nil
}
