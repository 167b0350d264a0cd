package mailer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

const (
	DefaultHost = "smtp.gmail.com"
	DefaultPort = 587
)

// SMTPConfig describes the submission server. The connection is always
// upgraded with STARTTLS; implicit TLS is never used.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTP sends mail through an authenticated submission server. A new
// connection is dialed for every message.
type SMTP struct {
	config SMTPConfig
	logger *logrus.Logger
}

func NewSMTP(cfg SMTPConfig, logger *logrus.Logger) (*SMTP, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("%w: set MAIL_USER and MAIL_PWD", ErrNotConfigured)
	}

	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}

	return &SMTP{config: cfg, logger: logger}, nil
}

func (s *SMTP) SendMail(ctx context.Context, msg *Message) error {
	m, err := buildMsg(msg, s.config.Username)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.config.Host,
		mail.WithPort(s.config.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.config.Username),
		mail.WithPassword(s.config.Password),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"subject":     msg.Subject,
		"to":          msg.To,
		"cc":          msg.Cc,
		"attachments": len(msg.Attachments),
	}).Info("notification sent")

	return nil
}

// buildMsg renders msg, sending from defaultFrom when msg.From is empty.
func buildMsg(msg *Message, defaultFrom string) (*mail.Msg, error) {
	m := mail.NewMsg()

	from := msg.From
	if from == "" {
		from = defaultFrom
	}
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if len(msg.To) > 0 {
		if err := m.To(msg.To...); err != nil {
			return nil, fmt.Errorf("invalid to address: %w", err)
		}
	}
	if len(msg.Cc) > 0 {
		if err := m.Cc(msg.Cc...); err != nil {
			return nil, fmt.Errorf("invalid cc address: %w", err)
		}
	}

	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)

	for _, a := range msg.Attachments {
		if err := m.AttachReader(a.Name, bytes.NewReader(a.Data)); err != nil {
			return nil, fmt.Errorf("attach %q: %w", a.Name, err)
		}
	}

	return m, nil
}

var _ Mailer = (*SMTP)(nil)
