// Package mailer 基于 go-mail 的 SMTP 发信实现
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/LJTian/newsdigest/internal/config"
	"github.com/wneessen/go-mail"
)

const defaultTimeout = 30 * time.Second

// SMTPSender 每次发送建立一次连接，发送后断开
type SMTPSender struct {
	server   string
	port     int
	user     string
	password string
	timeout  time.Duration
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		server:   cfg.Server,
		port:     cfg.Port,
		user:     cfg.User,
		password: cfg.Password,
		timeout:  defaultTimeout,
	}
}

// WithTimeout 连接与读写超时
func (s *SMTPSender) WithTimeout(d time.Duration) *SMTPSender {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Send 465 端口使用隐式 TLS，其它端口要求 STARTTLS
func (s *SMTPSender) Send(ctx context.Context, subject, htmlBody, recipient string) error {
	msg, err := s.buildMessage(subject, htmlBody, recipient)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.server, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp %s:%d: %w", s.server, s.port, err)
	}
	return nil
}

func (s *SMTPSender) buildMessage(subject, htmlBody, recipient string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.user); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", s.user, err)
	}
	if err := msg.To(recipient); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", recipient, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	return msg, nil
}

func (s *SMTPSender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.port),
		mail.WithTimeout(s.timeout),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.user),
		mail.WithPassword(s.password),
	}
	if s.port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	return opts
}
