package auth

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"polymerit/pkg/config"
)

// Mailer delivers login links
type Mailer interface {
	SendMagicLink(ctx context.Context, email, link string, expiresIn time.Duration) error
}

// NewMailer returns an SMTP mailer when a host is configured, otherwise a
// mailer that logs the link.
func NewMailer(cfg config.MailConfig) Mailer {
	if cfg.SMTPHost == "" {
		return LogMailer{}
	}
	return &SMTPMailer{cfg: cfg}
}

// LogMailer logs links instead of sending them
type LogMailer struct{}

func (LogMailer) SendMagicLink(_ context.Context, email, link string, expiresIn time.Duration) error {
	logrus.WithFields(logrus.Fields{
		"email":      email,
		"expires_in": expiresIn.String(),
	}).Infof("Magic link: %s", link)
	return nil
}

// SMTPMailer sends plain-text mail through an SMTP relay
type SMTPMailer struct {
	cfg  config.MailConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func (m *SMTPMailer) SendMagicLink(ctx context.Context, email, link string, expiresIn time.Duration) error {
	from, err := mail.ParseAddress(m.cfg.From)
	if err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}

	msg := buildMessage(m.cfg.From, email, "Your PolyMerit sign-in link",
		fmt.Sprintf("Click the link below to sign in to PolyMerit.\r\n\r\n%s\r\n\r\nThe link expires in %d minutes and can be used once.\r\nIf you did not request it, ignore this email.\r\n",
			link, int(expiresIn.Minutes())))

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.SMTPHost)
	}

	send := m.send
	if send == nil {
		send = smtp.SendMail
	}

	done := make(chan error, 1)
	go func() {
		done <- send(net.JoinHostPort(m.cfg.SMTPHost, m.cfg.SMTPPort), auth, from.Address, []string{email}, msg)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send mail: %w", err)
		}
		return nil
	}
}

func buildMessage(from, to, subject, body string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	buf.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return buf.Bytes()
}
