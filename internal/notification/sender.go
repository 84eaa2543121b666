// Package notification renders and delivers the application's outbound
// emails. Delivery is asynchronous; domain operations never block on SMTP.
package notification

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Msocha19/SSBD-TUL-2023/internal/config"
)

// Sender delivers one rendered message.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender delivers mail through a configured relay.
type SMTPSender struct {
	addr     string
	from     string
	username string
	password string
	host     string
}

// NewSMTPSender creates a sender from mail configuration.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		addr:     cfg.Host + ":" + cfg.Port,
		from:     cfg.From,
		username: cfg.Username,
		password: cfg.Password,
		host:     cfg.Host,
	}
}

// Send delivers one plain-text message. Authentication is skipped when no
// username is configured, which matches local relay setups.
func (s *SMTPSender) Send(to, subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	return smtp.SendMail(s.addr, auth, s.from, []string{to}, []byte(msg.String()))
}
