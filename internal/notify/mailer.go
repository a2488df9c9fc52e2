package notify

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// Mailer delivers transactional mail (account verification, OTP recovery).
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends over plain AUTH SMTP.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)

	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	return smtp.SendMail(addr, auth, m.From, []string{to}, []byte(msg))
}

// LogMailer writes mail to the application log instead of delivering it, for
// local development without an SMTP server.
type LogMailer struct{}

func (LogMailer) Send(to, subject, body string) error {
	log.Printf("[MAIL] [INFO] to=%s subject=%q body=%q", to, subject, body)
	return nil
}
