// Package mailer sends plain-text email over SMTP.
package mailer

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// Mailer delivers a plain-text message.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTP sends mail through a configured SMTP relay.
type SMTP struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
}

// NewSMTP creates an SMTP mailer.
func NewSMTP(host string, port int, username, password, from, fromName string) *SMTP {
	return &SMTP{host: host, port: port, username: username, password: password, from: from, fromName: fromName}
}

// Send delivers a plain-text message to a single recipient.
func (m *SMTP) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.fromName, m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var a smtp.Auth
	if m.username != "" {
		a = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	if err := smtp.SendMail(addr, a, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// Log is a mailer that only logs, for development without an SMTP relay.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a logging mailer.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// Send logs the message instead of delivering it.
func (m *Log) Send(to, subject, _ string) error {
	m.logger.Info("email (dev mode, not delivered)", zap.String("to", to), zap.String("subject", subject))
	return nil
}
