package mail

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTPMailer delivers plain text mail through an authenticated SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, login, password string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, login, password),
		from:   login,
	}
}

func (m *SMTPMailer) Send(address, subject, text string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", address)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", text)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", address, err)
	}
	return nil
}
