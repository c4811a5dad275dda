package mail

import (
	"fmt"
	"net/smtp"
)

// Sender delivers mail over SMTP.
type Sender interface {
	Send(to, subject, body string) error
}

type smtpSender struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewSMTP(host, port, from, username, password string) Sender {
	return &smtpSender{host: host, port: port, from: from, username: username, password: password}
}

func (m *smtpSender) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}

// OTPMessage renders the one-time-code mail body.
func OTPMessage(code string) (subject, body string) {
	subject = "Your NiveshMitr verification code"
	body = fmt.Sprintf("Your one-time code is %s. It expires in a few minutes; if you did not request it, ignore this mail.", code)
	return subject, body
}
