package email

import (
	"fmt"
	"net/smtp"

	"astor/common"
)

type EmailService struct {
	host     string
	port     string
	user     string
	password string
	from     string
	domain   string
}

func NewEmailService(cfg *common.Config) *EmailService {
	return &EmailService{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		domain:   cfg.Domain,
	}
}

func (e *EmailService) SendVerificationEmail(to, token string) error {
	verificationLink := fmt.Sprintf("%s/confirm/%s", e.domain, token)

	subject := "Confirm your email - Astor"
	body := fmt.Sprintf(`Hello!

Thanks for signing up to Astor.

To confirm your email and activate your account, follow the link below:

%s

If you did not sign up to Astor, just ignore this email.

---
Astor - publishing platform
`, verificationLink)

	message := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", e.from, to, subject, body)

	auth := smtp.PlainAuth("", e.user, e.password, e.host)
	addr := fmt.Sprintf("%s:%s", e.host, e.port)

	if err := smtp.SendMail(addr, auth, e.from, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
