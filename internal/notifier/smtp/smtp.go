// Package smtp delivers notification email over plain SMTP.
package smtp

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/shockvaluemedia/directfanz/internal/config"
	notifierdomain "github.com/shockvaluemedia/directfanz/internal/notifier/domain"
)

type Sender struct {
	addr   string
	sender string
	auth   smtp.Auth
}

var _ notifierdomain.Notifier = (*Sender)(nil)

func New(cfg config.Config) *Sender {
	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &Sender{
		addr:   cfg.SMTPHost + ":" + cfg.SMTPPort,
		sender: cfg.SMTPSender,
		auth:   auth,
	}
}

func (s *Sender) SendEmail(ctx context.Context, email notifierdomain.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(s.sender, email)
	if err := smtp.SendMail(s.addr, s.auth, s.sender, []string{email.To}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func buildMessage(from string, email notifierdomain.Email) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + email.To + "\r\n")
	b.WriteString("Subject: " + email.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	if email.HTML != "" {
		b.WriteString(email.HTML)
	} else {
		b.WriteString(email.Text)
	}
	return []byte(b.String())
}
