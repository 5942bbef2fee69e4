// Package notify delivers transactional email. Failures here are never
// allowed to bubble into payment state; callers log and move on.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
)

//go:embed templates/*.html
var templateFS embed.FS

type ConfirmationData struct {
	ParticipantNumber string
	RouteTitle        string
	FullName          string
}

type Mailer interface {
	SendConfirmation(ctx context.Context, to string, data ConfirmationData) error
}

type Config struct {
	Host       string
	Port       string
	Username   string
	Password   string
	Sender     string
	SenderName string
}

type SMTPMailer struct {
	cfg      Config
	template *template.Template
}

func NewSMTPMailer(cfg Config) (*SMTPMailer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/confirmation.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse confirmation template: %w", err)
	}
	return &SMTPMailer{cfg: cfg, template: tmpl}, nil
}

func (m *SMTPMailer) SendConfirmation(ctx context.Context, to string, data ConfirmationData) error {
	var body bytes.Buffer
	if err := m.template.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render confirmation template: %w", err)
	}

	subject := fmt.Sprintf("Confirmación de registro - %s", data.RouteTitle)
	return m.send(to, subject, body.String())
}

func (m *SMTPMailer) send(to, subject, htmlBody string) error {
	var auth smtp.Auth
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	from := m.cfg.Sender
	if m.cfg.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.SenderName, m.cfg.Sender)
	}

	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)
	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", from, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			htmlBody,
	)

	return smtp.SendMail(addr, auth, m.cfg.Sender, []string{to}, msg)
}
