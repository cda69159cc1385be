package sender

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdullah-koca/lunora/config"

	gopkgmail "gopkg.in/gomail.v2"
)

type EmailNotification struct {
	To       string
	Subject  string
	Template string
	Data     map[string]any
}

type EmailSender struct {
	cfg *config.Notifier
}

func NewEmailSender(cfg *config.Notifier) *EmailSender {
	return &EmailSender{cfg: cfg}
}

func (s *EmailSender) SendEmail(n EmailNotification) error {
	htmlBody, err := s.render(n.Template + ".html")
	if err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	plainBody, err := s.render(n.Template + ".txt")
	if err != nil {
		return fmt.Errorf("render plain: %w", err)
	}

	htmlOut, err := execute(n.Template, htmlBody, n.Data)
	if err != nil {
		return err
	}
	plainOut, err := execute(n.Template, plainBody, n.Data)
	if err != nil {
		return err
	}

	m := gopkgmail.NewMessage()
	m.SetHeader("From", s.cfg.SMTPFrom)
	m.SetHeader("To", n.To)
	m.SetHeader("Subject", n.Subject)
	m.SetBody("text/plain", plainOut)
	m.AddAlternative("text/html", htmlOut)

	if strings.Contains(htmlOut, "cid:logo") {
		logoPath := filepath.Join(s.cfg.TMPLDir, "logo.png")
		if _, errStat := os.Stat(logoPath); errStat == nil {
			m.Embed(logoPath, gopkgmail.SetHeader(map[string][]string{"Content-ID": {"<logo>"}}))
		}
	}

	d := gopkgmail.NewDialer(s.cfg.SMTPHost, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPassword)
	d.SSL = true
	return d.DialAndSend(m)
}

func (s *EmailSender) render(name string) (string, error) {
	content, err := os.ReadFile(filepath.Join(s.cfg.TMPLDir, name))
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func execute(name, body string, data map[string]any) (string, error) {
	tmpl, err := template.New(name).Parse(body)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
