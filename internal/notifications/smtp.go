package notifications

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/deskflow-io/deskflow-ce/internal/config"
)

type EmailMessage struct {
	To      []string
	Subject string
	Body    string
	HTML    bool
}

// EmailProvider delivers a single outbound email. Implementations own their
// timeouts; callers treat any returned error as best-effort and never let it
// abort the triggering operation.
type EmailProvider interface {
	Send(ctx context.Context, msg EmailMessage) error
}

type SMTPProvider struct {
	cfg *config.EmailConfig
}

func NewSMTPProvider(cfg *config.EmailConfig) EmailProvider {
	return &SMTPProvider{cfg: cfg}
}

func (s *SMTPProvider) Send(_ context.Context, msg EmailMessage) error {
	if s.cfg == nil || !s.cfg.Enabled {
		return nil
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	fromHeader := s.cfg.From
	if fromHeader == "" {
		fromHeader = s.cfg.SMTP.User
	}

	var headers []string
	headers = append(headers, fmt.Sprintf("From: %s", fromHeader))
	headers = append(headers, fmt.Sprintf("To: %s", strings.Join(msg.To, ", ")))
	headers = append(headers, fmt.Sprintf("Subject: %s", msg.Subject))
	if msg.HTML {
		headers = append(headers, "MIME-Version: 1.0")
		headers = append(headers, "Content-Type: text/html; charset=UTF-8")
	} else {
		headers = append(headers, "Content-Type: text/plain; charset=UTF-8")
	}

	message := strings.Join(headers, "\r\n") + "\r\n\r\n" + msg.Body
	addr := s.cfg.SMTP.Host + ":" + strconv.Itoa(s.cfg.SMTP.Port)

	var auth smtp.Auth
	if s.cfg.SMTP.User != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTP.User, s.cfg.SMTP.Password, s.cfg.SMTP.Host)
	}

	if s.cfg.SMTP.UseTLS {
		return s.sendTLS(addr, fromHeader, msg.To, []byte(message), auth)
	}
	return smtp.SendMail(addr, auth, fromHeader, msg.To, []byte(message))
}

func (s *SMTPProvider) sendTLS(addr, from string, to []string, body []byte, auth smtp.Auth) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.cfg.SMTP.Host})
	if err != nil {
		return fmt.Errorf("tls dial failed: %w", err)
	}
	client, err := smtp.NewClient(conn, s.cfg.SMTP.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client failed: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
