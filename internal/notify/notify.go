package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"strings"

	"esign/internal/service"
)

type SMTPConfig struct {
	Addr string // host:port
	User string
	Pass string
	From string
}

// SMTPNotifier sends multipart HTML mail over plain SMTP with optional AUTH.
type SMTPNotifier struct {
	cfg SMTPConfig
	log *slog.Logger
}

func NewSMTP(cfg SMTPConfig, log *slog.Logger) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, log: log.With("component", "smtp_notifier")}
}

func (n *SMTPNotifier) Send(ctx context.Context, to, subject, bodyHTML string, attachments ...service.Attachment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if n.cfg.User != "" {
		host := n.cfg.Addr
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", n.cfg.User, n.cfg.Pass, host)
	}

	msg := buildMessage(n.cfg.From, to, subject, bodyHTML, attachments)
	if err := smtp.SendMail(n.cfg.Addr, auth, n.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	n.log.Info("mail sent", "to", to, "subject", subject, "attachments", len(attachments))
	return nil
}

const boundary = "esign-mixed-boundary"

func buildMessage(from, to, subject, bodyHTML string, attachments []service.Attachment) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")

	if len(attachments) == 0 {
		b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		b.WriteString(bodyHTML)
		return []byte(b.String())
	}

	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(bodyHTML)
	b.WriteString("\r\n")

	for _, a := range attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		fmt.Fprintf(&b, "Content-Type: %s\r\n", ct)
		fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n", a.FileName)
		b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
		b.WriteString(wrap76(base64.StdEncoding.EncodeToString(a.Data)))
		b.WriteString("\r\n")
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

func wrap76(s string) string {
	var b strings.Builder
	for len(s) > 76 {
		b.WriteString(s[:76])
		b.WriteString("\r\n")
		s = s[76:]
	}
	b.WriteString(s)
	return b.String()
}

// LogNotifier is the dev fallback when no SMTP relay is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With("component", "log_notifier")}
}

func (n *LogNotifier) Send(ctx context.Context, to, subject, bodyHTML string, attachments ...service.Attachment) error {
	n.log.Info("mail suppressed (no SMTP configured)",
		"to", to, "subject", subject, "attachments", len(attachments))
	return nil
}

var (
	_ service.Notifier = (*SMTPNotifier)(nil)
	_ service.Notifier = (*LogNotifier)(nil)
)
