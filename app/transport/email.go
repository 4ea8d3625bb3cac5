package transport

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/tlees/content-curator/app/stages"
)

// EmailTransport delivers digests as HTML email over SMTP with STARTTLS.
type EmailTransport struct {
	host      string
	port      int
	sender    string
	password  string
	recipient string
}

func NewEmailTransport(host string, port int, sender, password, recipient string) *EmailTransport {
	return &EmailTransport{
		host:      host,
		port:      port,
		sender:    sender,
		password:  password,
		recipient: recipient,
	}
}

func (t *EmailTransport) Name() string { return "email" }

func (t *EmailTransport) Send(ctx context.Context, msg stages.Message) error {
	if t.recipient == "" {
		return fmt.Errorf("no recipient configured")
	}

	addr := fmt.Sprintf("%s:%d", t.host, t.port)
	auth := smtp.PlainAuth("", t.sender, t.password, t.host)

	body := t.buildMessage(msg)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, t.sender, []string{t.recipient}, body)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *EmailTransport) buildMessage(msg stages.Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", t.sender)
	fmt.Fprintf(&b, "To: %s\r\n", t.recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)

	return []byte(b.String())
}
