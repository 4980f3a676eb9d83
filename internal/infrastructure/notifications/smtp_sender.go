package notifications

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strings"

	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/pkg/retry"
)

// SendMailFunc matches net/smtp.SendMail
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers messages through an SMTP relay using STARTTLS when offered
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	sendMail SendMailFunc
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(host string, port int, username, password, from string) (*SMTPSender, error) {
	if host == "" || from == "" {
		return nil, fmt.Errorf("SMTP_HOST and SMTP_FROM must be set")
	}
	if _, err := mail.ParseAddress(from); err != nil {
		return nil, fmt.Errorf("invalid SMTP_FROM address: %w", err)
	}
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		sendMail: smtp.SendMail,
	}, nil
}

// WithSendMail replaces the transport, used by tests
func (s *SMTPSender) WithSendMail(fn SendMailFunc) *SMTPSender {
	s.sendMail = fn
	return s
}

// SendMessage delivers msg. Invalid recipients are permanent failures.
func (s *SMTPSender) SendMessage(ctx context.Context, msg *entities.OutboundMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return retry.Permanent(fmt.Errorf("invalid recipient %q: %w", msg.To, err))
	}

	body, err := s.buildMIME(to, msg)
	if err != nil {
		return retry.Permanent(err)
	}

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	if err := s.sendMail(addr, auth, s.from, []string{to.Address}, body); err != nil {
		return fmt.Errorf("failed to send mail via %s: %w", addr, err)
	}
	return nil
}

func (s *SMTPSender) buildMIME(to *mail.Address, msg *entities.OutboundMessage) ([]byte, error) {
	from := (&mail.Address{Name: msg.FromName, Address: s.from}).String()

	var buf bytes.Buffer
	mixed := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to.String())
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixed.Boundary())

	var alt bytes.Buffer
	altWriter := multipart.NewWriter(&alt)
	if err := writePart(altWriter, "text/plain; charset=utf-8", msg.TextBody); err != nil {
		return nil, err
	}
	if err := writePart(altWriter, "text/html; charset=utf-8", msg.HTMLBody); err != nil {
		return nil, err
	}
	if err := altWriter.Close(); err != nil {
		return nil, err
	}

	altHeader := textproto.MIMEHeader{}
	altHeader.Set("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", altWriter.Boundary()))
	part, err := mixed.CreatePart(altHeader)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(alt.Bytes()); err != nil {
		return nil, err
	}

	for _, a := range msg.Attachments {
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", a.ContentType)
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
		p, err := mixed.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := p.Write(a.Data); err != nil {
			return nil, err
		}
	}

	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writePart(w *multipart.Writer, contentType, body string) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType)
	p, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = p.Write([]byte(strings.ReplaceAll(body, "\n", "\r\n")))
	return err
}
