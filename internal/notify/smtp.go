package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"auction-house/internal/auctionerrors"
	"auction-house/utils"

	"golang.org/x/time/rate"
)

// SMTPConfig describes the relay an SMTPMailer talks to
type SMTPConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	RatePerSecond float64
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends mail through an SMTP relay, throttled by a token bucket
type SMTPMailer struct {
	addr    string
	auth    smtp.Auth
	from    string
	limiter *rate.Limiter
	send    sendFunc
	now     func() time.Time
}

// NewSMTPMailer creates an SMTPMailer. PLAIN auth is used when a username is set.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	return &SMTPMailer{
		addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		auth:    auth,
		from:    cfg.From,
		limiter: rate.NewLimiter(limit, 1),
		send:    smtp.SendMail,
		now:     time.Now,
	}
}

// Send waits for a rate token, then hands msg to the relay.
// net/smtp has no context support, so a cancelled ctx abandons the wait but not an in-flight dial.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit wait for %s: %v", auctionerrors.ErrDelivery, msg.To, err)
	}

	body := m.compose(msg)
	done := make(chan error, 1)
	go func() {
		done <- m.send(m.addr, m.auth, m.from, []string{msg.To}, body)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: smtp %s to %s: %v", auctionerrors.ErrDelivery, m.addr, msg.To, err)
		}
		utils.Debug("email sent", map[string]any{"to": msg.To, "subject": msg.Subject})
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: smtp %s to %s: %v", auctionerrors.ErrDelivery, m.addr, msg.To, ctx.Err())
	}
}

// compose renders msg as an RFC 5322 message with CRLF line endings
func (m *SMTPMailer) compose(msg Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", m.now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}
