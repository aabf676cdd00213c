// Package mail sends the transactional and newsletter emails.
package mail

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/insightsphere/insightsphere/internal/log"
)

// Message is an HTML email. Bcc recipients receive it without appearing in the headers.
type Message struct {
	To      string
	Bcc     []string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SMTPMailer delivers through an SMTP relay with PLAIN auth.
type SMTPMailer struct {
	config SMTPConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTP(config SMTPConfig) *SMTPMailer {
	return &SMTPMailer{config: config, send: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to := msg.To
	if to == "" {
		to = envelopeAddress(m.config.From)
	}
	recipients := append([]string{to}, msg.Bcc...)

	header := map[string]string{
		"From":         m.config.From,
		"To":           to,
		"Subject":      mime.QEncoding.Encode("utf-8", msg.Subject),
		"Date":         time.Now().UTC().Format(time.RFC1123Z),
		"MIME-Version": "1.0",
		"Content-Type": `text/html; charset="UTF-8"`,
	}
	var auth smtp.Auth
	if m.config.User != "" {
		auth = smtp.PlainAuth("", m.config.User, m.config.Pass, m.config.Host)
	}
	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	if err := m.send(addr, auth, envelopeAddress(m.config.From), recipients, compose(header, msg.HTML)); err != nil {
		return fmt.Errorf("send %q: %w", msg.Subject, err)
	}
	return nil
}

var headerNewlines = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func compose(header map[string]string, body string) []byte {
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k + ": " + headerNewlines.Replace(header[k]) + "\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// envelopeAddress extracts the bare address from `Name <addr>`.
func envelopeAddress(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.LastIndex(from, ">"); j > i {
			return strings.TrimSpace(from[i+1 : j])
		}
	}
	return strings.TrimSpace(from)
}

// LogMailer writes messages to the info log. Used when no SMTP host is configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	log.Info.Printf("mail to=%s bcc=%d subject=%q (%d bytes)", msg.To, len(msg.Bcc), msg.Subject, len(msg.HTML))
	return nil
}

// Recorder keeps sent messages in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
	Err  error
}

func (r *Recorder) Send(ctx context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

// Last returns the most recent message sent to addr, directly or by Bcc.
func (r *Recorder) Last(addr string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sent) - 1; i >= 0; i-- {
		m := r.sent[i]
		if m.To == addr {
			return m, true
		}
		for _, b := range m.Bcc {
			if b == addr {
				return m, true
			}
		}
	}
	return Message{}, false
}
