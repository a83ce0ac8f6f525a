package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"sync"

	"bankcore/internal/ledger"
	"bankcore/internal/log"
)

var ErrNoRecipient = errors.New("notification has no recipient")

// Ensure interface conformance
var (
	_ ledger.Notifier = (*LogNotifier)(nil)
	_ ledger.Notifier = (*SMTPNotifier)(nil)
	_ ledger.Notifier = (*Recorder)(nil)
)

// LogNotifier writes notifications to the log instead of delivering them.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{logger: logger.WithComponent(log.ComponentNotify)}
}

func (n *LogNotifier) Notify(ctx context.Context, msg ledger.Notification) error {
	if strings.TrimSpace(msg.Recipient) == "" {
		return ErrNoRecipient
	}
	n.logger.InfoContext(ctx, "Notification",
		"recipient", msg.Recipient,
		"subject", msg.Subject,
		log.FieldDefinitionID, msg.DefinitionID,
		log.FieldAmountCents, msg.Amount.Cents)
	return nil
}

// SMTPNotifier sends plain-text mail through a relay.
type SMTPNotifier struct {
	addr string
	from string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier uses PLAIN auth when username is set.
func NewSMTPNotifier(addr, from, username, password string) *SMTPNotifier {
	var auth smtp.Auth
	if username != "" {
		host, _, _ := strings.Cut(addr, ":")
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPNotifier{addr: addr, from: from, auth: auth, send: smtp.SendMail}
}

func (n *SMTPNotifier) Notify(ctx context.Context, msg ledger.Notification) error {
	if strings.TrimSpace(msg.Recipient) == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.send(n.addr, n.auth, n.from, []string{msg.Recipient}, n.compose(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.Recipient, err)
	}
	return nil
}

func (n *SMTPNotifier) compose(msg ledger.Notification) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// Recorder keeps notifications in memory. Useful in tests and dry runs.
type Recorder struct {
	mu   sync.Mutex
	sent []ledger.Notification
	Err  error // returned by Notify when set
}

func (r *Recorder) Notify(_ context.Context, msg ledger.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *Recorder) Sent() []ledger.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ledger.Notification(nil), r.sent...)
}
