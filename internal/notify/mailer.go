// Package notify mails rendered reports to managers over SMTP.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/workdoc/workdoc/internal/blob"
	"github.com/workdoc/workdoc/internal/model"
	"github.com/workdoc/workdoc/internal/render"
)

// FromName is the display name on outgoing mail.
const FromName = "Document Generator"

// Sender delivers composed messages. *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPConfig configures the SMTP client.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// NewSMTPClient returns a go-mail client using STARTTLS when offered and
// PLAIN auth when a username is set.
func NewSMTPClient(cfg SMTPConfig) (*mail.Client, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	opts := []mail.Option{mail.WithTLSPolicy(mail.TLSOpportunistic)}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return client, nil
}

// Verify dials the SMTP server and closes the connection.
func Verify(ctx context.Context, client *mail.Client) error {
	if err := client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("dial smtp: %w: %w", model.ErrDelivery, err)
	}
	return client.Close()
}

// Receipt records an accepted message.
type Receipt struct {
	MessageID string    `json:"messageId"`
	Recipient string    `json:"recipient"`
	SentAt    time.Time `json:"sentAt"`
}

// Mailer composes report mails and hands them to a Sender.
type Mailer struct {
	sender Sender
	docs   blob.Store
	from   string
	appURL string
	now    func() time.Time
}

// NewMailer creates a mailer sending from the address from. Reports are read
// from docs; appURL is the base of the dashboard link.
func NewMailer(sender Sender, docs blob.Store, from, appURL string) *Mailer {
	return &Mailer{
		sender: sender,
		docs:   docs,
		from:   from,
		appURL: appURL,
		now:    time.Now,
	}
}

// SendWithAttachment mails the rendered report of sub to recipient. It fails
// with model.ErrNotFound when the report is missing from storage and
// model.ErrDelivery when the message cannot be composed or sent. There is
// one attempt; nothing is retried.
func (m *Mailer) SendWithAttachment(ctx context.Context, recipient string, sub *model.Submission) (*Receipt, error) {
	doc, err := blob.ReadAll(ctx, m.docs, sub.DocumentPath)
	if err != nil {
		if blob.IsNotFound(err) {
			return nil, fmt.Errorf("document not found: %w", model.ErrNotFound)
		}
		return nil, err
	}

	now := m.now()
	msg, err := m.compose(recipient, sub, doc, now)
	if err != nil {
		return nil, fmt.Errorf("compose message: %w: %w", model.ErrDelivery, err)
	}

	if err := m.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return nil, fmt.Errorf("send to %s: %w: %w", recipient, model.ErrDelivery, err)
	}

	receipt := &Receipt{Recipient: recipient, SentAt: now.UTC()}
	if ids := msg.GetGenHeader(mail.HeaderMessageID); len(ids) > 0 {
		receipt.MessageID = ids[0]
	}
	return receipt, nil
}

func (m *Mailer) compose(recipient string, sub *model.Submission, doc []byte, now time.Time) (*mail.Msg, error) {
	body, err := renderBody(sub, m.appURL, now.Year())
	if err != nil {
		return nil, fmt.Errorf("render body: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(FromName, m.from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	msg.Subject(Subject(sub))
	msg.SetDateWithValue(now)
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextHTML, body)
	if err := msg.AttachReader(sub.DocumentPath, bytes.NewReader(doc),
		mail.WithFileContentType(mail.ContentType(render.ContentType))); err != nil {
		return nil, fmt.Errorf("attach document: %w", err)
	}
	return msg, nil
}
