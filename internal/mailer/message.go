package mailer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/voice-mail/internal/dialogue"
)

// Message is a composed RFC 5322 message ready for transmission.
type Message struct {
	ID      string
	From    string
	To      string
	ToName  string
	Subject string
	Body    string
	Date    time.Time
	Raw     []byte
}

// BuildMessage renders a complete draft as a plain-text MIME message.
func BuildMessage(from string, d dialogue.Draft, now time.Time) (*Message, error) {
	if !d.Complete() {
		return nil, fmt.Errorf("building message: draft is incomplete")
	}
	if !dialogue.ValidAddress(from) {
		return nil, fmt.Errorf("building message: invalid sender address %q", from)
	}

	body := dialogue.BodyText(d)

	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Name: d.RecipientName, Address: d.RecipientAddress}})
	h.SetSubject(d.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generating message id: %w", err)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	id, err := h.MessageID()
	if err != nil {
		return nil, fmt.Errorf("reading message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := w.Write([]byte(body + "\r\n")); err != nil {
		return nil, fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing message body: %w", err)
	}

	return &Message{
		ID:      id,
		From:    from,
		To:      d.RecipientAddress,
		ToName:  d.RecipientName,
		Subject: d.Subject,
		Body:    body,
		Date:    now,
		Raw:     buf.Bytes(),
	}, nil
}
