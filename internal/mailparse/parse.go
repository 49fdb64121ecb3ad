// Package mailparse turns raw RFC 5322 messages into email records.
package mailparse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/k3a/html2text"

	"mailfilter/internal/model"
)

// MaxMessageSize bounds how much of a message Parse reads.
const MaxMessageSize = 10 << 20

var ErrEmptyMessage = errors.New("empty message")

// Parse reads a message and returns an unread Inbox email with no priority.
// The body is the first text/plain part; when there is none the first
// text/html part is converted to text.
func Parse(r io.Reader) (model.Email, error) {
	br := bufio.NewReader(io.LimitReader(r, MaxMessageSize))
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return model.Email{}, ErrEmptyMessage
		}
		return model.Email{}, fmt.Errorf("read message: %w", err)
	}

	entity, err := message.Read(br)
	if err != nil && !message.IsUnknownCharset(err) {
		return model.Email{}, fmt.Errorf("read message: %w", err)
	}
	mr := mail.NewReader(entity)
	defer mr.Close()

	e := model.Email{
		ID:       model.NewEmailID(),
		Priority: model.PriorityNone,
		Category: model.CategoryInbox,
	}

	h := mr.Header
	e.Sender = firstAddress(&h, "From")
	e.Recipient = firstAddress(&h, "To")
	if subject, err := h.Subject(); err == nil {
		e.Subject = subject
	} else {
		e.Subject = h.Get("Subject")
	}
	if date, err := h.Date(); err == nil && !date.IsZero() {
		e.Timestamp = date.UTC()
	} else {
		e.Timestamp = time.Now().UTC()
	}

	var plain, html *string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return model.Email{}, fmt.Errorf("read part: %w", err)
		}
		if p == nil {
			continue
		}

		inline, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		mediaType, _, _ := inline.ContentType()
		if mediaType == "" {
			mediaType = "text/plain"
		}
		if mediaType != "text/plain" && mediaType != "text/html" {
			continue
		}

		content, err := io.ReadAll(p.Body)
		if err != nil {
			return model.Email{}, fmt.Errorf("read %s part: %w", mediaType, err)
		}
		s := string(content)
		switch {
		case mediaType == "text/plain" && plain == nil:
			plain = &s
		case mediaType == "text/html" && html == nil:
			html = &s
		}
	}

	switch {
	case plain != nil:
		e.Body = strings.TrimSpace(*plain)
	case html != nil:
		e.Body = strings.TrimSpace(html2text.HTML2Text(*html))
	}
	return e, nil
}

func firstAddress(h *mail.Header, key string) string {
	addrs, err := h.AddressList(key)
	if err != nil || len(addrs) == 0 {
		return strings.TrimSpace(h.Get(key))
	}
	a := addrs[0]
	if a.Name == "" {
		return a.Address
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Address)
}
