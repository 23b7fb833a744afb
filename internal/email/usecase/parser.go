package usecase

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message/mail"

	emaildomain "github.com/Photon3009/cisoinbox/internal/email/domain"
)

// ParseRawMessage extracts header fields and a plain-text body from a
// raw RFC 5322 message. text/plain parts are preferred; text/html is
// used as-is when no plain part exists. Envelope fields from the fetch
// fill in anything the MIME headers lack.
func ParseRawMessage(raw *emaildomain.RawMessage) (*emaildomain.ParsedMail, error) {
	if len(raw.Raw) == 0 {
		return nil, fmt.Errorf("empty message body for uid %d", raw.UID)
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw.Raw))
	if err != nil {
		return nil, fmt.Errorf("parse message uid %d: %w", raw.UID, err)
	}

	parsed := &emaildomain.ParsedMail{
		Subject:   raw.Subject,
		From:      raw.From,
		To:        raw.To,
		Date:      raw.Date,
		MessageID: raw.MessageID,
	}

	header := mr.Header
	if subject, err := header.Subject(); err == nil && subject != "" {
		parsed.Subject = subject
	}
	if from, err := header.AddressList("From"); err == nil && len(from) > 0 {
		parsed.From = from[0].String()
	}
	if to, err := header.AddressList("To"); err == nil && len(to) > 0 {
		parsed.To = to[0].String()
	}
	if date, err := header.Date(); err == nil && !date.IsZero() {
		parsed.Date = date
	}
	if id, err := header.MessageID(); err == nil && id != "" {
		parsed.MessageID = id
	}

	var plainBody, htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Keep whatever parts already decoded
			break
		}

		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := inline.ContentType()
		if err != nil {
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain") && plainBody == "":
			plainBody = string(data)
		case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
			htmlBody = string(data)
		}
	}

	if plainBody != "" {
		parsed.Body = plainBody
	} else {
		parsed.Body = htmlBody
	}
	parsed.Body = strings.TrimSpace(parsed.Body)

	return parsed, nil
}
