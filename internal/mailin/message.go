package mailin

import (
	"fmt"
	"io"

	"github.com/jhillyerd/enmime"

	"github.com/snapfolio/receiptmail/internal/mailin/msg"
)

// InboundEmail is one parsed inbound message. It lives for the duration of a
// single pipeline run and is never persisted as-is. The definition lives in
// the leaf package msg so consumers can avoid importing mailin.
type InboundEmail = msg.InboundEmail

// Attachment is a single file carried by an inbound email. ContentID is set
// for inline/embedded parts (signature images, logos referenced from HTML).
type Attachment = msg.Attachment

// ParseMessage reads a raw RFC 5322 message and builds an InboundEmail.
// Regular attachments keep arrival order and precede inline parts, matching
// how forwarding clients order them.
func ParseMessage(r io.Reader) (*InboundEmail, error) {
	envelope, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, fmt.Errorf("parsing mime envelope: %w", err)
	}

	msg := &InboundEmail{
		From:    envelope.GetHeader("From"),
		To:      envelope.GetHeader("To"),
		Subject: envelope.GetHeader("Subject"),
		Text:    envelope.Text,
		HTML:    envelope.HTML,
	}

	for _, part := range envelope.Attachments {
		msg.Attachments = append(msg.Attachments, partToAttachment(part, false))
	}
	for _, part := range envelope.Inlines {
		// Text parts already contributed to envelope.Text/HTML.
		if len(part.Content) == 0 {
			continue
		}
		msg.Attachments = append(msg.Attachments, partToAttachment(part, true))
	}
	// cid-referenced images without a disposition header land here.
	for _, part := range envelope.OtherParts {
		if len(part.Content) == 0 {
			continue
		}
		msg.Attachments = append(msg.Attachments, partToAttachment(part, true))
	}

	return msg, nil
}

func partToAttachment(part *enmime.Part, inline bool) Attachment {
	att := Attachment{
		Content:     part.Content,
		ContentType: part.ContentType,
		Filename:    part.FileName,
		Size:        int64(len(part.Content)),
		ContentID:   part.ContentID,
	}
	if inline && att.ContentID == "" {
		// The classifier keys off a non-empty ContentID to treat a part as
		// embedded rather than deliberately attached.
		att.ContentID = part.FileName
		if att.ContentID == "" {
			att.ContentID = "inline"
		}
	}
	return att
}
