// Package msg holds the inbound email data types shared between the mailin
// HTTP layer and the packages that consume parsed messages. It exists as a
// leaf package so that consumers do not import mailin (which imports
// pipeline); mailin re-exports these types under their original names.
package msg

// InboundEmail is one parsed inbound message. It lives for the duration of a
// single pipeline run and is never persisted as-is.
type InboundEmail struct {
	From        string       `json:"from"`
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	Text        string       `json:"text,omitempty"`
	HTML        string       `json:"html,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a single file carried by an inbound email. ContentID is set
// for inline/embedded parts (signature images, logos referenced from HTML).
type Attachment struct {
	Content     []byte `json:"content"`
	ContentType string `json:"contentType"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size,omitempty"`
	ContentID   string `json:"contentId,omitempty"`
}
