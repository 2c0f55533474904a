package classify

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/snapfolio/receiptmail/internal/mailin/msg"
)

// Size thresholds for non-PDF images. Inline parts (carrying a Content-ID)
// are overwhelmingly decorative, so they clear a higher bar, and below
// InlineHintExemptBytes they additionally need a receipt-like filename.
const (
	MinImageBytes         = 20 * 1024
	MinInlineImageBytes   = 50 * 1024
	InlineHintExemptBytes = 100 * 1024
)

// AllowedContentTypes are the MIME types the pipeline will try to extract
// from. Everything else is ignored without counting as a signature image.
var AllowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"image/heic":      true,
	"image/heif":      true,
	"application/pdf": true,
}

// DecorativeNameTokens mark filenames that are almost certainly signature
// furniture rather than receipt photos. Tunable data, not logic.
var DecorativeNameTokens = []string{
	"logo", "icon", "banner", "signature", "badge", "avatar",
	"facebook", "twitter", "instagram", "linkedin", "youtube", "tiktok",
	"social", "spacer", "divider", "unnamed",
}

// ReceiptNameHints override every filename-based rejection: a user who names
// a file "receipt.png" means it.
var ReceiptNameHints = []string{
	"receipt", "invoice", "statement", "bill", "order", "purchase", "scan",
}

// autoNumberedName matches client-generated names like image001.png that
// mail clients assign to embedded signature graphics.
var autoNumberedName = regexp.MustCompile(`^image\d+\.`)

var pdfMagic = []byte("%PDF")

// Verdict records whether an attachment is a plausible receipt candidate.
// Reason is set only for rejections and is used for logging, never persisted.
type Verdict struct {
	Accepted bool
	Reason   string
}

func accept() Verdict {
	return Verdict{Accepted: true}
}

func reject(format string, args ...any) Verdict {
	return Verdict{Reason: fmt.Sprintf(format, args...)}
}

// IsPDF reports whether the attachment holds a PDF, by declared type or by
// the %PDF byte signature.
func IsPDF(att msg.Attachment) bool {
	if NormalizeContentType(att.ContentType) == "application/pdf" {
		return true
	}
	return bytes.HasPrefix(att.Content, pdfMagic)
}

// NormalizeContentType lowercases a MIME type and drops parameters.
func NormalizeContentType(contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	return mimeType
}

// Classify applies the two-tier size+filename heuristic to one attachment.
// Both signals must agree before an image is rejected as decorative, and an
// explicit receipt hint in the filename always wins. PDFs are never filtered:
// they are too information-dense to be signatures.
func Classify(att msg.Attachment) Verdict {
	if IsPDF(att) {
		return accept()
	}

	mimeType := NormalizeContentType(att.ContentType)
	if !AllowedContentTypes[mimeType] {
		return reject("unsupported content type %q", att.ContentType)
	}

	size := att.Size
	if size == 0 {
		size = int64(len(att.Content))
	}
	hinted := HasReceiptHint(att.Filename)

	if size < MinImageBytes {
		return reject("too small for a receipt photo (%d bytes)", size)
	}
	if att.ContentID != "" {
		if size < MinInlineImageBytes {
			return reject("inline image too small (%d bytes)", size)
		}
		if size < InlineHintExemptBytes && !hinted {
			return reject("inline image without receipt hint (%d bytes)", size)
		}
	}
	if isDecorativeName(att.Filename) && !hinted {
		return reject("decorative filename %q", att.Filename)
	}

	return accept()
}

// Filter classifies every attachment in arrival order and returns the
// accepted candidates plus the count of rejected signature-like images.
func Filter(atts []msg.Attachment) ([]msg.Attachment, int) {
	accepted := make([]msg.Attachment, 0, len(atts))
	rejectedSignatures := 0
	for _, att := range atts {
		verdict := Classify(att)
		if verdict.Accepted {
			accepted = append(accepted, att)
			continue
		}
		if AllowedContentTypes[NormalizeContentType(att.ContentType)] {
			rejectedSignatures++
		}
	}
	return accepted, rejectedSignatures
}

// HasReceiptHint reports whether a filename carries an explicit receipt clue.
func HasReceiptHint(filename string) bool {
	name := strings.ToLower(filename)
	for _, hint := range ReceiptNameHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	return false
}

func isDecorativeName(filename string) bool {
	name := strings.ToLower(filename)
	if autoNumberedName.MatchString(name) {
		return true
	}
	for _, token := range DecorativeNameTokens {
		if strings.Contains(name, token) {
			return true
		}
	}
	return false
}
