package classify

import (
	"strings"

	"github.com/jaytaylor/html2text"
)

// ReceiptKeywords score an email body for receipt-ness. At least two distinct
// entries must match before the AI extractor is worth invoking.
var ReceiptKeywords = []string{
	"invoice",
	"receipt",
	"total",
	"vat",
	"payment confirmation",
	"proof of payment",
	"credit note",
	"quotation",
	"amount due",
	"amount paid",
	"order confirmation",
	"purchase",
	"billed to",
}

// signatureClosers mark the start of signature/footer noise. Everything from
// the first matching line onward is discarded before keyword scoring so that
// boilerplate cannot trigger a false positive on its own.
var signatureClosers = []string{
	"thanks",
	"thank you",
	"regards",
	"kind regards",
	"best regards",
	"best wishes",
	"cheers",
	"sincerely",
	"sent from my",
	"get outlook for",
	"powered by",
	"this email and any attachments",
	"confidentiality notice",
	"unsubscribe",
}

// StripSignature cuts body text at the first signature or footer line.
func StripSignature(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.ToLower(strings.TrimSpace(line))
		if trimmed == "--" || trimmed == "—" {
			return strings.Join(lines[:i], "\n")
		}
		for _, closer := range signatureClosers {
			if strings.HasPrefix(trimmed, closer) {
				return strings.Join(lines[:i], "\n")
			}
		}
	}
	return text
}

// HTMLToText renders an HTML body as plain text, dropping tags, script and
// style blocks, and normalizing entities.
func HTMLToText(html string) string {
	text, err := html2text.FromString(html, html2text.Options{TextOnly: true})
	if err != nil {
		return ""
	}
	return text
}

// BodyText returns the signature-stripped plain text for an email, falling
// back to a text rendering of the HTML body when no plain part exists.
func BodyText(text, html string) string {
	if strings.TrimSpace(text) == "" && html != "" {
		text = HTMLToText(html)
	}
	return StripSignature(text)
}

// LooksLikeReceipt reports whether subject plus body text reads like a
// receipt or invoice: two or more distinct keyword matches. A single
// incidental match must not trigger expensive AI extraction.
func LooksLikeReceipt(subject, text, html string) bool {
	return CountReceiptKeywords(subject+"\n"+BodyText(text, html)) >= 2
}

// CountReceiptKeywords counts distinct keyword-table matches in text.
func CountReceiptKeywords(text string) int {
	haystack := strings.ToLower(text)
	matches := 0
	for _, keyword := range ReceiptKeywords {
		if strings.Contains(haystack, keyword) {
			matches++
		}
	}
	return matches
}
