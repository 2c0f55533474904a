package extract

import (
	"fmt"
	"strings"
)

// bodyCharBudget bounds how much email text is sent to the model, to keep
// cost and latency predictable.
const bodyCharBudget = 6000

// scanPrompt instructs a vision model to read a receipt image.
const scanPrompt = `You are analyzing a photographed or scanned receipt or invoice. Carefully read all text in the image and extract:

1. storeName: the merchant, store, or business name, usually the largest text near the top.
2. total: the final total or amount due, usually near the bottom. Extract only the numeric value (e.g. "42.75").
3. date: the transaction or invoice date in ISO 8601 format (YYYY-MM-DD).
4. items: the purchased line items as an array of short strings, in order. Use an empty array if unreadable.
5. currency: the ISO 4217 currency code if visible (e.g. "USD", "ZAR"), otherwise an empty string.
6. confidence: your confidence in the extraction, between 0 and 1.

Return ONLY a JSON object with exactly those keys:
{"storeName": "...", "total": "0.00", "date": "YYYY-MM-DD", "items": [], "currency": "", "confidence": 0.0}

Do not include any text before or after the JSON. Do not use markdown code blocks.`

// bodySystemPrompt is the strict contract for extracting receipt fields from
// raw email text. The adapter treats anything other than the JSON object, or
// an explicit error field, as an extraction failure.
const bodySystemPrompt = `You extract structured receipt and invoice data from email text. Respond with ONLY a JSON object containing:
- "storeName": the merchant or sender business name
- "total": the final amount as a bare numeric string, e.g. "450.00"
- "date": the transaction date as an ISO calendar date (YYYY-MM-DD); use today's date if absent
- "items": an array of line item strings, possibly empty
- "currency": the ISO 4217 currency code, or "" if unknown
- "confidence": a number between 0 and 1

If the text contains no receipt or invoice data, respond with exactly {"error": "No receipt data found"}.
Never guess amounts that are not in the text. Never add text outside the JSON object.`

// buildBodyPrompt assembles the user message for body extraction, truncated
// to the character budget.
func buildBodyPrompt(subject, body string) string {
	text := fmt.Sprintf("Subject: %s\n\n%s", subject, body)
	if len(text) > bodyCharBudget {
		text = text[:bodyCharBudget]
	}
	return "Extract the receipt data from this email:\n\n" + strings.TrimSpace(text)
}
