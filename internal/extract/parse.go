package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// decimal tolerates the model returning a total either as a bare number or
// as a quoted numeric string.
type decimal string

func (d *decimal) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		*d = ""
		return nil
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = decimal(s)
		return nil
	}
	*d = decimal(text)
	return nil
}

type wireExtraction struct {
	Error      string   `json:"error"`
	StoreName  string   `json:"storeName"`
	Total      decimal  `json:"total"`
	Date       string   `json:"date"`
	Items      []string `json:"items"`
	Currency   string   `json:"currency"`
	Confidence float64  `json:"confidence"`
}

// dateFormats are tried in order when the model returns a non-ISO date.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
	"02 Jan 2006",
}

// parseExtractionJSON parses a model response into a Result with the strict
// contract from the prompt: JSON only, markdown fences tolerated, an "error"
// field or unparseable payload is an extraction failure rather than guessed
// data. Missing numeric/date fields are defaulted so the receipt entity
// never carries null values.
func parseExtractionJSON(text string, now time.Time) (*Result, error) {
	text = stripCodeFences(text)

	// Slice to the outermost object in case the model added prose anyway.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return nil, fmt.Errorf("%w: no json object in response", ErrNoReceiptData)
	}
	text = text[start : end+1]

	var wire wireExtraction
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling response: %v", ErrNoReceiptData, err)
	}
	if wire.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrNoReceiptData, wire.Error)
	}

	result := &Result{
		StoreName:  strings.TrimSpace(wire.StoreName),
		Total:      normalizeTotal(string(wire.Total)),
		Currency:   strings.ToUpper(strings.TrimSpace(wire.Currency)),
		Date:       parseDate(wire.Date, now),
		Items:      wire.Items,
		Confidence: clampConfidence(wire.Confidence),
	}
	if result.StoreName == "" {
		result.StoreName = "Unknown Merchant"
	}
	if result.Items == nil {
		result.Items = []string{}
	}
	return result, nil
}

func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// normalizeTotal renders a total as a non-negative two-decimal string,
// defaulting to "0.00" when the model gave nothing usable.
func normalizeTotal(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimLeft(raw, "$€£R ")
	raw = strings.ReplaceAll(raw, ",", "")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return "0.00"
	}
	return strconv.FormatFloat(value, 'f', 2, 64)
}

func parseDate(raw string, now time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	for _, format := range dateFormats {
		if parsed, err := time.Parse(format, raw); err == nil {
			return parsed
		}
	}
	return now
}

func clampConfidence(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
