package receipt

import "time"

// SourceEmail marks receipts created by the inbound email pipeline.
const SourceEmail = "email"

// Receipt is a persisted expense record owned by an account.
type Receipt struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	StoreName   string    `json:"store_name"`
	Total       string    `json:"total"` // Non-negative decimal string
	Currency    string    `json:"currency,omitempty"`
	Date        time.Time `json:"date"`
	Items       []string  `json:"items"`
	Category    string    `json:"category"`
	Confidence  float64   `json:"confidence,omitempty"`
	Provenance  string    `json:"provenance"`
	Source      string    `json:"source"`
	SourceEmail string    `json:"source_email,omitempty"`
	ImagePath   string    `json:"image_path,omitempty"` // Blob pointer; exclusive with ImageData
	ImageData   []byte    `json:"image_data,omitempty"` // Inline bytes when blob storage failed
	Duplicate   bool      `json:"duplicate"`
	CreatedAt   time.Time `json:"created_at"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Account maps a receipt alias to a workspace owner.
type Account struct {
	ID        string    `json:"id"`
	Alias     string    `json:"alias"` // Lowercase alphanumeric token before @receipts.<domain>
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// LogEntry is the append-only processing record, exactly one per inbound
// email. Body snapshots are kept for forensic replay.
type LogEntry struct {
	ID                    string        `json:"id"`
	FromAddress           string        `json:"from_address"`
	ToAddress             string        `json:"to_address"`
	Alias                 string        `json:"alias,omitempty"`
	AccountID             string        `json:"account_id,omitempty"`
	Subject               string        `json:"subject"`
	AttachmentCount       int           `json:"attachment_count"`
	ValidAttachmentCount  int           `json:"valid_attachment_count"`
	RejectedSignatureImgs int           `json:"rejected_signature_images"`
	ReceiptsCreated       int           `json:"receipts_created"`
	Status                string        `json:"status"`
	Error                 string        `json:"error,omitempty"`
	Duration              time.Duration `json:"duration"`
	BodyText              string        `json:"body_text,omitempty"`
	BodyHTML              string        `json:"body_html,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
}
