package pipeline

// Outcome is the closed set of terminal statuses for one inbound email.
// Every pipeline run ends in exactly one of these, recorded on its log entry.
type Outcome string

const (
	// OutcomeInvalidAddress: the recipient address yielded no alias.
	OutcomeInvalidAddress Outcome = "invalid_address"

	// OutcomeUserNotFound: the alias resolved but no account owns it.
	OutcomeUserNotFound Outcome = "user_not_found"

	// OutcomeNoAttachments: zero valid attachments and the body was not
	// receipt-like (or its extraction failed).
	OutcomeNoAttachments Outcome = "no_attachments"

	// OutcomeSuccess: every valid attachment produced a receipt, or the
	// single body-extraction fallback after a PDF failure succeeded.
	OutcomeSuccess Outcome = "success"

	// OutcomeSuccessEmailBody: a receipt was created purely from body text;
	// no valid attachments existed.
	OutcomeSuccessEmailBody Outcome = "success_email_body"

	// OutcomePartial: some but not all valid attachments produced receipts.
	OutcomePartial Outcome = "partial"

	// OutcomeFailed: valid attachments existed but none produced a receipt
	// and no fallback applied or succeeded.
	OutcomeFailed Outcome = "failed"
)

// Result is what ProcessInboundEmail reports back to the transport layer.
type Result struct {
	Success    bool     `json:"success"`
	Outcome    Outcome  `json:"outcome"`
	ReceiptIDs []string `json:"receiptIds,omitempty"`
	Error      string   `json:"error,omitempty"`
}
