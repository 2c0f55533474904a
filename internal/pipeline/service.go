package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snapfolio/receiptmail/internal/classify"
	"github.com/snapfolio/receiptmail/internal/extract"
	"github.com/snapfolio/receiptmail/internal/mailin/msg"
	"github.com/snapfolio/receiptmail/internal/preview"
	"github.com/snapfolio/receiptmail/internal/receipt"
)

// Categorizer assigns a spending category to an extracted receipt. Failure
// is tolerated: the pipeline defaults the category instead of failing.
type Categorizer interface {
	Categorize(ctx context.Context, storeName string, items []string, total string) (string, error)
}

// Notifier delivers user-facing import notifications. Failures are logged by
// the pipeline and never propagated.
type Notifier interface {
	SendImportConfirmation(ctx context.Context, email, username string, count int) error
	SendImportFailure(ctx context.Context, email, username, title, message string) error
}

// IDGenerator generates unique IDs for receipts and log entries.
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service orchestrates one inbound email end to end: address resolution,
// attachment classification, extraction with fallbacks, duplicate screening,
// persistence, and exactly one log entry per email. Instances hold no
// mutable state, so one Service may process many emails concurrently.
type Service struct {
	store       receipt.Store
	blobs       receipt.Storage
	scanner     extract.Scanner
	body        extract.BodyExtractor
	categorizer Categorizer
	notifier    Notifier
	ids         IDGenerator
	clock       TimeSource
}

// NewService creates a Service with default ID generation and clock.
func NewService(store receipt.Store, blobs receipt.Storage, scanner extract.Scanner, body extract.BodyExtractor, categorizer Categorizer, notifier Notifier) *Service {
	return NewServiceWithDeps(store, blobs, scanner, body, categorizer, notifier, uuidGenerator{}, defaultTimeSource{})
}

// NewServiceWithDeps creates a Service with injectable seams for testing.
func NewServiceWithDeps(store receipt.Store, blobs receipt.Storage, scanner extract.Scanner, body extract.BodyExtractor, categorizer Categorizer, notifier Notifier, ids IDGenerator, clock TimeSource) *Service {
	return &Service{
		store:       store,
		blobs:       blobs,
		scanner:     scanner,
		body:        body,
		categorizer: categorizer,
		notifier:    notifier,
		ids:         ids,
		clock:       clock,
	}
}

// ProcessInboundEmail runs the full pipeline for one email. It always writes
// exactly one log entry, creates zero or more receipts, and never panics
// across this boundary.
func (s *Service) ProcessInboundEmail(ctx context.Context, msg *msg.InboundEmail) (result *Result) {
	start := s.clock.Now()
	entry := &receipt.LogEntry{
		ID:              s.ids.Generate(),
		FromAddress:     msg.From,
		ToAddress:       msg.To,
		Subject:         msg.Subject,
		AttachmentCount: len(msg.Attachments),
		BodyText:        msg.Text,
		BodyHTML:        msg.HTML,
		CreatedAt:       start,
	}

	logged := false
	finalize := func(outcome Outcome, receiptIDs []string, errMsg string) *Result {
		if !logged {
			logged = true
			entry.Status = string(outcome)
			entry.Error = errMsg
			entry.ReceiptsCreated = len(receiptIDs)
			entry.Duration = s.clock.Now().Sub(start)
			if err := s.store.SaveLogEntry(entry); err != nil {
				slog.Error("failed to write processing log entry", "id", entry.ID, "error", err)
			}
		}
		success := outcome == OutcomeSuccess || outcome == OutcomeSuccessEmailBody || outcome == OutcomePartial
		return &Result{
			Success:    success,
			Outcome:    outcome,
			ReceiptIDs: receiptIDs,
			Error:      errMsg,
		}
	}

	// Unexpected errors must still produce a log entry, never escape.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in email pipeline", "from", msg.From, "panic", r)
			result = finalize(OutcomeFailed, nil, fmt.Sprintf("unexpected error: %v", r))
		}
	}()

	alias := ResolveAlias(msg.To)
	entry.Alias = alias
	if alias == "" {
		slog.Warn("inbound email with unresolvable address", "to", msg.To, "from", msg.From)
		return finalize(OutcomeInvalidAddress, nil, fmt.Sprintf("no receipt alias in address %q", msg.To))
	}

	account, err := s.store.GetAccountByAlias(alias)
	if err != nil {
		if errors.Is(err, receipt.ErrAccountNotFound) {
			slog.Warn("inbound email for unknown alias", "alias", alias, "from", msg.From)
			return finalize(OutcomeUserNotFound, nil, fmt.Sprintf("no account for alias %q", alias))
		}
		return finalize(OutcomeFailed, nil, fmt.Sprintf("looking up account: %v", err))
	}
	entry.AccountID = account.ID

	valid, rejectedSignatures := classify.Filter(msg.Attachments)
	entry.ValidAttachmentCount = len(valid)
	entry.RejectedSignatureImgs = rejectedSignatures
	slog.Info("classified attachments",
		"alias", alias,
		"total", len(msg.Attachments),
		"valid", len(valid),
		"rejected_signatures", rejectedSignatures,
	)

	// Attachments are processed sequentially in arrival order; a failed PDF
	// arms the single per-email body-extraction fallback.
	var created []string
	pdfFailed := false
	for _, att := range valid {
		rec, err := s.processAttachment(ctx, account, msg, att)
		if err != nil {
			slog.Warn("attachment extraction failed",
				"alias", alias,
				"filename", att.Filename,
				"error", err,
			)
			if classify.IsPDF(att) {
				pdfFailed = true
			}
			continue
		}
		created = append(created, rec.ID)
	}

	// Body extraction runs at most once per email: either because no valid
	// attachments existed and the body looks receipt-like, or because a PDF
	// failed and nothing else produced a receipt.
	tryBody := false
	if len(valid) == 0 {
		tryBody = classify.LooksLikeReceipt(msg.Subject, msg.Text, msg.HTML)
	} else if len(created) == 0 && pdfFailed {
		tryBody = true
	}

	var bodyReceiptID string
	if tryBody {
		rec, err := s.processBody(ctx, account, msg)
		if err != nil {
			slog.Warn("body extraction failed", "alias", alias, "error", err)
		} else {
			bodyReceiptID = rec.ID
		}
	}

	switch {
	case len(valid) == 0 && bodyReceiptID != "":
		s.notifyConfirmation(ctx, account, 1)
		return finalize(OutcomeSuccessEmailBody, []string{bodyReceiptID}, "")

	case len(valid) == 0:
		s.notifyFailure(ctx, account, "No receipt found in your email",
			"We could not find a receipt in your email: no usable attachments were found and the text did not contain receipt details.")
		return finalize(OutcomeNoAttachments, nil, "no valid attachments and no receipt data in body")

	case bodyReceiptID != "":
		// PDF failure recovered via the body fallback.
		s.notifyConfirmation(ctx, account, 1)
		return finalize(OutcomeSuccess, []string{bodyReceiptID}, "")

	case len(created) == len(valid):
		s.notifyConfirmation(ctx, account, len(created))
		return finalize(OutcomeSuccess, created, "")

	case len(created) > 0:
		// Partial success: some receipts exist, so no failure notification.
		s.notifyConfirmation(ctx, account, len(created))
		return finalize(OutcomePartial, created, fmt.Sprintf("%d of %d attachments produced receipts", len(created), len(valid)))

	default:
		s.notifyFailure(ctx, account, "We could not read your receipt",
			"Your email had attachments, but none of them could be read as a receipt. Try sending a clearer photo or the original PDF.")
		return finalize(OutcomeFailed, nil, "no attachment produced a receipt")
	}
}

// processAttachment runs one attachment through conversion, extraction,
// categorization, duplicate screening, and persistence.
func (s *Service) processAttachment(ctx context.Context, account *receipt.Account, msg *msg.InboundEmail, att msg.Attachment) (*receipt.Receipt, error) {
	data := att.Content
	contentType := att.ContentType
	if classify.IsPDF(att) {
		converted, err := extract.ConvertPDF(ctx, att.Content)
		if err != nil {
			return nil, fmt.Errorf("converting pdf %q: %w", att.Filename, err)
		}
		data = converted
		contentType = "image/jpeg"
	}

	result, err := s.scanner.AnalyzeReceipt(ctx, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("scanning %q: %w", att.Filename, err)
	}

	id := s.ids.Generate()
	imageName := fmt.Sprintf("%s_%s", id, sanitizeFilename(att.Filename))
	return s.saveReceipt(ctx, account, msg, result, id, imageName, att.Content)
}

// processBody extracts receipt fields from the email text and synthesizes a
// preview image so the receipt still has a viewable artifact.
func (s *Service) processBody(ctx context.Context, account *receipt.Account, msg *msg.InboundEmail) (*receipt.Receipt, error) {
	text := classify.BodyText(msg.Text, msg.HTML)
	result, err := s.body.ExtractFromText(ctx, msg.Subject, text)
	if err != nil {
		return nil, fmt.Errorf("extracting from body: %w", err)
	}

	image, err := preview.Render(result, msg.Subject)
	if err != nil {
		return nil, fmt.Errorf("rendering preview: %w", err)
	}

	id := s.ids.Generate()
	return s.saveReceipt(ctx, account, msg, result, id, "preview_"+id+".png", image)
}

func (s *Service) saveReceipt(ctx context.Context, account *receipt.Account, msg *msg.InboundEmail, result *extract.Result, id, imageName string, imageData []byte) (*receipt.Receipt, error) {
	now := s.clock.Now()

	category, err := s.categorizer.Categorize(ctx, result.StoreName, result.Items, result.Total)
	if err != nil {
		slog.Warn("categorization failed, using default", "store", result.StoreName, "error", err)
		category = classify.DefaultCategory
	}

	rec := &receipt.Receipt{
		ID:          id,
		AccountID:   account.ID,
		StoreName:   result.StoreName,
		Total:       result.Total,
		Currency:    result.Currency,
		Date:        result.Date,
		Items:       result.Items,
		Category:    category,
		Confidence:  result.Confidence,
		Provenance:  result.Provenance,
		Source:      receipt.SourceEmail,
		SourceEmail: msg.From,
		CreatedAt:   now,
		ProcessedAt: now,
	}

	// Duplicate screening is advisory: flag, never block.
	dups, err := s.store.FindDuplicates(account.ID, result.StoreName, result.Date, result.Total)
	if err != nil {
		slog.Warn("duplicate screening failed", "store", result.StoreName, "error", err)
	} else if len(dups) > 0 {
		slog.Info("likely duplicate receipt", "store", result.StoreName, "total", result.Total, "matches", len(dups))
		rec.Duplicate = true
	}

	// Blob failure degrades to inline image bytes on the receipt.
	path, err := s.blobs.Save(imageName, imageData)
	if err != nil {
		slog.Warn("blob upload failed, storing image inline", "filename", imageName, "error", err)
		rec.ImageData = imageData
	} else {
		rec.ImagePath = path
	}

	if err := s.store.SaveReceipt(rec); err != nil {
		return nil, fmt.Errorf("saving receipt: %w", err)
	}
	return rec, nil
}

func (s *Service) notifyConfirmation(ctx context.Context, account *receipt.Account, count int) {
	if err := s.notifier.SendImportConfirmation(ctx, account.Email, account.Username, count); err != nil {
		slog.Warn("failed to send confirmation notification", "email", account.Email, "error", err)
	}
}

func (s *Service) notifyFailure(ctx context.Context, account *receipt.Account, title, message string) {
	if err := s.notifier.SendImportFailure(ctx, account.Email, account.Username, title, message); err != nil {
		slog.Warn("failed to send failure notification", "email", account.Email, "error", err)
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up phone-generated filenames before they become
// blob names.
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}
