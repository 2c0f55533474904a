package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/snapfolio/receiptmail/internal/classify"
	"github.com/snapfolio/receiptmail/internal/extract"
	"github.com/snapfolio/receiptmail/internal/mailin"
	"github.com/snapfolio/receiptmail/internal/pipeline"
	"github.com/snapfolio/receiptmail/internal/receipt"
)

func TestIntegration(t *testing.T) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	RegisterFailHandler(Fail)
	RunSpecs(t, "Integration Suite")
}

// stubExtractor implements extract.Scanner and extract.BodyExtractor with
// canned outcomes.
type stubExtractor struct {
	scanResult *extract.Result
	scanErr    error
	bodyResult *extract.Result
	bodyErr    error
}

func (s *stubExtractor) AnalyzeReceipt(ctx context.Context, imageData []byte, contentType string) (*extract.Result, error) {
	return s.scanResult, s.scanErr
}

func (s *stubExtractor) ExtractFromText(ctx context.Context, subject, body string) (*extract.Result, error) {
	return s.bodyResult, s.bodyErr
}

func (s *stubExtractor) Close() error {
	return nil
}

// stubNotifier records notifications.
type stubNotifier struct {
	confirmations int
	failures      int
}

func (s *stubNotifier) SendImportConfirmation(ctx context.Context, email, username string, count int) error {
	s.confirmations++
	return nil
}

func (s *stubNotifier) SendImportFailure(ctx context.Context, email, username, title, message string) error {
	s.failures++
	return nil
}

var _ = Describe("Integration", func() {
	var (
		store     *receipt.BoltStore
		extractor *stubExtractor
		notifier  *stubNotifier
		server    *mailin.Server
	)

	BeforeEach(func() {
		tempDir := GinkgoT().TempDir()

		var err error
		store, err = receipt.NewBoltStore(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())

		blobs, err := receipt.NewLocalStorage(filepath.Join(tempDir, "blobs"))
		Expect(err).NotTo(HaveOccurred())

		Expect(store.SaveAccount(&receipt.Account{
			ID:       "acct1",
			Alias:    "jane7",
			Email:    "jane@example.com",
			Username: "jane",
		})).To(Succeed())

		extractor = &stubExtractor{
			scanResult: &extract.Result{
				StoreName:  "Corner Grocer",
				Total:      "450.00",
				Date:       time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC),
				Items:      []string{"milk"},
				Provenance: extract.ProvenanceAttachmentOCR,
			},
			bodyResult: &extract.Result{
				StoreName:  "Acme Online",
				Total:      "99.00",
				Date:       time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
				Items:      []string{},
				Provenance: extract.ProvenanceEmailBodyAI,
			},
		}
		notifier = &stubNotifier{}

		service := pipeline.NewService(store, blobs, extractor, extractor, classify.RuleCategorizer{}, notifier)
		server = mailin.NewServer(service, store)
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	postJSON := func(msg *mailin.InboundEmail) (*httptest.ResponseRecorder, *pipeline.Result) {
		payload, err := json.Marshal(msg)
		Expect(err).NotTo(HaveOccurred())

		req := httptest.NewRequest(http.MethodPost, "/inbound/email", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)

		var result pipeline.Result
		Expect(json.NewDecoder(rec.Body).Decode(&result)).To(Succeed())
		return rec, &result
	}

	It("imports a JPEG attachment end to end", func() {
		rec, result := postJSON(&mailin.InboundEmail{
			From:    "shop@merchant.example",
			To:      "jane7@receipts.snapfolio.app",
			Subject: "Fwd: your receipt",
			Attachments: []mailin.Attachment{{
				Content:     bytes.Repeat([]byte{0xff}, 120*1024),
				ContentType: "image/jpeg",
				Filename:    "receipt.jpg",
				Size:        120 * 1024,
			}},
		})

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(result.Success).To(BeTrue())
		Expect(result.Outcome).To(Equal(pipeline.OutcomeSuccess))

		receipts, err := store.ListReceipts()
		Expect(err).NotTo(HaveOccurred())
		Expect(receipts).To(HaveLen(1))
		Expect(receipts[0].Source).To(Equal(receipt.SourceEmail))
		Expect(receipts[0].Category).To(Equal("groceries"))

		entries, err := store.ListLogEntries()
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Status).To(Equal(string(pipeline.OutcomeSuccess)))
		Expect(entries[0].AttachmentCount).To(Equal(1))
		Expect(entries[0].ValidAttachmentCount).To(Equal(1))
		Expect(notifier.confirmations).To(Equal(1))
	})

	It("logs user_not_found for an unknown alias", func() {
		rec, result := postJSON(&mailin.InboundEmail{
			From:    "shop@merchant.example",
			To:      "ghost@receipts.snapfolio.app",
			Subject: "Fwd: your receipt",
		})

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(result.Success).To(BeFalse())
		Expect(result.Outcome).To(Equal(pipeline.OutcomeUserNotFound))

		receipts, err := store.ListReceipts()
		Expect(err).NotTo(HaveOccurred())
		Expect(receipts).To(BeEmpty())

		entries, err := store.ListLogEntries()
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Status).To(Equal(string(pipeline.OutcomeUserNotFound)))
	})

	It("creates a body-sourced receipt with a preview image", func() {
		_, result := postJSON(&mailin.InboundEmail{
			From:    "billing@acme.example",
			To:      "jane7@receipts.snapfolio.app",
			Subject: "Tax Invoice INV-204",
			Text:    "Total: R99.00\nPayment confirmation attached below.",
		})

		Expect(result.Outcome).To(Equal(pipeline.OutcomeSuccessEmailBody))

		receipts, err := store.ListReceipts()
		Expect(err).NotTo(HaveOccurred())
		Expect(receipts).To(HaveLen(1))
		Expect(receipts[0].Provenance).To(Equal(extract.ProvenanceEmailBodyAI))
		Expect(receipts[0].ImagePath).To(HavePrefix("preview_"))
	})

	It("accepts a raw mime message", func() {
		raw := "From: shop@merchant.example\r\n" +
			"To: jane7@receipts.snapfolio.app\r\n" +
			"Subject: Tax Invoice\r\n" +
			"Content-Type: text/plain\r\n\r\n" +
			"Total: R99.00\r\n"
		req := httptest.NewRequest(http.MethodPost, "/inbound/email", bytes.NewReader([]byte(raw)))
		req.Header.Set("Content-Type", "message/rfc822")
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))

		var result pipeline.Result
		Expect(json.NewDecoder(rec.Body).Decode(&result)).To(Succeed())
		Expect(result.Outcome).To(Equal(pipeline.OutcomeSuccessEmailBody))
	})

	It("rejects unsupported payload types", func() {
		req := httptest.NewRequest(http.MethodPost, "/inbound/email", bytes.NewReader([]byte("x")))
		req.Header.Set("Content-Type", "text/csv")
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusUnsupportedMediaType))
	})

	It("serves receipts and logs for inspection", func() {
		_, result := postJSON(&mailin.InboundEmail{
			From:    "shop@merchant.example",
			To:      "jane7@receipts.snapfolio.app",
			Subject: "Fwd: your receipt",
			Attachments: []mailin.Attachment{{
				Content:     bytes.Repeat([]byte{0xff}, 120*1024),
				ContentType: "image/jpeg",
				Filename:    "receipt.jpg",
			}},
		})
		Expect(result.Success).To(BeTrue())

		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/receipts", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		var receipts []receipt.Receipt
		Expect(json.NewDecoder(rec.Body).Decode(&receipts)).To(Succeed())
		Expect(receipts).To(HaveLen(1))

		rec = httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		var entries []receipt.LogEntry
		Expect(json.NewDecoder(rec.Body).Decode(&entries)).To(Succeed())
		Expect(entries).To(HaveLen(1))
	})

	It("responds to health checks", func() {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
	})
})
