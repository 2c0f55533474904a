package mailin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/snapfolio/receiptmail/internal/pipeline"
	"github.com/snapfolio/receiptmail/internal/receipt"
)

// maxInboundBytes caps one posted email, attachments included.
const maxInboundBytes = int64(50 << 20) // 50MB

// Server receives inbound email webhooks and exposes read-back endpoints for
// operational inspection. Each request is processed as one independent
// pipeline run; the HTTP layer adds no shared state.
type Server struct {
	service *pipeline.Service
	store   receipt.Store
	mux     *http.ServeMux
	httpSrv *http.Server
}

// NewServer creates a Server around a pipeline service and its store.
func NewServer(service *pipeline.Service, store receipt.Store) *Server {
	s := &Server{
		service: service,
		store:   store,
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /inbound/email", s.handleInboundEmail)
	s.mux.HandleFunc("GET /api/receipts", s.handleListReceipts)
	s.mux.HandleFunc("GET /api/logs", s.handleListLogs)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// handleInboundEmail accepts either a JSON InboundEmail payload
// (attachment content base64-encoded) or a raw RFC 5322 message
// (message/rfc822), runs the pipeline, and returns the outcome.
func (s *Server) handleInboundEmail(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxInboundBytes)

	var msg *InboundEmail
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "application/json"):
		msg = &InboundEmail{}
		if err := json.NewDecoder(r.Body).Decode(msg); err != nil {
			slog.Error("error decoding inbound email json", "error", err)
			writeError(w, "invalid json payload", http.StatusBadRequest)
			return
		}
	case strings.HasPrefix(contentType, "message/rfc822"), contentType == "":
		parsed, err := ParseMessage(r.Body)
		if err != nil {
			slog.Error("error parsing inbound mime message", "error", err)
			writeError(w, "unparseable mime message", http.StatusBadRequest)
			return
		}
		msg = parsed
	default:
		writeError(w, fmt.Sprintf("unsupported content type %q", contentType), http.StatusUnsupportedMediaType)
		return
	}

	result := s.service.ProcessInboundEmail(r.Context(), msg)
	slog.Info("inbound email processed",
		"from", msg.From,
		"to", msg.To,
		"outcome", result.Outcome,
		"receipts", len(result.ReceiptIDs),
	)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.store.ListReceipts()
	if err != nil {
		slog.Error("error listing receipts", "error", err)
		writeError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListLogEntries()
	if err != nil {
		slog.Error("error listing log entries", "error", err)
		writeError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Start runs the HTTP server until Stop is called.
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("starting server", "address", addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}
