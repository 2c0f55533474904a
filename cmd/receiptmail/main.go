package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/snapfolio/receiptmail/internal/classify"
	"github.com/snapfolio/receiptmail/internal/extract"
	"github.com/snapfolio/receiptmail/internal/mailin"
	"github.com/snapfolio/receiptmail/internal/notify"
	"github.com/snapfolio/receiptmail/internal/pipeline"
	"github.com/snapfolio/receiptmail/internal/receipt"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("receiptmail")
	var (
		port         = fs.IntLong("port", 8080, "HTTP server port")
		dbPath       = fs.StringLong("db", "receiptmail.db", "Database file path")
		storagePath  = fs.StringLong("storage", "./blobs", "Blob storage directory path")
		provider     = fs.StringLong("provider", "gemini", "Extraction provider: 'gemini' or 'ollama'")
		geminiKey    = fs.StringLong("gemini-key", "", "Google Gemini API key (or set RECEIPTMAIL_GEMINI_KEY)")
		geminiModel  = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL    = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel  = fs.StringLong("ollama-model", "llava", "Ollama model name (vision-capable, e.g. llava, qwen2-vl)")
		smtpAddr     = fs.StringLong("smtp-addr", "", "SMTP submission endpoint host:port for notifications (empty: log only)")
		smtpUser     = fs.StringLong("smtp-user", "", "SMTP username")
		smtpPass     = fs.StringLong("smtp-pass", "", "SMTP password")
		smtpFrom     = fs.StringLong("smtp-from", "receipts@snapfolio.app", "Notification From address")
		seedAccounts = fs.StringLong("seed-account", "", "Comma-separated alias=email pairs to provision on startup")
		showVersion  = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPTMAIL"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	slog.Info("initializing database...")
	store, err := receipt.NewBoltStore(*dbPath)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := seed(store, *seedAccounts); err != nil {
		slog.Error("failed to seed accounts", "error", err)
		os.Exit(1)
	}

	var scanner extract.Scanner
	var bodyExtractor extract.BodyExtractor
	switch *provider {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("gemini api key is required. Set --gemini-key or GEMINI_API_KEY")
			os.Exit(1)
		}
		slog.Info("initializing gemini provider...", "model", *geminiModel)
		gemini, err := extract.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("failed to initialize gemini", "error", err)
			os.Exit(1)
		}
		scanner, bodyExtractor = gemini, gemini
	case "ollama":
		slog.Info("initializing ollama provider...", "url", *ollamaURL, "model", *ollamaModel)
		ollama, err := extract.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("failed to initialize ollama", "error", err)
			os.Exit(1)
		}
		scanner, bodyExtractor = ollama, ollama
	default:
		slog.Error("invalid provider", "provider", *provider, "valid", "gemini or ollama")
		os.Exit(1)
	}
	defer scanner.Close()

	slog.Info("initializing blob storage...")
	blobs, err := receipt.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("failed to initialize blob storage", "error", err)
		os.Exit(1)
	}

	var notifier pipeline.Notifier
	if *smtpAddr != "" {
		slog.Info("notifications via smtp", "addr", *smtpAddr, "from", *smtpFrom)
		notifier = notify.NewMailer(*smtpAddr, *smtpUser, *smtpPass, *smtpFrom)
	} else {
		slog.Info("no smtp endpoint configured, notifications will be logged only")
		notifier = notify.LogOnly{}
	}

	service := pipeline.NewService(store, blobs, scanner, bodyExtractor, classify.RuleCategorizer{}, notifier)
	server := mailin.NewServer(service, store)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()
	slog.Info("server started", "address", fmt.Sprintf("http://localhost%s", addr))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// seed provisions accounts from comma-separated alias=email pairs.
func seed(store receipt.Store, pairs string) error {
	if pairs == "" {
		return nil
	}
	for _, pair := range strings.Split(pairs, ",") {
		alias, email, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || alias == "" || email == "" {
			return fmt.Errorf("invalid seed account %q, want alias=email", pair)
		}
		username, _, _ := strings.Cut(email, "@")
		err := store.SaveAccount(&receipt.Account{
			ID:        alias,
			Alias:     strings.ToLower(alias),
			Email:     email,
			Username:  username,
			CreatedAt: time.Now(),
		})
		if err != nil {
			return fmt.Errorf("saving account %q: %w", alias, err)
		}
		slog.Info("seeded account", "alias", alias, "email", email)
	}
	return nil
}
