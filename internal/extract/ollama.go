package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const ollamaCallTimeout = 120 * time.Second

// Ollama implements Scanner and BodyExtractor against a local Ollama server.
// Vision-capable models (llava, qwen2-vl) are required for image scanning;
// any instruct model works for body extraction.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates an Ollama extraction client.
func NewOllama(baseURL string, modelName string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}

	return &Ollama{
		baseURL: baseURL,
		model:   modelName,
		client: &http.Client{
			Timeout: ollamaCallTimeout,
		},
	}, nil
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// AnalyzeReceipt extracts structured fields from a receipt image.
func (o *Ollama) AnalyzeReceipt(ctx context.Context, imageData []byte, contentType string) (*Result, error) {
	normalized, err := NormalizeImage(imageData, contentType)
	if err != nil {
		return nil, err
	}

	text, err := o.chat(ctx, []ollamaMessage{
		{Role: "system", Content: "You are an expert at reading receipts and invoices from images. Read all text carefully and extract accurate values."},
		{Role: "user", Content: scanPrompt, Images: []string{base64.StdEncoding.EncodeToString(normalized)}},
	})
	if err != nil {
		return nil, err
	}

	result, err := parseExtractionJSON(text, time.Now())
	if err != nil {
		return nil, fmt.Errorf("parsing scan response: %w", err)
	}
	result.Provenance = ProvenanceAttachmentOCR
	return result, nil
}

// ExtractFromText extracts structured fields from raw email text.
func (o *Ollama) ExtractFromText(ctx context.Context, subject, body string) (*Result, error) {
	text, err := o.chat(ctx, []ollamaMessage{
		{Role: "system", Content: bodySystemPrompt},
		{Role: "user", Content: buildBodyPrompt(subject, body)},
	})
	if err != nil {
		return nil, err
	}

	result, err := parseExtractionJSON(text, time.Now())
	if err != nil {
		return nil, fmt.Errorf("parsing body response: %w", err)
	}
	result.Provenance = ProvenanceEmailBodyAI
	return result, nil
}

func (o *Ollama) chat(ctx context.Context, messages []ollamaMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ollamaCallTimeout)
	defer cancel()

	reqBody := ollamaChatRequest{
		Model:    o.model,
		Stream:   false,
		Messages: messages,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", o.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return chatResp.Message.Content, nil
}

// Close closes the Ollama client (no-op for the HTTP client).
func (o *Ollama) Close() error {
	return nil
}
