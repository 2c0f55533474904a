package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiCallTimeout = 30 * time.Second

// Gemini implements Scanner and BodyExtractor using Google Gemini.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a Gemini extraction client.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// AnalyzeReceipt extracts structured fields from a receipt image.
func (g *Gemini) AnalyzeReceipt(ctx context.Context, imageData []byte, contentType string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, geminiCallTimeout)
	defer cancel()

	normalized, err := NormalizeImage(imageData, contentType)
	if err != nil {
		return nil, err
	}

	text, err := g.generate(ctx,
		genai.ImageData("jpeg", normalized),
		genai.Text(scanPrompt),
	)
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

// ExtractFromText extracts structured fields from raw email text under the
// strict JSON-only contract.
func (g *Gemini) ExtractFromText(ctx context.Context, subject, body string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, geminiCallTimeout)
	defer cancel()

	text, err := g.generate(ctx,
		genai.Text(bodySystemPrompt),
		genai.Text(buildBodyPrompt(subject, body)),
	)
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

func (g *Gemini) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var builder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			builder.WriteString(string(text))
		}
	}
	return builder.String(), nil
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
