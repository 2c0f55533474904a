package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"strings"
	"time"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WEBP decoder
)

// pdfRenderTimeout bounds the wall clock spent rasterizing one PDF. A stuck
// renderer must fail loudly so the orchestrator can fall back, never hang.
const pdfRenderTimeout = 12 * time.Second

// maxRenderEdge caps the longest side of a rendered page so OCR cost and
// payload size stay predictable.
const maxRenderEdge = 2000

// ConvertPDF rasterizes the first page of a PDF to a bounded-resolution JPEG.
// The render runs under a hard timeout; on expiry the call returns
// ErrRenderTimeout while the renderer goroutine is left to finish and be
// collected.
func ConvertPDF(ctx context.Context, pdfData []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, pdfRenderTimeout)
	defer cancel()

	type rendered struct {
		data []byte
		err  error
	}
	done := make(chan rendered, 1)
	go func() {
		data, err := renderFirstPage(pdfData)
		done <- rendered{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("rasterizing pdf: %w", ErrRenderTimeout)
	case result := <-done:
		if result.err != nil {
			return nil, fmt.Errorf("rasterizing pdf: %w", result.err)
		}
		return result.data, nil
	}
}

func renderFirstPage(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer doc.Close()

	// Receipts are single page; only the first page is ever scanned.
	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering pdf page: %w", err)
	}

	return encodeBoundedJPEG(img)
}

// encodeBoundedJPEG downscales an image so its longest side fits
// maxRenderEdge, then encodes it as JPEG.
func encodeBoundedJPEG(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	longest := max(width, height)
	if longest > maxRenderEdge {
		scale := float64(maxRenderEdge) / float64(longest)
		scaled := image.NewRGBA(image.Rect(0, 0, int(float64(width)*scale), int(float64(height)*scale)))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, xdraw.Over, nil)
		img = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// NormalizeImage decodes any supported image format (including iPhone
// HEIC/HEIF) and re-encodes it as a bounded JPEG for the scanner.
func NormalizeImage(imageData []byte, contentType string) ([]byte, error) {
	var img image.Image
	var err error

	if isHEICData(imageData) || isHEICMimeType(contentType) {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding heic image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}

	return encodeBoundedJPEG(img)
}

// isHEICData checks the ftyp box brands HEIC containers start with.
func isHEICData(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(contentType string) bool {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
