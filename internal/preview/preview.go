// Package preview renders a visual stand-in for receipts created from email
// body text, so every stored receipt has a viewable image even when no photo
// or PDF ever existed.
package preview

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/snapfolio/receiptmail/internal/extract"
)

const (
	cardWidth    = 480
	lineHeight   = 18
	marginX      = 24
	marginY      = 28
	maxItems     = 18
	maxLineRunes = 52
)

var (
	cardBackground = color.RGBA{R: 0xfd, G: 0xfd, B: 0xfb, A: 0xff}
	inkColor       = color.RGBA{R: 0x22, G: 0x22, B: 0x26, A: 0xff}
	ruleColor      = color.RGBA{R: 0xc8, G: 0xc8, B: 0xc8, A: 0xff}
)

// Render draws a fixed-layout PNG card for an extraction result. The layout
// is deterministic: the same result and subject always produce identical
// bytes. Long fields are truncated rather than wrapped.
func Render(result *extract.Result, subject string) ([]byte, error) {
	items := result.Items
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	lines := []string{
		"EMAIL RECEIPT",
		"",
		"Merchant:  " + result.StoreName,
		"Total:     " + formatTotal(result.Currency, result.Total),
		"Date:      " + result.Date.Format("2006-01-02"),
		"Subject:   " + subject,
	}
	if len(items) > 0 {
		lines = append(lines, "", "Items")
		for _, item := range items {
			lines = append(lines, "  - "+item)
		}
	}

	height := marginY*2 + lineHeight*(len(lines)+1)
	img := image.NewRGBA(image.Rect(0, 0, cardWidth, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(cardBackground), image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(inkColor),
		Face: basicfont.Face7x13,
	}

	y := marginY
	for i, line := range lines {
		drawer.Dot = fixed.P(marginX, y)
		drawer.DrawString(truncate(line, maxLineRunes))
		if i == 0 {
			drawRule(img, y+6)
		}
		y += lineHeight
	}
	drawRule(img, y)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawRule(img *image.RGBA, y int) {
	for x := marginX; x < cardWidth-marginX; x++ {
		img.Set(x, y, ruleColor)
	}
}

func formatTotal(currency, total string) string {
	if currency == "" {
		return total
	}
	return currency + " " + total
}

func truncate(line string, limit int) string {
	runes := []rune(line)
	if len(runes) <= limit {
		return line
	}
	return string(runes[:limit-1]) + "…"
}
