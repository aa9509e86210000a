package openai

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
)

const (
	// DefaultMaxPDFPages bounds the pages sent per PDF
	DefaultMaxPDFPages = 5
	pageDPI            = 150
	pageQuality        = 85
)

// Rasterizer turns a PDF into page images the vision model can read
type Rasterizer interface {
	Rasterize(pdf []byte) ([][]byte, error)
}

// PDFRasterizer renders PDF pages to JPEG with mupdf
type PDFRasterizer struct {
	maxPages int
}

// NewPDFRasterizer creates a rasterizer. A non-positive maxPages selects
// DefaultMaxPDFPages.
func NewPDFRasterizer(maxPages int) *PDFRasterizer {
	if maxPages <= 0 {
		maxPages = DefaultMaxPDFPages
	}
	return &PDFRasterizer{maxPages: maxPages}
}

// Rasterize renders the first pages of the document. A page that fails to
// render is skipped; a document yielding no page is an error.
func (r *PDFRasterizer) Rasterize(pdf []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages > r.maxPages {
		pages = r.maxPages
	}

	images := make([][]byte, 0, pages)
	for n := 0; n < pages; n++ {
		img, err := doc.ImageDPI(n, pageDPI)
		if err != nil {
			continue
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: pageQuality}); err != nil {
			continue
		}
		images = append(images, buf.Bytes())
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("no pages rendered from PDF")
	}
	return images, nil
}
