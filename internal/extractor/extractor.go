package extractor

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/mfenderov/pdf-rag/pkg/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfMagic is the header every PDF file starts with.
const pdfMagic = "%PDF-"

func init() {
	// pdfcpu otherwise creates a config directory under $HOME on first use.
	api.DisableConfigDir()
}

// Extractor turns raw PDF bytes into per-page plain text.
type Extractor struct{}

// New creates a new Extractor.
func New() *Extractor {
	return &Extractor{}
}

// HasPDFHeader reports whether data starts with the PDF magic bytes.
func HasPDFHeader(data []byte) bool {
	return bytes.HasPrefix(data, []byte(pdfMagic))
}

// Validate checks that data is a structurally readable PDF with at least one page.
// It does not extract text.
func (e *Extractor) Validate(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty file", models.ErrExtraction)
	}
	if !HasPDFHeader(data) {
		return fmt.Errorf("%w: missing PDF header", models.ErrExtraction)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pageCount, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return fmt.Errorf("%w: failed to read PDF: %v", models.ErrExtraction, err)
	}
	if pageCount == 0 {
		return fmt.Errorf("%w: PDF has no pages", models.ErrExtraction)
	}
	return nil
}

// Extract returns the text of every page in order, numbered from 1.
// Page text is trimmed; pages without text are kept with empty Text.
// It fails when no page yields any text.
func (e *Extractor) Extract(data []byte) (pages []models.Page, err error) {
	if !HasPDFHeader(data) {
		return nil, fmt.Errorf("%w: missing PDF header", models.ErrExtraction)
	}

	// The parser panics on some malformed object graphs.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: malformed PDF: %v", models.ErrExtraction, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open PDF: %v", models.ErrExtraction, err)
	}

	total := reader.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("%w: PDF has no pages", models.ErrExtraction)
	}

	pages = make([]models.Page, 0, total)
	withText := 0
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, models.Page{Number: i})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Warn("failed to extract page text", "page", i, "error", err)
			pages = append(pages, models.Page{Number: i})
			continue
		}

		text = strings.TrimSpace(text)
		if text != "" {
			withText++
		}
		pages = append(pages, models.Page{Number: i, Text: text})
	}

	if withText == 0 {
		return nil, fmt.Errorf("%w: no extractable text in %d pages", models.ErrExtraction, total)
	}

	slog.Debug("extracted PDF text", "pages", total, "pages_with_text", withText)
	return pages, nil
}
