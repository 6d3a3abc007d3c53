// Package extractor acquires the text of a statement PDF. It tries the
// PDF library first, then pdftotext, then OCR, and keeps the first output
// that is not garbled.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/insightdelivered/statement-extractor/internal/logger"
	"github.com/insightdelivered/statement-extractor/internal/models"
)

// ErrNoReadableText is returned when every extraction method failed or
// produced unusable text.
var ErrNoReadableText = errors.New("no readable text could be extracted from PDF")

const (
	// Garbled library text this long is still preferred over a slow OCR pass.
	usableGarbledLen = 500
	// Garbled library text this long is used when OCR fails.
	lastResortLen = 100
)

// Method is one way of getting a document out of a PDF file.
type Method func(ctx context.Context, path string) (*models.Document, error)

// Extractor runs the extraction methods in order.
type Extractor struct {
	Library  Method
	Renderer Method
	OCR      Method
}

// New returns an Extractor wired to the PDF library, pdftotext and
// tesseract.
func New() *Extractor {
	return &Extractor{
		Library:  extractWithLibrary,
		Renderer: extractWithPdftotext,
		OCR:      extractWithOCR,
	}
}

// Extract returns the first non-garbled document. The chosen document has
// its table grids detected before it is returned.
func (e *Extractor) Extract(ctx context.Context, path string) (*models.Document, error) {
	log := logger.FromContext(ctx)

	primary, libErr := e.Library(ctx, path)
	if libErr == nil && !IsGarbled(primary.Text()) {
		return finish(primary), nil
	}
	if libErr != nil {
		log.Warn().Err(libErr).Msg("PDF library extraction failed, trying pdftotext")
	} else {
		log.Warn().Int("chars", len(primary.Text())).Msg("PDF library produced garbled text, trying pdftotext")
	}

	if e.Renderer != nil {
		rendered, err := e.Renderer(ctx, path)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("pdftotext failed")
		case IsGarbled(rendered.Text()):
			log.Warn().Msg("pdftotext produced garbled text")
		default:
			return finish(rendered), nil
		}
	}

	primaryLen := 0
	if primary != nil {
		primaryLen = len(primary.Text())
	}
	if primaryLen > usableGarbledLen {
		log.Info().Int("chars", primaryLen).Msg("using library text despite minor issues, skipping OCR")
		return finish(primary), nil
	}

	if e.OCR != nil {
		log.Warn().Msg("falling back to OCR, this may take several minutes")
		scanned, err := e.OCR(ctx, path)
		if err == nil {
			return finish(scanned), nil
		}
		log.Warn().Err(err).Msg("OCR failed")
		if primaryLen > lastResortLen {
			log.Warn().Int("chars", primaryLen).Msg("using library text as fallback")
			return finish(primary), nil
		}
		return nil, fmt.Errorf("%w: library, pdftotext and OCR all failed: %v", ErrNoReadableText, err)
	}

	if libErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoReadableText, libErr)
	}
	return nil, ErrNoReadableText
}

func finish(doc *models.Document) *models.Document {
	if doc.Tables == nil {
		doc.Tables = buildTables(doc.Pages)
	}
	return doc
}

// extractWithLibrary reads the PDF with ledongthuc/pdf. Pages keep their
// word geometry so layout-driven strategies can use it.
func extractWithLibrary(ctx context.Context, path string) (doc *models.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	doc = &models.Document{Path: path, Method: "library"}
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		p := models.Page{Number: i}

		content := page.Content()
		glyphs := make([]glyph, 0, len(content.Text))
		for _, t := range content.Text {
			glyphs = append(glyphs, glyph{X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize, S: t.S})
		}
		p.Words = wordsFromGlyphs(glyphs)
		p.Text = strings.Join(linesFromWords(p.Words), "\n")
		if strings.TrimSpace(p.Text) == "" {
			p.Text = textByRow(page)
		}
		doc.Pages = append(doc.Pages, p)
	}

	if strings.TrimSpace(doc.Text()) == "" {
		if text := plainText(r); text != "" {
			doc.Pages = []models.Page{{Number: 1, Text: text}}
		}
	}
	return doc, nil
}

// textByRow uses the library's own row grouping.
func textByRow(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return ""
	}
	var lines []string
	for _, row := range rows {
		parts := make([]string, 0, len(row.Content))
		for _, word := range row.Content {
			parts = append(parts, word.S)
		}
		if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// plainText is whole-document extraction, used when per-page content
// yields nothing.
func plainText(r *pdf.Reader) string {
	reader, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// extractWithPdftotext uses the external pdftotext command from
// poppler-utils. Layout mode keeps columns aligned, so word positions are
// synthesized from character columns.
func extractWithPdftotext(ctx context.Context, path string) (*models.Document, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}

	numPages := pageCount(ctx, path)
	if numPages == 0 {
		numPages = 1
	}

	doc := &models.Document{Path: path, Method: "pdftotext"}
	for i := 1; i <= numPages; i++ {
		n := strconv.Itoa(i)
		out, err := exec.CommandContext(ctx, "pdftotext", "-layout", "-f", n, "-l", n, path, "-").Output()
		if err != nil {
			continue
		}
		text := strings.TrimRight(string(out), "\n\f ")
		if strings.TrimSpace(text) == "" {
			continue
		}
		doc.Pages = append(doc.Pages, models.Page{
			Number: i,
			Text:   text,
			Words:  wordsFromLayoutText(text),
		})
	}

	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("pdftotext produced no output")
	}
	return doc, nil
}

// pageCount returns the number of pages reported by pdfinfo, or 0.
func pageCount(ctx context.Context, path string) int {
	out, err := exec.CommandContext(ctx, "pdfinfo", path).Output()
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(line, "Pages:") {
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
			if err == nil {
				return n
			}
		}
	}
	return 0
}
