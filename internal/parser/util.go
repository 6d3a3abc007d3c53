package parser

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/insightdelivered/statement-extractor/internal/models"
	"github.com/insightdelivered/statement-extractor/internal/normalize"
)

const amountExpr = `\(?-?\$?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}\)?-?`

var (
	// amountOnly matches a token that is nothing but an amount.
	amountOnly = regexp.MustCompile(`^` + amountExpr + `$`)
	// leadingAmount matches text that starts with an amount, which marks a
	// balance pair rather than a description.
	leadingAmount = regexp.MustCompile(`^` + amountExpr + `(?:\s|$)`)
	innerAmount   = regexp.MustCompile(`\s` + amountExpr + `\s`)
	slashDate     = regexp.MustCompile(`^\d{1,2}/\d{1,2}(?:/\d{2,4})?$`)
)

// dateContext resolves statement dates that omit the year.
type dateContext struct {
	year     int
	dominant time.Month
}

// newDateContext anchors the year on the dominant month: a full date in
// that month decides it, and the statement-wide year is the fallback.
func newDateContext(doc *models.Document) dateContext {
	text := doc.Text()
	d := dateContext{
		year:     normalize.DetectStatementYear(text),
		dominant: normalize.DominantMonth(text),
	}
	if d.dominant != 0 {
		if y, ok := normalize.YearOfMonth(text, d.dominant); ok {
			d.year = y
		}
	}
	return d
}

// parse converts a date token to YYYY-MM-DD. year belongs to the dominant
// month; a year-less date more than six months away from it is moved into
// the neighbouring year (a December statement listing January 2 items).
func (d dateContext) parse(token string) (string, bool) {
	iso, ok := normalize.ParseDate(token, d.year)
	if !ok {
		return "", false
	}
	if d.dominant == 0 || hasYear(token) {
		return iso, true
	}
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return "", false
	}
	year := d.year
	switch diff := int(t.Month()) - int(d.dominant); {
	case diff > 6:
		year--
	case diff < -6:
		year++
	default:
		return iso, true
	}
	return normalize.ParseDate(token, year)
}

// day builds a date from a day of the dominant month.
func (d dateContext) day(day int) (string, bool) {
	month := d.dominant
	if month == 0 {
		return "", false
	}
	return normalize.FormatDate(d.year, month, day)
}

// hasYear reports whether the token carries its own year. Two leap years
// are used so February 29 parses either way.
func hasYear(token string) bool {
	a, _ := normalize.ParseDate(token, 2000)
	b, _ := normalize.ParseDate(token, 2004)
	return a == b
}

// newTransaction builds a transaction with a non-negative amount rounded
// to cents and a whitespace-collapsed description.
func newTransaction(date, description string, amount float64, kind SectionKind) models.Transaction {
	t := models.Transaction{
		Date:        date,
		Description: cleanDescription(description),
		Amount:      normalize.Round2(math.Abs(amount)),
		Type:        models.Debit,
	}
	if kind == SectionCredit {
		t.Type = models.Credit
	}
	return t
}

func cleanDescription(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var (
	ocrSemicolon     = regexp.MustCompile(`(\d);(\s*)(\d)`)
	ocrColon         = regexp.MustCompile(`(\d):(\d{2})\b`)
	ocrTrailingColon = regexp.MustCompile(`(\d):(\s|$)`)
	ocrNA            = regexp.MustCompile(`\s+NA\b`)
)

// sanitizeOCRAmounts fixes common OCR errors in amount strings.
// Tesseract often misreads periods as semicolons or colons in numbers.
// E.g., "19,720; 15:" → "19,720.15", "1.00" stays "1.00".
func sanitizeOCRAmounts(line string) string {
	line = ocrSemicolon.ReplaceAllString(line, "$1.$3")
	line = ocrColon.ReplaceAllString(line, "$1.$2")
	line = ocrTrailingColon.ReplaceAllString(line, "$1$2")
	line = ocrNA.ReplaceAllString(line, "")
	return line
}

// pageLines returns the lines of a page, OCR-sanitized when the text came
// from OCR.
func pageLines(doc *models.Document, page models.Page) []string {
	lines := strings.Split(page.Text, "\n")
	if doc.Method == "ocr" {
		for i, l := range lines {
			lines[i] = sanitizeOCRAmounts(l)
		}
	}
	return lines
}

func containsAny(text string, needles []string) bool {
	lower := strings.ToLower(text)
	for _, needle := range needles {
		if needle != "" && strings.Contains(lower, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}
