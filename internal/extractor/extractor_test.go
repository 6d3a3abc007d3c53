package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

const cleanText = "Statement of account\n12/01 Deposit 100.00\n12/03 Check 50.00\nEnding balance 1,050.00"

func TestIsGarbled(t *testing.T) {
	watermark := "e c h k a c r l"
	tests := []struct {
		name     string
		text     string
		expected bool
	}{
		{"clean", cleanText, false},
		{"too short", "12/01 Deposit 100.00", true},
		{"empty", "", true},
		{"cid artifacts", strings.Repeat("(cid:12)(cid:3) ", 20) + cleanText, true},
		{"few cid artifacts", cleanText + strings.Repeat(" plenty of readable text", 20) + "(cid:1)", false},
		{"watermark lines", strings.Repeat(cleanText+"\n"+watermark+"\n", 3), true},
		{"one watermark line", strings.Repeat(cleanText+"\n", 5) + watermark, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsGarbled(tt.text); got != tt.expected {
				t.Errorf("IsGarbled: got %v, want %v", got, tt.expected)
			}
		})
	}
}

type fakeMethod struct {
	doc   *models.Document
	err   error
	calls int
}

func (f *fakeMethod) run(ctx context.Context, path string) (*models.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func textDoc(method, text string) *models.Document {
	doc := models.NewTextDocument(text)
	doc.Method = method
	return doc
}

func TestExtract_FallbackChain(t *testing.T) {
	longGarbled := strings.Repeat("(cid:12)", 100)
	midGarbled := strings.Repeat("(cid:12)", 20)
	failed := errors.New("boom")

	tests := []struct {
		name       string
		library    *fakeMethod
		renderer   *fakeMethod
		ocr        *fakeMethod
		wantMethod string
		wantErr    bool
		wantOCR    bool
	}{
		{
			name:       "library text is clean",
			library:    &fakeMethod{doc: textDoc("library", cleanText)},
			renderer:   &fakeMethod{err: failed},
			ocr:        &fakeMethod{err: failed},
			wantMethod: "library",
		},
		{
			name:       "renderer rescues garbled library text",
			library:    &fakeMethod{doc: textDoc("library", "x")},
			renderer:   &fakeMethod{doc: textDoc("pdftotext", cleanText)},
			ocr:        &fakeMethod{err: failed},
			wantMethod: "pdftotext",
		},
		{
			name:       "long garbled library text skips OCR",
			library:    &fakeMethod{doc: textDoc("library", longGarbled)},
			renderer:   &fakeMethod{err: failed},
			ocr:        &fakeMethod{doc: textDoc("ocr", cleanText)},
			wantMethod: "library",
		},
		{
			name:       "OCR used when text is short and garbled",
			library:    &fakeMethod{doc: textDoc("library", "x")},
			renderer:   &fakeMethod{doc: textDoc("pdftotext", "y")},
			ocr:        &fakeMethod{doc: textDoc("ocr", cleanText)},
			wantMethod: "ocr",
			wantOCR:    true,
		},
		{
			name:       "OCR failure falls back to library text",
			library:    &fakeMethod{doc: textDoc("library", midGarbled)},
			renderer:   &fakeMethod{err: failed},
			ocr:        &fakeMethod{err: failed},
			wantMethod: "library",
			wantOCR:    true,
		},
		{
			name:     "everything fails",
			library:  &fakeMethod{err: failed},
			renderer: &fakeMethod{err: failed},
			ocr:      &fakeMethod{err: failed},
			wantErr:  true,
			wantOCR:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Extractor{Library: tt.library.run, Renderer: tt.renderer.run, OCR: tt.ocr.run}
			doc, err := e.Extract(context.Background(), "statement.pdf")
			if tt.wantErr {
				if !errors.Is(err, ErrNoReadableText) {
					t.Fatalf("got error %v, want ErrNoReadableText", err)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if doc.Method != tt.wantMethod {
					t.Errorf("method: got %q, want %q", doc.Method, tt.wantMethod)
				}
			}
			if ran := tt.ocr.calls > 0; ran != tt.wantOCR {
				t.Errorf("OCR ran: got %v, want %v", ran, tt.wantOCR)
			}
		})
	}
}

func TestMergeWords(t *testing.T) {
	var glyphs []glyph
	x := 50.0
	for _, s := range []string{"1", "2", "/", "0", "1"} {
		glyphs = append(glyphs, glyph{X: x, Y: 700, W: 5, FontSize: 10, S: s})
		x += 5
	}
	glyphs = append(glyphs,
		glyph{X: x, Y: 700, W: 3, FontSize: 10, S: " "},
		glyph{X: 90, Y: 700.4, W: 30, FontSize: 10, S: "Deposit"},
		glyph{X: 300, Y: 699.8, W: 30, FontSize: 10, S: "100.00"},
		glyph{X: 50, Y: 688, W: 25, FontSize: 10, S: "12/03"},
	)

	words := wordsFromGlyphs(glyphs)
	var got []string
	for _, w := range words {
		got = append(got, w.S)
	}
	want := []string{"12/01", "Deposit", "100.00", "12/03"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %v, want %v", got, want)
	}

	rows := RowsOf(words)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	lines := linesFromWords(words)
	if lines[0] != "12/01 Deposit   100.00" {
		t.Errorf("line: got %q, want %q", lines[0], "12/01 Deposit   100.00")
	}
}

func TestGroupRows(t *testing.T) {
	// Baselines jitter by up to two points inside a row; the input order
	// interleaves the rows.
	glyphs := []glyph{
		{X: 300, Y: 699.0, S: "100.00"},
		{X: 50, Y: 680.0, S: "12/03"},
		{X: 90, Y: 701.0, S: "Deposit"},
		{X: 300, Y: 681.2, S: "50.00"},
		{X: 50, Y: 700.0, S: "12/01"},
		{X: 90, Y: 679.5, S: "Check"},
	}

	rows := groupRows(glyphs, glyphPos)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	want := []string{"12/01 Deposit 100.00", "12/03 Check 50.00"}
	for i, row := range rows {
		var parts []string
		for _, g := range row {
			parts = append(parts, g.S)
		}
		if got := strings.Join(parts, " "); got != want[i] {
			t.Errorf("row %d: got %q, want %q", i, got, want[i])
		}
	}
}

func TestSegmentLine(t *testing.T) {
	segs := segmentLine("12/01   Deposit      100.00")
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
	want := []struct {
		text string
		x0   float64
	}{{"12/01", 0}, {"Deposit", 8}, {"100.00", 21}}
	for i, w := range want {
		if segs[i].text != w.text || segs[i].x0 != w.x0 {
			t.Errorf("segment %d: got %q@%v, want %q@%v", i, segs[i].text, segs[i].x0, w.text, w.x0)
		}
	}
}

func tableText() string {
	row := func(date, desc, debit, credit, balance string) string {
		return strings.TrimRight(fmt.Sprintf("%-8s%-19s%-10s%-10s%s", date, desc, debit, credit, balance), " ")
	}
	return strings.Join([]string{
		"Account activity",
		row("Date", "Description", "Debit", "Credit", "Balance"),
		row("12/01", "Opening deposit", "", "100.00", "1,100.00"),
		row("12/03", "Check 101", "50.00", "", "1,050.00"),
		"",
		"Thank you for banking with us",
	}, "\n")
}

func TestBuildTables(t *testing.T) {
	text := tableText()
	pages := map[string]models.Page{
		"text":     {Number: 1, Text: text},
		"geometry": {Number: 1, Text: text, Words: wordsFromLayoutText(text)},
	}
	for name, page := range pages {
		t.Run(name, func(t *testing.T) {
			tables := buildTables([]models.Page{page})
			if len(tables) != 1 {
				t.Fatalf("got %d tables, want 1", len(tables))
			}
			tbl := tables[0]
			if strings.Join(tbl.Header, "|") != "Date|Description|Debit|Credit|Balance" {
				t.Errorf("header: got %v", tbl.Header)
			}
			want := [][]string{
				{"12/01", "Opening deposit", "", "100.00", "1,100.00"},
				{"12/03", "Check 101", "50.00", "", "1,050.00"},
			}
			if len(tbl.Rows) != len(want) {
				t.Fatalf("got %d rows, want %d: %v", len(tbl.Rows), len(want), tbl.Rows)
			}
			for i := range want {
				if strings.Join(tbl.Rows[i], "|") != strings.Join(want[i], "|") {
					t.Errorf("row %d: got %q, want %q", i, tbl.Rows[i], want[i])
				}
			}
		})
	}
}
