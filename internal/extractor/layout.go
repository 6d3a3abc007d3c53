package extractor

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

const (
	// rowTolerance groups glyphs whose baselines differ by less than this.
	rowTolerance = 2.5
	// columnGap is the horizontal gap that separates table cells.
	columnGap = 15.0
	// layoutCharWidth maps a pdftotext -layout character column to points.
	// Two blank columns must exceed columnGap.
	layoutCharWidth = 8.0
)

// glyph is a positioned text fragment as reported by the PDF library.
type glyph struct {
	X, Y, W  float64
	FontSize float64
	S        string
}

// groupRows clusters items into rows top to bottom (descending Y, since
// PDF user space grows upwards) and sorts each row left to right.
func groupRows[T any](items []T, pos func(T) (x, y float64)) [][]T {
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		_, yi := pos(sorted[i])
		_, yj := pos(sorted[j])
		return yi > yj
	})

	var rows [][]T
	var rowY float64
	for _, it := range sorted {
		_, y := pos(it)
		if len(rows) == 0 || math.Abs(y-rowY) >= rowTolerance {
			rows = append(rows, nil)
			rowY = y
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], it)
	}
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool {
			xi, _ := pos(row[i])
			xj, _ := pos(row[j])
			return xi < xj
		})
	}
	return rows
}

func glyphPos(g glyph) (float64, float64) { return g.X, g.Y }

// mergeWords joins the glyphs of one row into words. A space glyph or a
// gap wider than a fraction of the font size ends the current word.
func mergeWords(row []glyph) []models.Word {
	var words []models.Word
	var cur *models.Word
	flush := func() {
		if cur != nil && strings.TrimSpace(cur.S) != "" {
			cur.S = strings.TrimSpace(cur.S)
			words = append(words, *cur)
		}
		cur = nil
	}
	for _, g := range row {
		if strings.TrimSpace(g.S) == "" {
			flush()
			continue
		}
		maxGap := math.Max(1.0, 0.25*g.FontSize)
		if cur != nil && g.X-(cur.X+cur.W) > maxGap {
			flush()
		}
		if cur == nil {
			cur = &models.Word{X: g.X, Y: g.Y, W: g.W, S: g.S}
			continue
		}
		cur.S += g.S
		cur.W = math.Max(cur.W, g.X+g.W-cur.X)
	}
	flush()
	return words
}

// wordsFromGlyphs converts raw page glyphs into positioned words.
func wordsFromGlyphs(glyphs []glyph) []models.Word {
	nonEmpty := glyphs[:0:0]
	for _, g := range glyphs {
		if g.S != "" {
			nonEmpty = append(nonEmpty, g)
		}
	}
	var words []models.Word
	for _, row := range groupRows(nonEmpty, glyphPos) {
		words = append(words, mergeWords(row)...)
	}
	return words
}

// linesFromWords renders words as text lines. Words further apart than a
// column gap are separated by a wider run of spaces so the line still
// shows its columns.
func linesFromWords(words []models.Word) []string {
	var lines []string
	for _, row := range RowsOf(words) {
		var b strings.Builder
		for i, w := range row {
			if i > 0 {
				if w.X-(row[i-1].X+row[i-1].W) > columnGap {
					b.WriteString("   ")
				} else {
					b.WriteString(" ")
				}
			}
			b.WriteString(w.S)
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// RowsOf groups positioned words into rows, top to bottom, each sorted
// left to right.
func RowsOf(words []models.Word) [][]models.Word {
	return groupRows(words, func(w models.Word) (float64, float64) { return w.X, w.Y })
}

// wordsFromLayoutText synthesizes positioned words from fixed-width
// text. Each character column is layoutCharWidth points wide and lines
// are ten points apart.
func wordsFromLayoutText(text string) []models.Word {
	var words []models.Word
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		y := float64(len(lines)-i) * 10
		runes := []rune(line)
		start := -1
		for j := 0; j <= len(runes); j++ {
			space := j == len(runes) || unicode.IsSpace(runes[j])
			switch {
			case !space && start < 0:
				start = j
			case space && start >= 0:
				words = append(words, models.Word{
					X: float64(start) * layoutCharWidth,
					Y: y,
					W: float64(j-start) * layoutCharWidth,
					S: string(runes[start:j]),
				})
				start = -1
			}
		}
	}
	return words
}

// segment is a run of words that belongs to one table cell.
type segment struct {
	text   string
	x0, x1 float64
}

func (s segment) center() float64 { return (s.x0 + s.x1) / 2 }

func segmentWords(row []models.Word) []segment {
	var segs []segment
	for i, w := range row {
		if i > 0 && w.X-(row[i-1].X+row[i-1].W) <= columnGap {
			last := &segs[len(segs)-1]
			last.text += " " + w.S
			last.x1 = w.X + w.W
			continue
		}
		segs = append(segs, segment{text: w.S, x0: w.X, x1: w.X + w.W})
	}
	return segs
}

var multiSpace = regexp.MustCompile(`\s{2,}|\t`)

// segmentLine splits a layout text line on runs of two or more spaces or
// tabs, measuring position in character columns.
func segmentLine(line string) []segment {
	var segs []segment
	pos := 0
	for _, loc := range multiSpace.FindAllStringIndex(line+"  ", -1) {
		if text := strings.TrimSpace(line[pos:loc[0]]); text != "" {
			lead := len(line[pos:loc[0]]) - len(strings.TrimLeft(line[pos:loc[0]], " "))
			x0 := float64(utf8.RuneCountInString(line[:pos+lead]))
			segs = append(segs, segment{text: text, x0: x0, x1: x0 + float64(utf8.RuneCountInString(text))})
		}
		pos = loc[1]
		if pos > len(line) {
			break
		}
	}
	return segs
}

var (
	headerDate   = regexp.MustCompile(`(?i)\bdate\b`)
	headerAmount = regexp.MustCompile(`(?i)debit|credit|withdrawal|deposit|payment|amount`)
)

func isHeaderRow(segs []segment) bool {
	if len(segs) < 3 {
		return false
	}
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.text)
		b.WriteString(" ")
	}
	joined := b.String()
	return headerDate.MatchString(joined) && headerAmount.MatchString(joined)
}

// detectTables finds header rows and lays the rows beneath them out on
// the header's columns. A table ends at the first row with fewer than two
// cells.
func detectTables(page int, rows [][]segment) []models.Table {
	var tables []models.Table
	var cur *models.Table
	var cols []segment

	for _, segs := range rows {
		if isHeaderRow(segs) {
			if cur != nil && len(cur.Rows) > 0 {
				tables = append(tables, *cur)
			}
			cols = segs
			cur = &models.Table{Page: page}
			for _, c := range cols {
				cur.Header = append(cur.Header, c.text)
			}
			continue
		}
		if cur == nil {
			continue
		}
		if len(segs) < 2 {
			if len(cur.Rows) > 0 {
				tables = append(tables, *cur)
			}
			cur = nil
			continue
		}
		cells := make([]string, len(cols))
		for _, s := range segs {
			i := nearestColumn(cols, s)
			if cells[i] != "" {
				cells[i] += " "
			}
			cells[i] += s.text
		}
		cur.Rows = append(cur.Rows, cells)
	}
	if cur != nil && len(cur.Rows) > 0 {
		tables = append(tables, *cur)
	}
	return tables
}

// nearestColumn picks the header column that overlaps s the most, or the
// one with the closest center when none overlaps.
func nearestColumn(cols []segment, s segment) int {
	best, bestOverlap := -1, 0.0
	for i, c := range cols {
		overlap := math.Min(c.x1, s.x1) - math.Max(c.x0, s.x0)
		if overlap > bestOverlap {
			best, bestOverlap = i, overlap
		}
	}
	if best >= 0 {
		return best
	}
	best, bestDist := 0, math.Inf(1)
	for i, c := range cols {
		if d := math.Abs(c.center() - s.center()); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// buildTables recovers table grids from every page, from word geometry
// when the page has it and from the layout of the text otherwise.
func buildTables(pages []models.Page) []models.Table {
	var tables []models.Table
	for _, p := range pages {
		var rows [][]segment
		if len(p.Words) > 0 {
			for _, row := range RowsOf(p.Words) {
				rows = append(rows, segmentWords(row))
			}
		} else {
			for _, line := range strings.Split(p.Text, "\n") {
				rows = append(rows, segmentLine(line))
			}
		}
		tables = append(tables, detectTables(p.Number, rows)...)
	}
	return tables
}
