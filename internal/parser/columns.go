package parser

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-extractor/internal/extractor"
	"github.com/insightdelivered/statement-extractor/internal/models"
	"github.com/insightdelivered/statement-extractor/internal/normalize"
)

// ColumnPositionStrategy reads statements laid out as one table with
// separate credit and debit columns. The type of each amount comes from
// the column it sits under, found from the header row's word positions.
type ColumnPositionStrategy struct {
	// Tolerance is how far, in points, an amount's center may sit from a
	// column header's center.
	Tolerance float64
}

func (s *ColumnPositionStrategy) Name() string { return "column_positions" }

var (
	creditLabel  = regexp.MustCompile(`(?i)^(credits?|deposits?|additions)\b`)
	debitLabel   = regexp.MustCompile(`(?i)^(debits?|withdrawals?|subtractions|charges)\b`)
	balanceLabel = regexp.MustCompile(`(?i)^balance\b`)
	monthWord    = regexp.MustCompile(`(?i)^(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?$`)
	dayWord      = regexp.MustCompile(`^\d{1,2},?$`)
)

// columns are the header centers; balance is NaN when the table has none.
type columns struct {
	credit, debit, balance float64
}

// findColumns reads a header row. Rows that start with a date or carry an
// amount are data, whatever words they contain.
func findColumns(row []models.Word) (columns, bool) {
	cols := columns{credit: math.NaN(), debit: math.NaN(), balance: math.NaN()}
	if len(row) == 0 || slashDate.MatchString(row[0].S) {
		return cols, false
	}
	for _, w := range row {
		if amountOnly.MatchString(w.S) {
			return cols, false
		}
	}
	for _, w := range row {
		switch {
		case creditLabel.MatchString(w.S) && math.IsNaN(cols.credit):
			cols.credit = w.Center()
		case debitLabel.MatchString(w.S) && math.IsNaN(cols.debit):
			cols.debit = w.Center()
		case balanceLabel.MatchString(w.S) && math.IsNaN(cols.balance):
			cols.balance = w.Center()
		}
	}
	return cols, !math.IsNaN(cols.credit) && !math.IsNaN(cols.debit)
}

func (s *ColumnPositionStrategy) Extract(doc *models.Document) Result {
	if !doc.HasGeometry() {
		return decline(s.Name(), "document has no word positions")
	}
	tol := s.Tolerance
	if tol == 0 {
		tol = 45
	}
	dates := newDateContext(doc)

	var (
		txns      []models.Transaction
		cols      columns
		found     bool
		ambiguous int
	)
	for _, page := range doc.Pages {
		for _, row := range extractor.RowsOf(page.Words) {
			if c, ok := findColumns(row); ok {
				cols, found = c, true
				continue
			}
			if !found {
				continue
			}
			date, rest, ok := leadingDate(row, dates)
			if !ok {
				continue
			}

			var (
				desc            []string
				credits, debits []float64
			)
			for _, w := range rest {
				if !amountOnly.MatchString(w.S) {
					if len(credits) == 0 && len(debits) == 0 {
						desc = append(desc, w.S)
					}
					continue
				}
				c := w.Center()
				dCredit := math.Abs(c - cols.credit)
				dDebit := math.Abs(c - cols.debit)
				if !math.IsNaN(cols.balance) {
					if dBal := math.Abs(c - cols.balance); dBal <= tol && dBal < dCredit && dBal < dDebit {
						continue
					}
				}
				switch {
				case dCredit <= tol && dCredit < dDebit:
					credits = append(credits, normalize.ParseAmount(w.S))
				case dDebit <= tol && dDebit <= dCredit:
					debits = append(debits, normalize.ParseAmount(w.S))
				}
			}

			switch {
			case len(credits) > 0 && len(debits) == 0:
				txns = append(txns, newTransaction(date, strings.Join(desc, " "), credits[0], SectionCredit))
			case len(debits) > 0 && len(credits) == 0:
				txns = append(txns, newTransaction(date, strings.Join(desc, " "), debits[0], SectionDebit))
			default:
				ambiguous++
			}
		}
	}

	if !found {
		return decline(s.Name(), "no header row with both credit and debit columns")
	}
	r := requireMin(s.Name(), txns, 2)
	if !r.Success && ambiguous > 0 {
		r.Reason += fmt.Sprintf("; %d rows discarded as ambiguous", ambiguous)
	}
	return r
}

// leadingDate reads a date from the first word ("12/01") or the first two
// ("Dec 1").
func leadingDate(row []models.Word, dates dateContext) (string, []models.Word, bool) {
	if len(row) == 0 {
		return "", nil, false
	}
	if slashDate.MatchString(row[0].S) {
		if d, ok := dates.parse(row[0].S); ok {
			return d, row[1:], true
		}
	}
	if len(row) > 1 && monthWord.MatchString(row[0].S) && dayWord.MatchString(row[1].S) {
		if d, ok := dates.parse(row[0].S + " " + strings.TrimSuffix(row[1].S, ",")); ok {
			return d, row[2:], true
		}
	}
	return "", nil, false
}
