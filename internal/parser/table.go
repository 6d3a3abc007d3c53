package parser

import (
	"strings"

	"github.com/insightdelivered/statement-extractor/internal/models"
	"github.com/insightdelivered/statement-extractor/internal/normalize"
)

// TableStrategy reads the table grids recovered by the extractor. Header
// cells are mapped to date, description, debit, credit and balance columns
// by keyword; every row with a date and an amount in the debit or credit
// column becomes a transaction. Tables without both a debit and a credit
// column are skipped.
type TableStrategy struct{}

func (s *TableStrategy) Name() string { return "table_structure" }

// tableColumns holds header indexes; -1 means absent.
type tableColumns struct {
	date, desc, debit, credit, balance int
}

func mapHeader(header []string) tableColumns {
	cols := tableColumns{-1, -1, -1, -1, -1}
	set := func(dst *int, i int) {
		if *dst < 0 {
			*dst = i
		}
	}
	for i, cell := range header {
		h := strings.ToLower(cell)
		switch {
		case strings.Contains(h, "date"):
			set(&cols.date, i)
		case strings.Contains(h, "description") || strings.Contains(h, "transaction") || strings.Contains(h, "details"):
			set(&cols.desc, i)
		case strings.Contains(h, "debit") || strings.Contains(h, "withdrawal") ||
			strings.Contains(h, "paid out") || strings.Contains(h, "money out") ||
			(strings.Contains(h, "payment") && strings.Contains(h, "out")):
			set(&cols.debit, i)
		case strings.Contains(h, "credit") || strings.Contains(h, "deposit") ||
			strings.Contains(h, "paid in") || strings.Contains(h, "money in") ||
			(strings.Contains(h, "payment") && strings.Contains(h, "in")):
			set(&cols.credit, i)
		case strings.Contains(h, "balance"):
			set(&cols.balance, i)
		}
	}
	return cols
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	v := strings.TrimSpace(row[i])
	if v == "-" || strings.EqualFold(v, "none") {
		return ""
	}
	return v
}

func (s *TableStrategy) Extract(doc *models.Document) Result {
	if len(doc.Tables) == 0 {
		return decline(s.Name(), "no table grids in document")
	}
	dates := newDateContext(doc)

	var txns []models.Transaction
	usable := 0
	for _, tbl := range doc.Tables {
		cols := mapHeader(tbl.Header)
		if cols.debit < 0 || cols.credit < 0 {
			continue
		}
		usable++
		for _, row := range tbl.Rows {
			dateText, desc := cell(row, cols.date), cell(row, cols.desc)
			if dateText == "" || desc == "" {
				continue
			}
			date, ok := dates.parse(dateText)
			if !ok {
				continue
			}

			var t models.Transaction
			if v := cell(row, cols.debit); v != "" && amountOnly.MatchString(v) {
				t = newTransaction(date, desc, normalize.ParseAmount(v), SectionDebit)
			} else if v := cell(row, cols.credit); v != "" && amountOnly.MatchString(v) {
				t = newTransaction(date, desc, normalize.ParseAmount(v), SectionCredit)
			} else {
				continue
			}
			if bal, ok := normalize.ParseSignedBalance(cell(row, cols.balance)); ok {
				t.EndingBalance = models.Float(bal)
			}
			txns = append(txns, t)
		}
	}

	if usable == 0 {
		return decline(s.Name(), "no table has both debit and credit columns")
	}
	return requireMin(s.Name(), txns, 1)
}
