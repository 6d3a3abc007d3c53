// Package reconcile checks a statement's stated balances against the
// extracted transactions and fills in what the statement leaves out.
package reconcile

import (
	"regexp"
	"time"

	"github.com/insightdelivered/statement-extractor/internal/models"
	"github.com/insightdelivered/statement-extractor/internal/normalize"
)

// balanceValue is an amount with optional sign markup: parentheses, a
// minus sign or a CR/DR suffix.
const balanceValue = `(\(?-?\$?\s?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}\)?-?(?:\s*(?:CR|DR)\b)?)`

var (
	beginningLabel = regexp.MustCompile(`(?i)\b(?:beginning|opening|previous|starting)\s+balance\b[^\n]{0,60}?` + balanceValue)
	endingLabel    = regexp.MustCompile(`(?i)\b(?:ending|closing|new|current)\s+balance\b[^\n]{0,60}?` + balanceValue)
	averageLabel   = regexp.MustCompile(`(?i)\baverage\s+(?:daily|ledger|collected)\s+balance\b[^\n]{0,60}?` + balanceValue)
)

// ScanSummary reads the beginning, ending and average daily balances
// from statement text by their labels. The first occurrence of each label
// wins, since account summaries sit at the top of the first page. It
// returns nil when no label is found.
func ScanSummary(text string) *models.StatementSummary {
	s := &models.StatementSummary{
		BeginningBalance:    scanBalance(beginningLabel, text),
		EndingBalance:       scanBalance(endingLabel, text),
		AverageDailyBalance: scanBalance(averageLabel, text),
	}
	if s.Empty() {
		return nil
	}
	return s
}

func scanBalance(re *regexp.Regexp, text string) *float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, ok := normalize.ParseSignedBalance(m[1])
	if !ok {
		return nil
	}
	return models.Float(v)
}

// Period is the date range a statement covers.
type Period struct {
	Start, End time.Time
}

// IsZero reports whether the period is unknown.
func (p Period) IsZero() bool {
	return p.Start.IsZero() || p.End.IsZero()
}

const periodDate = `(\d{1,2}/\d{1,2}/\d{2,4}|[A-Za-z]{3,9}\.?\s+\d{1,2},?\s+\d{4})`

var periodRange = regexp.MustCompile(`(?i)\b(?:statement\s+period|period|for|from)\b\s*:?\s*` + periodDate + `\s*(?:-|–|to|through|thru)\s*` + periodDate)

// ScanPeriod finds a "12/01/2024 - 12/31/2024" or "December 1, 2024
// through December 31, 2024" statement period.
func ScanPeriod(text string) (Period, bool) {
	for _, m := range periodRange.FindAllStringSubmatch(text, -1) {
		start, ok1 := parseDay(m[1])
		end, ok2 := parseDay(m[2])
		if ok1 && ok2 && !end.Before(start) {
			return Period{Start: start, End: end}, true
		}
	}
	return Period{}, false
}

func parseDay(token string) (time.Time, bool) {
	iso, ok := normalize.ParseDate(token, 0)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
