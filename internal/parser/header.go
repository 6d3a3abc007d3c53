package parser

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-extractor/internal/models"
	"github.com/insightdelivered/statement-extractor/internal/normalize"
)

// SectionHeaderStrategy reads statements that introduce each block of
// transactions with a plain full-line header ("DEPOSITS", "Checks Paid",
// "Daily Balance Summary").
//
// Continuation pages of some banks print several section names as a small
// table of contents before their first transaction. On each page only the
// first credit or debit header seen before the first transaction counts;
// once a transaction has been read, every header is a real transition.
//
// Check sections may pack several "date checkNumber amount" entries on one
// line. Any other dated line carrying more than one amount cannot be split
// safely, and the strategy declines rather than drop it.
type SectionHeaderStrategy struct {
	Keywords Keywords
}

func (s *SectionHeaderStrategy) Name() string { return "section_headers" }

// headerLine is "date description amount [balance]".
var headerLine = regexp.MustCompile(`^(\d{1,2}/\d{1,2}(?:/\d{2,4})?)\s+(.+?)\s+(` + amountExpr + `)(?:\s+(` + amountExpr + `))?$`)

func (s *SectionHeaderStrategy) Extract(doc *models.Document) Result {
	dates := newDateContext(doc)
	var (
		txns    []models.Transaction
		headers int
		kind    = SectionUnknown
		checks  bool
	)

	for _, page := range doc.Pages {
		locked := false  // a credit/debit header has been taken on this page
		reading := false // a transaction has been read on this page

		for _, raw := range pageLines(doc, page) {
			line := strings.TrimSpace(raw)
			if line == "" {
				continue
			}

			if k, ok := s.Keywords.HeaderKind(line); ok {
				headers++
				switch {
				case reading:
					kind, checks = k, isCheckHeader(line)
				case locked:
					// table of contents
				case isTransactionKind(k):
					kind, checks, locked = k, isCheckHeader(line), true
				default:
					kind, checks = k, false
				}
				continue
			}

			if !isTransactionKind(kind) {
				continue
			}
			if checks {
				if ledger := parseCheckLedger(line, dates); len(ledger) > 0 {
					txns = append(txns, ledger...)
					reading = true
					continue
				}
			}
			m := headerLine.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			desc := strings.TrimSpace(m[2])
			if leadingAmount.MatchString(desc) {
				// "12/01 1,000.00 12/02 1,250.00" is a daily balance row.
				continue
			}
			if innerAmount.MatchString(desc) {
				return decline(s.Name(), "cannot split packed row %q", line)
			}
			date, ok := dates.parse(m[1])
			if !ok {
				continue
			}
			t := newTransaction(date, desc, normalize.ParseAmount(m[3]), kind)
			if m[4] != "" {
				if bal, ok := normalize.ParseSignedBalance(m[4]); ok {
					t.EndingBalance = models.Float(bal)
				}
			}
			txns = append(txns, t)
			reading = true
		}
	}

	if headers == 0 {
		return decline(s.Name(), "no section headers found")
	}
	return requireMin(s.Name(), txns, 2)
}

func isCheckHeader(line string) bool {
	return strings.Contains(normalizeHeader(line), "check")
}
