package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/insightdelivered/statement-extractor/internal/models"
	"github.com/insightdelivered/statement-extractor/internal/normalize"
)

// SectionMarkerStrategy reads statements whose text layer carries paired
// section tags, one per line:
//
//	*start*deposits and other credits
//	12/01 ACH CREDIT PAYROLL 1,250.00
//	*end*deposits and other credits
//
// Some renderers glue the first transaction after a section onto the end
// tag and drop its month, leaving only the day:
//
//	*end*deposits and other credits05 Wire transfer in 500.00
//
// That transaction belongs to the section being closed and is dated in
// the statement's dominant month. Check sections may list bare
// "checkNumber date amount" groups instead of described lines.
type SectionMarkerStrategy struct {
	Keywords Keywords
}

func (s *SectionMarkerStrategy) Name() string { return "section_markers" }

var (
	markerStart  = regexp.MustCompile(`(?i)^\*start\*\s*(.+?)\s*$`)
	markerEnd    = regexp.MustCompile(`(?i)^\*end\*\s*(.+?)\s*$`)
	markerMerged = regexp.MustCompile(`(?i)^\*end\*\s*([a-z][a-z &/,'-]*?[a-z])\s*(\d{1,2})\s+(.+?)\s+(` + amountExpr + `)$`)

	datedLine   = regexp.MustCompile(`^(\d{1,2}/\d{1,2}(?:/\d{2,4})?)\s+(.+?)\s+(` + amountExpr + `)$`)
	checkLedger = regexp.MustCompile(`(?P<number>\d{3,6})\*?\s+(?P<date>\d{1,2}/\d{1,2}(?:/\d{2,4})?)\s+(?P<amount>` + amountExpr + `)`)
	// dateFirstCheck is the "date checkNumber amount" order.
	dateFirstCheck = regexp.MustCompile(`(?P<date>\d{1,2}/\d{1,2}(?:/\d{2,4})?)\s+(?P<number>\d{3,6})\*?\s+(?P<amount>` + amountExpr + `)`)
)

func (s *SectionMarkerStrategy) Extract(doc *models.Document) Result {
	dates := newDateContext(doc)
	var (
		txns    []models.Transaction
		markers int
		section string
		kind    SectionKind
	)

	for _, page := range doc.Pages {
		for _, raw := range pageLines(doc, page) {
			line := strings.TrimSpace(raw)
			if line == "" {
				continue
			}

			if m := markerStart.FindStringSubmatch(line); m != nil {
				markers++
				section = strings.ToLower(m[1])
				kind = s.Keywords.SectionKind(section)
				continue
			}
			if m := markerMerged.FindStringSubmatch(line); m != nil {
				markers++
				closing := s.Keywords.SectionKind(m[1])
				day, _ := strconv.Atoi(m[2])
				if date, ok := dates.day(day); ok && isTransactionKind(closing) {
					txns = append(txns, newTransaction(date, m[3], normalize.ParseAmount(m[4]), closing))
				}
				section, kind = "", SectionUnknown
				continue
			}
			if markerEnd.MatchString(line) {
				markers++
				section, kind = "", SectionUnknown
				continue
			}

			if !isTransactionKind(kind) {
				continue
			}
			if strings.Contains(section, "check") {
				if checks := parseCheckLedger(line, dates); len(checks) > 0 {
					txns = append(txns, checks...)
					continue
				}
			}
			if m := datedLine.FindStringSubmatch(line); m != nil {
				if date, ok := dates.parse(m[1]); ok {
					txns = append(txns, newTransaction(date, m[2], normalize.ParseAmount(m[3]), kind))
				}
			}
		}
	}

	if markers == 0 {
		return decline(s.Name(), "no section markers found")
	}
	return requireMin(s.Name(), txns, 2)
}

// parseCheckLedger reads a line made up entirely of "checkNumber date
// amount" or "date checkNumber amount" groups. Anything else on the line
// means it is not a ledger row.
func parseCheckLedger(line string, dates dateContext) []models.Transaction {
	for _, re := range []*regexp.Regexp{checkLedger, dateFirstCheck} {
		if txns := readLedger(re, line, dates); len(txns) > 0 {
			return txns
		}
	}
	return nil
}

func readLedger(re *regexp.Regexp, line string, dates dateContext) []models.Transaction {
	var txns []models.Transaction
	for _, g := range ledgerGroups(re, line) {
		date, ok := dates.parse(g["date"])
		if !ok {
			return nil
		}
		txns = append(txns, newTransaction(date, "Check #"+g["number"], normalize.ParseAmount(g["amount"]), SectionDebit))
	}
	return txns
}

func isTransactionKind(k SectionKind) bool {
	return k == SectionCredit || k == SectionDebit
}
