package parser

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-extractor/internal/models"
	"github.com/insightdelivered/statement-extractor/internal/normalize"
)

// LayoutSection is one section header of a bank layout.
type LayoutSection struct {
	Header string
	Kind   SectionKind
	Checks bool
}

// Layout describes one bank's statement format. Line and CheckGroup use
// named groups: date, desc and amount; CheckGroup also has number.
type Layout struct {
	Bank         string
	Label        string
	Fingerprints []string
	Sections     []LayoutSection
	Line         *regexp.Regexp
	// CheckGroup matches one entry of a check ledger row. A row may pack
	// several entries; it is only read if the entries cover the whole line.
	CheckGroup *regexp.Regexp
	// TrailingMinusDebit makes "75.25-" a debit in any section. Unsuffixed
	// amounts take the section's kind.
	TrailingMinusDebit bool
	// Continuation matches the raw (untrimmed) line that continues the
	// previous description.
	Continuation *regexp.Regexp
}

// LayoutStrategy applies a Layout, but only to statements whose first
// page carries one of its fingerprints.
type LayoutStrategy struct {
	Layout Layout
}

func (s *LayoutStrategy) Name() string { return s.Layout.Label }

// TDBankLayout reads TD Bank statements: MM/DD dates, one section per
// transaction family and "date check# amount" ledger rows under Checks
// Paid.
func TDBankLayout() Layout {
	return Layout{
		Bank:         "TD Bank",
		Label:        "td_bank",
		Fingerprints: []string{"TD Bank", "tdbank.com", "America's Most Convenient Bank"},
		Sections: []LayoutSection{
			{Header: "Deposits", Kind: SectionCredit},
			{Header: "Electronic Deposits", Kind: SectionCredit},
			{Header: "Other Credits", Kind: SectionCredit},
			{Header: "Checks Paid", Kind: SectionDebit, Checks: true},
			{Header: "Electronic Payments", Kind: SectionDebit},
			{Header: "Other Withdrawals", Kind: SectionDebit},
			{Header: "Service Charges", Kind: SectionDebit},
			{Header: "Daily Balance Summary", Kind: SectionNonTransaction},
			{Header: "Account Messages", Kind: SectionNonTransaction},
			{Header: "Account Summary", Kind: SectionNonTransaction},
		},
		Line:         regexp.MustCompile(`^(?P<date>\d{2}/\d{2})\s+(?P<desc>.+?)\s+(?P<amount>[\d,]+\.\d{2})$`),
		CheckGroup:   regexp.MustCompile(`(?P<date>\d{2}/\d{2})\s+(?P<number>\d+)\*?\s+(?P<amount>[\d,]+\.\d{2})`),
		Continuation: regexp.MustCompile(`^\s{6,}(\S.*)$`),
	}
}

// TruistLayout reads Truist statements: "Dec 1" / "Dec12" dates, a
// trailing minus on debits, and check ledger rows packing several
// "check# date reference amount" entries side by side.
func TruistLayout() Layout {
	const monthDay = `[A-Za-z]{3}\s*\d{1,2}`
	return Layout{
		Bank:         "Truist",
		Label:        "truist",
		Fingerprints: []string{"Truist", "truist.com", "BB&T", "SunTrust"},
		Sections: []LayoutSection{
			{Header: "Deposits, credits and interest", Kind: SectionCredit},
			{Header: "Checks", Kind: SectionDebit, Checks: true},
			{Header: "Other withdrawals, debits and service charges", Kind: SectionDebit},
			{Header: "Daily balance summary", Kind: SectionNonTransaction},
			{Header: "Account summary", Kind: SectionNonTransaction},
			{Header: "Questions, comments or errors", Kind: SectionNonTransaction},
		},
		Line:               regexp.MustCompile(`^(?P<date>` + monthDay + `)\s+(?P<desc>.+?)\s+(?P<amount>[\d,]+\.\d{2}-?)$`),
		CheckGroup:         regexp.MustCompile(`(?P<number>\d{3,6})\*?\s+(?P<date>` + monthDay + `)\s+(?P<ref>\d{6,12})\s+(?P<amount>[\d,]+\.\d{2})`),
		TrailingMinusDebit: true,
	}
}

var anyAmount = regexp.MustCompile(amountExpr)

// section returns the layout section that line opens. The header must
// start the line and nothing after it may be an amount, which keeps
// summary rows ("Electronic Deposits 5,000.00") out.
func (l Layout) section(line string) (LayoutSection, bool) {
	norm := normalizeHeader(line)
	for _, sec := range l.Sections {
		h := strings.ToLower(sec.Header)
		if !strings.HasPrefix(norm, h) {
			continue
		}
		rest := norm[len(h):]
		if rest != "" && rest[0] != ' ' {
			continue
		}
		if anyAmount.MatchString(rest) {
			continue
		}
		return sec, true
	}
	return LayoutSection{}, false
}

func (s *LayoutStrategy) Extract(doc *models.Document) Result {
	l := s.Layout
	if len(doc.Pages) == 0 || !containsAny(doc.Pages[0].Text, l.Fingerprints) {
		return decline(l.Label, "%s fingerprint not found on first page", l.Bank)
	}
	dates := newDateContext(doc)

	var (
		txns    []models.Transaction
		current LayoutSection
		inside  bool
		// last described transaction, for continuation lines
		last = -1
	)
	for _, page := range doc.Pages {
		for _, raw := range pageLines(doc, page) {
			line := strings.TrimSpace(raw)
			if line == "" {
				continue
			}
			if sec, ok := l.section(line); ok {
				current, inside, last = sec, true, -1
				continue
			}
			if !inside || !isTransactionKind(current.Kind) {
				continue
			}

			if current.Checks && l.CheckGroup != nil {
				if groups := ledgerGroups(l.CheckGroup, line); groups != nil {
					for _, g := range groups {
						date, ok := dates.parse(g["date"])
						if !ok {
							continue
						}
						txns = append(txns, newTransaction(date, "Check #"+g["number"], normalize.ParseAmount(g["amount"]), SectionDebit))
					}
					last = -1
					continue
				}
			}

			if m := namedMatch(l.Line, line); m != nil {
				date, ok := dates.parse(m["date"])
				if !ok {
					continue
				}
				kind := current.Kind
				if l.TrailingMinusDebit && strings.HasSuffix(m["amount"], "-") {
					kind = SectionDebit
				}
				txns = append(txns, newTransaction(date, m["desc"], normalize.ParseAmount(m["amount"]), kind))
				last = len(txns) - 1
				continue
			}

			if l.Continuation != nil && last >= 0 {
				if m := l.Continuation.FindStringSubmatch(raw); m != nil && !anyAmount.MatchString(m[1]) {
					txns[last].Description = cleanDescription(txns[last].Description + " " + m[1])
				}
			}
		}
	}

	r := requireMin(l.Label, txns, 2)
	r.Bank = l.Bank
	return r
}

func namedMatch(re *regexp.Regexp, s string) map[string]string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if name != "" {
			out[name] = m[i]
		}
	}
	return out
}

// ledgerGroups returns every match of re in line, or nil unless the
// matches account for the whole line.
func ledgerGroups(re *regexp.Regexp, line string) []map[string]string {
	locs := re.FindAllStringSubmatchIndex(line, -1)
	if len(locs) == 0 {
		return nil
	}
	prev := 0
	for _, loc := range locs {
		if strings.TrimSpace(line[prev:loc[0]]) != "" {
			return nil
		}
		prev = loc[1]
	}
	if strings.TrimSpace(line[prev:]) != "" {
		return nil
	}

	names := re.SubexpNames()
	groups := make([]map[string]string, 0, len(locs))
	for _, loc := range locs {
		g := make(map[string]string, len(names))
		for i, name := range names {
			if name != "" && loc[2*i] >= 0 {
				g[name] = line[loc[2*i]:loc[2*i+1]]
			}
		}
		groups = append(groups, g)
	}
	return groups
}
