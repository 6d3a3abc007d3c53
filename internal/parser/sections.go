package parser

import (
	"regexp"
	"strings"
)

// SectionKind says what the lines under a section header are.
type SectionKind int

const (
	SectionUnknown SectionKind = iota
	SectionCredit
	SectionDebit
	// SectionNonTransaction covers summaries, daily balance tables and
	// disclosures. Parsing is suppressed until the next header.
	SectionNonTransaction
)

func (k SectionKind) String() string {
	switch k {
	case SectionCredit:
		return "credit"
	case SectionDebit:
		return "debit"
	case SectionNonTransaction:
		return "non-transaction"
	default:
		return "unknown"
	}
}

// Keywords is the section vocabulary shared by the text strategies. It is
// built once and passed to the strategies that need it.
type Keywords struct {
	// Headers maps a normalized full-line header to its kind.
	Headers map[string]SectionKind

	// Fragments classify free-form section names (e.g. from embedded
	// markers) by substring. Non-transaction fragments are checked first,
	// then credit, then debit.
	NonTransaction []string
	Credit         []string
	Debit          []string
}

// DefaultKeywords returns the vocabulary for common US statement layouts.
func DefaultKeywords() Keywords {
	kw := Keywords{
		Headers: map[string]SectionKind{},
		NonTransaction: []string{
			"daily balance", "daily ending balance", "balance summary", "account summary",
			"summary of account", "interest summary", "overdraft", "disclosure",
			"important information", "account messages", "ledger balance",
		},
		Credit: []string{"deposit", "credit", "addition"},
		Debit: []string{
			"withdrawal", "debit", "check", "payment", "fee", "charge",
			"purchase", "subtraction",
		},
	}
	credit := []string{
		"deposits", "deposits and additions", "deposits and other credits",
		"deposits & other credits", "deposits/credits", "deposits & credits",
		"credits", "other credits", "electronic deposits", "electronic credits",
		"additions", "other additions", "atm & debit card deposits",
	}
	debit := []string{
		"withdrawals", "withdrawals and other debits", "withdrawals & other debits",
		"withdrawals/debits", "other withdrawals", "debits", "other debits",
		"electronic payments", "electronic withdrawals", "electronic debits",
		"checks", "checks paid", "checks cleared", "checks & substitute checks",
		"checks and substitute checks", "atm & debit card withdrawals",
		"atm and debit card withdrawals", "card purchases", "debit card purchases",
		"pos purchases", "service charges", "fees", "service fees",
		"subtractions", "other subtractions", "payments",
	}
	nonTxn := []string{
		"daily balance", "daily balances", "daily balance summary", "daily ending balance",
		"daily ledger balances", "balance summary", "account summary", "summary of account",
		"interest summary", "overdraft and returned item fees", "important information",
		"account messages", "disclosures",
	}
	for _, h := range credit {
		kw.Headers[h] = SectionCredit
	}
	for _, h := range debit {
		kw.Headers[h] = SectionDebit
	}
	for _, h := range nonTxn {
		kw.Headers[h] = SectionNonTransaction
	}
	return kw
}

var (
	continuedSuffix = regexp.MustCompile(`\s*[-(]?\s*continued\s*\)?$`)
	spaceRun        = regexp.MustCompile(`\s+`)
)

// normalizeHeader lowercases a line, collapses spaces and drops a trailing
// colon or "(continued)".
func normalizeHeader(line string) string {
	s := strings.ToLower(strings.TrimSpace(line))
	s = continuedSuffix.ReplaceAllString(s, "")
	s = strings.TrimRight(s, ": ")
	return spaceRun.ReplaceAllString(s, " ")
}

// HeaderKind reports whether line is, by itself, a section header.
func (k Keywords) HeaderKind(line string) (SectionKind, bool) {
	kind, ok := k.Headers[normalizeHeader(line)]
	return kind, ok
}

// SectionKind classifies a free-form section name.
func (k Keywords) SectionKind(name string) SectionKind {
	s := strings.ToLower(name)
	for _, groups := range []struct {
		kind  SectionKind
		frags []string
	}{
		{SectionNonTransaction, k.NonTransaction},
		{SectionCredit, k.Credit},
		{SectionDebit, k.Debit},
	} {
		for _, f := range groups.frags {
			if strings.Contains(s, f) {
				return groups.kind
			}
		}
	}
	return SectionUnknown
}
