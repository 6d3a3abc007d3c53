// Package parser holds the deterministic transaction extraction
// strategies. Each strategy is a narrow recognizer for one family of
// statement layouts: it either recognizes the document and returns every
// transaction, or declines with a reason. None of them guess.
package parser

import (
	"fmt"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// Strategy is a deterministic recognizer.
type Strategy interface {
	// Name is the label reported when the strategy succeeds.
	Name() string
	// Extract reads the document. It must not modify doc.
	Extract(doc *models.Document) Result
}

// Result is the outcome of one strategy run.
type Result struct {
	Transactions []models.Transaction
	Success      bool
	Label        string
	// Bank is set by bank-specific strategies.
	Bank string
	// Reason explains a decline.
	Reason string
}

func succeed(label string, txns []models.Transaction) Result {
	return Result{Transactions: txns, Success: true, Label: label}
}

func decline(label, format string, args ...interface{}) Result {
	return Result{Label: label, Reason: fmt.Sprintf(format, args...)}
}

// requireMin turns a candidate list into a result: success needs at least
// min transactions.
func requireMin(label string, txns []models.Transaction, min int) Result {
	if len(txns) < min {
		r := decline(label, "found %d transactions, need at least %d", len(txns), min)
		r.Transactions = txns
		return r
	}
	return succeed(label, txns)
}

// bankFingerprints identify the bank that produced a statement.
var bankFingerprints = []struct {
	bank    string
	needles []string
}{
	{"TD Bank", []string{"TD Bank", "tdbank.com", "America's Most Convenient Bank"}},
	{"Truist", []string{"Truist", "truist.com", "BB&T", "SunTrust"}},
	{"Bank of America", []string{"Bank of America", "bankofamerica.com"}},
	{"Chase", []string{"JPMorgan Chase", "chase.com"}},
	{"Wells Fargo", []string{"Wells Fargo", "wellsfargo.com"}},
	{"PNC", []string{"PNC Bank", "pnc.com"}},
	{"Citizens Bank", []string{"Citizens Bank", "citizensbank.com"}},
	{"Capital One", []string{"Capital One", "capitalone.com"}},
}

// DetectBank names the bank from the first page of the document, or
// returns "" when no fingerprint matches.
func DetectBank(doc *models.Document) string {
	if len(doc.Pages) == 0 {
		return ""
	}
	first := doc.Pages[0].Text
	for _, fp := range bankFingerprints {
		if containsAny(first, fp.needles) {
			return fp.bank
		}
	}
	return ""
}
