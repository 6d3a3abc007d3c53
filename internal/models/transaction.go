package models

// TxnType is the direction of a transaction. Amounts are always
// non-negative; the sign lives here.
type TxnType string

const (
	Credit TxnType = "credit"
	Debit  TxnType = "debit"
)

// Transaction represents a single normalized bank statement transaction.
type Transaction struct {
	Date               string   `json:"date"` // YYYY-MM-DD
	Description        string   `json:"description"`
	Amount             float64  `json:"amount"`
	Type               TxnType  `json:"type"`
	EndingBalance      *float64 `json:"ending_balance,omitempty"`
	IsRecurringPayment bool     `json:"is_recurring_payment,omitempty"`
	RecurringLender    string   `json:"recurring_lender,omitempty"`
	CorrectedByRule    bool     `json:"corrected_by_rule,omitempty"`
}

// StatementSummary holds the balances reported by the statement itself.
type StatementSummary struct {
	BeginningBalance    *float64 `json:"beginning_balance,omitempty"`
	EndingBalance       *float64 `json:"ending_balance,omitempty"`
	AverageDailyBalance *float64 `json:"average_daily_balance,omitempty"`
}

// Empty reports whether no balance was found.
func (s *StatementSummary) Empty() bool {
	return s == nil || (s.BeginningBalance == nil && s.EndingBalance == nil && s.AverageDailyBalance == nil)
}

// Clone returns a deep copy so passes can work on their own value.
func (s *StatementSummary) Clone() *StatementSummary {
	if s == nil {
		return nil
	}
	out := &StatementSummary{}
	if s.BeginningBalance != nil {
		out.BeginningBalance = Float(*s.BeginningBalance)
	}
	if s.EndingBalance != nil {
		out.EndingBalance = Float(*s.EndingBalance)
	}
	if s.AverageDailyBalance != nil {
		out.AverageDailyBalance = Float(*s.AverageDailyBalance)
	}
	return out
}

// CorrectionRule is a user-supplied override learned from past corrections.
type CorrectionRule struct {
	DescriptionPattern string  `json:"description_pattern"`
	CorrectType        TxnType `json:"correct_type"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
