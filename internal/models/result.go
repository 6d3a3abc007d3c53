package models

import "github.com/shopspring/decimal"

// Summary holds transaction totals.
type Summary struct {
	CreditCount       int     `json:"credit_count"`
	DebitCount        int     `json:"debit_count"`
	CreditTotal       float64 `json:"credit_total"`
	DebitTotal        float64 `json:"debit_total"`
	NetBalance        float64 `json:"net_balance"`
	TotalTransactions int     `json:"total_transactions"`
}

// Cost is the token usage and price of the AI requests made in a run.
type Cost struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	InputCost    float64 `json:"input_cost"`
	OutputCost   float64 `json:"output_cost"`
	TotalCost    float64 `json:"total_cost"`
	Model        string  `json:"model,omitempty"`
}

// Payment is one recurring-payment debit attributed to a lender.
type Payment struct {
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// LenderSummary describes every payment matched to one lender.
type LenderSummary struct {
	LenderID       string    `json:"lender_id"`
	LenderName     string    `json:"lender_name"`
	PaymentCount   int       `json:"payment_count"`
	TotalAmount    float64   `json:"total_amount"`
	AveragePayment float64   `json:"average_payment"`
	UniqueAmounts  []float64 `json:"unique_amounts"`
	Frequency      string    `json:"frequency"`
	FrequencyLabel string    `json:"frequency_label"`
	FirstPayment   *Payment  `json:"first_payment,omitempty"`
	LastPayment    *Payment  `json:"last_payment,omitempty"`
}

// MCAAnalysis is the recurring-payment classifier output.
type MCAAnalysis struct {
	TotalLenderCount  int             `json:"total_lender_count"`
	TotalPaymentCount int             `json:"total_payment_count"`
	TotalAmount       float64         `json:"total_amount"`
	Lenders           []LenderSummary `json:"lenders"`
}

// Warning is a non-fatal finding from balance reconciliation.
type Warning struct {
	Type       string   `json:"type"`
	Severity   string   `json:"severity"` // error, warning, info
	Message    string   `json:"message"`
	Difference *float64 `json:"difference,omitempty"`
}

// StrategyAttempt records why a deterministic strategy declined.
type StrategyAttempt struct {
	Strategy     string `json:"strategy"`
	Success      bool   `json:"success"`
	Transactions int    `json:"transactions"`
	Reason       string `json:"reason,omitempty"`
}

// Metadata describes how a result was produced.
type Metadata struct {
	RunID               string            `json:"run_id"`
	SourceFile          string            `json:"source_file,omitempty"`
	PageCount           int               `json:"page_count"`
	TextMethod          string            `json:"text_method,omitempty"`
	ExtractionMethod    string            `json:"extraction_method"` // deterministic:<label> or ai
	BankName            string            `json:"bank_name,omitempty"`
	ModelUsed           string            `json:"model_used,omitempty"`
	CharsExtracted      int               `json:"chars_extracted"`
	ChunkCount          int               `json:"chunk_count,omitempty"`
	CorrectionsSupplied int               `json:"corrections_available"`
	CorrectionsApplied  int               `json:"corrections_applied"`
	StrategyAttempts    []StrategyAttempt `json:"strategy_attempts,omitempty"`
}

// Result is the full output of one run.
type Result struct {
	Success            bool              `json:"success"`
	Error              string            `json:"error,omitempty"`
	Summary            Summary           `json:"summary"`
	Cost               Cost              `json:"cost"`
	Transactions       []Transaction     `json:"transactions"`
	MCAAnalysis        MCAAnalysis       `json:"mca_analysis"`
	StatementSummary   *StatementSummary `json:"statement_summary"`
	ValidationWarnings []Warning         `json:"validation_warnings"`
	Metadata           Metadata          `json:"metadata"`
}

// Summarize totals credits and debits. Sums are taken in decimal so long
// statements do not accumulate float error.
func Summarize(txns []Transaction) Summary {
	var s Summary
	credit, debit := decimal.Zero, decimal.Zero
	for _, t := range txns {
		amt := decimal.NewFromFloat(t.Amount)
		switch t.Type {
		case Credit:
			s.CreditCount++
			credit = credit.Add(amt)
		case Debit:
			s.DebitCount++
			debit = debit.Add(amt)
		}
	}
	s.CreditTotal = credit.Round(2).InexactFloat64()
	s.DebitTotal = debit.Round(2).InexactFloat64()
	s.NetBalance = credit.Sub(debit).Round(2).InexactFloat64()
	s.TotalTransactions = len(txns)
	return s
}
