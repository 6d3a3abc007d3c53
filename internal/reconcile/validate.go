package reconcile

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-extractor/internal/logger"
	"github.com/insightdelivered/statement-extractor/internal/models"
)

const (
	// Tolerance is how far the calculated ending balance may drift from the
	// stated one before the beginning-balance sign is questioned.
	Tolerance = 100.0

	// discrepancyFloor is the smallest difference reported as a warning.
	discrepancyFloor = 1.0
)

// Warning types.
const (
	WarnEndingSignMismatch = "ending_balance_sign_mismatch"
	WarnBalanceDiscrepancy = "balance_discrepancy"
	WarnBeginningSignFixed = "beginning_balance_sign_corrected"
)

// Validate checks summary against txns and returns a corrected copy of
// the summary with the warnings it raised. The input is not modified.
//
// The only correction made is a sign flip of a negative beginning
// balance, and only when the balances do not already reconcile within
// Tolerance and flipping brings them closer. This repairs balances that
// lost their polarity markup during extraction.
func Validate(ctx context.Context, summary *models.StatementSummary, txns []models.Transaction) (*models.StatementSummary, []models.Warning) {
	log := logger.FromContext(ctx)
	out := summary.Clone()
	if out.Empty() {
		return out, nil
	}
	var warnings []models.Warning

	if out.EndingBalance != nil {
		if last, ok := lastRunningBalance(txns); ok && signOf(last) != signOf(*out.EndingBalance) && signOf(last) != 0 && signOf(*out.EndingBalance) != 0 {
			msg := fmt.Sprintf("stated ending balance %.2f and last running balance %.2f differ in sign", *out.EndingBalance, last)
			log.Warn().Float64("stated", *out.EndingBalance).Float64("running", last).Msg("ending balance sign mismatch")
			warnings = append(warnings, models.Warning{Type: WarnEndingSignMismatch, Severity: "warning", Message: msg})
		}
	}

	if out.BeginningBalance == nil || out.EndingBalance == nil {
		return out, warnings
	}

	net := netChange(txns)
	beginning := decimal.NewFromFloat(*out.BeginningBalance)
	ending := decimal.NewFromFloat(*out.EndingBalance)
	diff := beginning.Add(net).Sub(ending).Abs()

	if diff.GreaterThan(decimal.NewFromFloat(Tolerance)) && beginning.IsNegative() {
		flipped := beginning.Neg()
		flippedDiff := flipped.Add(net).Sub(ending).Abs()
		if flippedDiff.LessThan(diff) {
			log.Info().
				Str("from", beginning.StringFixed(2)).
				Str("to", flipped.StringFixed(2)).
				Msg("beginning balance sign corrected")
			warnings = append(warnings, models.Warning{
				Type:     WarnBeginningSignFixed,
				Severity: "info",
				Message:  fmt.Sprintf("beginning balance sign corrected from %s to %s", beginning.StringFixed(2), flipped.StringFixed(2)),
			})
			out.BeginningBalance = models.Float(flipped.InexactFloat64())
			diff = flippedDiff
		}
	}

	if diff.GreaterThan(decimal.NewFromFloat(discrepancyFloor)) {
		severity := "warning"
		if diff.GreaterThan(decimal.NewFromFloat(Tolerance)) {
			severity = "error"
		}
		d := diff.Round(2).InexactFloat64()
		log.Warn().Float64("difference", d).Msg("balance discrepancy")
		warnings = append(warnings, models.Warning{
			Type:       WarnBalanceDiscrepancy,
			Severity:   severity,
			Message:    fmt.Sprintf("beginning balance plus transactions differs from the stated ending balance by %.2f", d),
			Difference: models.Float(d),
		})
	}
	return out, warnings
}

// netChange is the sum of credits minus the sum of debits.
func netChange(txns []models.Transaction) decimal.Decimal {
	net := decimal.Zero
	for _, t := range txns {
		amt := decimal.NewFromFloat(t.Amount)
		if t.Type == models.Credit {
			net = net.Add(amt)
		} else {
			net = net.Sub(amt)
		}
	}
	return net
}

func lastRunningBalance(txns []models.Transaction) (float64, bool) {
	for i := len(txns) - 1; i >= 0; i-- {
		if txns[i].EndingBalance != nil {
			return *txns[i].EndingBalance, true
		}
	}
	return 0, false
}

func signOf(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
