package reconcile

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// AverageDailyBalance replays txns day by day from beginning and averages
// the end-of-day balances. Every calendar day counts, including days
// without activity, from the earlier of the period start and the first
// transaction to the later of the period end and the last transaction.
// ok is false when no transaction has a usable date and period is zero.
func AverageDailyBalance(beginning float64, txns []models.Transaction, period Period) (float64, bool) {
	daily := map[time.Time]decimal.Decimal{}
	var first, last time.Time
	for _, t := range txns {
		day, err := time.Parse("2006-01-02", t.Date)
		if err != nil {
			continue
		}
		amt := decimal.NewFromFloat(t.Amount)
		if t.Type != models.Credit {
			amt = amt.Neg()
		}
		daily[day] = daily[day].Add(amt)
		if first.IsZero() || day.Before(first) {
			first = day
		}
		if last.IsZero() || day.After(last) {
			last = day
		}
	}
	if !period.IsZero() {
		if first.IsZero() || period.Start.Before(first) {
			first = period.Start
		}
		if last.IsZero() || period.End.After(last) {
			last = period.End
		}
	}
	if first.IsZero() {
		return 0, false
	}

	days := make([]time.Time, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	balance := decimal.NewFromFloat(beginning)
	total := decimal.Zero
	n := 0
	next := 0
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		for next < len(days) && !days[next].After(d) {
			balance = balance.Add(daily[days[next]])
			next++
		}
		total = total.Add(balance)
		n++
	}
	return total.Div(decimal.NewFromInt(int64(n))).Round(2).InexactFloat64(), true
}
