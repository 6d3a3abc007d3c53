package mca

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// Payment frequencies.
const (
	Daily         = "daily"
	EveryOtherDay = "every_other_day"
	TwiceWeekly   = "twice_weekly"
	Weekly        = "weekly"
	BiWeekly      = "bi_weekly"
	Monthly       = "monthly"
	Irregular     = "irregular"
	SinglePayment = "single_payment"
	Unknown       = "unknown"
)

var frequencyLabels = map[string]string{
	Daily:         "Daily",
	EveryOtherDay: "Every Other Day",
	TwiceWeekly:   "Twice Weekly",
	Weekly:        "Weekly",
	BiWeekly:      "Bi-Weekly",
	Monthly:       "Monthly",
	Irregular:     "Irregular",
	SinglePayment: "Single Payment",
	Unknown:       "Unknown",
}

// Label returns the display name of a frequency.
func Label(frequency string) string {
	if l, ok := frequencyLabels[frequency]; ok {
		return l
	}
	return frequency
}

// Frequency classifies the average gap in days between payments.
func Frequency(avgInterval float64) string {
	switch {
	case avgInterval <= 1.5:
		return Daily
	case avgInterval <= 3:
		return EveryOtherDay
	case avgInterval <= 5.5:
		return TwiceWeekly
	case avgInterval <= 8:
		return Weekly
	case avgInterval <= 16:
		return BiWeekly
	case avgInterval <= 35:
		return Monthly
	}
	return Irregular
}

type lenderPayments struct {
	lender   Lender
	payments []models.Payment
	total    decimal.Decimal
}

// Classify tags debits paid to known lenders and summarizes each
// lender's payments. It returns a new slice; txns is not modified.
func Classify(txns []models.Transaction, table *LenderTable) ([]models.Transaction, models.MCAAnalysis) {
	out := make([]models.Transaction, len(txns))
	copy(out, txns)

	byLender := map[string]*lenderPayments{}
	var order []string
	for i := range out {
		t := &out[i]
		if t.Type != models.Debit {
			continue
		}
		l, ok := table.Match(t.Description)
		if !ok {
			continue
		}
		lp, ok := byLender[l.ID]
		if !ok {
			lp = &lenderPayments{lender: l, total: decimal.Zero}
			byLender[l.ID] = lp
			order = append(order, l.ID)
		}
		lp.payments = append(lp.payments, models.Payment{Date: t.Date, Amount: t.Amount, Description: t.Description})
		lp.total = lp.total.Add(decimal.NewFromFloat(t.Amount))
		t.IsRecurringPayment = true
		t.RecurringLender = l.Name
	}

	analysis := models.MCAAnalysis{Lenders: []models.LenderSummary{}}
	total := decimal.Zero
	for _, id := range order {
		lp := byLender[id]
		analysis.Lenders = append(analysis.Lenders, lp.summary())
		analysis.TotalPaymentCount += len(lp.payments)
		total = total.Add(lp.total)
	}
	analysis.TotalLenderCount = len(analysis.Lenders)
	analysis.TotalAmount = total.Round(2).InexactFloat64()

	sort.SliceStable(analysis.Lenders, func(i, j int) bool {
		return analysis.Lenders[i].TotalAmount > analysis.Lenders[j].TotalAmount
	})
	return out, analysis
}

func (lp *lenderPayments) summary() models.LenderSummary {
	payments := lp.payments
	sort.SliceStable(payments, func(i, j int) bool { return payments[i].Date < payments[j].Date })

	count := len(payments)
	s := models.LenderSummary{
		LenderID:       lp.lender.ID,
		LenderName:     lp.lender.Name,
		PaymentCount:   count,
		TotalAmount:    lp.total.Round(2).InexactFloat64(),
		AveragePayment: lp.total.Div(decimal.NewFromInt(int64(count))).Round(2).InexactFloat64(),
		UniqueAmounts:  uniqueAmounts(payments),
		Frequency:      cadence(payments),
	}
	s.FrequencyLabel = Label(s.Frequency)
	first, last := payments[0], payments[count-1]
	s.FirstPayment, s.LastPayment = &first, &last
	return s
}

func uniqueAmounts(payments []models.Payment) []float64 {
	seen := map[string]bool{}
	var amounts []float64
	for _, p := range payments {
		d := decimal.NewFromFloat(p.Amount).Round(2)
		if key := d.String(); !seen[key] {
			seen[key] = true
			amounts = append(amounts, d.InexactFloat64())
		}
	}
	sort.Float64s(amounts)
	return amounts
}

// cadence averages the gaps between dated payments. Payments with
// unreadable dates are left out; fewer than two dates is Unknown.
func cadence(payments []models.Payment) string {
	if len(payments) == 1 {
		return SinglePayment
	}
	var dates []time.Time
	for _, p := range payments {
		if d, err := time.Parse("2006-01-02", p.Date); err == nil {
			dates = append(dates, d)
		}
	}
	if len(dates) < 2 {
		return Unknown
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	span := dates[len(dates)-1].Sub(dates[0]).Hours() / 24
	return Frequency(span / float64(len(dates)-1))
}
