package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-extractor/internal/ai"
	"github.com/insightdelivered/statement-extractor/internal/config"
	"github.com/insightdelivered/statement-extractor/internal/models"
)

var perMillion = decimal.NewFromInt(1_000_000)

// Price totals usage across models. Each model's tokens are billed at its
// own rate; a model without a known price costs nothing. Costs are
// rounded to four decimals.
func Price(cfg config.Config, usage map[string]ai.Usage, model string) models.Cost {
	c := models.Cost{Model: model}
	in, out := decimal.Zero, decimal.Zero

	names := make([]string, 0, len(usage))
	for name := range usage {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		u := usage[name]
		c.InputTokens += u.InputTokens
		c.OutputTokens += u.OutputTokens
		p, ok := cfg.PriceFor(name)
		if !ok {
			continue
		}
		in = in.Add(decimal.NewFromInt(int64(u.InputTokens)).Mul(decimal.NewFromFloat(p.Input)).Div(perMillion))
		out = out.Add(decimal.NewFromInt(int64(u.OutputTokens)).Mul(decimal.NewFromFloat(p.Output)).Div(perMillion))
	}
	c.TotalTokens = c.InputTokens + c.OutputTokens
	c.InputCost = in.Round(4).InexactFloat64()
	c.OutputCost = out.Round(4).InexactFloat64()
	c.TotalCost = in.Add(out).Round(4).InexactFloat64()
	return c
}
