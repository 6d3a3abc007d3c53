package parser

import (
	"context"

	"github.com/insightdelivered/statement-extractor/internal/logger"
	"github.com/insightdelivered/statement-extractor/internal/models"
)

// Orchestrator runs strategies in priority order and stops at the first
// success.
type Orchestrator struct {
	strategies []Strategy
}

// NewOrchestrator returns an orchestrator over strategies, tried in the
// order given.
func NewOrchestrator(strategies ...Strategy) *Orchestrator {
	return &Orchestrator{strategies: strategies}
}

// DefaultStrategies returns the six strategies in priority order: section
// markers, section headers, column positions, table grids, then the TD
// Bank and Truist layouts.
func DefaultStrategies(kw Keywords) []Strategy {
	td, truist := TDBankLayout(), TruistLayout()
	return []Strategy{
		&SectionMarkerStrategy{Keywords: kw},
		&SectionHeaderStrategy{Keywords: kw},
		&ColumnPositionStrategy{Tolerance: 45},
		&TableStrategy{},
		&LayoutStrategy{Layout: td},
		&LayoutStrategy{Layout: truist},
	}
}

// Run returns the first successful result, or a failed Result when every
// strategy declines. attempts records each strategy tried, in order.
func (o *Orchestrator) Run(ctx context.Context, doc *models.Document) (Result, []models.StrategyAttempt) {
	log := logger.FromContext(ctx)
	attempts := make([]models.StrategyAttempt, 0, len(o.strategies))

	for _, s := range o.strategies {
		r := s.Extract(doc)
		attempts = append(attempts, models.StrategyAttempt{
			Strategy:     s.Name(),
			Success:      r.Success,
			Transactions: len(r.Transactions),
			Reason:       r.Reason,
		})
		if r.Success {
			log.Info().
				Str("strategy", s.Name()).
				Int("transactions", len(r.Transactions)).
				Msg("Deterministic strategy succeeded")
			r.Label = s.Name()
			return r, attempts
		}
		log.Debug().
			Str("strategy", s.Name()).
			Str("reason", r.Reason).
			Msg("Strategy declined")
	}
	return Result{Reason: "all strategies declined"}, attempts
}
