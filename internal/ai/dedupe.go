package ai

import (
	"math"
	"strings"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// dedupeKey identifies a transaction across overlapping chunks.
type dedupeKey struct {
	date        string
	description string
	cents       int64
}

func keyOf(t models.Transaction) dedupeKey {
	return dedupeKey{
		date:        t.Date,
		description: strings.Join(strings.Fields(strings.ToLower(t.Description)), " "),
		cents:       int64(math.Round(t.Amount * 100)),
	}
}

// Dedupe drops every transaction whose date, description (ignoring case
// and spacing) and amount in cents repeat an earlier one. Order is kept.
func Dedupe(txns []models.Transaction) []models.Transaction {
	seen := make(map[dedupeKey]bool, len(txns))
	out := make([]models.Transaction, 0, len(txns))
	for _, t := range txns {
		k := keyOf(t)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	return out
}
