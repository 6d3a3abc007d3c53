package ai

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

var (
	patternDate   = regexp.MustCompile(`\d{1,2}/\d{1,2}(/\d{2,4})?`)
	patternNumber = regexp.MustCompile(`\d+`)
	patternSpace  = regexp.MustCompile(`\s+`)
)

// NormalizePattern reduces a description to its stable part: dates are
// removed, digit runs become "#", spacing collapses and case is folded.
// "ACH DEBIT 12/05 ONDECK 88231" becomes "ach debit ondeck #".
func NormalizePattern(description string) string {
	s := patternDate.ReplaceAllString(description, "")
	s = patternNumber.ReplaceAllString(s, "#")
	s = patternSpace.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

type correction struct {
	pattern string
	typ     models.TxnType
}

// ApplyCorrections returns a copy of txns with user correction rules
// applied, and the number of transactions whose type changed. A rule
// matches when either normalized text contains the other; the first
// matching rule decides.
func ApplyCorrections(txns []models.Transaction, rules []models.CorrectionRule) ([]models.Transaction, int) {
	var active []correction
	for _, r := range rules {
		p := NormalizePattern(r.DescriptionPattern)
		typ := models.TxnType(strings.ToLower(strings.TrimSpace(string(r.CorrectType))))
		if p == "" || (typ != models.Credit && typ != models.Debit) {
			continue
		}
		active = append(active, correction{pattern: p, typ: typ})
	}

	out := make([]models.Transaction, len(txns))
	copy(out, txns)
	if len(active) == 0 {
		return out, 0
	}

	changed := 0
	for i, t := range out {
		desc := NormalizePattern(t.Description)
		if desc == "" {
			continue
		}
		for _, c := range active {
			if !strings.Contains(desc, c.pattern) && !strings.Contains(c.pattern, desc) {
				continue
			}
			if t.Type != c.typ {
				out[i].Type = c.typ
				out[i].CorrectedByRule = true
				changed++
			}
			break
		}
	}
	return out, changed
}
