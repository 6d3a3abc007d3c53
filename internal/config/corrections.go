package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// LoadCorrections reads correction rules from arg, which is either a JSON
// array or the path of a file holding one. An empty arg means no rules.
func LoadCorrections(arg string) ([]models.CorrectionRule, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, nil
	}
	if strings.HasPrefix(arg, "[") {
		return ParseCorrections([]byte(arg))
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("reading corrections: %w", err)
	}
	return ParseCorrections(data)
}

// ParseCorrections decodes a JSON array of correction rules. Rules with
// an empty pattern or a type other than credit/debit are rejected.
func ParseCorrections(data []byte) ([]models.CorrectionRule, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	var rules []models.CorrectionRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing corrections: %w", err)
	}
	for i, r := range rules {
		if strings.TrimSpace(r.DescriptionPattern) == "" {
			return nil, fmt.Errorf("correction %d: description_pattern is empty", i+1)
		}
		switch models.TxnType(strings.ToLower(string(r.CorrectType))) {
		case models.Credit, models.Debit:
		default:
			return nil, fmt.Errorf("correction %d: correct_type %q must be credit or debit", i+1, r.CorrectType)
		}
	}
	return rules, nil
}
