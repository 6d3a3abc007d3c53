// Package mca finds recurring merchant-cash-advance repayments among
// statement debits and describes their cadence.
package mca

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

//go:embed lenders.yaml
var defaultLenders []byte

// Lender is one known recurring-payment lender.
type Lender struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
}

// LenderTable is an ordered, read-only list of lenders. A debit is
// attributed to the first lender with a matching pattern.
type LenderTable struct {
	lenders []Lender
}

// DefaultLenders returns the built-in table.
func DefaultLenders() (*LenderTable, error) {
	return ParseLenders(defaultLenders)
}

// LoadLenders reads a lender table from a YAML file.
func LoadLenders(path string) (*LenderTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lender table: %w", err)
	}
	t, err := ParseLenders(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ParseLenders decodes a YAML lender list. Patterns are lowercased.
func ParseLenders(data []byte) (*LenderTable, error) {
	var lenders []Lender
	if err := yaml.Unmarshal(data, &lenders); err != nil {
		return nil, fmt.Errorf("parsing lender table: %w", err)
	}
	if len(lenders) == 0 {
		return nil, errors.New("lender table is empty")
	}
	seen := make(map[string]bool, len(lenders))
	for i, l := range lenders {
		if l.ID == "" || len(l.Patterns) == 0 {
			return nil, fmt.Errorf("lender %d: id and patterns are required", i+1)
		}
		if seen[l.ID] {
			return nil, fmt.Errorf("duplicate lender id %q", l.ID)
		}
		seen[l.ID] = true
		if l.Name == "" {
			lenders[i].Name = l.ID
		}
		patterns := make([]string, 0, len(l.Patterns))
		for _, p := range l.Patterns {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				patterns = append(patterns, p)
			}
		}
		lenders[i].Patterns = patterns
	}
	return &LenderTable{lenders: lenders}, nil
}

// Len returns the number of lenders.
func (t *LenderTable) Len() int { return len(t.lenders) }

// Match returns the first lender whose pattern occurs in description.
func (t *LenderTable) Match(description string) (Lender, bool) {
	d := strings.ToLower(description)
	for _, l := range t.lenders {
		for _, p := range l.Patterns {
			if strings.Contains(d, p) {
				return l, true
			}
		}
	}
	return Lender{}, false
}
