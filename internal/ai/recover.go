package ai

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"

	"github.com/insightdelivered/statement-extractor/internal/models"
	"github.com/insightdelivered/statement-extractor/internal/normalize"
)

// Recovery tiers, in the order they are tried.
const (
	TierDirect    = "direct"
	TierBalanced  = "balanced"
	TierTruncated = "truncated"
	TierRepaired  = "repaired"
	TierSalvaged  = "salvaged"
	TierEmpty     = "empty"
)

// Reply is what could be recovered from one model response.
type Reply struct {
	Transactions []models.Transaction
	Summary      *models.StatementSummary
	// Tier names the recovery step that produced the reply.
	Tier string
}

// flexNumber accepts a JSON number, a numeric string such as "1,234.56"
// or "(50.00)", or null.
type flexNumber struct {
	value float64
	set   bool
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	n.value, n.set = normalize.ParseSignedBalance(s)
	return nil
}

func (n flexNumber) ptr() *float64 {
	if !n.set {
		return nil
	}
	return models.Float(n.value)
}

type replyTransaction struct {
	Date          string     `json:"date"`
	Description   *string    `json:"description"`
	Amount        flexNumber `json:"amount"`
	Type          string     `json:"type"`
	EndingBalance flexNumber `json:"ending_balance"`
}

type replySummary struct {
	BeginningBalance    flexNumber `json:"beginning_balance"`
	EndingBalance       flexNumber `json:"ending_balance"`
	AverageDailyBalance flexNumber `json:"average_daily_balance"`
}

type replyBody struct {
	Transactions     []json.RawMessage `json:"transactions"`
	StatementSummary *replySummary     `json:"statement_summary"`
}

// ParseReply recovers transactions from a model response. It never
// fails: a hopeless response yields an empty reply. year resolves dates
// the model returned without one.
func ParseReply(text string, year int) Reply {
	text = stripFences(text)

	if body, ok := decode(text); ok {
		return body.reply(TierDirect, year)
	}
	if sub := balancedTransactions(text); sub != "" {
		if body, ok := decode(sub); ok {
			return body.reply(TierBalanced, year)
		}
	}
	if closed := closeTruncated(text); closed != "" {
		if body, ok := decode(closed); ok {
			return body.reply(TierTruncated, year)
		}
	}
	if repaired, err := jsonrepair.RepairJSON(text); err == nil {
		if body, ok := decode(repaired); ok {
			if r := body.reply(TierRepaired, year); len(r.Transactions) > 0 {
				return r
			}
		}
	}
	if txns := salvage(text, year); len(txns) > 0 {
		return Reply{Transactions: txns, Tier: TierSalvaged}
	}
	return Reply{Tier: TierEmpty}
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// decode accepts either the expected object or a bare transaction array.
func decode(s string) (replyBody, bool) {
	var body replyBody
	if err := json.Unmarshal([]byte(s), &body); err == nil {
		return body, true
	}
	var list []json.RawMessage
	if err := json.Unmarshal([]byte(s), &list); err == nil {
		return replyBody{Transactions: list}, true
	}
	return replyBody{}, false
}

func (b replyBody) reply(tier string, year int) Reply {
	r := Reply{Tier: tier}
	for _, raw := range b.Transactions {
		var rt replyTransaction
		if err := json.Unmarshal(raw, &rt); err != nil {
			continue // not an object
		}
		r.Transactions = append(r.Transactions, rt.transaction(year))
	}
	if s := b.StatementSummary; s != nil {
		r.Summary = &models.StatementSummary{
			BeginningBalance:    s.BeginningBalance.ptr(),
			EndingBalance:       s.EndingBalance.ptr(),
			AverageDailyBalance: s.AverageDailyBalance.ptr(),
		}
	}
	return r
}

// transaction fills defaults: description "Unknown", type debit. The
// amount is stored as a magnitude.
func (rt replyTransaction) transaction(year int) models.Transaction {
	t := models.Transaction{
		Date:          strings.TrimSpace(rt.Date),
		Description:   "Unknown",
		Amount:        normalize.Round2(abs(rt.Amount.value)),
		Type:          models.Debit,
		EndingBalance: rt.EndingBalance.ptr(),
	}
	if iso, ok := normalize.ParseDate(t.Date, year); ok {
		t.Date = iso
	}
	if rt.Description != nil {
		t.Description = *rt.Description
	}
	if strings.EqualFold(strings.TrimSpace(rt.Type), string(models.Credit)) {
		t.Type = models.Credit
	}
	return t
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

var transactionsKey = regexp.MustCompile(`"transactions"\s*:\s*\[`)

// balancedTransactions returns the complete object that holds the
// "transactions" key, ignoring anything around it.
func balancedTransactions(s string) string {
	loc := transactionsKey.FindStringIndex(s)
	if loc == nil {
		return ""
	}
	var open []int
	walkJSON(s[:loc[0]], func(i int, c byte) bool {
		switch c {
		case '{', '[':
			open = append(open, i)
		case '}', ']':
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
		}
		return true
	})
	start := -1
	for j := len(open) - 1; j >= 0; j-- {
		if s[open[j]] == '{' {
			start = open[j]
			break
		}
	}
	if start < 0 {
		return ""
	}
	sub := s[start:]
	depth, end := 0, -1
	walkJSON(sub, func(i int, c byte) bool {
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i + 1
				return false
			}
		}
		return true
	})
	if end < 0 {
		return ""
	}
	return sub[:end]
}

// closeTruncated cuts a truncated response after its last complete
// object or array and appends the closers it is missing.
func closeTruncated(s string) string {
	cut := strings.LastIndexAny(s, "}]")
	if cut <= 0 {
		return ""
	}
	s = s[:cut+1]

	var open []byte
	walkJSON(s, func(_ int, c byte) bool {
		switch c {
		case '{', '[':
			open = append(open, c)
		case '}', ']':
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
		}
		return true
	})

	var b strings.Builder
	b.WriteString(s)
	for i := len(open) - 1; i >= 0; i-- {
		if open[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

// walkJSON calls fn with every brace and bracket outside string literals
// until fn returns false.
func walkJSON(s string, fn func(i int, c byte) bool) {
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{', c == '}', c == '[', c == ']':
			if !fn(i, c) {
				return
			}
		}
	}
}

var transactionObject = regexp.MustCompile(`(?i)\{\s*"date"\s*:\s*"[^"]+"\s*,\s*"description"\s*:\s*"(?:[^"\\]|\\.)*"\s*,\s*"amount"\s*:\s*-?[\d.]+\s*,\s*"type"\s*:\s*"(?:credit|debit)"\s*(?:,\s*"ending_balance"\s*:\s*(?:-?[\d.]+|null)\s*)?\}`)

// salvage pulls individual well-formed transaction objects out of text
// that is not JSON as a whole.
func salvage(text string, year int) []models.Transaction {
	var txns []models.Transaction
	for _, m := range transactionObject.FindAllString(text, -1) {
		var rt replyTransaction
		if err := json.Unmarshal([]byte(m), &rt); err != nil {
			continue
		}
		txns = append(txns, rt.transaction(year))
	}
	return txns
}
