package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// statementLines builds n one-line debits dated December 1..n.
func statementLines(n int) []string {
	lines := make([]string, n)
	for d := 1; d <= n; d++ {
		lines[d-1] = fmt.Sprintf("12/%02d Vendor %02d %d.00", d, d, 100+d)
	}
	return lines
}

func TestChunk(t *testing.T) {
	t.Run("small text is one chunk", func(t *testing.T) {
		text := strings.Join(statementLines(3), "\n")
		chunks := Chunk(text, 1000, 5)
		if len(chunks) != 1 || chunks[0] != text {
			t.Errorf("got %q, want the text unchanged", chunks)
		}
	})

	t.Run("large text overlaps", func(t *testing.T) {
		// Each line is 23 bytes with its newline: 5 estimated tokens.
		lines := statementLines(30)
		chunks := Chunk(strings.Join(lines, "\n"), 50, 3)
		if len(chunks) < 2 {
			t.Fatalf("chunks: got %d, want at least 2", len(chunks))
		}
		for i := 1; i < len(chunks); i++ {
			prev := strings.Split(chunks[i-1], "\n")
			cur := strings.Split(chunks[i], "\n")
			if len(cur) > 10 {
				t.Errorf("chunk %d: got %d lines, want at most 10", i, len(cur))
			}
			for j := 0; j < 3; j++ {
				if cur[j] != prev[len(prev)-3+j] {
					t.Errorf("chunk %d line %d: got %q, want overlap %q", i, j, cur[j], prev[len(prev)-3+j])
				}
			}
		}
		last := strings.Split(chunks[len(chunks)-1], "\n")
		if last[len(last)-1] != lines[29] {
			t.Errorf("last line: got %q, want %q", last[len(last)-1], lines[29])
		}
	})
}

func TestDedupe(t *testing.T) {
	txns := []models.Transaction{
		{Date: "2024-12-01", Description: "ACH Debit  OnDeck", Amount: 250, Type: models.Debit},
		{Date: "2024-12-01", Description: " ach debit ondeck", Amount: 250.001, Type: models.Debit},
		{Date: "2024-12-02", Description: "ACH Debit OnDeck", Amount: 250, Type: models.Debit},
		{Date: "2024-12-01", Description: "ACH Debit OnDeck", Amount: 251, Type: models.Debit},
	}

	once := Dedupe(txns)
	if len(once) != 3 {
		t.Fatalf("got %d transactions, want 3", len(once))
	}
	if once[0].Description != "ACH Debit  OnDeck" {
		t.Errorf("first occurrence not kept: got %q", once[0].Description)
	}

	twice := Dedupe(once)
	if len(twice) != len(once) {
		t.Fatalf("not idempotent: got %d, want %d", len(twice), len(once))
	}
	for i := range once {
		if twice[i] != once[i] {
			t.Errorf("txn[%d]: got %+v, want %+v", i, twice[i], once[i])
		}
	}
}

func TestNormalizePattern(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"ACH DEBIT 12/05 ONDECK 88231", "ach debit ondeck #"},
		{"Zelle from 12/05/2024 J Smith", "zelle from j smith"},
		{"  CHECK   1043  ", "check #"},
		{"12/01", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizePattern(tt.input); got != tt.expected {
				t.Errorf("NormalizePattern(%q): got %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestApplyCorrections(t *testing.T) {
	txns := []models.Transaction{
		{Description: "ACH CREDIT ONDECK 88231", Type: models.Credit},
		{Description: "Zelle from 12/05 J Smith", Type: models.Debit},
		{Description: "Payroll", Type: models.Credit},
		{Description: "Coffee shop", Type: models.Debit},
	}
	rules := []models.CorrectionRule{
		{DescriptionPattern: "ACH CREDIT ONDECK", CorrectType: models.Debit},
		{DescriptionPattern: "zelle from j smith", CorrectType: "Credit"},
		{DescriptionPattern: "payroll deposit acme", CorrectType: models.Credit},
		{DescriptionPattern: "zelle", CorrectType: models.Debit},
		{DescriptionPattern: "", CorrectType: models.Debit},
	}

	got, changed := ApplyCorrections(txns, rules)
	if changed != 2 {
		t.Errorf("changed: got %d, want 2", changed)
	}

	want := []struct {
		typ       models.TxnType
		corrected bool
	}{
		{models.Debit, true},
		{models.Credit, true},
		{models.Credit, false},
		{models.Debit, false},
	}
	for i, w := range want {
		if got[i].Type != w.typ || got[i].CorrectedByRule != w.corrected {
			t.Errorf("txn[%d]: got (%s, %v), want (%s, %v)", i, got[i].Type, got[i].CorrectedByRule, w.typ, w.corrected)
		}
	}
	if txns[0].Type != models.Credit || txns[0].CorrectedByRule {
		t.Error("input slice was modified")
	}
}

var chunkLine = regexp.MustCompile(`(?m)^12/(\d{2}) (Vendor \d{2}) (\d+\.\d{2})$`)

// echoClient answers every chunk with the transactions it contains, the
// way a well-behaved model would.
type echoClient struct {
	calls int
	// blankFirst makes the first reply carry an empty statement summary.
	blankFirst bool
}

func (c *echoClient) Generate(ctx context.Context, req Request) (Response, error) {
	c.calls++
	type txn struct {
		Date        string `json:"date"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
		Type        string `json:"type"`
	}
	body := struct {
		Summary      map[string]float64 `json:"statement_summary"`
		Transactions []txn              `json:"transactions"`
	}{
		Summary:      map[string]float64{"beginning_balance": float64(c.calls)},
		Transactions: []txn{},
	}
	if c.blankFirst && c.calls == 1 {
		body.Summary = map[string]float64{}
	}
	for _, m := range chunkLine.FindAllStringSubmatch(req.UserMessage, -1) {
		body.Transactions = append(body.Transactions, txn{
			Date:        "2024-12-" + m[1],
			Description: m[2],
			Amount:      m[3],
			Type:        "debit",
		})
	}
	b, err := json.Marshal(body)
	if err != nil {
		return Response{}, err
	}
	return Response{Text: string(b), Model: req.Model, InputTokens: 100, OutputTokens: 20}, nil
}

func TestPipeline_ChunkedStatement(t *testing.T) {
	text := strings.Join(statementLines(30), "\n")
	client := &echoClient{}
	p := &Pipeline{
		Client:       client,
		Model:        "gemini-2.5-flash",
		ChunkTokens:  50,
		OverlapLines: 3,
		Now:          func() time.Time { return time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC) },
	}

	out, err := p.Extract(context.Background(), text, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Chunks < 2 {
		t.Fatalf("chunks: got %d, want at least 2", out.Chunks)
	}
	if client.calls != out.Chunks {
		t.Errorf("calls: got %d, want %d", client.calls, out.Chunks)
	}
	if len(out.Transactions) != 30 {
		t.Fatalf("transactions: got %d, want 30", len(out.Transactions))
	}
	if out.Duplicates != 3*(out.Chunks-1) {
		t.Errorf("duplicates: got %d, want %d", out.Duplicates, 3*(out.Chunks-1))
	}
	for i, txn := range out.Transactions {
		want := fmt.Sprintf("2024-12-%02d", i+1)
		if txn.Date != want {
			t.Errorf("txn[%d]: got date %q, want %q", i, txn.Date, want)
		}
	}
	if out.Summary == nil || out.Summary.BeginningBalance == nil || *out.Summary.BeginningBalance != 1 {
		t.Errorf("summary should come from the first chunk, got %+v", out.Summary)
	}
	usage := out.TotalUsage()
	if usage.InputTokens != 100*out.Chunks || usage.OutputTokens != 20*out.Chunks {
		t.Errorf("usage: got %+v for %d chunks", usage, out.Chunks)
	}
}

func TestPipeline_SingleChunkKeepsDuplicates(t *testing.T) {
	// Two identical rows in one chunk are two real transactions.
	text := "12/01 Vendor 01 101.00\n12/01 Vendor 01 101.00"
	p := &Pipeline{Client: &echoClient{}, Model: "gemini-2.5-flash", ChunkTokens: 25000, OverlapLines: 5}

	out, err := p.Extract(context.Background(), text, []models.CorrectionRule{
		{DescriptionPattern: "vendor #", CorrectType: models.Credit},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Transactions) != 2 {
		t.Fatalf("transactions: got %d, want 2", len(out.Transactions))
	}
	if out.Corrected != 2 || out.Transactions[0].Type != models.Credit {
		t.Errorf("corrections: got %d corrected, type %q", out.Corrected, out.Transactions[0].Type)
	}
}

func TestPipeline_SkipsEmptySummary(t *testing.T) {
	p := &Pipeline{
		Client:       &echoClient{blankFirst: true},
		Model:        "gemini-2.5-flash",
		ChunkTokens:  50,
		OverlapLines: 3,
	}

	out, err := p.Extract(context.Background(), strings.Join(statementLines(30), "\n"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Chunks < 2 {
		t.Fatalf("chunks: got %d, want at least 2", out.Chunks)
	}
	if out.Summary == nil || out.Summary.BeginningBalance == nil || *out.Summary.BeginningBalance != 2 {
		t.Errorf("summary should come from the second chunk, got %+v", out.Summary)
	}
}

type failingClient struct{}

func (failingClient) Generate(ctx context.Context, req Request) (Response, error) {
	return Response{}, fmt.Errorf("API key not valid")
}

func TestPipeline_FatalModelError(t *testing.T) {
	p := &Pipeline{Client: failingClient{}, Model: "gemini-2.5-flash", ChunkTokens: 25000}
	if _, err := p.Extract(context.Background(), "12/01 Vendor 01 101.00", nil); err == nil {
		t.Fatal("expected error, got nil")
	}
}
