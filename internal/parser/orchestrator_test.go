package parser

import (
	"context"
	"testing"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

type stubStrategy struct {
	name  string
	ok    bool
	calls int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Extract(doc *models.Document) Result {
	s.calls++
	if !s.ok {
		return decline(s.name, "stub declined")
	}
	return succeed(s.name, []models.Transaction{{Date: "2024-12-01", Description: s.name, Amount: 1, Type: models.Credit}})
}

func TestOrchestrator_StopsAtFirstSuccess(t *testing.T) {
	first := &stubStrategy{name: "first"}
	second := &stubStrategy{name: "second", ok: true}
	third := &stubStrategy{name: "third", ok: true}

	r, attempts := NewOrchestrator(first, second, third).Run(context.Background(), models.NewTextDocument("x"))
	if !r.Success || r.Label != "second" {
		t.Fatalf("got (%v, %q), want success from %q", r.Success, r.Label, "second")
	}
	if third.calls != 0 {
		t.Errorf("third strategy called %d times, want 0", third.calls)
	}
	if len(attempts) != 2 {
		t.Fatalf("attempts: got %d, want 2", len(attempts))
	}
	if attempts[0].Success || attempts[0].Reason != "stub declined" {
		t.Errorf("attempts[0]: got %+v", attempts[0])
	}
	if !attempts[1].Success || attempts[1].Transactions != 1 {
		t.Errorf("attempts[1]: got %+v", attempts[1])
	}
}

func TestOrchestrator_AllDecline(t *testing.T) {
	o := NewOrchestrator(DefaultStrategies(DefaultKeywords())...)

	r, attempts := o.Run(context.Background(), models.NewTextDocument("Nothing to see here"))
	if r.Success {
		t.Fatal("expected failure")
	}
	want := []string{"section_markers", "section_headers", "column_positions", "table_structure", "td_bank", "truist"}
	if len(attempts) != len(want) {
		t.Fatalf("attempts: got %d, want %d", len(attempts), len(want))
	}
	for i, name := range want {
		if attempts[i].Strategy != name {
			t.Errorf("attempts[%d]: got %q, want %q", i, attempts[i].Strategy, name)
		}
		if attempts[i].Reason == "" {
			t.Errorf("attempts[%d]: missing decline reason", i)
		}
	}
}

func TestOrchestrator_SectionHeaderStatement(t *testing.T) {
	doc := models.NewTextDocument(`ACME COMMUNITY BANK
Statement Period 12/01/2024 through 12/31/2024
DEPOSITS
12/01 Transaction A 100.00
DEBITS
12/03 Transaction C 50.00`)

	o := NewOrchestrator(DefaultStrategies(DefaultKeywords())...)
	r, attempts := o.Run(context.Background(), doc)
	if !r.Success {
		t.Fatalf("expected success, attempts: %+v", attempts)
	}
	if r.Label != "section_headers" {
		t.Errorf("label: got %q, want %q", r.Label, "section_headers")
	}
	assertTransactions(t, r.Transactions, []string{
		"2024-12-01 Transaction A 100.00 credit",
		"2024-12-03 Transaction C 50.00 debit",
	})

	s := models.Summarize(r.Transactions)
	if s.CreditTotal != 100 || s.DebitTotal != 50 || s.NetBalance != 50 {
		t.Errorf("summary: got credit %.2f debit %.2f net %.2f, want 100.00 50.00 50.00",
			s.CreditTotal, s.DebitTotal, s.NetBalance)
	}
	if s.TotalTransactions != 2 {
		t.Errorf("total transactions: got %d, want 2", s.TotalTransactions)
	}
}

func TestOrchestrator_CheckLedgerUnderPlainHeaders(t *testing.T) {
	o := NewOrchestrator(DefaultStrategies(DefaultKeywords())...)
	r, _ := o.Run(context.Background(), models.NewTextDocument(tdStatement))
	if !r.Success {
		t.Fatalf("expected success, got %q", r.Reason)
	}
	if r.Label != "section_headers" {
		t.Errorf("label: got %q, want %q", r.Label, "section_headers")
	}
	assertTransactions(t, r.Transactions, []string{
		"2024-12-02 CCD DEPOSIT, PAYROLL INC 1250.00 credit",
		"2024-12-05 Check #1001 150.00 debit",
		"2024-12-06 Check #1002 75.50 debit",
		"2024-12-07 ACH DEBIT, NATIONAL GRID 210.33 debit",
	})
}
