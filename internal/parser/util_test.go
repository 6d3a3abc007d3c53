package parser

import (
	"fmt"
	"testing"
	"time"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// describe renders a transaction compactly for comparisons.
func describe(t models.Transaction) string {
	return fmt.Sprintf("%s %s %.2f %s", t.Date, t.Description, t.Amount, t.Type)
}

func assertTransactions(t *testing.T, got []models.Transaction, want []string) {
	t.Helper()
	if len(got) != len(want) {
		gotText := make([]string, len(got))
		for i, g := range got {
			gotText[i] = describe(g)
		}
		t.Fatalf("got %d transactions, want %d: %q", len(got), len(want), gotText)
	}
	for i := range want {
		if g := describe(got[i]); g != want[i] {
			t.Errorf("txn[%d]: got %q, want %q", i, g, want[i])
		}
	}
}

func TestSanitizeOCRAmounts(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"12/01 Deposit 19,720; 15", "12/01 Deposit 19,720.15"},
		{"12/02 Card purchase 1,234:56", "12/02 Card purchase 1,234.56"},
		{"Total 100:", "Total 100"},
		{"12/03 Fee 25.00 NA", "12/03 Fee 25.00"},
		{"12/04 Wire 1.00", "12/04 Wire 1.00"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeOCRAmounts(tt.input)
			if got != tt.expected {
				t.Errorf("sanitizeOCRAmounts(%q): got %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDateContext_Parse(t *testing.T) {
	december := dateContext{year: 2024, dominant: time.December}
	january := dateContext{year: 2025, dominant: time.January}

	tests := []struct {
		name     string
		ctx      dateContext
		input    string
		expected string
	}{
		{"same month", december, "12/15", "2024-12-15"},
		{"rolls into next year", december, "01/02", "2025-01-02"},
		{"rolls into previous year", january, "12/30", "2024-12-30"},
		{"explicit year kept", december, "01/02/2024", "2024-01-02"},
		{"month name", december, "Dec 3", "2024-12-03"},
		{"glued month name", december, "Dec12", "2024-12-12"},
		{"no dominant month", dateContext{year: 2024}, "01/02", "2024-01-02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.ctx.parse(tt.input)
			if !ok {
				t.Fatalf("parse(%q) failed", tt.input)
			}
			if got != tt.expected {
				t.Errorf("parse(%q): got %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewDateContext(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		year     int
		dominant time.Month
	}{
		{
			"december dominant across year end",
			"Statement Period 12/15/2024 - 01/14/2025\n12/16 a 1.00\n12/20 b 1.00\n01/03 c 1.00",
			2024, time.December,
		},
		{
			"january dominant across year end",
			"Statement Period 12/15/2024 - 01/14/2025\n01/02 a 1.00\n01/05 b 1.00\n12/20 c 1.00",
			2025, time.January,
		},
		{
			"named period dates",
			"December 15, 2024 through January 14, 2025\n12/16 a 1.00\n12/20 b 1.00",
			2024, time.December,
		},
		{
			"no full date in the dominant month",
			"Statement for 2023\n03/01 a 1.00\n03/02 b 1.00",
			2023, time.March,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDateContext(models.NewTextDocument(tt.text))
			if d.year != tt.year || d.dominant != tt.dominant {
				t.Errorf("got (%d, %v), want (%d, %v)", d.year, d.dominant, tt.year, tt.dominant)
			}
		})
	}

	d := newDateContext(models.NewTextDocument(tests[0].text))
	if got, _ := d.parse("01/03"); got != "2025-01-03" {
		t.Errorf("parse(%q): got %q, want %q", "01/03", got, "2025-01-03")
	}
}

func TestDateContext_ParseInvalid(t *testing.T) {
	d := dateContext{year: 2024, dominant: time.December}
	for _, input := range []string{"", "13/45", "Total", "02/30"} {
		if got, ok := d.parse(input); ok {
			t.Errorf("parse(%q): got %q, want failure", input, got)
		}
	}
}

func TestDetectBank(t *testing.T) {
	tests := []struct {
		name     string
		pages    []string
		expected string
	}{
		{"TD Bank", []string{"TD Bank, N.A.\nAmerica's Most Convenient Bank"}, "TD Bank"},
		{"Truist", []string{"TRUIST BANK\nBusiness Value 500 Checking"}, "Truist"},
		{"legacy SunTrust", []string{"SunTrust Bank\nStatement"}, "Truist"},
		{"Chase", []string{"JPMorgan Chase Bank, N.A."}, "Chase"},
		{"only first page counts", []string{"Statement", "Wells Fargo"}, ""},
		{"unknown", []string{"Some Credit Union"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectBank(models.NewTextDocument(tt.pages...))
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestKeywords(t *testing.T) {
	kw := DefaultKeywords()

	headers := []struct {
		line     string
		expected SectionKind
		ok       bool
	}{
		{"DEPOSITS", SectionCredit, true},
		{"Deposits and Additions:", SectionCredit, true},
		{"Checks Paid (continued)", SectionDebit, true},
		{"  WITHDRAWALS   AND OTHER DEBITS ", SectionDebit, true},
		{"Daily Balance Summary", SectionNonTransaction, true},
		{"Deposits 1,250.00", SectionUnknown, false},
		{"Total deposits", SectionUnknown, false},
	}
	for _, tt := range headers {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := kw.HeaderKind(tt.line)
			if ok != tt.ok || got != tt.expected {
				t.Errorf("HeaderKind(%q): got (%v, %v), want (%v, %v)", tt.line, got, ok, tt.expected, tt.ok)
			}
		})
	}

	names := []struct {
		name     string
		expected SectionKind
	}{
		{"deposits and other credits", SectionCredit},
		{"checks paid", SectionDebit},
		{"atm and debit card withdrawals", SectionDebit},
		{"daily ending balance", SectionNonTransaction},
		{"overdraft and returned item fees", SectionNonTransaction},
		{"customer service", SectionUnknown},
	}
	for _, tt := range names {
		t.Run(tt.name, func(t *testing.T) {
			if got := kw.SectionKind(tt.name); got != tt.expected {
				t.Errorf("SectionKind(%q): got %v, want %v", tt.name, got, tt.expected)
			}
		})
	}
}
