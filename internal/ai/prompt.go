package ai

import (
	"fmt"
	"strings"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

const systemPromptTemplate = `You are an expert bank statement parser. Extract ALL transactions from the statement text, whatever bank produced it.

EXTRACTION RULES:
- Extract every transaction. Do not skip any.
- Include duplicates: the same vendor, amount and day appearing twice is two transactions.
- Do not deduplicate. The statement shows what actually happened.
- Dates must be YYYY-MM-DD. Assume the year %d when a date has none.
- Beginning and ending balance lines are not transactions.

MULTI-COLUMN CHECK TABLES:
- Some statements list checks two or three per row, e.g.
  "11/10 14381 12.92  11/17 14390 276.00  11/24 14400 496.00" is three checks.
- Read across every row. Each group is a separate transaction.

AMOUNTS:
- "1,368.47" is one thousand three hundred sixty-eight dollars and 47 cents. Never stop at the comma.
- Return amounts as plain positive numbers without commas or currency symbols.

CLASSIFICATION (structure only):
- If the statement has section headers (DEPOSITS, CREDITS, WITHDRAWALS, DEBITS, CHECKS), every
  transaction takes the type of the section it is listed under.
- If the statement is one table with separate debit and credit columns, the type comes from the
  column that holds the amount.
- Never decide the type from the description text.
- Card purchases (PURCHASE, CHECKCARD, POS) are debits. Extract every one, however small.

Section example:
  CREDITS
    12/01  Transaction A  100.00   -> credit
  DEBITS
    12/03  Transaction C   50.00   -> debit

Column example:
  | Date  | Description   | Withdrawals | Deposits | Balance |
  | 12/01 | Transaction A | -           | 100.00   | 1100.00 |   -> credit
  | 12/02 | Transaction B | 50.00       | -        | 1050.00 |   -> debit
%s
RUNNING BALANCE:
- When the statement has a balance column, set ending_balance on each transaction to the balance
  after it posted. Omit the field when there is no balance column. Never calculate it.
- "(1,234.56)" is -1234.56.

STATEMENT SUMMARY:
- Look first at the account summary on the first page, then at totals on the last page.
- beginning_balance: "Beginning", "Opening", "Previous" or "Starting Balance".
- ending_balance: "Ending", "Closing", "New" or "Current Balance".
- average_daily_balance: "Average Daily Balance" or "Average Ledger Balance", only if printed.
- Sign rules: parentheses mean negative; a DR suffix means negative; a CR suffix means positive;
  anything else is positive. Most checking accounts have a positive beginning balance.

OUTPUT: return ONLY this JSON object.
{
  "statement_summary": {"beginning_balance": 1234.56, "ending_balance": 5678.90},
  "transactions": [
    {"date": "YYYY-MM-DD", "description": "text", "amount": 123.45, "type": "credit", "ending_balance": 1234.56}
  ]
}
- amount is always positive; type is exactly "credit" or "debit".
- ending_balance and statement_summary are optional and may be negative.
`

// SystemPrompt builds the extraction instructions. Correction rules are
// appended as overrides.
func SystemPrompt(year int, rules []models.CorrectionRule) string {
	return fmt.Sprintf(systemPromptTemplate, year, correctionsSection(rules))
}

func correctionsSection(rules []models.CorrectionRule) string {
	var lines []string
	for _, r := range rules {
		if r.DescriptionPattern == "" || r.CorrectType == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("- Transactions matching '%s' are '%s'", r.DescriptionPattern, r.CorrectType))
	}
	if len(lines) == 0 {
		return ""
	}
	return "\nLEARNED CORRECTIONS (high priority, these override the rules above):\n" +
		strings.Join(lines, "\n") + "\n"
}

// UserMessage wraps one chunk of statement text.
func UserMessage(chunk string, part, total int) string {
	if total <= 1 {
		return "Bank Statement Text:\n\n" + chunk
	}
	return fmt.Sprintf("Bank Statement Text (Part %d of %d):\n\n%s", part, total, chunk)
}
