package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// CSVWriter writes extracted transactions to CSV format.
type CSVWriter struct {
	IncludeHeader bool
}

// WriteToFile writes the result's transactions to a CSV file at path.
func (w *CSVWriter) WriteToFile(path string, res *models.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	if err := w.Write(f, res); err != nil {
		return err
	}
	return f.Close()
}

// Write writes the result's transactions in CSV format to out.
func (w *CSVWriter) Write(out io.Writer, res *models.Result) error {
	writer := csv.NewWriter(out)

	// Statement metadata as comment rows
	if w.IncludeHeader {
		meta := [][2]string{
			{"# Source File", res.Metadata.SourceFile},
			{"# Bank", res.Metadata.BankName},
			{"# Extraction Method", res.Metadata.ExtractionMethod},
		}
		if s := res.StatementSummary; s != nil {
			meta = append(meta,
				[2]string{"# Beginning Balance", formatBalance(s.BeginningBalance)},
				[2]string{"# Ending Balance", formatBalance(s.EndingBalance)},
				[2]string{"# Average Daily Balance", formatBalance(s.AverageDailyBalance)},
			)
		}
		for _, m := range meta {
			if m[1] == "" {
				continue
			}
			if err := writer.Write([]string{m[0], m[1]}); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
	}

	header := []string{"Date", "Description", "Type", "Amount", "Balance", "Recurring Lender", "Corrected"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, txn := range res.Transactions {
		row := []string{
			txn.Date,
			txn.Description,
			string(txn.Type),
			formatAmount(txn.Amount),
			formatBalance(txn.EndingBalance),
			txn.RecurringLender,
			formatFlag(txn.CorrectedByRule),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

// formatBalance leaves unknown balances empty; a zero balance is "0.00".
func formatBalance(balance *float64) string {
	if balance == nil {
		return ""
	}
	return formatAmount(*balance)
}

func formatFlag(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
