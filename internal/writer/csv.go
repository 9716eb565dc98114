// Package writer renders a FinancialSummary as a delimited-text report.
// It is a pure projection: no engine logic, no recomputation beyond
// presentation-time percentages.
package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/finsight/internal/models"
	"github.com/insightdelivered/finsight/internal/summary"
)

// CSVWriter writes the analysis result to CSV.
type CSVWriter struct {
	// IncludeSummary adds the balance/totals block and the category
	// breakdown blocks before the transaction table.
	IncludeSummary bool
}

// WriteToFile writes the report to a file at the given path.
func (w *CSVWriter) WriteToFile(path string, sum *models.FinancialSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, sum)
}

// Write writes the report to out.
func (w *CSVWriter) Write(out io.Writer, sum *models.FinancialSummary) error {
	cw := csv.NewWriter(out)
	defer cw.Flush()

	if w.IncludeSummary {
		w.writeSummaryBlock(cw, sum)
		w.writeBreakdown(cw, "Expense Breakdown", sum.CategoryBreakdown, sum.TotalExpenses)
		w.writeBreakdown(cw, "Income Breakdown", sum.IncomeBreakdown, sum.TotalIncome)
	}

	if err := cw.Write([]string{"Date", "Description", "Category", "Type", "Amount", "Balance"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, txn := range sum.Transactions {
		typ := strings.ToUpper(string(txn.Direction))
		if txn.Ambiguous {
			typ = "AMBIGUOUS"
		}
		row := []string{
			txn.Date,
			txn.Description,
			capitalize(txn.Category),
			typ,
			txn.Amount.StringFixed(2),
			formatOptional(txn.PrintedBalance),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return nil
}

func (w *CSVWriter) writeSummaryBlock(cw *csv.Writer, sum *models.FinancialSummary) {
	cw.Write([]string{"# Opening Balance", formatOptional(sum.OpeningBalance)})
	cw.Write([]string{"# Closing Balance", formatOptional(sum.ClosingBalance)})
	cw.Write([]string{"# Total Income", sum.TotalIncome.StringFixed(2)})
	cw.Write([]string{"# Total Expenses", sum.TotalExpenses.StringFixed(2)})
	cw.Write([]string{"# Net Change", sum.NetChange.StringFixed(2)})
	if sum.ClosingBalanceMismatch {
		cw.Write([]string{"# Warning", "closing balance does not match computed value"})
	}
	if sum.BalanceWarnings > 0 {
		cw.Write([]string{"# Warning", fmt.Sprintf("%d row(s) with balance mismatches", sum.BalanceWarnings)})
	}
	cw.Write([]string{})
}

func (w *CSVWriter) writeBreakdown(cw *csv.Writer, title string, breakdown map[string]decimal.Decimal, total decimal.Decimal) {
	if len(breakdown) == 0 {
		return
	}

	// Largest first, name as tiebreak; map order is not stable.
	names := make([]string, 0, len(breakdown))
	for name := range breakdown {
		names = append(names, name)
	}
	sort.Slice(names, func(a, b int) bool {
		va, vb := breakdown[names[a]], breakdown[names[b]]
		if !va.Equal(vb) {
			return va.GreaterThan(vb)
		}
		return names[a] < names[b]
	})

	cw.Write([]string{title, "Amount", "Percent"})
	for _, name := range names {
		amount := breakdown[name]
		cw.Write([]string{
			capitalize(name),
			amount.StringFixed(2),
			summary.PercentShare(amount, total).String() + "%",
		})
	}
	cw.Write([]string{})
}

func formatOptional(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.StringFixed(2)
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
