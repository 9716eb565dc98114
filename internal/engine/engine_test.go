package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/insightdelivered/finsight/internal/extractor"
)

// stubClassifier labels descriptions by substring, in request order.
type stubClassifier struct {
	labels map[string]string
}

func (s *stubClassifier) Classify(_ context.Context, descriptions, _ []string) ([]string, error) {
	out := make([]string, len(descriptions))
	for i, d := range descriptions {
		out[i] = "other"
		for substr, label := range s.labels {
			if strings.Contains(strings.ToLower(d), substr) {
				out[i] = label
				break
			}
		}
	}
	return out, nil
}

const samplePage = `Your Statement
Account number: 11223344
Opening Balance 5,000.00
Date Description Amount Balance
01/11/2025 BGC SALARY EMPLOYER 2,500.00 7,500.00
03/11/2025 CARD PAYMENT GROCERY MART 85.50 7,414.50
05/11/2025 CARD PAYMENT CONCERT TICKETS 120.99 7,293.51
07/11/2025 DIRECT DEBIT ELECTRIC CO 20.00 7,273.51
Closing Balance 7,273.51
Page 1 of 1`

func TestEngine_AnalyzePages(t *testing.T) {
	eng := New(WithClassifier(&stubClassifier{labels: map[string]string{
		"salary":   "income",
		"grocery":  "groceries",
		"concert":  "entertainment",
		"electric": "utilities",
	}}))

	sum, err := eng.AnalyzePages(context.Background(), []string{samplePage})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sum.TransactionCount != 4 {
		t.Fatalf("got %d transactions, want 4", sum.TransactionCount)
	}
	if sum.TotalIncome.String() != "2500" {
		t.Errorf("income: got %s, want 2500", sum.TotalIncome)
	}
	if sum.TotalExpenses.String() != "226.49" {
		t.Errorf("expenses: got %s, want 226.49", sum.TotalExpenses)
	}
	if sum.NetChange.String() != "2273.51" {
		t.Errorf("net: got %s, want 2273.51", sum.NetChange)
	}
	if sum.OpeningBalance == nil || sum.OpeningBalance.String() != "5000" {
		t.Errorf("opening: got %v, want 5000", sum.OpeningBalance)
	}
	if sum.ClosingBalance == nil || sum.ClosingBalance.String() != "7273.51" {
		t.Errorf("closing: got %v, want 7273.51", sum.ClosingBalance)
	}
	if sum.ClosingBalanceMismatch {
		t.Error("unexpected closing balance mismatch")
	}
	if sum.BalanceWarnings != 0 {
		t.Errorf("warnings: got %d, want 0", sum.BalanceWarnings)
	}

	wantCategories := []string{"income", "groceries", "entertainment", "utilities"}
	for i, want := range wantCategories {
		if got := sum.Transactions[i].Category; got != want {
			t.Errorf("txn %d category: got %q, want %q", i, got, want)
		}
	}
}

func TestEngine_AnalyzePages_NoClassifier(t *testing.T) {
	eng := New()

	sum, err := eng.AnalyzePages(context.Background(), []string{samplePage})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantCategories := []string{"income", "other", "other", "other"}
	for i, want := range wantCategories {
		if got := sum.Transactions[i].Category; got != want {
			t.Errorf("txn %d category: got %q, want %q", i, got, want)
		}
	}
}

func TestEngine_AnalyzePages_Empty(t *testing.T) {
	eng := New()

	_, err := eng.AnalyzePages(context.Background(), nil)
	if !errors.Is(err, extractor.ErrEmptyDocument) {
		t.Errorf("got %v, want ErrEmptyDocument", err)
	}

	_, err = eng.AnalyzePages(context.Background(), []string{"", "  \n "})
	if !errors.Is(err, extractor.ErrEmptyDocument) {
		t.Errorf("got %v, want ErrEmptyDocument", err)
	}
}

func TestEngine_AnalyzePages_NoTransactions(t *testing.T) {
	eng := New()

	page := `Your Statement
Account number: 11223344
No transactions this period`

	_, err := eng.AnalyzePages(context.Background(), []string{page})
	if !errors.Is(err, ErrNoTransactions) {
		t.Errorf("got %v, want ErrNoTransactions", err)
	}
}

func TestEngine_AnalyzePages_ColumnarStatement(t *testing.T) {
	page := `HDFC BANK Ltd
Statement of account
Opening Balance 2,89,846.56
Date Narration Withdrawal Amt Deposit Amt Closing Balance
02/09/25 UPI-GROCERY MART 2,085.06 0.00 2,87,761.50
03/09/25 NEFT SALARY SEPT 0.00 75,000.00 3,62,761.50
04/09/25 ATM WITHDRAWAL 5,000.00 0.00 3,57,761.50`

	eng := New()
	sum, err := eng.AnalyzePages(context.Background(), []string{page})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sum.TransactionCount != 3 {
		t.Fatalf("got %d transactions, want 3", sum.TransactionCount)
	}
	if sum.TotalIncome.String() != "75000" {
		t.Errorf("income: got %s, want 75000", sum.TotalIncome)
	}
	if sum.TotalExpenses.String() != "7085.06" {
		t.Errorf("expenses: got %s, want 7085.06", sum.TotalExpenses)
	}
	if sum.ClosingBalance == nil || sum.ClosingBalance.String() != "357761.5" {
		t.Errorf("closing: got %v, want 357761.5", sum.ClosingBalance)
	}
	if sum.ClosingBalanceMismatch {
		t.Error("unexpected closing balance mismatch")
	}
}

func TestEngine_AnalyzeFile_MissingFile(t *testing.T) {
	eng := New()

	_, err := eng.AnalyzeFile(context.Background(), "/nonexistent/statement.pdf")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
