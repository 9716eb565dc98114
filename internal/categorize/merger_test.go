package categorize

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/insightdelivered/finsight/internal/models"
)

// stubClassifier returns canned labels keyed on description substrings.
type stubClassifier struct {
	labels map[string]string // description substring -> label
	err    error
	extra  int // labels appended beyond the request length

	mu    sync.Mutex
	calls int
}

func (s *stubClassifier) Classify(_ context.Context, descriptions, _ []string) ([]string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	out := make([]string, 0, len(descriptions)+s.extra)
	for _, d := range descriptions {
		label := "other"
		for substr, l := range s.labels {
			if strings.Contains(strings.ToLower(d), substr) {
				label = l
				break
			}
		}
		out = append(out, label)
	}
	for i := 0; i < s.extra; i++ {
		out = append(out, "other")
	}
	return out, nil
}

func sampleTxns() []models.Transaction {
	return []models.Transaction{
		{Description: "UPI-GROCERY MART", Direction: models.Debit},
		{Description: "SALARY EMPLOYER LTD", Direction: models.Credit},
		{Description: "ELECTRIC CO DD", Direction: models.Debit},
	}
}

func TestMerger_Merge(t *testing.T) {
	m := &Merger{
		Classifier: &stubClassifier{labels: map[string]string{
			"grocery":  "groceries",
			"salary":   "income",
			"electric": "utilities",
		}},
		Log: zerolog.Nop(),
	}

	out := m.Merge(context.Background(), sampleTxns())

	want := []string{"groceries", "income", "utilities"}
	for i, w := range want {
		if out[i].Category != w {
			t.Errorf("txn %d: got %q, want %q", i, out[i].Category, w)
		}
	}
}

func TestMerger_NilClassifierFallsBack(t *testing.T) {
	m := &Merger{Log: zerolog.Nop()}

	out := m.Merge(context.Background(), sampleTxns())

	want := []string{"other", "income", "other"}
	for i, w := range want {
		if out[i].Category != w {
			t.Errorf("txn %d: got %q, want %q", i, out[i].Category, w)
		}
	}
}

func TestMerger_ClassifierErrorFallsBack(t *testing.T) {
	m := &Merger{
		Classifier: &stubClassifier{err: errors.New("service unavailable")},
		Log:        zerolog.Nop(),
	}

	out := m.Merge(context.Background(), sampleTxns())

	want := []string{"other", "income", "other"}
	for i, w := range want {
		if out[i].Category != w {
			t.Errorf("txn %d: got %q, want %q", i, out[i].Category, w)
		}
	}
}

func TestMerger_LengthMismatchDegradesWholeBatch(t *testing.T) {
	// Positional matching is unsafe when the response length is wrong, so
	// the whole batch falls back even though some labels looked usable.
	m := &Merger{
		Classifier: &stubClassifier{
			labels: map[string]string{"grocery": "groceries"},
			extra:  1,
		},
		Log: zerolog.Nop(),
	}

	out := m.Merge(context.Background(), sampleTxns())

	want := []string{"other", "income", "other"}
	for i, w := range want {
		if out[i].Category != w {
			t.Errorf("txn %d: got %q, want %q", i, out[i].Category, w)
		}
	}
}

func TestMerger_OutOfVocabularyLabel(t *testing.T) {
	// A single invalid label falls back alone; the rest of the batch keeps
	// its classified categories.
	m := &Merger{
		Classifier: &stubClassifier{labels: map[string]string{
			"grocery":  "groceries",
			"salary":   "cryptocurrency",
			"electric": "utilities",
		}},
		Log: zerolog.Nop(),
	}

	out := m.Merge(context.Background(), sampleTxns())

	want := []string{"groceries", "income", "utilities"}
	for i, w := range want {
		if out[i].Category != w {
			t.Errorf("txn %d: got %q, want %q", i, out[i].Category, w)
		}
	}
}

func TestMerger_LabelNormalization(t *testing.T) {
	m := &Merger{
		Classifier: &stubClassifier{labels: map[string]string{
			"grocery": "  Groceries ",
			"salary":  "INCOME",
		}},
		Log: zerolog.Nop(),
	}

	out := m.Merge(context.Background(), sampleTxns())

	if out[0].Category != "groceries" {
		t.Errorf("txn 0: got %q, want groceries", out[0].Category)
	}
	if out[1].Category != "income" {
		t.Errorf("txn 1: got %q, want income", out[1].Category)
	}
}

func TestMerger_BatchingPreservesOrder(t *testing.T) {
	var txns []models.Transaction
	for i := 0; i < 10; i++ {
		d := "GROCERY MART"
		if i%2 == 1 {
			d = "SALARY EMPLOYER"
		}
		txns = append(txns, models.Transaction{Description: d, Direction: models.Debit})
	}

	stub := &stubClassifier{labels: map[string]string{
		"grocery": "groceries",
		"salary":  "income",
	}}
	m := &Merger{Classifier: stub, BatchSize: 3, Log: zerolog.Nop()}

	out := m.Merge(context.Background(), txns)

	if stub.calls != 4 {
		t.Errorf("batches: got %d calls, want 4", stub.calls)
	}
	for i, txn := range out {
		want := "groceries"
		if i%2 == 1 {
			want = "income"
		}
		if txn.Category != want {
			t.Errorf("txn %d: got %q, want %q", i, txn.Category, want)
		}
	}
}

// slowClassifier honors cancellation but never answers in time.
type slowClassifier struct{}

func (slowClassifier) Classify(ctx context.Context, _, _ []string) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// stalledClassifier ignores cancellation entirely and blocks until released.
type stalledClassifier struct {
	release chan struct{}
}

func (s *stalledClassifier) Classify(context.Context, []string, []string) ([]string, error) {
	<-s.release
	return nil, errors.New("answered after abandonment")
}

func TestMerger_TimeoutFallsBack(t *testing.T) {
	m := &Merger{
		Classifier: slowClassifier{},
		Timeout:    10 * time.Millisecond,
		Log:        zerolog.Nop(),
	}

	out := m.Merge(context.Background(), sampleTxns())

	want := []string{"other", "income", "other"}
	for i, w := range want {
		if out[i].Category != w {
			t.Errorf("txn %d: got %q, want %q", i, out[i].Category, w)
		}
	}
}

func TestMerger_StalledClassifierDoesNotBlock(t *testing.T) {
	// A classifier that ignores cancellation must not stall the analysis:
	// the merge proceeds at the deadline and its batches fall back.
	stub := &stalledClassifier{release: make(chan struct{})}
	t.Cleanup(func() { close(stub.release) })

	m := &Merger{
		Classifier: stub,
		Timeout:    20 * time.Millisecond,
		Log:        zerolog.Nop(),
	}

	start := time.Now()
	out := m.Merge(context.Background(), sampleTxns())
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Fatalf("merge blocked for %v waiting on a stalled classifier", elapsed)
	}
	want := []string{"other", "income", "other"}
	for i, w := range want {
		if out[i].Category != w {
			t.Errorf("txn %d: got %q, want %q", i, out[i].Category, w)
		}
	}
}

func TestMerger_Idempotent(t *testing.T) {
	m := &Merger{
		Classifier: &stubClassifier{labels: map[string]string{"grocery": "groceries"}},
		Log:        zerolog.Nop(),
	}

	once := m.Merge(context.Background(), sampleTxns())
	twice := m.Merge(context.Background(), once)

	for i := range once {
		if once[i].Category != twice[i].Category {
			t.Errorf("txn %d: categories diverged: %q vs %q", i, once[i].Category, twice[i].Category)
		}
	}
}

func TestMerger_InputNotMutated(t *testing.T) {
	m := &Merger{Log: zerolog.Nop()}
	in := sampleTxns()

	_ = m.Merge(context.Background(), in)

	for i, txn := range in {
		if txn.Category != "" {
			t.Errorf("txn %d: input was mutated, category %q", i, txn.Category)
		}
	}
}

func TestFallback(t *testing.T) {
	tests := []struct {
		dir  models.Direction
		want string
	}{
		{models.Credit, "income"},
		{models.Debit, "other"},
		{models.Unknown, "other"},
	}

	for _, tt := range tests {
		if got := Fallback(tt.dir); got != tt.want {
			t.Errorf("Fallback(%q): got %q, want %q", tt.dir, got, tt.want)
		}
	}
}

func TestVocabularyIsACopy(t *testing.T) {
	v := Vocabulary()
	v[0] = "tampered"

	if Vocabulary()[0] == "tampered" {
		t.Error("Vocabulary() must return a copy")
	}
}
