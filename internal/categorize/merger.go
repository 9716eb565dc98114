package categorize

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/insightdelivered/finsight/internal/models"
)

const (
	// DefaultBatchSize keeps each request comfortably inside the
	// collaborator's request-size limits.
	DefaultBatchSize = 40
	// DefaultTimeout bounds the wall-clock cost of categorization for one
	// statement; batches still in flight at the deadline fall back.
	DefaultTimeout = 30 * time.Second
)

// Merger batches transaction descriptions to a Classifier and merges the
// returned labels back on. Batches are dispatched concurrently and
// re-joined by batch index, so result ordering never depends on arrival
// order. Merging is idempotent: the same transactions plus the same
// classifier responses always yield the same categories.
type Merger struct {
	Classifier Classifier
	BatchSize  int
	Timeout    time.Duration
	Log        zerolog.Logger
}

// Merge returns a new transaction slice with Category set on every entry.
// It never fails: a nil classifier, an error, a timeout, a response of the
// wrong length, or a label outside the vocabulary all degrade to the
// direction-based fallback for the affected transactions.
func (m *Merger) Merge(ctx context.Context, txns []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, len(txns))
	copy(out, txns)
	if len(out) == 0 {
		return out
	}

	batchSize := m.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	type batch struct {
		start        int
		descriptions []string
	}
	var batches []batch
	for start := 0; start < len(out); start += batchSize {
		end := start + batchSize
		if end > len(out) {
			end = len(out)
		}
		descriptions := make([]string, 0, end-start)
		for _, t := range out[start:end] {
			descriptions = append(descriptions, t.Description)
		}
		batches = append(batches, batch{start: start, descriptions: descriptions})
	}

	results := make([][]string, len(batches))
	if m.Classifier != nil {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		type batchResult struct {
			index  int
			labels []string
		}
		// Buffered so batches finishing after the deadline never block.
		done := make(chan batchResult, len(batches))
		for i, b := range batches {
			go func(i int, b batch) {
				labels, err := m.Classifier.Classify(cctx, b.descriptions, Vocabulary())
				if err != nil {
					m.Log.Warn().Err(err).Int("batch", i).Msg("classification failed, using fallback categories")
					done <- batchResult{index: i}
					return
				}
				if len(labels) != len(b.descriptions) {
					// A misaligned response makes positional matching
					// unsafe for the whole batch.
					m.Log.Warn().Int("batch", i).
						Int("want", len(b.descriptions)).Int("got", len(labels)).
						Msg("classifier returned wrong label count, using fallback categories")
					done <- batchResult{index: i}
					return
				}
				done <- batchResult{index: i, labels: labels}
			}(i, b)
		}

		// Collect until the deadline, even if a classifier ignores
		// cancellation: batches still in flight are abandoned and fall
		// back, they must not stall the whole analysis.
	collect:
		for pending := len(batches); pending > 0; pending-- {
			select {
			case r := <-done:
				results[r.index] = r.labels
			case <-cctx.Done():
				m.Log.Warn().Int("pending", pending).
					Msg("classification deadline reached, using fallback categories for batches in flight")
				break collect
			}
		}
	}

	for i, b := range batches {
		for j := range b.descriptions {
			txn := &out[b.start+j]
			label := ""
			if results[i] != nil {
				label = normalizeLabel(results[i][j])
			}
			if !validLabel(label) {
				label = Fallback(txn.Direction)
			}
			txn.Category = label
		}
	}

	return out
}
