// Package categorize assigns category labels to transactions by batching
// their descriptions out to an external classifier. Categorization is an
// enhancement, never a correctness requirement: any failure degrades to a
// deterministic fallback label instead of failing the analysis.
package categorize

import (
	"context"
	"strings"

	"github.com/insightdelivered/finsight/internal/models"
)

// vocabulary is the closed set of category names a classifier may return.
// Anything outside it is discarded in favor of the fallback.
var vocabulary = []string{
	"groceries",
	"utilities",
	"entertainment",
	"dining",
	"transportation",
	"shopping",
	"healthcare",
	"income",
	"other",
}

// Vocabulary returns a copy of the allowed category names.
func Vocabulary() []string {
	out := make([]string, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// Fallback is the deterministic default: credits are income, everything
// else (debits and unresolved rows) is other.
func Fallback(dir models.Direction) string {
	if dir == models.Credit {
		return "income"
	}
	return "other"
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validLabel(s string) bool {
	for _, v := range vocabulary {
		if s == v {
			return true
		}
	}
	return false
}

// Classifier is the external classification collaborator: it takes an
// ordered batch of transaction descriptions plus the allowed vocabulary
// and returns one label per description, in the same order. It may fail
// or time out; callers treat its output as best-effort.
type Classifier interface {
	Classify(ctx context.Context, descriptions []string, vocabulary []string) ([]string, error)
}
