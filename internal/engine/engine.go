// Package engine wires the analysis pipeline: extract → parse → reconcile
// → categorize → aggregate. One Engine serves any number of concurrent
// requests; it holds no per-request state.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/finsight/internal/categorize"
	"github.com/insightdelivered/finsight/internal/extractor"
	"github.com/insightdelivered/finsight/internal/models"
	"github.com/insightdelivered/finsight/internal/parser"
	"github.com/insightdelivered/finsight/internal/reconcile"
	"github.com/insightdelivered/finsight/internal/summary"
)

// ErrNoTransactions means the document decoded to text but no transaction
// rows could be parsed, so there is no meaningful result to return.
var ErrNoTransactions = errors.New("no transactions found in statement")

// Engine runs the statement analysis pipeline.
type Engine struct {
	classifier categorize.Classifier
	tolerance  decimal.Decimal
	batchSize  int
	timeout    time.Duration
	log        zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClassifier sets the external classification collaborator. Without
// one, every transaction gets its direction-based fallback category.
func WithClassifier(c categorize.Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// WithTolerance sets the balance-mismatch tolerance in currency units.
func WithTolerance(t decimal.Decimal) Option {
	return func(e *Engine) { e.tolerance = t }
}

// WithBatchSize sets the classification batch size.
func WithBatchSize(n int) Option {
	return func(e *Engine) { e.batchSize = n }
}

// WithTimeout bounds the wall-clock time spent on categorization.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithLogger sets the engine logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New creates an Engine with the given options.
func New(opts ...Option) *Engine {
	e := &Engine{
		tolerance: reconcile.DefaultTolerance,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AnalyzeFile runs the full pipeline on a PDF file.
func (e *Engine) AnalyzeFile(ctx context.Context, path string) (*models.FinancialSummary, error) {
	lines, err := extractor.ExtractLines(path)
	if err != nil {
		return nil, err
	}
	return e.analyze(ctx, lines)
}

// AnalyzePages runs the pipeline on already-extracted page texts, e.g.
// text extracted client-side or by a different extraction front end.
func (e *Engine) AnalyzePages(ctx context.Context, pages []string) (*models.FinancialSummary, error) {
	lines := extractor.LinesFromPages(pages)
	if len(lines) == 0 {
		return nil, extractor.ErrEmptyDocument
	}
	return e.analyze(ctx, lines)
}

func (e *Engine) analyze(ctx context.Context, lines []models.RawLine) (*models.FinancialSummary, error) {
	layout := parser.DetectLayout(lines)
	p, err := parser.New(layout)
	if err != nil {
		return nil, err
	}

	res, err := p.Parse(lines)
	if err != nil {
		return nil, err
	}
	if len(res.Transactions) == 0 {
		return nil, ErrNoTransactions
	}
	e.log.Debug().
		Str("layout", string(res.Layout)).
		Int("transactions", len(res.Transactions)).
		Msg("parsed statement")

	rec := reconcile.Reconcile(res.Context, res.Transactions, e.tolerance)
	if rec.WarningCount > 0 {
		e.log.Info().Int("warnings", rec.WarningCount).Msg("balance mismatches during reconciliation")
	}

	merger := &categorize.Merger{
		Classifier: e.classifier,
		BatchSize:  e.batchSize,
		Timeout:    e.timeout,
		Log:        e.log,
	}
	rec.Transactions = merger.Merge(ctx, rec.Transactions)

	return summary.Build(rec), nil
}
