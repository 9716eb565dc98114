package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/finsight/internal/api"
	"github.com/insightdelivered/finsight/internal/categorize"
	"github.com/insightdelivered/finsight/internal/engine"
	"github.com/insightdelivered/finsight/internal/logger"
	"github.com/insightdelivered/finsight/internal/writer"
)

const version = "1.0.0"

func main() {
	// A missing .env is fine; the environment may be set directly. Loaded
	// before flag definitions so env values can seed the defaults.
	_ = godotenv.Load()

	serveFlag := flag.Bool("serve", false, "Run the HTTP API server instead of converting files")
	addrFlag := flag.String("addr", envOr("FINSIGHT_ADDR", ":8080"), "Listen address for --serve")
	outputFlag := flag.String("output", "", "Output CSV file path (defaults to input filename with .csv extension)")
	summaryFlag := flag.Bool("summary", true, "Include summary and breakdown blocks in CSV output")
	noClassifyFlag := flag.Bool("no-classify", false, "Skip the classification service; use fallback categories")
	modelFlag := flag.String("model", os.Getenv("FINSIGHT_MODEL"), "Classification model name (defaults to "+categorize.DefaultModel+")")
	versionFlag := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `FinSight Bank Statement Analyzer
by Insight Delivered

Extracts transactions from bank statement PDFs, reconciles them against
the printed balances, categorizes them, and writes a CSV report.

Usage:
  finsight [flags] <input.pdf> [input2.pdf ...]
  finsight --serve [--addr :8080]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Analyze a statement and write statement.csv
  finsight statement.pdf

  # Custom output path, no classification service
  finsight --no-classify --output=report.csv statement.pdf

  # Run the HTTP API
  finsight --serve --addr :9000

Environment:
  GEMINI_API_KEY      API key for the classification service
  FINSIGHT_MODEL      Classification model name
  FINSIGHT_ADDR       Default listen address for --serve
  FINSIGHT_LOG_LEVEL  debug, info, warn or error (default info)
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("finsight v%s\n", version)
		os.Exit(0)
	}

	log := logger.New()

	eng := buildEngine(log, *noClassifyFlag, *modelFlag)

	if *serveFlag {
		runServer(log, eng, *addrFlag)
		return
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	for _, inputPath := range flag.Args() {
		if err := processFile(eng, inputPath, *outputFlag, *summaryFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", inputPath, err)
			os.Exit(1)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func buildEngine(log zerolog.Logger, noClassify bool, model string) *engine.Engine {
	opts := []engine.Option{engine.WithLogger(log)}

	if !noClassify && os.Getenv("GEMINI_API_KEY") != "" {
		classifier, err := categorize.NewGeminiClassifier(context.Background(), model)
		if err != nil {
			log.Warn().Err(err).Msg("classification service unavailable, using fallback categories")
		} else {
			opts = append(opts, engine.WithClassifier(classifier))
		}
	} else if !noClassify {
		log.Info().Msg("GEMINI_API_KEY not set, using fallback categories")
	}

	return engine.New(opts...)
}

func runServer(log zerolog.Logger, eng *engine.Engine, addr string) {
	app := fiber.New(fiber.Config{
		AppName:   "finsight v" + version,
		BodyLimit: api.MaxUploadSize + 1<<20, // upload cap plus form overhead
	})
	srv := &api.Server{Engine: eng, Log: log}
	srv.Register(app)

	log.Info().Str("addr", addr).Msg("starting API server")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func processFile(eng *engine.Engine, inputPath, outputPath string, includeSummary bool) error {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", inputPath)
	}
	if ext := strings.ToLower(filepath.Ext(inputPath)); ext != ".pdf" {
		return fmt.Errorf("expected .pdf file, got %q", ext)
	}

	fmt.Printf("Processing: %s\n", inputPath)

	sum, err := eng.AnalyzeFile(context.Background(), inputPath)
	if err != nil {
		return err
	}

	fmt.Printf("  Found %d transaction(s)\n", sum.TransactionCount)
	fmt.Printf("  Income: %s  Expenses: %s  Net: %s\n",
		sum.TotalIncome.StringFixed(2), sum.TotalExpenses.StringFixed(2), sum.NetChange.StringFixed(2))
	if sum.OpeningBalance != nil && sum.ClosingBalance != nil {
		fmt.Printf("  Opening: %s  Closing: %s\n",
			sum.OpeningBalance.StringFixed(2), sum.ClosingBalance.StringFixed(2))
	}
	if sum.ClosingBalanceMismatch {
		fmt.Println("  Warning: closing balance does not match computed value")
	}
	if sum.BalanceWarnings > 0 {
		fmt.Printf("  Warning: %d row(s) with balance mismatches\n", sum.BalanceWarnings)
	}

	outPath := outputPath
	if outPath == "" {
		outPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".csv"
	}

	w := &writer.CSVWriter{IncludeSummary: includeSummary}
	if err := w.WriteToFile(outPath, sum); err != nil {
		return fmt.Errorf("CSV write failed: %w", err)
	}

	fmt.Printf("  Output: %s\n", outPath)
	fmt.Println("  Done.")
	return nil
}
