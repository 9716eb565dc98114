// Package api exposes the analysis engine over HTTP. It is a thin
// boundary: upload validation and error mapping only, no engine logic.
package api

import (
	"errors"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/finsight/internal/engine"
	"github.com/insightdelivered/finsight/internal/extractor"
	"github.com/insightdelivered/finsight/internal/models"
)

// Version reported by the health endpoint.
const Version = "1.0.0"

// MaxUploadSize caps statement uploads at 10MB.
const MaxUploadSize = 10 << 20

// pageBreak separates pages in pre-extracted text uploads.
const pageBreak = "\n---PAGE_BREAK---\n"

// AnalyzeResponse is the JSON envelope for /api/analyze.
type AnalyzeResponse struct {
	Success bool                     `json:"success"`
	Data    *models.FinancialSummary `json:"data,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// Server holds the HTTP handlers.
type Server struct {
	Engine *engine.Engine
	Log    zerolog.Logger
}

// Register sets up the API routes on the fiber app.
func (s *Server) Register(app *fiber.App) {
	app.Get("/api/health", s.handleHealth)
	app.Post("/api/analyze", s.handleAnalyze)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "version": Version})
}

func (s *Server) handleAnalyze(c *fiber.Ctx) error {
	log := s.Log.With().Str("request_id", uuid.NewString()).Logger()

	// Pre-extracted text path: clients that already ran text extraction
	// send pages joined by the page-break marker instead of a file.
	if text := c.FormValue("extractedText"); text != "" {
		var pages []string
		for _, page := range strings.Split(text, pageBreak) {
			if page = strings.TrimSpace(page); page != "" {
				pages = append(pages, page)
			}
		}
		sum, err := s.Engine.AnalyzePages(c.UserContext(), pages)
		if err != nil {
			return s.writeError(c, log, err)
		}
		log.Info().Int("transactions", sum.TransactionCount).Msg("analyzed pre-extracted statement")
		return c.JSON(AnalyzeResponse{Success: true, Data: sum})
	}

	header, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "No file uploaded. Use form field 'file'.")
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		return badRequest(c, "Only PDF files are supported.")
	}
	if header.Size > MaxUploadSize {
		return badRequest(c, "File size must be under 10MB.")
	}

	tmp, err := os.CreateTemp("", "statement-*.pdf")
	if err != nil {
		return s.writeError(c, log, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := c.SaveFile(header, tmpPath); err != nil {
		return s.writeError(c, log, err)
	}

	sum, err := s.Engine.AnalyzeFile(c.UserContext(), tmpPath)
	if err != nil {
		return s.writeError(c, log, err)
	}

	log.Info().
		Str("file", header.Filename).
		Int("transactions", sum.TransactionCount).
		Msg("analyzed statement")
	return c.JSON(AnalyzeResponse{Success: true, Data: sum})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(AnalyzeResponse{Success: false, Error: msg})
}

// writeError maps engine errors onto HTTP statuses: documents we cannot
// make sense of are 422, everything else is a 500.
func (s *Server) writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, extractor.ErrUnreadableDocument),
		errors.Is(err, extractor.ErrEmptyDocument),
		errors.Is(err, engine.ErrNoTransactions):
		status = fiber.StatusUnprocessableEntity
	}
	log.Warn().Err(err).Int("status", status).Msg("analyze request failed")
	return c.Status(status).JSON(AnalyzeResponse{Success: false, Error: err.Error()})
}
