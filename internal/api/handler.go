package api

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-extractor/internal/config"
	"github.com/insightdelivered/statement-extractor/internal/logger"
	"github.com/insightdelivered/statement-extractor/internal/models"
	"github.com/insightdelivered/statement-extractor/internal/writer"
)

// pageBreak separates pages in pre-extracted text.
const pageBreak = "\n---PAGE_BREAK---\n"

// Extractor runs a statement through the extraction engine.
type Extractor interface {
	Run(ctx context.Context, path string, rules []models.CorrectionRule) (*models.Result, error)
	RunDocument(ctx context.Context, doc *models.Document, rules []models.CorrectionRule) (*models.Result, error)
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Engine  Extractor
	Log     zerolog.Logger
	Version string
}

// NewApp returns a fiber app with the API routes registered.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "statement-extractor",
		BodyLimit:             32 << 20,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return writeError(c, code, err.Error())
		},
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	h.Register(app)
	return app
}

// Register sets up the routes.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)
	app.Post("/api/extract", h.HandleExtract)
}

// HandleHealth reports that the service is up.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": h.Version,
		"engine":  "fiber",
	})
}

// HandleExtract extracts transactions from an uploaded PDF (form field
// "file") or from pre-extracted page text (form field "text", pages
// separated by "---PAGE_BREAK---" lines). Optional fields: "corrections",
// a JSON array of correction rules, and "format=csv".
func (h *Handler) HandleExtract(c *fiber.Ctx) error {
	rules, err := config.ParseCorrections([]byte(c.FormValue("corrections")))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, err.Error())
	}

	ctx := logger.WithContext(c.UserContext(), h.Log)

	var (
		res    *models.Result
		runErr error
	)
	if text := c.FormValue("text"); strings.TrimSpace(text) != "" {
		var pages []string
		for _, page := range strings.Split(text, pageBreak) {
			if page = strings.TrimSpace(page); page != "" {
				pages = append(pages, page)
			}
		}
		res, runErr = h.Engine.RunDocument(ctx, models.NewTextDocument(pages...), rules)
	} else {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "No file uploaded. Use form field 'file' or 'text'.")
		}
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
			return writeError(c, fiber.StatusBadRequest, "Only PDF files are supported.")
		}

		dir, err := os.MkdirTemp("", "statement-*")
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "Failed to create temp dir.")
		}
		defer os.RemoveAll(dir)

		path := filepath.Join(dir, filepath.Base(fh.Filename))
		if err := c.SaveFile(fh, path); err != nil {
			return writeError(c, fiber.StatusInternalServerError, "Failed to save uploaded file.")
		}
		res, runErr = h.Engine.Run(ctx, path, rules)
		if res != nil {
			res.Metadata.SourceFile = fh.Filename
		}
	}

	if runErr != nil {
		h.Log.Error().Err(runErr).Msg("Extraction failed")
		if res == nil {
			return writeError(c, fiber.StatusUnprocessableEntity, runErr.Error())
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(res)
	}

	if strings.EqualFold(c.FormValue("format"), "csv") {
		var buf bytes.Buffer
		w := &writer.CSVWriter{IncludeHeader: c.FormValue("header") != "false"}
		if err := w.Write(&buf, res); err != nil {
			return writeError(c, fiber.StatusInternalServerError, err.Error())
		}
		c.Type("csv")
		return c.Send(buf.Bytes())
	}
	return c.JSON(res)
}

func writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(&models.Result{
		Success:            false,
		Error:              msg,
		Transactions:       []models.Transaction{},
		ValidationWarnings: []models.Warning{},
		MCAAnalysis:        models.MCAAnalysis{Lenders: []models.LenderSummary{}},
	})
}
