// Package engine runs one statement through text extraction, the
// deterministic strategies or the model pipeline, reconciliation and
// recurring-payment analysis.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/insightdelivered/statement-extractor/internal/ai"
	"github.com/insightdelivered/statement-extractor/internal/config"
	"github.com/insightdelivered/statement-extractor/internal/extractor"
	"github.com/insightdelivered/statement-extractor/internal/logger"
	"github.com/insightdelivered/statement-extractor/internal/mca"
	"github.com/insightdelivered/statement-extractor/internal/models"
	"github.com/insightdelivered/statement-extractor/internal/parser"
	"github.com/insightdelivered/statement-extractor/internal/reconcile"
)

// ErrFileNotFound is returned when the statement file does not exist.
var ErrFileNotFound = errors.New("file not found")

// MethodAI is the extraction method reported for model output.
const MethodAI = "ai"

// TextSource turns a statement file into a document.
type TextSource interface {
	Extract(ctx context.Context, path string) (*models.Document, error)
}

// ClientFactory builds the model client. It is only called when every
// deterministic strategy declines.
type ClientFactory func(ctx context.Context) (ai.Client, error)

// Engine holds what a run needs. It keeps no state between runs and is
// safe for concurrent use.
type Engine struct {
	Config       config.Config
	Source       TextSource
	Orchestrator *parser.Orchestrator
	Lenders      *mca.LenderTable
	NewClient    ClientFactory
	Now          func() time.Time
}

// New returns an engine with the PDF extractor, the default strategies
// and a retrying Gemini client.
func New(cfg config.Config, lenders *mca.LenderTable) *Engine {
	return &Engine{
		Config:       cfg,
		Source:       extractor.New(),
		Orchestrator: parser.NewOrchestrator(parser.DefaultStrategies(parser.DefaultKeywords())...),
		Lenders:      lenders,
		NewClient:    GeminiFactory(cfg),
		Now:          time.Now,
	}
}

// GeminiFactory returns a factory for a Gemini client wrapped in the
// configured retry policy.
func GeminiFactory(cfg config.Config) ClientFactory {
	return func(ctx context.Context) (ai.Client, error) {
		client, err := ai.NewGeminiClient(ctx, cfg.APIKey, cfg.RequestTimeout)
		if err != nil {
			return nil, err
		}
		return &ai.Retrier{
			Client: client,
			Backoff: ai.Backoff{
				MaxAttempts: cfg.MaxRetries,
				BaseDelay:   cfg.RetryBaseDelay,
				Fallback:    cfg.FallbackModel,
				CanFallback: cfg.IsCheap,
			},
		}, nil
	}
}

// Run extracts path. The returned result is never nil: on failure it
// carries Success false and the error message alongside the error.
func (e *Engine) Run(ctx context.Context, path string, rules []models.CorrectionRule) (*models.Result, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return failed(err), err
	}

	log := logger.FromContext(ctx)
	log.Info().Str("file", path).Msg("Extracting statement text")
	doc, err := e.Source.Extract(ctx, path)
	if err != nil {
		err = fmt.Errorf("text extraction: %w", err)
		return failed(err), err
	}
	return e.RunDocument(ctx, doc, rules)
}

// RunDocument runs everything after text extraction.
func (e *Engine) RunDocument(ctx context.Context, doc *models.Document, rules []models.CorrectionRule) (*models.Result, error) {
	runID := uuid.NewString()
	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{"run_id": runID})
	ctx = logger.WithContext(ctx, log)

	text := doc.Text()
	res := &models.Result{
		Metadata: models.Metadata{
			RunID:               runID,
			SourceFile:          doc.Path,
			PageCount:           doc.PageCount(),
			TextMethod:          doc.Method,
			BankName:            parser.DetectBank(doc),
			CharsExtracted:      len(text),
			CorrectionsSupplied: len(rules),
		},
	}
	log.Info().
		Int("pages", res.Metadata.PageCount).
		Int("chars", res.Metadata.CharsExtracted).
		Str("text_method", doc.Method).
		Str("bank", res.Metadata.BankName).
		Msg("Statement text ready")

	var (
		txns    []models.Transaction
		summary *models.StatementSummary
	)
	det, attempts := e.Orchestrator.Run(ctx, doc)
	res.Metadata.StrategyAttempts = attempts
	if det.Success {
		txns = det.Transactions
		res.Metadata.ExtractionMethod = "deterministic:" + det.Label
		if det.Bank != "" {
			res.Metadata.BankName = det.Bank
		}
		summary = reconcile.ScanSummary(text)
	} else {
		log.Info().Msg("No deterministic strategy matched, using the model")
		out, err := e.extractWithModel(ctx, text, rules)
		if err != nil {
			res.Success = false
			res.Error = err.Error()
			return res, err
		}
		txns = out.Transactions
		summary = out.Summary
		if summary.Empty() {
			summary = reconcile.ScanSummary(text)
		}
		res.Metadata.ExtractionMethod = MethodAI
		res.Metadata.ModelUsed = out.Model
		res.Metadata.ChunkCount = out.Chunks
		res.Metadata.CorrectionsApplied = out.Corrected
		res.Cost = Price(e.Config, out.Usage, out.Model)
	}

	if summary != nil {
		summary, res.ValidationWarnings = reconcile.Validate(ctx, summary, txns)
		if summary.AverageDailyBalance == nil && summary.BeginningBalance != nil {
			period, _ := reconcile.ScanPeriod(text)
			if adb, ok := reconcile.AverageDailyBalance(*summary.BeginningBalance, txns, period); ok {
				summary.AverageDailyBalance = models.Float(adb)
				log.Debug().Float64("average_daily_balance", adb).Msg("Average daily balance reconstructed")
			}
		}
	}
	res.StatementSummary = summary
	if res.ValidationWarnings == nil {
		res.ValidationWarnings = []models.Warning{}
	}

	txns, res.MCAAnalysis = mca.Classify(txns, e.Lenders)
	if txns == nil {
		txns = []models.Transaction{}
	}
	res.Transactions = txns
	res.Summary = models.Summarize(txns)
	res.Success = true

	log.Info().
		Str("method", res.Metadata.ExtractionMethod).
		Int("transactions", res.Summary.TotalTransactions).
		Int("lenders", res.MCAAnalysis.TotalLenderCount).
		Int("warnings", len(res.ValidationWarnings)).
		Msg("Extraction complete")
	return res, nil
}

func (e *Engine) extractWithModel(ctx context.Context, text string, rules []models.CorrectionRule) (ai.Output, error) {
	if e.NewClient == nil {
		return ai.Output{}, errors.New("no model client configured")
	}
	client, err := e.NewClient(ctx)
	if err != nil {
		return ai.Output{}, fmt.Errorf("model client: %w", err)
	}
	p := &ai.Pipeline{
		Client:          client,
		Model:           e.Config.Model,
		ChunkTokens:     e.Config.ChunkTokens,
		OverlapLines:    e.Config.ChunkOverlapLines,
		MaxOutputTokens: e.Config.MaxOutputTokens,
		Now:             e.Now,
	}
	out, err := p.Extract(ctx, text, rules)
	if err != nil {
		return ai.Output{}, fmt.Errorf("model extraction: %w", err)
	}
	return out, nil
}

func failed(err error) *models.Result {
	return &models.Result{
		Success:            false,
		Error:              err.Error(),
		Transactions:       []models.Transaction{},
		ValidationWarnings: []models.Warning{},
		MCAAnalysis:        models.MCAAnalysis{Lenders: []models.LenderSummary{}},
	}
}
