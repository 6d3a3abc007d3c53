package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-extractor/internal/api"
	"github.com/insightdelivered/statement-extractor/internal/config"
	"github.com/insightdelivered/statement-extractor/internal/engine"
	"github.com/insightdelivered/statement-extractor/internal/logger"
	"github.com/insightdelivered/statement-extractor/internal/mca"
	"github.com/insightdelivered/statement-extractor/internal/models"
	"github.com/insightdelivered/statement-extractor/internal/writer"
)

const version = "2.0.0"

func main() {
	// CLI flags
	formatFlag := flag.String("format", "json", "Output format: json or csv")
	outputFlag := flag.String("output", "", "Write the result to this file instead of stdout")
	headerFlag := flag.Bool("header", true, "Include statement metadata rows in CSV output")
	correctionsFlag := flag.String("corrections", "", "Correction rules: a JSON array or the path of a JSON file")
	lendersFlag := flag.String("lenders", "", "YAML file replacing the built-in lender table")
	pricingFlag := flag.String("pricing", "", "YAML file with model prices per million tokens")
	modelFlag := flag.String("model", "", "Model for AI extraction (overrides STATEMENT_MODEL)")
	envFlag := flag.String("env", ".env", "Environment file to load")
	debugLogFlag := flag.String("debug-log", "", "Append debug-level JSON logs to this file")
	serveFlag := flag.String("serve", "", "Serve the HTTP API on this address (e.g. :8080) instead of extracting a file")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	helpFlag := flag.Bool("help", false, "Show usage help")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Bank Statement Transaction Extractor
by Insight Delivered

Extracts dated credit/debit transactions from bank statement PDFs of any
layout, reconciles them against the statement balances and flags
recurring merchant-cash-advance payments.

Usage:
  statement-extractor [flags] <statement.pdf>
  statement-extractor -serve :8080

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # JSON result on stdout
  statement-extractor statement.pdf

  # CSV of the transactions
  statement-extractor -format csv -output december.csv statement.pdf

  # Apply learned corrections
  statement-extractor -corrections '[{"description_pattern":"zelle from j smith","correct_type":"credit"}]' statement.pdf

Environment:
  GEMINI_API_KEY      API key for AI extraction (only needed when no
                      deterministic strategy recognizes the layout)
  STATEMENT_MODEL     Model for AI extraction (default gemini-2.5-flash)
  LOG_LEVEL           debug, info, warn or error
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("statement-extractor v%s\n", version)
		os.Exit(0)
	}

	if *helpFlag || (flag.NArg() == 0 && *serveFlag == "") {
		flag.Usage()
		os.Exit(0)
	}

	if *formatFlag != "json" && *formatFlag != "csv" {
		fatalf("Unknown format %q. Supported: json, csv\n", *formatFlag)
	}

	cfg, err := config.Load(*envFlag)
	if err != nil {
		fatalf("Configuration error: %v\n", err)
	}
	if *modelFlag != "" {
		cfg.Model = *modelFlag
	}
	if *pricingFlag != "" {
		if err := cfg.LoadPricing(*pricingFlag); err != nil {
			fatalf("Pricing error: %v\n", err)
		}
	}

	log := logger.New(cfg.LogLevel)
	if *debugLogFlag != "" {
		f, err := os.OpenFile(*debugLogFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fatalf("Cannot open debug log: %v\n", err)
		}
		defer f.Close()
		log = logger.NewTee(cfg.LogLevel, f)
	}

	lenders, err := loadLenders(*lendersFlag)
	if err != nil {
		fatalf("Lender table error: %v\n", err)
	}
	eng := engine.New(cfg, lenders)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	if *serveFlag != "" {
		if err := serve(ctx, *serveFlag, eng, log); err != nil {
			log.Error().Err(err).Msg("Server stopped")
			stop()
			os.Exit(1)
		}
		return
	}

	rules, err := config.LoadCorrections(*correctionsFlag)
	if err != nil {
		fatalf("Corrections error: %v\n", err)
	}

	res, runErr := eng.Run(ctx, flag.Arg(0), rules)
	if runErr != nil {
		log.Error().Err(runErr).Str("file", flag.Arg(0)).Msg("Extraction failed")
	}
	if err := emit(res, *formatFlag, *outputFlag, *headerFlag); err != nil {
		log.Error().Err(err).Msg("Writing result failed")
		stop()
		os.Exit(1)
	}
	if runErr != nil {
		stop()
		os.Exit(1)
	}
}

func loadLenders(path string) (*mca.LenderTable, error) {
	if path == "" {
		return mca.DefaultLenders()
	}
	return mca.LoadLenders(path)
}

// emit writes the result. A failed run is always reported as JSON.
func emit(res *models.Result, format, outputPath string, header bool) error {
	if format == "csv" && res.Success {
		w := &writer.CSVWriter{IncludeHeader: header}
		if outputPath != "" {
			return w.WriteToFile(outputPath, res)
		}
		return w.Write(os.Stdout, res)
	}

	out := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file %q: %w", outputPath, err)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func serve(ctx context.Context, addr string, eng *engine.Engine, log zerolog.Logger) error {
	app := api.NewApp(&api.Handler{Engine: eng, Log: log, Version: version})

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down")
		app.Shutdown()
	}()

	log.Info().Str("addr", addr).Msg("Serving API")
	return app.Listen(addr)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
