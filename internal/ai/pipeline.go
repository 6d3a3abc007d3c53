package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/insightdelivered/statement-extractor/internal/logger"
	"github.com/insightdelivered/statement-extractor/internal/models"
)

// Pipeline extracts transactions from statement text with a model.
type Pipeline struct {
	Client          Client
	Model           string
	ChunkTokens     int
	OverlapLines    int
	MaxOutputTokens int
	// Now supplies the year assumed for dates without one.
	Now func() time.Time
}

// Usage is the token count billed to one model.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Output is the result of a pipeline run.
type Output struct {
	Transactions []models.Transaction
	// Summary is the first statement summary any chunk reported.
	Summary *models.StatementSummary
	// Model is the model that answered the last chunk.
	Model string
	// Usage is keyed by the model that was billed.
	Usage      map[string]Usage
	Chunks     int
	Duplicates int
	Corrected  int
}

// TotalUsage sums usage over every model.
func (o Output) TotalUsage() Usage {
	var u Usage
	for _, m := range o.Usage {
		u.InputTokens += m.InputTokens
		u.OutputTokens += m.OutputTokens
	}
	return u
}

// Extract runs the pipeline over text. Only a model call that fails for
// good is an error; an unreadable reply counts as no transactions.
func (p *Pipeline) Extract(ctx context.Context, text string, rules []models.CorrectionRule) (Output, error) {
	log := logger.FromContext(ctx)
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	year := now().Year()

	chunks := Chunk(text, p.ChunkTokens, p.OverlapLines)
	log.Info().
		Int("chars", len(text)).
		Int("estimated_tokens", EstimateTokens(text)).
		Int("chunks", len(chunks)).
		Str("model", p.Model).
		Msg("Starting model extraction")

	out := Output{Model: p.Model, Usage: map[string]Usage{}, Chunks: len(chunks)}
	system := SystemPrompt(year, rules)

	var all []models.Transaction
	for i, chunk := range chunks {
		resp, err := p.Client.Generate(ctx, Request{
			Model:           p.Model,
			SystemPrompt:    system,
			UserMessage:     UserMessage(chunk, i+1, len(chunks)),
			MaxOutputTokens: p.MaxOutputTokens,
		})
		if err != nil {
			return Output{}, fmt.Errorf("chunk %d of %d: %w", i+1, len(chunks), err)
		}

		model := resp.Model
		if model == "" {
			model = p.Model
		}
		u := out.Usage[model]
		u.InputTokens += resp.InputTokens
		u.OutputTokens += resp.OutputTokens
		out.Usage[model] = u
		out.Model = model

		reply := ParseReply(resp.Text, year)
		log.Debug().
			Int("chunk", i+1).
			Int("response_chars", len(resp.Text)).
			Int("input_tokens", resp.InputTokens).
			Int("output_tokens", resp.OutputTokens).
			Str("tier", reply.Tier).
			Int("transactions", len(reply.Transactions)).
			Msg("Chunk processed")
		if reply.Tier != TierDirect {
			log.Warn().Int("chunk", i+1).Str("tier", reply.Tier).Msg("Model reply was not valid JSON, recovered")
		}

		all = append(all, reply.Transactions...)
		// first chunk with a balance wins
		if out.Summary == nil && !reply.Summary.Empty() {
			out.Summary = reply.Summary
		}
	}

	// Only overlapping chunks can repeat a transaction. Within one chunk
	// identical rows are real and kept.
	if len(chunks) > 1 {
		deduped := Dedupe(all)
		out.Duplicates = len(all) - len(deduped)
		log.Info().
			Int("before", len(all)).
			Int("after", len(deduped)).
			Msg("Removed chunk overlap duplicates")
		all = deduped
	}

	out.Transactions, out.Corrected = ApplyCorrections(all, rules)
	if out.Corrected > 0 {
		log.Info().Int("corrected", out.Corrected).Msg("Applied correction rules")
	}
	return out, nil
}
