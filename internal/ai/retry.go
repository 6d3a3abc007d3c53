package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/insightdelivered/statement-extractor/internal/logger"
)

// retryableCodes are HTTP statuses worth retrying: rate limit, internal
// error, unavailable and overloaded.
var retryableCodes = map[int]bool{429: true, 500: true, 503: true, 529: true}

var retryableMessages = []string{
	"overloaded",
	"internal server error",
	"rate limit",
	"resource exhausted",
	"resource_exhausted",
	"unavailable",
}

// IsRetryable reports whether err is a transient service failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && retryableCodes[apiErr.Code] {
		return true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && retryableCodes[apiErrPtr.Code] {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range retryableMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Backoff is the retry schedule for one request: up to MaxAttempts tries
// with BaseDelay doubling between them. When every attempt fails
// transiently and CanFallback accepts the model, one more try is made
// against Fallback.
type Backoff struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Fallback    string
	CanFallback func(model string) bool
}

type action int

const (
	actionFail action = iota
	actionRetry
	actionFallback
)

// decision is what to do after a failed attempt.
type decision struct {
	action action
	delay  time.Duration
	model  string
}

// decide is the retry state machine. attempt counts from zero; fellBack
// is set once the fallback model has been tried.
func (b Backoff) decide(attempt int, model string, fellBack bool, err error) decision {
	if !IsRetryable(err) || fellBack {
		return decision{action: actionFail}
	}
	if attempt < b.MaxAttempts-1 {
		return decision{action: actionRetry, delay: b.BaseDelay << attempt, model: model}
	}
	if b.Fallback != "" && b.Fallback != model && b.CanFallback != nil && b.CanFallback(model) {
		return decision{action: actionFallback, model: b.Fallback}
	}
	return decision{action: actionFail}
}

// Retrier wraps a Client with Backoff.
type Retrier struct {
	Client  Client
	Backoff Backoff
	Sleep   Sleeper
}

var _ Client = (*Retrier)(nil)

func (r *Retrier) Generate(ctx context.Context, req Request) (Response, error) {
	log := logger.FromContext(ctx)
	sleep := r.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	model := req.Model
	fellBack := false
	for attempt := 0; ; attempt++ {
		req.Model = model
		resp, err := r.Client.Generate(ctx, req)
		if err == nil {
			if fellBack {
				log.Info().Str("model", model).Msg("Fallback model succeeded")
			}
			return resp, nil
		}

		d := r.Backoff.decide(attempt, model, fellBack, err)
		switch d.action {
		case actionRetry:
			log.Warn().Err(err).
				Int("attempt", attempt+1).
				Int("max_attempts", r.Backoff.MaxAttempts).
				Dur("wait", d.delay).
				Msg("Transient model error, retrying")
			if err := sleep(ctx, d.delay); err != nil {
				return Response{}, fmt.Errorf("retry wait: %w", err)
			}
		case actionFallback:
			log.Warn().Err(err).
				Str("from", model).
				Str("to", d.model).
				Msg("Model unavailable after all attempts, falling back")
			model, fellBack = d.model, true
		default:
			if IsRetryable(err) {
				return Response{}, fmt.Errorf("model unavailable after %d attempts: %w", attempt+1, err)
			}
			return Response{}, err
		}
	}
}
