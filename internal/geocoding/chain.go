package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/hermes/internal/metrics"
	"github.com/UnknownOlympus/hermes/internal/models"
)

// Common errors for the provider chain.
var (
	ErrGeocodingExhausted = errors.New("all geocoding providers failed")
	ErrEmptyResult        = errors.New("provider returned no coordinates")
)

// Step is a single attempt of the fallback chain: one provider queried with one address text.
type Step struct {
	Name         string   // Name of the strategy, e.g. "primary", "simplified".
	ProviderName string   // ProviderName labels logs and metrics, e.g. "google".
	Provider     Provider // Provider to query.
	Address      string   // Address is the text sent to the provider.
}

// ProviderError describes why one step of the chain failed.
type ProviderError struct {
	Step     string
	Provider string
	Address  string
	TimedOut bool
	Err      error
}

func (e *ProviderError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("%s step via %s timed out: %v", e.Step, e.Provider, e.Err)
	}
	return fmt.Sprintf("%s step via %s failed: %v", e.Step, e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Attempt is the successful outcome of a chain run.
type Attempt struct {
	Coordinates models.Coordinates
	Step        string
	Provider    string
}

// Chain runs steps strictly in sequence and stops at the first success.
type Chain struct {
	Timeout time.Duration    // Timeout bounds each provider call, zero means no per-step limit.
	Log     *slog.Logger     // Log receives one entry per step, slog.Default() when nil.
	Metrics *metrics.Metrics // Metrics is optional.
}

// TryInOrder queries the steps one after another. A failed or timed out step falls through
// to the next one; a step repeating an earlier provider/address pair is skipped. When every
// step fails the returned error matches ErrGeocodingExhausted and carries each *ProviderError.
// Cancellation of ctx aborts the chain immediately with the context error.
func (c Chain) TryInOrder(ctx context.Context, steps []Step) (Attempt, error) {
	log := c.Log
	if log == nil {
		log = slog.Default()
	}
	tried := make(map[string]bool, len(steps))
	failures := []error{ErrGeocodingExhausted}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return Attempt{}, fmt.Errorf("geocoding aborted: %w", err)
		}

		key := step.ProviderName + "\x00" + step.Address
		if step.Provider == nil || step.Address == "" || tried[key] {
			continue
		}
		tried[key] = true

		coords, err := c.run(ctx, step)
		if err == nil {
			log.InfoContext(ctx, "Address geocoded",
				"step", step.Name, "provider", step.ProviderName, "lat", coords.Latitude, "lng", coords.Longitude)
			return Attempt{Coordinates: *coords, Step: step.Name, Provider: step.ProviderName}, nil
		}

		if ctx.Err() != nil {
			return Attempt{}, fmt.Errorf("geocoding aborted: %w", ctx.Err())
		}

		perr := &ProviderError{
			Step:     step.Name,
			Provider: step.ProviderName,
			Address:  step.Address,
			TimedOut: errors.Is(err, context.DeadlineExceeded),
			Err:      err,
		}
		failures = append(failures, perr)
		if c.Metrics != nil {
			c.Metrics.ProviderErrors.WithLabelValues(step.ProviderName).Inc()
		}
		log.WarnContext(ctx, "Geocoding step failed, falling through",
			"step", step.Name, "provider", step.ProviderName, "address", step.Address, "error", err)
	}

	return Attempt{}, errors.Join(failures...)
}

func (c Chain) run(ctx context.Context, step Step) (*models.Coordinates, error) {
	stepCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	start := time.Now()
	coords, err := step.Provider.Geocode(stepCtx, step.Address)
	if c.Metrics != nil {
		c.Metrics.RequestSeconds.WithLabelValues(step.ProviderName).Observe(time.Since(start).Seconds())
	}

	if err == nil && coords == nil {
		err = ErrEmptyResult
	}
	if err == nil && stepCtx.Err() != nil {
		// A provider ignoring its deadline still counts as timed out.
		err = stepCtx.Err()
	}

	return coords, err
}
