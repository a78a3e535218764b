package audiometa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Policy controls how lookup failures are reported.
type Policy struct {
	// Strict makes every lookup failure a failed result. When false the
	// Fallback record is returned instead.
	Strict bool
	// Fallback is the record substituted in non-strict mode.
	Fallback Record
	// FallbackDelay is waited before the fallback record is returned.
	FallbackDelay time.Duration
}

// DefaultPolicy returns a strict policy with the canonical fallback record.
func DefaultPolicy() Policy {
	return Policy{
		Strict:   true,
		Fallback: FallbackRecord(),
	}
}

// Resolver turns identifiers into results. It always settles.
type Resolver struct {
	lookup Lookup
	policy Policy
	logger *zap.Logger
}

// NewResolver creates a resolver over lookup.
func NewResolver(lookup Lookup, policy Policy, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		lookup: lookup,
		policy: policy,
		logger: logger,
	}
}

// Resolve looks up id and applies the failure policy.
func (r *Resolver) Resolve(ctx context.Context, id string) Result {
	id = strings.TrimSpace(id)
	if id == "" {
		return Failure(ErrMissingIdentifier)
	}

	record, err := r.safeLookup(ctx, id)
	if err == nil {
		return Success(record)
	}

	if r.policy.Strict {
		r.logger.Info("Audio lookup failed", zap.String("id", id), zap.Error(err))
		return Failure(err)
	}

	r.logger.Warn("Audio lookup failed, falling back to mock data",
		zap.String("id", id), zap.Error(err))

	if r.policy.FallbackDelay > 0 {
		timer := time.NewTimer(r.policy.FallbackDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Failure(fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err()))
		case <-timer.C:
		}
	}

	fallback := r.policy.Fallback
	result := Success(&fallback)
	result.Fallback = true
	return result
}

func (r *Resolver) safeLookup(ctx context.Context, id string) (record *Record, err error) {
	defer func() {
		if p := recover(); p != nil {
			record = nil
			err = fmt.Errorf("%w: lookup panicked: %v", ErrUnavailable, p)
		}
	}()

	record, err = r.lookup.Lookup(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrUnavailable) {
			err = fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return record, nil
}
