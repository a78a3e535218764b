// Package page drives a single page load: identifier extraction, resolution
// and the loading, ready and error states.
package page

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"audioflow/internal/i18n"
	"audioflow/pkg/audiometa"
)

// State is the page's load state.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Resolver resolves identifiers to records.
type Resolver interface {
	Resolve(ctx context.Context, id string) audiometa.Result
}

// Options configures a Controller.
type Options struct {
	// Strict rejects a missing identifier instead of loading the demo record.
	Strict bool
	// DemoIdentifier is resolved when no identifier is present in non-strict mode.
	DemoIdentifier string
	Localizer      *i18n.Localizer
}

// Snapshot is the observable page state.
type Snapshot struct {
	State      State             `json:"state"`
	Record     *audiometa.Record `json:"record,omitempty"`
	Message    string            `json:"message,omitempty"`
	Identifier string            `json:"identifier,omitempty"`
	Fallback   bool              `json:"fallback,omitempty"`
}

// Controller owns the state of one page.
type Controller struct {
	resolver Resolver
	opts     Options
	logger   *zap.Logger

	mu       sync.Mutex
	snapshot Snapshot
	lastID   string
	lastOK   bool
}

// NewController creates a controller in the loading state.
func NewController(resolver Resolver, opts Options, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Localizer == nil {
		opts.Localizer = i18n.NewLocalizer(i18n.DefaultLanguage)
	}
	if opts.DemoIdentifier == "" {
		opts.DemoIdentifier = audiometa.FallbackRecord().ID
	}
	return &Controller{
		resolver: resolver,
		opts:     opts,
		logger:   logger,
		snapshot: Snapshot{State: StateLoading},
	}
}

// Load runs the load sequence for identifier. ok reports whether the request
// carried an identifier at all.
func (c *Controller) Load(ctx context.Context, identifier string, ok bool) Snapshot {
	c.mu.Lock()
	c.lastID, c.lastOK = identifier, ok
	c.snapshot = Snapshot{State: StateLoading, Identifier: identifier}
	c.mu.Unlock()

	next := c.load(ctx, identifier, ok)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = next
	return c.snapshot
}

// Retry repeats the last load.
func (c *Controller) Retry(ctx context.Context) Snapshot {
	c.mu.Lock()
	id, ok := c.lastID, c.lastOK
	c.mu.Unlock()

	return c.Load(ctx, id, ok)
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

func (c *Controller) load(ctx context.Context, identifier string, ok bool) Snapshot {
	if !ok || identifier == "" {
		if c.opts.Strict {
			c.logger.Debug("No identifier in request")
			return c.failed(identifier, audiometa.Failure(audiometa.ErrMissingIdentifier))
		}
		identifier = c.opts.DemoIdentifier
		c.logger.Debug("No identifier in request, loading demo", zap.String("identifier", identifier))
	}

	result := c.resolver.Resolve(ctx, identifier)
	if !result.Success || result.Audio == nil {
		return c.failed(identifier, result)
	}

	return Snapshot{
		State:      StateReady,
		Record:     result.Audio,
		Identifier: identifier,
		Fallback:   result.Fallback,
	}
}

func (c *Controller) failed(identifier string, result audiometa.Result) Snapshot {
	msg := c.messageFor(result)
	c.logger.Info("Page load failed",
		zap.String("identifier", identifier),
		zap.String("message", msg),
		zap.Error(result.Err))

	return Snapshot{
		State:      StateError,
		Message:    msg,
		Identifier: identifier,
	}
}

func (c *Controller) messageFor(result audiometa.Result) string {
	t := c.opts.Localizer.T

	var remote *audiometa.RemoteError
	switch {
	case errors.Is(result.Err, audiometa.ErrMissingIdentifier):
		return t("error.no_identifier")
	case errors.As(result.Err, &remote) && remote.Message != "":
		return remote.Message
	case errors.Is(result.Err, audiometa.ErrNotFound):
		return t("error.not_found")
	case errors.Is(result.Err, audiometa.ErrUnavailable):
		return t("error.unavailable")
	default:
		return t("error.generic")
	}
}
