package audiometa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"audioflow/pkg/validator"
)

const (
	// DefaultEndpointPath is the lookup path served by the page host.
	DefaultEndpointPath = "/api/formsAPI/getAudio"
	// defaultRemoteTimeout bounds a single lookup request.
	defaultRemoteTimeout = 10 * time.Second
	// maxResponseSize limits how much of a lookup response is read.
	maxResponseSize = 64 * 1024
	// maxRedirects is the maximum number of HTTP redirects to follow.
	maxRedirects = 3
)

var (
	// ErrTooManyRedirects is returned when too many redirects are encountered.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// Request is the lookup endpoint's request body.
type Request struct {
	UniqueID string `json:"uniqueId" validate:"required,max=256"`
}

// Response is the lookup endpoint's response body as received on the wire.
type Response struct {
	Success *bool   `json:"success" validate:"required"`
	Audio   *Record `json:"audio"`
	Message string  `json:"message"`
}

// RemoteError carries the message of a well-formed negative response.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return "remote lookup reported failure"
	}
	return "remote lookup reported failure: " + e.Message
}

// Unwrap classifies negative responses as not found.
func (e *RemoteError) Unwrap() error {
	return ErrNotFound
}

// RemoteLookup queries a lookup endpoint over HTTP.
type RemoteLookup struct {
	endpoint string
	client   *http.Client
	validate *validator.Validator
}

// NewRemoteLookup creates a lookup against endpoint. A zero timeout uses the default.
func NewRemoteLookup(endpoint string, timeout time.Duration) *RemoteLookup {
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &RemoteLookup{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return ErrTooManyRedirects
				}
				return nil
			},
		},
		validate: validator.New(),
	}
}

// Lookup posts {"uniqueId": id} and validates the answer.
func (l *RemoteLookup) Lookup(ctx context.Context, id string) (*Record, error) {
	body, err := json.Marshal(Request{UniqueID: id})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: endpoint returned status %d", ErrUnavailable, resp.StatusCode)
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return nil, fmt.Errorf("%w: endpoint returned content type %q",
			ErrUnavailable, resp.Header.Get("Content-Type"))
	}

	var payload Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", ErrUnavailable, err)
	}

	if err := l.validate.Err(payload); err != nil {
		return nil, fmt.Errorf("%w: unexpected response shape: %w", ErrUnavailable, err)
	}

	if !*payload.Success {
		return nil, &RemoteError{Message: payload.Message}
	}
	if payload.Audio == nil {
		return nil, fmt.Errorf("%w: successful response without audio", ErrUnavailable)
	}

	record := *payload.Audio
	if record.ID == "" {
		record.ID = id
	}
	return &record, nil
}
