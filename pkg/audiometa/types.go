// Package audiometa resolves audio identifiers to playable metadata records.
package audiometa

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no record matches the identifier.
	ErrNotFound = errors.New("audio not found")
	// ErrUnavailable is returned when the backing source cannot answer.
	ErrUnavailable = errors.New("audio source unavailable")
	// ErrMissingIdentifier is returned when no identifier was supplied.
	ErrMissingIdentifier = errors.New("no audio identifier provided")
)

// Record is the resolved metadata for one audio clip.
type Record struct {
	ID             string `json:"id,omitempty" redis:"id"`
	ChapterName    string `json:"chapterName" redis:"chapterName" validate:"required"`
	CompanyName    string `json:"companyName" redis:"companyName" validate:"required"`
	CompanyWebsite string `json:"companyWebsite,omitempty" redis:"companyWebsite" validate:"omitempty,url"`
	AudioURL       string `json:"audioUrl" redis:"audioUrl" validate:"required"`
}

// Result is the outcome of a resolution. Its JSON form is the lookup
// endpoint's response body.
type Result struct {
	Success bool    `json:"success"`
	Audio   *Record `json:"audio,omitempty"`
	Message string  `json:"message,omitempty"`

	// Err classifies a failed result; it wraps one of the sentinel errors.
	Err error `json:"-"`
	// Fallback is set when the canonical fallback record was substituted.
	Fallback bool `json:"-"`
}

// Lookup fetches a single record from a backing source.
type Lookup interface {
	// Lookup returns the record for id or an error wrapping ErrNotFound or ErrUnavailable.
	Lookup(ctx context.Context, id string) (*Record, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, id string) (*Record, error)

// Lookup calls f(ctx, id).
func (f LookupFunc) Lookup(ctx context.Context, id string) (*Record, error) {
	return f(ctx, id)
}

// FallbackRecord is the canonical record served in demo mode.
func FallbackRecord() Record {
	return Record{
		ID:             "demo",
		ChapterName:    "Welcome to AudioFlow (Mock Data)",
		CompanyName:    "AudioFlow Demo",
		CompanyWebsite: "https://example.com",
		AudioURL:       "http://assests.aiftp.next.s3.ap-south-1.amazonaws.com/audio/SoundHelix-Song-1.mp3",
	}
}

// Success builds a successful result.
func Success(record *Record) Result {
	return Result{Success: true, Audio: record}
}

// Failure builds a failed result from a classified error.
func Failure(err error) Result {
	return Result{Success: false, Message: messageFor(err), Err: err}
}

func messageFor(err error) string {
	var remote *RemoteError
	if errors.As(err, &remote) && remote.Message != "" {
		return remote.Message
	}

	switch {
	case errors.Is(err, ErrMissingIdentifier):
		return "No audio ID provided"
	case errors.Is(err, ErrNotFound):
		return "Audio not found"
	default:
		return "Audio service unavailable"
	}
}
