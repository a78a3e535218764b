// Package player implements the playback state machine behind an audio page.
package player

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by operations on a closed player.
var ErrClosed = errors.New("player closed")

// ErrNoPendingShare is returned by CompleteShare when no clipboard write is outstanding.
var ErrNoPendingShare = errors.New("no share pending")

// Status is the transport state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPaused  Status = "paused"
	StatusPlaying Status = "playing"
)

// unknownDurationMax bounds seeking until the media reports its duration.
const unknownDurationMax = 100.0

// Listener receives media events from a Resource.
type Listener interface {
	OnTimeUpdate(position float64)
	OnLoadedMetadata(duration float64)
	OnEnded()
	OnError(err error)
}

// Resource is the playable media element.
type Resource interface {
	Play() error
	Pause() error
	SetPosition(seconds float64) error
	SetMuted(muted bool) error
	// Subscribe registers l for media events and returns a func that removes it.
	Subscribe(l Listener) (unsubscribe func())
}

// Clipboard copies text for the user.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Saver offers url to the user as a file download.
type Saver interface {
	Save(ctx context.Context, url, filename string) error
}

// Timer is a pending Clock callback.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// State is a snapshot of the player.
type State struct {
	Status            Status  `json:"status"`
	IsPlaying         bool    `json:"isPlaying"`
	Position          float64 `json:"position"`
	Duration          float64 `json:"duration"`
	Muted             bool    `json:"muted"`
	ShareAcknowledged bool    `json:"shareAcknowledged"`
	Error             string  `json:"error,omitempty"`

	SeekMax      float64 `json:"seekMax"`
	PositionText string  `json:"positionText"`
	DurationText string  `json:"durationText"`
	Progress     float64 `json:"progress"`
}
