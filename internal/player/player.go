package player

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"audioflow/internal/i18n"
	"audioflow/pkg/audiometa"
	"audioflow/pkg/sanitize"
)

const (
	// DefaultShareAckDuration is how long "Copied!" stays visible.
	DefaultShareAckDuration = 2 * time.Second
	defaultExtension        = ".mp3"
	defaultFilename         = "audio"
	maxExtensionLength      = 5
)

// Options configures a Player.
type Options struct {
	ShareURL         string
	Clipboard        Clipboard
	Saver            Saver
	Clock            Clock
	ShareAckDuration time.Duration
	// DeferShareAck is set when the Clipboard only queues the write. The
	// acknowledgement then waits for CompleteShare.
	DeferShareAck bool
	Localizer     *i18n.Localizer
	// OnChange is called with the new state after every mutation, outside the player lock.
	OnChange func(State)
}

// Player drives one Resource for one record.
type Player struct {
	record   audiometa.Record
	resource Resource
	opts     Options
	logger   *zap.Logger
	names    *sanitize.Normalizer

	mu          sync.Mutex
	state       State
	closed      bool
	unsubscribe func()
	shareTimer  Timer
	shareGen    uint64
	// pendingShares counts deferred clipboard writes awaiting CompleteShare.
	pendingShares int
}

// New creates an idle player and registers it as the resource's listener.
func New(record audiometa.Record, resource Resource, opts Options, logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.ShareAckDuration <= 0 {
		opts.ShareAckDuration = DefaultShareAckDuration
	}
	if opts.Localizer == nil {
		opts.Localizer = i18n.NewLocalizer(i18n.DefaultLanguage)
	}

	p := &Player{
		record:   record,
		resource: resource,
		opts:     opts,
		logger:   logger,
		names:    sanitize.NewNormalizer(),
		state:    State{Status: StatusIdle},
	}
	p.unsubscribe = resource.Subscribe(p)
	return p
}

// State returns the current state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.derive(p.state)
}

// TogglePlayback pauses a playing player and starts an idle or paused one.
func (p *Player) TogglePlayback() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	playing := p.state.Status == StatusPlaying
	p.mu.Unlock()

	if playing {
		err := p.resource.Pause()
		p.update(func(s *State) {
			s.Status = StatusPaused
			s.Error = p.softError(err)
		})
		return err
	}

	err := p.resource.Play()
	p.update(func(s *State) {
		if err != nil {
			s.Status = StatusPaused
		} else {
			s.Status = StatusPlaying
		}
		s.Error = p.softError(err)
	})
	if err != nil {
		p.logger.Warn("Playback failed to start", zap.Error(err))
	}
	return err
}

// Seek moves to t seconds, clamped to the known duration.
func (p *Player) Seek(t float64) error {
	if !finite(t) {
		return fmt.Errorf("invalid seek position %v", t)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	t = clamp(t, seekMax(p.state.Duration))
	p.mu.Unlock()

	err := p.resource.SetPosition(t)
	p.update(func(s *State) {
		s.Position = t
		s.Error = p.softError(err)
	})
	return err
}

// ToggleMute flips the mute flag.
func (p *Player) ToggleMute() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	muted := !p.state.Muted
	p.mu.Unlock()

	err := p.resource.SetMuted(muted)
	p.update(func(s *State) {
		if err == nil {
			s.Muted = muted
		}
		s.Error = p.softError(err)
	})
	return err
}

// Share copies the share URL and acknowledges it for the configured duration.
// Clipboard failures are logged and leave the state untouched. With
// DeferShareAck the acknowledgement is left to CompleteShare.
func (p *Player) Share(ctx context.Context) error {
	if p.opts.Clipboard == nil {
		return fmt.Errorf("no clipboard configured")
	}
	if err := p.opts.Clipboard.WriteText(ctx, p.opts.ShareURL); err != nil {
		p.logger.Warn("Failed to copy share link", zap.Error(err))
		return err
	}

	if p.opts.DeferShareAck {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			return ErrClosed
		}
		p.pendingShares++
		return nil
	}

	p.acknowledgeShare()
	return nil
}

// CompleteShare reports the outcome of a deferred clipboard write. Only a
// successful write acknowledges the share; failures are logged.
func (p *Player) CompleteShare(err error) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.pendingShares == 0 {
		p.mu.Unlock()
		return ErrNoPendingShare
	}
	p.pendingShares--
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("Failed to copy share link", zap.Error(err))
		return nil
	}

	p.acknowledgeShare()
	return nil
}

// acknowledgeShare sets ShareAcknowledged and (re)starts its timer.
func (p *Player) acknowledgeShare() {
	p.update(func(s *State) {
		if p.shareTimer != nil {
			p.shareTimer.Stop()
		}
		p.shareGen++
		gen := p.shareGen
		s.ShareAcknowledged = true
		p.shareTimer = p.opts.Clock.AfterFunc(p.opts.ShareAckDuration, func() {
			p.update(func(s *State) {
				if p.shareGen == gen {
					s.ShareAcknowledged = false
					p.shareTimer = nil
				}
			})
		})
	})
}

// Download hands the audio URL and a suggested filename to the Saver.
func (p *Player) Download(ctx context.Context) error {
	if p.opts.Saver == nil {
		return fmt.Errorf("no saver configured")
	}
	return p.opts.Saver.Save(ctx, p.record.AudioURL, p.Filename())
}

// Filename is the suggested download name for the record.
func (p *Player) Filename() string {
	return p.names.Filename(p.record.ChapterName, defaultFilename, extensionOf(p.record.AudioURL))
}

// OnTimeUpdate implements Listener.
func (p *Player) OnTimeUpdate(position float64) {
	if !finite(position) {
		return
	}
	p.update(func(s *State) {
		if s.Duration > 0 {
			s.Position = clamp(position, s.Duration)
		} else if position >= 0 {
			s.Position = position
		}
	})
}

// OnLoadedMetadata implements Listener.
func (p *Player) OnLoadedMetadata(duration float64) {
	if !finite(duration) || duration < 0 {
		return
	}
	p.update(func(s *State) {
		s.Duration = duration
		if duration > 0 && s.Position > duration {
			s.Position = duration
		}
	})
}

// OnEnded implements Listener.
func (p *Player) OnEnded() {
	p.update(func(s *State) {
		s.Status = StatusPaused
		if s.Duration > 0 {
			s.Position = s.Duration
		}
	})
}

// OnError implements Listener.
func (p *Player) OnError(err error) {
	p.logger.Warn("Media error", zap.Error(err))
	p.update(func(s *State) {
		if s.Status == StatusPlaying {
			s.Status = StatusPaused
		}
		s.Error = p.softError(err)
	})
}

// Close deregisters the player and cancels the share timer. It is idempotent.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	if p.shareTimer != nil {
		p.shareTimer.Stop()
		p.shareTimer = nil
	}
	p.shareGen++
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
}

// update applies fn under the lock and notifies OnChange after releasing it.
func (p *Player) update(fn func(s *State)) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	fn(&p.state)
	snapshot := p.derive(p.state)
	p.mu.Unlock()

	if p.opts.OnChange != nil {
		p.opts.OnChange(snapshot)
	}
}

func (p *Player) derive(s State) State {
	s.IsPlaying = s.Status == StatusPlaying
	s.SeekMax = seekMax(s.Duration)
	s.PositionText = Format(s.Position)
	s.DurationText = Format(s.Duration)
	s.Progress = 0
	if s.Duration > 0 {
		s.Progress = s.Position * 100 / s.Duration
	}
	return s
}

func (p *Player) softError(err error) string {
	if err == nil {
		return ""
	}
	return p.opts.Localizer.T("error.playback", err.Error())
}

func seekMax(duration float64) float64 {
	if duration > 0 {
		return duration
	}
	return unknownDurationMax
}

func clamp(v, upper float64) float64 {
	if v < 0 {
		return 0
	}
	if v > upper {
		return upper
	}
	return v
}

func extensionOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultExtension
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if len(ext) < 2 || len(ext) > maxExtensionLength {
		return defaultExtension
	}
	return ext
}
