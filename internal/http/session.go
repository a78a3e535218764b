package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"audioflow/internal/page"
	"audioflow/internal/player"
	"audioflow/pkg/validator"
)

// Outbound message types.
const (
	msgPlay        = "play"
	msgPause       = "pause"
	msgSetPosition = "set_position"
	msgSetMuted    = "set_muted"
	msgCopyText    = "copy_text"
	msgSave        = "save"
	msgState       = "state"
	msgError       = "error"
)

// Inbound message types.
const (
	msgTogglePlayback = "toggle_playback"
	msgSeek           = "seek"
	msgToggleMute     = "toggle_mute"
	msgShare          = "share"
	msgDownload       = "download"
	msgTimeUpdate     = "time_update"
	msgLoadedMetadata = "loaded_metadata"
	msgEnded          = "ended"
	msgMediaError     = "media_error"
	msgCopyResult     = "copy_result"
)

const (
	writeWait        = 10 * time.Second
	maxMessageBytes  = 4096
	closeNotFound    = 4004
	closeRateLimited = 4029
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type seekInput struct {
	Time *float64 `json:"time" validate:"required"`
}

type timeUpdateInput struct {
	Position *float64 `json:"position" validate:"required"`
}

type loadedMetadataInput struct {
	Duration *float64 `json:"duration" validate:"required"`
}

type mediaErrorInput struct {
	Message string `json:"message"`
}

type copyResultInput struct {
	OK      *bool  `json:"ok" validate:"required"`
	Message string `json:"message"`
}

// session is one page's connection. It acts as the player's media resource,
// clipboard and saver by forwarding commands to the browser.
type session struct {
	id       string
	conn     *websocket.Conn
	logger   *zap.Logger
	validate *validator.Validator
	metrics  *Metrics

	writeMu sync.Mutex

	mu       sync.Mutex
	listener player.Listener
}

func newSession(conn *websocket.Conn, validate *validator.Validator, metrics *Metrics, logger *zap.Logger) *session {
	id := uuid.NewString()
	return &session{
		id:       id,
		conn:     conn,
		logger:   logger.With(zap.String("session_id", id)),
		validate: validate,
		metrics:  metrics,
	}
}

func (s *session) send(msgType string, payload any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := s.conn.WriteJSON(outbound{Type: msgType, Payload: payload}); err != nil {
		return fmt.Errorf("failed to send %s: %w", msgType, err)
	}
	return nil
}

func (s *session) close(code int, text string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	msg := websocket.FormatCloseMessage(code, text)
	if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		s.logger.Debug("Failed to send close frame", zap.Error(err))
	}
}

// Play implements player.Resource.
func (s *session) Play() error {
	return s.send(msgPlay, nil)
}

// Pause implements player.Resource.
func (s *session) Pause() error {
	return s.send(msgPause, nil)
}

// SetPosition implements player.Resource.
func (s *session) SetPosition(seconds float64) error {
	return s.send(msgSetPosition, map[string]float64{"time": seconds})
}

// SetMuted implements player.Resource.
func (s *session) SetMuted(muted bool) error {
	return s.send(msgSetMuted, map[string]bool{"muted": muted})
}

// Subscribe implements player.Resource.
func (s *session) Subscribe(l player.Listener) func() {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.listener == l {
			s.listener = nil
		}
	}
}

// WriteText implements player.Clipboard. The browser answers with copy_result.
func (s *session) WriteText(_ context.Context, text string) error {
	return s.send(msgCopyText, map[string]string{"text": text})
}

// Save implements player.Saver.
func (s *session) Save(_ context.Context, url, filename string) error {
	return s.send(msgSave, map[string]string{"url": url, "filename": filename})
}

func (s *session) currentListener() player.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener
}

// dispatch routes one inbound message. Errors are reported back to the client.
func (s *session) dispatch(ctx context.Context, p *player.Player, msg message) error {
	switch msg.Type {
	case msgTogglePlayback:
		return p.TogglePlayback()
	case msgToggleMute:
		return p.ToggleMute()
	case msgShare:
		return p.Share(ctx)
	case msgDownload:
		return p.Download(ctx)
	case msgSeek:
		var in seekInput
		if err := s.decode(msg.Payload, &in); err != nil {
			return err
		}
		return p.Seek(*in.Time)
	case msgCopyResult:
		var in copyResultInput
		if err := s.decode(msg.Payload, &in); err != nil {
			return err
		}
		if *in.OK {
			return p.CompleteShare(nil)
		}
		if in.Message == "" {
			in.Message = "clipboard write failed"
		}
		return p.CompleteShare(errors.New(in.Message))
	}

	l := s.currentListener()
	if l == nil {
		return player.ErrClosed
	}

	switch msg.Type {
	case msgTimeUpdate:
		var in timeUpdateInput
		if err := s.decode(msg.Payload, &in); err != nil {
			return err
		}
		l.OnTimeUpdate(*in.Position)
	case msgLoadedMetadata:
		var in loadedMetadataInput
		if err := s.decode(msg.Payload, &in); err != nil {
			return err
		}
		l.OnLoadedMetadata(*in.Duration)
	case msgEnded:
		l.OnEnded()
	case msgMediaError:
		var in mediaErrorInput
		if err := s.decode(msg.Payload, &in); err != nil {
			return err
		}
		if in.Message == "" {
			in.Message = "media error"
		}
		l.OnError(errors.New(in.Message))
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

func (s *session) decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return s.validate.Err(v)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	s := newSession(conn, h.validate, h.deps.Metrics, h.logger.Named("session"))

	if !h.allow(routeSession, r) {
		_ = s.send(msgError, map[string]string{"message": h.deps.Localizer.T("error.rate_limited")})
		s.close(closeRateLimited, "rate limited")
		return
	}

	id, ok := page.IdentifierFromQuery(r.URL.RawQuery)
	snapshot := h.newController(routeSession).Load(r.Context(), id, ok)
	if snapshot.State != page.StateReady {
		_ = s.send(msgError, map[string]string{"message": snapshot.Message})
		s.close(closeNotFound, "audio unavailable")
		return
	}

	h.deps.Metrics.SessionOpened()
	defer h.deps.Metrics.SessionClosed()

	p := player.New(*snapshot.Record, s, player.Options{
		ShareURL:         shareURL(r),
		Clipboard:        s,
		Saver:            s,
		ShareAckDuration: h.deps.ShareAckDuration,
		DeferShareAck:    true,
		Localizer:        h.deps.Localizer,
		OnChange: func(state player.State) {
			if err := s.send(msgState, state); err != nil {
				s.logger.Debug("Failed to push state", zap.Error(err))
			}
		},
	}, s.logger)
	defer p.Close()

	s.logger.Info("Player session opened", zap.String("identifier", snapshot.Identifier))
	if err := s.send(msgState, p.State()); err != nil {
		return
	}

	s.serve(r.Context(), p)
	s.logger.Info("Player session closed")
}

// serve reads messages until the connection fails.
func (s *session) serve(ctx context.Context, p *player.Player) {
	for {
		var msg message
		if err := s.conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				_ = s.send(msgError, map[string]string{"message": "invalid JSON"})
				continue
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("Session read failed", zap.Error(err))
			}
			return
		}

		s.metrics.RecordSessionEvent(eventLabel(msg.Type))
		if err := s.dispatch(ctx, p, msg); err != nil {
			s.logger.Debug("Message failed",
				zap.String("type", msg.Type),
				zap.Error(err))
			_ = s.send(msgError, map[string]string{"type": msg.Type, "message": err.Error()})
		}
	}
}

// eventLabel bounds the metric label set to the known inbound types.
func eventLabel(msgType string) string {
	switch msgType {
	case msgTogglePlayback, msgSeek, msgToggleMute, msgShare, msgDownload,
		msgTimeUpdate, msgLoadedMetadata, msgEnded, msgMediaError, msgCopyResult:
		return msgType
	default:
		return "unknown"
	}
}

func shareURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	switch proto := strings.ToLower(r.Header.Get("X-Forwarded-Proto")); proto {
	case "http", "https":
		scheme = proto
	}

	u := scheme + "://" + r.Host + "/"
	if r.URL.RawQuery != "" {
		u += "?" + r.URL.RawQuery
	}
	return u
}
