package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cotovideo/client/feeds"
	"github.com/cotovideo/client/logging"
	"github.com/cotovideo/client/models"
	"github.com/cotovideo/client/transport"
)

// State is the coordinator's view of the broadcast owned by the current user.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateLive     State = "live"
	StateStopping State = "stopping"
)

var (
	// ErrUnauthenticated indicates the caller has no signed-in user.
	ErrUnauthenticated = errors.New("sign in to go live")
	// ErrBroadcastActive indicates a broadcast is already starting, live, or stopping.
	ErrBroadcastActive = errors.New("a broadcast is already active")
	// ErrNotLive indicates there is no broadcast to stop.
	ErrNotLive = errors.New("no active broadcast")
	// ErrStreamEnded indicates the target stream is no longer live.
	ErrStreamEnded = errors.New("stream has ended")
)

// Coordinator drives the start/stop/join protocol and keeps the local is-live view
// consistent with server-confirmed state. A user owns at most one non-idle broadcast
// in this client's view; the server stays authoritative across sessions.
type Coordinator struct {
	streamsURL string
	tr         *transport.Client
	feeds      *feeds.Service
	logger     *slog.Logger

	mu      sync.Mutex
	state   State
	current models.Stream
}

// NewCoordinator constructs an idle Coordinator. The feeds service may be nil when no
// feed reconciliation is wanted (tests).
func NewCoordinator(streamsURL string, tr *transport.Client, feedService *feeds.Service, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		streamsURL: streamsURL,
		tr:         tr,
		feeds:      feedService,
		logger:     logger,
		state:      StateIdle,
	}
}

type streamRequest struct {
	Action      string `json:"action"`
	UserID      int64  `json:"user_id,omitempty"`
	StreamID    int64  `json:"stream_id,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

type streamResponse struct {
	Success bool          `json:"success"`
	Stream  models.Stream `json:"stream"`
}

// Start asks the server to open a broadcast and returns the stream with its
// server-assigned key and ingest endpoint. Valid only from idle; on failure the
// coordinator stays idle.
func (c *Coordinator) Start(ctx context.Context, userID int64, title, description string) (models.Stream, error) {
	ctx, op := logging.StartOp(ctx, "live.start")

	if userID == 0 {
		op.End(ErrUnauthenticated)
		return models.Stream{}, ErrUnauthenticated
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		op.End(ErrBroadcastActive)
		return models.Stream{}, ErrBroadcastActive
	}
	c.state = StateStarting
	c.mu.Unlock()

	var resp streamResponse
	err := c.tr.PostJSON(ctx, c.streamsURL, streamRequest{
		Action:      "start",
		UserID:      userID,
		Title:       title,
		Description: description,
	}, &resp, nil)
	if err != nil {
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()
		err = fmt.Errorf("start stream: %w", err)
		op.End(err)
		return models.Stream{}, err
	}

	stream := resp.Stream
	stream.IsLive = true

	c.mu.Lock()
	c.state = StateLive
	c.current = stream
	c.mu.Unlock()

	if c.feeds != nil {
		c.feeds.NoteStreamStarted(stream)
	}

	op.End(nil)
	return stream, nil
}

// Stop ends the broadcast. The acknowledgement is best-effort: even when the server
// call fails, the local state flips to idle so the user is never stuck "live" after
// explicitly ending, and the discrepancy is logged as a warning.
func (c *Coordinator) Stop(ctx context.Context, streamID int64) error {
	c.mu.Lock()
	if c.state != StateLive && c.state != StateStopping {
		c.mu.Unlock()
		return ErrNotLive
	}
	c.state = StateStopping
	c.mu.Unlock()

	var resp streamResponse
	err := c.tr.PostJSON(ctx, c.streamsURL, streamRequest{Action: "stop", StreamID: streamID}, &resp, nil)

	c.mu.Lock()
	c.state = StateIdle
	c.current = models.Stream{}
	c.mu.Unlock()

	if c.feeds != nil {
		c.feeds.MarkStreamEnded(streamID)
	}

	if err != nil {
		c.logger.Warn("stream stop not acknowledged by server", "streamId", streamID, "error", err)
	}
	return nil
}

// Join registers the viewer with a broadcast. It refuses streams whose last observed
// is-live flag is false; when the server reports the stream gone, the cached feed
// entry is reconciled before the error is returned.
func (c *Coordinator) Join(ctx context.Context, streamID, userID int64) error {
	if c.feeds != nil {
		if stream, ok := c.feeds.StreamByID(streamID); ok && !stream.IsLive {
			return ErrStreamEnded
		}
	}

	var resp streamResponse
	err := c.tr.PostJSON(ctx, c.streamsURL, streamRequest{Action: "join", StreamID: streamID, UserID: userID}, &resp, nil)
	if err != nil {
		var apiErr *transport.APIError
		if errors.As(err, &apiErr) {
			// The server refused the join: the stream is gone. Fix the stale entry.
			if c.feeds != nil {
				c.feeds.MarkStreamEnded(streamID)
			}
			return fmt.Errorf("join stream %d: %w", streamID, ErrStreamEnded)
		}
		return fmt.Errorf("join stream %d: %w", streamID, err)
	}

	if c.feeds != nil {
		c.feeds.BumpViewers(streamID, 1)
	}
	return nil
}

// State returns the coordinator's current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the owned broadcast while one is active.
func (c *Coordinator) Current() (models.Stream, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle {
		return models.Stream{}, false
	}
	return c.current, true
}
