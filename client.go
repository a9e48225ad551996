// Package client is the orchestration core of the CotoVideo frontend: session
// identity, feed caches, the upload pipeline, and the live-broadcast lifecycle.
// Presentation layers call into Core and render the plain data and typed errors
// they get back; nothing in this module renders UI text.
package client

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/cotovideo/client/config"
	"github.com/cotovideo/client/feeds"
	"github.com/cotovideo/client/live"
	"github.com/cotovideo/client/session"
	"github.com/cotovideo/client/transport"
	"github.com/cotovideo/client/upload"
)

// Core is the process-wide context object: one transport, one session slot, one set
// of feed caches. Init restores persisted identity; Close drains background work.
type Core struct {
	Session *session.Store
	Feeds   *feeds.Service
	Uploads *upload.Pipeline
	Live    *live.Coordinator

	transport *transport.Client
	logger    *slog.Logger
}

// Option customises Core construction.
type Option func(*options)

type options struct {
	logger *slog.Logger
	slot   session.Slot
}

// WithLogger replaces the default JSON logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSessionSlot replaces the file-backed session slot. Useful for tests.
func WithSessionSlot(slot session.Slot) Option {
	return func(o *options) { o.slot = slot }
}

// New wires a Core from the provided configuration.
func New(cfg config.Config, opts ...Option) *Core {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	}

	slot := o.slot
	if slot == nil {
		slot = session.NewFileSlot(cfg.SessionPath)
	}

	tr := transport.New(cfg.HTTPTimeout, logger)

	feedService := feeds.NewService(cfg.VideosURL, cfg.StreamsURL, tr, logger, feeds.Options{
		ByIDCacheSize: cfg.VideoCacheSize,
		ViewThrottle:  cfg.ViewThrottle,
	})

	return &Core{
		Session:   session.NewStore(cfg.AuthURL, tr, slot, logger),
		Feeds:     feedService,
		Uploads:   upload.NewPipeline(cfg.UploadURL, tr, feedService, cfg.MaxUploadBytes, logger),
		Live:      live.NewCoordinator(cfg.StreamsURL, tr, feedService, logger),
		transport: tr,
		logger:    logger,
	}
}

// Init restores the persisted session. It never fails: a missing or unreadable
// session simply leaves the process signed out.
func (c *Core) Init(ctx context.Context) {
	c.Session.Restore(ctx)
}

// Logout tears down the current identity, clearing memory and the persisted slot.
func (c *Core) Logout(ctx context.Context) {
	c.Session.Logout(ctx)
}

// Close drains background work (the view recorder). The feed caches need no teardown.
func (c *Core) Close(ctx context.Context) error {
	return c.Feeds.Close(ctx)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
