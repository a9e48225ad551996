package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/cotovideo/client/models"
	"github.com/cotovideo/client/transport"
)

// Kind identifies one of the cached video feeds.
type Kind string

const (
	// KindVideos is the long-form video feed.
	KindVideos Kind = "videos"
	// KindShorts is the short vertical clip feed.
	KindShorts Kind = "shorts"
)

// videoSlot holds the last successfully loaded sequence for one feed kind. A failed
// reload never clears it; lastApplied discards responses that lost the reload race.
type videoSlot struct {
	items       []models.Video
	loaded      bool
	lastApplied uint64
}

type streamSlot struct {
	items       []models.Stream
	loaded      bool
	lastApplied uint64
}

// Options tunes the cache and the best-effort view recorder.
type Options struct {
	ByIDCacheSize int
	ViewThrottle  time.Duration
	ViewQueueSize int
}

// Service fetches and caches the three content feeds and owns every engagement
// counter mutation. All state lives behind one mutex; remote coalescing happens
// through the singleflight groups.
type Service struct {
	videosURL  string
	streamsURL string
	tr         *transport.Client
	logger     *slog.Logger

	mu      sync.Mutex
	videos  map[Kind]*videoSlot
	streams streamSlot
	likes   map[likeKey]*likeEntry

	seq     atomic.Uint64
	reloads singleflight.Group
	toggles singleflight.Group

	byID     *lru.Cache[int64, models.Video]
	throttle *keyLimiter
	recorder *viewRecorder
}

// NewService constructs a Service talking to the videos and streams endpoints.
func NewService(videosURL, streamsURL string, tr *transport.Client, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ByIDCacheSize <= 0 {
		opts.ByIDCacheSize = 128
	}

	byID, err := lru.New[int64, models.Video](opts.ByIDCacheSize)
	if err != nil {
		panic(fmt.Sprintf("feeds: by-id cache: %v", err))
	}

	return &Service{
		videosURL:  videosURL,
		streamsURL: streamsURL,
		tr:         tr,
		logger:     logger,
		videos: map[Kind]*videoSlot{
			KindVideos: {},
			KindShorts: {},
		},
		likes:    make(map[likeKey]*likeEntry),
		byID:     byID,
		throttle: newKeyLimiter(opts.ViewThrottle),
		recorder: newViewRecorder(videosURL, tr, logger, opts.ViewQueueSize),
	}
}

// LoadVideos fetches the requested feed and replaces its cache slot on success. An
// empty result is a valid success. Concurrent reloads of one slot share a single
// request, and a response that lost the race against a newer reload is discarded
// rather than applied over fresher data.
func (s *Service) LoadVideos(ctx context.Context, kind Kind) ([]models.Video, error) {
	if kind != KindVideos && kind != KindShorts {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	seq := s.seq.Add(1)

	fetched, err, _ := s.reloads.Do("videos:"+string(kind), func() (any, error) {
		url := s.videosURL
		if kind == KindShorts {
			url += "?type=shorts"
		}
		var resp struct {
			Videos []models.Video `json:"videos"`
		}
		if err := s.tr.GetJSON(ctx, url, &resp); err != nil {
			return nil, err
		}
		return resp.Videos, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s feed: %w", kind, err)
	}

	return s.applyVideos(kind, seq, fetched.([]models.Video)), nil
}

// applyVideos commits a fetched feed to its slot unless a newer reload already won
// the slot, and returns the slot contents after the attempt.
func (s *Service) applyVideos(kind Kind, seq uint64, fetched []models.Video) []models.Video {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.videos[kind]
	if seq > slot.lastApplied {
		// Coalesced reloads share the fetched slice; work on a private copy.
		items := cloneVideos(fetched)
		s.overlayPendingLikesLocked(items)
		slot.items = items
		slot.loaded = true
		slot.lastApplied = seq
	}
	return cloneVideos(slot.items)
}

// LoadStreams fetches the streams currently flagged live by the server. Server
// ordering is preserved; the client never re-sorts.
func (s *Service) LoadStreams(ctx context.Context) ([]models.Stream, error) {
	seq := s.seq.Add(1)

	fetched, err, _ := s.reloads.Do("streams", func() (any, error) {
		var resp struct {
			Streams []models.Stream `json:"streams"`
		}
		if err := s.tr.GetJSON(ctx, s.streamsURL, &resp); err != nil {
			return nil, err
		}
		return resp.Streams, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load streams feed: %w", err)
	}

	return s.applyStreams(seq, fetched.([]models.Stream)), nil
}

func (s *Service) applyStreams(seq uint64, fetched []models.Stream) []models.Stream {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq > s.streams.lastApplied {
		s.streams.items = cloneStreams(fetched)
		s.streams.loaded = true
		s.streams.lastApplied = seq
	}
	return cloneStreams(s.streams.items)
}

// Cached returns the last successfully loaded feed of the given kind without going to
// the network. The second result reports whether a load has ever succeeded.
func (s *Service) Cached(kind Kind) ([]models.Video, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.videos[kind]
	if !ok {
		return nil, false
	}
	return cloneVideos(slot.items), slot.loaded
}

// CachedStreams returns the last successfully loaded streams feed.
func (s *Service) CachedStreams() ([]models.Stream, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneStreams(s.streams.items), s.streams.loaded
}

// VideoByID resolves a single video, consulting a bounded in-memory cache first.
func (s *Service) VideoByID(ctx context.Context, id int64) (models.Video, error) {
	if video, ok := s.byID.Get(id); ok {
		return video, nil
	}

	var resp struct {
		Video models.Video `json:"video"`
	}
	err := s.tr.GetJSON(ctx, fmt.Sprintf("%s?id=%d", s.videosURL, id), &resp)
	if err != nil {
		if transport.IsAPIStatus(err, http.StatusNotFound) {
			return models.Video{}, fmt.Errorf("video %d: %w", id, ErrNotFound)
		}
		return models.Video{}, fmt.Errorf("video %d: %w", id, err)
	}

	s.mu.Lock()
	overlay := []models.Video{resp.Video}
	s.overlayPendingLikesLocked(overlay)
	s.mu.Unlock()

	s.byID.Add(id, overlay[0])
	return overlay[0], nil
}

// RecordView registers a best-effort view: the cached counter is bumped immediately
// and the server ping runs in the background. Failures are logged, never surfaced;
// repeat views of one video by one user inside the throttle window are dropped.
func (s *Service) RecordView(videoID, userID int64) {
	if !s.throttle.Allow(viewerKey{videoID: videoID, userID: userID}) {
		return
	}

	s.mu.Lock()
	s.adjustVideoLocked(videoID, func(v *models.Video) { v.Views++ })
	s.mu.Unlock()

	if !s.recorder.Enqueue(viewPing{videoID: videoID, userID: userID}) {
		s.logger.Warn("view recorder queue full, dropping ping", "videoId", videoID)
	}
}

// NoteVideoCreated folds a freshly uploaded video into the matching feed slot and the
// by-id cache, so a completed upload is recorded even when no view observes it.
func (s *Service) NoteVideoCreated(video models.Video) {
	kind := KindVideos
	if video.IsShort {
		kind = KindShorts
	}

	s.mu.Lock()
	slot := s.videos[kind]
	slot.items = append([]models.Video{video}, slot.items...)
	s.mu.Unlock()

	s.byID.Add(video.ID, video)
}

// NoteStreamStarted places a newly started broadcast at the head of the streams slot.
func (s *Service) NoteStreamStarted(stream models.Stream) {
	s.mu.Lock()
	s.streams.items = append([]models.Stream{stream}, s.streams.items...)
	s.mu.Unlock()
}

// MarkStreamEnded flips the cached is-live flag so stale feed entries cannot be joined.
func (s *Service) MarkStreamEnded(streamID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.streams.items {
		if s.streams.items[i].ID == streamID {
			s.streams.items[i].IsLive = false
		}
	}
}

// StreamByID returns the cached stream record, if present.
func (s *Service) StreamByID(streamID int64) (models.Stream, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.streams.items {
		if s.streams.items[i].ID == streamID {
			return s.streams.items[i], true
		}
	}
	return models.Stream{}, false
}

// BumpViewers adjusts the cached viewer count for a stream.
func (s *Service) BumpViewers(streamID, delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.streams.items {
		if s.streams.items[i].ID == streamID {
			count := s.streams.items[i].ViewersCount + delta
			if count < 0 {
				count = 0
			}
			s.streams.items[i].ViewersCount = count
		}
	}
}

// Close drains the background view recorder.
func (s *Service) Close(ctx context.Context) error {
	return s.recorder.Shutdown(ctx)
}

// adjustVideoLocked applies fn to every cached copy of the video: both feed slots and
// the by-id cache. Callers must hold s.mu.
func (s *Service) adjustVideoLocked(videoID int64, fn func(*models.Video)) {
	for _, slot := range s.videos {
		for i := range slot.items {
			if slot.items[i].ID == videoID {
				fn(&slot.items[i])
			}
		}
	}
	if video, ok := s.byID.Peek(videoID); ok {
		fn(&video)
		s.byID.Add(videoID, video)
	}
}

func cloneVideos(items []models.Video) []models.Video {
	if items == nil {
		return nil
	}
	out := make([]models.Video, len(items))
	copy(out, items)
	return out
}

func cloneStreams(items []models.Stream) []models.Stream {
	if items == nil {
		return nil
	}
	out := make([]models.Stream, len(items))
	copy(out, items)
	return out
}
