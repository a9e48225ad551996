package feeds

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cotovideo/client/transport"
)

type viewPing struct {
	videoID int64
	userID  int64
}

type viewRequest struct {
	Action  string `json:"action"`
	VideoID int64  `json:"video_id"`
	UserID  int64  `json:"user_id"`
}

// viewRecorder ships view pings to the server in the background. View accounting is
// best-effort: a failed or dropped ping is logged and forgotten.
type viewRecorder struct {
	url    string
	tr     *transport.Client
	logger *slog.Logger

	jobs   chan viewPing
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

const defaultViewQueueSize = 64

func newViewRecorder(url string, tr *transport.Client, logger *slog.Logger, queueSize int) *viewRecorder {
	if queueSize <= 0 {
		queueSize = defaultViewQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &viewRecorder{
		url:    url,
		tr:     tr,
		logger: logger,
		jobs:   make(chan viewPing, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	r.wg.Add(1)
	go r.worker()

	return r
}

// Enqueue schedules a ping without blocking. It reports false when the recorder is
// shut down or the queue is full.
func (r *viewRecorder) Enqueue(ping viewPing) bool {
	select {
	case <-r.ctx.Done():
		return false
	default:
	}

	select {
	case r.jobs <- ping:
		return true
	default:
		return false
	}
}

// Shutdown stops the worker and waits for it to exit.
func (r *viewRecorder) Shutdown(ctx context.Context) error {
	r.once.Do(func() {
		r.cancel()
		close(r.jobs)
	})

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *viewRecorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case ping, ok := <-r.jobs:
			if !ok {
				return
			}
			r.handle(ping)
		}
	}
}

func (r *viewRecorder) handle(ping viewPing) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var resp struct {
		Success bool `json:"success"`
	}
	err := r.tr.PostJSON(ctx, r.url, viewRequest{Action: "view", VideoID: ping.videoID, UserID: ping.userID}, &resp, nil)
	if err != nil {
		r.logger.Warn("view ping failed", "videoId", ping.videoID, "userId", ping.userID, "error", err)
	}
}
