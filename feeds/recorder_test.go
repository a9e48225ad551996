package feeds

import (
	"context"
	"testing"
	"time"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRecordViewPingsServer(t *testing.T) {
	backend := newFakeBackend()
	svc := newTestService(t, backend)
	loadSingleVideo(t, svc, backend)

	svc.RecordView(1, engagementUser)

	waitFor(t, "view ping", func() bool { return backend.viewCalls.Load() == 1 })

	cached, _ := svc.Cached(KindVideos)
	if cached[0].Views != 1 {
		t.Fatalf("expected optimistic view bump, got %d", cached[0].Views)
	}
}

func TestRecordViewThrottled(t *testing.T) {
	backend := newFakeBackend()
	svc := newTestService(t, backend)
	loadSingleVideo(t, svc, backend)

	svc.RecordView(1, engagementUser)
	svc.RecordView(1, engagementUser)

	waitFor(t, "first view ping", func() bool { return backend.viewCalls.Load() >= 1 })
	time.Sleep(50 * time.Millisecond)

	if calls := backend.viewCalls.Load(); calls != 1 {
		t.Fatalf("repeat view inside the throttle window must be dropped, got %d pings", calls)
	}
	cached, _ := svc.Cached(KindVideos)
	if cached[0].Views != 1 {
		t.Fatalf("throttled view must not bump the counter again, got %d", cached[0].Views)
	}

	// A different viewer is not throttled.
	svc.RecordView(1, engagementUser+1)
	waitFor(t, "second viewer ping", func() bool { return backend.viewCalls.Load() == 2 })
}

func TestRecordViewFailureStaysSilent(t *testing.T) {
	backend := newFakeBackend()
	svc := newTestService(t, backend)
	loadSingleVideo(t, svc, backend)

	// Point the recorder at a dead endpoint: the ping fails, nothing surfaces.
	svc.recorder.url = "http://127.0.0.1:1/videos"
	svc.RecordView(1, engagementUser)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := svc.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRecorderShutdownStopsEnqueue(t *testing.T) {
	backend := newFakeBackend()
	svc := newTestService(t, backend)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := svc.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	if svc.recorder.Enqueue(viewPing{videoID: 1, userID: 2}) {
		t.Fatal("enqueue after shutdown must report false")
	}
}

func TestKeyLimiter(t *testing.T) {
	limiter := newKeyLimiter(time.Minute)

	key := viewerKey{videoID: 1, userID: 2}
	if !limiter.Allow(key) {
		t.Fatal("first view must pass")
	}
	if limiter.Allow(key) {
		t.Fatal("immediate repeat must be throttled")
	}
	if !limiter.Allow(viewerKey{videoID: 1, userID: 3}) {
		t.Fatal("other viewers are tracked independently")
	}
}

func TestKeyLimiterGC(t *testing.T) {
	limiter := newKeyLimiter(time.Millisecond)
	now := time.Now()
	limiter.now = func() time.Time { return now }

	limiter.Allow(viewerKey{videoID: 1, userID: 1})
	limiter.Allow(viewerKey{videoID: 2, userID: 1})

	limiter.now = func() time.Time { return now.Add(time.Second) }
	limiter.Allow(viewerKey{videoID: 3, userID: 1})

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if len(limiter.entries) != 1 {
		t.Fatalf("expected idle entries collected, have %d", len(limiter.entries))
	}
}
