package feeds

import (
	"context"
	"fmt"

	"github.com/cotovideo/client/models"
)

// LikeState tags the lifecycle of one optimistic like mutation.
type LikeState int

const (
	// LikeNone means no engagement has been recorded for the key.
	LikeNone LikeState = iota
	// LikePending means the optimistic flip is applied locally but not yet acknowledged.
	LikePending
	// LikeConfirmed means the server acknowledged the flip.
	LikeConfirmed
	// LikeReverted means the remote call failed and the optimistic flip was undone.
	LikeReverted
)

func (s LikeState) String() string {
	switch s {
	case LikePending:
		return "pending"
	case LikeConfirmed:
		return "confirmed"
	case LikeReverted:
		return "reverted"
	default:
		return "none"
	}
}

type likeKey struct {
	videoID int64
	userID  int64
}

// likeEntry is the single-writer record for one (video, user) engagement. delta keeps
// the optimistic counter adjustment so a failure can revert it exactly.
type likeEntry struct {
	liked bool
	state LikeState
	delta int64
}

type likeRequest struct {
	Action  string `json:"action"`
	VideoID int64  `json:"video_id"`
	UserID  int64  `json:"user_id"`
}

// ToggleLike flips the like for (videoID, userID): the cached counter moves by ±1
// immediately, then the remote call confirms or reverts it. A second toggle for the
// same key while one is in flight joins the in-flight call instead of firing its own
// mutation, so a doubled invocation can never move the counter by two.
func (s *Service) ToggleLike(ctx context.Context, videoID, userID int64) (LikeState, error) {
	key := fmt.Sprintf("%d/%d", videoID, userID)

	result, err, _ := s.toggles.Do(key, func() (any, error) {
		return s.toggleLike(ctx, videoID, userID)
	})

	state, ok := result.(LikeState)
	if !ok {
		state = LikeReverted
	}
	return state, err
}

func (s *Service) toggleLike(ctx context.Context, videoID, userID int64) (LikeState, error) {
	k := likeKey{videoID: videoID, userID: userID}

	s.mu.Lock()
	entry, ok := s.likes[k]
	if !ok {
		entry = &likeEntry{}
		s.likes[k] = entry
	}
	delta := int64(1)
	if entry.liked {
		delta = -1
	}
	entry.liked = !entry.liked
	entry.state = LikePending
	entry.delta = delta
	s.adjustVideoLocked(videoID, func(v *models.Video) { v.LikesCount += delta })
	s.mu.Unlock()

	var resp struct {
		Success bool `json:"success"`
		Liked   bool `json:"liked"`
	}
	err := s.tr.PostJSON(ctx, s.videosURL, likeRequest{Action: "like", VideoID: videoID, UserID: userID}, &resp, nil)
	if err != nil {
		s.mu.Lock()
		entry.liked = !entry.liked
		entry.state = LikeReverted
		entry.delta = 0
		s.adjustVideoLocked(videoID, func(v *models.Video) { v.LikesCount -= delta })
		s.mu.Unlock()
		return LikeReverted, fmt.Errorf("toggle like video %d: %w", videoID, err)
	}

	s.mu.Lock()
	entry.state = LikeConfirmed
	if resp.Liked != entry.liked {
		// Server disagrees with the optimistic flip; its answer wins.
		entry.liked = resp.Liked
		s.adjustVideoLocked(videoID, func(v *models.Video) { v.LikesCount -= delta })
	}
	entry.delta = 0
	s.mu.Unlock()

	return LikeConfirmed, nil
}

// LikeStatus reports the liked flag and mutation state for (videoID, userID), letting
// the presentation layer distinguish pending, confirmed, and reverted likes.
func (s *Service) LikeStatus(videoID, userID int64) (bool, LikeState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.likes[likeKey{videoID: videoID, userID: userID}]
	if !ok {
		return false, LikeNone
	}
	return entry.liked, entry.state
}

// overlayPendingLikesLocked re-applies unresolved optimistic deltas on top of freshly
// fetched items, so a feed refresh cannot overwrite a more recent local value before
// the server has acknowledged it. Callers must hold s.mu.
func (s *Service) overlayPendingLikesLocked(items []models.Video) {
	for key, entry := range s.likes {
		if entry.state != LikePending {
			continue
		}
		for i := range items {
			if items[i].ID == key.videoID {
				items[i].LikesCount += entry.delta
			}
		}
	}
}
