package models

// User represents an authenticated CotoVideo account as returned by the auth endpoint.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Video is a single content record from the videos feed. Everything except the
// engagement counters (Views, LikesCount) is immutable on the client; counters are
// only adjusted through the explicit engagement operations in the feeds package.
type Video struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	ThumbnailURL  string `json:"thumbnail_url"`
	VideoURL      string `json:"video_url,omitempty"`
	Duration      string `json:"duration"`
	Views         int64  `json:"views"`
	IsShort       bool   `json:"is_short"`
	CreatedAt     string `json:"created_at"`
	ChannelName   string `json:"channel_name"`
	ChannelAvatar string `json:"channel_avatar,omitempty"`
	LikesCount    int64  `json:"likes_count"`
	CommentsCount int64  `json:"comments_count"`
}

// Stream is a live broadcast record. The stream key and RTMP URL are server-assigned
// broadcaster credentials and remain opaque to the client.
type Stream struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	StreamKey     string `json:"stream_key,omitempty"`
	RTMPURL       string `json:"rtmp_url,omitempty"`
	IsLive        bool   `json:"is_live"`
	ViewersCount  int64  `json:"viewers_count"`
	ChannelName   string `json:"channel_name"`
	ChannelAvatar string `json:"channel_avatar,omitempty"`
	StartedAt     string `json:"started_at"`
}

// Session groups the identity persisted between process restarts.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Empty reports whether the session carries no authenticated identity.
func (s Session) Empty() bool {
	return s.Token == "" && s.User.ID == 0
}
