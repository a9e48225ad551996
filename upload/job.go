package upload

import "sync"

// Status tracks an upload job through its linear lifecycle. Failure is terminal for a
// job instance; retrying means constructing a new job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusEncoding   Status = "encoding"
	StatusSubmitting Status = "submitting"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Job is one ephemeral media submission: local file paths plus the metadata the
// upload endpoint needs. Jobs are not persisted.
type Job struct {
	Title         string
	Description   string
	VideoPath     string
	ThumbnailPath string
	UserID        int64
	IsShort       bool

	// OnStatus, when set, observes every status transition.
	OnStatus func(Status)

	mu     sync.Mutex
	status Status
}

// NewJob constructs a pending job for the given owner and video file.
func NewJob(userID int64, title, videoPath string) *Job {
	return &Job{
		Title:     title,
		VideoPath: videoPath,
		UserID:    userID,
		status:    StatusPending,
	}
}

// Status returns the job's current lifecycle stage.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == "" {
		return StatusPending
	}
	return j.status
}

func (j *Job) setStatus(status Status) {
	j.mu.Lock()
	j.status = status
	callback := j.OnStatus
	j.mu.Unlock()

	if callback != nil {
		callback(status)
	}
}
