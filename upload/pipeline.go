package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cotovideo/client/feeds"
	"github.com/cotovideo/client/logging"
	"github.com/cotovideo/client/models"
	"github.com/cotovideo/client/transport"
)

const maxTitleLength = 100

var (
	// ErrEmptyTitle indicates the job has no title after trimming whitespace.
	ErrEmptyTitle = errors.New("title is required")
	// ErrTitleTooLong indicates the title exceeds the 100 character limit.
	ErrTitleTooLong = errors.New("title exceeds 100 characters")
	// ErrMissingVideo indicates no video file is attached to the job.
	ErrMissingVideo = errors.New("video file is required")
)

// Pipeline converts a local media file into the transport encoding and submits it.
// Stages run strictly in order: validate, encode video, encode thumbnail, submit.
// The first failing stage wins and later stages are not attempted.
type Pipeline struct {
	uploadURL string
	tr        *transport.Client
	feeds     *feeds.Service
	maxBytes  int64
	logger    *slog.Logger
}

// NewPipeline constructs a Pipeline. The feeds service may be nil when no feed cache
// reconciliation is wanted (tests); maxBytes bounds the whole-file encoding.
func NewPipeline(uploadURL string, tr *transport.Client, feedService *feeds.Service, maxBytes int64, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		uploadURL: uploadURL,
		tr:        tr,
		feeds:     feedService,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// Validate checks the job's local invariants. It performs no I/O.
func (p *Pipeline) Validate(job *Job) error {
	if job == nil {
		return ErrMissingVideo
	}
	title := strings.TrimSpace(job.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return ErrTitleTooLong
	}
	if strings.TrimSpace(job.VideoPath) == "" {
		return ErrMissingVideo
	}
	return nil
}

type submitRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Video       string `json:"video"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	IsShort     bool   `json:"is_short"`
}

type submitResponse struct {
	Success bool         `json:"success"`
	Video   models.Video `json:"video"`
}

// Submit runs the job through the pipeline and returns the created video. The job
// moves pending → encoding → submitting → succeeded or failed; a validation failure
// issues zero network calls. On success the video is folded into the feed cache even
// when the caller has already navigated away.
func (p *Pipeline) Submit(ctx context.Context, job *Job) (models.Video, error) {
	ctx, op := logging.StartOp(ctx, "upload.submit")

	if err := p.Validate(job); err != nil {
		return p.fail(op, job, err)
	}

	job.setStatus(StatusEncoding)

	video, err := transport.EncodeFile(job.VideoPath, p.maxBytes)
	if err != nil {
		return p.fail(op, job, err)
	}

	var thumbnail string
	if strings.TrimSpace(job.ThumbnailPath) != "" {
		thumbnail, err = transport.EncodeFile(job.ThumbnailPath, p.maxBytes)
		if err != nil {
			return p.fail(op, job, err)
		}
	}

	job.setStatus(StatusSubmitting)

	req := submitRequest{
		Title:       strings.TrimSpace(job.Title),
		Description: job.Description,
		Video:       video,
		Thumbnail:   thumbnail,
		IsShort:     job.IsShort,
	}
	headers := map[string]string{"X-User-Id": strconv.FormatInt(job.UserID, 10)}

	var resp submitResponse
	if err := p.tr.PostJSON(ctx, p.uploadURL, req, &resp, headers); err != nil {
		return p.fail(op, job, fmt.Errorf("submit upload: %w", err))
	}

	job.setStatus(StatusSucceeded)
	op.End(nil)

	// The server-side record exists now, so the cache learns about it regardless of
	// whether the originating dialog is still open.
	if p.feeds != nil {
		p.feeds.NoteVideoCreated(resp.Video)
	}

	return resp.Video, nil
}

func (p *Pipeline) fail(op *logging.Op, job *Job, err error) (models.Video, error) {
	job.setStatus(StatusFailed)
	op.End(err)
	return models.Video{}, err
}
