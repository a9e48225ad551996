package feeds

import "errors"

var (
	// ErrNotFound indicates the server has no record for the requested id.
	ErrNotFound = errors.New("video not found")
	// ErrUnknownKind indicates a feed kind this service does not manage.
	ErrUnknownKind = errors.New("unknown feed kind")
)
