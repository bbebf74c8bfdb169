package inbox

import "errors"

var (
	// ErrDirectoryUnavailable means the identity or listing batch lookup failed;
	// no directory is returned.
	ErrDirectoryUnavailable = errors.New("could not load conversations")
	// ErrEmptyMessage means the body was blank after trimming; nothing was sent.
	ErrEmptyMessage = errors.New("message body is empty")
	// ErrSendFailed means the write was rejected; nothing was appended locally.
	ErrSendFailed = errors.New("message was not sent")
	// ErrClosed is returned by a View or Bell after Close or Stop.
	ErrClosed = errors.New("view is closed")
	// ErrNotFound means the backend has no such record.
	ErrNotFound = errors.New("not found")
)
