package bot

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks a request the caller built incorrectly.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrFileNotFound marks a getFile failure: the file id could not be
	// resolved to a downloadable path.
	ErrFileNotFound = errors.New("file not found")
	// ErrNoToken is returned by every call when the bot token is unset.
	ErrNoToken = errors.New("bot token is not configured")
	// ErrFileTooLarge is wrapped by DownloadError when the body exceeds the limit.
	ErrFileTooLarge = errors.New("file exceeds size limit")
)

// TransportError is an upstream failure of a Bot API method: a network error,
// a non-2xx status or an envelope with "ok": false.
type TransportError struct {
	Method string
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	msg := "telegram " + e.Method + " failed"
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	switch {
	case e.Body != "":
		msg += ": " + e.Body
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// DownloadError is a failure fetching bytes from the file origin after the
// path has been resolved.
type DownloadError struct {
	FilePath string
	Status   int
	Err      error
}

func (e *DownloadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("download %s: status %d", e.FilePath, e.Status)
	}
	return fmt.Sprintf("download %s: %v", e.FilePath, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }
