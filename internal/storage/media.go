// Package storage holds the three media sinks: the in-process cache, the
// filesystem store and the postgres store.
package storage

import (
	"errors"
	"time"
)

type MediaKind string

const (
	KindPhoto MediaKind = "photo"
	KindVideo MediaKind = "video"
)

// MediaAsset is one downloaded file and its ownership metadata.
type MediaAsset struct {
	SourceID   string
	UserID     int64
	Kind       MediaKind
	Filename   string
	CapturedAt time.Time
	Data       []byte
}

var (
	// ErrIO wraps filesystem sink failures.
	ErrIO = errors.New("media io error")
	// ErrDatabaseUnconfigured is reported when no database pool is available.
	ErrDatabaseUnconfigured = errors.New("database is not configured")
	// ErrPersistence wraps database insert failures.
	ErrPersistence = errors.New("media persistence failed")
)
