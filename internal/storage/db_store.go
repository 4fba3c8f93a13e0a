package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const insertMediaSQL = `INSERT INTO media (user_id, file_id, media_type, file_name, data) VALUES ($1, $2, $3, $4, $5)`

// Execer is satisfied by *pgxpool.Pool.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// SaveResult reports a database write. The database sink never returns an
// error value: callers inspect Saved and decide what a failure means to them.
type SaveResult struct {
	Saved bool
	Err   error
}

type DBStore struct {
	db     Execer
	reason error
	logger *zap.Logger
}

// NewDBStore accepts a nil db; reason then explains why (unset DATABASE_URL,
// failed connection) and is reported by every Save.
func NewDBStore(db Execer, reason error, logger *zap.Logger) *DBStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBStore{
		db:     db,
		reason: reason,
		logger: logger.With(zap.String("component", "db_store")),
	}
}

func (s *DBStore) Configured() bool {
	return s.db != nil
}

func (s *DBStore) Save(ctx context.Context, asset MediaAsset) SaveResult {
	if s.db == nil {
		err := ErrDatabaseUnconfigured
		if s.reason != nil {
			err = fmt.Errorf("%w: %w", ErrDatabaseUnconfigured, s.reason)
		}
		s.logger.Warn("skipping database save", zap.String("file_id", asset.SourceID), zap.Error(err))
		return SaveResult{Err: err}
	}

	_, err := s.db.Exec(ctx, insertMediaSQL,
		asset.UserID,
		asset.SourceID,
		string(asset.Kind),
		asset.Filename,
		asset.Data,
	)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrPersistence, err)
		s.logger.Error("failed to save media to database", zap.String("file_id", asset.SourceID), zap.Error(err))
		return SaveResult{Err: err}
	}

	s.logger.Info("saved media to database",
		zap.Int64("user_id", asset.UserID),
		zap.String("file_id", asset.SourceID),
		zap.String("type", string(asset.Kind)),
	)
	return SaveResult{Saved: true}
}
