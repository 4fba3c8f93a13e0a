// Package users answers whether a Telegram user is registered with the service.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type Checker interface {
	Exists(ctx context.Context, userID int64) (bool, error)
}

// AllowAll treats every sender as registered.
type AllowAll struct{}

func (AllowAll) Exists(context.Context, int64) (bool, error) { return true, nil }

// Querier is satisfied by *pgxpool.Pool.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userExistsSQL = `SELECT 1 FROM users WHERE user_id = $1`

type PostgresChecker struct {
	db Querier
}

func NewPostgresChecker(db Querier) *PostgresChecker {
	return &PostgresChecker{db: db}
}

func (c *PostgresChecker) Exists(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := c.db.QueryRow(ctx, userExistsSQL, userID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user %d: %w", userID, err)
	}
	return true, nil
}
