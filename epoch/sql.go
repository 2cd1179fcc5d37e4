package epoch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Querier is the part of *sql.DB the SQL source needs.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQL reads the epoch as the single value returned by a query, like the id of the last processed update.
// No rows or a NULL is the empty epoch.
type SQL struct {
	db    Querier
	query string
}

func NewSQL(db Querier, query string) *SQL {
	return &SQL{db: db, query: query}
}

func (s *SQL) CurrentEpoch(ctx context.Context) (Epoch, error) {
	var v any
	err := s.db.QueryRowContext(ctx, s.query).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query epoch: %w", err)
	}
	switch v := v.(type) {
	case nil:
		return "", nil
	case []byte:
		return Epoch(v), nil
	case time.Time:
		return Epoch(v.UTC().Format(time.RFC3339Nano)), nil
	default:
		return Epoch(fmt.Sprint(v)), nil
	}
}
