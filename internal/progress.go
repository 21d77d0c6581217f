package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PostgresProgressStore struct {
	db *sql.DB
}

func NewProgressStore(dm *DatabaseManager) *PostgresProgressStore {
	return &PostgresProgressStore{db: dm.DB}
}

// GetStartIndex returns the last recorded pagination offset for the context,
// or 0 when the context has never been seen.
func (s *PostgresProgressStore) GetStartIndex(ctx context.Context, qc QueryContext) (int, error) {
	var index int
	err := s.db.QueryRowContext(ctx, `
		SELECT last_start_index
		FROM gather_progress
		WHERE platform = $1 AND start_time = $2 AND end_time = $3 AND puuid = $4
	`, qc.Platform, qc.StartTime, qc.EndTime, qc.PUUID).Scan(&index)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get start index: %w", err)
	}
	return index, nil
}

// SetStartIndex upserts the offset for the context, last write wins.
func (s *PostgresProgressStore) SetStartIndex(ctx context.Context, qc QueryContext, index int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO gather_progress (platform, start_time, end_time, puuid, last_start_index)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (platform, start_time, end_time, puuid) DO UPDATE SET
			last_start_index = $5,
			last_updated = NOW()
	`, qc.Platform, qc.StartTime, qc.EndTime, qc.PUUID, index)
	if err != nil {
		return fmt.Errorf("set start index: %w", err)
	}
	return nil
}

// Clear deletes all progress records. Administrative use only.
func (s *PostgresProgressStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM gather_progress`); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}
