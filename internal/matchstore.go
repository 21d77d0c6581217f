package internal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

type PostgresMatchStore struct {
	db     *sql.DB
	logger *Logger
}

func NewMatchStore(dm *DatabaseManager, logger *Logger) *PostgresMatchStore {
	return &PostgresMatchStore{db: dm.DB, logger: logger}
}

// FilterUnseen returns the subset of ids not already stored. An empty input
// returns an empty set without touching the database.
func (s *PostgresMatchStore) FilterUnseen(ctx context.Context, ids map[string]struct{}) (map[string]struct{}, error) {
	unseen := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return unseen, nil
	}

	candidates := make([]string, 0, len(ids))
	for id := range ids {
		candidates = append(candidates, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT match_id FROM matches WHERE match_id = ANY($1)`,
		pq.Array(candidates),
	)
	if err != nil {
		return nil, fmt.Errorf("filter unseen: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("filter unseen scan: %w", err)
		}
		existing[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("filter unseen rows: %w", err)
	}

	for id := range ids {
		if _, seen := existing[id]; !seen {
			unseen[id] = struct{}{}
		}
	}
	return unseen, nil
}

// UpsertMatches writes matches and their participants in one transaction.
// Existing match_ids and (match_id, puuid) pairs are left untouched. The
// returned count is the number of matches processed in the call, not the
// number newly inserted; conflicts are skipped silently.
func (s *PostgresMatchStore) UpsertMatches(ctx context.Context, matches []*Match) (int, error) {
	if len(matches) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("upsert matches begin: %w", err)
	}
	defer tx.Rollback()

	matchStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO matches (
			match_id, game_creation, game_duration, game_end_timestamp,
			game_mode, game_start_timestamp, game_type, game_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (match_id) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("upsert matches prepare: %w", err)
	}
	defer matchStmt.Close()

	participantStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO participants (
			match_id, puuid, champion, individual_position, team_position,
			team_id, win, rank_num
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (match_id, puuid) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("upsert participants prepare: %w", err)
	}
	defer participantStmt.Close()

	count := 0
	for _, m := range matches {
		_, err := matchStmt.ExecContext(ctx,
			m.MatchID, m.GameCreation, m.GameDuration, m.GameEndTimestamp,
			m.GameMode, m.GameStartTimestamp, m.GameType, m.GameVersion,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert match %s: %w", m.MatchID, err)
		}

		for _, p := range m.Participants {
			var rankNum sql.NullInt64
			if p.RankNum != nil {
				rankNum = sql.NullInt64{Int64: int64(*p.RankNum), Valid: true}
			}
			_, err := participantStmt.ExecContext(ctx,
				m.MatchID, p.PUUID, p.Champion, p.IndividualPosition,
				p.TeamPosition, p.TeamID, p.Win, rankNum,
			)
			if err != nil {
				return 0, fmt.Errorf("upsert participant %s/%s: %w", m.MatchID, p.PUUID, err)
			}
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("upsert matches commit: %w", err)
	}

	s.logger.Debug("matches_upserted").
		Component("match_store").
		Operation("upsert_matches").
		Meta("count", count).
		Log()

	return count, nil
}

// Clear deletes all matches and participants. Administrative use only.
func (s *PostgresMatchStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("clear matches begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM participants`); err != nil {
		return fmt.Errorf("clear participants: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM matches`); err != nil {
		return fmt.Errorf("clear matches: %w", err)
	}

	return tx.Commit()
}
