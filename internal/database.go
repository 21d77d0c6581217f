package internal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

type DatabaseManager struct {
	DB *sql.DB
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS matches (
		match_id TEXT PRIMARY KEY,
		game_creation BIGINT,
		game_duration BIGINT,
		game_end_timestamp BIGINT,
		game_mode TEXT,
		game_start_timestamp BIGINT,
		game_type TEXT,
		game_version TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS participants (
		match_id TEXT REFERENCES matches(match_id),
		puuid TEXT,
		champion TEXT,
		individual_position TEXT,
		team_position TEXT,
		team_id INTEGER,
		win BOOLEAN,
		rank_num INTEGER,
		PRIMARY KEY (match_id, puuid)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_participants_puuid ON participants(puuid)`,
	`CREATE INDEX IF NOT EXISTS idx_participants_champion ON participants(champion)`,
	`CREATE TABLE IF NOT EXISTS gather_progress (
		platform TEXT,
		start_time TEXT,
		end_time TEXT,
		puuid TEXT,
		last_start_index INTEGER NOT NULL,
		last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (platform, start_time, end_time, puuid)
	)`,
}

// NewDatabaseManager opens the Postgres pool and applies the schema. The
// stores cannot run without it, so failures are returned, not degraded.
func NewDatabaseManager(cfg *Config, logger *Logger) (*DatabaseManager, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.PostgresHost,
		cfg.PostgresPort,
		cfg.PostgresUser,
		cfg.PostgresPassword,
		cfg.PostgresDb,
		cfg.PostgresSSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	logger.Info("database_connected").
		Component("database").
		Operation("connect").
		Meta("host", cfg.PostgresHost).
		Meta("dbname", cfg.PostgresDb).
		Log()

	return &DatabaseManager{DB: db}, nil
}

func (dm *DatabaseManager) Close() {
	if dm.DB != nil {
		dm.DB.Close()
	}
}
