// Package storage records finished games in Postgres. Every method is safe to
// call on a nil *Store, which is what the server runs with when no database is
// configured.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"kittens-server/game"
)

const maxRecent = 200

const createTableSQL = `
CREATE TABLE IF NOT EXISTS game_results (
	id              UUID PRIMARY KEY,
	game_id         INT NOT NULL,
	winner_identity TEXT,
	winner_name     TEXT,
	seats           SMALLINT NOT NULL,
	seed            BIGINT NOT NULL,
	started_at      TIMESTAMPTZ NOT NULL,
	finished_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_game_results_finished_at ON game_results(finished_at DESC);
CREATE INDEX IF NOT EXISTS idx_game_results_winner ON game_results(winner_identity);
`

// Result is one finished game.
type Result struct {
	ID             string    `json:"id"`
	GameID         uint16    `json:"game_id"`
	WinnerIdentity string    `json:"winner_identity,omitempty"`
	WinnerName     string    `json:"winner_name,omitempty"`
	Seats          int       `json:"seats"`
	Seed           int64     `json:"seed"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// ResultFromGame snapshots a finished game. It reads the game's fields
// directly and is meant for the game's OnFinish hook, which runs with the
// game locked.
func ResultFromGame(g *game.Game) Result {
	r := Result{
		ID:         uuid.NewString(),
		GameID:     g.ID,
		Seats:      g.Seats,
		Seed:       g.Seed,
		StartedAt:  g.StartedAt.UTC(),
		FinishedAt: time.Now().UTC(),
	}
	if g.Winner != nil {
		r.WinnerIdentity = g.Winner.Identity
		r.WinnerName = g.Winner.Name()
	}
	return r
}

// Store persists results using a Postgres connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New connects to databaseURL and creates the schema if needed.
func New(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{pool: pool, logger: logger.Named("storage")}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// RecordResult inserts one finished game.
func (s *Store) RecordResult(ctx context.Context, r Result) error {
	if s == nil || s.pool == nil {
		return nil
	}
	var winnerIdentity, winnerName *string
	if r.WinnerIdentity != "" {
		winnerIdentity, winnerName = &r.WinnerIdentity, &r.WinnerName
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO game_results (id, game_id, winner_identity, winner_name, seats, seed, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, int(r.GameID), winnerIdentity, winnerName, r.Seats, r.Seed, r.StartedAt, r.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert result %s: %w", r.ID, err)
	}
	s.logger.Debug("result recorded", zap.String("id", r.ID), zap.Uint16("game", r.GameID))
	return nil
}

// Recent returns the most recently finished games, newest first. limit is
// clamped to [1, 200].
func (s *Store) Recent(ctx context.Context, limit int) ([]Result, error) {
	if s == nil || s.pool == nil {
		return []Result{}, nil
	}
	limit = clampLimit(limit)
	rows, err := s.pool.Query(ctx, `
		SELECT id, game_id, COALESCE(winner_identity, ''), COALESCE(winner_name, ''), seats, seed, started_at, finished_at
		FROM game_results
		ORDER BY finished_at DESC
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Result{}
	for rows.Next() {
		var (
			r      Result
			gameID int32
			seats  int16
		)
		if err := rows.Scan(&r.ID, &gameID, &r.WinnerIdentity, &r.WinnerName, &seats, &r.Seed, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		r.GameID = uint16(gameID)
		r.Seats = int(seats)
		r.StartedAt = r.StartedAt.UTC()
		r.FinishedAt = r.FinishedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 1
	}
	if limit > maxRecent {
		return maxRecent
	}
	return limit
}
