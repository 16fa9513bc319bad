// Package history persists finished quiz rounds. Live session state stays
// in memory; only completed rounds reach the database.
package history

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/wordbot/core/logger"
)

// Round is one finished quiz round.
type Round struct {
	ID              uuid.UUID `db:"id"`
	UserID          int64     `db:"user_id"`
	CollectionID    int64     `db:"collection_id"`
	CollectionTitle string    `db:"collection_title"`
	Total           int       `db:"total"`
	Correct         int       `db:"correct"`
	Incorrect       int       `db:"incorrect"`
	FinishedAt      time.Time `db:"finished_at"`
}

// Summary aggregates a user's finished rounds.
type Summary struct {
	Rounds    int `db:"rounds"`
	Total     int `db:"total"`
	Correct   int `db:"correct"`
	Incorrect int `db:"incorrect"`
}

// Repository reads and writes quiz rounds.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// SaveRound records one finished round. Zero ID and FinishedAt are filled in.
func (r *Repository) SaveRound(ctx context.Context, round Round) error {
	if round.ID == uuid.Nil {
		round.ID = uuid.New()
	}
	if round.FinishedAt.IsZero() {
		round.FinishedAt = time.Now().UTC()
	}

	const q = `
		INSERT INTO rounds (id, user_id, collection_id, collection_title, total, correct, incorrect, finished_at)
		VALUES (:id, :user_id, :collection_id, :collection_title, :total, :correct, :incorrect, :finished_at)`

	start := time.Now()
	if _, err := r.db.NamedExecContext(ctx, q, round); err != nil {
		logger.HIST.Error("round save failed",
			slog.String("event", "history.save"),
			slog.Int64("user_id", round.UserID),
			slog.Int64("collection_id", round.CollectionID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("save round: %w", err)
	}

	logger.HIST.Debug("round saved",
		slog.String("event", "history.save"),
		slog.String("round_id", round.ID.String()),
		slog.Int64("user_id", round.UserID),
		slog.Int64("collection_id", round.CollectionID),
		slog.Int("total", round.Total),
		slog.Int("correct", round.Correct),
		slog.Int("incorrect", round.Incorrect),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

// UserSummary aggregates all finished rounds of one user. A user with no
// rounds gets a zero summary, not an error.
func (r *Repository) UserSummary(ctx context.Context, userID int64) (Summary, error) {
	const q = `
		SELECT
			COUNT(*)                      AS rounds,
			COALESCE(SUM(total), 0)       AS total,
			COALESCE(SUM(correct), 0)     AS correct,
			COALESCE(SUM(incorrect), 0)   AS incorrect
		FROM rounds
		WHERE user_id = $1`

	var out Summary
	if err := r.db.GetContext(ctx, &out, q, userID); err != nil {
		logger.HIST.Error("summary query failed",
			slog.String("event", "history.summary"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return Summary{}, fmt.Errorf("user %d summary: %w", userID, err)
	}
	return out, nil
}
