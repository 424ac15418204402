package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

// ScoreHistoryEntry is one finalized day: the score the rollover closed
// the day with and the step total reached.
type ScoreHistoryEntry struct {
	Day   shared.Day
	Score shared.Score
	Steps int
}

// TreatTransactionEntry is one treat mutation from the audit trail.
type TreatTransactionEntry struct {
	Amount       int
	BalanceAfter int
	Reason       string
	CreatedAt    time.Time
}

// HistoryRepository writes the per-day score history and the treat
// transaction audit trail. Both are append-only; the event handlers are
// the writers, the chart queries are the readers.
type HistoryRepository struct {
	conn      *Connection
	profileID uuid.UUID
}

// NewHistoryRepository creates a history repository bound to one profile.
func NewHistoryRepository(conn *Connection, profileID uuid.UUID) *HistoryRepository {
	return &HistoryRepository{
		conn:      conn,
		profileID: profileID,
	}
}

// RecordScore upserts the finalized score for a day. The rollover may
// run twice for the same day (timer fire plus catch-up); the later write
// wins.
func (r *HistoryRepository) RecordScore(ctx context.Context, day shared.Day, score shared.Score, steps int) error {
	query := `
		INSERT INTO score_history (profile_id, day, score, steps)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (profile_id, day)
		DO UPDATE SET score = EXCLUDED.score, steps = EXCLUDED.steps
	`

	_, err := r.conn.Exec(ctx, query, r.profileID, day.Time(), score.Int(), steps)
	if err != nil {
		return fmt.Errorf("record score: %w", err)
	}
	return nil
}

// RecentScores returns up to limit finalized days, newest first.
func (r *HistoryRepository) RecentScores(ctx context.Context, limit int) ([]ScoreHistoryEntry, error) {
	query := `
		SELECT day, score, steps
		FROM score_history
		WHERE profile_id = $1
		ORDER BY day DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, r.profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent scores: %w", err)
	}
	defer rows.Close()

	var entries []ScoreHistoryEntry
	for rows.Next() {
		var day time.Time
		var entry ScoreHistoryEntry
		if err := rows.Scan(&day, &entry.Score, &entry.Steps); err != nil {
			return nil, fmt.Errorf("scan score history: %w", err)
		}
		entry.Day = shared.DayOf(day, timeutil.JST)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// RecordTreatTransaction appends one treat mutation to the audit trail.
func (r *HistoryRepository) RecordTreatTransaction(ctx context.Context, amount, balanceAfter int, reason string) error {
	query := `
		INSERT INTO treat_transactions (profile_id, amount, balance_after, reason)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.conn.Exec(ctx, query, r.profileID, amount, balanceAfter, reason)
	if err != nil {
		return fmt.Errorf("record treat transaction: %w", err)
	}
	return nil
}

// RecentTreatTransactions returns up to limit mutations, newest first.
func (r *HistoryRepository) RecentTreatTransactions(ctx context.Context, limit int) ([]TreatTransactionEntry, error) {
	query := `
		SELECT amount, balance_after, reason, created_at
		FROM treat_transactions
		WHERE profile_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, r.profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent treat transactions: %w", err)
	}
	defer rows.Close()

	var entries []TreatTransactionEntry
	for rows.Next() {
		var entry TreatTransactionEntry
		if err := rows.Scan(&entry.Amount, &entry.BalanceAfter, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan treat transaction: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
