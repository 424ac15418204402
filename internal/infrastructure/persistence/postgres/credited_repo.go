package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CreditedTransactionRepository records store transactions that already
// produced a treat grant. Implements
// subscription.CreditedTransactionRepository.
type CreditedTransactionRepository struct {
	conn      *Connection
	profileID uuid.UUID
}

// NewCreditedTransactionRepository creates a repository bound to one profile.
func NewCreditedTransactionRepository(conn *Connection, profileID uuid.UUID) *CreditedTransactionRepository {
	return &CreditedTransactionRepository{
		conn:      conn,
		profileID: profileID,
	}
}

// IsCredited reports whether the transaction has already been credited.
func (r *CreditedTransactionRepository) IsCredited(ctx context.Context, transactionID string) (bool, error) {
	query := `
		SELECT 1 FROM credited_transactions
		WHERE profile_id = $1 AND transaction_id = $2
	`

	var one int
	err := r.conn.QueryRow(ctx, query, r.profileID, transactionID).Scan(&one)
	if err != nil {
		if IsNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("credited lookup: %w", err)
	}
	return true, nil
}

// MarkCredited records a credit. A replay hits the primary key and is a
// no-op.
func (r *CreditedTransactionRepository) MarkCredited(ctx context.Context, transactionID string, amount int) error {
	query := `
		INSERT INTO credited_transactions (profile_id, transaction_id, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (profile_id, transaction_id) DO NOTHING
	`

	_, err := r.conn.Exec(ctx, query, r.profileID, transactionID, amount)
	if err != nil {
		return fmt.Errorf("mark credited: %w", err)
	}
	return nil
}
