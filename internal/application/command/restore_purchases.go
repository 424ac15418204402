package command

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nekolog/wellness-hub/internal/domain/subscription"
	"github.com/nekolog/wellness-hub/pkg/logger"
	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESTORE PURCHASES COMMAND
// Replays the account's entitlement stream through the subscription
// ledger. Safe to run any number of times: state is re-derived on
// every replay and treats are granted at most once per transaction.
// The periodic revocation check runs this same command.
// ══════════════════════════════════════════════════════════════════════════════

// EntitlementSource returns every verified transaction currently on the
// account, revoked ones included.
type EntitlementSource interface {
	CurrentEntitlements(ctx context.Context, productID string) ([]subscription.Transaction, error)
}

// RestorePurchasesCommand contains the data of one restore run.
type RestorePurchasesCommand struct {
	// ProductID defaults to the premium pass product.
	ProductID string

	// At is when the restore ran (defaults to now if zero).
	At time.Time
}

// RestorePurchasesResult contains the result of a restore run.
type RestorePurchasesResult struct {
	// Applied is the number of transactions replayed into the ledger.
	Applied int

	// TreatsGranted is the total paid out for never-credited
	// transactions. Zero on the purchasing device.
	TreatsGranted int

	// State is the subscription state after the replay.
	State subscription.State

	// Status is the derived display status after the replay.
	Status subscription.Status
}

// RestorePurchasesHandler handles the RestorePurchasesCommand.
type RestorePurchasesHandler struct {
	store  EntitlementSource
	ledger *subscription.Ledger
	log    *logger.Logger
}

// NewRestorePurchasesHandler creates a new RestorePurchasesHandler.
func NewRestorePurchasesHandler(store EntitlementSource, ledger *subscription.Ledger, log *logger.Logger) *RestorePurchasesHandler {
	if log == nil {
		log = logger.Default()
	}
	return &RestorePurchasesHandler{
		store:  store,
		ledger: ledger,
		log:    log.WithComponent("restore_purchases"),
	}
}

// Handle executes the restore purchases command.
func (h *RestorePurchasesHandler) Handle(ctx context.Context, cmd RestorePurchasesCommand) (*RestorePurchasesResult, error) {
	productID := cmd.ProductID
	if productID == "" {
		productID = subscription.ProductID
	}
	at := cmd.At
	if at.IsZero() {
		at = timeutil.Now()
	}

	transactions, err := h.store.CurrentEntitlements(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("restore_purchases: %w", err)
	}

	// Replay oldest first so the derived state walks the same path the
	// original purchases did.
	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].PurchaseDate.Before(transactions[j].PurchaseDate)
	})

	result := &RestorePurchasesResult{}
	for _, txn := range transactions {
		granted, err := h.ledger.ApplyRestore(ctx, txn)
		if err != nil {
			h.log.Warn("restore skipped a transaction",
				logger.Err(err),
				logger.TransactionID(txn.ID),
			)
			continue
		}
		result.Applied++
		result.TreatsGranted += granted
	}

	result.State = h.ledger.State()
	result.Status = h.ledger.UpdateStatus(ctx, at)

	h.log.Info("restore completed",
		logger.Int("transactions", len(transactions)),
		logger.Int("applied", result.Applied),
		logger.TreatAmount(result.TreatsGranted),
		logger.String("state", result.State.String()),
	)

	return result, nil
}
