package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/internal/domain/subscription"
	"github.com/nekolog/wellness-hub/pkg/logger"
	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PURCHASE PASS COMMAND
// Runs the store purchase flow for the premium pass and applies the
// verified transaction to the subscription ledger. A cancelled
// purchase sheet mutates nothing.
// ══════════════════════════════════════════════════════════════════════════════

// PurchaseService runs the store purchase flow and returns the verified
// transaction, or shared.ErrPurchaseCancelled when the user dismissed
// the purchase sheet.
type PurchaseService interface {
	Purchase(ctx context.Context, productID string) (subscription.Transaction, error)
}

// PurchasePassCommand contains the data of one purchase attempt.
type PurchasePassCommand struct {
	// ProductID defaults to the premium pass product.
	ProductID string

	// At is when the purchase happened (defaults to now if zero).
	At time.Time
}

// PurchasePassResult contains the result of a purchase attempt.
type PurchasePassResult struct {
	// Cancelled reports that the user dismissed the purchase sheet.
	Cancelled bool

	// TreatsGranted is the number of treats the transaction paid out.
	TreatsGranted int

	// State is the subscription state after the purchase.
	State subscription.State

	// Status is the derived display status after the purchase.
	Status subscription.Status
}

// PurchasePassHandler handles the PurchasePassCommand.
type PurchasePassHandler struct {
	store  PurchaseService
	ledger *subscription.Ledger
	log    *logger.Logger
}

// NewPurchasePassHandler creates a new PurchasePassHandler.
func NewPurchasePassHandler(store PurchaseService, ledger *subscription.Ledger, log *logger.Logger) *PurchasePassHandler {
	if log == nil {
		log = logger.Default()
	}
	return &PurchasePassHandler{
		store:  store,
		ledger: ledger,
		log:    log.WithComponent("purchase_pass"),
	}
}

// Handle executes the purchase pass command.
func (h *PurchasePassHandler) Handle(ctx context.Context, cmd PurchasePassCommand) (*PurchasePassResult, error) {
	productID := cmd.ProductID
	if productID == "" {
		productID = subscription.ProductID
	}
	at := cmd.At
	if at.IsZero() {
		at = timeutil.Now()
	}

	txn, err := h.store.Purchase(ctx, productID)
	if err != nil {
		if errors.Is(err, shared.ErrPurchaseCancelled) {
			h.log.Info("purchase cancelled by user")
			return &PurchasePassResult{
				Cancelled: true,
				State:     h.ledger.State(),
				Status:    h.ledger.Status(),
			}, nil
		}
		return nil, fmt.Errorf("purchase_pass: %w", err)
	}

	granted, err := h.ledger.ApplyPurchase(ctx, txn)
	if err != nil && !shared.IsAlreadyProcessed(err) {
		return nil, fmt.Errorf("purchase_pass: apply transaction: %w", err)
	}

	return &PurchasePassResult{
		TreatsGranted: granted,
		State:         h.ledger.State(),
		Status:        h.ledger.UpdateStatus(ctx, at),
	}, nil
}
