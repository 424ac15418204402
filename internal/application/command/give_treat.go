package command

import (
	"context"
	"fmt"

	"github.com/nekolog/wellness-hub/internal/domain/reward"
	"github.com/nekolog/wellness-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GIVE TREAT COMMAND
// The feed action: spend treats on the cat. Feeding with an empty
// balance is not an error; the debit clamps at zero and Fed reports
// whether anything was actually given.
// ══════════════════════════════════════════════════════════════════════════════

// GiveTreatCommand contains the data of one feed action.
type GiveTreatCommand struct {
	// Treats is how many treats to give (defaults to 1 if zero).
	Treats int
}

// Validate validates the command.
func (c GiveTreatCommand) Validate() error {
	if c.Treats < 0 {
		return fmt.Errorf("give_treat: %w", shared.ErrNegativeAmount)
	}
	return nil
}

// GiveTreatResult contains the result of a feed action.
type GiveTreatResult struct {
	// Requested is how many treats the action asked for.
	Requested int

	// Debited is how many treats were actually taken from the balance.
	Debited int

	// Fed reports whether the cat got at least one treat.
	Fed bool

	// Balance is the treat balance after the action.
	Balance shared.Treats
}

// GiveTreatHandler handles the GiveTreatCommand.
type GiveTreatHandler struct {
	ledger *reward.Ledger
}

// NewGiveTreatHandler creates a new GiveTreatHandler.
func NewGiveTreatHandler(ledger *reward.Ledger) *GiveTreatHandler {
	return &GiveTreatHandler{ledger: ledger}
}

// Handle executes the give treat command.
func (h *GiveTreatHandler) Handle(ctx context.Context, cmd GiveTreatCommand) (*GiveTreatResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	requested := cmd.Treats
	if requested == 0 {
		requested = 1
	}

	debited, err := h.ledger.Spend(ctx, shared.Treats(requested))
	if err != nil {
		return nil, fmt.Errorf("give_treat: %w", err)
	}

	return &GiveTreatResult{
		Requested: requested,
		Debited:   debited.Int(),
		Fed:       debited > 0,
		Balance:   h.ledger.Balance(),
	}, nil
}
