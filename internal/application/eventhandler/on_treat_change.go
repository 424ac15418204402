package eventhandler

import (
	"context"

	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON TREAT CHANGE HANDLER
// Appends every grant and spend to the treat audit trail. The balance
// itself is owned by the reward ledger; this handler only records the
// movement, so a failed write never blocks the economy.
// ══════════════════════════════════════════════════════════════════════════════

// TreatAuditWriter appends one balance movement to the audit trail.
type TreatAuditWriter interface {
	RecordTreatTransaction(ctx context.Context, amount, balanceAfter int, reason string) error
}

// OnTreatChangeHandler handles both treat granted and treat spent events.
// Register it once per event type.
type OnTreatChangeHandler struct {
	audit TreatAuditWriter
	log   *logger.Logger
}

// NewOnTreatChangeHandler creates a new treat change handler.
func NewOnTreatChangeHandler(audit TreatAuditWriter, log *logger.Logger) *OnTreatChangeHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnTreatChangeHandler{
		audit: audit,
		log:   log.WithComponent("on_treat_change"),
	}
}

// Handle implements shared.EventHandler.
func (h *OnTreatChangeHandler) Handle(event shared.Event) error {
	if h.audit == nil {
		return nil
	}

	ctx := context.Background()

	switch e := event.(type) {
	case shared.TreatsGrantedEvent:
		return h.record(ctx, e.Amount, e.Balance, e.Reason)
	case shared.TreatsSpentEvent:
		// Spends are recorded as negative movements.
		return h.record(ctx, -e.Debited, e.Balance, "feed")
	default:
		h.log.Warn("received unexpected event", logger.String("event_type", string(event.EventType())))
		return nil
	}
}

func (h *OnTreatChangeHandler) record(ctx context.Context, amount, balance int, reason string) error {
	if err := h.audit.RecordTreatTransaction(ctx, amount, balance, reason); err != nil {
		h.log.Warn("audit write failed",
			logger.Err(err),
			logger.TreatAmount(amount),
			logger.String("reason", reason),
		)
		return err
	}
	return nil
}

// EventTypes returns the event types this handler subscribes to.
func (h *OnTreatChangeHandler) EventTypes() []shared.EventType {
	return []shared.EventType{shared.EventTreatsGranted, shared.EventTreatsSpent}
}
