package orders

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"writehub/order-portal/order-portal-backend/internal/apperr"
	"writehub/order-portal/order-portal-backend/pkg/workflows"
)

// Notifier is the fire-and-forget event sink. Implementations must never
// block the caller on delivery failures.
type Notifier interface {
	Notify(ctx context.Context, event string, payload map[string]interface{})
}

// Executor is the single place order status changes happen. Handlers for
// every role call it; none of them decide legality themselves.
type Executor struct {
	sm       *workflows.StateMachine
	repo     Repository
	notifier Notifier
	logger   *zap.Logger
}

func NewExecutor(repo Repository, notifier Notifier, logger *zap.Logger) *Executor {
	return &Executor{
		sm:       workflows.NewStateMachine(),
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// ApplyTransition validates and applies a requested status change.
//
// Validation order: the edge must exist in the graph, the actor role must be
// allowed on that edge, and every gate on the edge must be satisfied.
// Re-requesting the current status is a no-op success so retried client calls
// stay harmless. The status update and the audit log row are written in one
// transaction.
func (e *Executor) ApplyTransition(ctx context.Context, orderID uuid.UUID, target string, actorID uuid.UUID, actorRole, note string) (*Order, error) {
	order, err := e.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("order %s not found", orderID)
	}

	if !e.sm.IsKnown(target) {
		return nil, apperr.Validation("unknown status %q", target)
	}
	if order.Status == target {
		return order, nil
	}
	if !e.sm.CanTransition(order.Status, target) {
		return nil, apperr.InvalidTransition(order.Status, target)
	}
	if !e.sm.AllowedFor(order.Status, target, actorRole) {
		return nil, apperr.Forbidden("role %q may not move order from %q to %q", actorRole, order.Status, target)
	}
	if err := e.checkGates(order, target, actorID, actorRole); err != nil {
		return nil, err
	}

	change := StatusChange{
		OrderID:    order.ID,
		FromStatus: order.Status,
		ToStatus:   target,
		Fields:     e.derivedFields(order, target, note, actorID, actorRole),
		Log: StatusLog{
			ID:        uuid.New(),
			OrderID:   order.ID,
			OldStatus: order.Status,
			NewStatus: target,
			ActorID:   actorID,
			ActorRole: actorRole,
			Note:      note,
		},
	}

	if err := e.repo.ApplyStatusChange(ctx, change); err != nil {
		return nil, err
	}

	e.logger.Info("order transitioned",
		zap.String("order_id", order.ID.String()),
		zap.String("from", order.Status),
		zap.String("to", target),
		zap.String("actor_role", actorRole))

	updated, err := e.repo.GetByID(ctx, orderID)
	if err != nil || updated == nil {
		// The transition committed; fall back to the in-memory view.
		updated = order
		updated.Status = target
	}

	e.notifier.Notify(ctx, "order.status_changed", map[string]interface{}{
		"order_id":   order.ID.String(),
		"order_code": order.OrderCode,
		"old_status": change.FromStatus,
		"new_status": target,
		"client_id":  order.ClientID.String(),
	})

	return updated, nil
}

// Resume takes an order out of on_hold, returning it to the status persisted
// at hold time. The target is never recomputed from current fields; the only
// adjustment is a fallback to accepted when the stored target requires a
// freelancer that is no longer attached.
func (e *Executor) Resume(ctx context.Context, orderID uuid.UUID, actorID uuid.UUID, actorRole string) (*Order, error) {
	if actorRole != workflows.RoleAdmin && actorRole != workflows.RoleManager {
		return nil, apperr.Forbidden("role %q may not resume orders", actorRole)
	}

	order, err := e.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("order %s not found", orderID)
	}
	if order.Status != workflows.StatusOnHold {
		return nil, apperr.InvalidTransition(order.Status, "resume")
	}

	target := workflows.StatusAccepted
	if order.PreHoldStatus != nil && *order.PreHoldStatus != "" {
		target = *order.PreHoldStatus
	}
	if order.AssignedFreelancerID == nil && requiresFreelancer(target) {
		target = workflows.StatusAccepted
	}

	change := StatusChange{
		OrderID:    order.ID,
		FromStatus: workflows.StatusOnHold,
		ToStatus:   target,
		Fields: statusFields{
			PreHoldStatus: &sql.NullString{}, // clear
		},
		Log: StatusLog{
			ID:        uuid.New(),
			OrderID:   order.ID,
			OldStatus: workflows.StatusOnHold,
			NewStatus: target,
			ActorID:   actorID,
			ActorRole: actorRole,
			Note:      "resumed from hold",
		},
	}

	if err := e.repo.ApplyStatusChange(ctx, change); err != nil {
		return nil, err
	}

	e.logger.Info("order resumed",
		zap.String("order_id", order.ID.String()),
		zap.String("target", target))

	e.notifier.Notify(ctx, "order.status_changed", map[string]interface{}{
		"order_id":   order.ID.String(),
		"order_code": order.OrderCode,
		"old_status": workflows.StatusOnHold,
		"new_status": target,
		"client_id":  order.ClientID.String(),
	})

	updated, err := e.repo.GetByID(ctx, orderID)
	if err != nil || updated == nil {
		updated = order
		updated.Status = target
	}
	return updated, nil
}

func (e *Executor) checkGates(order *Order, target string, actorID uuid.UUID, actorRole string) error {
	for _, gate := range e.sm.RequiredGates(order.Status, target) {
		switch gate {
		case workflows.GatePaymentConfirmed:
			if !order.PaymentConfirmed {
				return apperr.GateNotSatisfied(gate, "payment has not been confirmed for this order")
			}
		case workflows.GateFreelancerAttached:
			if order.AssignedFreelancerID == nil {
				return apperr.GateNotSatisfied(gate, "no freelancer is assigned to this order")
			}
		case workflows.GateRequesterIsClient:
			if actorRole == workflows.RoleClient && actorID != order.ClientID {
				return apperr.Forbidden("only the order's client may approve it")
			}
		case workflows.GateEditorApproved:
			// An attached editor must sign off before the freelancer can
			// deliver; staff and the editor deliver with implicit sign-off.
			if actorRole == workflows.RoleFreelancer &&
				order.AssignedEditorID != nil && !order.EditorApproved {
				return apperr.GateNotSatisfied(gate, "the assigned editor has not approved the draft")
			}
		}
	}
	return nil
}

// derivedFields computes the column writes each target status implies.
func (e *Executor) derivedFields(order *Order, target, note string, actorID uuid.UUID, actorRole string) statusFields {
	now := time.Now()
	t := true
	f := false

	switch target {
	case workflows.StatusAccepted:
		fields := statusFields{AcceptedAt: &now, ManagerApproved: &t}
		if actorRole == workflows.RoleManager && order.ManagerID == nil {
			id := actorID
			fields.ManagerID = &id
		}
		return fields
	case workflows.StatusDelivered:
		// Approval always refers to the latest delivery: a redelivery after
		// a revision cycle clears the client's earlier approval.
		fields := statusFields{DeliveredAt: &now, RevisionRequested: &f, ClientApproved: &f}
		if actorRole != workflows.RoleFreelancer {
			// The editor (or staff acting for them) delivering counts as
			// the editor sign-off.
			fields.EditorApproved = &t
		}
		return fields
	case workflows.StatusRevisionPending:
		fields := statusFields{RevisionRequested: &t}
		if note != "" {
			fields.RevisionNotes = &note
		}
		return fields
	case workflows.StatusApproved:
		return statusFields{ClientApproved: &t, ApprovedByClientAt: &now}
	case workflows.StatusOnHold:
		return statusFields{PreHoldStatus: &sql.NullString{String: order.Status, Valid: true}}
	case workflows.StatusCancelled:
		return statusFields{CancelledAt: &now}
	case workflows.StatusCompleted:
		return statusFields{CompletedAt: &now}
	default:
		return statusFields{}
	}
}

func requiresFreelancer(status string) bool {
	for _, s := range workflows.ActiveAssignmentStatuses() {
		if s == status {
			return true
		}
	}
	return false
}
