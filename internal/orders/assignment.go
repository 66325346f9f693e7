package orders

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"writehub/order-portal/order-portal-backend/internal/apperr"
	"writehub/order-portal/order-portal-backend/internal/config"
	"writehub/order-portal/order-portal-backend/internal/users"
	"writehub/order-portal/order-portal-backend/pkg/workflows"
)

// AssignmentManager attaches and detaches freelancers. The assignment fee is
// earned by the acting manager at assignment time, not at completion, and an
// unassign never claws it back.
type AssignmentManager struct {
	repo       Repository
	users      users.Repository
	settlement config.SettlementConfig
	notifier   Notifier
	logger     *zap.Logger
}

func NewAssignmentManager(repo Repository, userRepo users.Repository, settlement config.SettlementConfig, notifier Notifier, logger *zap.Logger) *AssignmentManager {
	return &AssignmentManager{
		repo:       repo,
		users:      userRepo,
		settlement: settlement,
		notifier:   notifier,
		logger:     logger,
	}
}

// Assign attaches a freelancer to an order in accepted status (or re-attaches
// when the order sits in assigned with no freelancer) and moves it to
// assigned. Managers earn the assignment fee; admins assigning directly do
// not generate one.
func (m *AssignmentManager) Assign(ctx context.Context, orderID, freelancerID, actorID uuid.UUID, actorRole string) (*Order, error) {
	if actorRole != workflows.RoleAdmin && actorRole != workflows.RoleManager {
		return nil, apperr.Forbidden("role %q may not assign freelancers", actorRole)
	}

	order, err := m.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("order %s not found", orderID)
	}

	assignable := order.Status == workflows.StatusAccepted ||
		(order.Status == workflows.StatusAssigned && order.AssignedFreelancerID == nil)
	if !assignable {
		return nil, apperr.InvalidTransition(order.Status, workflows.StatusAssigned)
	}

	freelancer, err := m.users.GetByID(ctx, freelancerID)
	if err != nil {
		return nil, err
	}
	if freelancer == nil || freelancer.Role != workflows.RoleFreelancer {
		return nil, apperr.Validation("user %s is not a freelancer", freelancerID)
	}
	if !freelancer.IsActive {
		return nil, apperr.Validation("freelancer %s is not active", freelancerID)
	}

	change := StatusChange{
		OrderID:    order.ID,
		FromStatus: order.Status,
		ToStatus:   workflows.StatusAssigned,
		Log: StatusLog{
			ID:        uuid.New(),
			OrderID:   order.ID,
			OldStatus: order.Status,
			NewStatus: workflows.StatusAssigned,
			ActorID:   actorID,
			ActorRole: actorRole,
			Note:      "freelancer assigned",
		},
	}

	var fee *FeeCredit
	if actorRole == workflows.RoleManager {
		if amount := m.assignmentFee(order); amount > 0 {
			fee = &FeeCredit{
				UserID:  actorID,
				OrderID: order.ID,
				Type:    "assignment_fee",
				Amount:  amount,
			}
		}
	}

	if err := m.repo.SetAssignment(ctx, change, &freelancerID, fee); err != nil {
		return nil, err
	}

	m.logger.Info("freelancer assigned",
		zap.String("order_id", order.ID.String()),
		zap.String("freelancer_id", freelancerID.String()),
		zap.Bool("fee_credited", fee != nil))

	m.notifier.Notify(ctx, "order.assigned", map[string]interface{}{
		"order_id":      order.ID.String(),
		"order_code":    order.OrderCode,
		"freelancer_id": freelancerID.String(),
	})

	updated, err := m.repo.GetByID(ctx, orderID)
	if err != nil || updated == nil {
		updated = order
		updated.Status = workflows.StatusAssigned
		updated.AssignedFreelancerID = &freelancerID
	}
	return updated, nil
}

// Unassign detaches the freelancer and reverts the order to accepted so it
// can be reassigned, regardless of how far the work had progressed. The
// assignment fee already paid stays paid.
func (m *AssignmentManager) Unassign(ctx context.Context, orderID, actorID uuid.UUID, actorRole string) (*Order, error) {
	if actorRole != workflows.RoleAdmin && actorRole != workflows.RoleManager {
		return nil, apperr.Forbidden("role %q may not unassign freelancers", actorRole)
	}

	order, err := m.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("order %s not found", orderID)
	}
	if order.AssignedFreelancerID == nil {
		return nil, apperr.Validation("order %s has no assigned freelancer", orderID)
	}
	if order.Status == workflows.StatusCompleted || order.Status == workflows.StatusCancelled {
		return nil, apperr.InvalidTransition(order.Status, workflows.StatusAccepted)
	}

	change := StatusChange{
		OrderID:    order.ID,
		FromStatus: order.Status,
		ToStatus:   workflows.StatusAccepted,
		Fields: statusFields{
			PreHoldStatus: &sql.NullString{}, // stale hold target is meaningless after unassign
		},
		Log: StatusLog{
			ID:        uuid.New(),
			OrderID:   order.ID,
			OldStatus: order.Status,
			NewStatus: workflows.StatusAccepted,
			ActorID:   actorID,
			ActorRole: actorRole,
			Note:      "freelancer unassigned",
		},
	}

	if err := m.repo.SetAssignment(ctx, change, nil, nil); err != nil {
		return nil, err
	}

	m.logger.Info("freelancer unassigned",
		zap.String("order_id", order.ID.String()),
		zap.String("previous_status", order.Status))

	m.notifier.Notify(ctx, "order.unassigned", map[string]interface{}{
		"order_id":      order.ID.String(),
		"order_code":    order.OrderCode,
		"freelancer_id": order.AssignedFreelancerID.String(),
	})

	updated, err := m.repo.GetByID(ctx, orderID)
	if err != nil || updated == nil {
		updated = order
		updated.Status = workflows.StatusAccepted
		updated.AssignedFreelancerID = nil
	}
	return updated, nil
}

// AssignEditor attaches an editor who must sign off on the draft before the
// freelancer can deliver. Passing a nil editor detaches the current one;
// either way any earlier sign-off is reset. No fee is involved.
func (m *AssignmentManager) AssignEditor(ctx context.Context, orderID uuid.UUID, editorID *uuid.UUID, actorID uuid.UUID, actorRole string) (*Order, error) {
	if actorRole != workflows.RoleAdmin && actorRole != workflows.RoleManager {
		return nil, apperr.Forbidden("role %q may not assign editors", actorRole)
	}

	order, err := m.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("order %s not found", orderID)
	}
	if order.Status == workflows.StatusCompleted || order.Status == workflows.StatusCancelled {
		return nil, apperr.Validation("order %s is closed", orderID)
	}

	if editorID != nil {
		editor, err := m.users.GetByID(ctx, *editorID)
		if err != nil {
			return nil, err
		}
		if editor == nil || editor.Role != workflows.RoleEditor {
			return nil, apperr.Validation("user %s is not an editor", *editorID)
		}
		if !editor.IsActive {
			return nil, apperr.Validation("editor %s is not active", *editorID)
		}
	}

	if err := m.repo.SetEditor(ctx, orderID, editorID); err != nil {
		return nil, err
	}

	m.logger.Info("editor assignment changed",
		zap.String("order_id", order.ID.String()),
		zap.Bool("attached", editorID != nil))

	if editorID != nil {
		m.notifier.Notify(ctx, "order.editor_assigned", map[string]interface{}{
			"order_id":   order.ID.String(),
			"order_code": order.OrderCode,
			"user_id":    editorID.String(),
		})
	}

	updated, err := m.repo.GetByID(ctx, orderID)
	if err != nil || updated == nil {
		updated = order
		updated.AssignedEditorID = editorID
		updated.EditorApproved = false
	}
	return updated, nil
}

func (m *AssignmentManager) assignmentFee(order *Order) float64 {
	if m.settlement.AssignmentFeePct > 0 {
		return order.Amount * m.settlement.AssignmentFeePct
	}
	return m.settlement.AssignmentFeeFlat
}
