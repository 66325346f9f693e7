package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"writehub/order-portal/order-portal-backend/internal/apperr"
	"writehub/order-portal/order-portal-backend/internal/config"
	"writehub/order-portal/order-portal-backend/pkg/workflows"
)

// CreateRequest is a client's new order submission.
type CreateRequest struct {
	ClientID       uuid.UUID
	Title          string
	Instructions   string
	Pages          *int
	Slides         *int
	SingleSpaced   bool
	Amount         float64
	BaseCpp        float64
	Deadline       time.Time
	ActualDeadline time.Time
}

// Service owns order creation and read paths. Status mutation lives in the
// Executor and AssignmentManager.
type Service struct {
	repo       Repository
	settlement config.SettlementConfig
	notifier   Notifier
	logger     *zap.Logger
}

func NewService(repo Repository, settlement config.SettlementConfig, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{repo: repo, settlement: settlement, notifier: notifier, logger: logger}
}

// Create validates and persists a new pending order.
//
// The freelancer deadline leaves 40% of the remaining time as an editing and
// review buffer: now + 0.6 * (actualDeadline - now). A single-spaced order
// doubles the effective CPP once, here; settlement later multiplies the
// effective rate by billable units without re-checking spacing.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	now := time.Now()

	if req.Title == "" {
		return nil, apperr.Validation("title is required")
	}
	if req.Amount <= 0 {
		return nil, apperr.Validation("amount must be positive")
	}
	if req.BaseCpp <= 0 {
		return nil, apperr.Validation("base CPP must be positive")
	}
	if req.Pages == nil && req.Slides == nil {
		return nil, apperr.Validation("either pages or slides must be set")
	}
	if !req.ActualDeadline.After(now) {
		return nil, apperr.Validation("deadline must be in the future")
	}
	if req.Deadline.IsZero() {
		req.Deadline = req.ActualDeadline
	}

	effectiveCpp := req.BaseCpp
	if req.SingleSpaced {
		effectiveCpp *= 2
	}

	freelancerDeadline := now.Add(time.Duration(0.6 * float64(req.ActualDeadline.Sub(now))))

	order := &Order{
		ID:                 uuid.New(),
		OrderCode:          NewOrderCode(),
		ClientID:           req.ClientID,
		Status:             workflows.StatusPending,
		Title:              req.Title,
		Instructions:       req.Instructions,
		Pages:              req.Pages,
		Slides:             req.Slides,
		SingleSpaced:       req.SingleSpaced,
		Amount:             req.Amount,
		BaseCpp:            req.BaseCpp,
		EffectiveCpp:       effectiveCpp,
		ManagerEarnings:    req.Amount * s.settlement.ManagerEarningsPct,
		Deadline:           req.Deadline,
		ActualDeadline:     req.ActualDeadline,
		FreelancerDeadline: freelancerDeadline,
		CreatedAt:          now,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_code", order.OrderCode),
		zap.Float64("amount", order.Amount))

	s.notifier.Notify(ctx, "order.created", map[string]interface{}{
		"order_id":   order.ID.String(),
		"order_code": order.OrderCode,
		"client_id":  order.ClientID.String(),
	})

	return order, nil
}

// Get returns an order visible to the actor: clients see their own orders,
// freelancers their assignments, staff everything.
func (s *Service) Get(ctx context.Context, orderID, actorID uuid.UUID, actorRole string) (*Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("order %s not found", orderID)
	}
	if !canView(order, actorID, actorRole) {
		return nil, apperr.Forbidden("order %s is not visible to this account", orderID)
	}
	return order, nil
}

// List returns the actor's role-scoped order book.
func (s *Service) List(ctx context.Context, actorID uuid.UUID, actorRole, status string) ([]Order, error) {
	filter := Filter{Status: status}
	switch actorRole {
	case workflows.RoleClient:
		filter.ClientID = &actorID
	case workflows.RoleFreelancer:
		filter.FreelancerID = &actorID
	}
	return s.repo.List(ctx, filter)
}

// History returns the order's append-only status log.
func (s *Service) History(ctx context.Context, orderID, actorID uuid.UUID, actorRole string) ([]StatusLog, error) {
	if _, err := s.Get(ctx, orderID, actorID, actorRole); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, orderID)
}

func canView(order *Order, actorID uuid.UUID, actorRole string) bool {
	switch actorRole {
	case workflows.RoleAdmin, workflows.RoleManager, workflows.RoleEditor:
		return true
	case workflows.RoleClient:
		return order.ClientID == actorID
	case workflows.RoleFreelancer:
		return order.AssignedFreelancerID != nil && *order.AssignedFreelancerID == actorID
	}
	return false
}
