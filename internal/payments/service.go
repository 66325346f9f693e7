package payments

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"writehub/order-portal/order-portal-backend/internal/apperr"
	"writehub/order-portal/order-portal-backend/internal/orders"
	"writehub/order-portal/order-portal-backend/pkg/storage"
	"writehub/order-portal/order-portal-backend/pkg/workflows"
)

// Service handles payment submission and settlement. Settlement is the only
// path that credits freelancer balances and the only producer of the
// completed status.
type Service struct {
	repo     Repository
	orders   orders.Repository
	storage  storage.S3Client
	bucket   string
	notifier orders.Notifier
	logger   *zap.Logger
}

func NewService(repo Repository, orderRepo orders.Repository, s3 storage.S3Client, bucket string, notifier orders.Notifier, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		orders:   orderRepo,
		storage:  s3,
		bucket:   bucket,
		notifier: notifier,
		logger:   logger,
	}
}

// Submit records a client's pending payment for an order.
func (s *Service) Submit(ctx context.Context, orderID, actorID uuid.UUID, actorRole string, amount float64, reference string) (*Payment, error) {
	if amount <= 0 {
		return nil, apperr.Validation("payment amount must be positive")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("order %s not found", orderID)
	}
	if actorRole == workflows.RoleClient && order.ClientID != actorID {
		return nil, apperr.Forbidden("order %s does not belong to this client", orderID)
	}

	payment := &Payment{
		ID:                uuid.New(),
		OrderID:           orderID,
		Amount:            amount,
		ProviderReference: reference,
		Status:            StatusPending,
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	s.logger.Info("payment submitted",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", orderID.String()),
		zap.Float64("amount", amount))

	s.notifier.Notify(ctx, "payment.submitted", map[string]interface{}{
		"payment_id": payment.ID.String(),
		"order_id":   orderID.String(),
		"order_code": order.OrderCode,
	})

	return payment, nil
}

// Confirm settles a pending payment. Re-confirming an already-confirmed
// payment is a no-op success: the guard is the confirmed_by_admin flag
// checked inside the settlement transaction, so concurrent confirmations
// credit the freelancer exactly once.
func (s *Service) Confirm(ctx context.Context, paymentID, actorID uuid.UUID, actorRole string) (*Payment, error) {
	if actorRole != workflows.RoleAdmin && actorRole != workflows.RoleManager {
		return nil, apperr.Forbidden("role %q may not confirm payments", actorRole)
	}

	payment, err := s.repo.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperr.NotFound("payment %s not found", paymentID)
	}
	if payment.ConfirmedByAdmin {
		return payment, nil
	}
	if payment.Status == StatusRejected {
		return nil, apperr.Validation("payment %s was rejected", paymentID)
	}

	order, err := s.orders.GetByID(ctx, payment.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("order %s not found", payment.OrderID)
	}
	if order.Status != workflows.StatusApproved {
		return nil, apperr.GateNotSatisfied("client_approved",
			fmt.Sprintf("order is %q; the client must approve the delivery before settlement", order.Status))
	}
	if order.AssignedFreelancerID == nil {
		return nil, apperr.GateNotSatisfied("freelancer_attached", "no freelancer to pay out")
	}

	// The effective CPP already embeds the single-spacing multiplier from
	// order creation; settlement never re-derives it.
	freelancerAmount := order.EffectiveCpp * float64(order.BillableUnits())
	adminCommission := payment.Amount - freelancerAmount - order.ManagerEarnings

	result, err := s.repo.ConfirmSettlement(ctx, Settlement{
		PaymentID:        payment.ID,
		OrderID:          order.ID,
		OrderStatus:      order.Status,
		FreelancerID:     *order.AssignedFreelancerID,
		Amount:           payment.Amount,
		FreelancerAmount: freelancerAmount,
		ManagerAmount:    order.ManagerEarnings,
		AdminCommission:  adminCommission,
		ActorID:          actorID,
		ActorRole:        actorRole,
	})
	if err != nil {
		return nil, err
	}
	if !result.Applied {
		// Lost the race to another confirmation. The money moved exactly
		// once, so this request still succeeded.
		return s.repo.GetPaymentByID(ctx, paymentID)
	}

	s.logger.Info("payment settled",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", order.ID.String()),
		zap.Float64("freelancer_amount", freelancerAmount),
		zap.Float64("balance_after", result.BalanceAfter))

	s.renderInvoicePDF(ctx, order, result.Invoice)

	s.notifier.Notify(ctx, "payment.confirmed", map[string]interface{}{
		"payment_id":    payment.ID.String(),
		"order_id":      order.ID.String(),
		"order_code":    order.OrderCode,
		"client_id":     order.ClientID.String(),
		"freelancer_id": order.AssignedFreelancerID.String(),
	})

	return s.repo.GetPaymentByID(ctx, paymentID)
}

// Reject marks a pending payment rejected.
func (s *Service) Reject(ctx context.Context, paymentID, actorID uuid.UUID, actorRole string) (*Payment, error) {
	if actorRole != workflows.RoleAdmin && actorRole != workflows.RoleManager {
		return nil, apperr.Forbidden("role %q may not reject payments", actorRole)
	}

	payment, err := s.repo.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperr.NotFound("payment %s not found", paymentID)
	}

	ok, err := s.repo.RejectPayment(ctx, paymentID, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("payment %s is no longer pending", paymentID)
	}
	return s.repo.GetPaymentByID(ctx, paymentID)
}

// Invoice returns the invoice generated for a confirmed payment.
func (s *Service) Invoice(ctx context.Context, paymentID uuid.UUID) (*Invoice, error) {
	invoice, err := s.repo.GetInvoiceByPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperr.NotFound("no invoice for payment %s", paymentID)
	}
	return invoice, nil
}

// renderInvoicePDF is best-effort: the settlement already committed, so a
// rendering or upload failure is logged and the invoice keeps a null URL.
func (s *Service) renderInvoicePDF(ctx context.Context, order *orders.Order, invoice *Invoice) {
	data, err := RenderInvoice(order, invoice)
	if err != nil {
		s.logger.Warn("invoice PDF rendering failed",
			zap.String("invoice_id", invoice.ID.String()), zap.Error(err))
		return
	}

	key := fmt.Sprintf("orders/%s/invoices/%s.pdf", order.ID, invoice.ID)
	if err := s.storage.Upload(ctx, s.bucket, key, bytes.NewReader(data)); err != nil {
		s.logger.Warn("invoice PDF upload failed",
			zap.String("invoice_id", invoice.ID.String()), zap.Error(err))
		return
	}

	url := s.storage.ObjectURL(s.bucket, key)
	if err := s.repo.SetInvoicePDFURL(ctx, invoice.ID, url); err != nil {
		s.logger.Warn("failed to store invoice PDF URL",
			zap.String("invoice_id", invoice.ID.String()), zap.Error(err))
	}
}
