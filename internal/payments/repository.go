package payments

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"writehub/order-portal/order-portal-backend/internal/apperr"
)

// Settlement is the atomic unit executed on payment confirmation: flip the
// payment, credit the freelancer, write the invoice and ledger rows, and
// complete the order. Everything commits or rolls back together.
type Settlement struct {
	PaymentID        uuid.UUID
	OrderID          uuid.UUID
	OrderStatus      string // guard for the order update
	FreelancerID     uuid.UUID
	Amount           float64
	FreelancerAmount float64
	ManagerAmount    float64
	AdminCommission  float64
	ActorID          uuid.UUID
	ActorRole        string
}

// SettlementResult reports what the transaction did. Applied is false when
// the payment was already confirmed, which callers treat as success.
type SettlementResult struct {
	Applied       bool
	Invoice       *Invoice
	BalanceBefore float64
	BalanceAfter  float64
}

type Repository interface {
	CreatePayment(ctx context.Context, payment *Payment) error
	GetPaymentByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error)
	GetInvoiceByPayment(ctx context.Context, paymentID uuid.UUID) (*Invoice, error)
	SetInvoicePDFURL(ctx context.Context, invoiceID uuid.UUID, url string) error

	// RejectPayment flips a pending payment to rejected; returns false when
	// the payment was no longer pending.
	RejectPayment(ctx context.Context, id, actorID uuid.UUID) (bool, error)

	// ConfirmSettlement runs the settlement transaction.
	ConfirmSettlement(ctx context.Context, s Settlement) (*SettlementResult, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreatePayment(ctx context.Context, payment *Payment) error {
	query := `
		INSERT INTO payments (id, order_id, amount, provider_reference, status)
		VALUES (:id, :order_id, :amount, :provider_reference, :status)`
	_, err := r.db.NamedExecContext(ctx, query, payment)
	return err
}

func (r *postgresRepository) GetPaymentByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	var payment Payment
	err := r.db.GetContext(ctx, &payment, "SELECT * FROM payments WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &payment, err
}

func (r *postgresRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	payments := []Payment{}
	err := r.db.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE order_id = $1 ORDER BY created_at DESC", orderID)
	return payments, err
}

func (r *postgresRepository) GetInvoiceByPayment(ctx context.Context, paymentID uuid.UUID) (*Invoice, error) {
	var invoice Invoice
	err := r.db.GetContext(ctx, &invoice, "SELECT * FROM invoices WHERE payment_id = $1", paymentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &invoice, err
}

func (r *postgresRepository) SetInvoicePDFURL(ctx context.Context, invoiceID uuid.UUID, url string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE invoices SET pdf_url = $1 WHERE id = $2", url, invoiceID)
	return err
}

func (r *postgresRepository) RejectPayment(ctx context.Context, id, actorID uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments SET status = 'rejected', confirmed_by = $1
		WHERE id = $2 AND status = 'pending'`, actorID, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *postgresRepository) ConfirmSettlement(ctx context.Context, s Settlement) (*SettlementResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// The guard: only one confirmation ever passes this update.
	res, err := tx.ExecContext(ctx, `
		UPDATE payments
		SET status = 'confirmed', confirmed_by_admin = TRUE, confirmed_by = $1, confirmed_at = now()
		WHERE id = $2 AND confirmed_by_admin = FALSE`,
		s.ActorID, s.PaymentID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &SettlementResult{Applied: false}, nil
	}

	var balanceAfter float64
	err = tx.GetContext(ctx, &balanceAfter,
		"UPDATE users SET balance = balance + $1, updated_at = now() WHERE id = $2 RETURNING balance",
		s.FreelancerAmount, s.FreelancerID)
	if err != nil {
		return nil, err
	}
	balanceBefore := balanceAfter - s.FreelancerAmount

	invoice := &Invoice{
		ID:               uuid.New(),
		OrderID:          s.OrderID,
		PaymentID:        s.PaymentID,
		Amount:           s.Amount,
		FreelancerAmount: s.FreelancerAmount,
		ManagerAmount:    s.ManagerAmount,
		AdminCommission:  s.AdminCommission,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices (id, order_id, payment_id, amount, freelancer_amount, manager_amount, admin_commission)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		invoice.ID, invoice.OrderID, invoice.PaymentID, invoice.Amount,
		invoice.FreelancerAmount, invoice.ManagerAmount, invoice.AdminCommission)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payment_transactions (id, user_id, order_id, payment_id, type, amount, balance_before, balance_after)
		VALUES ($1, $2, $3, $4, 'payout', $5, $6, $7)`,
		uuid.New(), s.FreelancerID, s.OrderID, s.PaymentID,
		s.FreelancerAmount, balanceBefore, balanceAfter)
	if err != nil {
		return nil, err
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = 'completed', payment_confirmed = TRUE, admin_approved = TRUE,
		    completed_at = now(), updated_at = now()
		WHERE id = $1 AND status = $2`,
		s.OrderID, s.OrderStatus)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.Conflict("order was modified concurrently")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_status_logs (id, order_id, old_status, new_status, actor_id, actor_role, note)
		VALUES ($1, $2, $3, 'completed', $4, $5, 'payment confirmed')`,
		uuid.New(), s.OrderID, s.OrderStatus, s.ActorID, s.ActorRole)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &SettlementResult{
		Applied:       true,
		Invoice:       invoice,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
	}, nil
}
