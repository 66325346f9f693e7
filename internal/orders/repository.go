package orders

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"writehub/order-portal/order-portal-backend/internal/apperr"
)

// Filter narrows order listings. Zero values mean "no restriction".
type Filter struct {
	ClientID     *uuid.UUID
	FreelancerID *uuid.UUID
	Status       string
}

// StatusChange is one atomic transition: the guarded status update, the
// derived field writes and the audit log row commit or roll back together.
type StatusChange struct {
	OrderID    uuid.UUID
	FromStatus string
	ToStatus   string
	Fields     statusFields
	Log        StatusLog
}

// FeeCredit credits a user balance inside the same transaction as the change
// that earned it, recording a ledger row with the balance before and after.
type FeeCredit struct {
	UserID  uuid.UUID
	OrderID uuid.UUID
	Type    string
	Amount  float64
}

type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, filter Filter) ([]Order, error)
	History(ctx context.Context, orderID uuid.UUID) ([]StatusLog, error)

	// ApplyStatusChange performs the guarded update; it fails with a conflict
	// error when the order moved concurrently.
	ApplyStatusChange(ctx context.Context, change StatusChange) error

	// SetAssignment atomically updates the freelancer pointer, transitions the
	// status, appends the log row and optionally credits the assignment fee.
	SetAssignment(ctx context.Context, change StatusChange, freelancerID *uuid.UUID, fee *FeeCredit) error

	// SetEditor attaches or detaches the reviewing editor without touching
	// the order status. Either way any earlier editor sign-off is cleared.
	SetEditor(ctx context.Context, orderID uuid.UUID, editorID *uuid.UUID) error

	ListApproachingFreelancerDeadline(ctx context.Context, within time.Duration) ([]Order, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, order *Order) error {
	query := `
		INSERT INTO orders (
			id, order_code, client_id, manager_id, status, title, instructions,
			pages, slides, single_spaced, amount, base_cpp, effective_cpp,
			manager_earnings, deadline, actual_deadline, freelancer_deadline
		) VALUES (
			:id, :order_code, :client_id, :manager_id, :status, :title, :instructions,
			:pages, :slides, :single_spaced, :amount, :base_cpp, :effective_cpp,
			:manager_earnings, :deadline, :actual_deadline, :freelancer_deadline
		)`
	_, err := r.db.NamedExecContext(ctx, query, order)
	return err
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	err := r.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &order, err
}

func (r *postgresRepository) List(ctx context.Context, filter Filter) ([]Order, error) {
	orders := []Order{}
	query := "SELECT * FROM orders WHERE 1=1"
	var args []interface{}
	argCount := 1

	if filter.ClientID != nil {
		query += fmt.Sprintf(" AND client_id = $%d", argCount)
		args = append(args, *filter.ClientID)
		argCount++
	}
	if filter.FreelancerID != nil {
		query += fmt.Sprintf(" AND assigned_freelancer_id = $%d", argCount)
		args = append(args, *filter.FreelancerID)
		argCount++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filter.Status)
		argCount++
	}
	query += " ORDER BY created_at DESC"

	err := r.db.SelectContext(ctx, &orders, query, args...)
	return orders, err
}

func (r *postgresRepository) History(ctx context.Context, orderID uuid.UUID) ([]StatusLog, error) {
	logs := []StatusLog{}
	err := r.db.SelectContext(ctx, &logs,
		"SELECT * FROM order_status_logs WHERE order_id = $1 ORDER BY created_at ASC", orderID)
	return logs, err
}

func (r *postgresRepository) ApplyStatusChange(ctx context.Context, change StatusChange) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := applyChangeTx(ctx, tx, change); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *postgresRepository) SetAssignment(ctx context.Context, change StatusChange, freelancerID *uuid.UUID, fee *FeeCredit) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET assigned_freelancer_id = $1, updated_at = now() WHERE id = $2 AND status = $3",
		freelancerID, change.OrderID, change.FromStatus)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Conflict("order was modified concurrently")
	}

	if err := applyChangeTx(ctx, tx, change); err != nil {
		return err
	}

	if fee != nil {
		if err := creditBalanceTx(ctx, tx, *fee); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *postgresRepository) SetEditor(ctx context.Context, orderID uuid.UUID, editorID *uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET assigned_editor_id = $1, editor_approved = FALSE, updated_at = now()
		WHERE id = $2`,
		editorID, orderID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("order %s not found", orderID)
	}
	return nil
}

func (r *postgresRepository) ListApproachingFreelancerDeadline(ctx context.Context, within time.Duration) ([]Order, error) {
	orders := []Order{}
	err := r.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		WHERE status IN ('assigned', 'editing')
		  AND freelancer_deadline BETWEEN now() AND now() + $1::interval
		ORDER BY freelancer_deadline ASC`,
		fmt.Sprintf("%d seconds", int(within.Seconds())))
	return orders, err
}

// applyChangeTx runs the guarded status update plus log append on tx.
func applyChangeTx(ctx context.Context, tx *sqlx.Tx, change StatusChange) error {
	set := "status = $1, updated_at = now()"
	args := []interface{}{change.ToStatus}
	n := 2

	add := func(column string, value interface{}) {
		set += fmt.Sprintf(", %s = $%d", column, n)
		args = append(args, value)
		n++
	}

	f := change.Fields
	if f.PreHoldStatus != nil {
		add("pre_hold_status", *f.PreHoldStatus)
	}
	if f.RevisionNotes != nil {
		add("revision_notes", *f.RevisionNotes)
	}
	if f.ManagerApproved != nil {
		add("manager_approved", *f.ManagerApproved)
	}
	if f.ManagerID != nil {
		add("manager_id", *f.ManagerID)
	}
	if f.EditorApproved != nil {
		add("editor_approved", *f.EditorApproved)
	}
	if f.ClientApproved != nil {
		add("client_approved", *f.ClientApproved)
	}
	if f.PaymentConfirmed != nil {
		add("payment_confirmed", *f.PaymentConfirmed)
	}
	if f.RevisionRequested != nil {
		add("revision_requested", *f.RevisionRequested)
	}
	if f.AcceptedAt != nil {
		add("accepted_at", *f.AcceptedAt)
	}
	if f.DeliveredAt != nil {
		add("delivered_at", *f.DeliveredAt)
	}
	if f.ApprovedByClientAt != nil {
		add("approved_by_client_at", *f.ApprovedByClientAt)
	}
	if f.CompletedAt != nil {
		add("completed_at", *f.CompletedAt)
	}
	if f.CancelledAt != nil {
		add("cancelled_at", *f.CancelledAt)
	}

	query := fmt.Sprintf("UPDATE orders SET %s WHERE id = $%d AND status = $%d", set, n, n+1)
	args = append(args, change.OrderID, change.FromStatus)

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return apperr.Conflict("order was modified concurrently")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_status_logs (id, order_id, old_status, new_status, actor_id, actor_role, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		change.Log.ID, change.Log.OrderID, change.Log.OldStatus, change.Log.NewStatus,
		change.Log.ActorID, change.Log.ActorRole, change.Log.Note)
	return err
}

// creditBalanceTx credits a balance and records the ledger row.
func creditBalanceTx(ctx context.Context, tx *sqlx.Tx, fee FeeCredit) error {
	var balanceAfter float64
	err := tx.GetContext(ctx, &balanceAfter,
		"UPDATE users SET balance = balance + $1, updated_at = now() WHERE id = $2 RETURNING balance",
		fee.Amount, fee.UserID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payment_transactions (id, user_id, order_id, type, amount, balance_before, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), fee.UserID, fee.OrderID, fee.Type, fee.Amount, balanceAfter-fee.Amount, balanceAfter)
	return err
}
