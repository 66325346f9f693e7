package payments

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusConfirmed PaymentStatus = "confirmed"
	StatusRejected  PaymentStatus = "rejected"
)

// Payment is a client's payment submission for an order. Confirmation is
// idempotent: the confirmed_by_admin flag is the guard, enforced in SQL, so
// two admins confirming concurrently cannot double-credit the freelancer.
type Payment struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	OrderID           uuid.UUID     `json:"order_id" db:"order_id"`
	Amount            float64       `json:"amount" db:"amount"`
	ProviderReference string        `json:"provider_reference" db:"provider_reference"`
	Status            PaymentStatus `json:"status" db:"status"`
	ConfirmedByAdmin  bool          `json:"confirmed_by_admin" db:"confirmed_by_admin"`
	ConfirmedBy       *uuid.UUID    `json:"confirmed_by,omitempty" db:"confirmed_by"`
	ConfirmedAt       *time.Time    `json:"confirmed_at,omitempty" db:"confirmed_at"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
}

// Invoice is generated once per confirmed payment.
type Invoice struct {
	ID               uuid.UUID `json:"id" db:"id"`
	OrderID          uuid.UUID `json:"order_id" db:"order_id"`
	PaymentID        uuid.UUID `json:"payment_id" db:"payment_id"`
	Amount           float64   `json:"amount" db:"amount"`
	FreelancerAmount float64   `json:"freelancer_amount" db:"freelancer_amount"`
	ManagerAmount    float64   `json:"manager_amount" db:"manager_amount"`
	AdminCommission  float64   `json:"admin_commission" db:"admin_commission"`
	PDFURL           *string   `json:"pdf_url,omitempty" db:"pdf_url"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// Transaction is the balance ledger row written alongside every credit,
// capturing before/after for auditability and rollback.
type Transaction struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserID        uuid.UUID  `json:"user_id" db:"user_id"`
	OrderID       *uuid.UUID `json:"order_id,omitempty" db:"order_id"`
	PaymentID     *uuid.UUID `json:"payment_id,omitempty" db:"payment_id"`
	Type          string     `json:"type" db:"type"`
	Amount        float64    `json:"amount" db:"amount"`
	BalanceBefore float64    `json:"balance_before" db:"balance_before"`
	BalanceAfter  float64    `json:"balance_after" db:"balance_after"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}
