package orders

import (
	"database/sql"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Order is the central entity: a writing job moving through the lifecycle
// from pending through bidding, assignment, delivery, revision, approval and
// settlement. Mutated exclusively through the Executor; never hard-deleted.
type Order struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	OrderCode            string     `json:"order_code" db:"order_code"`
	ClientID             uuid.UUID  `json:"client_id" db:"client_id"`
	ManagerID            *uuid.UUID `json:"manager_id,omitempty" db:"manager_id"`
	AssignedEditorID     *uuid.UUID `json:"assigned_editor_id,omitempty" db:"assigned_editor_id"`
	AssignedFreelancerID *uuid.UUID `json:"assigned_freelancer_id,omitempty" db:"assigned_freelancer_id"`
	Status               string     `json:"status" db:"status"`
	PreHoldStatus        *string    `json:"pre_hold_status,omitempty" db:"pre_hold_status"`
	Title                string     `json:"title" db:"title"`
	Instructions         string     `json:"instructions" db:"instructions"`
	RevisionNotes        string     `json:"revision_notes" db:"revision_notes"`
	Pages                *int       `json:"pages,omitempty" db:"pages"`
	Slides               *int       `json:"slides,omitempty" db:"slides"`
	SingleSpaced         bool       `json:"single_spaced" db:"single_spaced"`
	Amount               float64    `json:"amount" db:"amount"`
	BaseCpp              float64    `json:"base_cpp" db:"base_cpp"`
	EffectiveCpp         float64    `json:"effective_cpp" db:"effective_cpp"`
	ManagerEarnings      float64    `json:"manager_earnings" db:"manager_earnings"`
	Deadline             time.Time  `json:"deadline" db:"deadline"`
	ActualDeadline       time.Time  `json:"actual_deadline" db:"actual_deadline"`
	FreelancerDeadline   time.Time  `json:"freelancer_deadline" db:"freelancer_deadline"`
	ManagerApproved      bool       `json:"manager_approved" db:"manager_approved"`
	EditorApproved       bool       `json:"editor_approved" db:"editor_approved"`
	AdminApproved        bool       `json:"admin_approved" db:"admin_approved"`
	ClientApproved       bool       `json:"client_approved" db:"client_approved"`
	PaymentConfirmed     bool       `json:"payment_confirmed" db:"payment_confirmed"`
	RevisionRequested    bool       `json:"revision_requested" db:"revision_requested"`
	AcceptedAt           *time.Time `json:"accepted_at,omitempty" db:"accepted_at"`
	DeliveredAt          *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
	ApprovedByClientAt   *time.Time `json:"approved_by_client_at,omitempty" db:"approved_by_client_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt          *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// BillableUnits is the page/slide count the freelancer payout is based on.
func (o *Order) BillableUnits() int {
	if o.Pages != nil {
		return *o.Pages
	}
	if o.Slides != nil {
		return *o.Slides
	}
	return 0
}

// StatusLog is an append-only audit entry, one row per transition.
// Rows are never updated or deleted.
type StatusLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrderID   uuid.UUID `json:"order_id" db:"order_id"`
	OldStatus string    `json:"old_status" db:"old_status"`
	NewStatus string    `json:"new_status" db:"new_status"`
	ActorID   uuid.UUID `json:"actor_id" db:"actor_id"`
	ActorRole string    `json:"actor_role" db:"actor_role"`
	Note      string    `json:"note" db:"note"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// statusFields are the mutable columns a single transition may touch besides
// status itself. Nil pointers are left unchanged; an invalid NullString
// writes NULL.
type statusFields struct {
	PreHoldStatus      *sql.NullString
	RevisionNotes      *string
	ManagerApproved    *bool
	ManagerID          *uuid.UUID
	EditorApproved     *bool
	ClientApproved     *bool
	PaymentConfirmed   *bool
	RevisionRequested  *bool
	AcceptedAt         *time.Time
	DeliveredAt        *time.Time
	ApprovedByClientAt *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
}

const orderCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewOrderCode generates a short human-readable order code, e.g. "WH-7KQ2M9XA".
func NewOrderCode() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = orderCodeAlphabet[rand.Intn(len(orderCodeAlphabet))]
	}
	return "WH-" + string(b)
}
