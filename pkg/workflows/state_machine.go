package workflows

// Order lifecycle statuses. "completed" and "cancelled" are terminal.
const (
	StatusPending         = "pending"
	StatusAccepted        = "accepted"
	StatusAssigned        = "assigned"
	StatusEditing         = "editing"
	StatusDelivered       = "delivered"
	StatusRevisionPending = "revision_pending"
	StatusApproved        = "approved"
	StatusCompleted       = "completed"
	StatusOnHold          = "on_hold"
	StatusCancelled       = "cancelled"
)

// Actor roles.
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleEditor     = "editor"
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
)

// Gates that must hold on the order before certain edges are taken.
const (
	GatePaymentConfirmed   = "payment_confirmed"
	GateFreelancerAttached = "freelancer_attached"
	GateRequesterIsClient  = "requester_is_client"
	GateEditorApproved     = "editor_approved"
)

type edge struct {
	from string
	to   string
}

// StateMachine enforces order status transitions: which edges exist,
// which roles may take them, and which gates each edge requires.
type StateMachine struct {
	allowedTransitions map[string][]string
	rolePolicy         map[edge][]string
	gatePolicy         map[edge][]string
}

// NewStateMachine builds the order lifecycle graph.
//
// The main path is pending -> accepted -> assigned -> editing -> delivered ->
// approved -> completed, with revision_pending -> editing as the rework loop.
// on_hold is reachable from every non-terminal status; the resume target is
// whatever status the order held when it was put on hold, so on_hold has no
// outgoing edges here and Resume is handled by the executor.
func NewStateMachine() *StateMachine {
	sm := &StateMachine{
		allowedTransitions: map[string][]string{
			StatusPending:         {StatusAccepted, StatusCancelled, StatusOnHold},
			StatusAccepted:        {StatusAssigned, StatusCancelled, StatusOnHold},
			StatusAssigned:        {StatusEditing, StatusAccepted, StatusCancelled, StatusOnHold},
			StatusEditing:         {StatusDelivered, StatusCancelled, StatusOnHold},
			StatusDelivered:       {StatusRevisionPending, StatusApproved, StatusCancelled, StatusOnHold},
			StatusRevisionPending: {StatusEditing, StatusCancelled, StatusOnHold},
			StatusApproved:        {StatusCompleted, StatusCancelled, StatusOnHold},
			StatusCompleted:       {},
			StatusCancelled:       {},
			StatusOnHold:          {},
		},
		rolePolicy: map[edge][]string{
			{StatusPending, StatusAccepted}:          {RoleAdmin, RoleManager},
			{StatusAccepted, StatusAssigned}:         {RoleAdmin, RoleManager},
			{StatusAssigned, StatusEditing}:          {RoleAdmin, RoleFreelancer},
			{StatusAssigned, StatusAccepted}:         {RoleAdmin, RoleManager},
			{StatusEditing, StatusDelivered}:         {RoleAdmin, RoleManager, RoleEditor, RoleFreelancer},
			{StatusDelivered, StatusRevisionPending}: {RoleAdmin, RoleClient},
			{StatusDelivered, StatusApproved}:        {RoleAdmin, RoleClient},
			{StatusRevisionPending, StatusEditing}:   {RoleAdmin, RoleFreelancer},
			// approved -> completed is taken only by payment settlement,
			// never through the status endpoint. No role entry means no
			// role may request it directly.
		},
		gatePolicy: map[edge][]string{
			{StatusAccepted, StatusAssigned}:  {GateFreelancerAttached},
			{StatusEditing, StatusDelivered}:  {GateEditorApproved},
			{StatusDelivered, StatusApproved}: {GateRequesterIsClient},
			{StatusApproved, StatusCompleted}: {GatePaymentConfirmed},
		},
	}

	// Every non-terminal status can be cancelled by staff; the client may
	// cancel only while the order is still pending.
	for from := range sm.allowedTransitions {
		if from == StatusCompleted || from == StatusCancelled {
			continue
		}
		roles := []string{RoleAdmin, RoleManager}
		if from == StatusPending {
			roles = append(roles, RoleClient)
		}
		sm.rolePolicy[edge{from, StatusCancelled}] = roles
		if from != StatusOnHold {
			sm.rolePolicy[edge{from, StatusOnHold}] = []string{RoleAdmin, RoleManager}
		}
	}
	// on_hold exits only via Resume/cancel.
	sm.allowedTransitions[StatusOnHold] = []string{StatusCancelled}

	return sm
}

// CanTransition checks if a status transition edge exists.
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// AllowedFor checks whether the given role may request the edge directly.
func (sm *StateMachine) AllowedFor(from, to, role string) bool {
	roles, ok := sm.rolePolicy[edge{from, to}]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// RequiredGates returns the gates that must be satisfied on the edge.
func (sm *StateMachine) RequiredGates(from, to string) []string {
	return sm.gatePolicy[edge{from, to}]
}

// GetAllowedTransitions returns the allowed next statuses for a given status.
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}

// IsTerminal reports whether no transitions leave the status.
func (sm *StateMachine) IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// IsKnown reports whether the status exists in the graph.
func (sm *StateMachine) IsKnown(status string) bool {
	_, ok := sm.allowedTransitions[status]
	return ok
}

// IsKnownStatus reports whether the value is one of the lifecycle statuses.
func IsKnownStatus(status string) bool {
	switch status {
	case StatusPending, StatusAccepted, StatusAssigned, StatusEditing,
		StatusDelivered, StatusRevisionPending, StatusApproved,
		StatusCompleted, StatusOnHold, StatusCancelled:
		return true
	}
	return false
}

// ActiveAssignmentStatuses are the statuses an order may hold while a
// freelancer is attached.
func ActiveAssignmentStatuses() []string {
	return []string{
		StatusAssigned,
		StatusEditing,
		StatusDelivered,
		StatusRevisionPending,
		StatusApproved,
		StatusCompleted,
	}
}
