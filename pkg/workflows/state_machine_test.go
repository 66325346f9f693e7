package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMainPathEdges(t *testing.T) {
	sm := NewStateMachine()

	path := []string{
		StatusPending, StatusAccepted, StatusAssigned, StatusEditing,
		StatusDelivered, StatusApproved, StatusCompleted,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, sm.CanTransition(path[i], path[i+1]),
			"expected edge %s -> %s", path[i], path[i+1])
	}
}

func TestReworkLoop(t *testing.T) {
	sm := NewStateMachine()

	assert.True(t, sm.CanTransition(StatusDelivered, StatusRevisionPending))
	assert.True(t, sm.CanTransition(StatusRevisionPending, StatusEditing))
	assert.True(t, sm.CanTransition(StatusEditing, StatusDelivered))
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	sm := NewStateMachine()

	assert.Empty(t, sm.GetAllowedTransitions(StatusCompleted))
	assert.Empty(t, sm.GetAllowedTransitions(StatusCancelled))
	assert.True(t, sm.IsTerminal(StatusCompleted))
	assert.True(t, sm.IsTerminal(StatusCancelled))
}

func TestIllegalEdgesRejected(t *testing.T) {
	sm := NewStateMachine()

	assert.False(t, sm.CanTransition(StatusPending, StatusCompleted))
	assert.False(t, sm.CanTransition(StatusPending, StatusDelivered))
	assert.False(t, sm.CanTransition(StatusCancelled, StatusPending))
	assert.False(t, sm.CanTransition(StatusCompleted, StatusOnHold))
	assert.False(t, sm.CanTransition("bogus", StatusPending))
}

func TestOnHoldReachableFromNonTerminal(t *testing.T) {
	sm := NewStateMachine()

	for _, from := range []string{
		StatusPending, StatusAccepted, StatusAssigned, StatusEditing,
		StatusDelivered, StatusRevisionPending, StatusApproved,
	} {
		assert.True(t, sm.CanTransition(from, StatusOnHold), "from %s", from)
	}
	assert.False(t, sm.CanTransition(StatusCompleted, StatusOnHold))
	assert.False(t, sm.CanTransition(StatusCancelled, StatusOnHold))
}

func TestRolePolicy(t *testing.T) {
	sm := NewStateMachine()

	assert.True(t, sm.AllowedFor(StatusPending, StatusAccepted, RoleManager))
	assert.False(t, sm.AllowedFor(StatusPending, StatusAccepted, RoleFreelancer))

	// Only the client (or admin) moves an order into approved.
	assert.True(t, sm.AllowedFor(StatusDelivered, StatusApproved, RoleClient))
	assert.True(t, sm.AllowedFor(StatusDelivered, StatusApproved, RoleAdmin))
	assert.False(t, sm.AllowedFor(StatusDelivered, StatusApproved, RoleManager))

	// completed is never directly requestable, not even by admin.
	assert.False(t, sm.AllowedFor(StatusApproved, StatusCompleted, RoleAdmin))
	assert.False(t, sm.AllowedFor(StatusApproved, StatusCompleted, RoleManager))

	// Client may cancel only while pending.
	assert.True(t, sm.AllowedFor(StatusPending, StatusCancelled, RoleClient))
	assert.False(t, sm.AllowedFor(StatusEditing, StatusCancelled, RoleClient))
	assert.True(t, sm.AllowedFor(StatusEditing, StatusCancelled, RoleAdmin))
}

func TestRequiredGates(t *testing.T) {
	sm := NewStateMachine()

	assert.Equal(t, []string{GatePaymentConfirmed}, sm.RequiredGates(StatusApproved, StatusCompleted))
	assert.Equal(t, []string{GateRequesterIsClient}, sm.RequiredGates(StatusDelivered, StatusApproved))
	assert.Equal(t, []string{GateFreelancerAttached}, sm.RequiredGates(StatusAccepted, StatusAssigned))
	assert.Equal(t, []string{GateEditorApproved}, sm.RequiredGates(StatusEditing, StatusDelivered))
	assert.Empty(t, sm.RequiredGates(StatusPending, StatusAccepted))
}
