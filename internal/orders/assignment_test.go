package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"writehub/order-portal/order-portal-backend/internal/apperr"
	"writehub/order-portal/order-portal-backend/internal/config"
	"writehub/order-portal/order-portal-backend/internal/users"
	"writehub/order-portal/order-portal-backend/pkg/workflows"
)

var testSettlement = config.SettlementConfig{
	ManagerEarningsPct: 0.10,
	AssignmentFeeFlat:  5.0,
}

func newTestAssignmentManager(repo Repository, userRepo users.Repository) *AssignmentManager {
	return NewAssignmentManager(repo, userRepo, testSettlement, quietNotifier{}, zap.NewNop())
}

func activeFreelancer() *users.User {
	return &users.User{
		ID:       uuid.New(),
		Email:    "writer@example.com",
		Role:     workflows.RoleFreelancer,
		IsActive: true,
	}
}

func TestAssignCreditsManagerFee(t *testing.T) {
	repo := new(mockRepository)
	userRepo := new(mockUserRepository)
	order := testOrder(workflows.StatusAccepted)
	freelancer := activeFreelancer()
	managerID := uuid.New()

	var capturedFee *FeeCredit
	userRepo.On("GetByID", mock.Anything, freelancer.ID).Return(freelancer, nil)
	repo.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
	repo.On("SetAssignment", mock.Anything, mock.Anything, &freelancer.ID, mock.Anything).
		Run(func(args mock.Arguments) {
			if fee, ok := args.Get(3).(*FeeCredit); ok {
				capturedFee = fee
			}
		}).Return(nil)
	assigned := testOrder(workflows.StatusAssigned)
	assigned.ID = order.ID
	assigned.AssignedFreelancerID = &freelancer.ID
	repo.On("GetByID", mock.Anything, order.ID).Return(assigned, nil)

	manager := newTestAssignmentManager(repo, userRepo)
	result, err := manager.Assign(context.Background(), order.ID, freelancer.ID, managerID, workflows.RoleManager)

	assert.NoError(t, err)
	assert.Equal(t, workflows.StatusAssigned, result.Status)
	if assert.NotNil(t, capturedFee) {
		assert.Equal(t, managerID, capturedFee.UserID)
		assert.Equal(t, "assignment_fee", capturedFee.Type)
		assert.Equal(t, 5.0, capturedFee.Amount)
	}
}

func TestAssignPercentageFee(t *testing.T) {
	repo := new(mockRepository)
	userRepo := new(mockUserRepository)
	order := testOrder(workflows.StatusAccepted) // amount 200
	freelancer := activeFreelancer()

	var capturedFee *FeeCredit
	userRepo.On("GetByID", mock.Anything, freelancer.ID).Return(freelancer, nil)
	repo.On("GetByID", mock.Anything, order.ID).Return(order, nil)
	repo.On("SetAssignment", mock.Anything, mock.Anything, &freelancer.ID, mock.Anything).
		Run(func(args mock.Arguments) {
			if fee, ok := args.Get(3).(*FeeCredit); ok {
				capturedFee = fee
			}
		}).Return(nil)

	settlement := testSettlement
	settlement.AssignmentFeePct = 0.05
	manager := NewAssignmentManager(repo, userRepo, settlement, quietNotifier{}, zap.NewNop())

	_, err := manager.Assign(context.Background(), order.ID, freelancer.ID, uuid.New(), workflows.RoleManager)

	assert.NoError(t, err)
	if assert.NotNil(t, capturedFee) {
		assert.InDelta(t, 10.0, capturedFee.Amount, 1e-9)
	}
}

func TestAdminAssignGeneratesNoFee(t *testing.T) {
	repo := new(mockRepository)
	userRepo := new(mockUserRepository)
	order := testOrder(workflows.StatusAccepted)
	freelancer := activeFreelancer()

	userRepo.On("GetByID", mock.Anything, freelancer.ID).Return(freelancer, nil)
	repo.On("GetByID", mock.Anything, order.ID).Return(order, nil)
	repo.On("SetAssignment", mock.Anything, mock.Anything, &freelancer.ID, (*FeeCredit)(nil)).Return(nil)

	manager := newTestAssignmentManager(repo, userRepo)
	_, err := manager.Assign(context.Background(), order.ID, freelancer.ID, uuid.New(), workflows.RoleAdmin)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestAssignRejectsWrongStatus(t *testing.T) {
	repo := new(mockRepository)
	userRepo := new(mockUserRepository)
	order := testOrder(workflows.StatusEditing)
	repo.On("GetByID", mock.Anything, order.ID).Return(order, nil)

	manager := newTestAssignmentManager(repo, userRepo)
	_, err := manager.Assign(context.Background(), order.ID, uuid.New(), uuid.New(), workflows.RoleManager)

	assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))
}

func TestAssignRejectsNonFreelancer(t *testing.T) {
	repo := new(mockRepository)
	userRepo := new(mockUserRepository)
	order := testOrder(workflows.StatusAccepted)
	client := &users.User{ID: uuid.New(), Role: workflows.RoleClient, IsActive: true}

	repo.On("GetByID", mock.Anything, order.ID).Return(order, nil)
	userRepo.On("GetByID", mock.Anything, client.ID).Return(client, nil)

	manager := newTestAssignmentManager(repo, userRepo)
	_, err := manager.Assign(context.Background(), order.ID, client.ID, uuid.New(), workflows.RoleManager)

	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestAssignForbiddenForNonStaff(t *testing.T) {
	manager := newTestAssignmentManager(new(mockRepository), new(mockUserRepository))

	for _, role := range []string{workflows.RoleClient, workflows.RoleFreelancer, workflows.RoleEditor} {
		_, err := manager.Assign(context.Background(), uuid.New(), uuid.New(), uuid.New(), role)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "role %s", role)
	}
}

func TestAssignEditorAttaches(t *testing.T) {
	repo := new(mockRepository)
	userRepo := new(mockUserRepository)
	order := testOrder(workflows.StatusEditing)
	editor := &users.User{ID: uuid.New(), Role: workflows.RoleEditor, IsActive: true}

	userRepo.On("GetByID", mock.Anything, editor.ID).Return(editor, nil)
	repo.On("GetByID", mock.Anything, order.ID).Return(order, nil)
	repo.On("SetEditor", mock.Anything, order.ID, &editor.ID).Return(nil)

	manager := newTestAssignmentManager(repo, userRepo)
	result, err := manager.AssignEditor(context.Background(), order.ID, &editor.ID, uuid.New(), workflows.RoleManager)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	repo.AssertExpectations(t)
}

func TestAssignEditorDetachesWithNil(t *testing.T) {
	repo := new(mockRepository)
	order := testOrder(workflows.StatusEditing)
	editorID := uuid.New()
	order.AssignedEditorID = &editorID
	order.EditorApproved = true

	repo.On("GetByID", mock.Anything, order.ID).Return(order, nil)
	repo.On("SetEditor", mock.Anything, order.ID, (*uuid.UUID)(nil)).Return(nil)

	manager := newTestAssignmentManager(repo, new(mockUserRepository))
	_, err := manager.AssignEditor(context.Background(), order.ID, nil, uuid.New(), workflows.RoleAdmin)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestAssignEditorRejectsNonEditor(t *testing.T) {
	repo := new(mockRepository)
	userRepo := new(mockUserRepository)
	order := testOrder(workflows.StatusEditing)
	writer := activeFreelancer()

	repo.On("GetByID", mock.Anything, order.ID).Return(order, nil)
	userRepo.On("GetByID", mock.Anything, writer.ID).Return(writer, nil)

	manager := newTestAssignmentManager(repo, userRepo)
	_, err := manager.AssignEditor(context.Background(), order.ID, &writer.ID, uuid.New(), workflows.RoleManager)

	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	repo.AssertNotCalled(t, "SetEditor", mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignEditorForbiddenForNonStaff(t *testing.T) {
	manager := newTestAssignmentManager(new(mockRepository), new(mockUserRepository))

	for _, role := range []string{workflows.RoleClient, workflows.RoleFreelancer, workflows.RoleEditor} {
		editorID := uuid.New()
		_, err := manager.AssignEditor(context.Background(), uuid.New(), &editorID, uuid.New(), role)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "role %s", role)
	}
}

func TestUnassignRevertsToAccepted(t *testing.T) {
	repo := new(mockRepository)
	userRepo := new(mockUserRepository)
	order := testOrder(workflows.StatusEditing)
	freelancerID := uuid.New()
	order.AssignedFreelancerID = &freelancerID

	var captured StatusChange
	repo.On("GetByID", mock.Anything, order.ID).Return(order, nil)
	repo.On("SetAssignment", mock.Anything, mock.Anything, (*uuid.UUID)(nil), (*FeeCredit)(nil)).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(StatusChange)
		}).Return(nil)

	manager := newTestAssignmentManager(repo, userRepo)
	_, err := manager.Unassign(context.Background(), order.ID, uuid.New(), workflows.RoleManager)

	assert.NoError(t, err)
	// The revert is unconditional regardless of how far the work progressed,
	// and no fee refund accompanies it.
	assert.Equal(t, workflows.StatusAccepted, captured.ToStatus)
	if assert.NotNil(t, captured.Fields.PreHoldStatus) {
		assert.False(t, captured.Fields.PreHoldStatus.Valid)
	}
}

func TestUnassignWithoutFreelancer(t *testing.T) {
	repo := new(mockRepository)
	order := testOrder(workflows.StatusAccepted)
	repo.On("GetByID", mock.Anything, order.ID).Return(order, nil)

	manager := newTestAssignmentManager(repo, new(mockUserRepository))
	_, err := manager.Unassign(context.Background(), order.ID, uuid.New(), workflows.RoleAdmin)

	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestUnassignTerminalOrder(t *testing.T) {
	repo := new(mockRepository)
	order := testOrder(workflows.StatusCompleted)
	freelancerID := uuid.New()
	order.AssignedFreelancerID = &freelancerID
	repo.On("GetByID", mock.Anything, order.ID).Return(order, nil)

	manager := newTestAssignmentManager(repo, new(mockUserRepository))
	_, err := manager.Unassign(context.Background(), order.ID, uuid.New(), workflows.RoleAdmin)

	assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))
}
