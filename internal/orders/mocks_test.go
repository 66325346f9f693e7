package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"writehub/order-portal/order-portal-backend/internal/users"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, order *Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	args := m.Called(ctx, id)
	if order := args.Get(0); order != nil {
		return order.(*Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) List(ctx context.Context, filter Filter) ([]Order, error) {
	args := m.Called(ctx, filter)
	if list := args.Get(0); list != nil {
		return list.([]Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) History(ctx context.Context, orderID uuid.UUID) ([]StatusLog, error) {
	args := m.Called(ctx, orderID)
	if logs := args.Get(0); logs != nil {
		return logs.([]StatusLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) ApplyStatusChange(ctx context.Context, change StatusChange) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

func (m *mockRepository) SetAssignment(ctx context.Context, change StatusChange, freelancerID *uuid.UUID, fee *FeeCredit) error {
	args := m.Called(ctx, change, freelancerID, fee)
	return args.Error(0)
}

func (m *mockRepository) SetEditor(ctx context.Context, orderID uuid.UUID, editorID *uuid.UUID) error {
	args := m.Called(ctx, orderID, editorID)
	return args.Error(0)
}

func (m *mockRepository) ListApproachingFreelancerDeadline(ctx context.Context, within time.Duration) ([]Order, error) {
	args := m.Called(ctx, within)
	if list := args.Get(0); list != nil {
		return list.([]Order), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *users.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*users.User, error) {
	args := m.Called(ctx, id)
	if user := args.Get(0); user != nil {
		return user.(*users.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	args := m.Called(ctx, email)
	if user := args.Get(0); user != nil {
		return user.(*users.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepository) GetBalance(ctx context.Context, id uuid.UUID) (float64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(float64), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, event string, payload map[string]interface{}) {
	m.Called(ctx, event, payload)
}

// quietNotifier swallows every event; for tests that do not assert on
// notifications.
type quietNotifier struct{}

func (quietNotifier) Notify(ctx context.Context, event string, payload map[string]interface{}) {}
