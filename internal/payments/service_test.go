package payments

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"writehub/order-portal/order-portal-backend/internal/apperr"
	"writehub/order-portal/order-portal-backend/internal/orders"
	"writehub/order-portal/order-portal-backend/pkg/workflows"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) CreatePayment(ctx context.Context, payment *Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *mockRepository) GetPaymentByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*Payment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	args := m.Called(ctx, orderID)
	if list := args.Get(0); list != nil {
		return list.([]Payment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) GetInvoiceByPayment(ctx context.Context, paymentID uuid.UUID) (*Invoice, error) {
	args := m.Called(ctx, paymentID)
	if inv := args.Get(0); inv != nil {
		return inv.(*Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) SetInvoicePDFURL(ctx context.Context, invoiceID uuid.UUID, url string) error {
	args := m.Called(ctx, invoiceID, url)
	return args.Error(0)
}

func (m *mockRepository) RejectPayment(ctx context.Context, id, actorID uuid.UUID) (bool, error) {
	args := m.Called(ctx, id, actorID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepository) ConfirmSettlement(ctx context.Context, s Settlement) (*SettlementResult, error) {
	args := m.Called(ctx, s)
	if res := args.Get(0); res != nil {
		return res.(*SettlementResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, order *orders.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*orders.Order, error) {
	args := m.Called(ctx, id)
	if o := args.Get(0); o != nil {
		return o.(*orders.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, filter orders.Filter) ([]orders.Order, error) {
	args := m.Called(ctx, filter)
	if list := args.Get(0); list != nil {
		return list.([]orders.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderRepository) History(ctx context.Context, orderID uuid.UUID) ([]orders.StatusLog, error) {
	args := m.Called(ctx, orderID)
	if logs := args.Get(0); logs != nil {
		return logs.([]orders.StatusLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderRepository) ApplyStatusChange(ctx context.Context, change orders.StatusChange) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

func (m *mockOrderRepository) SetAssignment(ctx context.Context, change orders.StatusChange, freelancerID *uuid.UUID, fee *orders.FeeCredit) error {
	args := m.Called(ctx, change, freelancerID, fee)
	return args.Error(0)
}

func (m *mockOrderRepository) SetEditor(ctx context.Context, orderID uuid.UUID, editorID *uuid.UUID) error {
	args := m.Called(ctx, orderID, editorID)
	return args.Error(0)
}

func (m *mockOrderRepository) ListApproachingFreelancerDeadline(ctx context.Context, within time.Duration) ([]orders.Order, error) {
	args := m.Called(ctx, within)
	if list := args.Get(0); list != nil {
		return list.([]orders.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	args := m.Called(ctx, bucket, key, body)
	return args.Error(0)
}

func (m *mockStorage) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, key)
	if r := args.Get(0); r != nil {
		return r.(io.ReadCloser), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStorage) Delete(ctx context.Context, bucket, key string) error {
	args := m.Called(ctx, bucket, key)
	return args.Error(0)
}

func (m *mockStorage) GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error) {
	args := m.Called(ctx, bucket, key, expiration)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) ObjectURL(bucket, key string) string {
	args := m.Called(bucket, key)
	return args.String(0)
}

type quietNotifier struct{}

func (quietNotifier) Notify(ctx context.Context, event string, payload map[string]interface{}) {}

func approvedOrder() *orders.Order {
	pages := 5
	freelancerID := uuid.New()
	return &orders.Order{
		ID:                   uuid.New(),
		OrderCode:            "WH-PAY45678",
		ClientID:             uuid.New(),
		AssignedFreelancerID: &freelancerID,
		Status:               workflows.StatusApproved,
		Pages:                &pages,
		Amount:               1000,
		BaseCpp:              150,
		EffectiveCpp:         150,
		ManagerEarnings:      100,
	}
}

func pendingPayment(orderID uuid.UUID) *Payment {
	return &Payment{
		ID:      uuid.New(),
		OrderID: orderID,
		Amount:  1000,
		Status:  StatusPending,
	}
}

func newTestService(repo Repository, orderRepo orders.Repository, s3 *mockStorage) *Service {
	return NewService(repo, orderRepo, s3, "test-bucket", quietNotifier{}, zap.NewNop())
}

func settlementStorage() *mockStorage {
	s3 := new(mockStorage)
	s3.On("Upload", mock.Anything, "test-bucket", mock.Anything, mock.Anything).Return(nil)
	s3.On("ObjectURL", "test-bucket", mock.Anything).Return("https://test-bucket.s3.us-east-1.amazonaws.com/invoice.pdf")
	return s3
}

func TestConfirmComputesSettlementAmounts(t *testing.T) {
	repo := new(mockRepository)
	orderRepo := new(mockOrderRepository)
	order := approvedOrder()
	payment := pendingPayment(order.ID)

	var captured Settlement
	repo.On("GetPaymentByID", mock.Anything, payment.ID).Return(payment, nil)
	orderRepo.On("GetByID", mock.Anything, order.ID).Return(order, nil)
	repo.On("ConfirmSettlement", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(Settlement)
		}).
		Return(&SettlementResult{
			Applied: true,
			Invoice: &Invoice{ID: uuid.New(), OrderID: order.ID, PaymentID: payment.ID},
		}, nil)
	repo.On("SetInvoicePDFURL", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	service := newTestService(repo, orderRepo, settlementStorage())
	_, err := service.Confirm(context.Background(), payment.ID, uuid.New(), workflows.RoleAdmin)

	assert.NoError(t, err)
	// payout = effective CPP x pages; commission is what remains after the
	// freelancer and the manager cut.
	assert.InDelta(t, 750.0, captured.FreelancerAmount, 1e-9)
	assert.InDelta(t, 100.0, captured.ManagerAmount, 1e-9)
	assert.InDelta(t, 150.0, captured.AdminCommission, 1e-9)
	assert.Equal(t, *order.AssignedFreelancerID, captured.FreelancerID)
}

func TestConfirmAlreadyConfirmedIsNoOp(t *testing.T) {
	repo := new(mockRepository)
	orderRepo := new(mockOrderRepository)
	payment := pendingPayment(uuid.New())
	payment.Status = StatusConfirmed
	payment.ConfirmedByAdmin = true

	repo.On("GetPaymentByID", mock.Anything, payment.ID).Return(payment, nil)

	service := newTestService(repo, orderRepo, new(mockStorage))
	result, err := service.Confirm(context.Background(), payment.ID, uuid.New(), workflows.RoleAdmin)

	assert.NoError(t, err)
	assert.Equal(t, payment.ID, result.ID)
	repo.AssertNotCalled(t, "ConfirmSettlement", mock.Anything, mock.Anything)
}

func TestConfirmLostRaceStillSucceeds(t *testing.T) {
	repo := new(mockRepository)
	orderRepo := new(mockOrderRepository)
	order := approvedOrder()
	payment := pendingPayment(order.ID)

	repo.On("GetPaymentByID", mock.Anything, payment.ID).Return(payment, nil)
	orderRepo.On("GetByID", mock.Anything, order.ID).Return(order, nil)
	// Another confirmation won inside the transaction.
	repo.On("ConfirmSettlement", mock.Anything, mock.Anything).
		Return(&SettlementResult{Applied: false}, nil)

	service := newTestService(repo, orderRepo, new(mockStorage))
	_, err := service.Confirm(context.Background(), payment.ID, uuid.New(), workflows.RoleManager)

	assert.NoError(t, err)
	repo.AssertNotCalled(t, "SetInvoicePDFURL", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmRequiresApprovedOrder(t *testing.T) {
	repo := new(mockRepository)
	orderRepo := new(mockOrderRepository)
	order := approvedOrder()
	order.Status = workflows.StatusDelivered
	payment := pendingPayment(order.ID)

	repo.On("GetPaymentByID", mock.Anything, payment.ID).Return(payment, nil)
	orderRepo.On("GetByID", mock.Anything, order.ID).Return(order, nil)

	service := newTestService(repo, orderRepo, new(mockStorage))
	_, err := service.Confirm(context.Background(), payment.ID, uuid.New(), workflows.RoleAdmin)

	assert.True(t, apperr.IsKind(err, apperr.KindGateNotSatisfied))
	repo.AssertNotCalled(t, "ConfirmSettlement", mock.Anything, mock.Anything)
}

func TestConfirmRequiresFreelancer(t *testing.T) {
	repo := new(mockRepository)
	orderRepo := new(mockOrderRepository)
	order := approvedOrder()
	order.AssignedFreelancerID = nil
	payment := pendingPayment(order.ID)

	repo.On("GetPaymentByID", mock.Anything, payment.ID).Return(payment, nil)
	orderRepo.On("GetByID", mock.Anything, order.ID).Return(order, nil)

	service := newTestService(repo, orderRepo, new(mockStorage))
	_, err := service.Confirm(context.Background(), payment.ID, uuid.New(), workflows.RoleAdmin)

	assert.True(t, apperr.IsKind(err, apperr.KindGateNotSatisfied))
}

func TestConfirmForbiddenForNonStaff(t *testing.T) {
	service := newTestService(new(mockRepository), new(mockOrderRepository), new(mockStorage))

	for _, role := range []string{workflows.RoleClient, workflows.RoleFreelancer, workflows.RoleEditor} {
		_, err := service.Confirm(context.Background(), uuid.New(), uuid.New(), role)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "role %s", role)
	}
}

func TestConfirmRejectedPayment(t *testing.T) {
	repo := new(mockRepository)
	payment := pendingPayment(uuid.New())
	payment.Status = StatusRejected
	repo.On("GetPaymentByID", mock.Anything, payment.ID).Return(payment, nil)

	service := newTestService(repo, new(mockOrderRepository), new(mockStorage))
	_, err := service.Confirm(context.Background(), payment.ID, uuid.New(), workflows.RoleAdmin)

	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestSubmitChecksOwnership(t *testing.T) {
	repo := new(mockRepository)
	orderRepo := new(mockOrderRepository)
	order := approvedOrder()
	orderRepo.On("GetByID", mock.Anything, order.ID).Return(order, nil)

	service := newTestService(repo, orderRepo, new(mockStorage))
	_, err := service.Submit(context.Background(), order.ID, uuid.New(), workflows.RoleClient, 500, "txn-1")

	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	repo.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
}

func TestSubmitRejectsNonPositiveAmount(t *testing.T) {
	service := newTestService(new(mockRepository), new(mockOrderRepository), new(mockStorage))

	_, err := service.Submit(context.Background(), uuid.New(), uuid.New(), workflows.RoleClient, 0, "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestRejectNoLongerPending(t *testing.T) {
	repo := new(mockRepository)
	payment := pendingPayment(uuid.New())
	repo.On("GetPaymentByID", mock.Anything, payment.ID).Return(payment, nil)
	repo.On("RejectPayment", mock.Anything, payment.ID, mock.Anything).Return(false, nil)

	service := newTestService(repo, new(mockOrderRepository), new(mockStorage))
	_, err := service.Reject(context.Background(), payment.ID, uuid.New(), workflows.RoleAdmin)

	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestBillableUnitsFallsBackToSlides(t *testing.T) {
	slides := 8
	order := &orders.Order{Slides: &slides}
	assert.Equal(t, 8, order.BillableUnits())

	pages := 3
	order.Pages = &pages
	assert.Equal(t, 3, order.BillableUnits())

	assert.Equal(t, 0, (&orders.Order{}).BillableUnits())
}
