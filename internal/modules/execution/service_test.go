package execution

import (
	"context"
	"testing"

	"taskbroker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

type MockExecutionRepository struct {
	mock.Mock
}

func (m *MockExecutionRepository) Create(ctx context.Context, e *domain.ExecutionRecord) error {
	args := m.Called(ctx, e)
	if e != nil {
		e.ID = 501 // simulate DB insert
	}
	return args.Error(0)
}

func (m *MockExecutionRepository) GetByID(ctx context.Context, id int64) (*domain.ExecutionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExecutionRecord), args.Error(1)
}

func (m *MockExecutionRepository) GetByBookingID(ctx context.Context, bookingID int64) (*domain.ExecutionRecord, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExecutionRecord), args.Error(1)
}

func (m *MockExecutionRepository) MarkCredentialValidated(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockExecutionRepository) MarkProviderCompleted(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockExecutionRepository) MarkClientCompleted(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) MarkCompleted(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyBookingCompleted(ctx context.Context, b *domain.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) PublishBookingUpdate(b *domain.Booking) {
	m.Called(b)
}

func newTestService() (*Service, *MockExecutionRepository, *MockBookingRepository, *MockNotifier, *MockBroadcaster) {
	executions := new(MockExecutionRepository)
	bookings := new(MockBookingRepository)
	notifs := new(MockNotifier)
	broadcast := new(MockBroadcaster)
	svc := NewService(executions, bookings, notifs, broadcast, zerolog.Nop())
	return svc, executions, bookings, notifs, broadcast
}

func paidBooking() *domain.Booking {
	price := 100.0
	return &domain.Booking{
		ID:         42,
		ClientID:   1,
		ProviderID: 2,
		Price:      &price,
		Status:     domain.BookingPaid,
	}
}

func record(mut ...func(*domain.ExecutionRecord)) *domain.ExecutionRecord {
	e := &domain.ExecutionRecord{
		ID:                  501,
		BookingID:           42,
		ClientID:            1,
		ProviderID:          2,
		PaymentID:           77,
		CredentialValidated: domain.FlagPending,
		ProviderCompleted:   domain.FlagPending,
		ClientCompleted:     domain.FlagPending,
	}
	for _, f := range mut {
		f(e)
	}
	return e
}

func TestCreateForPayment_Success(t *testing.T) {
	svc, executions, _, _, _ := newTestService()

	executions.On("Create", mock.Anything, mock.Anything).Return(nil)

	e, err := svc.CreateForPayment(context.Background(), paidBooking(), 77)

	assert.NoError(t, err)
	assert.Equal(t, int64(42), e.BookingID)
	assert.Equal(t, domain.FlagPending, e.CredentialValidated)
	assert.Equal(t, domain.FlagPending, e.ProviderCompleted)
	assert.Equal(t, domain.FlagPending, e.ClientCompleted)
}

func TestCreateForPayment_Duplicate(t *testing.T) {
	svc, executions, _, _, _ := newTestService()

	executions.On("Create", mock.Anything, mock.Anything).Return(gorm.ErrDuplicatedKey)

	_, err := svc.CreateForPayment(context.Background(), paidBooking(), 77)

	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCreate_PartyMismatch(t *testing.T) {
	svc, executions, bookings, _, _ := newTestService()

	bookings.On("GetByID", mock.Anything, int64(42)).Return(paidBooking(), nil)

	_, err := svc.Create(context.Background(), CreateExecutionRequest{
		BookingID:  42,
		ClientID:   1,
		ProviderID: 999, // not the booking's provider
		PaymentID:  77,
	})

	assert.ErrorIs(t, err, ErrValidation)
	executions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreate_BookingNotPaid(t *testing.T) {
	svc, _, bookings, _, _ := newTestService()

	b := paidBooking()
	b.Status = domain.BookingConfirmed
	bookings.On("GetByID", mock.Anything, int64(42)).Return(b, nil)

	_, err := svc.Create(context.Background(), CreateExecutionRequest{
		BookingID:  42,
		ClientID:   1,
		ProviderID: 2,
		PaymentID:  77,
	})

	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSetFlag_CredentialValidated_ClientForbidden(t *testing.T) {
	svc, executions, _, _, _ := newTestService()

	executions.On("GetByID", mock.Anything, int64(501)).Return(record(), nil)

	_, err := svc.SetFlag(context.Background(), 501, domain.FieldCredentialValidated, 1)

	assert.ErrorIs(t, err, ErrForbidden)
	executions.AssertNotCalled(t, "MarkCredentialValidated", mock.Anything, mock.Anything)
}

func TestSetFlag_CredentialValidated_Success(t *testing.T) {
	svc, executions, _, _, _ := newTestService()

	done := record(func(e *domain.ExecutionRecord) { e.CredentialValidated = domain.FlagCompleted })

	executions.On("GetByID", mock.Anything, int64(501)).Return(record(), nil).Once()
	executions.On("MarkCredentialValidated", mock.Anything, int64(501)).Return(true, nil)
	executions.On("GetByID", mock.Anything, int64(501)).Return(done, nil).Once()

	e, err := svc.SetFlag(context.Background(), 501, domain.FieldCredentialValidated, 2)

	assert.NoError(t, err)
	assert.Equal(t, domain.FlagCompleted, e.CredentialValidated)
}

func TestSetFlag_ProviderCompleted_BeforeCredential(t *testing.T) {
	svc, executions, _, _, _ := newTestService()

	executions.On("GetByID", mock.Anything, int64(501)).Return(record(), nil)
	executions.On("MarkProviderCompleted", mock.Anything, int64(501)).Return(false, nil)

	_, err := svc.SetFlag(context.Background(), 501, domain.FieldProviderCompleted, 2)

	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestSetFlag_ProviderCompleted_RepeatIsNoop(t *testing.T) {
	svc, executions, _, _, _ := newTestService()

	done := record(func(e *domain.ExecutionRecord) {
		e.CredentialValidated = domain.FlagCompleted
		e.ProviderCompleted = domain.FlagCompleted
	})

	executions.On("GetByID", mock.Anything, int64(501)).Return(done, nil)
	executions.On("MarkProviderCompleted", mock.Anything, int64(501)).Return(false, nil)

	e, err := svc.SetFlag(context.Background(), 501, domain.FieldProviderCompleted, 2)

	assert.NoError(t, err)
	assert.Equal(t, domain.FlagCompleted, e.ProviderCompleted)
}

func TestSetFlag_ClientCompleted_BeforeProviderFlags(t *testing.T) {
	svc, executions, bookings, _, _ := newTestService()

	half := record(func(e *domain.ExecutionRecord) { e.CredentialValidated = domain.FlagCompleted })

	executions.On("GetByID", mock.Anything, int64(501)).Return(half, nil)
	executions.On("MarkClientCompleted", mock.Anything, int64(501)).Return(false, nil)

	_, err := svc.SetFlag(context.Background(), 501, domain.FieldClientCompleted, 1)

	assert.ErrorIs(t, err, ErrPrecondition)
	bookings.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything)
}

func TestSetFlag_ClientCompleted_ProviderForbidden(t *testing.T) {
	svc, executions, _, _, _ := newTestService()

	ready := record(func(e *domain.ExecutionRecord) {
		e.CredentialValidated = domain.FlagCompleted
		e.ProviderCompleted = domain.FlagCompleted
	})
	executions.On("GetByID", mock.Anything, int64(501)).Return(ready, nil)

	_, err := svc.SetFlag(context.Background(), 501, domain.FieldClientCompleted, 2)

	assert.ErrorIs(t, err, ErrForbidden)
	executions.AssertNotCalled(t, "MarkClientCompleted", mock.Anything, mock.Anything)
}

func TestSetFlag_ClientCompleted_CompletesBooking(t *testing.T) {
	svc, executions, bookings, notifs, broadcast := newTestService()

	ready := record(func(e *domain.ExecutionRecord) {
		e.CredentialValidated = domain.FlagCompleted
		e.ProviderCompleted = domain.FlagCompleted
	})
	final := record(func(e *domain.ExecutionRecord) {
		e.CredentialValidated = domain.FlagCompleted
		e.ProviderCompleted = domain.FlagCompleted
		e.ClientCompleted = domain.FlagCompleted
	})
	completed := paidBooking()
	completed.Status = domain.BookingCompleted

	executions.On("GetByID", mock.Anything, int64(501)).Return(ready, nil).Once()
	executions.On("MarkClientCompleted", mock.Anything, int64(501)).Return(true, nil)
	bookings.On("MarkCompleted", mock.Anything, int64(42)).Return(true, nil)
	bookings.On("GetByID", mock.Anything, int64(42)).Return(completed, nil)
	broadcast.On("PublishBookingUpdate", completed).Return()
	notifs.On("NotifyBookingCompleted", mock.Anything, completed).Return(nil)
	executions.On("GetByID", mock.Anything, int64(501)).Return(final, nil).Once()

	e, err := svc.SetFlag(context.Background(), 501, domain.FieldClientCompleted, 1)

	assert.NoError(t, err)
	assert.Equal(t, domain.FlagCompleted, e.ClientCompleted)
	bookings.AssertCalled(t, "MarkCompleted", mock.Anything, int64(42))
	notifs.AssertCalled(t, "NotifyBookingCompleted", mock.Anything, completed)
}

func TestSetFlag_UnknownField(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	_, err := svc.SetFlag(context.Background(), 501, domain.ExecutionField("made_up"), 1)

	assert.ErrorIs(t, err, ErrValidation)
}
