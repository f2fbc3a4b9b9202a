package payment

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"taskbroker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *domain.PaymentRecord) error {
	args := m.Called(ctx, p)
	if p != nil {
		p.ID = 77 // simulate DB insert
	}
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByInvID(ctx context.Context, invID int64) (*domain.PaymentRecord, error) {
	args := m.Called(ctx, invID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentRecord), args.Error(1)
}

func (m *MockPaymentRepository) GetByBookingID(ctx context.Context, bookingID int64) (*domain.PaymentRecord, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentRecord), args.Error(1)
}

func (m *MockPaymentRepository) MarkPaidIdempotent(ctx context.Context, invID int64, gatewayRef, rawBody string, paidAt time.Time) (bool, error) {
	args := m.Called(ctx, invID, gatewayRef, rawBody, paidAt)
	return args.Bool(0), args.Error(1)
}

type MockBookingReader struct {
	mock.Mock
}

func (m *MockBookingReader) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordPayment(ctx context.Context, bookingID int64, amount float64, paymentID int64, gatewayRef string) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, amount, paymentID, gatewayRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

var testGateway = GatewayConfig{
	MerchantLogin: "taskbroker",
	Password1:     "pw1",
	Password2:     "pw2",
	BaseURL:       "https://gateway.example.com/pay",
	ResultURL:     "https://broker.example.com/api/v1/payments/result",
	IsTest:        true,
}

func newTestService() (*Service, *MockPaymentRepository, *MockBookingReader, *MockRecorder) {
	payments := new(MockPaymentRepository)
	bookings := new(MockBookingReader)
	recorder := new(MockRecorder)
	svc := NewService(payments, bookings, recorder, testGateway, zerolog.Nop())
	return svc, payments, bookings, recorder
}

func confirmedBooking() *domain.Booking {
	price := 100.0
	return &domain.Booking{
		ID:               42,
		ClientID:         1,
		ProviderID:       2,
		Price:            &price,
		AgreedByClient:   true,
		AgreedByProvider: true,
		Status:           domain.BookingConfirmed,
	}
}

func TestInitPayment_Success(t *testing.T) {
	svc, payments, bookings, _ := newTestService()

	bookings.On("GetByID", mock.Anything, int64(42)).Return(confirmedBooking(), nil)
	payments.On("GetByBookingID", mock.Anything, int64(42)).Return(nil, gorm.ErrRecordNotFound)
	payments.On("Create", mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.InitPayment(context.Background(), InitPaymentRequest{BookingID: 42, Description: "task 42"}, 1)

	assert.NoError(t, err)
	assert.Equal(t, "100.00", resp.OutSum)
	assert.NotZero(t, resp.InvID)
	assert.True(t, strings.HasPrefix(resp.PaymentURL, testGateway.BaseURL+"?"))
	assert.Contains(t, resp.PaymentURL, "SignatureValue=")
	assert.Contains(t, resp.PaymentURL, "Shp_booking_id=42")
}

// JSON consumers decode numbers as float64, which is exact only up to 2^53.
// The invoice id must come back from such a round trip unchanged, or the
// gateway result callback can never find the invoice again.
func TestInitPayment_InvoiceIDSurvivesJSONNumberRoundTrip(t *testing.T) {
	svc, payments, bookings, _ := newTestService()

	var stored int64
	bookings.On("GetByID", mock.Anything, int64(42)).Return(confirmedBooking(), nil)
	payments.On("GetByBookingID", mock.Anything, int64(42)).Return(nil, gorm.ErrRecordNotFound)
	payments.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.PaymentRecord) bool {
		stored = p.InvID
		return true
	})).Return(nil)

	resp, err := svc.InitPayment(context.Background(), InitPaymentRequest{BookingID: 42}, 1)
	assert.NoError(t, err)
	assert.Equal(t, stored, resp.InvID)

	raw, err := json.Marshal(resp)
	assert.NoError(t, err)
	var decoded map[string]interface{}
	assert.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, stored, int64(decoded["inv_id"].(float64)))
}

func TestInitPayment_OnlyClientMayPay(t *testing.T) {
	svc, payments, bookings, _ := newTestService()

	bookings.On("GetByID", mock.Anything, int64(42)).Return(confirmedBooking(), nil)

	_, err := svc.InitPayment(context.Background(), InitPaymentRequest{BookingID: 42}, 2)

	assert.ErrorIs(t, err, ErrForbidden)
	payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestInitPayment_BookingNotConfirmed(t *testing.T) {
	svc, _, bookings, _ := newTestService()

	b := confirmedBooking()
	b.Status = domain.BookingNegotiating
	bookings.On("GetByID", mock.Anything, int64(42)).Return(b, nil)

	_, err := svc.InitPayment(context.Background(), InitPaymentRequest{BookingID: 42}, 1)

	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestInitPayment_ReusesExistingInvoice(t *testing.T) {
	svc, payments, bookings, _ := newTestService()

	bookings.On("GetByID", mock.Anything, int64(42)).Return(confirmedBooking(), nil)
	payments.On("GetByBookingID", mock.Anything, int64(42)).Return(&domain.PaymentRecord{
		ID:         77,
		BookingID:  42,
		InvID:      123456,
		OutSum:     "100.00",
		Status:     domain.PaymentPending,
		PaymentURL: "https://gateway.example.com/pay?x=1",
	}, nil)

	resp, err := svc.InitPayment(context.Background(), InitPaymentRequest{BookingID: 42}, 1)

	assert.NoError(t, err)
	assert.Equal(t, int64(123456), resp.InvID)
	payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestHandleResultCallback_InvalidSignature(t *testing.T) {
	svc, payments, _, recorder := newTestService()

	_, err := svc.HandleResultCallback(context.Background(), "100.00", 123456, "DEADBEEF", nil, "raw")

	assert.ErrorIs(t, err, ErrInvalidSignature)
	payments.AssertNotCalled(t, "MarkPaidIdempotent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	recorder.AssertNotCalled(t, "RecordPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleResultCallback_AmountMismatch(t *testing.T) {
	svc, payments, _, recorder := newTestService()

	payments.On("GetByInvID", mock.Anything, int64(123456)).Return(&domain.PaymentRecord{
		ID:        77,
		BookingID: 42,
		InvID:     123456,
		OutSum:    "100.00",
		Amount:    100,
		Status:    domain.PaymentPending,
	}, nil)

	sig := svc.signatureForResult("50.00", 123456, nil)
	_, err := svc.HandleResultCallback(context.Background(), "50.00", 123456, sig, nil, "raw")

	assert.ErrorIs(t, err, ErrAmountMismatch)
	recorder.AssertNotCalled(t, "RecordPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleResultCallback_Success(t *testing.T) {
	svc, payments, _, recorder := newTestService()

	payments.On("GetByInvID", mock.Anything, int64(123456)).Return(&domain.PaymentRecord{
		ID:        77,
		BookingID: 42,
		InvID:     123456,
		OutSum:    "100.00",
		Amount:    100,
		Status:    domain.PaymentPending,
	}, nil)
	payments.On("MarkPaidIdempotent", mock.Anything, int64(123456), "gw-abc", "raw", mock.Anything).Return(true, nil)

	paid := confirmedBooking()
	paid.Status = domain.BookingPaid
	recorder.On("RecordPayment", mock.Anything, int64(42), 100.0, int64(77), "gw-abc").Return(paid, nil)

	shp := map[string]string{"ref": "gw-abc"}
	sig := svc.signatureForResult("100", 123456, shp)

	// The gateway may echo the amount without decimals; it still matches.
	ack, err := svc.HandleResultCallback(context.Background(), "100", 123456, sig, shp, "raw")

	assert.NoError(t, err)
	assert.Equal(t, "OK123456", ack)
	recorder.AssertCalled(t, "RecordPayment", mock.Anything, int64(42), 100.0, int64(77), "gw-abc")
}

func TestHandleResultCallback_ReplayIsAcknowledgedOnce(t *testing.T) {
	svc, payments, _, recorder := newTestService()

	payments.On("GetByInvID", mock.Anything, int64(123456)).Return(&domain.PaymentRecord{
		ID:        77,
		BookingID: 42,
		InvID:     123456,
		OutSum:    "100.00",
		Amount:    100,
		Status:    domain.PaymentPaid,
	}, nil)
	payments.On("MarkPaidIdempotent", mock.Anything, int64(123456), "", "raw", mock.Anything).Return(false, nil)

	sig := svc.signatureForResult("100.00", 123456, nil)
	ack, err := svc.HandleResultCallback(context.Background(), "100.00", 123456, sig, nil, "raw")

	assert.NoError(t, err)
	assert.Equal(t, "OK123456", ack)
	recorder.AssertNotCalled(t, "RecordPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSignature_CaseInsensitiveCompare(t *testing.T) {
	svc, payments, _, recorder := newTestService()

	payments.On("GetByInvID", mock.Anything, int64(5)).Return(&domain.PaymentRecord{
		ID: 77, BookingID: 42, InvID: 5, OutSum: "10", Amount: 10, Status: domain.PaymentPending,
	}, nil)
	payments.On("MarkPaidIdempotent", mock.Anything, int64(5), "", "raw", mock.Anything).Return(true, nil)
	recorder.On("RecordPayment", mock.Anything, int64(42), 10.0, int64(77), "").Return(confirmedBooking(), nil)

	sig := strings.ToLower(svc.signatureForResult("10", 5, nil))
	_, err := svc.HandleResultCallback(context.Background(), "10", 5, sig, nil, "raw")

	assert.NoError(t, err)
}

func TestAmountEqual(t *testing.T) {
	assert.True(t, amountEqual("100", "100.00"))
	assert.True(t, amountEqual(" 99.90 ", "99.9"))
	assert.False(t, amountEqual("100.01", "100.00"))
	assert.False(t, amountEqual("abc", "100"))
}
