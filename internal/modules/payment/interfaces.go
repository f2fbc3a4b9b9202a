package payment

import (
	"context"
	"time"

	"taskbroker/internal/domain"
)

type paymentRepo interface {
	Create(ctx context.Context, p *domain.PaymentRecord) error
	GetByInvID(ctx context.Context, invID int64) (*domain.PaymentRecord, error)
	GetByBookingID(ctx context.Context, bookingID int64) (*domain.PaymentRecord, error)
	MarkPaidIdempotent(ctx context.Context, invID int64, gatewayRef, rawBody string, paidAt time.Time) (bool, error)
}

type bookingReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
}

// paymentRecorder is the negotiation engine's entry point for a verified,
// committed payment.
type paymentRecorder interface {
	RecordPayment(ctx context.Context, bookingID int64, amount float64, paymentID int64, gatewayRef string) (*domain.Booking, error)
}
