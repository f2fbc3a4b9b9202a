package negotiation

import (
	"context"

	"taskbroker/internal/domain"
)

// BookingRepository is the persistence surface the state machine needs. All
// mutating methods are single conditional statements on the booking row; the
// returned bool reports whether the row matched.
type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListForUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error)
	UpdatePrice(ctx context.Context, id int64, price float64) (bool, error)
	SetAgreement(ctx context.Context, id int64, role domain.Role) (bool, error)
	ConfirmIfDualAgreed(ctx context.Context, id int64) (bool, error)
	SetAgreementDoc(ctx context.Context, id int64, url string) (bool, error)
	Cancel(ctx context.Context, id int64) (bool, error)
	MarkPaid(ctx context.Context, id int64) (bool, error)
}

// Notifier projects domain events onto the parties' private channels.
type Notifier interface {
	NotifyBookingCreated(ctx context.Context, b *domain.Booking) error
	NotifyPriceProposed(ctx context.Context, b *domain.Booking, proposer domain.Role) error
	NotifyAgreement(ctx context.Context, b *domain.Booking, agreedBy domain.Role, confirmed bool) error
	NotifyBookingCancelled(ctx context.Context, b *domain.Booking, cancelledBy domain.Role) error
	NotifyPaymentRecorded(ctx context.Context, b *domain.Booking) error
}

// Broadcaster fans a booking state change out to the booking's room.
type Broadcaster interface {
	PublishBookingUpdate(b *domain.Booking)
}

// DocumentArchiver renders and archives the agreement document, returning a
// durable reference.
type DocumentArchiver interface {
	RenderAndStore(ctx context.Context, b *domain.Booking) (string, error)
}

// ExecutionCreator opens the post-payment execution record for a booking.
type ExecutionCreator interface {
	CreateForPayment(ctx context.Context, b *domain.Booking, paymentID int64) (*domain.ExecutionRecord, error)
}
