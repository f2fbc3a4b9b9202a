package execution

import (
	"context"

	"taskbroker/internal/domain"
)

type ExecutionRepository interface {
	Create(ctx context.Context, e *domain.ExecutionRecord) error
	GetByID(ctx context.Context, id int64) (*domain.ExecutionRecord, error)
	GetByBookingID(ctx context.Context, bookingID int64) (*domain.ExecutionRecord, error)
	MarkCredentialValidated(ctx context.Context, id int64) (bool, error)
	MarkProviderCompleted(ctx context.Context, id int64) (bool, error)
	MarkClientCompleted(ctx context.Context, id int64) (bool, error)
}

type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	MarkCompleted(ctx context.Context, id int64) (bool, error)
}

type Notifier interface {
	NotifyBookingCompleted(ctx context.Context, b *domain.Booking) error
}

type Broadcaster interface {
	PublishBookingUpdate(b *domain.Booking)
}
