package realtime

import (
	"context"
	"time"

	"taskbroker/internal/domain"
	"taskbroker/internal/repository"

	"github.com/oklog/ulid/v2"
)

type ChatRepository interface {
	Append(ctx context.Context, msg *domain.ChatMessage) error
	ListByBooking(ctx context.Context, bookingID int64) ([]domain.ChatMessage, error)
}

type BookingReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
}

// ChatService persists the per-booking message log and serves full replays.
// The log is the source of truth; the hub only mirrors it to live sockets.
type ChatService struct {
	messages ChatRepository
	bookings BookingReader
}

func NewChatService(messages ChatRepository, bookings BookingReader) *ChatService {
	return &ChatService{messages: messages, bookings: bookings}
}

// Append validates the sender against the booking's parties and appends a
// single message. The ULID id carries the insertion order.
func (s *ChatService) Append(ctx context.Context, bookingID, senderID int64, senderRole domain.Role, body string) (*domain.ChatMessage, error) {
	if body == "" || !senderRole.Valid() {
		return nil, ErrValidation
	}

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if b.ParticipantID(senderRole) != senderID {
		return nil, ErrForbidden
	}

	msg := &domain.ChatMessage{
		ID:         ulid.Make().String(),
		BookingID:  bookingID,
		SenderID:   senderID,
		SenderRole: senderRole,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Replay returns the full persisted log in append order. Joining is
// re-entrant; a reconnecting client re-receives everything.
func (s *ChatService) Replay(ctx context.Context, bookingID int64) ([]domain.ChatMessage, error) {
	msgs, err := s.messages.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	return msgs, nil
}
