package notification

import (
	"context"
	"fmt"

	"taskbroker/internal/domain"

	"github.com/rs/zerolog"
)

// Private-channel event names.
const (
	EventNewBooking       = "new_booking"
	EventPriceProposed    = "price_proposed"
	EventBookingAgreed    = "booking_agreed"
	EventPaymentAgreed    = "payment_agreed"
	EventBookingCancelled = "booking_cancelled"
	EventPaymentRecorded  = "payment_recorded"
	EventBookingCompleted = "booking_completed"
	EventNewMessage       = "new_message"
)

// Service projects domain events into persisted per-recipient notifications
// and a push on the recipient's private room. Persistence is authoritative;
// the push is best effort for whoever is connected right now.
type Service struct {
	repo   NotificationRepository
	pusher Pusher
	log    zerolog.Logger
}

func NewService(repo NotificationRepository, pusher Pusher, log zerolog.Logger) *Service {
	return &Service{repo: repo, pusher: pusher, log: log}
}

func (s *Service) create(ctx context.Context, userID int64, typ domain.NotificationType, event, title, message string, bookingID int64) error {
	n := &domain.Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		BookingID: bookingID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	s.pusher.PublishNotification(userID, event, n)
	return nil
}

func (s *Service) GetUserNotifications(ctx context.Context, userID int64, limit int) ([]domain.Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	list, err := s.repo.GetByUserID(ctx, userID, limit)
	if err != nil {
		return nil, 0, err
	}

	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		unread = 0
	}

	return list, unread, nil
}

func (s *Service) MarkAsRead(ctx context.Context, notificationID, userID int64) error {
	return s.repo.MarkAsRead(ctx, notificationID, userID)
}

func (s *Service) MarkAllAsRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *Service) NotifyBookingCreated(ctx context.Context, b *domain.Booking) error {
	return s.create(ctx, b.ProviderID, domain.NotifBooking, EventNewBooking,
		"New booking request",
		fmt.Sprintf("You have a new task request scheduled for %s", b.ScheduledAt.Format("02 Jan 2006 15:04")),
		b.ID)
}

func (s *Service) NotifyPriceProposed(ctx context.Context, b *domain.Booking, proposer domain.Role) error {
	recipient := b.ParticipantID(proposer.Counterpart())
	msg := "A new price was proposed"
	if b.Price != nil {
		msg = fmt.Sprintf("A new price of %.2f was proposed", *b.Price)
	}
	return s.create(ctx, recipient, domain.NotifBooking, EventPriceProposed,
		"Price proposed", msg, b.ID)
}

func (s *Service) NotifyAgreement(ctx context.Context, b *domain.Booking, agreedBy domain.Role, confirmed bool) error {
	recipient := b.ParticipantID(agreedBy.Counterpart())
	if confirmed {
		return s.create(ctx, recipient, domain.NotifBooking, EventPaymentAgreed,
			"Booking confirmed",
			"Both parties agreed on the price; the booking is confirmed and awaiting payment",
			b.ID)
	}
	return s.create(ctx, recipient, domain.NotifInfo, EventBookingAgreed,
		"Price accepted",
		fmt.Sprintf("The %s accepted the current price", agreedBy),
		b.ID)
}

func (s *Service) NotifyBookingCancelled(ctx context.Context, b *domain.Booking, cancelledBy domain.Role) error {
	recipient := b.ParticipantID(cancelledBy.Counterpart())
	return s.create(ctx, recipient, domain.NotifWarning, EventBookingCancelled,
		"Booking cancelled",
		fmt.Sprintf("The booking was cancelled by the %s", cancelledBy),
		b.ID)
}

// NotifyPaymentRecorded alerts both parties; payment changes what each side
// may do next.
func (s *Service) NotifyPaymentRecorded(ctx context.Context, b *domain.Booking) error {
	if err := s.create(ctx, b.ClientID, domain.NotifPayment, EventPaymentRecorded,
		"Payment received", "Your payment was received; the task is now in progress", b.ID); err != nil {
		return err
	}
	return s.create(ctx, b.ProviderID, domain.NotifPayment, EventPaymentRecorded,
		"Payment received", "The client paid; you can start the task", b.ID)
}

func (s *Service) NotifyBookingCompleted(ctx context.Context, b *domain.Booking) error {
	return s.create(ctx, b.ProviderID, domain.NotifBooking, EventBookingCompleted,
		"Task completed",
		"The client confirmed completion; the engagement is closed and reviewable",
		b.ID)
}

func (s *Service) NotifyNewMessage(ctx context.Context, recipientID int64, msg *domain.ChatMessage) error {
	// Truncate on a rune boundary so a multi-byte character is never split.
	preview := msg.Body
	if r := []rune(preview); len(r) > 80 {
		preview = string(r[:80]) + "…"
	}
	return s.create(ctx, recipientID, domain.NotifMessage, EventNewMessage,
		"New message", preview, msg.BookingID)
}
