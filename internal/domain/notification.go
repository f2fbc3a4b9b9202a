package domain

import "time"

type NotificationType string

const (
	NotifBooking NotificationType = "booking"
	NotifPayment NotificationType = "payment"
	NotifWarning NotificationType = "warning"
	NotifMessage NotificationType = "message"
	NotifInfo    NotificationType = "info"
)

// Notification is a per-recipient alert projected from a domain event.
// Mutated only by the recipient marking it read.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message,omitempty"`
	BookingID int64            `json:"booking_id,omitempty"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
