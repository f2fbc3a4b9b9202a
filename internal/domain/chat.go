package domain

import "time"

// ChatMessage is one entry of a booking's append-only message log.
// IDs are ULIDs, so insertion order is recovered by sorting on ID.
type ChatMessage struct {
	ID         string    `json:"id"`
	BookingID  int64     `json:"booking_id"`
	SenderID   int64     `json:"sender_id"`
	SenderRole Role      `json:"sender_role"`
	Body       string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}
