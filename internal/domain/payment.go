package domain

import "time"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// PaymentRecord is the single payment captured for a booking. InvID is the
// invoice number handed to the gateway; GatewayRef is the external reference
// the gateway reports back on the result callback.
type PaymentRecord struct {
	ID          int64         `json:"id"`
	BookingID   int64         `json:"booking_id"`
	Amount      float64       `json:"amount"`
	OutSum      string        `json:"out_sum"`
	InvID       int64         `json:"inv_id"`
	GatewayRef  string        `json:"gateway_ref,omitempty"`
	Status      PaymentStatus `json:"status"`
	PaymentURL  string        `json:"payment_url,omitempty"`
	RawCallback string        `json:"-"`
	PaidAt      *time.Time    `json:"paid_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
