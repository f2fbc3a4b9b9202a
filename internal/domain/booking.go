package domain

import "time"

type BookingStatus string

const (
	BookingPending     BookingStatus = "pending"
	BookingNegotiating BookingStatus = "negotiating"
	BookingConfirmed   BookingStatus = "confirmed"
	BookingPaid        BookingStatus = "paid"
	BookingCompleted   BookingStatus = "completed"
	BookingCancelled   BookingStatus = "cancelled"
)

// Role identifies which side of an engagement a principal acts as.
type Role string

const (
	RoleClient   Role = "client"
	RoleProvider Role = "provider"
)

func (r Role) Valid() bool {
	return r == RoleClient || r == RoleProvider
}

// Counterpart returns the other side of the engagement.
func (r Role) Counterpart() Role {
	if r == RoleClient {
		return RoleProvider
	}
	return RoleClient
}

func (r Role) String() string { return string(r) }

// Booking is one client–provider task engagement and its negotiated terms.
// Price stays nil until the first proposal. Status is only ever written
// together with the facts it is derived from (agreement flags, payment,
// execution confirmation, cancellation).
type Booking struct {
	ID               int64         `json:"id"`
	ClientID         int64         `json:"client_id" validate:"required"`
	ProviderID       int64         `json:"provider_id" validate:"required"`
	Price            *float64      `json:"price,omitempty"`
	Notes            string        `json:"notes,omitempty"`
	ScheduledAt      time.Time     `json:"scheduled_date" validate:"required"`
	AgreedByClient   bool          `json:"agreed_by_client"`
	AgreedByProvider bool          `json:"agreed_by_provider"`
	Status           BookingStatus `json:"status"`
	AgreementDocURL  *string       `json:"agreement_doc_url,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	CancelledAt      *time.Time    `json:"cancelled_at,omitempty"`
}

// ParticipantID returns the user id acting as the given role.
func (b *Booking) ParticipantID(r Role) int64 {
	if r == RoleClient {
		return b.ClientID
	}
	return b.ProviderID
}

// RoleOf reports which side userID is on, if any.
func (b *Booking) RoleOf(userID int64) (Role, bool) {
	switch userID {
	case b.ClientID:
		return RoleClient, true
	case b.ProviderID:
		return RoleProvider, true
	}
	return "", false
}

// AgreedBy reports whether the given side has agreed to the current price.
func (b *Booking) AgreedBy(r Role) bool {
	if r == RoleClient {
		return b.AgreedByClient
	}
	return b.AgreedByProvider
}

// DualAgreed reports whether both sides have agreed to the current price.
func (b *Booking) DualAgreed() bool {
	return b.AgreedByClient && b.AgreedByProvider
}
