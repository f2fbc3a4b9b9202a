package domain

import "time"

type FlagState string

const (
	FlagPending   FlagState = "pending"
	FlagCompleted FlagState = "completed"
)

// ExecutionField names one of the tri-state flags on an execution record.
type ExecutionField string

const (
	FieldCredentialValidated ExecutionField = "credential_validated"
	FieldProviderCompleted   ExecutionField = "provider_completed"
	FieldClientCompleted     ExecutionField = "client_completed"
)

func (f ExecutionField) Valid() bool {
	switch f {
	case FieldCredentialValidated, FieldProviderCompleted, FieldClientCompleted:
		return true
	}
	return false
}

// ExecutionRecord tracks post-payment task execution. Exactly one per
// booking. Flags move pending -> completed and never back; the client
// confirmation is gated on both provider-side flags.
type ExecutionRecord struct {
	ID                  int64     `json:"id"`
	BookingID           int64     `json:"booking_id"`
	ClientID            int64     `json:"client_id"`
	ProviderID          int64     `json:"provider_id"`
	PaymentID           int64     `json:"payment_id"`
	CredentialValidated FlagState `json:"credential_validated"`
	ProviderCompleted   FlagState `json:"provider_completed"`
	ClientCompleted     FlagState `json:"client_completed"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ProviderSideDone reports whether both provider-side flags are completed.
func (e *ExecutionRecord) ProviderSideDone() bool {
	return e.CredentialValidated == FlagCompleted && e.ProviderCompleted == FlagCompleted
}
