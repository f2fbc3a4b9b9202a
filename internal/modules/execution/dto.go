package execution

type CreateExecutionRequest struct {
	BookingID  int64 `json:"booking_id" binding:"required"`
	ClientID   int64 `json:"client_id" binding:"required"`
	ProviderID int64 `json:"provider_id" binding:"required"`
	PaymentID  int64 `json:"payment_id" binding:"required"`
}

type UpdateExecutionRequest struct {
	Field string `json:"field" binding:"required,oneof=credential_validated provider_completed client_completed"`
}
