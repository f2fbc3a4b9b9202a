package payment

type InitPaymentRequest struct {
	BookingID   int64  `json:"booking_id" validate:"required"`
	Description string `json:"description"`
}

type InitPaymentResponse struct {
	InvID      int64  `json:"inv_id"`
	BookingID  int64  `json:"booking_id"`
	OutSum     string `json:"out_sum"`
	PaymentURL string `json:"payment_url"`
	Status     string `json:"status"`
}
