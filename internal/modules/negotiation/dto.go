package negotiation

import "time"

type CreateBookingRequest struct {
	ClientID    int64     `json:"client_id" binding:"required"`
	ProviderID  int64     `json:"provider_id" binding:"required"`
	Notes       string    `json:"notes"`
	ScheduledAt time.Time `json:"scheduled_date" binding:"required"`
	Price       *float64  `json:"price"`
}

type ProposePriceRequest struct {
	Price float64 `json:"price" binding:"required,gt=0"`
}

type AgreeRequest struct {
	Role string `json:"role" binding:"required,oneof=client provider"`
}
