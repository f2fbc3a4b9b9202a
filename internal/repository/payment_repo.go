package repository

import (
	"context"
	"time"

	"taskbroker/internal/domain"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

type paymentModel struct {
	ID          int64      `gorm:"column:id;primaryKey"`
	BookingID   int64      `gorm:"column:booking_id;uniqueIndex"`
	Amount      float64    `gorm:"column:amount"`
	OutSum      string     `gorm:"column:out_sum"`
	InvID       int64      `gorm:"column:inv_id;uniqueIndex"`
	GatewayRef  *string    `gorm:"column:gateway_ref"`
	Status      string     `gorm:"column:status"`
	PaymentURL  string     `gorm:"column:payment_url"`
	RawCallback *string    `gorm:"column:raw_callback"`
	PaidAt      *time.Time `gorm:"column:paid_at"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

func (paymentModel) TableName() string { return "payments" }

func toDomainPayment(m paymentModel) *domain.PaymentRecord {
	var ref, raw string
	if m.GatewayRef != nil {
		ref = *m.GatewayRef
	}
	if m.RawCallback != nil {
		raw = *m.RawCallback
	}

	return &domain.PaymentRecord{
		ID:          m.ID,
		BookingID:   m.BookingID,
		Amount:      m.Amount,
		OutSum:      m.OutSum,
		InvID:       m.InvID,
		GatewayRef:  ref,
		Status:      domain.PaymentStatus(m.Status),
		PaymentURL:  m.PaymentURL,
		RawCallback: raw,
		PaidAt:      m.PaidAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.PaymentRecord) error {
	m := paymentModel{
		BookingID:  p.BookingID,
		Amount:     p.Amount,
		OutSum:     p.OutSum,
		InvID:      p.InvID,
		Status:     string(p.Status),
		PaymentURL: p.PaymentURL,
	}
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return tx.Error
	}
	*p = *toDomainPayment(m)
	return nil
}

func (r *PaymentRepository) GetByInvID(ctx context.Context, invID int64) (*domain.PaymentRecord, error) {
	var m paymentModel
	tx := r.db.WithContext(ctx).Where("inv_id = ?", invID).First(&m)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainPayment(m), nil
}

func (r *PaymentRepository) GetByBookingID(ctx context.Context, bookingID int64) (*domain.PaymentRecord, error) {
	var m paymentModel
	tx := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&m)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainPayment(m), nil
}

// MarkPaidIdempotent records a successful gateway callback once. A repeated
// callback for an already paid invoice matches zero rows and reports
// changed=false without error.
func (r *PaymentRepository) MarkPaidIdempotent(ctx context.Context, invID int64, gatewayRef, rawBody string, paidAt time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&paymentModel{}).
		Where("inv_id = ? AND status <> ?", invID, string(domain.PaymentPaid)).
		Updates(map[string]any{
			"status":       string(domain.PaymentPaid),
			"gateway_ref":  gatewayRef,
			"raw_callback": rawBody,
			"paid_at":      paidAt,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
