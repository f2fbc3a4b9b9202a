package repository

import (
	"context"
	"time"

	"taskbroker/internal/domain"

	"gorm.io/gorm"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

type bookingModel struct {
	ID               int64      `gorm:"column:id;primaryKey"`
	ClientID         int64      `gorm:"column:client_id;index"`
	ProviderID       int64      `gorm:"column:provider_id;index"`
	Price            *float64   `gorm:"column:price"`
	Notes            *string    `gorm:"column:notes"`
	ScheduledAt      time.Time  `gorm:"column:scheduled_at"`
	AgreedByClient   bool       `gorm:"column:agreed_by_client"`
	AgreedByProvider bool       `gorm:"column:agreed_by_provider"`
	Status           string     `gorm:"column:status;index"`
	AgreementDocURL  *string    `gorm:"column:agreement_doc_url"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
	CancelledAt      *time.Time `gorm:"column:cancelled_at"`
}

func (bookingModel) TableName() string { return "bookings" }

func toDomainBooking(m bookingModel) *domain.Booking {
	var notes string
	if m.Notes != nil {
		notes = *m.Notes
	}

	return &domain.Booking{
		ID:               m.ID,
		ClientID:         m.ClientID,
		ProviderID:       m.ProviderID,
		Price:            m.Price,
		Notes:            notes,
		ScheduledAt:      m.ScheduledAt,
		AgreedByClient:   m.AgreedByClient,
		AgreedByProvider: m.AgreedByProvider,
		Status:           domain.BookingStatus(m.Status),
		AgreementDocURL:  m.AgreementDocURL,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
		CancelledAt:      m.CancelledAt,
	}
}

func toBookingModel(b *domain.Booking) bookingModel {
	var notes *string
	if b.Notes != "" {
		v := b.Notes
		notes = &v
	}

	return bookingModel{
		ID:               b.ID,
		ClientID:         b.ClientID,
		ProviderID:       b.ProviderID,
		Price:            b.Price,
		Notes:            notes,
		ScheduledAt:      b.ScheduledAt,
		AgreedByClient:   b.AgreedByClient,
		AgreedByProvider: b.AgreedByProvider,
		Status:           string(b.Status),
		AgreementDocURL:  b.AgreementDocURL,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
		CancelledAt:      b.CancelledAt,
	}
}

// negotiableStatuses are the states in which terms may still change.
var negotiableStatuses = []string{
	string(domain.BookingPending),
	string(domain.BookingNegotiating),
}

func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	m := toBookingModel(b)
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return tx.Error
	}
	*b = *toDomainBooking(m)
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var m bookingModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainBooking(m), nil
}

func (r *BookingRepository) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error) {
	var ms []bookingModel
	tx := r.db.WithContext(ctx).
		Where("client_id = ? OR provider_id = ?", userID, userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&ms)
	if tx.Error != nil {
		return nil, tx.Error
	}

	out := make([]domain.Booking, 0, len(ms))
	for _, m := range ms {
		out = append(out, *toDomainBooking(m))
	}
	return out, nil
}

// UpdatePrice sets a new price in a single conditional statement. Every
// price write also clears both agreement flags so a stale agreement never
// carries over to a price nobody confirmed. Returns false when the booking
// is not in a negotiable state (or does not exist).
func (r *BookingRepository) UpdatePrice(ctx context.Context, id int64, price float64) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&bookingModel{}).
		Where("id = ? AND status IN ?", id, negotiableStatuses).
		Updates(map[string]any{
			"price":              price,
			"status":             string(domain.BookingNegotiating),
			"agreed_by_client":   false,
			"agreed_by_provider": false,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func agreementColumn(role domain.Role) string {
	if role == domain.RoleClient {
		return "agreed_by_client"
	}
	return "agreed_by_provider"
}

// SetAgreement flips one side's agreement flag. The WHERE clause carries the
// full precondition, so two concurrent calls for different roles each land as
// an independent atomic flag write. Returns false when the flag was already
// set or the booking is not negotiable.
func (r *BookingRepository) SetAgreement(ctx context.Context, id int64, role domain.Role) (bool, error) {
	col := agreementColumn(role)
	tx := r.db.WithContext(ctx).
		Model(&bookingModel{}).
		Where("id = ? AND "+col+" = ? AND status IN ?", id, false, negotiableStatuses).
		Update(col, true)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// ConfirmIfDualAgreed transitions to confirmed exactly once: the conditional
// update only matches while both flags are set and the status is still
// negotiable, so of two racing agree calls at most one observes the
// transition.
func (r *BookingRepository) ConfirmIfDualAgreed(ctx context.Context, id int64) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&bookingModel{}).
		Where("id = ? AND agreed_by_client = ? AND agreed_by_provider = ? AND status IN ?",
			id, true, true, negotiableStatuses).
		Update("status", string(domain.BookingConfirmed))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// SetAgreementDoc records the rendered document reference, first writer wins.
func (r *BookingRepository) SetAgreementDoc(ctx context.Context, id int64, url string) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&bookingModel{}).
		Where("id = ? AND agreement_doc_url IS NULL", id).
		Update("agreement_doc_url", url)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// Cancel moves the booking to cancelled unless it is already terminal or
// paid. Returns false when the transition is not legal.
func (r *BookingRepository) Cancel(ctx context.Context, id int64) (bool, error) {
	now := time.Now().UTC()
	tx := r.db.WithContext(ctx).
		Model(&bookingModel{}).
		Where("id = ? AND status NOT IN ?", id, []string{
			string(domain.BookingPaid),
			string(domain.BookingCompleted),
			string(domain.BookingCancelled),
		}).
		Updates(map[string]any{
			"status":       string(domain.BookingCancelled),
			"cancelled_at": now,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// MarkPaid transitions confirmed -> paid.
func (r *BookingRepository) MarkPaid(ctx context.Context, id int64) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&bookingModel{}).
		Where("id = ? AND status = ?", id, string(domain.BookingConfirmed)).
		Update("status", string(domain.BookingPaid))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// MarkCompleted transitions paid -> completed.
func (r *BookingRepository) MarkCompleted(ctx context.Context, id int64) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&bookingModel{}).
		Where("id = ? AND status = ?", id, string(domain.BookingPaid)).
		Update("status", string(domain.BookingCompleted))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
