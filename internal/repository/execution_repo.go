package repository

import (
	"context"
	"time"

	"taskbroker/internal/domain"

	"gorm.io/gorm"
)

type ExecutionRepository struct {
	db *gorm.DB
}

func NewExecutionRepository(db *gorm.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

type executionModel struct {
	ID                  int64     `gorm:"column:id;primaryKey"`
	BookingID           int64     `gorm:"column:booking_id;uniqueIndex"`
	ClientID            int64     `gorm:"column:client_id"`
	ProviderID          int64     `gorm:"column:provider_id"`
	PaymentID           int64     `gorm:"column:payment_id"`
	CredentialValidated string    `gorm:"column:credential_validated"`
	ProviderCompleted   string    `gorm:"column:provider_completed"`
	ClientCompleted     string    `gorm:"column:client_completed"`
	CreatedAt           time.Time `gorm:"column:created_at"`
	UpdatedAt           time.Time `gorm:"column:updated_at"`
}

func (executionModel) TableName() string { return "executions" }

func toDomainExecution(m executionModel) *domain.ExecutionRecord {
	return &domain.ExecutionRecord{
		ID:                  m.ID,
		BookingID:           m.BookingID,
		ClientID:            m.ClientID,
		ProviderID:          m.ProviderID,
		PaymentID:           m.PaymentID,
		CredentialValidated: domain.FlagState(m.CredentialValidated),
		ProviderCompleted:   domain.FlagState(m.ProviderCompleted),
		ClientCompleted:     domain.FlagState(m.ClientCompleted),
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

// Create inserts the record. The unique index on booking_id turns a second
// creation for the same booking into a unique violation; callers map that
// with IsUniqueViolation.
func (r *ExecutionRepository) Create(ctx context.Context, e *domain.ExecutionRecord) error {
	m := executionModel{
		BookingID:           e.BookingID,
		ClientID:            e.ClientID,
		ProviderID:          e.ProviderID,
		PaymentID:           e.PaymentID,
		CredentialValidated: string(e.CredentialValidated),
		ProviderCompleted:   string(e.ProviderCompleted),
		ClientCompleted:     string(e.ClientCompleted),
	}
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return tx.Error
	}
	*e = *toDomainExecution(m)
	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id int64) (*domain.ExecutionRecord, error) {
	var m executionModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainExecution(m), nil
}

func (r *ExecutionRepository) GetByBookingID(ctx context.Context, bookingID int64) (*domain.ExecutionRecord, error) {
	var m executionModel
	tx := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&m)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainExecution(m), nil
}

// MarkCredentialValidated flips the credential flag. Returns false when it
// was already completed (the transition is one-directional).
func (r *ExecutionRepository) MarkCredentialValidated(ctx context.Context, id int64) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&executionModel{}).
		Where("id = ? AND credential_validated = ?", id, string(domain.FlagPending)).
		Update("credential_validated", string(domain.FlagCompleted))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// MarkProviderCompleted flips the provider flag, gated in the statement on
// credential validation having already completed.
func (r *ExecutionRepository) MarkProviderCompleted(ctx context.Context, id int64) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&executionModel{}).
		Where("id = ? AND provider_completed = ? AND credential_validated = ?",
			id, string(domain.FlagPending), string(domain.FlagCompleted)).
		Update("provider_completed", string(domain.FlagCompleted))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// MarkClientCompleted flips the client flag, gated in the statement on both
// provider-side flags. No interleaving can complete the client flag while
// provider_completed is still pending.
func (r *ExecutionRepository) MarkClientCompleted(ctx context.Context, id int64) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&executionModel{}).
		Where("id = ? AND client_completed = ? AND credential_validated = ? AND provider_completed = ?",
			id, string(domain.FlagPending), string(domain.FlagCompleted), string(domain.FlagCompleted)).
		Update("client_completed", string(domain.FlagCompleted))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
