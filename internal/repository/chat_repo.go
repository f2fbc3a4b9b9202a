package repository

import (
	"context"
	"time"

	"taskbroker/internal/domain"

	"gorm.io/gorm"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

type chatMessageModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	BookingID  int64     `gorm:"column:booking_id;index"`
	SenderID   int64     `gorm:"column:sender_id"`
	SenderRole string    `gorm:"column:sender_role"`
	Body       string    `gorm:"column:body"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (chatMessageModel) TableName() string { return "chat_messages" }

func toDomainMessage(m chatMessageModel) domain.ChatMessage {
	return domain.ChatMessage{
		ID:         m.ID,
		BookingID:  m.BookingID,
		SenderID:   m.SenderID,
		SenderRole: domain.Role(m.SenderRole),
		Body:       m.Body,
		CreatedAt:  m.CreatedAt,
	}
}

// Append writes one message as a single INSERT. The log is append-only;
// there is no read-modify-write path for concurrent senders to race on.
func (r *ChatRepository) Append(ctx context.Context, msg *domain.ChatMessage) error {
	m := chatMessageModel{
		ID:         msg.ID,
		BookingID:  msg.BookingID,
		SenderID:   msg.SenderID,
		SenderRole: string(msg.SenderRole),
		Body:       msg.Body,
		CreatedAt:  msg.CreatedAt,
	}
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return tx.Error
	}
	*msg = toDomainMessage(m)
	return nil
}

// ListByBooking returns the full log in insertion order. ULID primary keys
// sort lexically by creation time, so ORDER BY id is the append order.
func (r *ChatRepository) ListByBooking(ctx context.Context, bookingID int64) ([]domain.ChatMessage, error) {
	var ms []chatMessageModel
	tx := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("id ASC").
		Find(&ms)
	if tx.Error != nil {
		return nil, tx.Error
	}

	out := make([]domain.ChatMessage, 0, len(ms))
	for _, m := range ms {
		out = append(out, toDomainMessage(m))
	}
	return out, nil
}
