package execution

import (
	"context"

	"taskbroker/internal/domain"
	"taskbroker/internal/repository"

	"github.com/rs/zerolog"
)

// Service tracks post-payment task execution: credential validation, the
// provider marking the work done, and the client's final confirmation. Flags
// only ever move pending -> completed, and the client confirmation is gated
// on both provider-side flags.
type Service struct {
	executions ExecutionRepository
	bookings   BookingRepository
	notifs     Notifier
	broadcast  Broadcaster
	log        zerolog.Logger
}

func NewService(
	executions ExecutionRepository,
	bookings BookingRepository,
	notifs Notifier,
	broadcast Broadcaster,
	log zerolog.Logger,
) *Service {
	return &Service{
		executions: executions,
		bookings:   bookings,
		notifs:     notifs,
		broadcast:  broadcast,
		log:        log,
	}
}

// CreateForPayment opens the execution record when a payment lands. The
// unique index on booking_id makes a second creation fail with ErrDuplicate.
func (s *Service) CreateForPayment(ctx context.Context, b *domain.Booking, paymentID int64) (*domain.ExecutionRecord, error) {
	e := &domain.ExecutionRecord{
		BookingID:           b.ID,
		ClientID:            b.ClientID,
		ProviderID:          b.ProviderID,
		PaymentID:           paymentID,
		CredentialValidated: domain.FlagPending,
		ProviderCompleted:   domain.FlagPending,
		ClientCompleted:     domain.FlagPending,
	}
	if err := s.executions.Create(ctx, e); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return e, nil
}

// Create services the explicit creation endpoint. The referenced booking
// must exist, be paid, and the party ids must match its parties.
func (s *Service) Create(ctx context.Context, req CreateExecutionRequest) (*domain.ExecutionRecord, error) {
	b, err := s.bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if b.ClientID != req.ClientID || b.ProviderID != req.ProviderID {
		return nil, ErrValidation
	}
	if b.Status != domain.BookingPaid {
		return nil, ErrInvalidState
	}

	return s.CreateForPayment(ctx, b, req.PaymentID)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domain.ExecutionRecord, error) {
	e, err := s.executions.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// SetFlag dispatches one flag update on behalf of the acting principal.
// Provider-side flags are provider-only, client_completed is client-only.
// Re-setting an already-completed flag is a no-op.
func (s *Service) SetFlag(ctx context.Context, execID int64, field domain.ExecutionField, actorID int64) (*domain.ExecutionRecord, error) {
	if !field.Valid() {
		return nil, ErrValidation
	}

	e, err := s.GetByID(ctx, execID)
	if err != nil {
		return nil, err
	}

	switch field {
	case domain.FieldCredentialValidated:
		if actorID != e.ProviderID {
			return nil, ErrForbidden
		}
		// RowsAffected==0 just means the flag was already completed.
		if _, err := s.executions.MarkCredentialValidated(ctx, execID); err != nil {
			return nil, err
		}

	case domain.FieldProviderCompleted:
		if actorID != e.ProviderID {
			return nil, ErrForbidden
		}
		applied, err := s.executions.MarkProviderCompleted(ctx, execID)
		if err != nil {
			return nil, err
		}
		if !applied {
			e, err = s.GetByID(ctx, execID)
			if err != nil {
				return nil, err
			}
			if e.ProviderCompleted == domain.FlagCompleted {
				return e, nil
			}
			return nil, ErrPrecondition
		}

	case domain.FieldClientCompleted:
		return s.confirmClientCompletion(ctx, e, actorID)
	}

	return s.GetByID(ctx, execID)
}

func (s *Service) confirmClientCompletion(ctx context.Context, e *domain.ExecutionRecord, actorID int64) (*domain.ExecutionRecord, error) {
	if actorID != e.ClientID {
		return nil, ErrForbidden
	}

	applied, err := s.executions.MarkClientCompleted(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	if !applied {
		e, err = s.GetByID(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		if e.ClientCompleted == domain.FlagCompleted {
			return e, nil
		}
		return nil, ErrPrecondition
	}

	// First confirmation: the engagement is complete and reviewable.
	if _, err := s.bookings.MarkCompleted(ctx, e.BookingID); err != nil {
		return nil, err
	}

	b, err := s.bookings.GetByID(ctx, e.BookingID)
	if err == nil {
		s.broadcast.PublishBookingUpdate(b)
		if nerr := s.notifs.NotifyBookingCompleted(ctx, b); nerr != nil {
			s.log.Error().Err(nerr).Int64("booking_id", b.ID).Msg("notify booking completed")
		}
	} else {
		s.log.Error().Err(err).Int64("booking_id", e.BookingID).Msg("reload booking after completion")
	}

	return s.GetByID(ctx, e.ID)
}
