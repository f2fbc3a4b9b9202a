package negotiation

import (
	"context"

	"taskbroker/internal/domain"
	"taskbroker/internal/repository"

	"github.com/rs/zerolog"
)

// Service owns the booking state machine:
//
//	pending -> negotiating -> confirmed -> paid -> completed
//
// with cancelled reachable from the first three. Every transition is a
// conditional write on the booking row, so two handlers touching the same
// booking serialize on the database, not on process memory.
type Service struct {
	bookings   BookingRepository
	notifs     Notifier
	broadcast  Broadcaster
	docs       DocumentArchiver
	executions ExecutionCreator
	log        zerolog.Logger
}

func NewService(
	bookings BookingRepository,
	notifs Notifier,
	broadcast Broadcaster,
	docs DocumentArchiver,
	executions ExecutionCreator,
	log zerolog.Logger,
) *Service {
	return &Service{
		bookings:   bookings,
		notifs:     notifs,
		broadcast:  broadcast,
		docs:       docs,
		executions: executions,
		log:        log,
	}
}

func (s *Service) Create(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	if req.ClientID == 0 || req.ProviderID == 0 || req.ScheduledAt.IsZero() {
		return nil, ErrValidation
	}
	if req.ClientID == req.ProviderID {
		return nil, ErrValidation
	}
	if req.Price != nil && *req.Price <= 0 {
		return nil, ErrValidation
	}

	b := &domain.Booking{
		ClientID:    req.ClientID,
		ProviderID:  req.ProviderID,
		Price:       req.Price,
		Notes:       req.Notes,
		ScheduledAt: req.ScheduledAt,
		Status:      domain.BookingPending,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, err
	}

	if err := s.notifs.NotifyBookingCreated(ctx, b); err != nil {
		s.log.Error().Err(err).Int64("booking_id", b.ID).Msg("notify booking created")
	}

	return b, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *Service) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.bookings.ListForUser(ctx, userID, limit, offset)
}

// ProposePrice sets a new price while the booking is still negotiable. Any
// price write clears both agreement flags in the same statement: an
// agreement given for an old price must never silently apply to a new one.
func (s *Service) ProposePrice(ctx context.Context, bookingID int64, price float64, proposer domain.Role, actorID int64) (*domain.Booking, error) {
	if !proposer.Valid() || price <= 0 {
		return nil, ErrValidation
	}

	b, err := s.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.ParticipantID(proposer) != actorID {
		return nil, ErrForbidden
	}

	applied, err := s.bookings.UpdatePrice(ctx, bookingID, price)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrInvalidState
	}

	b, err = s.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	s.broadcast.PublishBookingUpdate(b)
	if err := s.notifs.NotifyPriceProposed(ctx, b, proposer); err != nil {
		s.log.Error().Err(err).Int64("booking_id", b.ID).Msg("notify price proposed")
	}

	return b, nil
}

// Agree records one side's acceptance of the current price. When both sides
// have agreed, the confirmed transition fires exactly once (the conditional
// update arbitrates concurrent calls) and the agreement document is warmed.
// Agreeing twice as the same role is a no-op.
func (s *Service) Agree(ctx context.Context, bookingID int64, role domain.Role, actorID int64) (*domain.Booking, error) {
	if !role.Valid() {
		return nil, ErrValidation
	}

	b, err := s.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.ParticipantID(role) != actorID {
		return nil, ErrForbidden
	}
	if b.Price == nil {
		// Nothing to agree to before the first proposal.
		return nil, ErrPrecondition
	}

	applied, err := s.bookings.SetAgreement(ctx, bookingID, role)
	if err != nil {
		return nil, err
	}
	if !applied {
		b, err = s.GetByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if b.AgreedBy(role) {
			// Idempotent repeat; state already reflects this agreement.
			return b, nil
		}
		return nil, ErrInvalidState
	}

	confirmed, err := s.bookings.ConfirmIfDualAgreed(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	b, err = s.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if confirmed {
		if _, derr := s.ensureAgreementDocument(ctx, b); derr != nil {
			// DownloadAgreement re-renders lazily, so this is recoverable.
			s.log.Error().Err(derr).Int64("booking_id", b.ID).Msg("warm agreement document")
		} else {
			b, err = s.GetByID(ctx, bookingID)
			if err != nil {
				return nil, err
			}
		}
	}

	s.broadcast.PublishBookingUpdate(b)
	if err := s.notifs.NotifyAgreement(ctx, b, role, confirmed); err != nil {
		s.log.Error().Err(err).Int64("booking_id", b.ID).Msg("notify agreement")
	}

	return b, nil
}

// DownloadAgreement returns the archived document reference, rendering it on
// first call once both parties have agreed.
func (s *Service) DownloadAgreement(ctx context.Context, bookingID int64) (string, error) {
	b, err := s.GetByID(ctx, bookingID)
	if err != nil {
		return "", err
	}
	return s.ensureAgreementDocument(ctx, b)
}

func (s *Service) ensureAgreementDocument(ctx context.Context, b *domain.Booking) (string, error) {
	if b.AgreementDocURL != nil {
		return *b.AgreementDocURL, nil
	}
	if !b.DualAgreed() {
		return "", ErrPrecondition
	}

	url, err := s.docs.RenderAndStore(ctx, b)
	if err != nil {
		return "", err
	}

	set, err := s.bookings.SetAgreementDoc(ctx, b.ID, url)
	if err != nil {
		return "", err
	}
	if !set {
		// Another caller archived first; theirs is the stable reference.
		current, err := s.GetByID(ctx, b.ID)
		if err != nil {
			return "", err
		}
		if current.AgreementDocURL != nil {
			return *current.AgreementDocURL, nil
		}
	}
	return url, nil
}

// Cancel moves the booking to cancelled. Only a party of the booking may
// cancel, and never once it is paid or completed.
func (s *Service) Cancel(ctx context.Context, bookingID, requesterID int64) (*domain.Booking, error) {
	b, err := s.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	role, ok := b.RoleOf(requesterID)
	if !ok {
		return nil, ErrForbidden
	}

	applied, err := s.bookings.Cancel(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrInvalidState
	}

	b, err = s.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	s.broadcast.PublishBookingUpdate(b)
	if err := s.notifs.NotifyBookingCancelled(ctx, b, role); err != nil {
		s.log.Error().Err(err).Int64("booking_id", b.ID).Msg("notify booking cancelled")
	}

	return b, nil
}

// RecordPayment is driven by a verified gateway callback: it transitions the
// booking to paid and opens the execution record. A repeated callback for an
// already paid booking returns the booking unchanged.
func (s *Service) RecordPayment(ctx context.Context, bookingID int64, amount float64, paymentID int64, gatewayRef string) (*domain.Booking, error) {
	applied, err := s.bookings.MarkPaid(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	b, err := s.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !applied {
		if b.Status == domain.BookingPaid {
			return b, nil
		}
		return nil, ErrInvalidState
	}

	// MarkPaid has already committed, so a failure here cannot roll the
	// payment back. Retry once; if that also fails, the booking stays paid
	// without an execution record and POST /executions is the repair path.
	if _, err := s.executions.CreateForPayment(ctx, b, paymentID); err != nil {
		if _, err2 := s.executions.CreateForPayment(ctx, b, paymentID); err2 != nil {
			s.log.Error().Err(err2).
				Int64("booking_id", b.ID).
				Int64("payment_id", paymentID).
				Msg("create execution record")
		}
	}

	s.log.Info().
		Int64("booking_id", b.ID).
		Float64("amount", amount).
		Str("gateway_ref", gatewayRef).
		Msg("payment recorded")

	s.broadcast.PublishBookingUpdate(b)
	if err := s.notifs.NotifyPaymentRecorded(ctx, b); err != nil {
		s.log.Error().Err(err).Int64("booking_id", b.ID).Msg("notify payment recorded")
	}

	return b, nil
}
