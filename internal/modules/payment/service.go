package payment

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"taskbroker/internal/domain"
	"taskbroker/internal/repository"
)

// GatewayConfig carries the merchant credentials for the card gateway.
// Signatures are the gateway's md5 scheme: password1 signs outgoing links,
// password2 signs the server-to-server result callback.
type GatewayConfig struct {
	MerchantLogin string
	Password1     string
	Password2     string
	BaseURL       string
	ResultURL     string
	IsTest        bool
}

type Service struct {
	payments paymentRepo
	bookings bookingReader
	recorder paymentRecorder
	cfg      GatewayConfig
	log      zerolog.Logger
}

func NewService(payments paymentRepo, bookings bookingReader, recorder paymentRecorder, cfg GatewayConfig, log zerolog.Logger) *Service {
	return &Service{
		payments: payments,
		bookings: bookings,
		recorder: recorder,
		cfg:      cfg,
		log:      log.With().Str("module", "payment").Logger(),
	}
}

// InitPayment builds a signed gateway link for a confirmed booking. The
// booking's agreed price is the only amount the link can carry; the caller
// does not get to choose it.
func (s *Service) InitPayment(ctx context.Context, req InitPaymentRequest, actorID int64) (*InitPaymentResponse, error) {
	if s.cfg.MerchantLogin == "" || s.cfg.Password1 == "" || s.cfg.Password2 == "" {
		return nil, fmt.Errorf("payment gateway credentials are not configured")
	}

	b, err := s.bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("booking check failed: %w", err)
	}
	if b.ClientID != actorID {
		return nil, ErrForbidden
	}
	if b.Status != domain.BookingConfirmed || b.Price == nil {
		return nil, ErrInvalidState
	}

	if existing, err := s.payments.GetByBookingID(ctx, req.BookingID); err == nil {
		// One invoice per booking; re-init returns the existing link.
		return &InitPaymentResponse{
			InvID:      existing.InvID,
			BookingID:  existing.BookingID,
			OutSum:     existing.OutSum,
			PaymentURL: existing.PaymentURL,
			Status:     string(existing.Status),
		}, nil
	} else if !repository.IsNotFound(err) {
		return nil, err
	}

	outSum := strconv.FormatFloat(*b.Price, 'f', 2, 64)
	// Microsecond resolution keeps the id below 2^53, so JSON consumers that
	// decode numbers as float64 round-trip it unchanged.
	invID := time.Now().UnixMicro()
	shp := map[string]string{"booking_id": strconv.FormatInt(b.ID, 10)}
	signature := s.signatureForInit(outSum, invID, shp)

	u := url.Values{}
	u.Set("MerchantLogin", s.cfg.MerchantLogin)
	u.Set("OutSum", outSum)
	u.Set("InvId", strconv.FormatInt(invID, 10))
	u.Set("Description", req.Description)
	u.Set("SignatureValue", signature)
	if s.cfg.IsTest {
		u.Set("IsTest", "1")
	}
	if s.cfg.ResultURL != "" {
		u.Set("ResultURL", s.cfg.ResultURL)
	}
	for k, v := range shp {
		u.Set("Shp_"+k, v)
	}
	paymentURL := s.cfg.BaseURL + "?" + u.Encode()

	p := &domain.PaymentRecord{
		BookingID:  b.ID,
		Amount:     *b.Price,
		OutSum:     outSum,
		InvID:      invID,
		Status:     domain.PaymentPending,
		PaymentURL: paymentURL,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("save payment failed: %w", err)
	}

	s.log.Info().Int64("booking_id", b.ID).Int64("inv_id", invID).Msg("payment link issued")
	return &InitPaymentResponse{
		InvID:      p.InvID,
		BookingID:  p.BookingID,
		OutSum:     p.OutSum,
		PaymentURL: p.PaymentURL,
		Status:     string(p.Status),
	}, nil
}

// HandleResultCallback processes the gateway's server-to-server confirmation.
// The happy path ends with the booking marked paid and an execution record
// opened; a repeated callback for the same invoice is acknowledged without
// side effects.
func (s *Service) HandleResultCallback(ctx context.Context, outSum string, invID int64, signature string, shp map[string]string, rawBody string) (string, error) {
	if !strings.EqualFold(signature, s.signatureForResult(outSum, invID, shp)) {
		s.log.Warn().Int64("inv_id", invID).Msg("callback signature rejected")
		return "", ErrInvalidSignature
	}

	p, err := s.payments.GetByInvID(ctx, invID)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	if !amountEqual(outSum, p.OutSum) {
		s.log.Warn().Int64("inv_id", invID).Str("callback_out_sum", outSum).Str("expected_out_sum", p.OutSum).Msg("callback amount rejected")
		return "", ErrAmountMismatch
	}

	gatewayRef := shp["ref"]
	changed, err := s.payments.MarkPaidIdempotent(ctx, invID, gatewayRef, rawBody, time.Now().UTC())
	if err != nil {
		return "", err
	}
	if !changed {
		s.log.Info().Int64("inv_id", invID).Msg("callback replay, invoice already paid")
		return "OK" + strconv.FormatInt(invID, 10), nil
	}

	if _, err := s.recorder.RecordPayment(ctx, p.BookingID, p.Amount, p.ID, gatewayRef); err != nil {
		s.log.Error().Err(err).Int64("booking_id", p.BookingID).Msg("failed to record payment on booking")
		return "", err
	}

	s.log.Info().Int64("inv_id", invID).Int64("booking_id", p.BookingID).Msg("payment captured")
	return "OK" + strconv.FormatInt(invID, 10), nil
}

func (s *Service) GetByBooking(ctx context.Context, bookingID int64, actorID int64) (*domain.PaymentRecord, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if _, ok := b.RoleOf(actorID); !ok {
		return nil, ErrForbidden
	}
	p, err := s.payments.GetByBookingID(ctx, bookingID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) signatureForInit(outSum string, invID int64, shp map[string]string) string {
	parts := []string{s.cfg.MerchantLogin, outSum, strconv.FormatInt(invID, 10), s.cfg.Password1}
	parts = append(parts, flattenShpParams(shp)...)
	return md5Hex(strings.Join(parts, ":"))
}

func (s *Service) signatureForResult(outSum string, invID int64, shp map[string]string) string {
	parts := []string{outSum, strconv.FormatInt(invID, 10), s.cfg.Password2}
	parts = append(parts, flattenShpParams(shp)...)
	return md5Hex(strings.Join(parts, ":"))
}

func flattenShpParams(shp map[string]string) []string {
	keys := make([]string, 0, len(shp))
	for k := range shp {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, "Shp_"+k+"="+shp[k])
	}
	return out
}

// amountEqual compares money strings numerically, so "100" and "100.00"
// agree.
func amountEqual(a, b string) bool {
	ar, ok := new(big.Rat).SetString(strings.TrimSpace(a))
	if !ok {
		return false
	}
	br, ok := new(big.Rat).SetString(strings.TrimSpace(b))
	if !ok {
		return false
	}
	return ar.Cmp(br) == 0
}

func md5Hex(s string) string {
	h := md5.Sum([]byte(s))
	return strings.ToUpper(hex.EncodeToString(h[:]))
}
