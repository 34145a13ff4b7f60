package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pcbooking/internal/domain"
	"pcbooking/internal/modules/payment"
	"pcbooking/internal/repository"

	"go.uber.org/zap"
)

// ledgerGrace keeps ledger records a little past the token's own lifetime.
const ledgerGrace = time.Minute

type Options struct {
	Window         time.Duration
	PaymentTimeout time.Duration
	Now            func() time.Time
}

// Service runs the customer reservation flow over stateless requests. The
// session itself lives in the token; the ledger only remembers locks and
// terminal outcomes.
type Service struct {
	store    BookingStore
	adapter  payment.Adapter
	notifier Notifier
	tokens   *TokenCodec
	ledger   Ledger
	cfg      MachineConfig
	log      *zap.Logger
}

func NewService(store BookingStore, adapter payment.Adapter, notifier Notifier, tokens *TokenCodec, ledger Ledger, opts Options) *Service {
	cfg := MachineConfig{
		Window:         opts.Window,
		PaymentTimeout: opts.PaymentTimeout,
		Now:            opts.Now,
	}.withDefaults()
	if ledger == nil {
		ledger = NewMemoryLedger(cfg.Now)
	}
	return &Service{
		store:    store,
		adapter:  adapter,
		notifier: notifier,
		tokens:   tokens,
		ledger:   ledger,
		cfg:      cfg,
		log:      zap.L().Named("reservation"),
	}
}

// Open moves a selection into payment and returns the reservation token.
// A slot already taken is rejected early; the commit remains the arbiter.
func (s *Service) Open(ctx context.Context, sel Selection) (*OpenResult, error) {
	m := NewMachine(s.cfg)
	sess, err := m.Proceed(sel)
	if err != nil {
		return nil, err
	}

	if !sess.IsRush {
		existing, err := s.store.GetByPrefix(ctx, domain.DatePrefix(sess.Date))
		if err != nil {
			return nil, fmt.Errorf("load bookings: %w", err)
		}
		candidate := domain.Booking{Date: sess.Date, Time: sess.Time, Status: domain.BookingConfirmed}
		if !domain.IsClaimable(existing, candidate) {
			return nil, repository.ErrSlotTaken
		}
	}

	token, err := s.tokens.Encode(sess)
	if err != nil {
		return nil, err
	}

	s.log.Info("reservation opened",
		zap.String("session_id", sess.ID),
		zap.String("service", string(sess.ServiceType)),
		zap.Bool("rush", sess.IsRush),
		zap.Time("expires_at", sess.ExpiresAt),
	)
	return &OpenResult{Token: token, Session: newSessionView(sess, m.State(), s.cfg.Now())}, nil
}

// Current returns the session behind token, re-checking expiry.
func (s *Service) Current(ctx context.Context, token string) (*SessionView, error) {
	m, err := s.resume(ctx, token)
	if err != nil {
		return nil, err
	}
	view := newSessionView(m.Session(), m.State(), s.cfg.Now())
	return &view, nil
}

// Watch ticks the session behind token until it expires or ctx ends.
func (s *Service) Watch(ctx context.Context, token string, ticks <-chan time.Time, onTick func(time.Duration)) (State, error) {
	m, err := s.resume(ctx, token)
	if err != nil {
		return "", err
	}
	sessionID := m.Session().ID
	st := m.Watch(ctx, ticks, onTick)
	if st == StateExpired {
		s.finish(ctx, sessionID, OutcomeExpired)
	}
	return st, nil
}

// Pay submits one payment attempt for the session behind token.
func (s *Service) Pay(ctx context.Context, token string, card payment.Card) (*Outcome, error) {
	m, err := s.resume(ctx, token)
	if err != nil {
		return nil, err
	}
	sess := m.Session()

	ok, err := s.ledger.Acquire(ctx, sess.ID, s.lockTTL())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSubmissionInFlight
	}
	defer func() {
		if err := s.ledger.Release(context.WithoutCancel(ctx), sess.ID); err != nil {
			s.log.Warn("ledger release failed", zap.String("session_id", sess.ID), zap.Error(err))
		}
	}()

	// a finished submission may have landed between resume and Acquire
	if err := s.checkLedger(ctx, sess.ID); err != nil {
		return nil, err
	}

	out, err := m.Submit(ctx, card, s.adapter, s.store)
	out.SessionID = sess.ID

	switch {
	case err == nil:
		s.finish(ctx, sess.ID, OutcomeSuccess)
		if s.notifier != nil {
			s.notifier.Notify(*out.Booking)
		}
		s.log.Info("booking confirmed",
			zap.String("session_id", sess.ID),
			zap.String("booking_id", out.Booking.ID),
			zap.Int64("total_cents", out.Booking.TotalCents),
		)
	case errors.Is(err, ErrSessionExpired):
		s.finish(ctx, sess.ID, OutcomeExpired)
	case errors.Is(err, ErrCommitConflict):
		s.finish(ctx, sess.ID, OutcomeConflict)
	case errors.Is(err, ErrOutcomeUnknown):
		s.finish(ctx, sess.ID, OutcomeUnknown)
	}
	return out, err
}

// Cancel destroys the session behind token. Cancelling while a payment is
// being submitted is refused.
func (s *Service) Cancel(ctx context.Context, token string) error {
	m, err := s.resume(ctx, token)
	if err != nil {
		return err
	}
	sessionID := m.Session().ID

	ok, err := s.ledger.Acquire(ctx, sessionID, s.lockTTL())
	if err != nil {
		return err
	}
	if !ok {
		return ErrSubmissionInFlight
	}
	defer func() { _ = s.ledger.Release(context.WithoutCancel(ctx), sessionID) }()

	if err := m.Cancel(); err != nil {
		return err
	}
	s.finish(ctx, sessionID, OutcomeCancelled)
	s.log.Info("reservation cancelled", zap.String("session_id", sessionID))
	return nil
}

func (s *Service) resume(ctx context.Context, token string) (*Machine, error) {
	sess, err := s.tokens.Decode(token)
	if err != nil {
		return nil, err
	}
	if err := s.checkLedger(ctx, sess.ID); err != nil {
		return nil, err
	}

	m := ResumeMachine(s.cfg, sess)
	if m.Tick() == StateExpired {
		s.finish(ctx, sess.ID, OutcomeExpired)
		return nil, ErrSessionExpired
	}
	return m, nil
}

func (s *Service) checkLedger(ctx context.Context, sessionID string) error {
	outcome, err := s.ledger.Outcome(ctx, sessionID)
	if err != nil {
		return err
	}
	switch outcome {
	case "":
		return nil
	case OutcomeExpired:
		return ErrSessionExpired
	case OutcomeConflict, OutcomeUnknown:
		return ErrSessionLocked
	default:
		return ErrSessionClosed
	}
}

func (s *Service) finish(ctx context.Context, sessionID, outcome string) {
	if err := s.ledger.Finish(context.WithoutCancel(ctx), sessionID, outcome, s.cfg.Window+ledgerGrace); err != nil {
		s.log.Error("ledger finish failed",
			zap.String("session_id", sessionID),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
	}
}

func (s *Service) lockTTL() time.Duration {
	if s.cfg.PaymentTimeout > 0 {
		return s.cfg.PaymentTimeout + ledgerGrace
	}
	return s.cfg.Window
}
