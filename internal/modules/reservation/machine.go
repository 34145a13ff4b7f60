package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pcbooking/internal/domain"
	"pcbooking/internal/modules/payment"
	"pcbooking/internal/pkg/validator"
	"pcbooking/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type MachineConfig struct {
	Window         time.Duration
	PaymentTimeout time.Duration
	Now            func() time.Time
}

func (c MachineConfig) withDefaults() MachineConfig {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Outcome is the result of one payment submission.
type Outcome struct {
	SessionID      string          `json:"sessionId"`
	State          State           `json:"state"`
	Failure        FailureReason   `json:"failure,omitempty"`
	Booking        *domain.Booking `json:"booking,omitempty"`
	PaymentRef     string          `json:"paymentRef,omitempty"`
	DeclineReason  string          `json:"declineReason,omitempty"`
	RefundRequired bool            `json:"refundRequired,omitempty"`
}

// Machine drives one reservation session from selection to a terminal state.
// It is not safe for concurrent use; concurrent submissions of the same
// session are serialized by the ledger.
type Machine struct {
	cfg     MachineConfig
	state   State
	failure FailureReason
	session *Session
	log     *zap.Logger
}

func NewMachine(cfg MachineConfig) *Machine {
	return &Machine{
		cfg:   cfg.withDefaults(),
		state: StateSelection,
		log:   zap.L().Named("reservation"),
	}
}

// ResumeMachine rebuilds a machine in the payment state from a decoded session.
func ResumeMachine(cfg MachineConfig, s *Session) *Machine {
	m := NewMachine(cfg)
	m.session = s
	m.state = StatePayment
	return m
}

func (m *Machine) State() State { return m.state }

func (m *Machine) Failure() FailureReason { return m.failure }

// Session returns the live session, nil once it was discarded.
func (m *Machine) Session() *Session { return m.session }

func (m *Machine) Remaining() time.Duration {
	if m.session == nil {
		return 0
	}
	return m.session.Remaining(m.cfg.Now())
}

// Proceed validates the selection and opens a session with a fresh window.
func (m *Machine) Proceed(sel Selection) (*Session, error) {
	if m.state != StateSelection {
		return nil, fmt.Errorf("%w: proceed from %s", ErrInvalidTransition, m.state)
	}

	sel.Date = strings.TrimSpace(sel.Date)
	sel.Time = strings.TrimSpace(sel.Time)
	sel.Contact.Handle = strings.TrimSpace(sel.Contact.Handle)
	sel.Contact.Email = strings.TrimSpace(sel.Contact.Email)

	now := m.cfg.Now()

	fields := validator.Validate(sel)
	if fields == nil {
		fields = make(map[string]string)
	}
	if !sel.IsRush {
		if _, bad := fields["date"]; !bad && !domain.WithinBookingWindow(sel.Date, now) {
			fields["date"] = fmt.Sprintf("must be a date within the next %d days", domain.BookingWindowDays)
		}
		if _, bad := fields["time"]; !bad && !domain.IsValidSlot(sel.Time) {
			fields["time"] = "must be one of the hourly slots"
		}
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	date, slot := sel.Date, sel.Time
	if sel.IsRush {
		date, slot = now.Format(domain.DateLayout), domain.RushTime
	}

	m.session = &Session{
		ID:          uuid.NewString(),
		ServiceType: sel.ServiceType,
		Date:        date,
		Time:        slot,
		IsRush:      sel.IsRush,
		Contact:     domain.Contact{Handle: sel.Contact.Handle, Email: sel.Contact.Email},
		TotalCents:  domain.PriceCents(sel.ServiceType, sel.IsRush),
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.cfg.Window),
	}
	m.state = StatePayment
	m.failure = ""
	return m.session, nil
}

// Tick expires and discards the session once its window has elapsed.
func (m *Machine) Tick() State {
	if m.state != StatePayment && m.state != StateFailed {
		return m.state
	}
	if m.session != nil && m.session.Expired(m.cfg.Now()) {
		m.state = StateExpired
		m.session = nil
	}
	return m.state
}

// Watch calls Tick on every value from ticks until the session leaves the
// payment phase, ctx ends or ticks is closed. onTick, if set, receives the
// remaining time after each tick. It returns the last observed state.
func (m *Machine) Watch(ctx context.Context, ticks <-chan time.Time, onTick func(time.Duration)) State {
	for {
		st := m.Tick()
		if st != StatePayment && st != StateFailed {
			return st
		}
		if onTick != nil {
			onTick(m.Remaining())
		}
		select {
		case <-ctx.Done():
			return m.state
		case _, ok := <-ticks:
			if !ok {
				return m.state
			}
		}
	}
}

// Cancel destroys the session and returns to selection.
func (m *Machine) Cancel() error {
	switch m.state {
	case StateSelection, StatePayment, StateFailed:
		m.session = nil
		m.state = StateSelection
		m.failure = ""
		return nil
	default:
		return fmt.Errorf("%w: cancel from %s", ErrInvalidTransition, m.state)
	}
}

// Submit runs one payment attempt: local card checks, a single adapter call
// and the conditional commit. Declines and invalid cards leave the session
// retryable; a conflict after approval or an unknown outcome locks it.
func (m *Machine) Submit(ctx context.Context, card payment.Card, adapter payment.Adapter, store BookingStore) (*Outcome, error) {
	if m.Tick() == StateExpired {
		return m.outcome(), ErrSessionExpired
	}
	switch m.state {
	case StatePayment:
	case StateFailed:
		if !m.failure.Retryable() {
			return m.outcome(), ErrSessionLocked
		}
	default:
		return m.outcome(), fmt.Errorf("%w: submit from %s", ErrInvalidTransition, m.state)
	}

	s := m.session
	if err := payment.ValidateCard(card, m.cfg.Now()); err != nil {
		m.fail(FailureInvalidCard)
		return m.outcome(), err
	}

	actx := ctx
	if m.cfg.PaymentTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, m.cfg.PaymentTimeout)
		defer cancel()
	}

	auth, err := adapter.Authorize(actx, s.TotalCents, card)
	if err != nil {
		m.fail(FailureUnknown)
		m.log.Error("payment outcome unknown, reconcile manually",
			zap.String("session_id", s.ID),
			zap.Int64("amount_cents", s.TotalCents),
			zap.String("card", card.Masked()),
			zap.Error(err),
		)
		return m.outcome(), fmt.Errorf("%w: %v", ErrOutcomeUnknown, err)
	}
	if !auth.Approved {
		m.fail(FailureDeclined)
		out := m.outcome()
		out.DeclineReason = auth.DeclineReason
		if out.DeclineReason == "" {
			out.DeclineReason = payment.DeclineMessage
		}
		return out, ErrPaymentDeclined
	}

	b := m.newBooking(auth.Reference)
	if err := store.Put(ctx, b); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			m.fail(FailureConflict)
			out := m.outcome()
			out.PaymentRef = auth.Reference
			out.RefundRequired = !m.void(ctx, adapter, auth.Reference)
			m.log.Error("slot taken after payment approval",
				zap.String("session_id", s.ID),
				zap.String("payment_ref", auth.Reference),
				zap.String("slot", b.Date+" "+b.Time),
				zap.Bool("refund_required", out.RefundRequired),
			)
			return out, ErrCommitConflict
		}

		m.fail(FailureUnknown)
		out := m.outcome()
		out.PaymentRef = auth.Reference
		out.RefundRequired = true
		m.log.Error("booking commit failed after payment approval",
			zap.String("session_id", s.ID),
			zap.String("payment_ref", auth.Reference),
			zap.Error(err),
		)
		return out, fmt.Errorf("%w: commit: %v", ErrOutcomeUnknown, err)
	}

	m.state = StateSuccess
	m.failure = ""
	out := m.outcome()
	out.Booking = b
	out.PaymentRef = auth.Reference
	return out, nil
}

func (m *Machine) newBooking(ref string) *domain.Booking {
	s := m.session
	now := m.cfg.Now()
	date, slot := s.Date, s.Time
	if s.IsRush {
		date, slot = now.Format(domain.DateLayout), domain.RushTime
	}
	return &domain.Booking{
		ID:          domain.NewBookingID(date, slot, now),
		ServiceType: s.ServiceType,
		Date:        date,
		Time:        slot,
		IsRush:      s.IsRush,
		Contact:     s.Contact,
		TotalCents:  s.TotalCents,
		PaymentRef:  ref,
		Status:      domain.BookingConfirmed,
		CreatedAt:   now,
	}
}

func (m *Machine) void(ctx context.Context, adapter payment.Adapter, ref string) bool {
	v, ok := adapter.(payment.Voider)
	if !ok || ref == "" {
		return false
	}
	if err := v.Void(ctx, ref); err != nil {
		m.log.Warn("void failed", zap.String("payment_ref", ref), zap.Error(err))
		return false
	}
	return true
}

func (m *Machine) fail(reason FailureReason) {
	m.state = StateFailed
	m.failure = reason
}

func (m *Machine) outcome() *Outcome {
	out := &Outcome{State: m.state, Failure: m.failure}
	if m.session != nil {
		out.SessionID = m.session.ID
	}
	return out
}
