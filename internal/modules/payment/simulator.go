package payment

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeclineCardNumber is always declined by the simulator.
const DeclineCardNumber = "4000000000000002"

// Simulator stands in for a card processor. It waits Latency, then declines
// DeclineCardNumber and a DeclineRate share of everything else.
type Simulator struct {
	Latency     time.Duration
	DeclineRate float64

	mu     sync.Mutex
	rng    *rand.Rand
	voided map[string]bool
	issued map[string]bool
}

func NewSimulator(latency time.Duration, declineRate float64, seed int64) *Simulator {
	return &Simulator{
		Latency:     latency,
		DeclineRate: declineRate,
		rng:         rand.New(rand.NewSource(seed)),
		voided:      make(map[string]bool),
		issued:      make(map[string]bool),
	}
}

func (s *Simulator) Authorize(ctx context.Context, amountCents int64, card Card) (Authorization, error) {
	if amountCents <= 0 {
		return Authorization{}, fmt.Errorf("authorize: non-positive amount %d", amountCents)
	}

	if s.Latency > 0 {
		t := time.NewTimer(s.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return Authorization{}, fmt.Errorf("authorize: %w", ctx.Err())
		case <-t.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.ReplaceAll(card.Number, " ", "") == DeclineCardNumber || s.rng.Float64() < s.DeclineRate {
		zap.L().Info("simulated decline", zap.Int64("amount_cents", amountCents), zap.String("card", card.Masked()))
		return Authorization{Approved: false, DeclineReason: DeclineMessage}, nil
	}

	ref := "sim_" + uuid.NewString()
	s.issued[ref] = true
	return Authorization{Approved: true, Reference: ref}, nil
}

// Void cancels an approved authorization. Voiding twice is a no-op.
func (s *Simulator) Void(_ context.Context, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.issued[reference] {
		return ErrUnknownReference
	}
	s.voided[reference] = true
	return nil
}

func (s *Simulator) Voided(reference string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voided[reference]
}
