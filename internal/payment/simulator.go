package payment

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/DNLCodess/ReezBlank/internal/domain"
	"go.uber.org/zap"
)

type StatusSource interface {
	Outcome() (Status, Refusal)
}

// RandomStatus approves SuccessPercent of charges and spreads the rest over
// the known refusals.
type RandomStatus struct {
	SuccessPercent int

	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomStatus(successPercent int) *RandomStatus {
	return &RandomStatus{
		SuccessPercent: successPercent,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *RandomStatus) Outcome() (Status, Refusal) {
	r.mu.Lock()
	n := r.rng.Intn(101)
	r.mu.Unlock()
	return calcStatus(n, r.SuccessPercent)
}

func calcStatus(n, successPercent int) (Status, Refusal) {
	if n < successPercent {
		return StatusSuccess, RefusalUnknown
	}
	reason := n - successPercent
	if reason == 0 || reason > int(RefusalIssuerUnavailable) {
		return StatusFailed, RefusalUnknown
	}
	return StatusFailed, Refusal(reason)
}

// AlwaysApprove is a StatusSource that never declines.
type AlwaysApprove struct{}

func (AlwaysApprove) Outcome() (Status, Refusal) {
	return StatusSuccess, RefusalUnknown
}

// Simulator stands in for a hosted gateway: it waits Delay, then approves or
// declines according to its StatusSource. No money moves.
type Simulator struct {
	status StatusSource
	delay  time.Duration
	log    *zap.Logger
	now    func() time.Time
}

func NewSimulator(status StatusSource, delay time.Duration, log *zap.Logger) *Simulator {
	return &Simulator{
		status: status,
		delay:  delay,
		log:    log,
		now:    time.Now,
	}
}

func (s *Simulator) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if !req.Amount.IsPositive() {
		return ChargeResult{}, ErrInvalidAmount
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ChargeResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	currency := req.Currency
	if currency == "" {
		currency = domain.Currency
	}
	status, refusal := s.status.Outcome()
	result := ChargeResult{
		Reference:     req.Reference,
		TransactionID: fmt.Sprintf("TXN-%d", s.now().UnixNano()),
		AmountMinor:   domain.MinorUnits(req.Amount),
		Currency:      currency,
		Status:        status,
		Refusal:       refusal,
	}

	if status != StatusSuccess {
		s.log.Info("charge declined",
			zap.String("reference", req.Reference),
			zap.Stringer("refusal", refusal))
		return result, &DeclinedError{Refusal: refusal}
	}

	s.log.Info("charge approved",
		zap.String("reference", req.Reference),
		zap.Int64("amount_minor", result.AmountMinor))
	return result, nil
}

// Refund always succeeds.
func (s *Simulator) Refund(_ context.Context, reference string) error {
	s.log.Info("charge refunded", zap.String("reference", reference))
	return nil
}
