package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/DNLCodess/ReezBlank/internal/breaker"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerGateway guards another Gateway with a circuit breaker. Declines are
// answers, not faults, and never trip it.
type BreakerGateway struct {
	next    Gateway
	charges *gobreaker.CircuitBreaker[ChargeResult]
	refunds *gobreaker.CircuitBreaker[struct{}]
}

func NewBreakerGateway(next Gateway, cfg breaker.Config, log *zap.Logger) *BreakerGateway {
	isSuccessful := func(err error) bool {
		return err == nil || errors.Is(err, ErrDeclined) || errors.Is(err, ErrInvalidAmount) ||
			errors.Is(err, context.Canceled)
	}
	return &BreakerGateway{
		next:    next,
		charges: breaker.New[ChargeResult]("payment-charge", cfg, log, isSuccessful),
		refunds: breaker.New[struct{}]("payment-refund", cfg, log, nil),
	}
}

func (g *BreakerGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	res, err := g.charges.Execute(func() (ChargeResult, error) {
		return g.next.Charge(ctx, req)
	})
	if breaker.IsOpen(err) {
		return ChargeResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res, err
}

func (g *BreakerGateway) Refund(ctx context.Context, reference string) error {
	_, err := g.refunds.Execute(func() (struct{}, error) {
		return struct{}{}, g.next.Refund(ctx, reference)
	})
	if breaker.IsOpen(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
