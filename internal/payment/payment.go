// Package payment charges a checkout through a payment gateway.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrDeclined      = errors.New("payment declined")
	ErrUnavailable   = errors.New("payment gateway unavailable")
	ErrInvalidAmount = errors.New("charge amount must be positive")
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Refusal is the gateway's reason for a failed charge.
type Refusal int

const (
	RefusalUnknown Refusal = iota
	RefusalInsufficientFunds
	RefusalCardExpired
	RefusalSuspectedFraud
	RefusalLimitExceeded
	RefusalIssuerUnavailable
)

func (r Refusal) String() string {
	switch r {
	case RefusalInsufficientFunds:
		return "insufficient funds"
	case RefusalCardExpired:
		return "card expired"
	case RefusalSuspectedFraud:
		return "suspected fraud"
	case RefusalLimitExceeded:
		return "limit exceeded"
	case RefusalIssuerUnavailable:
		return "issuer unavailable"
	default:
		return "unknown reason"
	}
}

type ChargeRequest struct {
	Reference string
	Email     string
	Amount    decimal.Decimal
	Currency  string
}

type ChargeResult struct {
	Reference     string
	TransactionID string
	// AmountMinor is the charged amount in kobo.
	AmountMinor int64
	Currency    string
	Status      Status
	Refusal     Refusal
}

//go:generate mockgen -source=payment.go -destination=mock/payment.go

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	Refund(ctx context.Context, reference string) error
}

// NewReference returns the payment reference for a charge made at now.
func NewReference(now time.Time) string {
	return "reez_" + strconv.FormatInt(now.UnixMilli(), 10)
}

// DeclinedError carries the refusal of a declined charge.
type DeclinedError struct {
	Refusal Refusal
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("payment declined: %s", e.Refusal)
}

func (e *DeclinedError) Unwrap() error {
	return ErrDeclined
}
