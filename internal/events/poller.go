package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

//go:generate mockgen -source=poller.go -destination=mock/poller.go

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type CartClearer interface {
	ClearIfLoaded(sessionID string) bool
}

// NewKafkaReader joins groupID, which must be unique per replica so that
// every replica sees every event. Only events published after start are read.
func NewKafkaReader(groupID string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       Topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MaxBytes:    10e6, // 10MB
	})
}

// Poller empties the in-memory cart of a session whose order was placed on
// another replica.
type Poller struct {
	reader  Reader
	carts   CartClearer
	origin  string
	log     *zap.Logger
	backoff time.Duration
}

func NewPoller(reader Reader, carts CartClearer, origin string, log *zap.Logger) *Poller {
	return &Poller{
		reader:  reader,
		carts:   carts,
		origin:  origin,
		log:     log,
		backoff: time.Second,
	}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Warn("order event poll failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.backoff):
			}
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Warn("error closing reader", zap.Error(err))
	}
}

func (p *Poller) poll(ctx context.Context) error {
	m, err := p.reader.FetchMessage(ctx)
	if err != nil {
		return err
	}

	p.handle(m)

	return p.reader.CommitMessages(ctx, m)
}

// handle never fails: a bad message is logged and committed.
func (p *Poller) handle(m kafka.Message) {
	if header(m, headerEventType) != EventTypeOrderPlaced {
		return
	}
	if header(m, headerOrigin) == p.origin {
		return
	}

	var ev OrderPlaced
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		p.log.Warn("error parsing order event", zap.Error(err), zap.Int64("offset", m.Offset))
		return
	}
	if ev.SessionID == "" {
		p.log.Warn("order event without session", zap.String("order_id", ev.OrderID))
		return
	}

	if p.carts.ClearIfLoaded(ev.SessionID) {
		p.log.Info("cart cleared for order placed elsewhere",
			zap.String("session_id", ev.SessionID),
			zap.String("order_id", ev.OrderID))
	}
}
