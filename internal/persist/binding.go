package persist

import (
	"context"
	"sync"
	"time"

	"github.com/DNLCodess/ReezBlank/internal/domain"
	"github.com/DNLCodess/ReezBlank/internal/store"
	"go.uber.org/zap"
)

const DefaultWriteTimeout = 2 * time.Second

// Source is anything that reports state after each mutation; *cart.Manager
// satisfies it.
type Source interface {
	Subscribe(fn func(domain.CartState)) (unsubscribe func())
}

// Binding writes snapshots of a Source to a store on a background worker.
// Notifications only replace the pending snapshot, so mutators never wait on
// I/O and a slow store only ever sees the latest state. Write failures are
// logged and dropped; the in-memory cart stays authoritative.
type Binding struct {
	kv      store.Store
	key     string
	log     *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending *domain.CartState

	wake        chan struct{}
	stop        chan struct{}
	done        chan struct{}
	unsubscribe func()
	closeOnce   sync.Once
}

func Bind(src Source, kv store.Store, key string, log *zap.Logger, timeout time.Duration) *Binding {
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	b := &Binding{
		kv:      kv,
		key:     key,
		log:     log,
		timeout: timeout,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go b.run()
	b.unsubscribe = src.Subscribe(b.enqueue)
	return b
}

func (b *Binding) enqueue(state domain.CartState) {
	b.mu.Lock()
	b.pending = &state
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Binding) run() {
	defer close(b.done)
	for {
		select {
		case <-b.wake:
			b.flush()
		case <-b.stop:
			b.flush()
			return
		}
	}
}

func (b *Binding) flush() {
	b.mu.Lock()
	state := b.pending
	b.pending = nil
	b.mu.Unlock()

	if state == nil {
		return
	}

	data, err := Encode(*state)
	if err != nil {
		b.log.Error("cart snapshot encode failed", zap.String("key", b.key), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.kv.Set(ctx, b.key, data); err != nil {
		b.log.Warn("cart snapshot write failed", zap.String("key", b.key), zap.Error(err))
	}
}

// Close stops listening, writes any pending snapshot and waits for the worker
// until ctx is done.
func (b *Binding) Close(ctx context.Context) error {
	b.closeOnce.Do(func() {
		b.unsubscribe()
		close(b.stop)
	})
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
