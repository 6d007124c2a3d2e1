// Package persist mirrors cart state into a durable store: Hydrate restores a
// cart at session start and Bind writes a snapshot after every mutation.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DNLCodess/ReezBlank/internal/domain"
	"github.com/DNLCodess/ReezBlank/internal/store"
)

// StorageKey is the fixed base key of persisted carts.
const StorageKey = "cart-storage"

const snapshotVersion = 0

var ErrMalformedSnapshot = errors.New("malformed cart snapshot")

type envelope struct {
	State   domain.CartState `json:"state"`
	Version int              `json:"version"`
}

// KeyFor returns the storage key of a session's cart.
func KeyFor(sessionID string) string {
	if sessionID == "" {
		return StorageKey
	}
	return StorageKey + ":" + sessionID
}

func Encode(state domain.CartState) ([]byte, error) {
	if state.Items == nil {
		state.Items = []domain.LineItem{}
	}
	data, err := json.Marshal(envelope{State: state, Version: snapshotVersion})
	if err != nil {
		return nil, fmt.Errorf("marshal cart snapshot failed: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot and restores the cart invariants. The stored total
// is discarded and recomputed from the items.
func Decode(data []byte) (domain.CartState, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return domain.CartState{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if env.Version != snapshotVersion {
		return domain.CartState{}, fmt.Errorf("%w: unsupported version %d", ErrMalformedSnapshot, env.Version)
	}
	return env.State.Normalize(), nil
}

// Hydrate loads the cart stored under key. An absent key yields an empty cart
// and no error. Read failures and malformed snapshots also yield an empty cart,
// together with the error so the caller can report it.
func Hydrate(ctx context.Context, kv store.Store, key string) (domain.CartState, error) {
	data, err := kv.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return domain.CartState{}, nil
	}
	if err != nil {
		return domain.CartState{}, fmt.Errorf("read cart snapshot %q: %w", key, err)
	}

	state, err := Decode(data)
	if err != nil {
		return domain.CartState{}, err
	}
	return state, nil
}
