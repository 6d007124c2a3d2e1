package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DNLCodess/ReezBlank/internal/domain"
	"github.com/DNLCodess/ReezBlank/internal/store"
)

const sessionKeyPrefix = "auth-session:"

var ErrNoSession = errors.New("no signed-in user for this session")

// SessionStore remembers which user is signed in on a storefront session.
type SessionStore struct {
	kv  store.Store
	now func() time.Time
}

func NewSessionStore(kv store.Store) *SessionStore {
	return &SessionStore{kv: kv, now: time.Now}
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func (s *SessionStore) Save(ctx context.Context, sessionID string, sess domain.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.Set(ctx, sessionKey(sessionID), b); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load returns the stored auth session. An expired session is dropped and
// reported as ErrNoSession.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (domain.Session, error) {
	b, err := s.kv.Get(ctx, sessionKey(sessionID))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Session{}, ErrNoSession
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}
	if sess.Expired(s.now()) {
		_ = s.kv.Delete(ctx, sessionKey(sessionID))
		return domain.Session{}, ErrNoSession
	}
	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.kv.Delete(ctx, sessionKey(sessionID)); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
