package bot

import (
	"context"
	"sync"
	"time"

	"nova-arcade/internal/idhash"
	"nova-arcade/internal/observability"
)

// SessionTTL is the lifetime of a play session token.
const SessionTTL = 5 * time.Minute

// PlaySession ties a session token to the user and game it was minted for.
type PlaySession struct {
	UserID  int64
	GameID  string
	Created time.Time
	Used    bool
}

// Sessions holds play session tokens in memory. Tokens are single use.
type Sessions struct {
	mu     sync.Mutex
	tokens map[string]*PlaySession
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions creates an empty session table.
func NewSessions() *Sessions {
	return &Sessions{
		tokens: make(map[string]*PlaySession),
		ttl:    SessionTTL,
		now:    time.Now,
	}
}

// Issue mints a token for userID playing gameID.
func (s *Sessions) Issue(userID int64, gameID string) (string, error) {
	nonce, err := idhash.RandomNonce()
	if err != nil {
		return "", err
	}
	now := s.now()
	token := idhash.ComputeSessionToken(userID, gameID, now.UnixMilli(), nonce)

	s.mu.Lock()
	s.tokens[token] = &PlaySession{UserID: userID, GameID: gameID, Created: now}
	s.mu.Unlock()

	observability.RecordSessionIssued()
	return token, nil
}

// Revoke drops a token that was issued but not handed out.
func (s *Sessions) Revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// Validate marks token used if it was minted for userID and gameID, is
// unused and has not expired.
func (s *Sessions) Validate(token string, userID int64, gameID string) bool {
	valid := s.validate(token, userID, gameID)
	observability.RecordSessionVerified(valid)
	return valid
}

func (s *Sessions) validate(token string, userID int64, gameID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.tokens[token]
	switch {
	case !ok, sess.Used:
		return false
	case sess.UserID != userID || sess.GameID != gameID:
		return false
	case s.now().Sub(sess.Created) > s.ttl:
		delete(s.tokens, token)
		return false
	}
	sess.Used = true
	return true
}

// Prune removes expired tokens and returns how many were dropped.
func (s *Sessions) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for token, sess := range s.tokens {
		if now.Sub(sess.Created) > s.ttl {
			delete(s.tokens, token)
			n++
		}
	}
	return n
}

// Len returns the number of live tokens.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// Run prunes expired tokens every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Prune()
		}
	}
}
