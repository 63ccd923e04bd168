// Package auth signs wallets in: the server hands out a one-time
// challenge, the wallet signs it, and a verified signature is exchanged
// for an HS256 session token carrying the wallet address.
package auth

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"nova-arcade/internal/observability"
	"nova-arcade/internal/solana"
)

// ChallengeTTL is how long an issued challenge can be signed.
const ChallengeTTL = 5 * time.Minute

// DefaultSessionTTL is the session token lifetime.
const DefaultSessionTTL = 24 * time.Hour

const noncePrefix = "Nonce: "

var (
	// ErrUnknownChallenge is returned for messages that carry no live nonce.
	ErrUnknownChallenge = errors.New("challenge unknown or expired")

	// ErrInvalidSignature is returned when the signature does not verify.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidToken is returned for malformed, forged or expired tokens.
	ErrInvalidToken = errors.New("invalid session token")
)

// Challenge is a message for the wallet to sign.
type Challenge struct {
	Nonce     string `json:"nonce"`
	Message   string `json:"message"`
	ExpiresAt int64  `json:"expiresAt"` // ms
}

// Claims are the session token claims.
type Claims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}

// Service issues challenges and session tokens. Challenges live in
// memory and are single use.
type Service struct {
	secret []byte
	ttl    time.Duration
	log    slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	pending   map[string]time.Time    // nonce -> expiry
	byAddress map[string]addressNonce // address -> nonce of the bare-nonce flow
}

type addressNonce struct {
	nonce   string
	expires time.Time
}

// Option configures Service.
type Option func(*Service)

// WithSessionTTL sets the session token lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log slog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a service signing tokens with secret.
func NewService(secret []byte, opts ...Option) *Service {
	s := &Service{
		secret:  secret,
		ttl:     DefaultSessionTTL,
		log:     slog.Disabled,
		now:     time.Now,
		pending:   make(map[string]time.Time),
		byAddress: make(map[string]addressNonce),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Challenge issues a new sign-in challenge.
func (s *Service) Challenge() Challenge {
	now := s.now()
	nonce := "nova-" + uuid.NewString()
	expires := now.Add(ChallengeTTL)

	s.mu.Lock()
	for n, exp := range s.pending {
		if !now.Before(exp) {
			delete(s.pending, n)
		}
	}
	s.pending[nonce] = expires
	s.mu.Unlock()

	return Challenge{
		Nonce:     nonce,
		Message:   ChallengeMessage(nonce, now),
		ExpiresAt: expires.UnixMilli(),
	}
}

// ChallengeMessage formats the text a wallet signs.
func ChallengeMessage(nonce string, issued time.Time) string {
	return fmt.Sprintf("Sign in to Nova Arcade Glitch\nIssued: %d\n%s%s", issued.UnixMilli(), noncePrefix, nonce)
}

// Verify checks that signature is publicKey's signature over a message
// issued by Challenge and returns a session token. The challenge is
// consumed only by a valid signature; a failed attempt leaves it live.
func (s *Service) Verify(publicKey, signature, message string) (string, error) {
	pk, err := solana.ParsePublicKey(publicKey)
	if err != nil {
		return "", fmt.Errorf("public key: %w", err)
	}
	sig, err := decodeSignature(signature)
	if err != nil {
		return "", err
	}

	nonce := nonceFromMessage(message)
	if !s.live(nonce) {
		return "", ErrUnknownChallenge
	}
	if !ed25519.Verify(pk[:], []byte(message), sig) {
		s.log.Debugf("signature from %s does not verify", pk)
		return "", ErrInvalidSignature
	}
	// a concurrent valid attempt may have won the nonce
	if !s.consume(nonce) {
		return "", ErrUnknownChallenge
	}

	token, err := s.IssueToken(pk.String())
	if err != nil {
		return "", err
	}
	s.log.Infof("wallet %s signed in", pk)
	return token, nil
}

// AddressNonce issues a nonce bound to address for clients that sign the
// bare nonce. A new nonce replaces the previous one.
func (s *Service) AddressNonce(address string) (string, time.Time, error) {
	pk, err := solana.ParsePublicKey(address)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("address: %w", err)
	}
	nonce := "nova-" + uuid.NewString()
	expires := s.now().Add(ChallengeTTL)

	s.mu.Lock()
	s.byAddress[pk.String()] = addressNonce{nonce: nonce, expires: expires}
	s.mu.Unlock()
	return nonce, expires, nil
}

// VerifyAddress checks signature over the nonce issued to address by
// AddressNonce and returns a session token. The nonce is cleared only
// by a valid signature.
func (s *Service) VerifyAddress(address, signature string) (string, error) {
	pk, err := solana.ParsePublicKey(address)
	if err != nil {
		return "", fmt.Errorf("address: %w", err)
	}
	sig, err := decodeSignature(signature)
	if err != nil {
		return "", err
	}
	key := pk.String()

	s.mu.Lock()
	an, ok := s.byAddress[key]
	if ok && !s.now().Before(an.expires) {
		delete(s.byAddress, key)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return "", ErrUnknownChallenge
	}

	if !ed25519.Verify(pk[:], []byte(an.nonce), sig) {
		s.log.Debugf("nonce signature from %s does not verify", pk)
		return "", ErrInvalidSignature
	}

	s.mu.Lock()
	cur, ok := s.byAddress[key]
	if ok && cur.nonce == an.nonce {
		delete(s.byAddress, key)
	}
	s.mu.Unlock()
	if !ok || cur.nonce != an.nonce {
		return "", ErrUnknownChallenge
	}

	token, err := s.IssueToken(key)
	if err != nil {
		return "", err
	}
	s.log.Infof("wallet %s signed in", pk)
	return token, nil
}

// IssueToken signs a session token for address.
func (s *Service) IssueToken(address string) (string, error) {
	now := s.now()
	claims := Claims{
		Address: address,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   address,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	observability.RecordSessionIssued()
	return token, nil
}

// ParseToken validates a session token and returns its address.
func (s *Service) ParseToken(token string) (string, error) {
	// expiry is checked below against s.now
	parser := jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	claims := &Claims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	switch {
	case err != nil:
		err = fmt.Errorf("%w: %v", ErrInvalidToken, err)
	case !claims.VerifyExpiresAt(s.now(), true):
		err = fmt.Errorf("%w: token expired", ErrInvalidToken)
	case claims.Address == "":
		err = fmt.Errorf("%w: missing address", ErrInvalidToken)
	}
	if err != nil {
		observability.RecordSessionVerified(false)
		return "", err
	}
	observability.RecordSessionVerified(true)
	return claims.Address, nil
}

// live reports whether nonce was issued and has not expired. Expired
// nonces are dropped.
func (s *Service) live(nonce string) bool {
	if nonce == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.pending[nonce]
	if !ok {
		return false
	}
	if !s.now().Before(exp) {
		delete(s.pending, nonce)
		return false
	}
	return true
}

func (s *Service) consume(nonce string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.pending[nonce]
	if !ok {
		return false
	}
	delete(s.pending, nonce)
	return s.now().Before(exp)
}

func nonceFromMessage(message string) string {
	i := strings.LastIndex(message, noncePrefix)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(message[i+len(noncePrefix):])
}

// decodeSignature accepts base58, or hex as sent by some wallet adapters.
func decodeSignature(s string) ([]byte, error) {
	if b, err := base58.Decode(s); err == nil && len(b) == ed25519.SignatureSize {
		return b, nil
	}
	if b, err := hex.DecodeString(s); err == nil && len(b) == ed25519.SignatureSize {
		return b, nil
	}
	return nil, fmt.Errorf("%w: expected %d-byte base58 signature", ErrInvalidSignature, ed25519.SignatureSize)
}
