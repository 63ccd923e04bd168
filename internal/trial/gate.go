// Package trial implements the free-play gate: token holders play
// without limit, everyone else gets a fixed number of trials per rolling
// 24-hour window.
package trial

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"
	"golang.org/x/sync/errgroup"

	"nova-arcade/internal/activity"
	"nova-arcade/internal/domain"
	"nova-arcade/internal/observability"
	"nova-arcade/internal/storage"
)

// MaxGameHistory bounds the per-record play history.
const MaxGameHistory = 50

// ErrNoIdentity is returned when neither a wallet nor a device ID is known.
var ErrNoIdentity = errors.New("no wallet or device identity")

// Identity names the player. The wallet address wins over the device ID.
type Identity struct {
	Wallet        string
	DeviceID      string
	IPFingerprint string
}

// Key returns the storage identity.
func (id Identity) Key() string {
	if id.Wallet != "" {
		return id.Wallet
	}
	return id.DeviceID
}

// TokenChecker reports token-holder status for a wallet.
type TokenChecker interface {
	CheckTokenBalance(ctx context.Context, owner string) domain.TokenGateStatus
}

// Gate decides whether an identity may play.
type Gate struct {
	store    storage.TrialStore
	tokens   TokenChecker
	activity *activity.Recorder
	log      slog.Logger
	now      func() time.Time

	// mu serializes read-modify-write of trial records
	mu sync.Mutex
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger.
func WithLogger(log slog.Logger) Option {
	return func(g *Gate) {
		g.log = log
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// WithActivity records consumed trials to the activity feed.
func WithActivity(r *activity.Recorder) Option {
	return func(g *Gate) {
		g.activity = r
	}
}

// NewGate creates a gate. tokens may be nil, in which case nobody is
// treated as a holder.
func NewGate(store storage.TrialStore, tokens TokenChecker, opts ...Option) *Gate {
	g := &Gate{
		store:  store,
		tokens: tokens,
		log:    slog.Disabled,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckTrialStatus loads token and trial state in parallel and combines
// them. Trial store failures grant full trials.
func (g *Gate) CheckTrialStatus(ctx context.Context, id Identity) (domain.TrialStatus, error) {
	if id.Key() == "" {
		return domain.TrialStatus{}, ErrNoIdentity
	}

	var (
		token     domain.TokenGateStatus
		remaining int
	)
	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		token = g.tokenStatus(egctx, id.Wallet)
		return nil
	})
	eg.Go(func() error {
		remaining = g.remaining(egctx, id.Key())
		return nil
	})
	if err := eg.Wait(); err != nil {
		return domain.TrialStatus{}, err
	}

	status := buildStatus(token, remaining)
	observability.RecordTrialDecision(string(status.AccessLevel))
	return status, nil
}

// CanPlay reports whether the identity holds tokens or has trials left.
func (g *Gate) CanPlay(ctx context.Context, id Identity) (bool, error) {
	status, err := g.CheckTrialStatus(ctx, id)
	if err != nil {
		return false, err
	}
	return status.CanPlay, nil
}

// UseTrial consumes one trial for gameID. Holders are admitted without
// consuming anything. It returns false when no trials are left.
func (g *Gate) UseTrial(ctx context.Context, id Identity, gameID string) (bool, error) {
	key := id.Key()
	if key == "" {
		return false, ErrNoIdentity
	}

	if token := g.tokenStatus(ctx, id.Wallet); token.HasAccess {
		return true, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	rec, err := g.store.Get(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		rec = &domain.TrialRecord{}
	case err != nil:
		return false, fmt.Errorf("load trial record: %w", err)
	case rec.Expired(now):
		rec = &domain.TrialRecord{}
	}

	if rec.Count >= domain.MaxTrials {
		g.log.Debugf("%s: no trials remaining", key)
		return false, nil
	}

	rec.Count++
	rec.LastUsed = now.UnixMilli()
	if rec.DeviceID == "" {
		rec.DeviceID = id.DeviceID
	}
	if id.IPFingerprint != "" {
		rec.IPFingerprint = id.IPFingerprint
	}
	if gameID != "" {
		rec.Games = append(rec.Games, domain.GameUse{GameID: gameID, Timestamp: rec.LastUsed})
		if len(rec.Games) > MaxGameHistory {
			rec.Games = rec.Games[len(rec.Games)-MaxGameHistory:]
		}
	}

	if err := g.store.Put(ctx, key, rec); err != nil {
		return false, fmt.Errorf("save trial record: %w", err)
	}

	g.log.Infof("%s used trial %d/%d (%s)", key, rec.Count, domain.MaxTrials, gameID)
	observability.RecordTrialConsumed()
	g.activity.Record(ctx, domain.ActivityTrialUsed, key, gameID)
	return true, nil
}

// TrialInfo describes usage of the current window.
func (g *Gate) TrialInfo(ctx context.Context, id Identity) (domain.TrialInfo, error) {
	key := id.Key()
	if key == "" {
		return domain.TrialInfo{}, ErrNoIdentity
	}

	info := domain.TrialInfo{Remaining: domain.MaxTrials, Total: domain.MaxTrials}
	rec, err := g.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return info, nil
	}
	if err != nil {
		return domain.TrialInfo{}, fmt.Errorf("load trial record: %w", err)
	}
	if rec.Expired(g.now()) {
		return info, nil
	}

	info.Used = rec.Count
	info.Remaining = rec.Remaining()
	info.ResetAt = rec.LastUsed + domain.TrialResetWindow.Milliseconds()
	return info, nil
}

// History returns the games played in the current window, oldest first.
func (g *Gate) History(ctx context.Context, id Identity) ([]domain.GameUse, error) {
	rec, err := g.store.Get(ctx, id.Key())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load trial record: %w", err)
	}
	if rec.Expired(g.now()) {
		return nil, nil
	}
	return rec.Games, nil
}

// Reset clears the record of one identity.
func (g *Gate) Reset(ctx context.Context, identity string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.store.Delete(ctx, identity)
}

// ResetAll clears every record and returns how many were removed.
func (g *Gate) ResetAll(ctx context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids, err := g.store.Identities(ctx)
	if err != nil {
		return 0, fmt.Errorf("list identities: %w", err)
	}
	for i, id := range ids {
		if err := g.store.Delete(ctx, id); err != nil {
			return i, fmt.Errorf("delete %s: %w", id, err)
		}
	}
	return len(ids), nil
}

func (g *Gate) tokenStatus(ctx context.Context, wallet string) domain.TokenGateStatus {
	if wallet == "" || g.tokens == nil {
		return domain.TokenGateStatus{}
	}
	return g.tokens.CheckTokenBalance(ctx, wallet)
}

// remaining applies the reset window. Expired records are removed.
func (g *Gate) remaining(ctx context.Context, key string) int {
	rec, err := g.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.MaxTrials
	}
	if err != nil {
		g.log.Warnf("%s: trial record unreadable, granting full trials: %v", key, err)
		observability.RecordGateStoreError()
		return domain.MaxTrials
	}

	if rec.Expired(g.now()) {
		g.log.Debugf("%s: trials reset after %v", key, domain.TrialResetWindow)
		g.clearExpired(ctx, key)
		return domain.MaxTrials
	}
	return rec.Remaining()
}

// clearExpired deletes key if its record is still expired under the lock.
func (g *Gate) clearExpired(ctx context.Context, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, err := g.store.Get(ctx, key)
	if err != nil || !rec.Expired(g.now()) {
		return
	}
	if err := g.store.Delete(ctx, key); err != nil {
		g.log.Warnf("%s: clear expired record: %v", key, err)
	}
}

func buildStatus(token domain.TokenGateStatus, remaining int) domain.TrialStatus {
	status := domain.TrialStatus{
		TrialsRemaining: remaining,
		HasTokens:       token.HasAccess,
		IsTrialUser:     !token.HasAccess,
		Token:           token,
	}
	switch {
	case token.HasAccess:
		status.TrialsRemaining = domain.MaxTrials
		status.CanPlay = true
		status.AccessLevel = domain.AccessUnlimited
	case remaining > 0:
		status.CanPlay = true
		status.AccessLevel = domain.AccessTrial
	default:
		status.AccessLevel = domain.AccessBlocked
	}
	return status
}
