package waitlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"

	"nova-arcade/internal/activity"
	"nova-arcade/internal/domain"
	"nova-arcade/internal/observability"
	"nova-arcade/internal/storage"
)

// DefaultSource is recorded when a signup names no source.
const DefaultSource = "battle_arena"

// Service stores signups received by the API.
type Service struct {
	store    storage.WaitlistStore
	activity *activity.Recorder
	log      slog.Logger
	now      func() time.Time
}

// NewService creates a service over store. rec and log may be nil.
func NewService(store storage.WaitlistStore, rec *activity.Recorder, log slog.Logger) *Service {
	if log == nil {
		log = slog.Disabled
	}
	return &Service{store: store, activity: rec, log: log, now: time.Now}
}

// Join adds a signup. Emails are stored lowercased; wallet addresses are
// kept as given because base58 is case-sensitive. Returns
// storage.ErrDuplicateKey if the email is already listed.
func (s *Service) Join(ctx context.Context, email, walletAddress, source string) (*domain.WaitlistEntry, error) {
	if !ValidEmail(email) {
		observability.RecordWaitlist(string(domain.WaitlistError))
		return nil, ErrInvalidEmail
	}
	if source == "" {
		source = DefaultSource
	}
	if walletAddress == "" {
		walletAddress = domain.NotConnectedWallet
	}

	entry := &domain.WaitlistEntry{
		ID:            uuid.NewString(),
		Email:         strings.ToLower(strings.TrimSpace(email)),
		WalletAddress: strings.TrimSpace(walletAddress),
		Source:        source,
		Timestamp:     s.now().UnixMilli(),
	}
	if err := s.store.Insert(ctx, entry); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			observability.RecordWaitlist(string(domain.WaitlistDuplicate))
			return nil, err
		}
		observability.RecordWaitlist(string(domain.WaitlistError))
		return nil, fmt.Errorf("insert waitlist entry: %w", err)
	}

	observability.RecordWaitlist(string(domain.WaitlistSuccess))
	s.log.Infof("waitlist signup from %s", entry.Source)
	s.activity.Record(ctx, domain.ActivityWaitlist, entry.WalletAddress, entry.Source)
	return entry, nil
}

// List returns all entries, newest first.
func (s *Service) List(ctx context.Context) ([]*domain.WaitlistEntry, error) {
	return s.store.List(ctx)
}
