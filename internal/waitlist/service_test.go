package waitlist

import (
	"context"
	"errors"
	"testing"

	"nova-arcade/internal/activity"
	"nova-arcade/internal/domain"
	"nova-arcade/internal/storage"
	"nova-arcade/internal/storage/memory"
)

func TestServiceJoin(t *testing.T) {
	store := memory.NewWaitlistStore()
	feed := memory.NewActivityStore()
	svc := NewService(store, activity.NewRecorder(feed, nil), nil)
	ctx := context.Background()

	entry, err := svc.Join(ctx, " Ada@Example.COM ", "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", "")
	if err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	if entry.Email != "ada@example.com" {
		t.Errorf("Email = %q, want lowercased", entry.Email)
	}
	if entry.WalletAddress != "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU" {
		t.Errorf("wallet address must keep its case: %q", entry.WalletAddress)
	}
	if entry.Source != DefaultSource {
		t.Errorf("Source = %q", entry.Source)
	}

	if _, err := svc.Join(ctx, "ADA@example.com", "", "modal"); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("duplicate Join() = %v", err)
	}
	if _, err := svc.Join(ctx, "nobody", "", "modal"); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("invalid Join() = %v", err)
	}

	list, _ := svc.List(ctx)
	if len(list) != 1 {
		t.Errorf("List() len = %d", len(list))
	}
	events, _ := feed.Recent(ctx, 10)
	if len(events) != 1 || events[0].Kind != domain.ActivityWaitlist {
		t.Errorf("unexpected activity: %+v", events)
	}
}

func TestServiceJoin_NoWallet(t *testing.T) {
	svc := NewService(memory.NewWaitlistStore(), nil, nil)
	entry, err := svc.Join(context.Background(), "a@b.c", "", "modal")
	if err != nil {
		t.Fatal(err)
	}
	if entry.WalletAddress != domain.NotConnectedWallet {
		t.Errorf("WalletAddress = %q", entry.WalletAddress)
	}
}
