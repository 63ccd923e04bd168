package waitlist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/kvstore"
	"nova-arcade/internal/storage/kv"
)

func TestSubmit_Success(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	fallback := kv.NewWaitlistStore(kvstore.NewMemoryStore())
	c := NewClient(srv.URL, fallback)

	outcome, err := c.Submit(context.Background(), "ada@example.com", "Wallet111", "battle_arena_modal")
	if err != nil || outcome != domain.WaitlistSuccess {
		t.Fatalf("Submit() = %s, %v", outcome, err)
	}
	if got.Email != "ada@example.com" || got.WalletAddress != "Wallet111" || got.Source != "battle_arena_modal" {
		t.Errorf("unexpected body: %+v", got)
	}

	entries, _ := fallback.List(context.Background())
	if len(entries) != 0 {
		t.Error("online submissions must not touch the fallback")
	}
}

func TestSubmit_StatusMapping(t *testing.T) {
	tests := []struct {
		status  int
		want    domain.WaitlistOutcome
		wantErr bool
	}{
		{http.StatusCreated, domain.WaitlistSuccess, false},
		{http.StatusConflict, domain.WaitlistDuplicate, false},
		{http.StatusInternalServerError, domain.WaitlistError, true},
		{http.StatusBadRequest, domain.WaitlistError, true},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		fallback := kv.NewWaitlistStore(kvstore.NewMemoryStore())
		outcome, err := NewClient(srv.URL, fallback).Submit(context.Background(), "a@b.c", "", "test")
		srv.Close()

		if outcome != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("status %d: Submit() = %s, %v", tt.status, outcome, err)
		}
		if tt.wantErr {
			var se *StatusError
			if !errors.As(err, &se) || se.StatusCode != tt.status {
				t.Errorf("status %d: expected *StatusError, got %v", tt.status, err)
			}
		}
		if entries, _ := fallback.List(context.Background()); len(entries) != 0 {
			t.Errorf("status %d: HTTP errors must not fall back", tt.status)
		}
	}
}

func TestSubmit_InvalidEmail(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	for _, email := range []string{"", "not-an-email", "   "} {
		outcome, err := NewClient(srv.URL, nil).Submit(context.Background(), email, "", "test")
		if outcome != domain.WaitlistError || !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("Submit(%q) = %s, %v", email, outcome, err)
		}
	}
	if called {
		t.Error("invalid emails must not be sent")
	}
}

func TestSubmit_OfflineFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL
	srv.Close() // connection refused from now on

	fallback := kv.NewWaitlistStore(kvstore.NewMemoryStore())
	c := NewClient(endpoint, fallback)
	ctx := context.Background()

	outcome, err := c.Submit(ctx, "grace@example.com", "", "battle_arena_modal")
	if err != nil || outcome != domain.WaitlistSuccess {
		t.Fatalf("Submit() = %s, %v", outcome, err)
	}

	entries, _ := fallback.List(ctx)
	if len(entries) != 1 {
		t.Fatalf("expected 1 offline entry, got %d", len(entries))
	}
	e := entries[0]
	if e.WalletAddress != domain.NotConnectedWallet {
		t.Errorf("WalletAddress = %q", e.WalletAddress)
	}
	if e.Source != "battle_arena_modal (Offline)" {
		t.Errorf("Source = %q", e.Source)
	}
	if e.Timestamp == 0 || e.ID == "" {
		t.Errorf("entry missing id or timestamp: %+v", e)
	}

	outcome, err = c.Submit(ctx, "grace@example.com", "Wallet", "battle_arena_modal")
	if err != nil || outcome != domain.WaitlistDuplicate {
		t.Errorf("second offline submit = %s, %v; want duplicate", outcome, err)
	}
}

func TestSubmit_OfflineWithoutFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	outcome, err := NewClient(endpoint, nil).Submit(context.Background(), "a@b.c", "", "cli")
	if outcome != domain.WaitlistError || err == nil {
		t.Errorf("Submit() = %s, %v", outcome, err)
	}
}

func TestSubmit_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fallback := kv.NewWaitlistStore(kvstore.NewMemoryStore())
	outcome, err := NewClient(srv.URL, fallback).Submit(ctx, "a@b.c", "", "cli")
	if outcome != domain.WaitlistError || !errors.Is(err, context.Canceled) {
		t.Errorf("Submit() = %s, %v", outcome, err)
	}
	if entries, _ := fallback.List(context.Background()); len(entries) != 0 {
		t.Error("cancelled submissions must not fall back")
	}
}
