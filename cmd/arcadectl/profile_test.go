package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mr-tron/base58"

	"nova-arcade/internal/api"
	"nova-arcade/internal/arena"
	"nova-arcade/internal/auth"
	"nova-arcade/internal/kvstore"
	"nova-arcade/internal/storage/memory"
	"nova-arcade/internal/waitlist"
)

func newAPIServer(t *testing.T) (*httptest.Server, *waitlist.Service) {
	t.Helper()
	wl := waitlist.NewService(memory.NewWaitlistStore(), nil, nil)
	srv := api.NewServer(api.Deps{
		Waitlist: wl,
		Demo:     arena.NewDemo(memory.NewCompetitionStore(), nil, nil),
		Auth:     auth.NewService([]byte("cli-test-secret-0123")),
	}, api.WithAdminSecret("s3cret"))
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts, wl
}

func newKeypair(t *testing.T) (string, string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return base58.Encode(priv), base58.Encode(pub)
}

func readProfile(t *testing.T, path, key string, v any) bool {
	t.Helper()
	fs, err := kvstore.OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	defer fs.Close()
	ok, err := kvstore.GetJSON(fs, key, v)
	if err != nil {
		t.Fatalf("GetJSON(%s): %v", key, err)
	}
	return ok
}

func TestLoginAndDemo(t *testing.T) {
	ts, _ := newAPIServer(t)
	state := filepath.Join(t.TempDir(), "state.json")
	secret, address := newKeypair(t)
	global := []string{"--state-file", state, "--api-url", ts.URL}

	if _, err := runCLI(t, append(global, "demo", "history")...); err == nil || !strings.Contains(err.Error(), "not signed in") {
		t.Fatalf("demo before login err = %v", err)
	}

	out, err := runCLI(t, append(global, "login", "--keypair", secret)...)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Signed in as "+address) {
		t.Errorf("login output = %q", out)
	}
	var ws walletSession
	if !readProfile(t, state, kvstore.KeyWalletSession, &ws) || ws.Token == "" || ws.Address != address {
		t.Errorf("wallet_session = %+v", ws)
	}
	var saved string
	if !readProfile(t, state, kvstore.KeyWalletAddress, &saved) || saved != address {
		t.Errorf("wallet_address = %q", saved)
	}

	out, err = runCLI(t, append(global, "demo", "enter", "propool")...)
	if err != nil {
		t.Fatalf("demo enter: %v", err)
	}
	if !strings.Contains(out, "Demo entry recorded successfully") {
		t.Errorf("demo enter output = %q", out)
	}

	out, err = runCLI(t, append(global, "demo", "history")...)
	if err != nil {
		t.Fatalf("demo history: %v", err)
	}
	if !strings.Contains(out, "propool") || !strings.Contains(out, "100.00 USDC") {
		t.Errorf("demo history output = %q", out)
	}

	if _, err := runCLI(t, append(global, "logout")...); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if readProfile(t, state, kvstore.KeyWalletSession, &ws) {
		t.Error("wallet_session should be removed by logout")
	}
}

func TestDemo_DropsRejectedSession(t *testing.T) {
	ts, _ := newAPIServer(t)
	state := filepath.Join(t.TempDir(), "state.json")

	fs, err := kvstore.OpenFileStore(state)
	if err != nil {
		t.Fatal(err)
	}
	if err := kvstore.SetJSON(fs, kvstore.KeyWalletSession, walletSession{Token: "forged", Address: "x"}); err != nil {
		t.Fatal(err)
	}
	fs.Close()

	_, err = runCLI(t, "--state-file", state, "--api-url", ts.URL, "demo", "history")
	if err == nil || !strings.Contains(err.Error(), "session rejected") {
		t.Fatalf("err = %v", err)
	}
	var ws walletSession
	if readProfile(t, state, kvstore.KeyWalletSession, &ws) {
		t.Error("rejected session should be dropped")
	}
}

func TestWaitlist_RemoteExportAndSavedWallet(t *testing.T) {
	ts, wl := newAPIServer(t)
	state := filepath.Join(t.TempDir(), "state.json")
	global := []string{"--state-file", state, "--api-url", ts.URL, "--admin-secret", ""}

	if _, err := runCLI(t, append(global, "waitlist", "export", "--remote")...); err == nil {
		t.Error("remote export without an admin key should fail")
	}

	fs, err := kvstore.OpenFileStore(state)
	if err != nil {
		t.Fatal(err)
	}
	if err := kvstore.SetJSON(fs, kvstore.KeyWalletAddress, "SavedWallet1"); err != nil {
		t.Fatal(err)
	}
	fs.Close()

	if _, err := runCLI(t, append(global, "waitlist", "submit", "ada@example.com")...); err != nil {
		t.Fatalf("submit: %v", err)
	}
	entries, err := wl.List(context.Background())
	if err != nil || len(entries) != 1 || entries[0].WalletAddress != "SavedWallet1" {
		t.Fatalf("server entries = %+v, %v", entries, err)
	}

	if _, err := runCLI(t, append(global, "admin-key", "wrong")...); err != nil {
		t.Fatalf("admin-key: %v", err)
	}
	if _, err := runCLI(t, append(global, "waitlist", "export", "--remote")...); err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("wrong admin key err = %v", err)
	}

	if _, err := runCLI(t, append(global, "admin-key", "s3cret")...); err != nil {
		t.Fatalf("admin-key: %v", err)
	}
	var key string
	if !readProfile(t, state, kvstore.KeyAdminKey, &key) || key != "s3cret" {
		t.Errorf("admin_key = %q", key)
	}
	out, err := runCLI(t, append(global, "waitlist", "export", "--remote")...)
	if err != nil {
		t.Fatalf("remote export: %v", err)
	}
	if !strings.Contains(out, "ada@example.com,SavedWallet1") {
		t.Errorf("export = %q", out)
	}

	if _, err := runCLI(t, append(global, "admin-key", "--clear")...); err != nil {
		t.Fatalf("admin-key --clear: %v", err)
	}
	if readProfile(t, state, kvstore.KeyAdminKey, &key) {
		t.Error("admin_key should be cleared")
	}
}

func TestParsePrize(t *testing.T) {
	tests := map[string]float64{"180": 180, "5,000": 5000, "50K+": 50000, "1.5M": 1.5e6}
	for in, want := range tests {
		got, err := parsePrize(in)
		if err != nil || got != want {
			t.Errorf("parsePrize(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := parsePrize("lots"); err == nil {
		t.Error("non-numeric prize should fail")
	}
}
