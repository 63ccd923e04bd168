package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"nova-arcade/internal/api"
	"nova-arcade/internal/arena"
	"nova-arcade/internal/auth"
	"nova-arcade/internal/config"
	"nova-arcade/internal/domain"
	"nova-arcade/internal/kvstore"
	"nova-arcade/internal/swap"
	"nova-arcade/internal/waitlist"
)

// errNotSignedIn is returned by commands that need a wallet session.
var errNotSignedIn = errors.New("not signed in, run arcadectl login")

// walletSession is stored under wallet_session.
type walletSession struct {
	Token      string `json:"token"`
	Address    string `json:"address"`
	SignedInAt int64  `json:"signedInAt"` // ms
}

// withProfile opens the state file holding the wallet and admin profile,
// runs fn and closes it. The waitlist fallback lives in the same file, so
// callers must not hold both open at once.
func (c *cli) withProfile(fn func(kvstore.Store) error) error {
	fs, err := kvstore.OpenFileStore(c.cfg.StateFile)
	if err != nil {
		return err
	}
	defer c.closer(fs)()
	return fn(fs)
}

func (c *cli) profileString(key string) (string, error) {
	var v string
	err := c.withProfile(func(kv kvstore.Store) error {
		_, err := kvstore.GetJSON(kv, key, &v)
		return err
	})
	return v, err
}

func (c *cli) session() (*walletSession, error) {
	var ws walletSession
	var found bool
	err := c.withProfile(func(kv kvstore.Store) error {
		var err error
		found, err = kvstore.GetJSON(kv, kvstore.KeyWalletSession, &ws)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found || ws.Token == "" {
		return nil, errNotSignedIn
	}
	return &ws, nil
}

// rememberWallet records the wallet last used for a swap or sign-in.
func (c *cli) rememberWallet(address string) {
	err := c.withProfile(func(kv kvstore.Store) error {
		return kvstore.SetJSON(kv, kvstore.KeyWalletAddress, address)
	})
	if err != nil {
		c.log.Warnf("save wallet address: %v", err)
	}
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	keypair := fs.String("keypair", os.Getenv("SOLANA_KEYPAIR"), "Base58 secret key of the wallet")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *keypair == "" {
		return errors.New("login: --keypair (SOLANA_KEYPAIR) is required")
	}
	signer, err := swap.NewLocalSigner(*keypair)
	if err != nil {
		return err
	}
	address := signer.PublicKey().String()

	r := c.remote()
	var ch auth.Challenge
	if err := r.call(ctx, http.MethodPost, "/api/auth/challenge", nil, nil, &ch); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	req := api.VerifyRequest{
		PublicKey: address,
		Signature: base58.Encode(signer.SignMessage([]byte(ch.Message))),
		Message:   ch.Message,
	}
	var resp api.VerifyResponse
	if err := r.call(ctx, http.MethodPost, "/api/auth/verify", nil, req, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	ws := walletSession{Token: resp.Token, Address: resp.Address, SignedInAt: time.Now().UnixMilli()}
	err = c.withProfile(func(kv kvstore.Store) error {
		if err := kvstore.SetJSON(kv, kvstore.KeyWalletSession, ws); err != nil {
			return err
		}
		return kvstore.SetJSON(kv, kvstore.KeyWalletAddress, resp.Address)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Signed in as %s\n", resp.Address)
	return nil
}

func (c *cli) logout() error {
	err := c.withProfile(func(kv kvstore.Store) error {
		if err := kv.Delete(kvstore.KeyWalletSession); err != nil {
			return err
		}
		return kv.Delete(kvstore.KeyWalletAddress)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Signed out")
	return nil
}

func (c *cli) adminKey(args []string) error {
	fs := flag.NewFlagSet("admin-key", flag.ContinueOnError)
	forget := fs.Bool("clear", false, "Forget the stored key")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case *forget:
		err := c.withProfile(func(kv kvstore.Store) error {
			return kv.Delete(kvstore.KeyAdminKey)
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Admin key cleared")
	case fs.NArg() == 1:
		err := c.withProfile(func(kv kvstore.Store) error {
			return kvstore.SetJSON(kv, kvstore.KeyAdminKey, fs.Arg(0))
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Admin key saved")
	default:
		return errors.New("usage: admin-key [--clear | KEY]")
	}
	return nil
}

// exportRemote downloads the waitlist through the admin API.
func (c *cli) exportRemote(ctx context.Context) error {
	key, err := c.profileString(kvstore.KeyAdminKey)
	if err != nil {
		return err
	}
	if key == "" {
		key = c.cfg.AdminSecret
	}
	if key == "" {
		return errors.New("no admin key: run arcadectl admin-key KEY or set --admin-secret")
	}

	var resp api.WaitlistAdminResponse
	err = c.remote().call(ctx, http.MethodGet, "/api/battle-arena/admin/waitlist",
		map[string]string{"x-admin-key": key}, nil, &resp)
	if err != nil {
		return fmt.Errorf("waitlist export: %w", err)
	}
	return waitlist.WriteCSV(c.out, resp.Waitlist)
}

func (c *cli) demo(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: demo enter MODE | demo history")
	}
	ws, err := c.session()
	if err != nil {
		return err
	}
	bearer := map[string]string{"Authorization": "Bearer " + ws.Token}
	r := c.remote()

	switch args[0] {
	case "enter":
		if len(args) != 2 {
			return errors.New("usage: demo enter MODE")
		}
		catalog, err := config.LoadCatalog(c.cfg.CatalogPath, c.cfg.NAGMint)
		if err != nil {
			return err
		}
		mode, ok := catalog.BattleMode(args[1])
		if !ok {
			return fmt.Errorf("unknown battle mode %q", args[1])
		}
		prize, err := parsePrize(mode.PrizeNAG)
		if err != nil {
			return fmt.Errorf("battle mode %s prize %q: %w", mode.ID, mode.PrizeNAG, err)
		}

		req := arena.EntryRequest{Mode: mode.ID, EntryFee: &mode.EntryUSDC, PrizePool: &prize}
		var resp api.DemoEnterResponse
		if err := c.authed(r.call(ctx, http.MethodPost, "/api/battle-arena/demo/enter", bearer, req, &resp)); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s: %s (%s)\n", mode.Title(), resp.Message, resp.CompetitionID)
		return nil

	case "history":
		var resp struct {
			History []*domain.CompetitionEntry `json:"history"`
		}
		if err := c.authed(r.call(ctx, http.MethodGet, "/api/battle-arena/demo/history", bearer, nil, &resp)); err != nil {
			return err
		}
		if len(resp.History) == 0 {
			fmt.Fprintln(c.out, "No demo entries")
			return nil
		}
		for _, e := range resp.History {
			fmt.Fprintf(c.out, "%s  %-10s %6.2f USDC  %s\n",
				time.UnixMilli(e.Participant.JoinedAt).UTC().Format(time.RFC3339),
				e.Competition.Mode, e.Competition.EntryFeeUSDC, e.Competition.Status)
		}
		return nil

	default:
		return fmt.Errorf("unknown demo command %q", args[0])
	}
}

// parsePrize reads catalog prizes such as "5000", "5,000" or "50K+".
func parsePrize(s string) (float64, error) {
	s = strings.TrimSuffix(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), "+")
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "k"):
		mult, s = 1e3, s[:len(s)-1]
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "m"):
		mult, s = 1e6, s[:len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return v * mult, nil
}

// authed drops a session the server no longer accepts.
func (c *cli) authed(err error) error {
	var se *statusError
	if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
		if derr := c.withProfile(func(kv kvstore.Store) error {
			return kv.Delete(kvstore.KeyWalletSession)
		}); derr != nil {
			c.log.Warnf("drop wallet session: %v", derr)
		}
		return fmt.Errorf("session rejected (%s), run arcadectl login", se.Message)
	}
	return err
}

// statusError is a non-2xx API response.
type statusError struct {
	Code    int
	Message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.Code, e.Message)
}

// remoteAPI calls the arcade HTTP API.
type remoteAPI struct {
	base   string
	client *http.Client
}

func (c *cli) remote() *remoteAPI {
	return &remoteAPI{
		base:   strings.TrimSuffix(c.cfg.APIBaseURL, "/"),
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (r *remoteAPI) call(ctx context.Context, method, path string, header map[string]string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &statusError{Code: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
