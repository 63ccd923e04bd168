// Package main is the operator CLI: trial resets, waitlist export and
// stats, waitlist submission, wallet sign-in and demo entries, and swap
// quotes and execution.
//
// Usage:
//
//	arcadectl [global flags] <command> [command flags] [args]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/decred/slog"

	"nova-arcade/internal/config"
	"nova-arcade/internal/kvstore"
	"nova-arcade/internal/logging"
	"nova-arcade/internal/storage"
	"nova-arcade/internal/storage/kv"
	pgstore "nova-arcade/internal/storage/postgres"
)

const usage = `Commands:
  reset-trials [identity]   reset one identity, or every identity with --all
  waitlist export           write the waitlist as CSV (--remote uses the admin API)
  waitlist stats            print waitlist counts
  waitlist submit EMAIL     submit through the API with offline fallback
  login                     sign in to the API with --keypair
  logout                    forget the wallet session
  admin-key KEY             store the admin key for waitlist export --remote
  demo enter MODE           enter a Battle Arena demo competition
  demo history              list your demo entries
  quote IN OUT AMOUNT       quote a swap (symbols or mints, human amount)
  swap IN OUT AMOUNT        quote, sign with --keypair and send

Storage is PostgreSQL when --postgres-dsn is set. Otherwise trials live
in --trials-file and the waitlist in --state-file. The wallet session,
wallet address and admin key are always kept in --state-file.
`

// cli carries what every command needs.
type cli struct {
	cfg  *config.Config
	logs *logging.LogBackend
	log  slog.Logger
	out  io.Writer
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	cancel()
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "arcadectl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, fs, err := config.Load("arcadectl", args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logs, err := logging.NewLogBackend(logging.LogConfig{DebugLevel: cfg.LogLevel, Writer: os.Stderr})
	if err != nil {
		return err
	}
	c := &cli{cfg: cfg, logs: logs, log: logs.Logger(logging.SubsysServer), out: out}

	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("no command")
	}

	switch cmd, cmdArgs := rest[0], rest[1:]; cmd {
	case "reset-trials":
		return c.resetTrials(ctx, cmdArgs)
	case "waitlist":
		return c.waitlist(ctx, cmdArgs)
	case "login":
		return c.login(ctx, cmdArgs)
	case "logout":
		return c.logout()
	case "admin-key":
		return c.adminKey(cmdArgs)
	case "demo":
		return c.demo(ctx, cmdArgs)
	case "quote":
		return c.quote(ctx, cmdArgs)
	case "swap":
		return c.swap(ctx, cmdArgs)
	case "help":
		fmt.Fprint(out, usage)
		return nil
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// openTrials returns the trial store and a close func.
func (c *cli) openTrials(ctx context.Context) (storage.TrialStore, func(), error) {
	if c.cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, c.cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pgstore.NewTrialStore(pool), pool.Close, nil
	}
	fs, err := kvstore.OpenFileStore(c.cfg.TrialsFile)
	if err != nil {
		return nil, nil, err
	}
	return kv.NewTrialStore(fs), c.closer(fs), nil
}

// openWaitlist returns the waitlist store and a close func.
func (c *cli) openWaitlist(ctx context.Context) (storage.WaitlistStore, func(), error) {
	if c.cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, c.cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pgstore.NewWaitlistStore(pool), pool.Close, nil
	}
	fs, err := kvstore.OpenFileStore(c.cfg.StateFile)
	if err != nil {
		return nil, nil, err
	}
	return kv.NewWaitlistStore(fs), c.closer(fs), nil
}

func (c *cli) closer(fs *kvstore.FileStore) func() {
	return func() {
		if err := fs.Close(); err != nil {
			c.log.Errorf("close %s: %v", fs.Path(), err)
		}
	}
}
