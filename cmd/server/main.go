// Package main runs the arcade API server: the Jupiter/Metis swap proxy,
// the trial gate, wallet sign-in, the Battle Arena waitlist and demo, and
// the Prometheus endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/decred/slog"
	"golang.org/x/sync/errgroup"

	"nova-arcade/internal/activity"
	"nova-arcade/internal/api"
	"nova-arcade/internal/arena"
	"nova-arcade/internal/auth"
	"nova-arcade/internal/config"
	"nova-arcade/internal/jupiter"
	"nova-arcade/internal/kvstore"
	"nova-arcade/internal/logging"
	"nova-arcade/internal/observability"
	"nova-arcade/internal/pumpfun"
	"nova-arcade/internal/solana"
	"nova-arcade/internal/storage"
	chstore "nova-arcade/internal/storage/clickhouse"
	"nova-arcade/internal/storage/kv"
	"nova-arcade/internal/storage/memory"
	"nova-arcade/internal/storage/migrations"
	pgstore "nova-arcade/internal/storage/postgres"
	"nova-arcade/internal/swap"
	"nova-arcade/internal/tokengate"
	"nova-arcade/internal/trial"
	"nova-arcade/internal/waitlist"
)

// stores holds the storage implementations chosen at startup.
type stores struct {
	trials       storage.TrialStore
	waitlist     storage.WaitlistStore
	competitions storage.CompetitionStore
	activity     storage.ActivityStore
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, _, err := config.Load("server", os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	logs, err := logging.NewLogBackend(logging.LogConfig{DebugLevel: cfg.LogLevel})
	if err != nil {
		return err
	}
	log := logs.Logger(logging.SubsysServer)

	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	catalog, err := config.LoadCatalog(cfg.CatalogPath, cfg.NAGMint)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := openStores(ctx, cfg, logs.Logger(logging.SubsysStore))
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer cleanup()

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint, solana.WithLogger(logs.Logger(logging.SubsysRPC)))
	recorder := activity.NewRecorder(st.activity, log)

	checker := tokengate.NewChecker(rpc, cfg.NAGMint, cfg.MinTokenBalance,
		tokengate.WithTokenPrograms(solana.TokenProgramID, solana.Token2022ProgramID),
		tokengate.WithLogger(logs.Logger(logging.SubsysGate)))
	gate := trial.NewGate(st.trials, checker,
		trial.WithLogger(logs.Logger(logging.SubsysGate)),
		trial.WithActivity(recorder))

	swapLog := logs.Logger(logging.SubsysSwap)
	jup := jupiter.NewClient(
		jupiter.WithQuoteURL(cfg.JupiterQuoteURL),
		jupiter.WithPriceURL(cfg.JupiterPriceURL),
		jupiter.WithLogger(swapLog),
	)
	metis := pumpfun.NewClient(cfg.MetisAPIKey, pumpfun.WithURL(cfg.MetisURL), pumpfun.WithLogger(swapLog))
	router := swap.NewRouter(rpc, jup, swap.WithMetis(metis), swap.WithRouterLogger(swapLog))
	if !metis.Configured() {
		log.Infof("METIS_API_KEY not set, bonding-curve tokens quote through Jupiter")
	}

	mints := make([]string, len(catalog.Tokens))
	for i, t := range catalog.Tokens {
		mints[i] = t.Mint
	}
	tracker := swap.NewPriceTracker(jup, mints, cfg.PriceInterval, swapLog)

	srv := api.NewServer(api.Deps{
		Quoter:   router,
		Builder:  router,
		Prices:   jup,
		Tracker:  tracker,
		Catalog:  catalog,
		Gate:     gate,
		Tokens:   checker,
		Waitlist: waitlist.NewService(st.waitlist, recorder, logs.Logger(logging.SubsysWait)),
		Demo:     arena.NewDemo(st.competitions, recorder, log),
		Auth: auth.NewService([]byte(cfg.JWTSecret),
			auth.WithSessionTTL(cfg.SessionTTL),
			auth.WithLogger(logs.Logger(logging.SubsysAuth))),
		Activity: recorder,
	},
		api.WithAdminSecret(cfg.AdminSecret),
		api.WithPriorityFee(cfg.PriorityFee),
		api.WithRateLimit(cfg.JupiterRPS, cfg.JupiterBurst),
		api.WithLogger(log),
	)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle shutdown signals
	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			log.Infof("Received signal %v, initiating graceful shutdown...", sig)
		case <-done:
			return
		}
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			log.Warnf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(cfg.ShutdownTimeout):
			log.Errorf("Graceful shutdown timed out after %v, forcing exit", cfg.ShutdownTimeout)
			os.Exit(1)
		case <-done:
		}
	}()

	observability.SetStartTime(time.Now().Unix())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tracker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Infof("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer stop()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	close(done)
	if err != nil {
		return err
	}
	log.Infof("Shutdown complete")
	return nil
}

// openStores selects postgres (with clickhouse for the activity feed when
// configured) or local storage. Local trial and waitlist state persists in
// the state file when one is set.
func openStores(ctx context.Context, cfg *config.Config, log slog.Logger) (*stores, func(), error) {
	if cfg.UseMemory {
		st := &stores{
			activity: memory.NewActivityStore(),
		}
		if cfg.StateFile == "" {
			st.trials = memory.NewTrialStore()
			st.waitlist = memory.NewWaitlistStore()
			st.competitions = memory.NewCompetitionStore()
			log.Infof("Using in-memory storage")
			return st, func() {}, nil
		}

		fs, err := kvstore.OpenFileStore(cfg.StateFile)
		if err != nil {
			return nil, nil, err
		}
		st.trials = kv.NewTrialStore(fs)
		st.waitlist = kv.NewWaitlistStore(fs)
		st.competitions = kv.NewCompetitionStore(fs)
		log.Infof("Using local storage in %s", fs.Path())
		return st, func() {
			if err := fs.Close(); err != nil {
				log.Errorf("close state file: %v", err)
			}
		}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Infof("Postgres ready (%d migrations applied)", len(applied))

	st := &stores{
		trials:       pgstore.NewTrialStore(pool),
		waitlist:     pgstore.NewWaitlistStore(pool),
		competitions: pgstore.NewCompetitionStore(pool),
		activity:     memory.NewActivityStore(),
	}
	cleanup := pool.Close

	if cfg.ClickhouseDSN != "" {
		var conn *chstore.Conn
		conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		st.activity = chstore.NewActivityStore(conn)
		log.Infof("ClickHouse activity feed enabled")
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
	}
	return st, cleanup, nil
}
