package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"nova-arcade/internal/config"
	"nova-arcade/internal/domain"
	"nova-arcade/internal/jupiter"
	"nova-arcade/internal/kvstore"
	"nova-arcade/internal/logging"
	"nova-arcade/internal/pumpfun"
	"nova-arcade/internal/solana"
	"nova-arcade/internal/swap"
	"nova-arcade/internal/trial"
	"nova-arcade/internal/waitlist"
)

func (c *cli) resetTrials(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset-trials", flag.ContinueOnError)
	all := fs.Bool("all", false, "Reset every identity")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, closeStore, err := c.openTrials(ctx)
	if err != nil {
		return err
	}
	defer closeStore()
	gate := trial.NewGate(store, nil, trial.WithLogger(c.logs.Logger(logging.SubsysGate)))

	switch {
	case *all:
		n, err := gate.ResetAll(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Reset %d identities\n", n)
	case fs.NArg() == 1:
		if err := gate.Reset(ctx, fs.Arg(0)); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Reset trials for %s\n", fs.Arg(0))
	default:
		return errors.New("usage: reset-trials [--all | identity]")
	}
	return nil
}

func (c *cli) waitlist(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: waitlist export|stats|submit")
	}

	switch args[0] {
	case "export", "stats":
		if args[0] == "export" {
			fs := flag.NewFlagSet("waitlist export", flag.ContinueOnError)
			remote := fs.Bool("remote", false, "Export through the admin API with the stored admin key")
			if err := fs.Parse(args[1:]); err != nil {
				return err
			}
			if *remote {
				return c.exportRemote(ctx)
			}
		}
		store, closeStore, err := c.openWaitlist(ctx)
		if err != nil {
			return err
		}
		defer closeStore()
		entries, err := store.List(ctx)
		if err != nil {
			return err
		}
		if args[0] == "export" {
			return waitlist.WriteCSV(c.out, entries)
		}
		s := waitlist.ComputeStats(entries, time.Now())
		fmt.Fprintf(c.out, "Total:        %d\nToday:        %d\nThis week:    %d\nWith wallets: %d\n",
			s.Total, s.Today, s.ThisWeek, s.WithWallets)
		return nil

	case "submit":
		fs := flag.NewFlagSet("waitlist submit", flag.ContinueOnError)
		wallet := fs.String("wallet", "", "Wallet address (default: the signed-in wallet)")
		source := fs.String("source", waitlist.DefaultSource, "Signup source")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return errors.New("usage: waitlist submit [--wallet ADDR] [--source S] EMAIL")
		}
		if *wallet == "" {
			saved, err := c.profileString(kvstore.KeyWalletAddress)
			if err != nil {
				return err
			}
			*wallet = saved
		}

		fallback, closeStore, err := c.openWaitlist(ctx)
		if err != nil {
			return err
		}
		defer closeStore()
		endpoint := strings.TrimSuffix(c.cfg.APIBaseURL, "/") + config.DefaultWaitlistEndpoint
		client := waitlist.NewClient(endpoint, fallback, waitlist.WithLogger(c.logs.Logger(logging.SubsysWait)))

		outcome, err := client.Submit(ctx, fs.Arg(0), *wallet, *source)
		fmt.Fprintln(c.out, outcome)
		return err

	default:
		return fmt.Errorf("unknown waitlist command %q", args[0])
	}
}

// swapSetup resolves the pair and builds the router.
type swapSetup struct {
	router *swap.Router
	rpc    *solana.HTTPClient
	in     domain.Token
	out    domain.Token
	amount string // smallest units
}

func (c *cli) setupSwap(args []string) (*swapSetup, error) {
	if len(args) != 3 {
		return nil, errors.New("expected IN OUT AMOUNT")
	}
	catalog, err := config.LoadCatalog(c.cfg.CatalogPath, c.cfg.NAGMint)
	if err != nil {
		return nil, err
	}
	in, ok := catalog.ResolveToken(args[0])
	if !ok {
		return nil, fmt.Errorf("unknown token %q", args[0])
	}
	out, ok := catalog.ResolveToken(args[1])
	if !ok {
		return nil, fmt.Errorf("unknown token %q", args[1])
	}
	amount := swap.ParseAmount(args[2], int(in.Decimals))
	if amount == "0" {
		return nil, fmt.Errorf("invalid amount %q", args[2])
	}

	swapLog := c.logs.Logger(logging.SubsysSwap)
	rpc := solana.NewHTTPClient(c.cfg.RPCEndpoint, solana.WithLogger(c.logs.Logger(logging.SubsysRPC)))
	jup := jupiter.NewClient(
		jupiter.WithQuoteURL(c.cfg.JupiterQuoteURL),
		jupiter.WithPriceURL(c.cfg.JupiterPriceURL),
		jupiter.WithLogger(swapLog),
	)
	metis := pumpfun.NewClient(c.cfg.MetisAPIKey, pumpfun.WithURL(c.cfg.MetisURL), pumpfun.WithLogger(swapLog))
	return &swapSetup{
		router: swap.NewRouter(rpc, jup, swap.WithMetis(metis), swap.WithRouterLogger(swapLog)),
		rpc:    rpc,
		in:     in,
		out:    out,
		amount: amount,
	}, nil
}

func (c *cli) printQuote(s *swapSetup, q *domain.Quote) {
	fmt.Fprintf(c.out, "%s %s -> %s %s via %s (impact %s%%, slippage %d bps)\n",
		swap.FormatAmount(q.InAmount, int(s.in.Decimals)), s.in.Symbol,
		swap.FormatAmount(q.OutAmount, int(s.out.Decimals)), s.out.Symbol,
		q.Source, q.PriceImpactPct, q.SlippageBps)
}

func (c *cli) quote(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	watch := fs.Bool("watch", false, "Re-quote until interrupted")
	interval := fs.Duration("interval", swap.DefaultWatchInterval, "Re-quote interval with --watch")
	asJSON := fs.Bool("json", false, "Print the raw quote")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := c.setupSwap(fs.Args())
	if err != nil {
		return fmt.Errorf("quote: %w", err)
	}

	show := func(q *domain.Quote, err error) {
		if err != nil {
			fmt.Fprintf(c.out, "error: %s\n", swap.UserMessage(err, s.out.Symbol))
			return
		}
		if *asJSON {
			enc := json.NewEncoder(c.out)
			enc.SetIndent("", "  ")
			_ = enc.Encode(q)
			return
		}
		c.printQuote(s, q)
	}

	if *watch {
		swap.WatchQuote(ctx, s.router, s.in.Mint, s.out.Mint, s.amount, c.cfg.SlippageBps, *interval, show)
		return nil
	}
	q, err := s.router.GetQuote(ctx, s.in.Mint, s.out.Mint, s.amount, c.cfg.SlippageBps)
	if err != nil {
		return errors.New(swap.UserMessage(err, s.out.Symbol))
	}
	show(q, nil)
	return nil
}

func (c *cli) swap(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("swap", flag.ContinueOnError)
	keypair := fs.String("keypair", os.Getenv("SOLANA_KEYPAIR"), "Base58 secret key of the paying wallet")
	yes := fs.Bool("yes", false, "Sign without asking")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *keypair == "" {
		return errors.New("swap: --keypair (SOLANA_KEYPAIR) is required")
	}
	local, err := swap.NewLocalSigner(*keypair)
	if err != nil {
		return err
	}
	s, err := c.setupSwap(fs.Args())
	if err != nil {
		return fmt.Errorf("swap: %w", err)
	}

	q, err := s.router.GetQuote(ctx, s.in.Mint, s.out.Mint, s.amount, c.cfg.SlippageBps)
	if err != nil {
		return errors.New(swap.UserMessage(err, s.out.Symbol))
	}
	c.printQuote(s, q)

	var signer swap.Signer = local
	if !*yes {
		signer = swap.NewApprovalSigner(local.PublicKey(), func(ctx context.Context, unsigned []byte) ([]byte, error) {
			fmt.Fprintf(c.out, "Sign and send from %s? [y/N] ", local.PublicKey())
			line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if !strings.EqualFold(strings.TrimSpace(line), "y") {
				return nil, swap.ErrRejected
			}
			return local.Sign(ctx, unsigned)
		})
	}

	opts := []swap.ExecutorOption{
		swap.WithPriorityFee(c.cfg.PriorityFee),
		swap.WithConfirmTimeout(c.cfg.ConfirmTimeout),
		swap.WithExecutorLogger(c.logs.Logger(logging.SubsysSwap)),
	}
	if c.cfg.WSEndpoint != "" {
		wsCfg := solana.DefaultWSConfig()
		wsCfg.Logger = c.logs.Logger(logging.SubsysRPC)
		ws, err := solana.NewWSClient(ctx, c.cfg.WSEndpoint, &wsCfg)
		if err != nil {
			c.log.Warnf("websocket unavailable, confirming by polling: %v", err)
		} else {
			defer ws.Close()
			opts = append(opts, swap.WithWS(ws))
		}
	}

	result, err := swap.NewExecutor(s.router, s.rpc, opts...).Execute(ctx, q, signer)
	if err != nil {
		return errors.New(swap.UserMessage(err, s.out.Symbol))
	}
	fmt.Fprintf(c.out, "Swap confirmed: %s\n", result.Signature)
	c.rememberWallet(local.PublicKey().String())
	return nil
}
