package swap

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/decred/slog"

	"nova-arcade/internal/activity"
	"nova-arcade/internal/domain"
	"nova-arcade/internal/observability"
	"nova-arcade/internal/solana"
)

// Executor defaults.
const (
	DefaultPriorityFee    = 100000
	DefaultConfirmTimeout = 60 * time.Second
	DefaultPollInterval   = 2 * time.Second
)

// TxBuilder builds the unsigned transaction for a quote.
type TxBuilder interface {
	SwapTransaction(ctx context.Context, quote *domain.Quote, userPubkey string, priorityFee uint64) (*domain.SwapTransaction, error)
}

// Executor signs, submits and confirms swaps. A submitted transaction is
// never resent: a failure is reported and the caller starts over.
type Executor struct {
	builder        TxBuilder
	rpc            solana.RPCClient
	ws             solana.WSClient
	activity       *activity.Recorder
	log            slog.Logger
	priorityFee    uint64
	confirmTimeout time.Duration
	pollInterval   time.Duration
}

// ExecutorOption configures Executor.
type ExecutorOption func(*Executor)

// WithWS confirms through signatureSubscribe instead of polling.
func WithWS(ws solana.WSClient) ExecutorOption {
	return func(e *Executor) {
		e.ws = ws
	}
}

// WithPriorityFee sets the prioritization fee in lamports.
func WithPriorityFee(lamports uint64) ExecutorOption {
	return func(e *Executor) {
		e.priorityFee = lamports
	}
}

// WithConfirmTimeout bounds the wait for confirmation.
func WithConfirmTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.confirmTimeout = d
	}
}

// WithPollInterval sets the getSignatureStatuses polling interval.
func WithPollInterval(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.pollInterval = d
	}
}

// WithExecutorLogger sets the logger.
func WithExecutorLogger(log slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.log = log
	}
}

// WithExecutorActivity records submitted swaps to the activity feed.
func WithExecutorActivity(r *activity.Recorder) ExecutorOption {
	return func(e *Executor) {
		e.activity = r
	}
}

// NewExecutor creates an executor.
func NewExecutor(builder TxBuilder, rpc solana.RPCClient, opts ...ExecutorOption) *Executor {
	e := &Executor{
		builder:        builder,
		rpc:            rpc,
		log:            slog.Disabled,
		priorityFee:    DefaultPriorityFee,
		confirmTimeout: DefaultConfirmTimeout,
		pollInterval:   DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute builds the swap for quote, has signer sign it, then submits and
// confirms it. The quote is used as given.
func (e *Executor) Execute(ctx context.Context, quote *domain.Quote, signer Signer) (*domain.SwapResult, error) {
	if quote == nil {
		return nil, errors.New("no quote")
	}
	owner := signer.PublicKey().String()
	source := quote.Source
	if source == "" {
		source = domain.QuoteSourceJupiter
	}

	sig, err := e.execute(ctx, quote, signer, owner)
	observability.RecordSwap(string(source), err)
	if err != nil {
		return nil, err
	}

	e.log.Infof("swap %s -> %s confirmed via %s: %s", quote.InputMint, quote.OutputMint, source, sig)
	e.activity.Record(ctx, domain.ActivitySwapSubmitted, owner, fmt.Sprintf("%s %s->%s %s", source, quote.InputMint, quote.OutputMint, sig))
	return &domain.SwapResult{
		Signature: sig,
		Source:    source,
		InAmount:  quote.InAmount,
		OutAmount: quote.OutAmount,
	}, nil
}

func (e *Executor) execute(ctx context.Context, quote *domain.Quote, signer Signer, owner string) (string, error) {
	swapTx, err := e.builder.SwapTransaction(ctx, quote, owner, e.priorityFee)
	if err != nil {
		return "", fmt.Errorf("build swap: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(swapTx.SwapTransaction)
	if err != nil {
		return "", fmt.Errorf("decode swap transaction: %w", err)
	}

	signed, err := signer.Sign(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}

	return e.SubmitTransaction(ctx, base64.StdEncoding.EncodeToString(signed))
}

// SubmitTransaction sends a fully signed transaction with preflight at
// confirmed commitment and waits until it is confirmed.
func (e *Executor) SubmitTransaction(ctx context.Context, signedTxBase64 string) (string, error) {
	tx, err := solana.ParseTransactionBase64(signedTxBase64)
	if err != nil {
		return "", err
	}
	if !tx.IsSigned() {
		return "", errors.New("transaction is not fully signed")
	}

	sig, err := e.rpc.SendTransaction(ctx, signedTxBase64, solana.DefaultSendOptions())
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	e.log.Debugf("submitted %s", sig)

	start := time.Now()
	if err := e.confirm(ctx, sig); err != nil {
		return sig, err
	}
	observability.RecordConfirmLatency(time.Since(start).Seconds())
	return sig, nil
}

func (e *Executor) confirm(ctx context.Context, sig string) error {
	ctx, cancel := context.WithTimeout(ctx, e.confirmTimeout)
	defer cancel()

	if e.ws != nil {
		done, err := e.confirmWS(ctx, sig)
		if done {
			return err
		}
		e.log.Debugf("%s: websocket confirmation unavailable, polling", sig)
	}
	return e.poll(ctx, sig)
}

// confirmWS reports done=false when the subscription ends without an
// answer and polling should take over.
func (e *Executor) confirmWS(ctx context.Context, sig string) (bool, error) {
	ch, err := e.ws.SubscribeSignature(ctx, sig, solana.CommitmentConfirmed)
	if err != nil {
		e.log.Warnf("%s: signatureSubscribe: %v", sig, err)
		return false, nil
	}
	select {
	case n, ok := <-ch:
		if !ok {
			return false, nil
		}
		if n.Err != nil {
			return true, failed(n.Err)
		}
		return true, nil
	case <-ctx.Done():
		return true, fmt.Errorf("confirm %s: %w", sig, ctx.Err())
	}
}

func (e *Executor) poll(ctx context.Context, sig string) error {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		statuses, err := e.rpc.GetSignatureStatuses(ctx, []string{sig})
		if err != nil {
			e.log.Debugf("%s: status poll: %v", sig, err)
		} else if len(statuses) > 0 && statuses[0] != nil {
			st := statuses[0]
			if st.Err != nil {
				return failed(st.Err)
			}
			if st.Reached(solana.CommitmentConfirmed) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("confirm %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

func failed(txErr interface{}) error {
	detail, err := json.Marshal(txErr)
	if err != nil {
		detail = []byte(fmt.Sprint(txErr))
	}
	return fmt.Errorf("%w: %s", ErrTransactionFailed, detail)
}
