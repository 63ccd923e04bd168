package swap

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"testing"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/solana"
)

// unsignedTx builds a legacy transfer-shaped transaction with signer as
// the only required signer.
func unsignedTx(t *testing.T, signer solana.PublicKey) []byte {
	t.Helper()
	var msg bytes.Buffer
	msg.Write([]byte{1, 0, 1})
	msg.Write(solana.EncodeCompactU16(2))
	msg.Write(signer[:])
	system := solana.MustParsePublicKey(solana.SystemProgramID)
	msg.Write(system[:])
	msg.Write(bytes.Repeat([]byte{7}, 32)) // recent blockhash
	msg.Write(solana.EncodeCompactU16(0))

	var tx bytes.Buffer
	tx.Write(solana.EncodeCompactU16(1))
	tx.Write(make([]byte, solana.SignatureLength))
	tx.Write(msg.Bytes())
	return tx.Bytes()
}

func newKey(t *testing.T) ed25519.PrivateKey {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

// fakeVenue serves canned quotes and transactions.
type fakeVenue struct {
	mu       sync.Mutex
	source   domain.QuoteSource
	quoteErr error
	swapErr  error
	tx       []byte
	quotes   int
	swaps    int
}

func (v *fakeVenue) GetQuote(_ context.Context, in, out, amount string, slippageBps int) (*domain.Quote, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.quotes++
	if v.quoteErr != nil {
		return nil, v.quoteErr
	}
	return &domain.Quote{InputMint: in, OutputMint: out, InAmount: amount, OutAmount: "42", SlippageBps: slippageBps, Source: v.source}, nil
}

func (v *fakeVenue) GetSwapTransaction(_ context.Context, q *domain.Quote, _ string, _ uint64) (*domain.SwapTransaction, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.swaps++
	if v.swapErr != nil {
		return nil, v.swapErr
	}
	return &domain.SwapTransaction{SwapTransaction: base64.StdEncoding.EncodeToString(v.tx)}, nil
}

func (v *fakeVenue) counts() (quotes, swaps int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.quotes, v.swaps
}

// SwapTransaction lets a venue act as the executor's TxBuilder.
func (v *fakeVenue) SwapTransaction(ctx context.Context, q *domain.Quote, owner string, fee uint64) (*domain.SwapTransaction, error) {
	return v.GetSwapTransaction(ctx, q, owner, fee)
}
