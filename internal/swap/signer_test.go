package swap

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/mr-tron/base58"

	"nova-arcade/internal/solana"
)

func TestLocalSigner(t *testing.T) {
	key := newKey(t)
	signer, err := NewLocalSigner(base58.Encode(key))
	if err != nil {
		t.Fatalf("NewLocalSigner() error: %v", err)
	}

	signed, err := signer.Sign(context.Background(), unsignedTx(t, signer.PublicKey()))
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	tx, err := solana.ParseTransaction(signed)
	if err != nil {
		t.Fatal(err)
	}
	if !tx.IsSigned() {
		t.Error("transaction should be signed")
	}
	if err := tx.VerifySignatures(); err != nil {
		t.Error(err)
	}
}

func TestLocalSigner_SignMessage(t *testing.T) {
	signer := NewLocalSignerFromKey(newKey(t))
	msg := []byte("Sign in to Nova Arcade Glitch")

	sig := signer.SignMessage(msg)
	pk := signer.PublicKey()
	if !ed25519.Verify(pk[:], msg, sig) {
		t.Error("message signature does not verify")
	}
}

func TestLocalSigner_NotSigner(t *testing.T) {
	signer := NewLocalSignerFromKey(newKey(t))
	other := NewLocalSignerFromKey(newKey(t))

	_, err := signer.Sign(context.Background(), unsignedTx(t, other.PublicKey()))
	if !errors.Is(err, solana.ErrNotSigner) {
		t.Errorf("expected ErrNotSigner, got %v", err)
	}
}

func TestApprovalSigner(t *testing.T) {
	wallet := NewLocalSignerFromKey(newKey(t))
	raw := unsignedTx(t, wallet.PublicKey())

	var seen []byte
	signer := NewApprovalSigner(wallet.PublicKey(), func(ctx context.Context, unsigned []byte) ([]byte, error) {
		seen = unsigned
		return wallet.Sign(ctx, unsigned)
	})

	signed, err := signer.Sign(context.Background(), raw)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if !bytes.Equal(seen, raw) {
		t.Error("wallet should receive the unsigned transaction")
	}
	tx, _ := solana.ParseTransaction(signed)
	if !tx.IsSigned() {
		t.Error("expected signed transaction")
	}
}

func TestApprovalSigner_Rejections(t *testing.T) {
	wallet := NewLocalSignerFromKey(newKey(t))
	raw := unsignedTx(t, wallet.PublicKey())

	tests := []struct {
		name    string
		approve ApprovalFunc
		is      error
	}{
		{
			name: "declined",
			approve: func(context.Context, []byte) ([]byte, error) {
				return nil, ErrRejected
			},
			is: ErrRejected,
		},
		{
			name: "unsigned",
			approve: func(_ context.Context, unsigned []byte) ([]byte, error) {
				return unsigned, nil
			},
		},
		{
			name: "message changed",
			approve: func(ctx context.Context, unsigned []byte) ([]byte, error) {
				altered := append([]byte(nil), unsigned...)
				altered[len(altered)-2] ^= 0xff // blockhash byte
				return wallet.Sign(ctx, altered)
			},
		},
		{
			name: "bad signature",
			approve: func(ctx context.Context, unsigned []byte) ([]byte, error) {
				signed, err := wallet.Sign(ctx, unsigned)
				if err != nil {
					return nil, err
				}
				signed[1] ^= 0xff
				return signed, nil
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewApprovalSigner(wallet.PublicKey(), tt.approve).Sign(context.Background(), raw)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("error %v should wrap %v", err, tt.is)
			}
		})
	}
}
