package swap

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"

	"nova-arcade/internal/solana"
)

// Signer signs serialized swap transactions.
type Signer interface {
	PublicKey() solana.PublicKey
	// Sign returns the wire transaction with the signer's slot filled.
	Sign(ctx context.Context, tx []byte) ([]byte, error)
}

// LocalSigner signs with a keypair held in process.
type LocalSigner struct {
	key ed25519.PrivateKey
	pub solana.PublicKey
}

// NewLocalSigner decodes a base58 secret key.
func NewLocalSigner(secretBase58 string) (*LocalSigner, error) {
	key, err := solana.KeypairFromBase58(secretBase58)
	if err != nil {
		return nil, err
	}
	return NewLocalSignerFromKey(key), nil
}

// NewLocalSignerFromKey wraps an ed25519 private key.
func NewLocalSignerFromKey(key ed25519.PrivateKey) *LocalSigner {
	s := &LocalSigner{key: key}
	copy(s.pub[:], key.Public().(ed25519.PublicKey))
	return s
}

func (s *LocalSigner) PublicKey() solana.PublicKey { return s.pub }

// SignMessage signs an off-chain message such as a sign-in challenge.
func (s *LocalSigner) SignMessage(msg []byte) []byte {
	return ed25519.Sign(s.key, msg)
}

func (s *LocalSigner) Sign(_ context.Context, raw []byte) ([]byte, error) {
	tx, err := solana.ParseTransaction(raw)
	if err != nil {
		return nil, err
	}
	if err := tx.Sign(s.key); err != nil {
		return nil, err
	}
	return tx.Serialize(), nil
}

// ApprovalFunc hands an unsigned transaction to the wallet owner and
// returns it signed. It should return ErrRejected when declined.
type ApprovalFunc func(ctx context.Context, unsigned []byte) ([]byte, error)

// ApprovalSigner delegates signing to an interactive wallet.
type ApprovalSigner struct {
	pub     solana.PublicKey
	approve ApprovalFunc
}

// NewApprovalSigner creates a signer for pub backed by approve.
func NewApprovalSigner(pub solana.PublicKey, approve ApprovalFunc) *ApprovalSigner {
	return &ApprovalSigner{pub: pub, approve: approve}
}

func (s *ApprovalSigner) PublicKey() solana.PublicKey { return s.pub }

// Sign checks that the wallet signed the same message in its own slot.
func (s *ApprovalSigner) Sign(ctx context.Context, raw []byte) ([]byte, error) {
	unsigned, err := solana.ParseTransaction(raw)
	if err != nil {
		return nil, err
	}
	idx, err := unsigned.SignerIndex(s.pub)
	if err != nil {
		return nil, err
	}

	signedRaw, err := s.approve(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("wallet approval: %w", err)
	}

	signed, err := solana.ParseTransaction(signedRaw)
	if err != nil {
		return nil, fmt.Errorf("wallet returned invalid transaction: %w", err)
	}
	if !bytes.Equal(signed.Message, unsigned.Message) {
		return nil, errors.New("wallet changed the transaction message")
	}
	var zero [solana.SignatureLength]byte
	if signed.Signatures[idx] == zero {
		return nil, errors.New("wallet did not sign the transaction")
	}
	if err := signed.VerifySignatures(); err != nil {
		return nil, err
	}
	return signedRaw, nil
}

var (
	_ Signer = (*LocalSigner)(nil)
	_ Signer = (*ApprovalSigner)(nil)
)
