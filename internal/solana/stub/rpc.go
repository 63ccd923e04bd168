package stub

import (
	"context"
	"errors"
	"sync"

	"nova-arcade/internal/solana"
)

// ErrUnavailable simulates a node that cannot be reached.
var ErrUnavailable = errors.New("rpc unavailable")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu sync.Mutex

	TokenAccounts map[string]map[string][]solana.TokenAccount // by program, then owner
	Accounts      map[string]*solana.AccountInfo
	Statuses      map[string]*solana.SignatureStatus
	Sent          []string // base64 transactions in submission order

	// SendSignature is returned by SendTransaction.
	SendSignature string
	// Err, when set, is returned by every call.
	Err error
	// SendErr, when set, is returned by SendTransaction.
	SendErr error
}

var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		TokenAccounts: make(map[string]map[string][]solana.TokenAccount),
		Accounts:      make(map[string]*solana.AccountInfo),
		Statuses:      make(map[string]*solana.SignatureStatus),
		SendSignature: "stubsignature",
	}
}

// GetTokenAccountsByOwner returns the stored accounts of owner under programID.
func (c *RPCClient) GetTokenAccountsByOwner(_ context.Context, owner, programID string) ([]solana.TokenAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return append([]solana.TokenAccount(nil), c.TokenAccounts[programID][owner]...), nil
}

// GetAccountInfo returns the stored account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Accounts[pubkey], nil
}

// SendTransaction records the transaction.
func (c *RPCClient) SendTransaction(_ context.Context, txBase64 string, _ solana.SendOptions) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return "", c.Err
	}
	if c.SendErr != nil {
		return "", c.SendErr
	}
	c.Sent = append(c.Sent, txBase64)
	return c.SendSignature, nil
}

// GetSignatureStatuses returns stored statuses, nil for unknown signatures.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		out[i] = c.Statuses[sig]
	}
	return out, nil
}

// AddTokenAccount adds a token account for owner.
func (c *RPCClient) AddTokenAccount(owner string, acct solana.TokenAccount) {
	c.AddProgramTokenAccount(owner, solana.TokenProgramID, acct)
}

// AddProgramTokenAccount stores a token account of owner under programID.
func (c *RPCClient) AddProgramTokenAccount(owner, programID string, acct solana.TokenAccount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.TokenAccounts[programID] == nil {
		c.TokenAccounts[programID] = make(map[string][]solana.TokenAccount)
	}
	c.TokenAccounts[programID][owner] = append(c.TokenAccounts[programID][owner], acct)
}

// AddAccount stores account info for pubkey.
func (c *RPCClient) AddAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pubkey] = info
}

// SetStatus stores the status of a signature.
func (c *RPCClient) SetStatus(signature string, status *solana.SignatureStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statuses[signature] = status
}

// SentCount returns the number of submitted transactions.
func (c *RPCClient) SentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Sent)
}
