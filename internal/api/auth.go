package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"nova-arcade/internal/auth"
)

// ChainSolana is the only chain accepted by the nonce flow.
const ChainSolana = "solana"

type addressKey struct{}

// VerifyRequest is the body of POST /api/auth/verify. A request with a
// message answers a challenge; one with chain and address answers the
// nonce issued by POST /api/auth/nonce.
type VerifyRequest struct {
	PublicKey string `json:"publicKey,omitempty"`
	Signature string `json:"signature"`
	Message   string `json:"message,omitempty"`

	Chain   string `json:"chain,omitempty"`
	Address string `json:"address,omitempty"`
}

// NonceRequest is the body of POST /api/auth/nonce.
type NonceRequest struct {
	Address string `json:"address"`
}

// NonceResponse carries the nonce to sign as-is.
type NonceResponse struct {
	Nonce   string `json:"nonce"`
	Expires string `json:"expires"` // RFC 3339
}

// VerifyResponse carries the session token.
type VerifyResponse struct {
	Token   string `json:"token"`
	Address string `json:"address"`
}

func (s *Server) handleChallenge(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Auth == nil {
		writeError(w, http.StatusServiceUnavailable, "sign-in unavailable")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Auth.Challenge())
}

func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request) {
	if s.deps.Auth == nil {
		writeError(w, http.StatusServiceUnavailable, "sign-in unavailable")
		return
	}
	var req NonceRequest
	if err := decodeJSON(r, &req); err != nil || req.Address == "" {
		writeError(w, http.StatusBadRequest, "address required")
		return
	}
	nonce, expires, err := s.deps.Auth.AddressNonce(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	writeJSON(w, http.StatusOK, NonceResponse{Nonce: nonce, Expires: expires.UTC().Format(time.RFC3339)})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if s.deps.Auth == nil {
		writeError(w, http.StatusServiceUnavailable, "sign-in unavailable")
		return
	}
	var req VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		token   string
		address string
		err     error
	)
	switch {
	case req.Message != "" && req.PublicKey != "" && req.Signature != "":
		address = req.PublicKey
		token, err = s.deps.Auth.Verify(req.PublicKey, req.Signature, req.Message)
	case req.Message == "" && req.Chain != "" && req.Address != "" && req.Signature != "":
		if req.Chain != ChainSolana {
			writeError(w, http.StatusBadRequest, "unsupported_chain")
			return
		}
		address = req.Address
		token, err = s.deps.Auth.VerifyAddress(req.Address, req.Signature)
	default:
		writeError(w, http.StatusBadRequest, "missing params")
		return
	}

	switch {
	case errors.Is(err, auth.ErrUnknownChallenge):
		writeError(w, http.StatusBadRequest, "nonce_invalid")
		return
	case errors.Is(err, auth.ErrInvalidSignature):
		writeError(w, http.StatusUnauthorized, "invalid_signature")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{Token: token, Address: address})
}

// requireAuth admits requests with a valid bearer session token and
// stores the wallet address in the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "missing_auth")
			return
		}
		if s.deps.Auth == nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		address, err := s.deps.Auth.ParseToken(strings.TrimSpace(token))
		if err != nil {
			s.log.Debugf("rejected session token: %v", err)
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), addressKey{}, address)))
	}
}

// authAddress returns the address set by requireAuth.
func authAddress(ctx context.Context) string {
	addr, _ := ctx.Value(addressKey{}).(string)
	return addr
}
