package api

import (
	"errors"
	"net/http"
	"strconv"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/idhash"
	"nova-arcade/internal/solana"
	"nova-arcade/internal/trial"
)

// BalanceCheckResponse is the body of GET /api/balance/check/....
type BalanceCheckResponse struct {
	Balance  float64 `json:"balance"`
	IsHolder bool    `json:"is_holder"`
}

// GateStatusResponse is the body of GET /api/gate/status.
type GateStatusResponse struct {
	Identity string             `json:"identity"`
	Status   domain.TrialStatus `json:"status"`
	Info     domain.TrialInfo   `json:"info"`
}

// UseTrialRequest is the body of POST /api/gate/trial.
type UseTrialRequest struct {
	Wallet   string `json:"wallet,omitempty"`
	DeviceID string `json:"deviceId,omitempty"`
	GameID   string `json:"gameId"`
}

// UseTrialResponse reports whether play was admitted.
type UseTrialResponse struct {
	Allowed bool               `json:"allowed"`
	Status  domain.TrialStatus `json:"status"`
}

// identity builds the gate identity. Requests without a device ID get one
// derived from their headers.
func identity(r *http.Request, wallet, deviceID string) trial.Identity {
	if deviceID == "" {
		deviceID = idhash.DeviceIDFromRequest(r)
	}
	return trial.Identity{
		Wallet:        wallet,
		DeviceID:      deviceID,
		IPFingerprint: idhash.IPFingerprint(r),
	}
}

func (s *Server) handleGateStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Gate == nil {
		writeError(w, http.StatusServiceUnavailable, "gate unavailable")
		return
	}
	q := r.URL.Query()
	id := identity(r, q.Get("wallet"), q.Get("deviceId"))

	status, err := s.deps.Gate.CheckTrialStatus(r.Context(), id)
	if err != nil {
		s.gateError(w, err)
		return
	}
	info, err := s.deps.Gate.TrialInfo(r.Context(), id)
	if err != nil {
		s.log.Warnf("%s: trial info: %v", id.Key(), err)
		info = domain.TrialInfo{Remaining: status.TrialsRemaining, Total: domain.MaxTrials}
	}
	writeJSON(w, http.StatusOK, GateStatusResponse{Identity: id.Key(), Status: status, Info: info})
}

func (s *Server) handleUseTrial(w http.ResponseWriter, r *http.Request) {
	if s.deps.Gate == nil {
		writeError(w, http.StatusServiceUnavailable, "gate unavailable")
		return
	}
	var req UseTrialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.GameID == "" {
		writeError(w, http.StatusBadRequest, "gameId is required")
		return
	}
	if _, ok := s.deps.Catalog.Game(req.GameID); !ok {
		writeError(w, http.StatusBadRequest, "unknown game "+req.GameID)
		return
	}
	id := identity(r, req.Wallet, req.DeviceID)

	allowed, err := s.deps.Gate.UseTrial(r.Context(), id, req.GameID)
	if errors.Is(err, trial.ErrNoIdentity) {
		s.gateError(w, err)
		return
	}
	if err != nil {
		// store failures admit the player
		s.log.Warnf("%s: use trial failed, admitting: %v", id.Key(), err)
		allowed = true
	}

	status, err := s.deps.Gate.CheckTrialStatus(r.Context(), id)
	if err != nil {
		s.gateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UseTrialResponse{Allowed: allowed, Status: status})
}

func (s *Server) gateError(w http.ResponseWriter, err error) {
	if errors.Is(err, trial.ErrNoIdentity) {
		writeError(w, http.StatusBadRequest, "wallet or deviceId required")
		return
	}
	s.log.Errorf("gate: %v", err)
	writeError(w, http.StatusInternalServerError, "gate check failed")
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := DefaultActivityLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxActivityLimit)
	}

	events, err := s.deps.Activity.Recent(r.Context(), limit)
	if err != nil {
		s.log.Errorf("activity feed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load activity")
		return
	}
	if events == nil {
		events = []*domain.ActivityEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// handleBalanceCheck reports whether address holds at least the gate
// minimum of token. Like the gate itself it fails closed.
func (s *Server) handleBalanceCheck(w http.ResponseWriter, r *http.Request) {
	if s.deps.Tokens == nil {
		writeError(w, http.StatusServiceUnavailable, "balance check unavailable")
		return
	}
	if r.PathValue("chain") != ChainSolana {
		writeError(w, http.StatusBadRequest, "unsupported_chain")
		return
	}
	address, token := r.PathValue("address"), r.PathValue("token")
	if !solana.IsWalletAddress(address) {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	if _, err := solana.ParsePublicKey(token); err != nil {
		writeError(w, http.StatusBadRequest, "invalid token")
		return
	}

	status := s.deps.Tokens.CheckHolder(r.Context(), address, token)
	writeJSON(w, http.StatusOK, BalanceCheckResponse{Balance: status.Balance, IsHolder: status.HasAccess})
}
