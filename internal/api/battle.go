package api

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"nova-arcade/internal/arena"
	"nova-arcade/internal/domain"
	"nova-arcade/internal/storage"
	"nova-arcade/internal/waitlist"
)

// WaitlistRequest is the body of POST /api/battle-arena/waitlist.
type WaitlistRequest struct {
	Email         string `json:"email"`
	WalletAddress string `json:"walletAddress"`
	Source        string `json:"source"`
}

// WaitlistAdminResponse lists every signup, newest first.
type WaitlistAdminResponse struct {
	Waitlist []*domain.WaitlistEntry `json:"waitlist"`
	Count    int                     `json:"count"`
}

// DemoEnterResponse is the body of a successful demo entry.
type DemoEnterResponse struct {
	Success       bool   `json:"success"`
	CompetitionID string `json:"competition_id"`
	Message       string `json:"message"`
}

func (s *Server) handleWaitlistJoin(w http.ResponseWriter, r *http.Request) {
	if s.deps.Waitlist == nil {
		writeError(w, http.StatusServiceUnavailable, "waitlist unavailable")
		return
	}
	var req WaitlistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}

	_, err := s.deps.Waitlist.Join(r.Context(), req.Email, req.WalletAddress, req.Source)
	switch {
	case errors.Is(err, waitlist.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "invalid email")
	case errors.Is(err, storage.ErrDuplicateKey):
		writeJSON(w, http.StatusConflict, map[string]any{"success": false, "message": "Already on waitlist"})
	case err != nil:
		s.log.Errorf("waitlist join: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to join waitlist")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Added to waitlist"})
	}
}

// WaitlistStatsResponse is the public waitlist count.
type WaitlistStatsResponse struct {
	Total   int    `json:"total"`
	Message string `json:"message"`
}

func (s *Server) handleWaitlistStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Waitlist == nil {
		writeError(w, http.StatusServiceUnavailable, "waitlist unavailable")
		return
	}
	entries, err := s.deps.Waitlist.List(r.Context())
	if err != nil {
		s.log.Errorf("waitlist stats: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get stats")
		return
	}
	stats := waitlist.ComputeStats(entries, time.Now())
	writeJSON(w, http.StatusOK, WaitlistStatsResponse{
		Total:   stats.Total,
		Message: fmt.Sprintf("%d users waiting for Battle Arena launch!", stats.Total),
	})
}

func (s *Server) handleWaitlistAdmin(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("x-admin-key")
	if s.adminSecret == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminSecret)) != 1 {
		writeError(w, http.StatusForbidden, "unauthorized")
		return
	}
	if s.deps.Waitlist == nil {
		writeError(w, http.StatusServiceUnavailable, "waitlist unavailable")
		return
	}

	entries, err := s.deps.Waitlist.List(r.Context())
	if err != nil {
		s.log.Errorf("waitlist list: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load waitlist")
		return
	}
	if entries == nil {
		entries = []*domain.WaitlistEntry{}
	}
	writeJSON(w, http.StatusOK, WaitlistAdminResponse{Waitlist: entries, Count: len(entries)})
}

func (s *Server) handleDemoEnter(w http.ResponseWriter, r *http.Request) {
	if s.deps.Demo == nil {
		writeError(w, http.StatusServiceUnavailable, "demo unavailable")
		return
	}
	var req arena.EntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "missing_params")
		return
	}

	c, err := s.deps.Demo.Enter(r.Context(), authAddress(r.Context()), req)
	if errors.Is(err, arena.ErrMissingParams) {
		writeError(w, http.StatusBadRequest, "missing_params")
		return
	}
	if err != nil {
		s.log.Errorf("demo entry: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to record demo entry")
		return
	}
	writeJSON(w, http.StatusOK, DemoEnterResponse{
		Success:       true,
		CompetitionID: c.ID,
		Message:       "Demo entry recorded successfully",
	})
}

func (s *Server) handleDemoStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Demo == nil {
		writeError(w, http.StatusServiceUnavailable, "demo unavailable")
		return
	}
	stats, err := s.deps.Demo.Stats(r.Context())
	if err != nil {
		s.log.Errorf("demo stats: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

func (s *Server) handleDemoHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.Demo == nil {
		writeError(w, http.StatusServiceUnavailable, "demo unavailable")
		return
	}
	history, err := s.deps.Demo.History(r.Context(), authAddress(r.Context()))
	if err != nil {
		s.log.Errorf("demo history: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if history == nil {
		history = []*domain.CompetitionEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}
