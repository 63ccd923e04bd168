package bot

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nova-arcade/internal/domain"
)

// ValidateSessionRequest is the body of POST /validate-session. userId
// may arrive as a number or a string.
type ValidateSessionRequest struct {
	Token  string          `json:"token"`
	UserID json.RawMessage `json:"userId"`
	GameID string          `json:"gameId"`
}

// ValidateSessionResponse is returned by POST /validate-session.
type ValidateSessionResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// TrialStatusResponse is returned by GET /trial-status/{userId}.
type TrialStatusResponse struct {
	Used      int  `json:"used"`
	Remaining int  `json:"remaining"`
	Total     int  `json:"total"`
	HasTrials bool `json:"hasTrials"`
}

// Handler serves the bot API used by the web app, plus the Telegram
// webhook when webhookPath is non-empty.
func (b *Bot) Handler(webhookPath string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /validate-session", b.handleValidateSession)
	mux.HandleFunc("GET /trial-status/{userId}", b.handleTrialStatus)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if webhookPath != "" {
		mux.HandleFunc("POST "+webhookPath, b.handleWebhook)
	}
	return mux
}

func (b *Bot) handleValidateSession(w http.ResponseWriter, r *http.Request) {
	var req ValidateSessionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ValidateSessionResponse{Error: "Invalid request body"})
		return
	}
	userID, ok := parseUserID(req.UserID)
	if req.Token == "" || req.GameID == "" || !ok {
		writeJSON(w, http.StatusBadRequest, ValidateSessionResponse{Error: "Missing parameters"})
		return
	}
	writeJSON(w, http.StatusOK, ValidateSessionResponse{Valid: b.sessions.Validate(req.Token, userID, req.GameID)})
}

func (b *Bot) handleTrialStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("userId"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid userId"})
		return
	}
	info, err := b.gate.TrialInfo(r.Context(), identity(userID))
	if err != nil {
		b.log.Errorf("trial status %d: %v", userID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, TrialStatusResponse{
		Used:      info.Used,
		Remaining: info.Remaining,
		Total:     domain.MaxTrials,
		HasTrials: info.Remaining > 0,
	})
}

// handleWebhook acknowledges immediately and handles the update inline.
func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var u tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
	b.HandleUpdate(r.Context(), u)
}

func parseUserID(raw json.RawMessage) (int64, bool) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
