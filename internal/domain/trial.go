package domain

import "time"

// Trial limits.
const (
	MaxTrials        = 3
	TrialResetWindow = 24 * time.Hour
)

// TrialRecord tracks free plays for one identity (wallet address or device ID).
// Stored under key nova_trials_<identity>.
type TrialRecord struct {
	Count         int       `json:"count"`                   // trials consumed in current window
	LastUsed      int64     `json:"lastUsed"`                // last trial use (ms)
	DeviceID      string    `json:"deviceId,omitempty"`      // fingerprint of the device that played
	IPFingerprint string    `json:"ipFingerprint,omitempty"` // optional network fingerprint
	Games         []GameUse `json:"games,omitempty"`         // per-play history
}

// GameUse is a single trial play.
type GameUse struct {
	GameID    string `json:"gameId"`
	Timestamp int64  `json:"timestamp"` // ms
}

// Expired reports whether the reset window has elapsed since LastUsed.
func (r *TrialRecord) Expired(now time.Time) bool {
	return now.UnixMilli()-r.LastUsed >= TrialResetWindow.Milliseconds()
}

// Remaining returns trials left, never negative.
func (r *TrialRecord) Remaining() int {
	if r == nil {
		return MaxTrials
	}
	if r.Count >= MaxTrials {
		return 0
	}
	return MaxTrials - r.Count
}

// AccessLevel summarizes what a user may do.
type AccessLevel string

const (
	AccessUnlimited AccessLevel = "unlimited"
	AccessTrial     AccessLevel = "trial"
	AccessBlocked   AccessLevel = "blocked"
)

// TrialStatus is the gate decision for an identity.
type TrialStatus struct {
	CanPlay         bool            `json:"canPlay"`
	TrialsRemaining int             `json:"trialsRemaining"`
	HasTokens       bool            `json:"hasTokens"`
	IsTrialUser     bool            `json:"isTrialUser"`
	AccessLevel     AccessLevel     `json:"accessLevel"`
	Token           TokenGateStatus `json:"token"`
}

// TrialInfo describes trial usage for display.
type TrialInfo struct {
	Used      int   `json:"used"`
	Remaining int   `json:"remaining"`
	Total     int   `json:"total"`
	ResetAt   int64 `json:"resetAt,omitempty"` // ms, zero when no record
}
