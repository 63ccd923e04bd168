package domain

// WaitlistEntry is a Battle Arena waitlist signup.
// Append-only, unique by email.
type WaitlistEntry struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	WalletAddress string `json:"walletAddress"`
	Source        string `json:"source"`
	Timestamp     int64  `json:"timestamp"` // ms
}

// WaitlistOutcome is the result of a waitlist submission.
type WaitlistOutcome string

const (
	WaitlistSuccess   WaitlistOutcome = "success"
	WaitlistDuplicate WaitlistOutcome = "duplicate"
	WaitlistError     WaitlistOutcome = "error"
)

// NotConnectedWallet is stored when a signup has no wallet.
const NotConnectedWallet = "Not connected"
