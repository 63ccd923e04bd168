package swap

import (
	"errors"
	"strings"
)

// ErrRejected is returned by signers when the wallet owner declines.
var ErrRejected = errors.New("User rejected the request")

// ErrTransactionFailed wraps an on-chain execution error.
var ErrTransactionFailed = errors.New("transaction failed")

// UserMessage maps a quote or swap error to a message for the player.
// symbol names the output token in "not found" messages.
func UserMessage(err error, symbol string) string {
	if err == nil {
		return ""
	}
	msg := err.Error()

	switch {
	case strings.Contains(msg, "User rejected"):
		return "Transaction cancelled."
	case strings.Contains(msg, "No routes found"),
		strings.Contains(msg, "Token not found"),
		strings.Contains(msg, "COULD_NOT_FIND_ANY_ROUTE"):
		if symbol == "" {
			return "Token not found on Jupiter"
		}
		return symbol + " token not found on Jupiter"
	case strings.Contains(msg, "Insufficient liquidity"):
		return "Insufficient liquidity. Try a smaller amount."
	case strings.Contains(msg, "insufficient funds"),
		strings.Contains(msg, "insufficient lamports"):
		return "Insufficient balance for this swap."
	case strings.Contains(strings.ToLower(msg), "blockhash"):
		return "Quote expired. Please refresh and try again."
	case strings.Contains(msg, "400"):
		return "Invalid token pair or amount. Try different tokens."
	}

	if r := []rune(msg); len(r) > 100 {
		msg = string(r[:100])
	}
	return "Quote failed: " + msg
}
