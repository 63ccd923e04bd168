package domain

// TokenGateStatus is the result of a token balance check.
// Derived on every call, never persisted.
type TokenGateStatus struct {
	HasAccess       bool    `json:"hasAccess"`
	Balance         float64 `json:"balance"`         // ui amount
	MinimumRequired float64 `json:"minimumRequired"` // ui amount
	TokenMint       string  `json:"tokenMint"`
}
