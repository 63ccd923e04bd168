package idhash

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// ComputeSessionToken computes a play session token.
// Formula: SHA256(user_id_game_id_nowMillis_nonce), hex-encoded (64 characters).
func ComputeSessionToken(userID int64, gameID string, nowMillis int64, nonce string) string {
	data := fmt.Sprintf("%d_%s_%d_%s", userID, gameID, nowMillis, nonce)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// RandomNonce returns a random base-36 string of up to 11 characters.
func RandomNonce() (string, error) {
	max := new(big.Int).Exp(big.NewInt(36), big.NewInt(11), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return n.Text(36), nil
}
