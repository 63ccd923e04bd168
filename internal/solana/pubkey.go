package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKeyLength is the size of a Solana public key.
const PublicKeyLength = 32

// MaxSeedLength is the maximum length of a single PDA seed.
const MaxSeedLength = 32

const pdaMarker = "ProgramDerivedAddress"

// ErrInvalidSeeds is returned when a seed set cannot form a program address.
var ErrInvalidSeeds = errors.New("invalid seeds, address must fall off the curve")

// PublicKey is a 32-byte ed25519 public key or program address.
type PublicKey [PublicKeyLength]byte

// ParsePublicKey decodes a base58 address.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	b, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("decode public key %q: %w", s, err)
	}
	if len(b) != PublicKeyLength {
		return pk, fmt.Errorf("public key %q: got %d bytes, want %d", s, len(b), PublicKeyLength)
	}
	copy(pk[:], b)
	return pk, nil
}

// MustParsePublicKey is like ParsePublicKey but panics on error.
func MustParsePublicKey(s string) PublicKey {
	pk, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// String returns the base58 encoding.
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// IsOnCurve reports whether pk decodes to a valid ed25519 point.
func (pk PublicKey) IsOnCurve() bool {
	return IsOnCurve(pk[:])
}

// IsOnCurve reports whether b is a valid compressed ed25519 point.
func IsOnCurve(b []byte) bool {
	if len(b) != PublicKeyLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// IsWalletAddress reports whether s is a base58 key on the ed25519 curve,
// i.e. an address that can sign.
func IsWalletAddress(s string) bool {
	pk, err := ParsePublicKey(s)
	if err != nil {
		return false
	}
	return pk.IsOnCurve()
}

// CreateProgramAddress derives a program address from seeds that
// already include the bump.
// Formula: SHA256(seeds...|programID|"ProgramDerivedAddress"), must be off curve.
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, error) {
	h := sha256.New()
	for _, s := range seeds {
		if len(s) > MaxSeedLength {
			return PublicKey{}, fmt.Errorf("seed length %d exceeds %d", len(s), MaxSeedLength)
		}
		h.Write(s)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var pk PublicKey
	copy(pk[:], h.Sum(nil))
	if pk.IsOnCurve() {
		return PublicKey{}, ErrInvalidSeeds
	}
	return pk, nil
}

// FindProgramAddress searches bumps from 255 down for the first seed set
// that yields an off-curve address.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		pk, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return pk, uint8(bump), nil
		}
		if !errors.Is(err, ErrInvalidSeeds) {
			return PublicKey{}, 0, err
		}
	}
	return PublicKey{}, 0, errors.New("unable to find a viable program address bump")
}
