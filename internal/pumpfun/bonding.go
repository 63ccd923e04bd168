package pumpfun

import (
	"fmt"

	"nova-arcade/internal/solana"
)

// ProgramID is the pump.fun bonding-curve program on mainnet.
const ProgramID = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

var programKey = solana.MustParsePublicKey(ProgramID)

// bondingCurveSeed prefixes the curve PDA seeds.
var bondingCurveSeed = []byte("bonding-curve")

// BondingCurveAddress derives the curve account of mint:
// PDA(["bonding-curve", mint], ProgramID).
func BondingCurveAddress(mint string) (solana.PublicKey, error) {
	mintKey, err := solana.ParsePublicKey(mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	addr, _, err := solana.FindProgramAddress([][]byte{bondingCurveSeed, mintKey[:]}, programKey)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("bonding curve of %s: %w", mint, err)
	}
	return addr, nil
}
