package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// SignatureLength is the size of an ed25519 signature.
const SignatureLength = 64

// LegacyVersion marks a message without a version prefix.
const LegacyVersion = -1

// ErrNotSigner is returned when a key is not among the required signers.
var ErrNotSigner = errors.New("key is not a required signer")

// MessageHeader is the three-byte message header.
type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// Transaction is a wire-format transaction. Only the parts needed to
// sign are decoded; the message bytes are kept verbatim.
type Transaction struct {
	Signatures  [][SignatureLength]byte
	Message     []byte
	Header      MessageHeader
	AccountKeys []PublicKey // static keys only
	Version     int
}

// ParseTransactionBase64 decodes a base64 wire transaction.
func ParseTransactionBase64(s string) (*Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode transaction base64: %w", err)
	}
	return ParseTransaction(raw)
}

// ParseTransaction decodes a legacy or versioned wire transaction.
func ParseTransaction(raw []byte) (*Transaction, error) {
	numSigs, n, err := DecodeCompactU16(raw)
	if err != nil {
		return nil, fmt.Errorf("signature count: %w", err)
	}
	off := n
	if len(raw) < off+numSigs*SignatureLength {
		return nil, fmt.Errorf("transaction truncated: %d signatures need %d bytes", numSigs, numSigs*SignatureLength)
	}

	tx := &Transaction{Signatures: make([][SignatureLength]byte, numSigs)}
	for i := range tx.Signatures {
		copy(tx.Signatures[i][:], raw[off:off+SignatureLength])
		off += SignatureLength
	}
	tx.Message = append([]byte(nil), raw[off:]...)

	if err := tx.parseMessage(); err != nil {
		return nil, err
	}
	if int(tx.Header.NumRequiredSignatures) != numSigs {
		return nil, fmt.Errorf("message requires %d signatures, transaction has %d slots",
			tx.Header.NumRequiredSignatures, numSigs)
	}
	return tx, nil
}

func (tx *Transaction) parseMessage() error {
	msg := tx.Message
	if len(msg) == 0 {
		return errors.New("empty message")
	}

	off := 0
	tx.Version = LegacyVersion
	if msg[0]&0x80 != 0 {
		tx.Version = int(msg[0] & 0x7f)
		off++
	}
	if len(msg) < off+3 {
		return errors.New("message header truncated")
	}
	tx.Header = MessageHeader{
		NumRequiredSignatures:       msg[off],
		NumReadonlySignedAccounts:   msg[off+1],
		NumReadonlyUnsignedAccounts: msg[off+2],
	}
	off += 3

	numKeys, n, err := DecodeCompactU16(msg[off:])
	if err != nil {
		return fmt.Errorf("account key count: %w", err)
	}
	off += n
	if len(msg) < off+numKeys*PublicKeyLength {
		return fmt.Errorf("message truncated: %d account keys", numKeys)
	}
	if numKeys < int(tx.Header.NumRequiredSignatures) {
		return fmt.Errorf("message has %d keys but %d signers", numKeys, tx.Header.NumRequiredSignatures)
	}

	tx.AccountKeys = make([]PublicKey, numKeys)
	for i := range tx.AccountKeys {
		copy(tx.AccountKeys[i][:], msg[off:off+PublicKeyLength])
		off += PublicKeyLength
	}
	return nil
}

// SignerIndex returns the signature slot of pk.
func (tx *Transaction) SignerIndex(pk PublicKey) (int, error) {
	for i := 0; i < int(tx.Header.NumRequiredSignatures); i++ {
		if tx.AccountKeys[i] == pk {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%s: %w", pk, ErrNotSigner)
}

// Sign signs the message with key and stores the signature in the
// key's slot. Other signatures are left untouched.
func (tx *Transaction) Sign(key ed25519.PrivateKey) error {
	var pk PublicKey
	copy(pk[:], key.Public().(ed25519.PublicKey))

	idx, err := tx.SignerIndex(pk)
	if err != nil {
		return err
	}
	copy(tx.Signatures[idx][:], ed25519.Sign(key, tx.Message))
	return nil
}

// IsSigned reports whether every signature slot is populated.
func (tx *Transaction) IsSigned() bool {
	var zero [SignatureLength]byte
	for _, s := range tx.Signatures {
		if s == zero {
			return false
		}
	}
	return len(tx.Signatures) > 0
}

// VerifySignatures checks every populated signature against its signer.
func (tx *Transaction) VerifySignatures() error {
	var zero [SignatureLength]byte
	for i, s := range tx.Signatures {
		if s == zero {
			continue
		}
		if !ed25519.Verify(tx.AccountKeys[i][:], tx.Message, s[:]) {
			return fmt.Errorf("signature %d does not verify for %s", i, tx.AccountKeys[i])
		}
	}
	return nil
}

// ID returns the base58 first signature, which names the transaction.
func (tx *Transaction) ID() string {
	if len(tx.Signatures) == 0 {
		return ""
	}
	return base58.Encode(tx.Signatures[0][:])
}

// Serialize encodes the transaction in wire format.
func (tx *Transaction) Serialize() []byte {
	var buf bytes.Buffer
	buf.Write(EncodeCompactU16(len(tx.Signatures)))
	for _, s := range tx.Signatures {
		buf.Write(s[:])
	}
	buf.Write(tx.Message)
	return buf.Bytes()
}

// Base64 encodes the wire transaction as base64.
func (tx *Transaction) Base64() string {
	return base64.StdEncoding.EncodeToString(tx.Serialize())
}

// EncodeCompactU16 encodes v using the shortvec format.
func EncodeCompactU16(v int) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

// DecodeCompactU16 decodes a shortvec value and returns it with the
// number of bytes consumed.
func DecodeCompactU16(b []byte) (int, int, error) {
	v := 0
	for i := 0; i < 3; i++ {
		if i >= len(b) {
			return 0, 0, errors.New("compact-u16 truncated")
		}
		v |= int(b[i]&0x7f) << (7 * i)
		if b[i]&0x80 == 0 {
			if v > 0xffff {
				return 0, 0, errors.New("compact-u16 overflow")
			}
			return v, i + 1, nil
		}
	}
	return 0, 0, errors.New("compact-u16 too long")
}

// KeypairFromBase58 decodes a 64-byte secret key (seed followed by
// public key) as exported by common wallets.
func KeypairFromBase58(s string) (ed25519.PrivateKey, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}
	switch len(b) {
	case ed25519.PrivateKeySize:
		key := ed25519.PrivateKey(b)
		derived := ed25519.NewKeyFromSeed(b[:ed25519.SeedSize])
		if !bytes.Equal(derived[ed25519.SeedSize:], b[ed25519.SeedSize:]) {
			return nil, errors.New("secret key public half does not match seed")
		}
		return key, nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(b), nil
	default:
		return nil, fmt.Errorf("secret key has %d bytes, want %d or %d", len(b), ed25519.SeedSize, ed25519.PrivateKeySize)
	}
}
