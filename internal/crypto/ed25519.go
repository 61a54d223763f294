// Package crypto wraps Ed25519 signature verification for payment
// authorizations.
package crypto

import (
	"crypto/rand"
	"fmt"

	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"
)

const (
	// PublicKeySize is the size of an Ed25519 public key in bytes.
	PublicKeySize = ed25519.PublicKeySize
	// SignatureSize is the size of an Ed25519 signature in bytes.
	SignatureSize = ed25519.SignatureSize
)

// strictVerifyOptions rejects non-canonical signature and key
// encodings and small-order components, with cofactorless
// verification. Matches ed25519-dalek's verify_strict, which is what
// wallets sign against; anything looser re-opens malleability.
var strictVerifyOptions = &ed25519.Options{
	Verify: &ed25519.VerifyOptions{
		AllowSmallOrderA:   false,
		AllowSmallOrderR:   false,
		AllowNonCanonicalA: false,
		AllowNonCanonicalR: false,
		CofactorlessVerify: true,
	},
}

// VerifyStrict reports whether sig is a valid strict Ed25519
// signature over message by publicKey. Malformed keys or signatures
// verify as false, never panic.
func VerifyStrict(publicKey, message, sig []byte) bool {
	if len(publicKey) != PublicKeySize || len(sig) != SignatureSize {
		return false
	}
	return ed25519.VerifyWithOptions(ed25519.PublicKey(publicKey), message, sig, strictVerifyOptions)
}

// GenerateKey produces a fresh Ed25519 keypair.
func GenerateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generating ed25519 key: %w", err)
	}
	return pub, priv, nil
}

// Sign signs message with priv using the plain (non-prehashed)
// Ed25519 scheme.
func Sign(priv ed25519.PrivateKey, message []byte) []byte {
	return ed25519.Sign(priv, message)
}
