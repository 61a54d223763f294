package domain

import (
	"fmt"
	"time"
)

// Authorization is a signed, nonce-and-expiry-bound consent to a fund
// transfer, produced off-chain by the sender and submitted by a
// sponsoring facilitator. It is never persisted.
type Authorization struct {
	Sender    Address
	Recipient Address
	Amount    uint64
	Nonce     uint64
	Expiry    uint64 // Unix timestamp; valid while now <= Expiry
	Signature []byte // 64-byte Ed25519 signature over SigningMessage
	PublicKey []byte // 32-byte Ed25519 public key of the sender
}

// SigningMessage builds the canonical byte string the sender signs.
// The framing follows the wallet message-signing envelope and must be
// reproduced byte-for-byte for cross-implementation compatibility:
// addresses as 0x-prefixed lowercase hex, integers as decimal ASCII,
// and the nonce repeated in the envelope's trailing "nonce:" line.
func (a Authorization) SigningMessage() []byte {
	return []byte(fmt.Sprintf(
		"APTOS\nmessage: %s:%s:%d:%d:%d\nnonce: %d",
		a.Sender, a.Recipient, a.Amount, a.Nonce, a.Expiry, a.Nonce,
	))
}

// Expired reports whether the authorization's validity window has
// passed at the given instant.
func (a Authorization) Expired(now time.Time) bool {
	return uint64(now.Unix()) > a.Expiry
}

// TransferReceipt records a completed sponsor-paid transfer.
type TransferReceipt struct {
	ReceiptID string
	Sender    Address
	Recipient Address
	Amount    uint64
	Nonce     uint64
	Timestamp time.Time
}
