package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efreitasn/escrowbook/internal/crypto"
)

func TestSignAndVerifyStrict(t *testing.T) {
	pub, priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	msg := []byte("APTOS\nmessage: 0x1:0x2:1000:7:1725000000\nnonce: 7")
	sig := crypto.Sign(priv, msg)

	assert.True(t, crypto.VerifyStrict(pub, msg, sig))

	// Mutate the signature, just one bit.
	sig[7] ^= byte(0x01)
	assert.False(t, crypto.VerifyStrict(pub, msg, sig))
}

func TestVerifyStrict_WrongKey(t *testing.T) {
	pub, priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	otherPub, _, err := crypto.GenerateKey()
	require.NoError(t, err)

	msg := []byte("payload")
	sig := crypto.Sign(priv, msg)

	assert.True(t, crypto.VerifyStrict(pub, msg, sig))
	assert.False(t, crypto.VerifyStrict(otherPub, msg, sig))
}

func TestVerifyStrict_WrongMessage(t *testing.T) {
	pub, priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	sig := crypto.Sign(priv, []byte("payload"))
	assert.False(t, crypto.VerifyStrict(pub, []byte("payload2"), sig))
}

func TestVerifyStrict_MalformedInputs(t *testing.T) {
	pub, priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	msg := []byte("payload")
	sig := crypto.Sign(priv, msg)

	assert.False(t, crypto.VerifyStrict(pub[:16], msg, sig), "truncated key")
	assert.False(t, crypto.VerifyStrict(pub, msg, sig[:32]), "truncated signature")
	assert.False(t, crypto.VerifyStrict(nil, msg, nil), "nil inputs")
}

func TestVerifyStrict_NonCanonicalS(t *testing.T) {
	pub, priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	msg := []byte("payload")
	sig := crypto.Sign(priv, msg)

	// Force the scalar half of the signature above the group order.
	// A canonical s always has its top bits clear.
	bad := make([]byte, len(sig))
	copy(bad, sig)
	bad[63] |= 0xe0

	assert.False(t, crypto.VerifyStrict(pub, msg, bad))
}
