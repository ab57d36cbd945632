package near

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/near/borsh-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) (*KeyPair, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	kp, err := ParseKey("ed25519:" + base58.Encode(priv))
	require.NoError(t, err)
	return kp, pub
}

func TestParseKeySeedAndExpandedAgree(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	expanded, err := ParseKey("ed25519:" + base58.Encode(priv))
	require.NoError(t, err)

	seed, err := ParseKey("ed25519:" + base58.Encode(priv.Seed()))
	require.NoError(t, err)

	assert.Equal(t, expanded.EncodedPublicKey(), seed.EncodedPublicKey())
}

func TestParseKeyRejectsGarbage(t *testing.T) {
	_, err := ParseKey("ed25519:not-base58-0OIl")
	assert.Error(t, err)

	_, err = ParseKey("ed25519:" + base58.Encode([]byte{1, 2, 3}))
	assert.Error(t, err)
}

func TestU128RoundTrip(t *testing.T) {
	tenNear := new(big.Int)
	tenNear.SetString("10000000000000000000000000", 10)

	maxU128 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

	for _, v := range []*big.Int{big.NewInt(0), big.NewInt(1), tenNear, maxU128} {
		u, err := NewU128(v)
		require.NoError(t, err)
		assert.Equal(t, 0, u.Big().Cmp(v), "value %s", v)
	}
}

func TestU128Bounds(t *testing.T) {
	_, err := NewU128(big.NewInt(-1))
	assert.Error(t, err)

	tooBig := new(big.Int).Lsh(big.NewInt(1), 128)
	_, err = NewU128(tooBig)
	assert.Error(t, err)
}

func TestSignTransactionRoundTrip(t *testing.T) {
	kp, pub := generateKey(t)

	deposit := new(big.Int)
	deposit.SetString("10000000000000000000000000", 10)
	action, err := NewFunctionCall("deposit", []byte(`{}`), 200_000_000_000_000, deposit)
	require.NoError(t, err)

	tx := Transaction{
		SignerID:   "bob.testnet",
		PublicKey:  kp.PublicKey(),
		Nonce:      7,
		ReceiverID: "slots.testnet",
		Actions:    []Action{action},
	}
	copy(tx.BlockHash[:], []byte("0123456789abcdef0123456789abcdef"))

	signedTx, err := SignTransaction(tx, kp)
	require.NoError(t, err)

	var decoded SignedTransaction
	require.NoError(t, borsh.Deserialize(&decoded, signedTx))

	assert.Equal(t, tx.SignerID, decoded.Transaction.SignerID)
	assert.Equal(t, tx.ReceiverID, decoded.Transaction.ReceiverID)
	assert.Equal(t, tx.Nonce, decoded.Transaction.Nonce)
	require.Len(t, decoded.Transaction.Actions, 1)
	fc := decoded.Transaction.Actions[0].FunctionCall
	assert.Equal(t, "deposit", fc.MethodName)
	assert.Equal(t, 0, fc.Deposit.Big().Cmp(deposit))

	// The signature must cover the sha256 of the borsh transaction.
	payload, err := borsh.Serialize(decoded.Transaction)
	require.NoError(t, err)
	hash := sha256.Sum256(payload)
	assert.True(t, ed25519.Verify(pub, hash[:], decoded.Signature.Data[:]))
}
