package near

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

const ed25519Prefix = "ed25519:"

// KeyPair is an ed25519 signing key in NEAR's encoding.
type KeyPair struct {
	pub  [32]byte
	priv ed25519.PrivateKey
}

// ParseKey decodes a NEAR secret key of the form "ed25519:<base58>". Both the
// 64-byte expanded form and the 32-byte seed form are accepted.
func ParseKey(encoded string) (*KeyPair, error) {
	raw := strings.TrimPrefix(encoded, ed25519Prefix)
	data, err := base58.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("malformed secret key: %w", err)
	}

	var priv ed25519.PrivateKey
	switch len(data) {
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(data)
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(data)
	default:
		return nil, fmt.Errorf("secret key has %d bytes, want %d or %d", len(data), ed25519.SeedSize, ed25519.PrivateKeySize)
	}

	kp := &KeyPair{priv: priv}
	copy(kp.pub[:], priv.Public().(ed25519.PublicKey))
	return kp, nil
}

// PublicKey returns the key in the protocol's borsh representation.
func (k *KeyPair) PublicKey() PublicKey {
	return PublicKey{KeyType: 0, Data: k.pub}
}

// EncodedPublicKey returns the "ed25519:<base58>" form used by the RPC API.
func (k *KeyPair) EncodedPublicKey() string {
	return ed25519Prefix + base58.Encode(k.pub[:])
}

func (k *KeyPair) sign(msg []byte) (sig [64]byte) {
	copy(sig[:], ed25519.Sign(k.priv, msg))
	return sig
}

// Signer couples an account with the key it signs under.
type Signer struct {
	AccountID string
	Key       *KeyPair
}

func NewSigner(accountID, secretKey string) (*Signer, error) {
	if accountID == "" {
		return nil, fmt.Errorf("signer account id is required")
	}
	key, err := ParseKey(secretKey)
	if err != nil {
		return nil, err
	}
	return &Signer{AccountID: accountID, Key: key}, nil
}
