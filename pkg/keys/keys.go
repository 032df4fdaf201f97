// Package keys loads and wraps the gateway's signing credential: an ed25519
// keypair in the Solana secret-key layout (64 bytes, seed followed by the
// public key), delivered through the environment as a JSON array of byte
// values. The keypair is parsed once at startup and injected wherever signing
// or address derivation is needed; it is never persisted or logged.
package keys

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// SecretKeySize is the expected length of the raw secret key: a 32-byte
// ed25519 seed concatenated with the 32-byte public key.
const SecretKeySize = ed25519.PrivateKeySize

// Keypair is the process-wide signing credential. It is read-only after
// construction and safe for concurrent use by in-flight requests.
type Keypair struct {
	priv ed25519.PrivateKey
}

// ParseSecretKey parses a secret key serialized as a JSON array of byte
// values (the format wallet tooling exports and the deployment stores in the
// environment). The array must decode to exactly 64 bytes.
func ParseSecretKey(raw string) (*Keypair, error) {
	if raw == "" {
		return nil, errors.New("secret key is empty")
	}

	var bs []byte
	if err := json.Unmarshal([]byte(raw), &bs); err != nil {
		// json.Unmarshal into []byte expects base64; the canonical wallet
		// format is a plain number array, so fall back to that.
		var nums []int
		if err2 := json.Unmarshal([]byte(raw), &nums); err2 != nil {
			return nil, fmt.Errorf("secret key is not a JSON byte array: %w", err2)
		}
		bs = make([]byte, len(nums))
		for i, n := range nums {
			if n < 0 || n > 255 {
				return nil, fmt.Errorf("secret key byte %d out of range: %d", i, n)
			}
			bs[i] = byte(n)
		}
	}

	if len(bs) != SecretKeySize {
		return nil, fmt.Errorf("secret key must be %d bytes, got %d", SecretKeySize, len(bs))
	}

	return &Keypair{priv: ed25519.PrivateKey(bs)}, nil
}

// FromSeed builds a Keypair from a 32-byte ed25519 seed. Used by tests and
// tooling; production loading goes through ParseSecretKey.
func FromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Keypair{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// PublicKey returns the ed25519 public key half of the credential.
func (k *Keypair) PublicKey() ed25519.PublicKey {
	return k.priv.Public().(ed25519.PublicKey)
}

// Address returns the account address on the storage network: the base58
// encoding of the public key.
func (k *Keypair) Address() string {
	return base58.Encode(k.PublicKey())
}

// Sign produces a detached ed25519 signature over msg.
func (k *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.priv, msg)
}
