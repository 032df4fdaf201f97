// Package auth verifies that a caller controls the private half of a claimed
// public key. The proof is a detached ed25519 signature over a fixed challenge
// message; the public key arrives in its base58 network encoding.
//
// The challenge is deliberately static: it asserts identity, not freshness,
// and a captured signature remains valid for replay. Deployments that need
// freshness must rotate the challenge out of band.
package auth

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/mr-tron/base58"
)

// SignatureSize is the length of a detached ed25519 signature.
const SignatureSize = ed25519.SignatureSize

// Authenticator verifies detached signatures over a fixed challenge string.
type Authenticator struct {
	challenge []byte
}

// New returns an Authenticator for the given challenge message.
func New(challenge string) *Authenticator {
	return &Authenticator{challenge: []byte(challenge)}
}

// Verify reports whether signature is a valid detached ed25519 signature over
// the challenge under the base58-encoded public key. Any decoding problem
// (bad base58, wrong key or signature length) yields false, never an error:
// the caller treats all failures as an authentication rejection.
func (a *Authenticator) Verify(publicKey string, signature []byte) bool {
	keyBytes, err := base58.Decode(publicKey)
	if err != nil || len(keyBytes) != ed25519.PublicKeySize {
		return false
	}
	if len(signature) != SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(keyBytes), a.challenge, signature)
}

// ParseSignature normalizes the signature representations seen on the wire
// into a raw byte slice. Clients serialize the signature either as a plain
// array of byte values, as a Buffer-style object with a "data" array, or as a
// byte-indexed object ({"0": 27, "1": 113, ...}).
func ParseSignature(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return nil, errors.New("signature is empty")
	}

	var nums []int
	if err := json.Unmarshal(raw, &nums); err == nil {
		return bytesFromInts(nums)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, errors.New("signature is neither an array nor an object")
	}

	if data, ok := obj["data"]; ok {
		if err := json.Unmarshal(data, &nums); err != nil {
			return nil, fmt.Errorf("signature data field: %w", err)
		}
		return bytesFromInts(nums)
	}

	// Byte-indexed object: collect values in ascending numeric key order,
	// matching Object.values ordering in the original clients.
	type kv struct {
		idx int
		val int
	}
	pairs := make([]kv, 0, len(obj))
	for k, v := range obj {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("signature object has non-numeric key %q", k)
		}
		var n int
		if err := json.Unmarshal(v, &n); err != nil {
			return nil, fmt.Errorf("signature byte at %q: %w", k, err)
		}
		pairs = append(pairs, kv{idx: idx, val: n})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].idx < pairs[j].idx })

	nums = nums[:0]
	for _, p := range pairs {
		nums = append(nums, p.val)
	}
	return bytesFromInts(nums)
}

func bytesFromInts(nums []int) ([]byte, error) {
	out := make([]byte, len(nums))
	for i, n := range nums {
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("signature byte %d out of range: %d", i, n)
		}
		out[i] = byte(n)
	}
	return out, nil
}
