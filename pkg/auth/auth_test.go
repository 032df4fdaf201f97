package auth

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
)

const testChallenge = "WORDCEL"

func testIdentity(t *testing.T, seedByte byte) (publicKey string, sig []byte) {
	t.Helper()
	priv := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seedByte}, ed25519.SeedSize))
	pub := priv.Public().(ed25519.PublicKey)
	return base58.Encode(pub), ed25519.Sign(priv, []byte(testChallenge))
}

func TestVerify_ValidSignature(t *testing.T) {
	pub, sig := testIdentity(t, 1)
	a := New(testChallenge)
	if !a.Verify(pub, sig) {
		t.Fatal("genuine signature rejected")
	}
}

func TestVerify_MutatedInputs(t *testing.T) {
	pub, sig := testIdentity(t, 1)
	a := New(testChallenge)

	// Any mutated signature byte must fail.
	for i := 0; i < len(sig); i += 7 {
		bad := append([]byte(nil), sig...)
		bad[i] ^= 0x01
		if a.Verify(pub, bad) {
			t.Fatalf("mutated signature byte %d accepted", i)
		}
	}

	// A different key's signature must fail.
	otherPub, otherSig := testIdentity(t, 2)
	if a.Verify(pub, otherSig) {
		t.Fatal("signature from different key accepted")
	}
	if a.Verify(otherPub, sig) {
		t.Fatal("signature verified under wrong key")
	}
}

func TestVerify_MalformedInputs(t *testing.T) {
	_, sig := testIdentity(t, 1)
	a := New(testChallenge)

	tests := []struct {
		name string
		pub  string
		sig  []byte
	}{
		{name: "not base58", pub: "0OIl", sig: sig},
		{name: "wrong key length", pub: base58.Encode([]byte{1, 2, 3}), sig: sig},
		{name: "short signature", pub: mustIdentityKey(t), sig: sig[:10]},
		{name: "empty signature", pub: mustIdentityKey(t), sig: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if a.Verify(tt.pub, tt.sig) {
				t.Fatal("malformed input accepted")
			}
		})
	}
}

func mustIdentityKey(t *testing.T) string {
	pub, _ := testIdentity(t, 1)
	return pub
}

func TestParseSignature_Representations(t *testing.T) {
	_, sig := testIdentity(t, 1)

	arr, err := json.Marshal(byteInts(sig))
	if err != nil {
		t.Fatal(err)
	}

	indexed := indexedObjectJSON(sig)

	tests := []struct {
		name string
		raw  string
	}{
		{name: "plain array", raw: string(arr)},
		{name: "buffer object", raw: fmt.Sprintf(`{"type":"Buffer","data":%s}`, arr)},
		{name: "byte indexed object", raw: indexed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSignature(json.RawMessage(tt.raw))
			if err != nil {
				t.Fatalf("ParseSignature: %v", err)
			}
			if !bytes.Equal(got, sig) {
				t.Fatal("normalized signature differs from original bytes")
			}
		})
	}
}

func TestParseSignature_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "string", raw: `"abc"`},
		{name: "non numeric keys", raw: `{"a":1}`},
		{name: "out of range byte", raw: `[256]`},
		{name: "bad data field", raw: `{"data":"xyz"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSignature(json.RawMessage(tt.raw)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func byteInts(bs []byte) []int {
	out := make([]int, len(bs))
	for i, b := range bs {
		out[i] = int(b)
	}
	return out
}

// indexedObjectJSON renders bytes the way Object.values-style clients send
// them: {"0": 27, "1": 113, ...}.
func indexedObjectJSON(bs []byte) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range bs {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `"%d":%d`, i, v)
	}
	b.WriteByte('}')
	return b.String()
}
