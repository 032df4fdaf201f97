package bundlr

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"errors"
)

// transaction is the signed envelope posted to the node's /tx endpoint. Owner
// is the raw ed25519 public key of the gateway account; Signature is a
// detached signature over the deterministic digest of (owner, tags, data).
// Byte fields serialize as base64 under encoding/json.
type transaction struct {
	Owner     []byte `json:"owner"`
	Tags      []Tag  `json:"tags"`
	Data      []byte `json:"data"`
	Signature []byte `json:"signature"`
}

// newTransaction builds and signs a content transaction for payload+tags.
func (c *Client) newTransaction(payload []byte, tags []Tag) (*transaction, error) {
	if c.signer == nil {
		return nil, errors.New("no signing credential configured")
	}
	owner := c.signer.PublicKey()
	if len(owner) != ed25519.PublicKeySize {
		return nil, errors.New("signer public key has wrong size")
	}

	tx := &transaction{
		Owner: owner,
		Tags:  tags,
		Data:  payload,
	}
	tx.Signature = c.signer.Sign(tx.digest())
	return tx, nil
}

// digest computes the deterministic byte string covered by the transaction
// signature. Every variable-length field is length-prefixed so that distinct
// (tags, data) combinations can never collide.
func (tx *transaction) digest() []byte {
	h := sha256.New()

	writeField := func(b []byte) {
		var lenBuf [8]byte
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(b)))
		h.Write(lenBuf[:])
		h.Write(b)
	}

	writeField(tx.Owner)

	var countBuf [8]byte
	binary.BigEndian.PutUint64(countBuf[:], uint64(len(tx.Tags)))
	h.Write(countBuf[:])
	for _, tag := range tx.Tags {
		writeField([]byte(tag.Name))
		writeField([]byte(tag.Value))
	}

	writeField(tx.Data)
	return h.Sum(nil)
}

// verify reports whether the transaction signature is valid under its owner
// key. The node performs the same check on submission; exposed here for tests.
func (tx *transaction) verify() bool {
	if len(tx.Owner) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(tx.Owner), tx.digest(), tx.Signature)
}
