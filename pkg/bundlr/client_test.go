package bundlr

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wordcelclub/upload-gateway/pkg/keys"
)

func testSigner(t *testing.T) *keys.Keypair {
	t.Helper()
	kp, err := keys.FromSeed(bytes.Repeat([]byte{9}, ed25519.SeedSize))
	if err != nil {
		t.Fatalf("FromSeed: %v", err)
	}
	return kp
}

func TestPrice_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/price/solana/1024" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte("12345\n"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "solana", testSigner(t), time.Second)
	price, err := c.Price(context.Background(), 1024)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(12345)) {
		t.Fatalf("got price %s, want 12345", price)
	}
}

func TestPrice_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "bad status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "not a number",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("soon"))
			},
		},
		{
			name: "negative",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("-5"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL, "solana", testSigner(t), time.Second)
			if _, err := c.Price(context.Background(), 10); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestBalance_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("address"); got == "" {
			t.Error("missing address query parameter")
		}
		_, _ = w.Write([]byte(`{"balance":"777"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "solana", testSigner(t), time.Second)
	balance := c.Balance(context.Background(), "addr")
	if !balance.Equal(decimal.NewFromInt(777)) {
		t.Fatalf("got balance %s, want 777", balance)
	}
}

// TestBalance_DegradesToZero checks the oracle-degradation policy: any failed
// or malformed balance lookup reads as zero so the funding path tops up
// instead of failing the upload.
func TestBalance_DegradesToZero(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>"))
			},
		},
		{
			name: "non decimal balance",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"balance":"many"}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL, "solana", testSigner(t), time.Second)
			if balance := c.Balance(context.Background(), "addr"); !balance.IsZero() {
				t.Fatalf("got balance %s, want zero", balance)
			}
		})
	}

	// Unreachable node: same zero-balance behavior.
	c := NewClient("http://127.0.0.1:1", "solana", testSigner(t), 200*time.Millisecond)
	if balance := c.Balance(context.Background(), "addr"); !balance.IsZero() {
		t.Fatal("unreachable node should read as zero balance")
	}
}

func TestFund_SignsRequest(t *testing.T) {
	signer := testSigner(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req fundRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode fund request: %v", err)
			return
		}
		if req.Address != signer.Address() {
			t.Errorf("got address %s, want %s", req.Address, signer.Address())
		}
		if req.Amount != "500" {
			t.Errorf("got amount %s, want 500", req.Amount)
		}
		if !ed25519.Verify(ed25519.PublicKey(req.Owner), fundingMessage(req.Address, req.Amount), req.Signature) {
			t.Error("funding signature does not verify")
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "solana", signer, time.Second)
	if err := c.Fund(context.Background(), decimal.NewFromInt(500)); err != nil {
		t.Fatalf("Fund: %v", err)
	}
}

func TestFund_NodeRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "solana", testSigner(t), time.Second)
	if err := c.Fund(context.Background(), decimal.NewFromInt(1)); err == nil {
		t.Fatal("expected error when node rejects funding")
	}
}

func TestSubmit_OK(t *testing.T) {
	signer := testSigner(t)
	payload := []byte("payload-bytes")
	tags := []Tag{{Name: "Content-Type", Value: "image/png"}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tx/solana" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var tx transaction
		if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
			t.Errorf("decode transaction: %v", err)
			return
		}
		if !bytes.Equal(tx.Data, payload) {
			t.Error("payload altered in transit")
		}
		if len(tx.Tags) != 1 || tx.Tags[0] != tags[0] {
			t.Errorf("unexpected tags %+v", tx.Tags)
		}
		if !tx.verify() {
			t.Error("transaction signature does not verify")
		}
		_, _ = w.Write([]byte(`{"id":"tx-abc123"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "solana", signer, time.Second)
	id, err := c.Submit(context.Background(), payload, tags)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "tx-abc123" {
		t.Fatalf("got id %q, want tx-abc123", id)
	}
}

func TestSubmit_EmptyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "solana", testSigner(t), time.Second)
	if _, err := c.Submit(context.Background(), []byte("x"), nil); err == nil {
		t.Fatal("expected error for empty transaction id")
	}
}

func TestTransactionDigest_Deterministic(t *testing.T) {
	signer := testSigner(t)
	c := NewClient("http://unused", "solana", signer, time.Second)

	a, err := c.newTransaction([]byte("data"), []Tag{{Name: "n", Value: "v"}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.newTransaction([]byte("data"), []Tag{{Name: "n", Value: "v"}})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.digest(), b.digest()) {
		t.Fatal("same inputs produced different digests")
	}

	// Field-boundary shifts must change the digest.
	shifted, err := c.newTransaction([]byte("ata"), []Tag{{Name: "nd", Value: "v"}})
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a.digest(), shifted.digest()) {
		t.Fatal("digest collided across field boundaries")
	}
}
