package bundlr

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Tag is a name/value metadata pair attached to a content transaction.
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Signer is the credential capability the client needs: detached ed25519
// signatures plus the derived network account address. *keys.Keypair is the
// production implementation.
type Signer interface {
	Sign(msg []byte) []byte
	PublicKey() ed25519.PublicKey
	Address() string
}

// Client talks to a single bundler node over HTTP. It is safe for concurrent
// use; the embedded signer is read-only.
type Client struct {
	nodeURL string
	chain   string
	signer  Signer
	http    *http.Client
}

// NewClient builds a node client. nodeURL is the node base URL without a
// trailing slash, chain the currency the node account is denominated in
// (e.g. "solana"). timeout bounds every request; zero means no client-level
// timeout beyond the per-call context.
func NewClient(nodeURL, chain string, signer Signer, timeout time.Duration) *Client {
	return &Client{
		nodeURL: strings.TrimRight(nodeURL, "/"),
		chain:   chain,
		signer:  signer,
		http:    &http.Client{Timeout: timeout},
	}
}

// Price quotes the storage cost for a payload of byteLength bytes, in atomic
// units. The node's price moves with byte length and network conditions, so
// quotes are never cached; callers request a fresh one per upload attempt.
func (c *Client) Price(ctx context.Context, byteLength int64) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/price/%s/%d", c.nodeURL, c.chain, byteLength)
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price quote: %w", err)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(string(body)))
	if err != nil {
		return decimal.Zero, fmt.Errorf("price quote: parse %q: %w", body, err)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("price quote: negative price %s", price)
	}
	return price, nil
}

// Balance reads the spendable credit of address on the node. On any
// transport, status, or decode failure it logs and returns zero: a balance
// lookup must never block an upload, and a zero report simply forces the
// funding path to top up.
func (c *Client) Balance(ctx context.Context, address string) decimal.Decimal {
	endpoint := fmt.Sprintf("%s/account/balance/%s?address=%s", c.nodeURL, c.chain, url.QueryEscape(address))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		zap.L().Error("balance lookup failed, treating as zero", zap.Error(err))
		return decimal.Zero
	}

	var resp struct {
		Balance json.Number `json:"balance"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		zap.L().Error("balance response decode failed, treating as zero", zap.Error(err))
		return decimal.Zero
	}

	balance, err := decimal.NewFromString(resp.Balance.String())
	if err != nil {
		zap.L().Error("balance is not a decimal, treating as zero", zap.String("balance", resp.Balance.String()))
		return decimal.Zero
	}
	return balance
}

// fundRequest is the funding transaction envelope posted to the node. The
// signature covers the (address, amount) pair so the node can attribute the
// top-up to the gateway account.
type fundRequest struct {
	Address   string `json:"address"`
	Amount    string `json:"amount"`
	Owner     []byte `json:"owner"`
	Signature []byte `json:"signature"`
}

// Fund submits a funding transaction converting amount atomic units of
// capital into credit for the gateway account. A non-2xx status or transport
// error is returned to the caller; the usual cause in production is the
// gateway's own wallet running out of capital.
func (c *Client) Fund(ctx context.Context, amount decimal.Decimal) error {
	req := fundRequest{
		Address: c.signer.Address(),
		Amount:  amount.String(),
		Owner:   c.signer.PublicKey(),
	}
	req.Signature = c.signer.Sign(fundingMessage(req.Address, req.Amount))

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("fund: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/account/balance/%s", c.nodeURL, c.chain)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("fund: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("fund: %w", err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fund: node returned status %d", resp.StatusCode)
	}
	zap.L().Info("funded bundler account",
		zap.String("address", req.Address),
		zap.String("amount", req.Amount))
	return nil
}

// fundingMessage is the byte string signed for a funding transaction.
func fundingMessage(address, amount string) []byte {
	msg := make([]byte, 0, len("fund:")+len(address)+1+len(amount))
	msg = append(msg, "fund:"...)
	msg = append(msg, address...)
	msg = append(msg, ':')
	msg = append(msg, amount...)
	return msg
}

// Submit wraps payload and tags in a signed content transaction, posts it to
// the node, and returns the transaction identifier the network accepted it
// under. An empty identifier in the node's reply is returned as an error so
// callers never fabricate a retrieval URL.
func (c *Client) Submit(ctx context.Context, payload []byte, tags []Tag) (string, error) {
	tx, err := c.newTransaction(payload, tags)
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}

	body, err := json.Marshal(tx)
	if err != nil {
		return "", fmt.Errorf("submit: encode transaction: %w", err)
	}

	endpoint := fmt.Sprintf("%s/tx/%s", c.nodeURL, c.chain)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("submit: node returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("submit: read response: %w", err)
	}

	var reply struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return "", fmt.Errorf("submit: decode response: %w", err)
	}
	if reply.ID == "" {
		return "", fmt.Errorf("submit: node accepted transaction but returned no id")
	}

	zap.L().Debug("content transaction accepted",
		zap.String("id", reply.ID),
		zap.Int("bytes", len(payload)),
		zap.Int("tags", len(tags)))
	return reply.ID, nil
}

// get issues a GET with the call context and returns the body of a 2xx reply.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: status %d", endpoint, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func closeBody(rc io.ReadCloser) {
	if err := rc.Close(); err != nil {
		zap.L().Error("error closing response body", zap.Error(err))
	}
}
