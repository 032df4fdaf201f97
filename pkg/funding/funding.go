// Package funding guarantees that every upload attempt is preceded by a
// sufficient-balance check and, when needed, exactly one top-up transaction.
//
// The guard mirrors a prepaid escrow flow: quote the price for the payload,
// multiply by a safety margin, compare against the account's current credit,
// and only if the credit falls short submit a funding transaction sized as a
// larger multiple of the quoted price. The two multipliers are policy knobs
// trading funding-transaction frequency against idle capital; they are not
// derived values.
//
// Concurrent pipelines race on the balance snapshot: two uploads may both see
// sufficient credit and both skip funding. That race is accepted; the network
// rejects the loser and the caller retries the whole request.
package funding

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrInsufficientBalance is returned when the funding transaction itself
// fails, usually because the gateway's wallet lacks the capital to top up its
// own account. It is terminal for the upload attempt and deliberately
// distinguishable from generic submission failures.
var ErrInsufficientBalance = errors.New("insufficient balance to upload")

// Node is the slice of the bundler node the manager needs. Balance follows
// the degraded-oracle contract: it reports zero instead of failing, which
// this manager relies on to bias toward over-funding.
type Node interface {
	Price(ctx context.Context, byteLength int64) (decimal.Decimal, error)
	Balance(ctx context.Context, address string) decimal.Decimal
	Fund(ctx context.Context, amount decimal.Decimal) error
}

// Policy holds the two multipliers of the funding decision. The account is
// considered funded when balance >= price * SafetyMultiplier; a top-up is
// sized price * FundMultiplier.
type Policy struct {
	SafetyMultiplier decimal.Decimal
	FundMultiplier   decimal.Decimal
}

// NewPolicy builds a Policy from plain integer multipliers.
func NewPolicy(safety, fund int64) Policy {
	return Policy{
		SafetyMultiplier: decimal.NewFromInt(safety),
		FundMultiplier:   decimal.NewFromInt(fund),
	}
}

// Manager performs the balance-check-then-fund sequence against one node
// account. It holds no mutable state and is safe for concurrent use.
type Manager struct {
	node    Node
	address string
}

// NewManager returns a Manager for the account identified by address.
// An empty address means the credential has no derivable account address; the
// balance check is then skipped and every attempt funds directly, the
// conservative default.
func NewManager(node Node, address string) *Manager {
	return &Manager{node: node, address: address}
}

// Ensure makes the account spendable for a payload of byteLength bytes under
// the given policy. It returns nil when the existing balance already clears
// the safety threshold (the common fast path) or after one successful funding
// transaction. A failed funding transaction returns ErrInsufficientBalance;
// there is no retry within an attempt.
func (m *Manager) Ensure(ctx context.Context, byteLength int64, policy Policy) error {
	price, err := m.node.Price(ctx, byteLength)
	if err != nil {
		return fmt.Errorf("funding check: %w", err)
	}

	minimum := price.Mul(policy.SafetyMultiplier)

	if m.address != "" {
		balance := m.node.Balance(ctx, m.address)
		if balance.GreaterThanOrEqual(minimum) {
			zap.L().Debug("balance sufficient, skipping funding",
				zap.String("balance", balance.String()),
				zap.String("minimum", minimum.String()))
			return nil
		}
		zap.L().Info("balance below safety threshold",
			zap.String("balance", balance.String()),
			zap.String("minimum", minimum.String()),
			zap.Int64("payloadBytes", byteLength))
	}

	amount := price.Mul(policy.FundMultiplier)
	zap.L().Info("funding upload", zap.String("amount", amount.String()))

	if err := m.node.Fund(ctx, amount); err != nil {
		zap.L().Error("funding transaction failed", zap.Error(err))
		return ErrInsufficientBalance
	}
	return nil
}
