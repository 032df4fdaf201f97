// Package bundlr is the HTTP client for the bundler node that fronts the
// permanent storage network. It covers the four node operations the gateway
// needs:
//
//   - Price: quote the cost of storing a payload of a given byte length, in
//     the network's atomic unit.
//   - Balance: read the gateway account's spendable credit. A failed lookup
//     is reported as a zero balance, never as an error, so the funding path
//     errs toward an unnecessary top-up instead of a blocked upload.
//   - Fund: submit a funding transaction that converts capital into credit
//     for the gateway account.
//   - Submit: wrap a payload and its tags into a signed content transaction
//     and post it, returning the transaction identifier the content is
//     retrievable under.
//
// All amounts are decimal.Decimal. Prices and balances are exact integers in
// atomic units, and funding thresholds are multiplicative, so float64 would
// drift; nothing in this package touches floating point.
//
// # Usage
//
//	client := bundlr.NewClient("https://node1.bundlr.network", "solana", keypair, 60*time.Second)
//
//	price, err := client.Price(ctx, int64(len(payload)))
//	balance := client.Balance(ctx, keypair.Address())
//	if balance.LessThan(price.Mul(decimal.NewFromInt(3))) {
//		err = client.Fund(ctx, price.Mul(decimal.NewFromInt(50)))
//	}
//	id, err := client.Submit(ctx, payload, []bundlr.Tag{{Name: "Content-Type", Value: "image/png"}})
//
// The funding.Manager and upload.Uploader consume this client through narrow
// interfaces, so tests substitute fakes without a node.
package bundlr
