// Package ledger is the side-ledger state machine of §4.7: it turns
// incoming ConclaveTx objects into committed state updates against the
// four mutable indices, and answers balance/utxo/chain-tip queries.
package ledger

import (
	"context"
	"errors"
	"sync"

	"conclave.dev/node/chainadapter"
	"conclave.dev/node/hashes"
	"conclave.dev/node/kvstore"
	"conclave.dev/node/txmodel"
	"conclave.dev/node/xcrypto"
)

const (
	nsClaims    = "claims"
	nsSpends    = "spends"
	nsFundTips  = "fundtips"
	nsSpendTips = "spendtips"
)

// DefaultMaxChainDepth bounds a wallet's predecessor-chain walk
// (§4.7.4); exceeding it fails ChainTooDeep.
const DefaultMaxChainDepth = 100_000

// Ledger is the state machine: single-writer discipline via the
// kvstore's write transaction, one process-wide instance constructed
// via Open (§5).
type Ledger struct {
	env      *kvstore.Env
	adapter  chainadapter.Adapter
	crypto   xcrypto.Provider
	maxDepth int

	withdrawals chan txmodel.BitcoinOutput

	mu    sync.Mutex
	cache map[hashes.Hash32]cachedBalance
}

type cachedBalance struct {
	balance uint64
}

// Option configures a Ledger constructed with Open.
type Option func(*Ledger)

// WithMaxChainDepth overrides DefaultMaxChainDepth.
func WithMaxChainDepth(n int) Option {
	return func(l *Ledger) { l.maxDepth = n }
}

// WithWithdrawalQueueSize overrides the bounded withdrawal channel's
// capacity (default 1024). The queue itself is visible so rpcapi has
// somewhere to enqueue to; draining it is out of scope (§9 Open
// Questions). Open starts no consumer; StartLoggingConsumer drains the
// queue and only logs.
func WithWithdrawalQueueSize(n int) Option {
	return func(l *Ledger) { l.withdrawals = make(chan txmodel.BitcoinOutput, n) }
}

// Open constructs a Ledger over env and adapter using crypto for
// signature verification.
func Open(env *kvstore.Env, adapter chainadapter.Adapter, crypto xcrypto.Provider, opts ...Option) *Ledger {
	l := &Ledger{
		env:         env,
		adapter:     adapter,
		crypto:      crypto,
		maxDepth:    DefaultMaxChainDepth,
		withdrawals: make(chan txmodel.BitcoinOutput, 1024),
		cache:       make(map[hashes.Hash32]cachedBalance),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Submit dispatches tx to apply_claim or apply_spend based on whether
// fundPoint is present (§4.7.1).
func (l *Ledger) Submit(ctx context.Context, tx *txmodel.ConclaveTx) (hashes.Hash32, error) {
	if tx.IsClaim() {
		return l.applyClaim(ctx, tx)
	}
	return l.applySpend(ctx, tx)
}

// invalidateCache drops every cached balance; called after any commit
// that touched FundTips or SpendTips (§5 shared-resource policy).
func (l *Ledger) invalidateCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[hashes.Hash32]cachedBalance)
}

// enqueueWithdrawal pushes a withdrawal request onto the bounded
// queue, dropping it if full rather than blocking the commit (the
// consumer side is out of scope per §9 Open Questions).
func (l *Ledger) enqueueWithdrawal(out txmodel.BitcoinOutput) {
	select {
	case l.withdrawals <- out:
	default:
	}
}

// Withdrawals exposes the queue rpcapi or an operational tool can
// drain; the default is nobody drains it.
func (l *Ledger) Withdrawals() <-chan txmodel.BitcoinOutput { return l.withdrawals }

func asStorageCorruption(err error) (*kvstore.StorageCorruption, bool) {
	var corrupt *kvstore.StorageCorruption
	if errors.As(err, &corrupt) {
		return corrupt, true
	}
	return nil, false
}
