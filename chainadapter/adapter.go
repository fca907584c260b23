// Package chainadapter defines the Bitcoin-chain oracle contract the
// ledger state machine depends on (§6.2), plus an in-memory test
// double used by ledger's own tests.
package chainadapter

import (
	"context"
	"fmt"

	"conclave.dev/node/addr"
	"conclave.dev/node/hashes"
	"conclave.dev/node/txmodel"
)

// Adapter is the only surface the ledger calls into the Bitcoin chain
// through. The core does not assume atomicity between adapter queries
// and its own writes (§6.2).
type Adapter interface {
	GetTx(ctx context.Context, txID hashes.Hash32) (*txmodel.BitcoinTx, error)
	GetAddressBalance(ctx context.Context, a addr.Address) (uint64, error)
	SubmitTx(ctx context.Context, tx *txmodel.BitcoinTx) (hashes.Hash32, error)
	LatestBlockHash(ctx context.Context) (hashes.Hash32, error)
}

// ErrNotFound is returned by GetTx when no transaction with the
// requested id is known to the adapter.
var ErrNotFound = fmt.Errorf("chainadapter: transaction not found")

// AdapterError wraps a SubmitTx failure with the adapter operation
// that produced it, mirroring the teacher's typed-error idiom.
type AdapterError struct {
	Op  string
	Err error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("chainadapter: %s: %v", e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }
