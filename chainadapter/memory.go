package chainadapter

import (
	"context"
	"sync"

	"conclave.dev/node/addr"
	"conclave.dev/node/hashes"
	"conclave.dev/node/txmodel"
)

// Memory is an in-memory Adapter test double: tests seed it with
// fixture BitcoinTx values via PutTx, exactly the shape ledger tests
// need to exercise apply_claim without a real Bitcoin node.
type Memory struct {
	mu      sync.RWMutex
	txs     map[hashes.Hash32]*txmodel.BitcoinTx
	tip     hashes.Hash32
	submits []*txmodel.BitcoinTx
}

// NewMemory returns an empty in-memory adapter.
func NewMemory() *Memory {
	return &Memory{txs: make(map[hashes.Hash32]*txmodel.BitcoinTx)}
}

// PutTx seeds the adapter with a known transaction, returning its id.
func (m *Memory) PutTx(tx *txmodel.BitcoinTx) hashes.Hash32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := tx.TxID()
	m.txs[id] = tx
	return id
}

// SetLatestBlockHash sets the value LatestBlockHash returns.
func (m *Memory) SetLatestBlockHash(h hashes.Hash32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tip = h
}

func (m *Memory) GetTx(_ context.Context, txID hashes.Hash32) (*txmodel.BitcoinTx, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.txs[txID]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

// GetAddressBalance is not exercised by the ledger core (it consumes
// only GetTx for claim validation) but is part of the §6.2 contract;
// the in-memory double always returns zero and has no way to set a
// balance for an address.
func (m *Memory) GetAddressBalance(_ context.Context, _ addr.Address) (uint64, error) {
	return 0, nil
}

func (m *Memory) SubmitTx(_ context.Context, tx *txmodel.BitcoinTx) (hashes.Hash32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := tx.TxID()
	m.txs[id] = tx
	m.submits = append(m.submits, tx)
	return id, nil
}

func (m *Memory) LatestBlockHash(_ context.Context) (hashes.Hash32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tip, nil
}

// Submitted returns the transactions handed to SubmitTx, in order,
// for test assertions.
func (m *Memory) Submitted() []*txmodel.BitcoinTx {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*txmodel.BitcoinTx(nil), m.submits...)
}

var _ Adapter = (*Memory)(nil)
