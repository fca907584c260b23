package ledger

import (
	"conclave.dev/node/addr"
	"conclave.dev/node/hashes"
	"conclave.dev/node/kvstore"
	"conclave.dev/node/script"
	"conclave.dev/node/txmodel"
)

// Utxo pairs a committed outpoint with the ConclaveOutput it names.
type Utxo struct {
	Outpoint txmodel.Outpoint
	Output   txmodel.ConclaveOutput
}

// Balance implements §4.7.4's quantified identity: count_funds(wallet) -
// count_spends(wallet), each summed over its own tip chain rather than
// read off the single current tip, since a wallet can hold more than
// one never-consolidated fund output (§3.4/§9) and can also have had
// some, but not all, of its funds spent.
func (l *Ledger) Balance(a addr.Address) (uint64, error) {
	wallet, err := walletHash(a)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	if c, ok := l.cache[wallet]; ok {
		l.mu.Unlock()
		return c.balance, nil
	}
	l.mu.Unlock()

	funded, err := l.sumFundChain(wallet)
	if err != nil {
		return 0, err
	}
	spent, err := l.sumSpendChain(wallet)
	if err != nil {
		return 0, err
	}
	var balance uint64
	if funded > spent {
		balance = funded - spent
	}

	l.mu.Lock()
	l.cache[wallet] = cachedBalance{balance: balance}
	l.mu.Unlock()
	return balance, nil
}

// fundChainEntry is one node of a wallet's FundTips predecessor chain.
type fundChainEntry struct {
	Outpoint txmodel.Outpoint
	Output   txmodel.ConclaveOutput
}

// walkFundChain walks every entry ever chained to wallet's FundTips
// tip, oldest-last, bounded at l.maxDepth.
func (l *Ledger) walkFundChain(wallet hashes.Hash32) ([]fundChainEntry, error) {
	tipBytes, found, err := l.env.GetMutable(nsFundTips, wallet[:])
	if err != nil || !found {
		return nil, err
	}
	tip, err := txmodel.DecodeOutpoint(tipBytes)
	if err != nil {
		return nil, err
	}

	var entries []fundChainEntry
	for depth := 0; ; depth++ {
		if depth >= l.maxDepth {
			return nil, ledgerErr(ChainTooDeep, "wallet %s chain exceeds %d entries", wallet, l.maxDepth)
		}
		raw, ok, err := l.env.GetImmutable(tip.TxID)
		if err != nil {
			if corrupt, isCorrupt := asStorageCorruption(err); isCorrupt {
				return nil, ledgerErr(StorageCorruption, "%v", corrupt)
			}
			return nil, err
		}
		if !ok {
			return nil, ledgerErr(UnknownPrevTx, "chain references missing tx %s", tip.TxID)
		}
		committedTx, err := txmodel.DeserializeConclaveTx(raw)
		if err != nil {
			return nil, ledgerErr(StorageCorruption, "stored tx %s does not deserialize: %v", tip.TxID, err)
		}
		if int(tip.Index) >= len(committedTx.ConclaveOutputs) {
			return nil, ledgerErr(IndexOutOfRange, "chain outpoint index %d, tx has %d outputs", tip.Index, len(committedTx.ConclaveOutputs))
		}
		output := committedTx.ConclaveOutputs[tip.Index]
		entries = append(entries, fundChainEntry{Outpoint: tip, Output: output})
		if output.Predecessor == nil {
			break
		}
		tip = *output.Predecessor
	}
	return entries, nil
}

func (l *Ledger) sumFundChain(wallet hashes.Hash32) (uint64, error) {
	entries, err := l.walkFundChain(wallet)
	if err != nil {
		return 0, err
	}
	values := make([]uint64, len(entries))
	for i, e := range entries {
		values[i] = e.Output.Value
	}
	total, sErr := hashes.SumU64(values...)
	if sErr != nil {
		return 0, ledgerErr(OverClaim, "wallet %s fund chain value overflow", wallet)
	}
	return total, nil
}

// sumSpendChain walks wallet's SpendTips chain, summing the value of
// the previous output each chained input actually consumed.
func (l *Ledger) sumSpendChain(wallet hashes.Hash32) (uint64, error) {
	tipBytes, found, err := l.env.GetMutable(nsSpendTips, wallet[:])
	if err != nil || !found {
		return 0, err
	}
	tip, err := txmodel.DecodeInpoint(tipBytes)
	if err != nil {
		return 0, err
	}

	var values []uint64
	for depth := 0; ; depth++ {
		if depth >= l.maxDepth {
			return 0, ledgerErr(ChainTooDeep, "wallet %s spend chain exceeds %d entries", wallet, l.maxDepth)
		}
		raw, ok, err := l.env.GetImmutable(tip.TxID)
		if err != nil {
			if corrupt, isCorrupt := asStorageCorruption(err); isCorrupt {
				return 0, ledgerErr(StorageCorruption, "%v", corrupt)
			}
			return 0, err
		}
		if !ok {
			return 0, ledgerErr(UnknownPrevTx, "spend chain references missing tx %s", tip.TxID)
		}
		committedTx, err := txmodel.DeserializeConclaveTx(raw)
		if err != nil {
			return 0, ledgerErr(StorageCorruption, "stored tx %s does not deserialize: %v", tip.TxID, err)
		}
		if int(tip.Index) >= len(committedTx.ConclaveInputs) {
			return 0, ledgerErr(IndexOutOfRange, "spend chain input index %d, tx has %d inputs", tip.Index, len(committedTx.ConclaveInputs))
		}
		input := committedTx.ConclaveInputs[tip.Index]
		prevValue, rErr := l.resolveOutputValue(input.Outpoint)
		if rErr != nil {
			return 0, rErr
		}
		values = append(values, prevValue)
		if input.Predecessor == nil {
			break
		}
		tip = *input.Predecessor
	}
	total, sErr := hashes.SumU64(values...)
	if sErr != nil {
		return 0, ledgerErr(OverSpend, "wallet %s spend chain value overflow", wallet)
	}
	return total, nil
}

// resolveOutputValue fetches the committed ConclaveOutput named by o.
func (l *Ledger) resolveOutputValue(o txmodel.Outpoint) (uint64, error) {
	raw, ok, err := l.env.GetImmutable(o.TxID)
	if err != nil {
		if corrupt, isCorrupt := asStorageCorruption(err); isCorrupt {
			return 0, ledgerErr(StorageCorruption, "%v", corrupt)
		}
		return 0, err
	}
	if !ok {
		return 0, ledgerErr(UnknownPrevTx, "spend chain references missing tx %s", o.TxID)
	}
	prevTx, err := txmodel.DeserializeConclaveTx(raw)
	if err != nil {
		return 0, ledgerErr(StorageCorruption, "stored tx %s does not deserialize: %v", o.TxID, err)
	}
	if int(o.Index) >= len(prevTx.ConclaveOutputs) {
		return 0, ledgerErr(IndexOutOfRange, "outpoint index %d, tx has %d outputs", o.Index, len(prevTx.ConclaveOutputs))
	}
	return prevTx.ConclaveOutputs[o.Index].Value, nil
}

// isSpent reports whether outpoint already appears in the Spends
// index, i.e. some committed input has consumed it.
func (l *Ledger) isSpent(o txmodel.Outpoint) (bool, error) {
	_, ok, err := l.env.GetMutable(nsSpends, o.Hash()[:])
	return ok, err
}

// Utxos walks every entry ever chained to a's wallet hash (§4.7.4's
// fund-tip chain), bounded at D_max, and returns only the entries the
// Spends index hasn't marked consumed — §8.3 scenario 3's "utxos(A)
// now contains one entry" requires a spent-but-still-linked ancestor
// to drop out, not merely the current tip to change.
func (l *Ledger) Utxos(a addr.Address) ([]Utxo, error) {
	wallet, err := walletHash(a)
	if err != nil {
		return nil, err
	}
	entries, err := l.walkFundChain(wallet)
	if err != nil {
		return nil, err
	}
	out := make([]Utxo, 0, len(entries))
	for _, e := range entries {
		spent, sErr := l.isSpent(e.Outpoint)
		if sErr != nil {
			return nil, sErr
		}
		if spent {
			continue
		}
		out = append(out, Utxo{Outpoint: e.Outpoint, Output: e.Output})
	}
	return out, nil
}

func walletHash(a addr.Address) (hashes.Hash32, error) {
	s, err := script.P2H(a)
	if err != nil {
		return hashes.Hash32{}, err
	}
	return s.Hash256(), nil
}

// ChainTip returns the persisted chain-observer tip recorded in the
// kvstore manifest, falling back to genesis if none has been recorded
// yet (a fresh data directory).
func (l *Ledger) ChainTip() (txmodel.ConclaveBlockHeader, error) {
	m := l.env.Manifest()
	if m == nil || m.ChainTipHashHex == "" {
		return txmodel.Genesis(), nil
	}
	hash, err := hashes.Hash32FromHex(m.ChainTipHashHex)
	if err != nil {
		return txmodel.ConclaveBlockHeader{}, err
	}
	raw, ok, err := l.env.GetImmutable(hash)
	if err != nil || !ok {
		return txmodel.ConclaveBlockHeader{}, err
	}
	return txmodel.DeserializeConclaveBlockHeader(raw)
}

// SetChainTip persists header as the chain-observer tip: it stores the
// serialized header as an immutable object and records its address and
// height in the manifest, where ChainTip reads them. Nothing in this
// repository calls it.
func (l *Ledger) SetChainTip(header txmodel.ConclaveBlockHeader) error {
	raw := header.Serialize()
	objAddr, err := l.env.PutImmutable(raw)
	if err != nil {
		return err
	}
	m := l.env.Manifest()
	if m == nil {
		m = &kvstore.Manifest{SchemaVersion: kvstore.SchemaVersionV1}
	}
	m.ChainTipHashHex = objAddr.String()
	m.ChainTipHeight = header.Height
	return l.env.SetManifest(m)
}
