package ledger

import (
	"context"
	"errors"

	"conclave.dev/node/chainadapter"
	"conclave.dev/node/hashes"
	"conclave.dev/node/kvstore"
	"conclave.dev/node/script"
	"conclave.dev/node/txmodel"
)

// applyClaim implements §4.7.2: import value from a Bitcoin fund output
// committed to this tx's claim script into the side ledger.
func (l *Ledger) applyClaim(ctx context.Context, tx *txmodel.ConclaveTx) (hashes.Hash32, error) {
	initialTxID := tx.TxID()
	fp := *tx.FundPoint

	// Step 2 precedes the Bitcoin-chain fetch per §4.7.2; re-checked
	// inside the write transaction below since this read runs outside
	// the single-writer lock and the fund point could be claimed by a
	// concurrent commit before this one reaches it.
	if _, ok, err := l.env.GetMutable(nsClaims, fp.Hash()[:]); err != nil {
		return hashes.Hash32{}, err
	} else if ok {
		return hashes.Hash32{}, ledgerErr(DoubleClaim, "fund point %s already claimed", fp.Hash())
	}

	fundTx, err := l.adapter.GetTx(ctx, fp.TxID)
	if err != nil {
		if errors.Is(err, chainadapter.ErrNotFound) {
			return hashes.Hash32{}, ledgerErr(UnknownFundTx, "fund tx %s not found", fp.TxID)
		}
		return hashes.Hash32{}, err
	}
	if int(fp.Index) >= len(fundTx.Outputs) {
		return hashes.Hash32{}, ledgerErr(IndexOutOfRange, "fund point index %d, fund tx has %d outputs", fp.Index, len(fundTx.Outputs))
	}
	fundOutput := fundTx.Outputs[fp.Index]

	outputValues := make([]uint64, len(tx.ConclaveOutputs))
	for i, o := range tx.ConclaveOutputs {
		outputValues[i] = o.Value
	}
	totalClaimed, err := hashes.SumU64(outputValues...)
	if err != nil || totalClaimed > fundOutput.Value {
		return hashes.Hash32{}, ledgerErr(OverClaim, "claimed %d exceeds fund output value %d", totalClaimed, fundOutput.Value)
	}

	program, isP2WSH := script.IsP2WSH(fundOutput.ScriptPubKey)
	if !isP2WSH {
		return hashes.Hash32{}, ledgerErr(ScriptMismatch, "fund output is not p2wsh")
	}
	commitment, err := txmodel.ClaimScriptCommitment(tx)
	if err != nil {
		return hashes.Hash32{}, ledgerErr(ScriptMismatch, "claim script: %v", err)
	}
	if commitment != program {
		return hashes.Hash32{}, ledgerErr(ScriptMismatch, "claim script commitment does not match fund output program")
	}

	var finalTxID hashes.Hash32
	err = l.env.Update(func(kvTx *kvstore.Tx) error {
		if _, ok, cErr := kvTx.GetMutable(nsClaims, fp.Hash()[:]); cErr != nil {
			return cErr
		} else if ok {
			return ledgerErr(DoubleClaim, "fund point %s already claimed", fp.Hash())
		}

		for i := range tx.ConclaveOutputs {
			out := &tx.ConclaveOutputs[i]
			wallet := out.ScriptPubKey.Hash256()
			tipBytes, found, gErr := kvTx.GetMutable(nsFundTips, wallet[:])
			if gErr != nil {
				return gErr
			}
			if !found {
				out.Predecessor = nil
				continue
			}
			tip, dErr := txmodel.DecodeOutpoint(tipBytes)
			if dErr != nil {
				return dErr
			}
			if tip.TxID == initialTxID {
				return ledgerErr(SelfReference, "output %d references a tip produced by this same tx", i)
			}
			out.Predecessor = &tip
		}

		// Step 7/8: finalTxId is only knowable once predecessors are
		// patched in; AlreadyCommitted compares it against the
		// content-addressed store, not against the pre-patch
		// initialTxId (which identical resubmission of an
		// already-claimed fund point never reaches, since the
		// DoubleClaim check above already rejects it).
		finalTxID = tx.TxID()
		if _, ok, gErr := kvTx.GetImmutable(finalTxID); gErr != nil {
			return gErr
		} else if ok {
			return ledgerErr(AlreadyCommitted, "tx %s already committed", finalTxID)
		}

		for i, out := range tx.ConclaveOutputs {
			wallet := out.ScriptPubKey.Hash256()
			newTip := txmodel.Outpoint{TxID: finalTxID, Index: uint32(i)}
			if pErr := kvTx.PutMutable(nsFundTips, wallet[:], newTip.Encode()); pErr != nil {
				return pErr
			}
		}
		if pErr := kvTx.PutMutable(nsClaims, fp.Hash()[:], finalTxID[:]); pErr != nil {
			return pErr
		}
		_, pErr := kvTx.PutImmutable(tx.Serialize())
		return pErr
	})
	if err != nil {
		return hashes.Hash32{}, err
	}
	l.invalidateCache()
	return finalTxID, nil
}

// resolvedInput pairs a spend tx's input with the ConclaveOutput it
// dereferences, fetched from the content-addressed store.
type resolvedInput struct {
	input   txmodel.ConclaveInput
	prevOut txmodel.ConclaveOutput
}

func (l *Ledger) resolveSpendInputs(kvTx *kvstore.Tx, tx *txmodel.ConclaveTx) ([]resolvedInput, error) {
	resolved := make([]resolvedInput, len(tx.ConclaveInputs))
	for i, in := range tx.ConclaveInputs {
		raw, ok, err := kvTx.GetImmutable(in.Outpoint.TxID)
		if err != nil {
			var corrupt *kvstore.StorageCorruption
			if errors.As(err, &corrupt) {
				return nil, ledgerErr(StorageCorruption, "%v", corrupt)
			}
			return nil, err
		}
		if !ok {
			return nil, ledgerErr(UnknownPrevTx, "previous tx %s not found", in.Outpoint.TxID)
		}
		prevTx, dErr := txmodel.DeserializeConclaveTx(raw)
		if dErr != nil {
			return nil, ledgerErr(StorageCorruption, "stored tx %s does not deserialize: %v", in.Outpoint.TxID, dErr)
		}
		if int(in.Outpoint.Index) >= len(prevTx.ConclaveOutputs) {
			return nil, ledgerErr(IndexOutOfRange, "outpoint index %d, previous tx has %d outputs", in.Outpoint.Index, len(prevTx.ConclaveOutputs))
		}
		resolved[i] = resolvedInput{input: in, prevOut: prevTx.ConclaveOutputs[in.Outpoint.Index]}
	}
	return resolved, nil
}

// applySpend implements §4.7.3: move value between side-ledger wallets,
// optionally withdrawing a portion back out to Bitcoin addresses.
func (l *Ledger) applySpend(ctx context.Context, tx *txmodel.ConclaveTx) (hashes.Hash32, error) {
	initialTxID := tx.TxID()

	var finalTxID hashes.Hash32
	err := l.env.Update(func(kvTx *kvstore.Tx) error {
		for _, in := range tx.ConclaveInputs {
			if _, ok, gErr := kvTx.GetMutable(nsSpends, in.Outpoint.Hash()[:]); gErr != nil {
				return gErr
			} else if ok {
				return ledgerErr(DoubleSpend, "outpoint %s already spent", in.Outpoint.Hash())
			}
		}

		resolved, rErr := l.resolveSpendInputs(kvTx, tx)
		if rErr != nil {
			return rErr
		}

		inValues := make([]uint64, len(resolved))
		for i, r := range resolved {
			inValues[i] = r.prevOut.Value
		}
		totalIn, sErr := hashes.SumU64(inValues...)
		if sErr != nil {
			return ledgerErr(OverSpend, "input value overflow")
		}

		outValues := make([]uint64, 0, len(tx.ConclaveOutputs)+len(tx.BitcoinOutputs))
		for _, o := range tx.ConclaveOutputs {
			outValues = append(outValues, o.Value)
		}
		for _, o := range tx.BitcoinOutputs {
			outValues = append(outValues, o.Value)
		}
		totalOut, sErr := hashes.SumU64(outValues...)
		if sErr != nil || totalOut > totalIn {
			return ledgerErr(OverSpend, "spent %d exceeds spendable %d", totalOut, totalIn)
		}

		for i, r := range resolved {
			digest := sighash(tx, i, r.prevOut)
			if vErr := verifyScriptSig(l.crypto, r.prevOut.ScriptPubKey, r.input.ScriptSig, digest); vErr != nil {
				return vErr
			}
		}

		for i := range tx.ConclaveInputs {
			in := &tx.ConclaveInputs[i]
			wallet := resolved[i].prevOut.ScriptPubKey.Hash256()
			tipBytes, found, gErr := kvTx.GetMutable(nsSpendTips, wallet[:])
			if gErr != nil {
				return gErr
			}
			if !found {
				in.Predecessor = nil
				continue
			}
			tip, dErr := txmodel.DecodeInpoint(tipBytes)
			if dErr != nil {
				return dErr
			}
			if tip.TxID == initialTxID {
				return ledgerErr(SelfReference, "input %d references a spend tip produced by this same tx", i)
			}
			in.Predecessor = &tip
		}
		for i := range tx.ConclaveOutputs {
			out := &tx.ConclaveOutputs[i]
			wallet := out.ScriptPubKey.Hash256()
			tipBytes, found, gErr := kvTx.GetMutable(nsFundTips, wallet[:])
			if gErr != nil {
				return gErr
			}
			if !found {
				out.Predecessor = nil
				continue
			}
			tip, dErr := txmodel.DecodeOutpoint(tipBytes)
			if dErr != nil {
				return dErr
			}
			if tip.TxID == initialTxID {
				return ledgerErr(SelfReference, "output %d references a fund tip produced by this same tx", i)
			}
			out.Predecessor = &tip
		}

		// Step 8: finalTxId is only knowable once predecessors are
		// patched in; AlreadyCommitted compares it against the
		// content-addressed store (identical resubmission of a tx
		// that already spent these inputs never reaches here, since
		// the DoubleSpend check above already rejects it).
		finalTxID = tx.TxID()
		if _, ok, gErr := kvTx.GetImmutable(finalTxID); gErr != nil {
			return gErr
		} else if ok {
			return ledgerErr(AlreadyCommitted, "tx %s already committed", finalTxID)
		}

		for i, in := range tx.ConclaveInputs {
			spendMarker := txmodel.Inpoint{TxID: finalTxID, Index: uint32(i)}
			if pErr := kvTx.PutMutable(nsSpends, in.Outpoint.Hash()[:], spendMarker.Encode()); pErr != nil {
				return pErr
			}
			wallet := resolved[i].prevOut.ScriptPubKey.Hash256()
			newTip := txmodel.Inpoint{TxID: finalTxID, Index: uint32(i)}
			if pErr := kvTx.PutMutable(nsSpendTips, wallet[:], newTip.Encode()); pErr != nil {
				return pErr
			}
		}
		for i, out := range tx.ConclaveOutputs {
			wallet := out.ScriptPubKey.Hash256()
			newTip := txmodel.Outpoint{TxID: finalTxID, Index: uint32(i)}
			if pErr := kvTx.PutMutable(nsFundTips, wallet[:], newTip.Encode()); pErr != nil {
				return pErr
			}
		}
		_, pErr := kvTx.PutImmutable(tx.Serialize())
		return pErr
	})
	if err != nil {
		return hashes.Hash32{}, err
	}
	for _, out := range tx.BitcoinOutputs {
		l.enqueueWithdrawal(out)
	}
	l.invalidateCache()
	return finalTxID, nil
}
