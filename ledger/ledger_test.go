package ledger

import (
	"context"
	"errors"
	"testing"

	"conclave.dev/node/addr"
	"conclave.dev/node/chainadapter"
	"conclave.dev/node/hashes"
	"conclave.dev/node/kvstore"
	"conclave.dev/node/script"
	"conclave.dev/node/txmodel"
	"conclave.dev/node/xcrypto"
)

type wallet struct {
	priv xcrypto.PrivKey
	pub  []byte
	hash hashes.Hash20
	spk  script.Script
	addr addr.Address
}

func newWallet(t *testing.T, fill byte) wallet {
	t.Helper()
	var scalar hashes.Hash32
	scalar[31] = fill
	priv, err := xcrypto.PrivKeyFromBytes(scalar[:])
	if err != nil {
		t.Fatalf("PrivKeyFromBytes: %v", err)
	}
	pub, err := priv.Public().SerializeCompressed()
	if err != nil {
		t.Fatalf("SerializeCompressed: %v", err)
	}
	hash := xcrypto.Hash160(pub)
	return wallet{
		priv: priv,
		pub:  pub,
		hash: hash,
		spk:  script.P2PKH(hash),
		addr: addr.Address{Format: addr.Classic, Network: addr.Testnet, Payee: addr.PubKeyPayee, Hash: hash[:]},
	}
}

func newTestLedger(t *testing.T) (*Ledger, *chainadapter.Memory) {
	t.Helper()
	env, err := kvstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() { _ = env.Close() })
	m := chainadapter.NewMemory()
	return Open(env, m, xcrypto.Secp256k1Provider{}), m
}

// claimFixture builds a claim tx funding trustee's wallet and the
// Bitcoin fund tx it references, wired together through m.
func claimFixture(t *testing.T, m *chainadapter.Memory, trustee xcrypto.PubKey, dest wallet, value uint64) *txmodel.ConclaveTx {
	t.Helper()
	claim := &txmodel.ConclaveTx{
		Version:         1,
		MinSigs:         1,
		Trustees:        []xcrypto.PubKey{trustee},
		ConclaveOutputs: []txmodel.ConclaveOutput{{ScriptPubKey: dest.spk, Value: value}},
	}
	commitment, err := txmodel.ClaimScriptCommitment(claim)
	if err != nil {
		t.Fatalf("ClaimScriptCommitment: %v", err)
	}
	fundTx := &txmodel.BitcoinTx{
		Version: 1,
		Outputs: []txmodel.BitcoinOutput{{Value: value, ScriptPubKey: script.P2WSHHash(commitment)}},
	}
	fundTxID := m.PutTx(fundTx)
	fp := txmodel.Outpoint{TxID: fundTxID, Index: 0}
	claim.FundPoint = &fp
	return claim
}

func signInput(t *testing.T, tx *txmodel.ConclaveTx, index int, prevOut txmodel.ConclaveOutput, w wallet) {
	t.Helper()
	digest := sighash(tx, index, prevOut)
	sig := w.priv.Sign(digest)
	tx.ConclaveInputs[index].ScriptSig = script.New().AddData(sig.DER()).AddData(w.pub)
}

func TestApplyClaimThenQuery(t *testing.T) {
	l, m := newTestLedger(t)
	trustee := newWallet(t, 1)
	dest := newWallet(t, 2)

	claim := claimFixture(t, m, trustee.priv.Public(), dest, 1000)
	finalID, err := l.Submit(context.Background(), claim)
	if err != nil {
		t.Fatalf("Submit claim: %v", err)
	}

	bal, err := l.Balance(dest.addr)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 1000 {
		t.Fatalf("balance = %d, want 1000", bal)
	}

	utxos, err := l.Utxos(dest.addr)
	if err != nil {
		t.Fatalf("Utxos: %v", err)
	}
	if len(utxos) != 1 || utxos[0].Outpoint.TxID != finalID {
		t.Fatalf("unexpected utxo set: %+v", utxos)
	}
}

func TestApplyClaimReplayRejected(t *testing.T) {
	l, m := newTestLedger(t)
	trustee := newWallet(t, 1)
	dest := newWallet(t, 2)
	claim := claimFixture(t, m, trustee.priv.Public(), dest, 500)

	if _, err := l.Submit(context.Background(), claim); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	bal, err := l.Balance(dest.addr)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}

	// §8.3 scenario 2: submitting the identical tx again yields
	// DoubleClaim, since Claims[fp.hash] is already populated by the
	// first commit — no index changes.
	_, err = l.Submit(context.Background(), claim)
	var lerr *Error
	if !errors.As(err, &lerr) || lerr.Code != DoubleClaim {
		t.Fatalf("expected DoubleClaim on replay, got %v", err)
	}

	replayBal, err := l.Balance(dest.addr)
	if err != nil {
		t.Fatalf("Balance after replay: %v", err)
	}
	if replayBal != bal {
		t.Fatalf("replay changed balance: %d -> %d", bal, replayBal)
	}
}

func TestApplyClaimRejectsDoubleClaim(t *testing.T) {
	l, m := newTestLedger(t)
	trustee := newWallet(t, 1)
	destA := newWallet(t, 2)
	destB := newWallet(t, 3)

	claimA := claimFixture(t, m, trustee.priv.Public(), destA, 100)
	if _, err := l.Submit(context.Background(), claimA); err != nil {
		t.Fatalf("claimA: %v", err)
	}

	claimB := &txmodel.ConclaveTx{
		Version:         1,
		MinSigs:         1,
		Trustees:        []xcrypto.PubKey{trustee.priv.Public()},
		FundPoint:       claimA.FundPoint,
		ConclaveOutputs: []txmodel.ConclaveOutput{{ScriptPubKey: destB.spk, Value: 100}},
	}
	_, err := l.Submit(context.Background(), claimB)
	var lerr *Error
	if !errors.As(err, &lerr) || lerr.Code != DoubleClaim {
		t.Fatalf("expected DoubleClaim, got %v", err)
	}
}

func TestApplyClaimRejectsOverClaim(t *testing.T) {
	l, m := newTestLedger(t)
	trustee := newWallet(t, 1)
	dest := newWallet(t, 2)

	claim := claimFixture(t, m, trustee.priv.Public(), dest, 100)
	claim.ConclaveOutputs[0].Value = 999999
	_, err := l.Submit(context.Background(), claim)
	var lerr *Error
	if !errors.As(err, &lerr) || lerr.Code != OverClaim {
		t.Fatalf("expected OverClaim, got %v", err)
	}
}

func TestApplyClaimRejectsScriptMismatch(t *testing.T) {
	l, m := newTestLedger(t)
	trustee := newWallet(t, 1)
	dest := newWallet(t, 2)

	claim := &txmodel.ConclaveTx{
		Version:         1,
		MinSigs:         1,
		Trustees:        []xcrypto.PubKey{trustee.priv.Public()},
		ConclaveOutputs: []txmodel.ConclaveOutput{{ScriptPubKey: dest.spk, Value: 100}},
	}
	fundTx := &txmodel.BitcoinTx{
		Version: 1,
		Outputs: []txmodel.BitcoinOutput{{Value: 100, ScriptPubKey: script.P2WSHHash(hashes.Hash32{0xde, 0xad})}},
	}
	fp := txmodel.Outpoint{TxID: m.PutTx(fundTx), Index: 0}
	claim.FundPoint = &fp

	_, err := l.Submit(context.Background(), claim)
	var lerr *Error
	if !errors.As(err, &lerr) || lerr.Code != ScriptMismatch {
		t.Fatalf("expected ScriptMismatch, got %v", err)
	}
}

func TestApplySpendChainAndExactBoundary(t *testing.T) {
	l, m := newTestLedger(t)
	trustee := newWallet(t, 1)
	alice := newWallet(t, 2)
	bob := newWallet(t, 3)

	claim := claimFixture(t, m, trustee.priv.Public(), alice, 1000)
	claimFinal, err := l.Submit(context.Background(), claim)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	spend := &txmodel.ConclaveTx{
		Version: 1,
		ConclaveInputs: []txmodel.ConclaveInput{
			{Outpoint: txmodel.Outpoint{TxID: claimFinal, Index: 0}, Sequence: 0xffffffff},
		},
		ConclaveOutputs: []txmodel.ConclaveOutput{
			{ScriptPubKey: bob.spk, Value: 1000},
		},
	}
	signInput(t, spend, 0, claim.ConclaveOutputs[0], alice)

	spendFinal, err := l.Submit(context.Background(), spend)
	if err != nil {
		t.Fatalf("spend: %v", err)
	}

	aliceBal, err := l.Balance(alice.addr)
	if err != nil {
		t.Fatalf("alice Balance: %v", err)
	}
	if aliceBal != 0 {
		t.Fatalf("alice balance = %d, want 0 (fully spent at the exact boundary)", aliceBal)
	}
	bobBal, err := l.Balance(bob.addr)
	if err != nil {
		t.Fatalf("bob Balance: %v", err)
	}
	if bobBal != 1000 {
		t.Fatalf("bob balance = %d, want 1000", bobBal)
	}

	utxos, err := l.Utxos(bob.addr)
	if err != nil {
		t.Fatalf("Utxos: %v", err)
	}
	if len(utxos) != 1 || utxos[0].Outpoint.TxID != spendFinal {
		t.Fatalf("unexpected bob utxo set: %+v", utxos)
	}
}

func TestApplySpendRejectsOverSpend(t *testing.T) {
	l, m := newTestLedger(t)
	trustee := newWallet(t, 1)
	alice := newWallet(t, 2)
	bob := newWallet(t, 3)

	claim := claimFixture(t, m, trustee.priv.Public(), alice, 100)
	claimFinal, err := l.Submit(context.Background(), claim)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	spend := &txmodel.ConclaveTx{
		Version: 1,
		ConclaveInputs: []txmodel.ConclaveInput{
			{Outpoint: txmodel.Outpoint{TxID: claimFinal, Index: 0}, Sequence: 0xffffffff},
		},
		ConclaveOutputs: []txmodel.ConclaveOutput{{ScriptPubKey: bob.spk, Value: 101}},
	}
	signInput(t, spend, 0, claim.ConclaveOutputs[0], alice)

	_, err = l.Submit(context.Background(), spend)
	var lerr *Error
	if !errors.As(err, &lerr) || lerr.Code != OverSpend {
		t.Fatalf("expected OverSpend, got %v", err)
	}
}

func TestApplySpendRejectsBadSignature(t *testing.T) {
	l, m := newTestLedger(t)
	trustee := newWallet(t, 1)
	alice := newWallet(t, 2)
	mallory := newWallet(t, 4)
	bob := newWallet(t, 3)

	claim := claimFixture(t, m, trustee.priv.Public(), alice, 100)
	claimFinal, err := l.Submit(context.Background(), claim)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	spend := &txmodel.ConclaveTx{
		Version: 1,
		ConclaveInputs: []txmodel.ConclaveInput{
			{Outpoint: txmodel.Outpoint{TxID: claimFinal, Index: 0}, Sequence: 0xffffffff},
		},
		ConclaveOutputs: []txmodel.ConclaveOutput{{ScriptPubKey: bob.spk, Value: 100}},
	}
	signInput(t, spend, 0, claim.ConclaveOutputs[0], mallory)

	_, err = l.Submit(context.Background(), spend)
	var lerr *Error
	if !errors.As(err, &lerr) || lerr.Code != SignatureInvalid {
		t.Fatalf("expected SignatureInvalid, got %v", err)
	}
}

func TestApplySpendRejectsDoubleSpend(t *testing.T) {
	l, m := newTestLedger(t)
	trustee := newWallet(t, 1)
	alice := newWallet(t, 2)
	bob := newWallet(t, 3)
	carol := newWallet(t, 4)

	claim := claimFixture(t, m, trustee.priv.Public(), alice, 100)
	claimFinal, err := l.Submit(context.Background(), claim)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	spend1 := &txmodel.ConclaveTx{
		Version: 1,
		ConclaveInputs: []txmodel.ConclaveInput{
			{Outpoint: txmodel.Outpoint{TxID: claimFinal, Index: 0}, Sequence: 0xffffffff},
		},
		ConclaveOutputs: []txmodel.ConclaveOutput{{ScriptPubKey: bob.spk, Value: 100}},
	}
	signInput(t, spend1, 0, claim.ConclaveOutputs[0], alice)
	if _, err := l.Submit(context.Background(), spend1); err != nil {
		t.Fatalf("spend1: %v", err)
	}

	spend2 := &txmodel.ConclaveTx{
		Version: 1,
		ConclaveInputs: []txmodel.ConclaveInput{
			{Outpoint: txmodel.Outpoint{TxID: claimFinal, Index: 0}, Sequence: 0xfffffffe},
		},
		ConclaveOutputs: []txmodel.ConclaveOutput{{ScriptPubKey: carol.spk, Value: 100}},
	}
	signInput(t, spend2, 0, claim.ConclaveOutputs[0], alice)
	_, err = l.Submit(context.Background(), spend2)
	var lerr *Error
	if !errors.As(err, &lerr) || lerr.Code != DoubleSpend {
		t.Fatalf("expected DoubleSpend, got %v", err)
	}
}

func TestApplySpendReplayRejected(t *testing.T) {
	l, m := newTestLedger(t)
	trustee := newWallet(t, 1)
	alice := newWallet(t, 2)
	bob := newWallet(t, 3)

	claim := claimFixture(t, m, trustee.priv.Public(), alice, 100)
	claimFinal, err := l.Submit(context.Background(), claim)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	spend := &txmodel.ConclaveTx{
		Version: 1,
		ConclaveInputs: []txmodel.ConclaveInput{
			{Outpoint: txmodel.Outpoint{TxID: claimFinal, Index: 0}, Sequence: 0xffffffff},
		},
		ConclaveOutputs: []txmodel.ConclaveOutput{{ScriptPubKey: bob.spk, Value: 100}},
	}
	signInput(t, spend, 0, claim.ConclaveOutputs[0], alice)
	if _, err := l.Submit(context.Background(), spend); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	// Identical resubmission hits DoubleSpend, not a silent idempotent
	// success, since Spends[outpoint.hash] is already populated.
	_, err = l.Submit(context.Background(), spend)
	var lerr *Error
	if !errors.As(err, &lerr) || lerr.Code != DoubleSpend {
		t.Fatalf("expected DoubleSpend on replay, got %v", err)
	}
}

func TestBalanceAndUtxosWithMultipleUnconsolidatedFundOutputs(t *testing.T) {
	l, m := newTestLedger(t)
	trustee := newWallet(t, 1)
	alice := newWallet(t, 2)
	bob := newWallet(t, 3)

	claim1 := claimFixture(t, m, trustee.priv.Public(), alice, 300)
	claim1Final, err := l.Submit(context.Background(), claim1)
	if err != nil {
		t.Fatalf("claim1: %v", err)
	}
	claim2 := claimFixture(t, m, trustee.priv.Public(), alice, 700)
	claim2Final, err := l.Submit(context.Background(), claim2)
	if err != nil {
		t.Fatalf("claim2: %v", err)
	}

	bal, err := l.Balance(alice.addr)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 1000 {
		t.Fatalf("balance = %d, want 1000 (two never-consolidated outputs)", bal)
	}

	utxos, err := l.Utxos(alice.addr)
	if err != nil {
		t.Fatalf("Utxos: %v", err)
	}
	if len(utxos) != 2 {
		t.Fatalf("expected 2 utxos, got %+v", utxos)
	}

	// Spend only claim1's output; claim2's output must remain both in
	// the balance and in the utxo set.
	spend := &txmodel.ConclaveTx{
		Version: 1,
		ConclaveInputs: []txmodel.ConclaveInput{
			{Outpoint: txmodel.Outpoint{TxID: claim1Final, Index: 0}, Sequence: 0xffffffff},
		},
		ConclaveOutputs: []txmodel.ConclaveOutput{{ScriptPubKey: bob.spk, Value: 300}},
	}
	signInput(t, spend, 0, claim1.ConclaveOutputs[0], alice)
	if _, err := l.Submit(context.Background(), spend); err != nil {
		t.Fatalf("spend: %v", err)
	}

	bal, err = l.Balance(alice.addr)
	if err != nil {
		t.Fatalf("Balance after partial spend: %v", err)
	}
	if bal != 700 {
		t.Fatalf("balance after partial spend = %d, want 700", bal)
	}

	utxos, err = l.Utxos(alice.addr)
	if err != nil {
		t.Fatalf("Utxos after partial spend: %v", err)
	}
	if len(utxos) != 1 || utxos[0].Outpoint.TxID != claim2Final {
		t.Fatalf("expected only claim2's output to remain, got %+v", utxos)
	}

	bobBal, err := l.Balance(bob.addr)
	if err != nil {
		t.Fatalf("bob Balance: %v", err)
	}
	if bobBal != 300 {
		t.Fatalf("bob balance = %d, want 300", bobBal)
	}
}

