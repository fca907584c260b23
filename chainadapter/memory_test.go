package chainadapter

import (
	"context"
	"testing"

	"conclave.dev/node/hashes"
	"conclave.dev/node/txmodel"
)

func TestMemoryGetTxRoundTrip(t *testing.T) {
	m := NewMemory()
	tx := &txmodel.BitcoinTx{Version: 1, Outputs: []txmodel.BitcoinOutput{{Value: 100}}}
	id := m.PutTx(tx)

	got, err := m.GetTx(context.Background(), id)
	if err != nil {
		t.Fatalf("GetTx: %v", err)
	}
	if got.Outputs[0].Value != 100 {
		t.Fatalf("unexpected tx: %+v", got)
	}
}

func TestMemoryGetTxNotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.GetTx(context.Background(), hashes.Hash32{0x01})
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemorySubmitTxRecordsHistory(t *testing.T) {
	m := NewMemory()
	tx := &txmodel.BitcoinTx{Version: 2}
	id, err := m.SubmitTx(context.Background(), tx)
	if err != nil {
		t.Fatalf("SubmitTx: %v", err)
	}
	if id != tx.TxID() {
		t.Fatalf("SubmitTx returned wrong id")
	}
	if len(m.Submitted()) != 1 {
		t.Fatalf("expected 1 submitted tx, got %d", len(m.Submitted()))
	}
}

func TestMemoryLatestBlockHash(t *testing.T) {
	m := NewMemory()
	want := hashes.Hash32{0xaa, 0xbb}
	m.SetLatestBlockHash(want)
	got, err := m.LatestBlockHash(context.Background())
	if err != nil || got != want {
		t.Fatalf("got %s err %v", got, err)
	}
}
