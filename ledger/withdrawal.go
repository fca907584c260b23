package ledger

import "log"

// StartLoggingConsumer drains the withdrawal queue and logs each
// request, standing in for the Bitcoin-side broadcaster that §9 leaves
// out of scope. Callers wanting real withdrawal execution should read
// from Withdrawals() themselves instead of calling this.
func (l *Ledger) StartLoggingConsumer() {
	go func() {
		for out := range l.withdrawals {
			log.Printf("ledger: withdrawal queued: value=%d scriptPubKey=%x", out.Value, out.ScriptPubKey.Bytes())
		}
	}()
}
