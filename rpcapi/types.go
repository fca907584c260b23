// Package rpcapi is the RPC boundary of §6.3: JSON request/response
// shapes for NodeInfo, GetAddressBalance, GetUtxos, MakeEntryTx,
// SubmitBitcoinTx, SubmitConclaveTx, plus the acceptor/worker-pool
// dispatch pipeline that drives a ledger.Ledger from them.
package rpcapi

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"conclave.dev/node/hashes"
	"conclave.dev/node/script"
	"conclave.dev/node/txmodel"
	"conclave.dev/node/xcrypto"
)

// U64 wraps a uint64 so it marshals as a JSON string, preserving
// 64-bit precision across JSON decoders that parse numbers as
// float64 (§6.3).
type U64 uint64

func (v U64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(v), 10))
}

func (v *U64) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("rpcapi: U64: %w", err)
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("rpcapi: U64: %w", err)
	}
	*v = U64(n)
	return nil
}

func hexEncode(b []byte) string { return hex.EncodeToString(b) }

func hexDecode(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("rpcapi: invalid hex: %w", err)
	}
	return b, nil
}

// Outpoint is the JSON shape of a txmodel.Outpoint: hex txid (natural,
// big-endian byte order — not the wire's byte-reversed form) and index.
type Outpoint struct {
	TxID  string `json:"txId"`
	Index uint32 `json:"index"`
}

func outpointToJSON(o txmodel.Outpoint) Outpoint {
	return Outpoint{TxID: o.TxID.String(), Index: o.Index}
}

func outpointFromJSON(o Outpoint) (txmodel.Outpoint, error) {
	txID, err := hashes.Hash32FromHex(o.TxID)
	if err != nil {
		return txmodel.Outpoint{}, err
	}
	return txmodel.Outpoint{TxID: txID, Index: o.Index}, nil
}

// ConclaveOutput is the JSON shape of a txmodel.ConclaveOutput.
type ConclaveOutput struct {
	ScriptPubKey string `json:"scriptPubKey"`
	Value        U64    `json:"value"`
}

func conclaveOutputFromJSON(o ConclaveOutput) (txmodel.ConclaveOutput, error) {
	raw, err := hexDecode(o.ScriptPubKey)
	if err != nil {
		return txmodel.ConclaveOutput{}, err
	}
	return txmodel.ConclaveOutput{ScriptPubKey: script.Script(raw), Value: uint64(o.Value)}, nil
}

func conclaveOutputToJSON(o txmodel.ConclaveOutput) ConclaveOutput {
	return ConclaveOutput{ScriptPubKey: hexEncode(o.ScriptPubKey.Bytes()), Value: U64(o.Value)}
}

// ConclaveInput is the JSON shape of a txmodel.ConclaveInput.
type ConclaveInput struct {
	Outpoint  Outpoint `json:"outpoint"`
	ScriptSig string   `json:"scriptSig"`
	Sequence  uint32   `json:"sequence"`
}

func conclaveInputFromJSON(in ConclaveInput) (txmodel.ConclaveInput, error) {
	op, err := outpointFromJSON(in.Outpoint)
	if err != nil {
		return txmodel.ConclaveInput{}, err
	}
	sig, err := hexDecode(in.ScriptSig)
	if err != nil {
		return txmodel.ConclaveInput{}, err
	}
	return txmodel.ConclaveInput{Outpoint: op, ScriptSig: script.Script(sig), Sequence: in.Sequence}, nil
}

// BitcoinOutput is the JSON shape of a txmodel.BitcoinOutput.
type BitcoinOutput struct {
	Value        U64    `json:"value"`
	ScriptPubKey string `json:"scriptPubKey"`
}

func bitcoinOutputFromJSON(o BitcoinOutput) (txmodel.BitcoinOutput, error) {
	raw, err := hexDecode(o.ScriptPubKey)
	if err != nil {
		return txmodel.BitcoinOutput{}, err
	}
	return txmodel.BitcoinOutput{Value: uint64(o.Value), ScriptPubKey: script.Script(raw)}, nil
}

func bitcoinOutputToJSON(o txmodel.BitcoinOutput) BitcoinOutput {
	return BitcoinOutput{Value: U64(o.Value), ScriptPubKey: hexEncode(o.ScriptPubKey.Bytes())}
}

// ConclaveTx is the JSON shape of a txmodel.ConclaveTx. FundPoint is
// nil for a spend tx, non-nil for a claim tx (§3.3); Trustees is a
// list of lowercase-hex compressed pubkeys.
type ConclaveTx struct {
	Version  uint32 `json:"version"`
	LockTime uint32 `json:"lockTime"`

	MinSigs   uint32    `json:"minSigs"`
	FundPoint *Outpoint `json:"fundPoint,omitempty"`
	Trustees  []string  `json:"trustees,omitempty"`

	ConclaveInputs []ConclaveInput `json:"conclaveInputs,omitempty"`

	BitcoinOutputs  []BitcoinOutput  `json:"bitcoinOutputs,omitempty"`
	ConclaveOutputs []ConclaveOutput `json:"conclaveOutputs"`
}

func conclaveTxToJSON(tx *txmodel.ConclaveTx) ConclaveTx {
	out := ConclaveTx{
		Version:  tx.Version,
		LockTime: tx.LockTime,
		MinSigs:  tx.MinSigs,
	}
	if tx.FundPoint != nil {
		jp := outpointToJSON(*tx.FundPoint)
		out.FundPoint = &jp
	}
	for _, t := range tx.Trustees {
		compressed, err := t.SerializeCompressed()
		if err != nil {
			continue
		}
		out.Trustees = append(out.Trustees, hexEncode(compressed))
	}
	for _, in := range tx.ConclaveInputs {
		out.ConclaveInputs = append(out.ConclaveInputs, ConclaveInput{
			Outpoint:  outpointToJSON(in.Outpoint),
			ScriptSig: hexEncode(in.ScriptSig.Bytes()),
			Sequence:  in.Sequence,
		})
	}
	for _, o := range tx.BitcoinOutputs {
		out.BitcoinOutputs = append(out.BitcoinOutputs, bitcoinOutputToJSON(o))
	}
	for _, o := range tx.ConclaveOutputs {
		out.ConclaveOutputs = append(out.ConclaveOutputs, conclaveOutputToJSON(o))
	}
	return out
}

func conclaveTxFromJSON(in ConclaveTx) (*txmodel.ConclaveTx, error) {
	tx := &txmodel.ConclaveTx{
		Version:  in.Version,
		LockTime: in.LockTime,
		MinSigs:  in.MinSigs,
	}
	if in.FundPoint != nil {
		fp, err := outpointFromJSON(*in.FundPoint)
		if err != nil {
			return nil, err
		}
		tx.FundPoint = &fp
	}
	for _, hexPub := range in.Trustees {
		raw, err := hexDecode(hexPub)
		if err != nil {
			return nil, err
		}
		pub, err := xcrypto.PubKeyFromCompressed(raw)
		if err != nil {
			return nil, fmt.Errorf("rpcapi: trustee pubkey: %w", err)
		}
		tx.Trustees = append(tx.Trustees, pub)
	}
	for _, jin := range in.ConclaveInputs {
		cin, err := conclaveInputFromJSON(jin)
		if err != nil {
			return nil, err
		}
		tx.ConclaveInputs = append(tx.ConclaveInputs, cin)
	}
	for _, jout := range in.BitcoinOutputs {
		bout, err := bitcoinOutputFromJSON(jout)
		if err != nil {
			return nil, err
		}
		tx.BitcoinOutputs = append(tx.BitcoinOutputs, bout)
	}
	for _, jout := range in.ConclaveOutputs {
		cout, err := conclaveOutputFromJSON(jout)
		if err != nil {
			return nil, err
		}
		tx.ConclaveOutputs = append(tx.ConclaveOutputs, cout)
	}
	return tx, nil
}

// NodeInfoRequest carries no fields; NodeInfo takes no parameters.
type NodeInfoRequest struct{}

// NodeInfoResponse reports static identity plus the current chain tip.
type NodeInfoResponse struct {
	DisplayName    string `json:"displayName"`
	Testnet        bool   `json:"testnet"`
	ChainTipHash   string `json:"chainTipHash"`
	ChainTipHeight U64    `json:"chainTipHeight"`
}

// GetAddressBalanceRequest names the wallet address to query (§4.7.4).
type GetAddressBalanceRequest struct {
	Address string `json:"address"`
}

type GetAddressBalanceResponse struct {
	Balance U64 `json:"balance"`
}

// GetUtxosRequest names the wallet address to walk the fund-tip chain of.
type GetUtxosRequest struct {
	Address string `json:"address"`
}

// Utxo is the JSON shape of a ledger.Utxo: the outpoint paired with
// the output it names.
type Utxo struct {
	Outpoint Outpoint       `json:"outpoint"`
	Output   ConclaveOutput `json:"output"`
}

type GetUtxosResponse struct {
	Utxos []Utxo `json:"utxos"`
}

// MakeEntryTxRequest assembles an unsigned claim tx: the Bitcoin fund
// point plus the trustee/minSigs/conclaveOutputs material the claim
// script commits to (§4.6 "claim script derivation"). The caller still
// needs to fund a P2WSH Bitcoin output with the returned claim script's
// commitment before SubmitConclaveTx will accept the result.
type MakeEntryTxRequest struct {
	FundPoint       Outpoint         `json:"fundPoint"`
	MinSigs         uint32           `json:"minSigs"`
	Trustees        []string         `json:"trustees"`
	ConclaveOutputs []ConclaveOutput `json:"conclaveOutputs"`
}

type MakeEntryTxResponse struct {
	Tx               ConclaveTx `json:"tx"`
	ClaimScript      string     `json:"claimScript"`
	FundScriptPubKey string     `json:"fundScriptPubKey"`
}

// SubmitBitcoinTxRequest forwards a raw Bitcoin transaction to the
// chain adapter's submit_tx oracle (§6.2) — this is a convenience pass-
// through, not a side-ledger operation.
type SubmitBitcoinTxRequest struct {
	RawTx string `json:"rawTx"`
}

type SubmitBitcoinTxResponse struct {
	TxID string `json:"txId"`
}

// SubmitConclaveTxRequest carries a fully-formed (unsigned predecessor
// fields are ignored and overwritten) ConclaveTx for ledger.Submit.
type SubmitConclaveTxRequest struct {
	Tx ConclaveTx `json:"tx"`
}

type SubmitConclaveTxResponse struct {
	TxID string `json:"txId"`
}
