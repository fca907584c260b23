package rpcapi

import (
	"context"
	"encoding/json"
	"fmt"

	"conclave.dev/node/addr"
	"conclave.dev/node/chainadapter"
	"conclave.dev/node/ledger"
	"conclave.dev/node/script"
	"conclave.dev/node/txmodel"
	"conclave.dev/node/xcrypto"
)

// dispatch decodes params into the request shape the named method
// expects, calls the corresponding Server method, and returns the
// response value for the worker to marshal back. Unknown methods are
// a client error, not a panic.
func (s *Server) dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "NodeInfo":
		var req NodeInfoRequest
		if len(params) > 0 {
			if err := json.Unmarshal(params, &req); err != nil {
				return nil, fmt.Errorf("rpcapi: params: %w", err)
			}
		}
		return s.NodeInfo(ctx, req)
	case "GetAddressBalance":
		var req GetAddressBalanceRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, fmt.Errorf("rpcapi: params: %w", err)
		}
		return s.GetAddressBalance(ctx, req)
	case "GetUtxos":
		var req GetUtxosRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, fmt.Errorf("rpcapi: params: %w", err)
		}
		return s.GetUtxos(ctx, req)
	case "MakeEntryTx":
		var req MakeEntryTxRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, fmt.Errorf("rpcapi: params: %w", err)
		}
		return s.MakeEntryTx(ctx, req)
	case "SubmitBitcoinTx":
		var req SubmitBitcoinTxRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, fmt.Errorf("rpcapi: params: %w", err)
		}
		return s.SubmitBitcoinTx(ctx, req)
	case "SubmitConclaveTx":
		var req SubmitConclaveTxRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, fmt.Errorf("rpcapi: params: %w", err)
		}
		return s.SubmitConclaveTx(ctx, req)
	default:
		return nil, fmt.Errorf("rpcapi: unknown method %q", method)
	}
}

// Server answers the RPC methods of §6.3 against a single ledger.Ledger
// and chainadapter.Adapter pair. Server itself holds no mutable state:
// all serialization happens inside Ledger per §5.
type Server struct {
	ledger      *ledger.Ledger
	adapter     chainadapter.Adapter
	displayName string
	testnet     bool
}

// NewServer constructs a Server. displayName/testnet feed NodeInfo only.
func NewServer(l *ledger.Ledger, adapter chainadapter.Adapter, displayName string, testnet bool) *Server {
	return &Server{ledger: l, adapter: adapter, displayName: displayName, testnet: testnet}
}

func (s *Server) NodeInfo(_ context.Context, _ NodeInfoRequest) (NodeInfoResponse, error) {
	tip, err := s.ledger.ChainTip()
	if err != nil {
		return NodeInfoResponse{}, err
	}
	return NodeInfoResponse{
		DisplayName:    s.displayName,
		Testnet:        s.testnet,
		ChainTipHash:   tip.Hash().String(),
		ChainTipHeight: U64(tip.Height),
	}, nil
}

func (s *Server) GetAddressBalance(_ context.Context, req GetAddressBalanceRequest) (GetAddressBalanceResponse, error) {
	a, err := addr.Parse(req.Address)
	if err != nil {
		return GetAddressBalanceResponse{}, fmt.Errorf("rpcapi: address: %w", err)
	}
	balance, err := s.ledger.Balance(a)
	if err != nil {
		return GetAddressBalanceResponse{}, err
	}
	return GetAddressBalanceResponse{Balance: U64(balance)}, nil
}

func (s *Server) GetUtxos(_ context.Context, req GetUtxosRequest) (GetUtxosResponse, error) {
	a, err := addr.Parse(req.Address)
	if err != nil {
		return GetUtxosResponse{}, fmt.Errorf("rpcapi: address: %w", err)
	}
	utxos, err := s.ledger.Utxos(a)
	if err != nil {
		return GetUtxosResponse{}, err
	}
	resp := GetUtxosResponse{Utxos: make([]Utxo, len(utxos))}
	for i, u := range utxos {
		resp.Utxos[i] = Utxo{Outpoint: outpointToJSON(u.Outpoint), Output: conclaveOutputToJSON(u.Output)}
	}
	return resp, nil
}

// MakeEntryTx assembles the unsigned claim tx and its claim script for
// a client that already knows which Bitcoin outpoint it intends to
// fund. The caller is responsible for broadcasting a Bitcoin tx whose
// referenced output is a P2WSH of the returned commitment before
// SubmitConclaveTx will find UnknownFundTx/ScriptMismatch satisfied.
func (s *Server) MakeEntryTx(_ context.Context, req MakeEntryTxRequest) (MakeEntryTxResponse, error) {
	fp, err := outpointFromJSON(req.FundPoint)
	if err != nil {
		return MakeEntryTxResponse{}, err
	}
	outputs := make([]txmodel.ConclaveOutput, len(req.ConclaveOutputs))
	for i, o := range req.ConclaveOutputs {
		co, err := conclaveOutputFromJSON(o)
		if err != nil {
			return MakeEntryTxResponse{}, err
		}
		outputs[i] = co
	}

	tx := &txmodel.ConclaveTx{
		MinSigs:         req.MinSigs,
		FundPoint:       &fp,
		ConclaveOutputs: outputs,
	}
	for _, hexPub := range req.Trustees {
		raw, err := hexDecode(hexPub)
		if err != nil {
			return MakeEntryTxResponse{}, err
		}
		pub, err := xcrypto.PubKeyFromCompressed(raw)
		if err != nil {
			return MakeEntryTxResponse{}, fmt.Errorf("rpcapi: trustee pubkey: %w", err)
		}
		tx.Trustees = append(tx.Trustees, pub)
	}

	claimScript, err := txmodel.ClaimScript(tx.MinSigs, tx.Trustees, tx.ConclaveOutputs)
	if err != nil {
		return MakeEntryTxResponse{}, fmt.Errorf("rpcapi: claim script: %w", err)
	}
	fundSPK := script.P2WSHScript(claimScript)

	return MakeEntryTxResponse{
		Tx:               conclaveTxToJSON(tx),
		ClaimScript:      hexEncode(claimScript.Bytes()),
		FundScriptPubKey: hexEncode(fundSPK.Bytes()),
	}, nil
}

// SubmitBitcoinTx forwards rawTx to the chain adapter's submit_tx
// oracle (§6.2) — a pass-through, not a side-ledger validation.
func (s *Server) SubmitBitcoinTx(ctx context.Context, req SubmitBitcoinTxRequest) (SubmitBitcoinTxResponse, error) {
	raw, err := hexDecode(req.RawTx)
	if err != nil {
		return SubmitBitcoinTxResponse{}, err
	}
	tx, err := txmodel.DeserializeBitcoinTx(raw)
	if err != nil {
		return SubmitBitcoinTxResponse{}, fmt.Errorf("rpcapi: raw tx: %w", err)
	}
	txID, err := s.adapter.SubmitTx(ctx, tx)
	if err != nil {
		return SubmitBitcoinTxResponse{}, err
	}
	return SubmitBitcoinTxResponse{TxID: txID.String()}, nil
}

func (s *Server) SubmitConclaveTx(ctx context.Context, req SubmitConclaveTxRequest) (SubmitConclaveTxResponse, error) {
	tx, err := conclaveTxFromJSON(req.Tx)
	if err != nil {
		return SubmitConclaveTxResponse{}, err
	}
	finalTxID, err := s.ledger.Submit(ctx, tx)
	if err != nil {
		return SubmitConclaveTxResponse{}, err
	}
	return SubmitConclaveTxResponse{TxID: finalTxID.String()}, nil
}
