package chainadapter

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"conclave.dev/node/addr"
	"conclave.dev/node/hashes"
	"conclave.dev/node/txmodel"
)

// RPC is a thin JSON-RPC client Adapter talking to an external
// Bitcoin-compatible node. It is the production collaborator referred
// to in §6.2 as an external oracle outside this core's scope; the
// core never assumes atomicity between its calls and the ledger's own
// writes.
type RPC struct {
	endpoint string
	client   *http.Client
}

// NewRPC returns an Adapter backed by the JSON-RPC endpoint at url.
func NewRPC(url string, client *http.Client) *RPC {
	if client == nil {
		client = http.DefaultClient
	}
	return &RPC{endpoint: url, client: client}
}

type rpcRequest struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

func (r *RPC) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(rpcRequest{Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("chainadapter: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("chainadapter: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return &AdapterError{Op: method, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &AdapterError{Op: method, Err: err}
	}
	var parsed rpcResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return &AdapterError{Op: method, Err: err}
	}
	if parsed.Error != nil {
		return &AdapterError{Op: method, Err: fmt.Errorf("%s", *parsed.Error)}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(parsed.Result, out)
}

func (r *RPC) GetTx(ctx context.Context, txID hashes.Hash32) (*txmodel.BitcoinTx, error) {
	var reply struct {
		RawHex string `json:"raw_hex"`
		Found  bool   `json:"found"`
	}
	if err := r.call(ctx, "get_tx", map[string]string{"tx_id": txID.String()}, &reply); err != nil {
		return nil, err
	}
	if !reply.Found {
		return nil, ErrNotFound
	}
	raw, err := hex.DecodeString(reply.RawHex)
	if err != nil {
		return nil, fmt.Errorf("chainadapter: decode raw_hex: %w", err)
	}
	return txmodel.DeserializeBitcoinTx(raw)
}

func (r *RPC) GetAddressBalance(ctx context.Context, a addr.Address) (uint64, error) {
	var reply struct {
		ValueStr string `json:"value"`
	}
	if err := r.call(ctx, "get_address_balance", map[string]string{"address": a.String()}, &reply); err != nil {
		return 0, err
	}
	var value uint64
	if _, err := fmt.Sscan(reply.ValueStr, &value); err != nil {
		return 0, fmt.Errorf("chainadapter: parse balance: %w", err)
	}
	return value, nil
}

func (r *RPC) SubmitTx(ctx context.Context, tx *txmodel.BitcoinTx) (hashes.Hash32, error) {
	raw := tx.Serialize()
	var reply struct {
		TxIDHex string `json:"tx_id"`
	}
	if err := r.call(ctx, "submit_tx", map[string]string{"raw_hex": hex.EncodeToString(raw)}, &reply); err != nil {
		return hashes.Hash32{}, err
	}
	return hashes.Hash32FromHex(reply.TxIDHex)
}

func (r *RPC) LatestBlockHash(ctx context.Context) (hashes.Hash32, error) {
	var reply struct {
		HashHex string `json:"hash"`
	}
	if err := r.call(ctx, "latest_block_hash", nil, &reply); err != nil {
		return hashes.Hash32{}, err
	}
	return hashes.Hash32FromHex(reply.HashHex)
}

var _ Adapter = (*RPC)(nil)
