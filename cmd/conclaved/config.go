package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strings"

	"conclave.dev/node/xcrypto"
)

// Config is the top-level JSON document §6.4 names: Testnet,
// DisplayName, PrivateKey, RPC, BitcoinChain, ConclaveChain,
// Chainwatch. Grounded on node/config.go's flat-struct +
// DefaultConfig/ValidateConfig idiom.
type Config struct {
	Testnet     bool   `json:"Testnet"`
	DisplayName string `json:"DisplayName"`
	// PrivateKey is this node's own SECP256k1 scalar, hex-encoded. The
	// ledger state machine never reads it — trustee/wallet keys always
	// arrive client-side inside a submitted tx — but it is the node's
	// standing identity for whichever trustee role an operator runs it
	// under, so the daemon validates and holds it even though §4's
	// core has no use for it.
	PrivateKey string `json:"PrivateKey"`

	RPC           RPCConfig           `json:"RPC"`
	BitcoinChain  BitcoinChainConfig  `json:"BitcoinChain"`
	ConclaveChain ConclaveChainConfig `json:"ConclaveChain"`
	Chainwatch    ChainwatchConfig    `json:"Chainwatch"`
}

// RPCConfig holds the acceptor bind address for the rpcapi.Listener.
type RPCConfig struct {
	BindAddr string `json:"BindAddr"`
}

// BitcoinChainConfig points the chainadapter.RPC at the Bitcoin node
// this Conclave node treats as its oracle (§6.2). An empty URL selects
// the in-memory adapter, useful for a dry run or test network with no
// live Bitcoin node.
type BitcoinChainConfig struct {
	RPCURL string `json:"RPCURL"`
}

// ConclaveChainConfig names the kvstore data directory (§6.1).
type ConclaveChainConfig struct {
	DataDir string `json:"DataDir"`
}

// ChainwatchConfig holds the chain-watch poll interval. ValidateConfig
// requires it to be positive; the daemon starts no poll loop and does
// not read the value otherwise, so the persisted chain tip is not
// refreshed from the Bitcoin adapter.
type ChainwatchConfig struct {
	PollIntervalSeconds int `json:"PollIntervalSeconds"`
}

func DefaultConfig() Config {
	return Config{
		Testnet:     true,
		DisplayName: "conclave-node",
		RPC:         RPCConfig{BindAddr: "127.0.0.1:19222"},
		BitcoinChain: BitcoinChainConfig{
			RPCURL: "",
		},
		ConclaveChain: ConclaveChainConfig{
			DataDir: DefaultDataDir(),
		},
		Chainwatch: ChainwatchConfig{
			PollIntervalSeconds: 30,
		},
	}
}

func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.DisplayName) == "" {
		return errors.New("DisplayName is required")
	}
	if cfg.PrivateKey != "" {
		raw, err := hex.DecodeString(cfg.PrivateKey)
		if err != nil {
			return fmt.Errorf("invalid PrivateKey: %w", err)
		}
		if _, err := xcrypto.PrivKeyFromBytes(raw); err != nil {
			return fmt.Errorf("invalid PrivateKey: %w", err)
		}
	}
	if err := validateAddr(cfg.RPC.BindAddr); err != nil {
		return fmt.Errorf("invalid RPC.BindAddr: %w", err)
	}
	if strings.TrimSpace(cfg.ConclaveChain.DataDir) == "" {
		return errors.New("ConclaveChain.DataDir is required")
	}
	if cfg.Chainwatch.PollIntervalSeconds <= 0 {
		return errors.New("Chainwatch.PollIntervalSeconds must be > 0")
	}
	return nil
}

func validateAddr(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("empty address")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if strings.TrimSpace(port) == "" {
		return errors.New("missing port")
	}
	if strings.Contains(host, " ") {
		return errors.New("invalid host")
	}
	return nil
}
