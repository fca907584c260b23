package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conclave.dev/node/chainadapter"
	"conclave.dev/node/kvstore"
	"conclave.dev/node/ledger"
	"conclave.dev/node/rpcapi"
	"conclave.dev/node/xcrypto"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("conclaved", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var configFile string
	fs.StringVar(&configFile, "c", "", "path to JSON config file")
	fs.StringVar(&configFile, "config-file", "", "path to JSON config file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if configFile == "" {
		fmt.Fprintln(stderr, "conclaved: -c/--config-file is required")
		return 1
	}
	raw, err := readFileByPath(configFile)
	if err != nil {
		fmt.Fprintf(stderr, "conclaved: read config: %v\n", err)
		return 1
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		fmt.Fprintf(stderr, "conclaved: parse config: %v\n", err)
		return 1
	}
	if err := ValidateConfig(cfg); err != nil {
		fmt.Fprintf(stderr, "conclaved: invalid config: %v\n", err)
		return 1
	}

	env, err := kvstore.Open(cfg.ConclaveChain.DataDir)
	if err != nil {
		fmt.Fprintf(stderr, "conclaved: open data dir: %v\n", err)
		return 2
	}

	var adapter chainadapter.Adapter
	if cfg.BitcoinChain.RPCURL != "" {
		adapter = chainadapter.NewRPC(cfg.BitcoinChain.RPCURL, &http.Client{Timeout: 10 * time.Second})
	} else {
		adapter = chainadapter.NewMemory()
	}

	l := ledger.Open(env, adapter, xcrypto.Secp256k1Provider{})
	l.StartLoggingConsumer()

	server := rpcapi.NewServer(l, adapter, cfg.DisplayName, cfg.Testnet)
	listener := rpcapi.NewListener(server)

	ln, err := net.Listen("tcp", cfg.RPC.BindAddr)
	if err != nil {
		fmt.Fprintf(stderr, "conclaved: rpc listen: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() { serveErr <- listener.Serve(ctx, ln) }()

	fmt.Fprintf(stdout, "conclaved: %s listening on %s (testnet=%v)\n", cfg.DisplayName, cfg.RPC.BindAddr, cfg.Testnet)
	<-ctx.Done()
	fmt.Fprintln(stdout, "conclaved: shutting down")

	if err := <-serveErr; err != nil {
		log.Printf("conclaved: rpc serve: %v", err)
		return 3
	}
	return 0
}
