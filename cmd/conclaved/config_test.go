package main

import "testing"

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateConfigRejectsEmptyDisplayName(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DisplayName = ""
	if err := ValidateConfig(cfg); err == nil {
		t.Fatalf("expected error for empty DisplayName")
	}
}

func TestValidateConfigRejectsBadPrivateKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PrivateKey = "not-hex"
	if err := ValidateConfig(cfg); err == nil {
		t.Fatalf("expected error for invalid PrivateKey hex")
	}
}

func TestValidateConfigAcceptsValidPrivateKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PrivateKey = "0000000000000000000000000000000000000000000000000000000000000001"
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("valid private key should validate: %v", err)
	}
}

func TestValidateConfigRejectsBadBindAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RPC.BindAddr = "not-an-addr"
	if err := ValidateConfig(cfg); err == nil {
		t.Fatalf("expected error for invalid RPC.BindAddr")
	}
}

func TestValidateConfigRejectsEmptyDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConclaveChain.DataDir = ""
	if err := ValidateConfig(cfg); err == nil {
		t.Fatalf("expected error for empty ConclaveChain.DataDir")
	}
}

func TestValidateConfigRejectsNonPositivePollInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chainwatch.PollIntervalSeconds = 0
	if err := ValidateConfig(cfg); err == nil {
		t.Fatalf("expected error for non-positive PollIntervalSeconds")
	}
}
