// Copyright 2025 Certen Protocol

package config

import (
	"strings"
	"testing"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TSS_GENESIS", "")
	t.Setenv("TSS_SET", "")
	t.Setenv("TSS_THRESHOLD", "2")
	t.Setenv("TSS_SELF_INDEX", "1")
	t.Setenv("TSS_PEER_PUBKEYS", "aa,bb,cc")
	t.Setenv("TSS_DATA_DIR", "")
	t.Setenv("TSS_LONG_TERM_KEY_PATH", "")
	t.Setenv("TSS_METRICS_ADDR", "")
	t.Setenv("TSS_POLL_INTERVAL", "")
	t.Setenv("TSS_SLASH_EPOCH", "")
}

func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Genesis != ([32]byte{}) {
		t.Fatalf("expected an empty TSS_GENESIS to default to the zero hash")
	}
	if cfg.Set != 0 {
		t.Fatalf("expected Set to default to 0, got %d", cfg.Set)
	}
	if cfg.Threshold != 2 || cfg.SelfIndex != 1 {
		t.Fatalf("threshold/self-index mismatch: %+v", cfg)
	}
	if len(cfg.PeerPubkeysHex) != 3 {
		t.Fatalf("expected 3 peers, got %d", len(cfg.PeerPubkeysHex))
	}
	if cfg.DataDir != "./data" {
		t.Fatalf("expected default data dir, got %q", cfg.DataDir)
	}
	if cfg.LongTermKeyPath != "./data/long_term_key.hex" {
		t.Fatalf("expected the long-term key path to default under the data dir, got %q", cfg.LongTermKeyPath)
	}
	if cfg.MetricsAddr != "0.0.0.0:9464" {
		t.Fatalf("expected default metrics addr, got %q", cfg.MetricsAddr)
	}
	if cfg.PollInterval.Seconds() != 2 {
		t.Fatalf("expected default poll interval of 2s, got %v", cfg.PollInterval)
	}
	if cfg.SlashEpoch.Seconds() != 30 {
		t.Fatalf("expected default slash epoch of 30s, got %v", cfg.SlashEpoch)
	}
}

func TestLoadRejectsThresholdOutOfRange(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TSS_THRESHOLD", "5")

	if _, err := Load(); err == nil {
		t.Fatalf("expected an error for a threshold exceeding the peer count")
	}
}

func TestLoadRejectsZeroThreshold(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TSS_THRESHOLD", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected an error for a zero threshold")
	}
}

func TestLoadRejectsSelfIndexOutOfRange(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TSS_SELF_INDEX", "4")

	if _, err := Load(); err == nil {
		t.Fatalf("expected an error for a self index exceeding the peer count")
	}
}

func TestLoadDecodesGenesisWithHexPrefix(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TSS_GENESIS", "0xab"+strings.Repeat("00", 31))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Genesis[0] != 0xab {
		t.Fatalf("expected the first genesis byte to be 0xab, got %x", cfg.Genesis[0])
	}
}

func TestLoadRejectsMalformedGenesisHex(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TSS_GENESIS", "not-hex")

	if _, err := Load(); err == nil {
		t.Fatalf("expected an error for malformed genesis hex")
	}
}

func TestLoadRejectsWrongLengthGenesis(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TSS_GENESIS", "aabbcc")

	if _, err := Load(); err == nil {
		t.Fatalf("expected an error for a genesis hash of the wrong length")
	}
}

func TestLoadHonorsExplicitLongTermKeyPath(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TSS_LONG_TERM_KEY_PATH", "/custom/path/key.hex")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LongTermKeyPath != "/custom/path/key.hex" {
		t.Fatalf("expected the explicit long-term key path to be honored, got %q", cfg.LongTermKeyPath)
	}
}
