// Copyright 2025 Certen Protocol
//
// Config: process-level configuration for one coordinator cohort,
// following pkg/config/config.go's env-var-with-default loading pattern
// (getEnv/getEnvInt/getEnvDuration), generalized from the teacher's
// Accumulate/Ethereum/Postgres fields to the cohort identity and storage
// fields this module actually needs.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the process-level configuration for one validator's
// participation in one cohort.
type Config struct {
	// Cohort identity (spec.md §3).
	Genesis   [32]byte
	Set       uint32
	Threshold int
	SelfIndex int

	// PeerPubkeysHex is the cohort's long-term public keys in validator
	// order 1..n, hex-encoded 33-byte compressed points (internal/curve
	// codec). Index SelfIndex-1 is this process's own public key.
	PeerPubkeysHex []string

	// Storage.
	DataDir         string
	LongTermKeyPath string

	// Server.
	MetricsAddr string

	// Timing.
	PollInterval   time.Duration
	SlashEpoch     time.Duration
	AttemptTimeout time.Duration
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

// Load reads configuration from the environment, applying the same
// sane-default-with-override policy as the teacher's config.Load.
func Load() (*Config, error) {
	genesisHex := getEnv("TSS_GENESIS", "")
	genesis, err := decodeGenesis(genesisHex)
	if err != nil {
		return nil, fmt.Errorf("config: TSS_GENESIS: %w", err)
	}

	peers := getEnv("TSS_PEER_PUBKEYS", "")
	var peerList []string
	if peers != "" {
		peerList = strings.Split(peers, ",")
	}

	cfg := &Config{
		Genesis:         genesis,
		Set:             uint32(getEnvInt("TSS_SET", 0)),
		Threshold:       getEnvInt("TSS_THRESHOLD", 0),
		SelfIndex:       getEnvInt("TSS_SELF_INDEX", 0),
		PeerPubkeysHex:  peerList,
		DataDir:         getEnv("TSS_DATA_DIR", "./data"),
		LongTermKeyPath: getEnv("TSS_LONG_TERM_KEY_PATH", ""),
		MetricsAddr:     getEnv("TSS_METRICS_ADDR", "0.0.0.0:9464"),
		PollInterval:    getEnvDuration("TSS_POLL_INTERVAL", 2*time.Second),
		SlashEpoch:      getEnvDuration("TSS_SLASH_EPOCH", 30*time.Second),
		AttemptTimeout:  getEnvDuration("TSS_ATTEMPT_TIMEOUT", 60*time.Second),
	}

	if cfg.LongTermKeyPath == "" {
		cfg.LongTermKeyPath = cfg.DataDir + "/long_term_key.hex"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Threshold <= 0 || c.Threshold > len(c.PeerPubkeysHex) {
		return fmt.Errorf("config: threshold %d invalid for %d peers", c.Threshold, len(c.PeerPubkeysHex))
	}
	if c.SelfIndex < 1 || c.SelfIndex > len(c.PeerPubkeysHex) {
		return fmt.Errorf("config: self index %d out of range for %d peers", c.SelfIndex, len(c.PeerPubkeysHex))
	}
	return nil
}

func decodeGenesis(s string) ([32]byte, error) {
	var out [32]byte
	if s == "" {
		return out, nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}
