// Copyright 2025 Certen Protocol
//
// cmd/coordinator is the process entrypoint for one validator's
// participation in one cohort: it loads configuration, opens the
// goleveldb-backed store, constructs the DKG/signing machines and the
// scanner/reducer/cohort pipeline, and serves /metrics, following
// main.go's Load-config / construct-components / signal-wait / graceful-
// shutdown shape.
package main

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/certen/tss-coordinator/internal/cohort"
	"github.com/certen/tss-coordinator/internal/config"
	"github.com/certen/tss-coordinator/internal/curve"
	"github.com/certen/tss-coordinator/internal/dkg"
	"github.com/certen/tss-coordinator/internal/kvstore"
	"github.com/certen/tss-coordinator/internal/metrics"
	"github.com/certen/tss-coordinator/internal/processor"
	"github.com/certen/tss-coordinator/internal/scanner"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		dataDir   = flag.String("data-dir", "", "Override TSS_DATA_DIR")
		selfIndex = flag.Int("self-index", 0, "Override TSS_SELF_INDEX")
		showHelp  = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *showHelp {
		printHelp()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *selfIndex != 0 {
		cfg.SelfIndex = *selfIndex
	}

	// runID has no protocol meaning: batch/plan ids are content-derived
	// 32-byte hashes per spec.md §3, never random. This is purely a log
	// correlation tag for telling apart restarts of the same validator in
	// aggregated log output.
	runID := uuid.NewString()
	log.Printf("[coordinator] starting: run=%s genesis=%x set=%d threshold=%d self=%d peers=%d",
		runID, cfg.Genesis, cfg.Set, cfg.Threshold, cfg.SelfIndex, len(cfg.PeerPubkeysHex))

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		log.Fatal("Failed to create data directory:", err)
	}

	db, err := dbm.NewGoLevelDB("tss-coordinator", cfg.DataDir)
	if err != nil {
		log.Fatal("Failed to open storage:", err)
	}
	store := kvstore.New(db)

	selfLongTerm, err := loadOrGenerateLongTermKey(cfg.LongTermKeyPath)
	if err != nil {
		log.Fatal("Failed to load long-term key:", err)
	}

	peerPubkeys, validators, err := decodePeers(cfg.PeerPubkeysHex)
	if err != nil {
		log.Fatal("Failed to decode peer public keys:", err)
	}

	spec, err := cohort.New(cfg.Genesis, cfg.Set, cfg.Threshold, validators)
	if err != nil {
		log.Fatal("Failed to build cohort spec:", err)
	}

	var entropy [32]byte
	if _, err := cryptorand.Read(entropy[:]); err != nil {
		log.Fatal("Failed to seed entropy:", err)
	}

	dkgMachine := dkg.NewMachine(store, entropy, cfg.SelfIndex, selfLongTerm, peerPubkeys)

	reg := prometheus.NewRegistry()
	metricSet := metrics.NewSet(reg)
	_ = metricSet

	sink := processor.NewChannelSink(256)
	slashes := scanner.NewSlashLedger()
	reducer := scanner.NewReducer(store, spec, sink, slashes)
	src := &unconnectedBlockSource{}
	logScanner := scanner.New(store, cfg.Genesis, src, reducer, scanner.NewDeadlineTimeout(cfg.AttemptTimeout))

	cohortCfg := scanner.DefaultCohortConfig()
	cohortCfg.PollInterval = cfg.PollInterval
	cohortCfg.SlashEpoch = cfg.SlashEpoch
	cohortCfg.Logger = log.New(os.Stdout, fmt.Sprintf("[cohort run=%s] ", runID), log.LstdFlags)
	cohortTask := scanner.NewCohort(cfg.Genesis, logScanner, slashes, sink, cohortCfg)

	outboundLog := log.New(os.Stdout, fmt.Sprintf("[outbound run=%s] ", runID), log.LstdFlags)
	consumer := newOutboundConsumer(store, cfg.Genesis, cfg.Set, cfg.SelfIndex, entropy, dkgMachine, outboundLog)

	ctx, cancel := context.WithCancel(context.Background())

	if err := startDkg(store, dkgMachine, cfg.Set, len(validators), cfg.Threshold, outboundLog); err != nil {
		log.Fatal("Failed to start DKG round 0:", err)
	}

	go drainOutbound(ctx, sink, consumer)

	go func() {
		if err := cohortTask.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[coordinator] cohort task stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	httpServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

	go func() {
		log.Printf("[coordinator] metrics listening on %s", cfg.MetricsAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start metrics server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("[coordinator] shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[coordinator] metrics server shutdown error: %v", err)
	}
	if err := db.Close(); err != nil {
		log.Printf("[coordinator] storage close error: %v", err)
	}
	log.Printf("[coordinator] stopped")
}

// drainOutbound feeds each assembled processor.Message to consumer, which
// drives the DKG and signing machines forward. The transport that turns the
// artifacts consumer produces into signed wire.Transactions and broadcasts
// them to the rest of the cohort is an external collaborator (spec.md §1);
// this loop only keeps the sink channel from blocking the cohort's single
// goroutine while that transport is absent.
func drainOutbound(ctx context.Context, sink *processor.ChannelSink, consumer *outboundConsumer) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sink.Messages():
			if !ok {
				return
			}
			if err := consumer.handle(ctx, msg); err != nil {
				log.Printf("[coordinator] outbound message kind=%d id=%x attempt=%d: %v", msg.Kind, msg.ID, msg.Attempt, err)
			}
		}
	}
}

// startDkg initiates round 0 of this cohort's DKG unconditionally at
// startup, producing the round-1 commitments this validator contributes to
// the set. Scanner.CheckTimeout bumps the DKG's CurrentAttempt on timeout,
// but nothing in this process calls GenerateKey for a later attempt.
func startDkg(store *kvstore.Store, machine *dkg.Machine, set uint32, n, t int, logger *log.Logger) error {
	txn := store.Begin()
	cm, err := machine.GenerateKey(txn, dkg.ID{Set: set, Attempt: 0}, n, t)
	if err != nil {
		txn.Discard()
		return fmt.Errorf("dkg generate key: %w", err)
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("dkg commit round 1: %w", err)
	}
	logger.Printf("dkg set=%d attempt=0: round-1 commitments ready (%d bytes), awaiting broadcast", set, len(cm.Bytes()))
	return nil
}

// unconnectedBlockSource reports no further blocks. Real deployments
// replace this with an adapter over the replicated log's own transport
// (out of scope here per spec.md §1); it exists so the scanner loop has a
// concrete BlockSource to poll against at startup.
type unconnectedBlockSource struct{}

func (unconnectedBlockSource) BlockAfter(ctx context.Context, last [32]byte) (scanner.Block, bool, error) {
	return scanner.Block{}, false, nil
}

func loadOrGenerateLongTermKey(path string) (curve.FieldElement, error) {
	if b, err := os.ReadFile(path); err == nil {
		raw, err := hex.DecodeString(string(trimNewline(b)))
		if err != nil {
			return curve.FieldElement{}, fmt.Errorf("parse long-term key file: %w", err)
		}
		var fb [curve.FieldBytes]byte
		if len(raw) != len(fb) {
			return curve.FieldElement{}, fmt.Errorf("long-term key file has %d bytes, want %d", len(raw), len(fb))
		}
		copy(fb[:], raw)
		return curve.FieldFromBytes(fb)
	}

	k, err := curve.RandomFieldElement()
	if err != nil {
		return curve.FieldElement{}, err
	}
	kb := k.Bytes()
	if err := os.WriteFile(path, []byte(hex.EncodeToString(kb[:])), 0o600); err != nil {
		return curve.FieldElement{}, fmt.Errorf("persist long-term key: %w", err)
	}
	return k, nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

// decodePeers parses the configured hex-encoded long-term public keys into
// curve points (1-indexed by validator position) and derives each
// validator's cohort.ValidatorKey identity from the same encoding, since
// this module has no separate validator-identity registry of its own.
func decodePeers(hexKeys []string) (map[int]curve.GroupPoint, []cohort.ValidatorKey, error) {
	peers := make(map[int]curve.GroupPoint, len(hexKeys))
	validators := make([]cohort.ValidatorKey, len(hexKeys))
	for i, h := range hexKeys {
		raw, err := hex.DecodeString(h)
		if err != nil {
			return nil, nil, fmt.Errorf("peer %d: %w", i+1, err)
		}
		var pb [curve.PointBytes]byte
		if len(raw) != len(pb) {
			return nil, nil, fmt.Errorf("peer %d: expected %d bytes, got %d", i+1, len(pb), len(raw))
		}
		copy(pb[:], raw)
		p, err := curve.FromBytes(pb)
		if err != nil {
			return nil, nil, fmt.Errorf("peer %d: %w", i+1, err)
		}
		peers[i+1] = p
		var vk cohort.ValidatorKey
		copy(vk[:], pb[:32])
		validators[i] = vk
	}
	return peers, validators, nil
}

func printHelp() {
	fmt.Println("tss-coordinator: threshold-signing coordinator core")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  TSS_GENESIS            hex-encoded 32-byte cohort genesis")
	fmt.Println("  TSS_SET                DKG set identifier")
	fmt.Println("  TSS_THRESHOLD          signing threshold t")
	fmt.Println("  TSS_SELF_INDEX         this validator's 1-based index")
	fmt.Println("  TSS_PEER_PUBKEYS       comma-separated hex 33-byte long-term public keys, validator order")
	fmt.Println("  TSS_DATA_DIR           storage directory (default ./data)")
	fmt.Println("  TSS_LONG_TERM_KEY_PATH path to this validator's long-term secret key file")
	fmt.Println("  TSS_METRICS_ADDR       address to serve /metrics on (default 0.0.0.0:9464)")
	fmt.Println("  TSS_POLL_INTERVAL      log poll interval (default 2s)")
	fmt.Println("  TSS_SLASH_EPOCH        slash-ledger flush interval (default 30s)")
	fmt.Println("  TSS_ATTEMPT_TIMEOUT    per-attempt re-attempt deadline (default 60s)")
}
