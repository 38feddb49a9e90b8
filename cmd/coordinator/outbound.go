// Copyright 2025 Certen Protocol
//
// outboundConsumer drives the DKG and signing state machines forward as the
// reducer assembles each round's payloads, so this process actually
// completes a key generation or a signature instead of only logging that a
// processor.Message arrived. Turning the resulting artifact into a new
// signed wire.Transaction and broadcasting it to the rest of the cohort is
// the external transport collaborator spec.md §1 excludes from this
// module's scope; this consumer stops at the point where that broadcast
// would happen and logs what it produced.

package main

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/certen/tss-coordinator/internal/curve"
	"github.com/certen/tss-coordinator/internal/dkg"
	"github.com/certen/tss-coordinator/internal/kvstore"
	"github.com/certen/tss-coordinator/internal/processor"
	"github.com/certen/tss-coordinator/internal/scanner"
	"github.com/certen/tss-coordinator/internal/signing"
	"github.com/certen/tss-coordinator/internal/wire"
)

// outboundConsumer owns the locally-driven half of the protocol state
// machines: it turns an assembled processor.Message back into the typed
// messages dkg.Machine and signing.Machine expect, and carries forward the
// in-memory state (decoded commitments, decoded preprocesses) each machine
// needs across the two rounds of its own round-trip.
type outboundConsumer struct {
	store     *kvstore.Store
	genesis   [32]byte
	dkgSet    uint32
	selfIndex int
	entropy   [32]byte
	dkgM      *dkg.Machine
	logger    *log.Logger

	mu           sync.Mutex
	commitments  map[uint32]map[int]dkg.CommitmentsMessage
	preprocesses map[signing.ID]map[int]signing.PreprocessMessage
	signingM     *signing.Machine
	groupKey     curve.GroupPoint
}

func newOutboundConsumer(store *kvstore.Store, genesis [32]byte, dkgSet uint32, selfIndex int, entropy [32]byte, dkgM *dkg.Machine, logger *log.Logger) *outboundConsumer {
	return &outboundConsumer{
		store:        store,
		genesis:      genesis,
		dkgSet:       dkgSet,
		selfIndex:    selfIndex,
		entropy:      entropy,
		dkgM:         dkgM,
		logger:       logger,
		commitments:  make(map[uint32]map[int]dkg.CommitmentsMessage),
		preprocesses: make(map[signing.ID]map[int]signing.PreprocessMessage),
	}
}

// handle dispatches one assembled processor.Message to the machine it
// belongs to.
func (c *outboundConsumer) handle(ctx context.Context, msg processor.Message) error {
	switch msg.Kind {
	case processor.KindKeyGenCommitments:
		return c.handleDkgCommitments(msg)
	case processor.KindKeyGenShares:
		return c.handleDkgShares(msg)
	case processor.KindBatchPreprocesses:
		return c.handlePreprocesses(scanner.ZoneBatch, msg)
	case processor.KindSignPreprocesses:
		return c.handlePreprocesses(scanner.ZoneSign, msg)
	case processor.KindBatchShares:
		return c.handleShares(scanner.ZoneBatch, msg)
	case processor.KindSignShares:
		return c.handleShares(scanner.ZoneSign, msg)
	case processor.KindSlashIntent:
		c.logger.Printf("slash intent: signer=%x severity=%d reason=%q", msg.Slash.Signer, msg.Slash.Severity, msg.Slash.Reason)
		return nil
	default:
		c.logger.Printf("unhandled outbound message kind=%d id=%x attempt=%d", msg.Kind, msg.ID, msg.Attempt)
		return nil
	}
}

func (c *outboundConsumer) handleDkgCommitments(msg processor.Message) error {
	byIndex := make(map[int]dkg.CommitmentsMessage, len(msg.Payload))
	for idx, raw := range msg.Payload {
		cm, err := dkg.CommitmentsMessageFromBytes(raw)
		if err != nil {
			return fmt.Errorf("decode dkg commitments from %d: %w", idx, err)
		}
		byIndex[idx] = cm
	}

	id := dkg.ID{Set: c.dkgSet, Attempt: msg.Attempt}
	txn := c.store.Begin()
	shares, err := c.dkgM.HandleCommitments(txn, id, byIndex)
	if err != nil {
		txn.Discard()
		return fmt.Errorf("dkg handle commitments: %w", err)
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("dkg commit commitments: %w", err)
	}

	c.mu.Lock()
	c.commitments[msg.Attempt] = byIndex
	c.mu.Unlock()

	for peer, share := range shares {
		c.logger.Printf("dkg set=%d attempt=%d: encrypted share for participant %d ready (%d bytes), awaiting broadcast",
			c.dkgSet, msg.Attempt, peer, len(share.Bytes()))
	}
	return nil
}

func (c *outboundConsumer) handleDkgShares(msg processor.Message) error {
	byIndex := make(map[int]dkg.ShareMessage, len(msg.Payload))
	for sender, raw := range msg.Payload {
		tx, err := wire.Decode(raw)
		if err != nil {
			return fmt.Errorf("decode dkg shares transaction from %d: %w", sender, err)
		}
		own, ok := tx.Shares[uint16(c.selfIndex)]
		if !ok {
			return fmt.Errorf("dkg shares from %d carried no share for self index %d", sender, c.selfIndex)
		}
		sm, err := dkg.ShareMessageFromBytes(own)
		if err != nil {
			return fmt.Errorf("decode dkg share from %d: %w", sender, err)
		}
		byIndex[sender] = sm
	}

	id := dkg.ID{Set: c.dkgSet, Attempt: msg.Attempt}
	c.mu.Lock()
	commitmentsByIndex := c.commitments[msg.Attempt]
	c.mu.Unlock()

	txn := c.store.Begin()
	if _, err := c.dkgM.HandleShares(txn, id, byIndex, commitmentsByIndex); err != nil {
		txn.Discard()
		return fmt.Errorf("dkg handle shares: %w", err)
	}
	confirmed, err := c.dkgM.ConfirmKey(txn, id)
	if err != nil {
		txn.Discard()
		return fmt.Errorf("dkg confirm key: %w", err)
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("dkg commit shares: %w", err)
	}

	c.mu.Lock()
	delete(c.commitments, msg.Attempt)
	c.signingM = signing.NewMachine(c.selfIndex, confirmed, c.entropy)
	c.groupKey = confirmed.GroupKey
	c.mu.Unlock()

	gb := confirmed.GroupKey.Bytes()
	c.logger.Printf("dkg set=%d attempt=%d complete: group key %x confirmed, signing machine ready", c.dkgSet, msg.Attempt, gb)
	return nil
}

func (c *outboundConsumer) handlePreprocesses(zone scanner.Zone, msg processor.Message) error {
	sm, _, _ := c.signingState()
	if sm == nil {
		return fmt.Errorf("%s preprocesses for %x attempt %d arrived before this validator completed key generation", zone, msg.ID, msg.Attempt)
	}

	preprocesses := make(map[int]signing.PreprocessMessage, len(msg.Payload))
	for idx, raw := range msg.Payload {
		p, err := signing.PreprocessFromBytes(raw)
		if err != nil {
			return fmt.Errorf("decode %s preprocess from %d: %w", zone, idx, err)
		}
		preprocesses[idx] = p
	}

	set, ok, err := scanner.SigningSet(c.store, zone, c.genesis, msg.ID, msg.Attempt)
	if err != nil {
		return fmt.Errorf("load signing set for %x attempt %d: %w", msg.ID, msg.Attempt, err)
	}
	if !ok {
		return fmt.Errorf("no signing set recorded for %s %x attempt %d", zone, msg.ID, msg.Attempt)
	}

	sid := signing.ID{PlanID: msg.ID, Attempt: msg.Attempt}
	share, err := sm.Share(sid, msg.ID[:], set, preprocesses)
	if err != nil {
		return fmt.Errorf("%s share for %x attempt %d: %w", zone, msg.ID, msg.Attempt, err)
	}

	c.mu.Lock()
	c.preprocesses[sid] = preprocesses
	c.mu.Unlock()

	c.logger.Printf("%s id=%x attempt=%d: partial signature ready (%d bytes), awaiting broadcast", zone, msg.ID, msg.Attempt, len(share.Bytes()))
	return nil
}

func (c *outboundConsumer) handleShares(zone scanner.Zone, msg processor.Message) error {
	_, groupKey, ok := c.signingState()
	if !ok {
		return fmt.Errorf("%s shares for %x attempt %d arrived before this validator completed key generation", zone, msg.ID, msg.Attempt)
	}

	shares := make(map[int]signing.ShareMessage, len(msg.Payload))
	for idx, raw := range msg.Payload {
		s, err := signing.ShareFromBytes(raw)
		if err != nil {
			return fmt.Errorf("decode %s share from %d: %w", zone, idx, err)
		}
		shares[idx] = s
	}

	sid := signing.ID{PlanID: msg.ID, Attempt: msg.Attempt}
	c.mu.Lock()
	preprocesses := c.preprocesses[sid]
	c.mu.Unlock()
	if preprocesses == nil {
		return fmt.Errorf("%s shares for %x attempt %d arrived before preprocesses were seen", zone, msg.ID, msg.Attempt)
	}

	r, z := signing.Aggregate(msg.ID[:], groupKey, preprocesses, shares)
	if !signing.Verify(msg.ID[:], groupKey, r, z) {
		return fmt.Errorf("aggregated %s signature for %x attempt %d failed verification", zone, msg.ID, msg.Attempt)
	}

	c.mu.Lock()
	delete(c.preprocesses, sid)
	c.mu.Unlock()

	rb := r.Bytes()
	zb := z.Bytes()
	c.logger.Printf("%s id=%x attempt=%d complete: signature verified (r=%x z=%x)", zone, msg.ID, msg.Attempt, rb, zb)
	return nil
}

// signingState returns the current signing.Machine and group key, or
// (nil, zero point, false) if key generation has not completed yet.
func (c *outboundConsumer) signingState() (*signing.Machine, curve.GroupPoint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signingM, c.groupKey, c.signingM != nil
}
