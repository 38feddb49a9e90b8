// Copyright 2025 Certen Protocol

package processor

import (
	"context"
	"testing"
	"time"
)

func TestChannelSinkSendAndReceive(t *testing.T) {
	sink := NewChannelSink(1)
	msg := Message{Kind: KindSignShares, Attempt: 1}

	if err := sink.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-sink.Messages():
		if got.Kind != KindSignShares || got.Attempt != 1 {
			t.Fatalf("received message mismatch: %+v", got)
		}
	default:
		t.Fatalf("expected the sent message to be immediately available")
	}
}

func TestChannelSinkSendBlocksWhenFullUntilContextCancelled(t *testing.T) {
	sink := NewChannelSink(1)
	if err := sink.Send(context.Background(), Message{Kind: KindKeyGenCommitments}); err != nil {
		t.Fatalf("first Send: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := sink.Send(ctx, Message{Kind: KindKeyGenShares})
	if err == nil {
		t.Fatalf("expected Send to fail once the buffer is full and the context expires")
	}
	if err != context.DeadlineExceeded {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestChannelSinkSendUnblocksWhenConsumerDrains(t *testing.T) {
	sink := NewChannelSink(0)
	done := make(chan error, 1)
	go func() {
		done <- sink.Send(context.Background(), Message{Kind: KindBatchShares})
	}()

	select {
	case got := <-sink.Messages():
		if got.Kind != KindBatchShares {
			t.Fatalf("unexpected message kind: %v", got.Kind)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for the unbuffered send to reach the consumer")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Send returned an error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for Send to return after the consumer drained it")
	}
}

func TestSlashIntentCarriedOnMessage(t *testing.T) {
	intent := SlashIntent{Signer: [32]byte{1}, Severity: SlashFull, Reason: "equivocation"}
	msg := Message{Kind: KindSlashIntent, Slash: intent}
	if msg.Slash.Severity != SlashFull {
		t.Fatalf("expected SlashFull severity to round trip through Message")
	}
}
