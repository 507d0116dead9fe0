package roomcore

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ashbrook/roomengine/internal/store"
)

// fakeSink records every write command handed to it, for assertions.
type fakeSink struct {
	cmds chan store.WriteCommand
}

func newFakeSink() *fakeSink {
	return &fakeSink{cmds: make(chan store.WriteCommand, 256)}
}

func (f *fakeSink) Enqueue(cmd store.WriteCommand) {
	f.cmds <- cmd
}

func mustFrame(t *testing.T, ch <-chan Frame, kind FrameKind) Frame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case f := <-ch:
			if f.Kind == kind {
				return f
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	t.Fatalf("expected frame kind %v not received", kind)
	return Frame{}
}

func mustWriteCommand(t *testing.T, ch <-chan store.WriteCommand, kind store.WriteCommandKind) store.WriteCommand {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case c := <-ch:
			if c.Kind == kind {
				return c
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	t.Fatalf("expected write command kind %v not received", kind)
	return store.WriteCommand{}
}

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.CoalesceWindow = 30 * time.Millisecond
	cfg.RateLimitInterval = 50 * time.Millisecond
	return cfg
}

func joinAndDrainWelcome(t *testing.T, r *Room, connID, userID string) chan Frame {
	t.Helper()
	mailbox := make(chan Frame, 32)
	r.NormalPrioIngress() <- Ingress{
		Kind:    IngressJoin,
		ConnID:  connID,
		UserID:  userID,
		Mailbox: mailbox,
	}
	mustFrame(t, mailbox, FrameWelcomeInfo)
	return mailbox
}
