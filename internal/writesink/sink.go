// Package writesink implements the process-wide durable-write consumer:
// one background goroutine batches room-originated mutations from many
// rooms into a single store transaction, amortising commit overhead.
package writesink

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ashbrook/roomengine/internal/store"
)

// Config controls batching thresholds.
type Config struct {
	// BufferSize bounds the inbound command channel.
	BufferSize int
	// BatchSize is the max number of commands committed per transaction.
	BatchSize int
	// FlushInterval is how long the sink waits for the first command of a
	// new batch before giving up and looping again.
	FlushInterval time.Duration
}

// DefaultConfig commits at most 100 commands per transaction and waits in
// 200ms steps while the channel is idle.
func DefaultConfig() Config {
	return Config{BufferSize: 1024, BatchSize: 100, FlushInterval: 200 * time.Millisecond}
}

// Sink is the single process-wide durable-write consumer.
type Sink struct {
	cfg   Config
	store store.Store
	log   *zerolog.Logger
	ch    chan store.WriteCommand
}

// New builds a sink bound to the given store. Call Run in its own
// goroutine, and Enqueue from any number of room actors.
func New(st store.Store, cfg Config, log *zerolog.Logger) *Sink {
	return &Sink{
		cfg:   cfg,
		store: st,
		log:   log,
		ch:    make(chan store.WriteCommand, cfg.BufferSize),
	}
}

// Enqueue hands a command to the sink. It blocks only if the buffer is
// full, which bounds actor hot-path latency under normal load without ever
// performing store I/O synchronously on the actor's goroutine.
func (s *Sink) Enqueue(cmd store.WriteCommand) {
	s.ch <- cmd
}

// Run drains the command channel until it is closed, batching and
// committing by count or by time. Failure policy is log-and-continue: a
// failed batch is dropped, never retried, because in-memory room state
// remains the source of truth for live behavior.
func (s *Sink) Run(ctx context.Context) {
	buffer := make([]store.WriteCommand, 0, s.cfg.BatchSize)
	timer := time.NewTimer(s.cfg.FlushInterval)
	defer timer.Stop()

	for {
		select {
		case cmd, ok := <-s.ch:
			if !ok {
				s.flush(ctx, buffer)
				return
			}
			buffer = append(buffer, cmd)
			buffer = s.drainNonBlocking(buffer)
			s.flush(ctx, buffer)
			buffer = buffer[:0]
			timer.Reset(s.cfg.FlushInterval)
		case <-timer.C:
			timer.Reset(s.cfg.FlushInterval)
		case <-ctx.Done():
			s.flush(ctx, buffer)
			return
		}
	}
}

// drainNonBlocking tops a partially filled batch up to BatchSize without
// blocking.
func (s *Sink) drainNonBlocking(buffer []store.WriteCommand) []store.WriteCommand {
	for len(buffer) < s.cfg.BatchSize {
		select {
		case cmd, ok := <-s.ch:
			if !ok {
				return buffer
			}
			buffer = append(buffer, cmd)
		default:
			return buffer
		}
	}
	return buffer
}

func (s *Sink) flush(ctx context.Context, buffer []store.WriteCommand) {
	if len(buffer) == 0 {
		return
	}
	if err := s.store.ApplyBatch(ctx, buffer); err != nil {
		s.log.Error().Err(err).Int("batch_size", len(buffer)).Msg("durable write batch failed, dropping")
	}
}

// Close stops accepting new commands; Run observes the resulting closed
// channel and exits after committing whatever is already buffered.
func (s *Sink) Close() {
	close(s.ch)
}
