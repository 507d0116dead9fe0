package roomcore

import "time"

// connState is the actor-private record of a live connection. It is never
// shared outside the actor goroutine; every field access happens on the
// single loop iteration that owns it.
type connState struct {
	mailbox  chan<- Frame
	joinedAt time.Time
	isAdmin  bool
	userID   string
}
