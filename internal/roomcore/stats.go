package roomcore

import "time"

// Stats holds the monotonic-except-current_users counters owned by a room
// actor.
type Stats struct {
	CurrentUsers int
	PeakUsers    int
	TotalJoins   uint64
}

func (s *Stats) recordJoin() {
	s.CurrentUsers++
	s.TotalJoins++
	if s.CurrentUsers > s.PeakUsers {
		s.PeakUsers = s.CurrentUsers
	}
}

func (s *Stats) recordLeave() {
	if s.CurrentUsers > 0 {
		s.CurrentUsers--
	}
}

// StatsQuery is a synchronous, one-shot introspection request. The actor
// never blocks servicing it: it copies its state and sends on Reply
// without further I/O.
type StatsQuery struct {
	Reply chan<- StatsSnapshot
}

// StatsSnapshot is the point-in-time answer to a StatsQuery.
type StatsSnapshot struct {
	RoomID    string
	StartTime time.Time
	Admins    map[string]struct{}
	Stats     Stats
}
