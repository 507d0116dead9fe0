package roomcore

// coalesceBuffer implements the join/leave notice coalescing window:
// repeated membership-change notices within a short window are combined
// into one aggregate broadcast, so a join storm produces O(1)
// client-visible updates per window instead of O(N).
type coalesceBuffer struct {
	joinedUserIDs []string
	leftUserIDs   []string
	pending       bool
}

func (c *coalesceBuffer) addJoin(userID string) {
	c.joinedUserIDs = append(c.joinedUserIDs, userID)
	c.pending = true
}

func (c *coalesceBuffer) addLeave(userID string) {
	c.leftUserIDs = append(c.leftUserIDs, userID)
	c.pending = true
}

func (c *coalesceBuffer) empty() bool {
	return len(c.joinedUserIDs) == 0 && len(c.leftUserIDs) == 0
}

func (c *coalesceBuffer) reset() {
	c.joinedUserIDs = nil
	c.leftUserIDs = nil
	c.pending = false
}
