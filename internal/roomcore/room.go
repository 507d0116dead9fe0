// Package roomcore implements the per-room actor: a single-writer event
// loop owning membership, admin/ban/mute sets, and usage statistics for
// one room, arbitrating priority-ordered ingress, out-of-band control,
// and synchronous stats queries.
package roomcore

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ashbrook/roomengine/internal/store"
)

// Sink is the durable-write consumer a room actor hands side effects to.
// Satisfied by *writesink.Sink; kept as a narrow interface here so roomcore
// never depends on the sink's batching internals.
type Sink interface {
	Enqueue(store.WriteCommand)
}

// Config tunes the actor's scheduling and policy knobs.
type Config struct {
	// RateLimitInterval is the minimum spacing between accepted
	// non-admin chat messages from the same user.
	RateLimitInterval time.Duration
	// CoalesceWindow is the join/leave notice coalescing window.
	CoalesceWindow time.Duration
	// NormalBatchSize bounds how many normal-priority messages are
	// serviced before the loop re-checks high-priority ingress.
	NormalBatchSize int
	// Channel buffer sizes for the four ingress surfaces.
	HighPrioBuffer   int
	NormalPrioBuffer int
	ControlBuffer    int
	StatsBuffer      int
}

// DefaultConfig returns the actor's baseline scheduling and policy knobs.
func DefaultConfig() Config {
	return Config{
		RateLimitInterval: 3 * time.Second,
		CoalesceWindow:    time.Second,
		NormalBatchSize:   32,
		HighPrioBuffer:    100,
		NormalPrioBuffer:  100,
		ControlBuffer:     32,
		StatsBuffer:       32,
	}
}

// Room is the per-room actor: the sole owner of its membership, admin,
// ban, mute, and stats state. All mutation happens on the goroutine
// running Run.
type Room struct {
	id        string
	startTime time.Time
	cfg       Config
	sink      Sink
	log       zerolog.Logger

	highPrioCh   chan Ingress
	normalPrioCh chan Ingress
	controlCh    chan Control
	statsCh      chan StatsQuery

	members  map[string]*connState // conn id -> state
	byUser   map[string]string     // user id -> conn id
	admins   map[string]struct{}
	bans     map[string]struct{}
	mutes    map[string]struct{}
	lastSend map[string]time.Time

	stats    Stats
	coalesce coalesceBuffer
}

// NewRoom constructs an actor with admins/bans loaded from the store at
// start-up. The returned Room has not started its loop; call Run.
func NewRoom(id string, admins, bans map[string]struct{}, sink Sink, cfg Config, log *zerolog.Logger) *Room {
	if admins == nil {
		admins = make(map[string]struct{})
	}
	if bans == nil {
		bans = make(map[string]struct{})
	}
	return &Room{
		id:           id,
		startTime:    time.Now(),
		cfg:          cfg,
		sink:         sink,
		log:          log.With().Str("room_id", id).Logger(),
		highPrioCh:   make(chan Ingress, cfg.HighPrioBuffer),
		normalPrioCh: make(chan Ingress, cfg.NormalPrioBuffer),
		controlCh:    make(chan Control, cfg.ControlBuffer),
		statsCh:      make(chan StatsQuery, cfg.StatsBuffer),
		members:      make(map[string]*connState),
		byUser:       make(map[string]string),
		admins:       admins,
		bans:         bans,
		mutes:        make(map[string]struct{}),
		lastSend:     make(map[string]time.Time),
	}
}

// ID returns the room's id.
func (r *Room) ID() string { return r.id }

// HighPrioIngress exposes the send-only handle for admin-originated
// broadcasts, custom events, and forced kicks.
func (r *Room) HighPrioIngress() chan<- Ingress { return r.highPrioCh }

// NormalPrioIngress exposes the send-only handle for joins, leaves, chat,
// and mute commands.
func (r *Room) NormalPrioIngress() chan<- Ingress { return r.normalPrioCh }

// ControlIngress exposes the send-only handle for management-originated
// control mutations.
func (r *Room) ControlIngress() chan<- Control { return r.controlCh }

// StatsIngress exposes the send-only handle for synchronous stats queries.
func (r *Room) StatsIngress() chan<- StatsQuery { return r.statsCh }

// Run drives the actor loop until ctx is cancelled: Go channels carry no
// sender reference count to observe, so room close is signalled by an
// explicit cancellation.
func (r *Room) Run(ctx context.Context) {
	defer r.shutdown()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	armed := false

	for {
		if r.serviceHighPriority() {
			continue
		}
		if r.serviceControl() {
			continue
		}
		if r.serviceStats() {
			continue
		}

		didWork := r.serviceNormalBatch()

		if r.coalesce.pending && !armed {
			timer.Reset(r.cfg.CoalesceWindow)
			armed = true
		}
		if armed {
			select {
			case <-timer.C:
				r.flushCoalesce()
				armed = false
				continue
			default:
			}
		}

		if didWork {
			continue
		}

		var timerC <-chan time.Time
		if armed {
			timerC = timer.C
		}
		select {
		case msg := <-r.highPrioCh:
			r.handleIngress(msg)
		case msg := <-r.normalPrioCh:
			r.handleIngress(msg)
		case ctrl := <-r.controlCh:
			r.handleControl(ctrl)
		case q := <-r.statsCh:
			r.handleStats(q)
		case <-timerC:
			r.flushCoalesce()
			armed = false
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// serviceHighPriority drains exactly one ready high-priority message.
// High-priority ingress is always preferred.
func (r *Room) serviceHighPriority() bool {
	select {
	case msg := <-r.highPrioCh:
		r.handleIngress(msg)
		return true
	default:
		return false
	}
}

func (r *Room) serviceControl() bool {
	select {
	case ctrl := <-r.controlCh:
		r.handleControl(ctrl)
		return true
	default:
		return false
	}
}

func (r *Room) serviceStats() bool {
	select {
	case q := <-r.statsCh:
		r.handleStats(q)
		return true
	default:
		return false
	}
}

// serviceNormalBatch processes up to NormalBatchSize normal-priority
// messages, re-checking high-priority before each one so a burst of admin
// actions always preempts mid-batch.
func (r *Room) serviceNormalBatch() bool {
	processed := false
	for i := 0; i < r.cfg.NormalBatchSize; i++ {
		select {
		case msg := <-r.highPrioCh:
			r.handleIngress(msg)
			return true
		default:
		}
		select {
		case msg := <-r.normalPrioCh:
			r.handleIngress(msg)
			processed = true
		default:
			return processed
		}
	}
	return processed
}

func (r *Room) handleIngress(msg Ingress) {
	switch msg.Kind {
	case IngressJoin:
		r.handleJoin(msg)
	case IngressLeave:
		r.handleLeave(msg)
	case IngressSendMessage:
		r.handleSendMessage(msg)
	case IngressMuteUser:
		r.handleMuteUser(msg)
	case IngressKickUser:
		r.handleKickUser(msg)
	case IngressCustomEvent:
		r.handleCustomEvent(msg)
	}
}

// handleJoin registers a new connection: ban check, duplicate-session
// eviction, welcome, then the coalesced join notice.
func (r *Room) handleJoin(msg Ingress) {
	if _, banned := r.bans[msg.UserID]; banned {
		r.trySend(msg.Mailbox, errorFrame("you are permanently banned from this room"))
		close(msg.Mailbox)
		return
	}

	if oldConnID, exists := r.byUser[msg.UserID]; exists {
		if old, ok := r.members[oldConnID]; ok {
			r.trySend(old.mailbox, youAreKickedFrame())
			close(old.mailbox)
			delete(r.members, oldConnID)
			delete(r.byUser, msg.UserID)
			r.stats.recordLeave()
		}
	}

	_, isAdmin := r.admins[msg.UserID]
	_, isMuted := r.mutes[msg.UserID]
	r.trySend(msg.Mailbox, welcomeFrame(msg.UserID, isMuted))

	joinedAt := time.Now()
	r.members[msg.ConnID] = &connState{
		mailbox:  msg.Mailbox,
		joinedAt: joinedAt,
		isAdmin:  isAdmin,
		userID:   msg.UserID,
	}
	r.byUser[msg.UserID] = msg.ConnID
	r.stats.recordJoin()

	r.sink.Enqueue(store.WriteCommand{
		Kind:      store.WriteUserJoined,
		RoomID:    r.id,
		UserID:    msg.UserID,
		Timestamp: joinedAt,
	})

	r.coalesce.addJoin(msg.UserID)
}

// handleLeave removes a connection, closes its mailbox, and records its
// departure.
func (r *Room) handleLeave(msg Ingress) {
	conn, ok := r.members[msg.ConnID]
	if !ok {
		return
	}
	delete(r.members, msg.ConnID)
	delete(r.byUser, conn.userID)
	r.stats.recordLeave()
	close(conn.mailbox)

	r.sink.Enqueue(store.WriteCommand{
		Kind:      store.WriteUserLeft,
		RoomID:    r.id,
		UserID:    conn.userID,
		JoinedAt:  conn.joinedAt,
		Timestamp: time.Now(),
	})

	r.coalesce.addLeave(conn.userID)
}

// handleSendMessage enforces the mute and rate-limit checks for non-admins,
// then broadcasts the message to every member including the sender.
func (r *Room) handleSendMessage(msg Ingress) {
	conn, ok := r.members[msg.ConnID]
	if !ok {
		return
	}
	if _, muted := r.mutes[conn.userID]; muted && !conn.isAdmin {
		r.trySend(conn.mailbox, youAreMutedFrame())
		return
	}
	if !conn.isAdmin {
		now := time.Now()
		if last, seen := r.lastSend[conn.userID]; seen && now.Sub(last) < r.cfg.RateLimitInterval {
			return
		}
		r.lastSend[conn.userID] = now
	}

	r.sink.Enqueue(store.WriteCommand{
		Kind:      store.WriteChatMessage,
		RoomID:    r.id,
		UserID:    conn.userID,
		Content:   msg.Content,
		Timestamp: time.Now(),
	})

	r.broadcastAll(messageFrame(conn.userID, msg.Content, conn.isAdmin))
}

// handleMuteUser mutes a target user. Admin-only, in-memory only.
func (r *Room) handleMuteUser(msg Ingress) {
	conn, ok := r.members[msg.ConnID]
	if !ok || !conn.isAdmin {
		return
	}
	r.mutes[msg.TargetUserID] = struct{}{}
	r.broadcastAll(userMutedFrame(msg.TargetUserID))
}

// handleKickUser bans a target user and evicts their live connection, if
// any. Admin-only, high priority.
func (r *Room) handleKickUser(msg Ingress) {
	conn, ok := r.members[msg.ConnID]
	if !ok || !conn.isAdmin {
		return
	}
	target := msg.TargetUserID
	r.bans[target] = struct{}{}
	r.sink.Enqueue(store.WriteCommand{
		Kind:      store.WriteBanUser,
		RoomID:    r.id,
		UserID:    target,
		Timestamp: time.Now(),
	})

	if targetConnID, exists := r.byUser[target]; exists {
		if targetConn, ok := r.members[targetConnID]; ok {
			r.trySend(targetConn.mailbox, youAreKickedFrame())
			close(targetConn.mailbox)
			delete(r.members, targetConnID)
			delete(r.byUser, target)
			r.stats.recordLeave()
		}
	}

	r.broadcastAll(systemFrame(fmt.Sprintf("user %s has been kicked", target)))
}

// handleCustomEvent relays an admin-authored event verbatim to every
// member. Admin-only, carried on the high-priority path.
func (r *Room) handleCustomEvent(msg Ingress) {
	conn, ok := r.members[msg.ConnID]
	if !ok || !conn.isAdmin {
		return
	}
	r.broadcastAll(customEventFrame(msg.CustomEventType, msg.CustomPayload))
}

// handleControl applies an out-of-band mutation from the management
// surface: replacing the admin set or lifting a ban.
func (r *Room) handleControl(ctrl Control) {
	switch ctrl.Kind {
	case ControlResetAdmins:
		// The is_admin flag cached on already-connected sockets is not
		// re-evaluated here; see DESIGN.md.
		r.admins = ctrl.Admins
		r.log.Info().Int("admin_count", len(ctrl.Admins)).Msg("admins reset")
	case ControlUnbanUser:
		delete(r.bans, ctrl.UserID)
		r.sink.Enqueue(store.WriteCommand{
			Kind:      store.WriteUnbanUser,
			RoomID:    r.id,
			UserID:    ctrl.UserID,
			Timestamp: time.Now(),
		})
	}
}

// handleStats answers a StatsQuery with a synchronous snapshot, with no
// I/O or blocking.
func (r *Room) handleStats(q StatsQuery) {
	admins := make(map[string]struct{}, len(r.admins))
	for u := range r.admins {
		admins[u] = struct{}{}
	}
	snap := StatsSnapshot{
		RoomID:    r.id,
		StartTime: r.startTime,
		Admins:    admins,
		Stats:     r.stats,
	}
	select {
	case q.Reply <- snap:
	default:
	}
}

// flushCoalesce emits the aggregate join/leave notices accumulated since
// the last flush, then one RoomStats companion broadcast.
func (r *Room) flushCoalesce() {
	defer r.coalesce.reset()
	if r.coalesce.empty() {
		return
	}

	if len(r.coalesce.joinedUserIDs) > 0 {
		joiners := make(map[string]struct{}, len(r.coalesce.joinedUserIDs))
		for _, u := range r.coalesce.joinedUserIDs {
			joiners[u] = struct{}{}
		}
		r.broadcastExcept(usersJoinedFrame(r.coalesce.joinedUserIDs, r.stats.CurrentUsers), joiners)
	}
	if len(r.coalesce.leftUserIDs) > 0 {
		r.broadcastAll(userLeftFrame(r.coalesce.leftUserIDs, r.stats.CurrentUsers))
	}
	r.broadcastAll(roomStatsFrame(r.stats.CurrentUsers, r.stats.PeakUsers))
}

// trySend is the non-blocking mailbox send every broadcast and targeted
// notice goes through: a slow or hostile recipient can only lose messages,
// never stall the actor.
func (r *Room) trySend(mailbox chan<- Frame, frame Frame) {
	select {
	case mailbox <- frame:
	default:
	}
}

func (r *Room) broadcastAll(frame Frame) {
	for _, conn := range r.members {
		r.trySend(conn.mailbox, frame)
	}
}

func (r *Room) broadcastExcept(frame Frame, exclude map[string]struct{}) {
	for _, conn := range r.members {
		if _, skip := exclude[conn.userID]; skip {
			continue
		}
		r.trySend(conn.mailbox, frame)
	}
}

// shutdown closes every remaining member's mailbox, which is this actor's
// single-writer privilege to do and is what propagates room closure down
// to outbound pumps and hence to sockets.
func (r *Room) shutdown() {
	for connID, conn := range r.members {
		close(conn.mailbox)
		delete(r.members, connID)
	}
	r.log.Info().Msg("room actor stopped")
}
