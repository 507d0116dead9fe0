package roomcore

import (
	"context"
	"testing"
	"time"

	"github.com/ashbrook/roomengine/internal/store"
)

func startRoom(t *testing.T, admins, bans map[string]struct{}) (*Room, *fakeSink, func()) {
	t.Helper()
	sink := newFakeSink()
	r := NewRoom("room-1", admins, bans, sink, testConfig(), testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	return r, sink, cancel
}

func TestJoinWelcomeAndCoalescedBroadcast(t *testing.T) {
	r, sink, cancel := startRoom(t, nil, nil)
	defer cancel()

	// carol is already a member when bob and alice join; the joiners
	// themselves are not sent the coalesced join notice.
	carol := joinAndDrainWelcome(t, r, "c-carol", "carol")
	mustWriteCommand(t, sink.cmds, store.WriteUserJoined)
	mustFrame(t, carol, FrameRoomStats)

	bob := make(chan Frame, 32)
	r.NormalPrioIngress() <- Ingress{Kind: IngressJoin, ConnID: "c-bob", UserID: "bob", Mailbox: bob}
	welcome := mustFrame(t, bob, FrameWelcomeInfo)
	if welcome.WelcomeInfo.UserID != "bob" || welcome.WelcomeInfo.IsMuted {
		t.Fatalf("unexpected welcome frame: %+v", welcome.WelcomeInfo)
	}
	mustWriteCommand(t, sink.cmds, store.WriteUserJoined)

	alice := make(chan Frame, 32)
	r.NormalPrioIngress() <- Ingress{Kind: IngressJoin, ConnID: "c-alice", UserID: "alice", Mailbox: alice}
	mustFrame(t, alice, FrameWelcomeInfo)
	mustWriteCommand(t, sink.cmds, store.WriteUserJoined)

	joined := mustFrame(t, carol, FrameUsersJoined)
	if len(joined.UsersJoined.UserIDs) != 2 {
		t.Fatalf("expected both joins coalesced into one notice, got %+v", joined.UsersJoined)
	}
	mustFrame(t, bob, FrameRoomStats)
}

func TestSendMessageBroadcastsToAllMembers(t *testing.T) {
	r, sink, cancel := startRoom(t, nil, nil)
	defer cancel()

	alice := joinAndDrainWelcome(t, r, "c-alice", "alice")
	mustFrame(t, alice, FrameRoomStats)
	bob := joinAndDrainWelcome(t, r, "c-bob", "bob")
	mustFrame(t, alice, FrameUsersJoined)
	mustFrame(t, bob, FrameRoomStats)

	r.NormalPrioIngress() <- Ingress{Kind: IngressSendMessage, ConnID: "c-alice", Content: "hi room"}
	mustWriteCommand(t, sink.cmds, store.WriteChatMessage)

	msg := mustFrame(t, bob, FrameMessage)
	if msg.Message.From != "alice" || msg.Message.Content != "hi room" {
		t.Fatalf("unexpected message frame: %+v", msg.Message)
	}
	selfEcho := mustFrame(t, alice, FrameMessage)
	if selfEcho.Message.From != "alice" {
		t.Fatalf("sender should also receive its own broadcast, got %+v", selfEcho.Message)
	}
}

func TestRateLimitDropsRapidRepeatSends(t *testing.T) {
	r, sink, cancel := startRoom(t, nil, nil)
	defer cancel()

	_ = joinAndDrainWelcome(t, r, "c-alice", "alice")

	r.NormalPrioIngress() <- Ingress{Kind: IngressSendMessage, ConnID: "c-alice", Content: "one"}
	mustWriteCommand(t, sink.cmds, store.WriteChatMessage)

	r.NormalPrioIngress() <- Ingress{Kind: IngressSendMessage, ConnID: "c-alice", Content: "two"}

	select {
	case cmd := <-sink.cmds:
		t.Fatalf("expected rate-limited second send to be dropped, got %+v", cmd)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestMutedUserCannotBroadcast(t *testing.T) {
	admins := map[string]struct{}{"admin": {}}
	r, sink, cancel := startRoom(t, admins, nil)
	defer cancel()

	alice := joinAndDrainWelcome(t, r, "c-alice", "alice")
	mustFrame(t, alice, FrameRoomStats)
	adminMb := joinAndDrainWelcome(t, r, "c-admin", "admin")
	mustFrame(t, alice, FrameUsersJoined)
	mustFrame(t, adminMb, FrameRoomStats)
	mustWriteCommand(t, sink.cmds, store.WriteUserJoined)
	mustWriteCommand(t, sink.cmds, store.WriteUserJoined)

	r.NormalPrioIngress() <- Ingress{Kind: IngressMuteUser, ConnID: "c-admin", TargetUserID: "alice"}
	mustFrame(t, alice, FrameUserMuted)

	r.NormalPrioIngress() <- Ingress{Kind: IngressSendMessage, ConnID: "c-alice", Content: "should be blocked"}
	youAreMuted := mustFrame(t, alice, FrameYouAreMuted)
	_ = youAreMuted

	select {
	case cmd := <-sink.cmds:
		t.Fatalf("muted user's message should never reach the sink, got %+v", cmd)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestKickBansAndEvictsTarget(t *testing.T) {
	admins := map[string]struct{}{"admin": {}}
	r, sink, cancel := startRoom(t, admins, nil)
	defer cancel()

	alice := joinAndDrainWelcome(t, r, "c-alice", "alice")
	mustFrame(t, alice, FrameRoomStats)
	adminMb := joinAndDrainWelcome(t, r, "c-admin", "admin")
	mustFrame(t, alice, FrameUsersJoined)
	mustFrame(t, adminMb, FrameRoomStats)

	r.HighPrioIngress() <- Ingress{Kind: IngressKickUser, ConnID: "c-admin", TargetUserID: "alice"}
	mustFrame(t, alice, FrameYouAreKicked)
	mustWriteCommand(t, sink.cmds, store.WriteBanUser)

	if _, open := <-alice; open {
		t.Fatalf("kicked user's mailbox should be closed")
	}

	rejoin := make(chan Frame, 8)
	r.NormalPrioIngress() <- Ingress{Kind: IngressJoin, ConnID: "c-alice-2", UserID: "alice", Mailbox: rejoin}
	errFrame := mustFrame(t, rejoin, FrameError)
	if errFrame.Error == nil {
		t.Fatalf("expected an error frame rejecting the banned user's rejoin")
	}
}

func TestSecondConnectionForSameUserKicksTheFirst(t *testing.T) {
	r, _, cancel := startRoom(t, nil, nil)
	defer cancel()

	first := joinAndDrainWelcome(t, r, "c-1", "alice")
	_ = joinAndDrainWelcome(t, r, "c-2", "alice")

	mustFrame(t, first, FrameYouAreKicked)
	if _, open := <-first; open {
		t.Fatalf("superseded connection's mailbox should be closed")
	}
}

func TestStatsQueryDoesNotBlockOnIngress(t *testing.T) {
	r, _, cancel := startRoom(t, nil, nil)
	defer cancel()

	_ = joinAndDrainWelcome(t, r, "c-alice", "alice")

	reply := make(chan StatsSnapshot, 1)
	r.StatsIngress() <- StatsQuery{Reply: reply}

	select {
	case snap := <-reply:
		if snap.Stats.CurrentUsers != 1 {
			t.Fatalf("expected 1 current user, got %+v", snap.Stats)
		}
	case <-time.After(time.Second):
		t.Fatalf("stats query did not reply in time")
	}
}

func TestResetAdminsReplacesAdminSet(t *testing.T) {
	r, _, cancel := startRoom(t, nil, nil)
	defer cancel()

	newAdmins := map[string]struct{}{"carol": {}}
	r.ControlIngress() <- Control{Kind: ControlResetAdmins, Admins: newAdmins}

	reply := make(chan StatsSnapshot, 1)
	r.StatsIngress() <- StatsQuery{Reply: reply}
	snap := <-reply
	if _, ok := snap.Admins["carol"]; !ok {
		t.Fatalf("expected carol in admin set after reset, got %+v", snap.Admins)
	}
}

func TestUnbanUserClearsBanAndEmitsSinkCommand(t *testing.T) {
	bans := map[string]struct{}{"alice": {}}
	r, sink, cancel := startRoom(t, nil, bans)
	defer cancel()

	r.ControlIngress() <- Control{Kind: ControlUnbanUser, UserID: "alice"}
	mustWriteCommand(t, sink.cmds, store.WriteUnbanUser)

	rejoin := make(chan Frame, 8)
	r.NormalPrioIngress() <- Ingress{Kind: IngressJoin, ConnID: "c-alice", UserID: "alice", Mailbox: rejoin}
	mustFrame(t, rejoin, FrameWelcomeInfo)
}

func TestLeaveClosesMailboxAndRecordsDeparture(t *testing.T) {
	r, sink, cancel := startRoom(t, nil, nil)
	defer cancel()

	alice := joinAndDrainWelcome(t, r, "c-alice", "alice")

	r.NormalPrioIngress() <- Ingress{Kind: IngressLeave, ConnID: "c-alice"}
	mustWriteCommand(t, sink.cmds, store.WriteUserLeft)

	if _, open := <-alice; open {
		t.Fatalf("expected mailbox to be closed after leave")
	}
}

func TestHighPriorityKickPreemptsQueuedNormalMessages(t *testing.T) {
	admins := map[string]struct{}{"admin": {}}
	r, _, cancel := startRoom(t, admins, nil)
	defer cancel()

	alice := joinAndDrainWelcome(t, r, "c-alice", "alice")
	mustFrame(t, alice, FrameRoomStats)
	adminMb := joinAndDrainWelcome(t, r, "c-admin", "admin")
	mustFrame(t, adminMb, FrameRoomStats)
	mustFrame(t, alice, FrameUsersJoined)
	mustFrame(t, alice, FrameRoomStats)

	for i := 0; i < 10; i++ {
		r.NormalPrioIngress() <- Ingress{Kind: IngressSendMessage, ConnID: "c-admin", Content: "filler"}
	}
	r.HighPrioIngress() <- Ingress{Kind: IngressKickUser, ConnID: "c-admin", TargetUserID: "alice"}

	mustFrame(t, alice, FrameYouAreKicked)
}
