package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ashbrook/roomengine/internal/store"
)

func TestCreateAndGetRoom(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	room, err := s.CreateRoom(ctx, "general", []string{"carol"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	got, err := s.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if got.Name != "general" {
		t.Fatalf("unexpected room name: %+v", got)
	}

	admins, err := s.LoadAdmins(ctx, room.ID)
	if err != nil {
		t.Fatalf("load admins: %v", err)
	}
	if _, ok := admins["carol"]; !ok {
		t.Fatalf("expected carol to be an admin, got %+v", admins)
	}
}

func TestGetRoomNotFound(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	_, err = s.GetRoom(context.Background(), "missing")
	if err != store.ErrRoomNotFound {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestApplyBatchRecordsSessionAndChatHistory(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	room, err := s.CreateRoom(ctx, "general", nil)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	joinedAt := time.Now().UTC().Truncate(time.Second)
	left := joinedAt.Add(time.Minute)

	err = s.ApplyBatch(ctx, []store.WriteCommand{
		{Kind: store.WriteUserJoined, RoomID: room.ID, UserID: "alice", Timestamp: joinedAt},
		{Kind: store.WriteChatMessage, RoomID: room.ID, UserID: "alice", Content: "hi", Timestamp: joinedAt},
		{Kind: store.WriteUserLeft, RoomID: room.ID, UserID: "alice", JoinedAt: joinedAt, Timestamp: left},
	})
	if err != nil {
		t.Fatalf("apply batch: %v", err)
	}

	history, err := s.ListChatHistory(ctx, room.ID, 10, nil)
	if err != nil {
		t.Fatalf("list chat history: %v", err)
	}
	if len(history) != 1 || history[0].Content != "hi" {
		t.Fatalf("unexpected chat history: %+v", history)
	}

	sessions, err := s.ListSessions(ctx, room.ID, 10, nil)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].LeaveTime == nil {
		t.Fatalf("expected one closed session, got %+v", sessions)
	}
}

func TestKickBanThenUnban(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	room, err := s.CreateRoom(ctx, "general", nil)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	err = s.ApplyBatch(ctx, []store.WriteCommand{
		{Kind: store.WriteBanUser, RoomID: room.ID, UserID: "mallory", Timestamp: time.Now()},
	})
	if err != nil {
		t.Fatalf("apply ban: %v", err)
	}

	bans, err := s.LoadBans(ctx, room.ID)
	if err != nil {
		t.Fatalf("load bans: %v", err)
	}
	if _, ok := bans["mallory"]; !ok {
		t.Fatalf("expected mallory banned, got %+v", bans)
	}

	if err := s.DeleteBan(ctx, room.ID, "mallory"); err != nil {
		t.Fatalf("delete ban: %v", err)
	}
	bans, err = s.LoadBans(ctx, room.ID)
	if err != nil {
		t.Fatalf("load bans after unban: %v", err)
	}
	if _, ok := bans["mallory"]; ok {
		t.Fatalf("expected mallory no longer banned")
	}
}
