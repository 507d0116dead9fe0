package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ashbrook/roomengine/internal/auth"
	"github.com/ashbrook/roomengine/internal/config"
	applog "github.com/ashbrook/roomengine/internal/log"
	"github.com/ashbrook/roomengine/internal/proto"
)

const testAPIKey = "test-shared-secret"

func newTestApp(t *testing.T) (*App, *httptest.Server) {
	t.Helper()

	hash, err := auth.HashPassword(testAPIKey)
	if err != nil {
		t.Fatalf("hash api key: %v", err)
	}

	cfg := config.Default()
	cfg.DatabasePath = ":memory:"
	cfg.AdminAPIKeyHash = hash
	cfg.AdminJWTSecret = "test-jwt-secret"
	cfg.CoalesceWindow = 20 * time.Millisecond
	cfg.RateLimitInterval = 300 * time.Millisecond

	logger := applog.New("error")
	a, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("build app: %v", err)
	}

	sinkCtx, cancel := context.WithCancel(context.Background())
	go a.sink.Run(sinkCtx)
	t.Cleanup(cancel)

	httpServer := httptest.NewServer(a.server.Handler)
	t.Cleanup(httpServer.Close)

	return a, httpServer
}

func createRoom(t *testing.T, base string, name string, admins []string) string {
	t.Helper()
	body := map[string]any{"name": name, "admin_user_ids": admins}
	raw, _ := json.Marshal(body)

	req, _ := http.NewRequest(http.MethodPost, base+"/api/rooms", strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", testAPIKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create room request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var out struct {
		RoomID string `json:"room_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode create room response: %v", err)
	}
	return out.RoomID
}

func dialRoom(t *testing.T, base, roomID, userID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/ws/rooms/" + roomID + "?user_id=" + userID
	conn, _, err := websocket.Dial(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("dial room: %v", err)
	}
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, wantType string) proto.Outbound {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		var out proto.Outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("read frame waiting for %q: %v", wantType, err)
		}
		if out.Type == wantType {
			return out
		}
	}
}

func TestHappyChatEndToEnd(t *testing.T) {
	_, server := newTestApp(t)
	roomID := createRoom(t, server.URL, "general", []string{"a"})

	connA := dialRoom(t, server.URL, roomID, "a")
	defer connA.Close(websocket.StatusNormalClosure, "")
	readUntil(t, connA, proto.OutboundWelcomeInfo)

	connB := dialRoom(t, server.URL, roomID, "b")
	defer connB.Close(websocket.StatusNormalClosure, "")
	readUntil(t, connB, proto.OutboundWelcomeInfo)

	connC := dialRoom(t, server.URL, roomID, "c")
	defer connC.Close(websocket.StatusNormalClosure, "")
	readUntil(t, connC, proto.OutboundWelcomeInfo)

	payload, _ := json.Marshal(proto.SendMessagePayload{Content: "hi"})
	if err := wsjson.Write(context.Background(), connB, proto.Inbound{Type: proto.InboundSendMessage, Payload: payload}); err != nil {
		t.Fatalf("send message: %v", err)
	}

	msgOnA := readUntil(t, connA, proto.OutboundMessage)
	msgData, _ := json.Marshal(msgOnA.Payload)
	var got proto.MessagePayload
	_ = json.Unmarshal(msgData, &got)
	if got.From != "b" || got.Content != "hi" {
		t.Fatalf("unexpected message on a: %+v", got)
	}

	readUntil(t, connB, proto.OutboundMessage) // sender echo
}

func TestKickAndRejoinEndToEnd(t *testing.T) {
	_, server := newTestApp(t)
	roomID := createRoom(t, server.URL, "mods", []string{"a"})

	connA := dialRoom(t, server.URL, roomID, "a")
	defer connA.Close(websocket.StatusNormalClosure, "")
	readUntil(t, connA, proto.OutboundWelcomeInfo)

	connB := dialRoom(t, server.URL, roomID, "b")
	readUntil(t, connB, proto.OutboundWelcomeInfo)

	payload, _ := json.Marshal(proto.KickUserPayload{UserID: "b"})
	if err := wsjson.Write(context.Background(), connA, proto.Inbound{Type: proto.InboundKickUser, Payload: payload}); err != nil {
		t.Fatalf("kick user: %v", err)
	}

	readUntil(t, connB, proto.OutboundYouAreKicked)
	readUntil(t, connA, proto.OutboundSystem)

	rejected := dialRoom(t, server.URL, roomID, "b")
	defer rejected.Close(websocket.StatusNormalClosure, "")
	readUntil(t, rejected, proto.OutboundError)
}
