package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/ashbrook/roomengine/internal/admission"
	"github.com/ashbrook/roomengine/internal/proto"
	"github.com/ashbrook/roomengine/internal/roomcore"
	"github.com/ashbrook/roomengine/internal/roomregistry"
	"github.com/ashbrook/roomengine/internal/utils"
)

// errPing is a sentinel meaning "no ingress to forward, frame handled".
var errPing = errors.New("ping")

// mailboxBufferSize bounds how many outbound frames a slow connection can
// have queued before the actor's non-blocking sends start dropping them.
const mailboxBufferSize = 10

// Handler upgrades HTTP connections under a room id and bridges them to
// that room's actor via an accept entrypoint and two independent
// read/write loop goroutines.
type Handler struct {
	registry  *roomregistry.Registry
	admission *admission.Counter
	log       *zerolog.Logger
}

// NewHandler builds a WebSocket handler bound to a room registry and the
// process-wide admission counter.
func NewHandler(registry *roomregistry.Registry, counter *admission.Counter, logger *zerolog.Logger) *Handler {
	return &Handler{registry: registry, admission: counter, log: logger}
}

// ServeRoom handles GET /ws/rooms/{room_id}?user_id=....
func (h *Handler) ServeRoom(w stdhttp.ResponseWriter, r *stdhttp.Request, roomID, userID string) {
	handle, ok := h.registry.Get(roomID)
	if !ok {
		stdhttp.Error(w, "room not found", stdhttp.StatusNotFound)
		return
	}
	if userID == "" {
		stdhttp.Error(w, "user_id is required", stdhttp.StatusBadRequest)
		return
	}

	token, admitted := h.admission.Acquire()
	if !admitted {
		stdhttp.Error(w, "server is at capacity", stdhttp.StatusServiceUnavailable)
		return
	}
	defer token.Release()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	connID := utils.NewID()
	mailbox := make(chan roomcore.Frame, mailboxBufferSize)

	select {
	case handle.NormalPrio <- roomcore.Ingress{Kind: roomcore.IngressJoin, ConnID: connID, UserID: userID, Mailbox: mailbox}:
	case <-r.Context().Done():
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- h.writeLoop(ctx, conn, mailbox) }()
	go func() { errCh <- h.readLoop(ctx, conn, connID, handle) }()

	err = <-errCh
	cancel()

	select {
	case handle.NormalPrio <- roomcore.Ingress{Kind: roomcore.IngressLeave, ConnID: connID}:
	case <-ctx.Done():
	}
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", connID).Msg("ws connection closed with error")
		}
	}
	conn.Close(status, reason)
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, connID string, handle *roomregistry.Handle) error {
	for {
		var in proto.Inbound
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			return err
		}

		ingress, highPrio, err := inboundToIngress(connID, in)
		if err != nil {
			if errors.Is(err, errPing) {
				continue
			}
			h.log.Debug().Err(err).Str("conn_id", connID).Msg("dropping unrecognized inbound frame")
			continue
		}

		dest := handle.NormalPrio
		if highPrio {
			dest = handle.HighPrio
		}
		select {
		case dest <- ingress:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, mailbox <-chan roomcore.Frame) error {
	for {
		select {
		case frame, ok := <-mailbox:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, frameToOutbound(frame)); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func unmarshalPayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}
