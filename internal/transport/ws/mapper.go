// Package ws implements the per-connection I/O pair: one goroutine pumping
// a room actor's outbound mailbox to the socket, one goroutine decoding
// inbound wire frames into roomcore.Ingress.
package ws

import (
	"fmt"

	"github.com/ashbrook/roomengine/internal/proto"
	"github.com/ashbrook/roomengine/internal/roomcore"
)

// frameToOutbound maps an actor Frame onto its wire representation.
func frameToOutbound(f roomcore.Frame) proto.Outbound {
	switch f.Kind {
	case roomcore.FrameWelcomeInfo:
		return proto.Outbound{Type: proto.OutboundWelcomeInfo, Payload: proto.WelcomeInfoPayload{
			UserID: f.WelcomeInfo.UserID, IsMuted: f.WelcomeInfo.IsMuted,
		}}
	case roomcore.FrameMessage:
		return proto.Outbound{Type: proto.OutboundMessage, Payload: proto.MessagePayload{
			From: f.Message.From, Content: f.Message.Content, IsAdmin: f.Message.IsAdmin,
		}}
	case roomcore.FrameUsersJoined:
		return proto.Outbound{Type: proto.OutboundUserJoined, Payload: proto.UserJoinedPayload{
			UserIDs: f.UsersJoined.UserIDs, CurrentUsers: f.UsersJoined.CurrentUsers,
		}}
	case roomcore.FrameUserLeft:
		return proto.Outbound{Type: proto.OutboundUserLeft, Payload: proto.UserLeftPayload{
			UserIDs: f.UserLeft.UserIDs, CurrentUsers: f.UserLeft.CurrentUsers,
		}}
	case roomcore.FrameRoomStats:
		return proto.Outbound{Type: proto.OutboundRoomStats, Payload: proto.RoomStatsPayload{
			CurrentUsers: f.RoomStats.CurrentUsers, PeakUsers: f.RoomStats.PeakUsers,
		}}
	case roomcore.FrameYouAreKicked:
		return proto.Outbound{Type: proto.OutboundYouAreKicked}
	case roomcore.FrameYouAreMuted:
		return proto.Outbound{Type: proto.OutboundYouAreMuted}
	case roomcore.FrameUserMuted:
		return proto.Outbound{Type: proto.OutboundUserMuted, Payload: proto.UserMutedPayload{
			UserID: f.UserMuted.UserID,
		}}
	case roomcore.FrameSystem:
		return proto.Outbound{Type: proto.OutboundSystem, Payload: proto.SystemPayload{
			Message: f.System.Message,
		}}
	case roomcore.FrameError:
		return proto.Outbound{Type: proto.OutboundError, Payload: proto.ErrorPayload{
			Message: f.Error.Message,
		}}
	case roomcore.FrameCustomEvent:
		return proto.Outbound{Type: proto.OutboundCustomEvent, Payload: proto.CustomEventPayloadOut{
			EventType: f.CustomEvent.EventType, Data: f.CustomEvent.Payload,
		}}
	default:
		return proto.Outbound{Type: proto.OutboundSystem, Payload: proto.SystemPayload{Message: "unknown frame"}}
	}
}

// inboundToIngress maps a decoded wire frame onto an Ingress, along with
// whether it belongs on the high-priority path: KickUser and CustomEvent
// are high priority, everything else normal.
func inboundToIngress(connID string, in proto.Inbound) (roomcore.Ingress, bool, error) {
	switch in.Type {
	case proto.InboundSendMessage:
		var p proto.SendMessagePayload
		if err := unmarshalPayload(in.Payload, &p); err != nil {
			return roomcore.Ingress{}, false, err
		}
		return roomcore.Ingress{Kind: roomcore.IngressSendMessage, ConnID: connID, Content: p.Content}, false, nil

	case proto.InboundKickUser:
		var p proto.KickUserPayload
		if err := unmarshalPayload(in.Payload, &p); err != nil {
			return roomcore.Ingress{}, false, err
		}
		return roomcore.Ingress{Kind: roomcore.IngressKickUser, ConnID: connID, TargetUserID: p.UserID}, true, nil

	case proto.InboundMuteUser:
		var p proto.MuteUserPayload
		if err := unmarshalPayload(in.Payload, &p); err != nil {
			return roomcore.Ingress{}, false, err
		}
		return roomcore.Ingress{Kind: roomcore.IngressMuteUser, ConnID: connID, TargetUserID: p.UserID}, false, nil

	case proto.InboundCustomEvent:
		var p proto.CustomEventPayload
		if err := unmarshalPayload(in.Payload, &p); err != nil {
			return roomcore.Ingress{}, false, err
		}
		return roomcore.Ingress{
			Kind: roomcore.IngressCustomEvent, ConnID: connID,
			CustomEventType: p.EventType, CustomPayload: p.Data,
		}, true, nil

	case proto.InboundPing:
		return roomcore.Ingress{}, false, errPing

	default:
		return roomcore.Ingress{}, false, fmt.Errorf("unknown inbound frame type %q", in.Type)
	}
}
