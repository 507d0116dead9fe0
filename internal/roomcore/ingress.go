package roomcore

// IngressKind tags a message delivered on one of the actor's two priority
// ingress channels.
type IngressKind int

const (
	// IngressJoin registers a new connection. Normal priority.
	IngressJoin IngressKind = iota
	// IngressLeave removes a connection. Normal priority.
	IngressLeave
	// IngressSendMessage is a chat broadcast request. Normal priority.
	IngressSendMessage
	// IngressMuteUser mutes a target user. Normal priority.
	IngressMuteUser
	// IngressKickUser bans and evicts a target user. High priority.
	IngressKickUser
	// IngressCustomEvent relays an admin-authored event. High priority.
	IngressCustomEvent
)

// Ingress is a single message flowing from a connection's inbound decoder
// into the room actor. ConnID is the accepting socket's opaque id; UserID
// is the opaque id supplied by the client at connect time.
type Ingress struct {
	Kind   IngressKind
	ConnID string
	UserID string

	// Mailbox is set only on IngressJoin: it is how the actor learns to
	// reach this connection's outbound pump.
	Mailbox chan<- Frame

	// Content carries chat text for IngressSendMessage.
	Content string

	// TargetUserID carries the subject of IngressKickUser/IngressMuteUser.
	TargetUserID string

	// CustomEventType/CustomPayload carry an IngressCustomEvent's body.
	CustomEventType string
	CustomPayload   []byte
}
