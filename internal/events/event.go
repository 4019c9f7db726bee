// Package events defines the event surface produced by the core and the
// fan-out router that delivers events to live sessions.
package events

// Kind names a state-change event consumed by the rendering layer.
type Kind string

const (
	KindUserOnline    Kind = "user.online"
	KindUserOffline   Kind = "user.offline"
	KindUserApproved  Kind = "user.approved"
	KindUserBanned    Kind = "user.banned"
	KindBroadcastNew  Kind = "broadcast.new"
	KindRadioMessage  Kind = "radio.message"
	KindRadioCleared  Kind = "radio.cleared"
	KindTicketCreated Kind = "ticket.created"
	KindTicketUpdated Kind = "ticket.updated"
	KindTicketMessage Kind = "ticket.message"
)

type scope int

const (
	scopeEveryone scope = iota
	scopeAdmins
	scopeIdentities
	scopeChannel
)

// Audience selects which live sessions an event is delivered to. It is
// resolved against the presence tracker at publish time, never queued for
// sessions that connect later.
type Audience struct {
	scope      scope
	identities []string
	channel    string
}

// Everyone targets all live sessions.
func Everyone() Audience { return Audience{scope: scopeEveryone} }

// Admins targets every live session authenticated with the admin role.
func Admins() Audience { return Audience{scope: scopeAdmins} }

// To targets every live session of the given identities.
func To(identities ...string) Audience {
	return Audience{scope: scopeIdentities, identities: identities}
}

// Channel targets every live session tuned to the named radio channel.
func Channel(name string) Audience {
	return Audience{scope: scopeChannel, channel: name}
}

// Event is one state-change notification plus its audience.
type Event struct {
	Kind     Kind
	Payload  any
	Audience Audience
}

// envelope is the wire form written to each session's outbound path.
type envelope struct {
	Kind    Kind `json:"kind"`
	Payload any  `json:"payload,omitempty"`
}
