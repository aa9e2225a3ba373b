package room

import (
	"github.com/meiao/sizematters-server/internal/domain"
	"github.com/meiao/sizematters-server/internal/protocol"
)

// Sender delivers outbound protocol messages to one participant.
// A failed Send means the participant is unreachable; rooms treat
// that as an implicit leave.
type Sender interface {
	Send(msg protocol.Outbound) error
}

// Handle is what the directory holds for an open room: it can forward
// operations and shut the room down, nothing else.
type Handle interface {
	Deliver(msg Msg) bool
	Close()
}

// Events are the notifications a room sends back to its directory.
// Implementations must not block; the directory enqueues them onto
// its own mailbox.
type Events interface {
	// MemberGone reports that a participant is no longer held by the
	// room, either because delivery to them failed or because their
	// join was rejected. The directory drops its participant mapping.
	MemberGone(roomName, userID string)
	// Closed reports that the room emptied out and stopped.
	Closed(roomName string)
}

// Msg is a room operation. The concrete types below are the only
// messages a room understands.
type Msg interface {
	roomMsg()
}

type Join struct {
	Password       string
	PasswordIsHash bool
	User           domain.UserData
	Sender         Sender
}

type Leave struct {
	UserID string
}

type CastVote struct {
	UserID string
	Size   string
}

type StartRound struct {
	UserID string
}

type Randomize struct{}

type ChangeScale struct {
	Name string
}

type SetActive struct {
	UserID string
	Active bool
}

type ProfileUpdated struct {
	User domain.UserData
}

func (Join) roomMsg()           {}
func (Leave) roomMsg()          {}
func (CastVote) roomMsg()       {}
func (StartRound) roomMsg()     {}
func (Randomize) roomMsg()      {}
func (ChangeScale) roomMsg()    {}
func (SetActive) roomMsg()      {}
func (ProfileUpdated) roomMsg() {}
