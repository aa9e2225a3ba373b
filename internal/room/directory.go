package room

import (
	"github.com/rs/zerolog/log"

	"github.com/meiao/sizematters-server/internal/domain"
	"github.com/meiao/sizematters-server/internal/protocol"
)

// Directory is the process-wide registry of open rooms and of which
// room each participant occupies. Like rooms it runs as one goroutine
// over a mailbox, which is what makes "room exists vs. must be
// created" and "participant already in a room" checks race-free.
type Directory struct {
	mailbox   *mailbox[dirMsg]
	rooms     map[string]Handle
	occupancy map[string]string

	// newRoom is swapped out in tests for a fake Handle.
	newRoom func(name, password string, passwordIsHash bool, events Events) Handle
}

type dirMsg interface{ dirMsg() }

type dirJoin struct {
	RoomName       string
	Password       string
	PasswordIsHash bool
	User           domain.UserData
	Sender         Sender
}

type dirLeave struct {
	RoomName string
	UserID   string
}

type dirDisconnected struct {
	UserID string
}

type dirProfileUpdated struct {
	User domain.UserData
}

type dirRoute struct {
	RoomName string
	Msg      Msg
}

type dirRoomClosed struct {
	RoomName string
}

type dirMemberGone struct {
	RoomName string
	UserID   string
}

func (dirJoin) dirMsg()           {}
func (dirLeave) dirMsg()          {}
func (dirDisconnected) dirMsg()   {}
func (dirProfileUpdated) dirMsg() {}
func (dirRoute) dirMsg()          {}
func (dirRoomClosed) dirMsg()     {}
func (dirMemberGone) dirMsg()     {}

func newDirectory() *Directory {
	d := &Directory{
		mailbox:   newMailbox[dirMsg](),
		rooms:     make(map[string]Handle),
		occupancy: make(map[string]string),
	}
	d.newRoom = func(name, password string, passwordIsHash bool, events Events) Handle {
		return New(name, password, passwordIsHash, events)
	}
	return d
}

// NewDirectory creates the directory and starts its goroutine.
func NewDirectory() *Directory {
	d := newDirectory()
	go d.run()
	return d
}

// Close drains the directory mailbox, then stops every room.
func (d *Directory) Close() {
	d.mailbox.close()
}

func (d *Directory) run() {
	for {
		msg, ok := d.mailbox.take()
		if !ok {
			break
		}
		d.dispatch(msg)
	}
	for _, h := range d.rooms {
		h.Close()
	}
}

func (d *Directory) enqueue(msg dirMsg) {
	if !d.mailbox.put(msg) {
		log.Debug().Str("module", "room.directory").Msg("message for stopped directory dropped")
	}
}

// JoinRoom validates the room name, lazily creates the room and
// forwards the join. The admission check itself (membership, password)
// happens inside the room.
func (d *Directory) JoinRoom(roomName, password string, passwordIsHash bool, user domain.UserData, sender Sender) {
	d.enqueue(dirJoin{
		RoomName:       roomName,
		Password:       password,
		PasswordIsHash: passwordIsHash,
		User:           user,
		Sender:         sender,
	})
}

func (d *Directory) LeaveRoom(roomName, userID string) {
	d.enqueue(dirLeave{RoomName: roomName, UserID: userID})
}

// Disconnected is issued by the gateway when a connection drops; it is
// a leave for whichever room the participant currently occupies.
func (d *Directory) Disconnected(userID string) {
	d.enqueue(dirDisconnected{UserID: userID})
}

func (d *Directory) ProfileUpdated(user domain.UserData) {
	d.enqueue(dirProfileUpdated{User: user})
}

func (d *Directory) Vote(roomName, userID, size string) {
	d.enqueue(dirRoute{RoomName: roomName, Msg: CastVote{UserID: userID, Size: size}})
}

func (d *Directory) NewRound(roomName, userID string) {
	d.enqueue(dirRoute{RoomName: roomName, Msg: StartRound{UserID: userID}})
}

func (d *Directory) Randomize(roomName string) {
	d.enqueue(dirRoute{RoomName: roomName, Msg: Randomize{}})
}

func (d *Directory) ChangeScale(roomName, scaleName string) {
	d.enqueue(dirRoute{RoomName: roomName, Msg: ChangeScale{Name: scaleName}})
}

func (d *Directory) SetActive(roomName, userID string, active bool) {
	d.enqueue(dirRoute{RoomName: roomName, Msg: SetActive{UserID: userID, Active: active}})
}

// MemberGone and Closed implement Events; rooms call them from their
// own goroutines, so they only enqueue.

func (d *Directory) MemberGone(roomName, userID string) {
	d.enqueue(dirMemberGone{RoomName: roomName, UserID: userID})
}

func (d *Directory) Closed(roomName string) {
	d.enqueue(dirRoomClosed{RoomName: roomName})
}

func (d *Directory) dispatch(msg dirMsg) {
	switch m := msg.(type) {
	case dirJoin:
		d.handleJoin(m)
	case dirLeave:
		d.handleLeave(m.RoomName, m.UserID)
	case dirDisconnected:
		d.handleDisconnected(m.UserID)
	case dirProfileUpdated:
		d.handleProfileUpdated(m.User)
	case dirRoute:
		d.handleRoute(m.RoomName, m.Msg)
	case dirRoomClosed:
		d.handleRoomClosed(m.RoomName)
	case dirMemberGone:
		d.handleMemberGone(m.RoomName, m.UserID)
	default:
		log.Warn().Str("module", "room.directory").Msg("unhandled directory message")
	}
}

func (d *Directory) handleJoin(m dirJoin) {
	userID := m.User.UserID

	if !domain.ValidRoomName(m.RoomName) {
		log.Info().Str("module", "room.directory").Str("room", m.RoomName).Str("user", userID).Msg("invalid room name")
		if err := m.Sender.Send(protocol.InvalidRoomName{}); err != nil {
			log.Warn().Err(err).Str("module", "room.directory").Str("user", userID).Msg("invalid-room-name reply undeliverable")
		}
		return
	}

	if current, ok := d.occupancy[userID]; ok && current != m.RoomName {
		log.Info().Str("module", "room.directory").Str("room", m.RoomName).Str("in_room", current).Str("user", userID).Msg("join while in another room rejected")
		if err := m.Sender.Send(protocol.CannotJoinMultipleRooms{}); err != nil {
			log.Warn().Err(err).Str("module", "room.directory").Str("user", userID).Msg("multiple-rooms reply undeliverable")
		}
		return
	}

	h, ok := d.rooms[m.RoomName]
	if !ok {
		h = d.newRoom(m.RoomName, m.Password, m.PasswordIsHash, d)
		d.rooms[m.RoomName] = h
	}

	d.occupancy[userID] = m.RoomName
	h.Deliver(Join{
		Password:       m.Password,
		PasswordIsHash: m.PasswordIsHash,
		User:           m.User,
		Sender:         m.Sender,
	})
}

func (d *Directory) handleLeave(roomName, userID string) {
	if current, ok := d.occupancy[userID]; ok && current == roomName {
		delete(d.occupancy, userID)
	} else {
		log.Info().Str("module", "room.directory").Str("room", roomName).Str("user", userID).Msg("leave for room the participant does not occupy")
	}

	h, ok := d.rooms[roomName]
	if !ok {
		log.Info().Str("module", "room.directory").Str("room", roomName).Msg("leave for unknown room dropped")
		return
	}
	h.Deliver(Leave{UserID: userID})
}

func (d *Directory) handleDisconnected(userID string) {
	roomName, ok := d.occupancy[userID]
	if !ok {
		log.Debug().Str("module", "room.directory").Str("user", userID).Msg("disconnect of participant in no room")
		return
	}
	d.handleLeave(roomName, userID)
}

func (d *Directory) handleProfileUpdated(user domain.UserData) {
	roomName, ok := d.occupancy[user.UserID]
	if !ok {
		return
	}
	d.handleRoute(roomName, ProfileUpdated{User: user})
}

func (d *Directory) handleRoute(roomName string, msg Msg) {
	h, ok := d.rooms[roomName]
	if !ok {
		log.Info().Str("module", "room.directory").Str("room", roomName).Msg("operation for unknown room dropped")
		return
	}
	h.Deliver(msg)
}

func (d *Directory) handleRoomClosed(roomName string) {
	h, ok := d.rooms[roomName]
	if !ok {
		return
	}
	delete(d.rooms, roomName)
	h.Close()
	for userID, name := range d.occupancy {
		if name == roomName {
			delete(d.occupancy, userID)
		}
	}
	log.Info().Str("module", "room.directory").Str("room", roomName).Msg("room reclaimed")
}

func (d *Directory) handleMemberGone(roomName, userID string) {
	if current, ok := d.occupancy[userID]; ok && current == roomName {
		delete(d.occupancy, userID)
	}
}
