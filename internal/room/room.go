// Package room implements the estimation room state machine and the
// process-wide room directory. Each room and the directory run as a
// single goroutine draining an unbounded mailbox, so operations on one
// room are strictly serialized while rooms stay independent of each
// other.
package room

import (
	"math/rand/v2"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/meiao/sizematters-server/internal/domain"
	"github.com/meiao/sizematters-server/internal/protocol"
)

// member is a participant's room-scoped state: profile snapshot plus
// the outbound path to that participant.
type member struct {
	user   domain.UserData
	sender Sender
}

// Room owns membership, the password gate, the vote round and the
// selected scale for one estimation session. All fields are touched
// only from the room's own goroutine.
type Room struct {
	name           string
	hashedPassword string

	active  map[string]*member
	passive map[string]*member
	votes   map[string]string

	selectedScale string

	events  Events
	mailbox *mailbox[Msg]
	stopped bool

	// pick returns a uniform index in [0,n); swapped out in tests.
	pick func(n int) int
}

// HashPassword computes the password commitment for a room. Clients
// may pre-hash, in which case the value is taken verbatim.
func HashPassword(password string, isHash bool) string {
	if isHash {
		return password
	}
	return domain.MD5Hex(password)
}

func newRoom(name, password string, passwordIsHash bool, events Events) *Room {
	return &Room{
		name:           name,
		hashedPassword: HashPassword(password, passwordIsHash),
		active:         make(map[string]*member),
		passive:        make(map[string]*member),
		votes:          make(map[string]string),
		selectedScale:  domain.DefaultScaleName,
		events:         events,
		mailbox:        newMailbox[Msg](),
		pick:           rand.IntN,
	}
}

// New creates a room and starts its goroutine. The password of the
// first join fixes the room's commitment for its whole lifetime.
func New(name, password string, passwordIsHash bool, events Events) *Room {
	r := newRoom(name, password, passwordIsHash, events)
	go r.run()
	log.Info().Str("module", "room").Str("room", name).Msg("room created")
	return r
}

// Deliver enqueues an operation. Returns false if the room already
// stopped; the operation is then dropped, which callers cannot
// distinguish from slow delivery.
func (r *Room) Deliver(msg Msg) bool {
	if !r.mailbox.put(msg) {
		log.Debug().Str("module", "room").Str("room", r.name).Msg("message for stopped room dropped")
		return false
	}
	return true
}

// Close ends the room's goroutine after the mailbox drains. Used on
// process shutdown; normal closure happens when the room empties.
func (r *Room) Close() {
	r.mailbox.close()
}

func (r *Room) run() {
	for {
		msg, ok := r.mailbox.take()
		if !ok {
			return
		}
		r.dispatch(msg)
	}
}

func (r *Room) dispatch(msg Msg) {
	if r.stopped {
		log.Debug().Str("module", "room").Str("room", r.name).Msg("ignoring message after close")
		return
	}

	switch m := msg.(type) {
	case Join:
		r.handleJoin(m)
	case Leave:
		r.handleLeave(m.UserID)
	case CastVote:
		r.handleVote(m.UserID, m.Size)
	case StartRound:
		r.handleStartRound(m.UserID)
	case Randomize:
		r.handleRandomize()
	case ChangeScale:
		r.handleChangeScale(m.Name)
	case SetActive:
		r.handleSetActive(m.UserID, m.Active)
	case ProfileUpdated:
		r.handleProfileUpdated(m.User)
	default:
		log.Warn().Str("module", "room").Str("room", r.name).Msg("unhandled room message")
	}

	// A room with nobody left in it closes for good. Passive members
	// keep a room alive too: they still receive broadcasts and can
	// rejoin the round, so only a fully empty room is reclaimed.
	if !r.stopped && len(r.active) == 0 && len(r.passive) == 0 {
		r.stopped = true
		log.Info().Str("module", "room").Str("room", r.name).Msg("room empty, closing")
		r.events.Closed(r.name)
		r.mailbox.close()
	}
}

func (r *Room) isMember(userID string) bool {
	_, ok := r.active[userID]
	if !ok {
		_, ok = r.passive[userID]
	}
	return ok
}

func (r *Room) lookup(userID string) (*member, bool) {
	if m, ok := r.active[userID]; ok {
		return m, true
	}
	m, ok := r.passive[userID]
	return m, ok
}

// roundComplete is derived from the maps every time instead of being
// cached; a cached flag can drift from the membership it summarizes.
func (r *Room) roundComplete() bool {
	return len(r.active) > 0 && len(r.votes) == len(r.active)
}

func (r *Room) handleJoin(m Join) {
	userID := m.User.UserID

	if r.isMember(userID) {
		if err := m.Sender.Send(protocol.AlreadyInRoom{RoomName: r.name}); err != nil {
			log.Warn().Err(err).Str("module", "room").Str("room", r.name).Str("user", userID).Msg("already-in-room reply undeliverable")
		}
		return
	}

	if HashPassword(m.Password, m.PasswordIsHash) != r.hashedPassword {
		log.Info().Str("module", "room").Str("room", r.name).Str("user", userID).Msg("join rejected, wrong password")
		if err := m.Sender.Send(protocol.WrongPassword{RoomName: r.name}); err != nil {
			log.Warn().Err(err).Str("module", "room").Str("room", r.name).Str("user", userID).Msg("wrong-password reply undeliverable")
		}
		// The directory mapped the participant here before the
		// admission check; tell it the admission failed.
		r.events.MemberGone(r.name, userID)
		return
	}

	r.broadcast(protocol.UserJoined{RoomName: r.name, User: m.User})

	r.active[userID] = &member{user: m.User, sender: m.Sender}
	log.Info().Str("module", "room").Str("room", r.name).Str("user", userID).Msg("member joined")

	// Reply with a full snapshot so the new client renders without
	// further round-trips.
	users := make([]domain.UserData, 0, len(r.active)+len(r.passive))
	for _, mb := range r.active {
		users = append(users, mb.user)
	}
	for _, mb := range r.passive {
		users = append(users, mb.user)
	}
	r.notifyMember(userID, protocol.RoomJoined{
		RoomName:       r.name,
		HashedPassword: r.hashedPassword,
		Users:          users,
		VotesCast:      len(r.votes),
		Scales:         domain.Scales(),
		SelectedScale:  r.selectedScale,
	})
}

func (r *Room) handleLeave(userID string) {
	if !r.isMember(userID) {
		log.Info().Str("module", "room").Str("room", r.name).Str("user", userID).Msg("leave from non-member ignored")
		return
	}

	r.broadcast(protocol.UserLeft{RoomName: r.name, UserID: userID})

	delete(r.active, userID)
	delete(r.passive, userID)
	delete(r.votes, userID)
	log.Info().Str("module", "room").Str("room", r.name).Str("user", userID).Msg("member left")

	r.broadcastVoteInfo()
}

func (r *Room) handleVote(userID, size string) {
	if r.roundComplete() {
		if _, ok := r.active[userID]; ok {
			r.notifyMember(userID, protocol.VotingOver{})
		} else {
			log.Info().Str("module", "room").Str("room", r.name).Str("user", userID).Msg("late vote from non-member ignored")
		}
		return
	}

	if _, ok := r.active[userID]; !ok {
		log.Info().Str("module", "room").Str("room", r.name).Str("user", userID).Msg("vote from non-active participant ignored")
		return
	}

	r.notifyMember(userID, protocol.OwnVote{RoomName: r.name, Size: size})
	if _, ok := r.active[userID]; !ok {
		// The acknowledgement already evicted the voter.
		return
	}

	_, alreadyVoted := r.votes[userID]
	r.votes[userID] = size
	if !alreadyVoted {
		r.broadcastVoteInfo()
	}
}

func (r *Room) handleStartRound(userID string) {
	if !r.isMember(userID) {
		log.Info().Str("module", "room").Str("room", r.name).Str("user", userID).Msg("new round request from non-member ignored")
		return
	}
	r.votes = make(map[string]string)
	r.broadcast(protocol.NewVote{RoomName: r.name})
}

func (r *Room) handleRandomize() {
	if len(r.active) == 0 {
		log.Warn().Str("module", "room").Str("room", r.name).Msg("randomize on empty active set")
		return
	}
	ids := make([]string, 0, len(r.active))
	for id := range r.active {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	selected := ids[r.pick(len(ids))]
	r.broadcast(protocol.Spotlighted{RoomName: r.name, UserID: selected})
}

func (r *Room) handleChangeScale(name string) {
	scale, ok := domain.ScaleByName(name)
	if !ok {
		log.Info().Str("module", "room").Str("room", r.name).Str("scale", name).Msg("unknown scale ignored")
		return
	}
	r.selectedScale = name
	r.broadcast(protocol.ScaleChanged{RoomName: r.name, Scale: scale})
}

func (r *Room) handleSetActive(userID string, active bool) {
	if active {
		m, ok := r.passive[userID]
		if !ok {
			log.Info().Str("module", "room").Str("room", r.name).Str("user", userID).Bool("active", active).Msg("activity change is a no-op")
			return
		}
		delete(r.passive, userID)
		r.active[userID] = m
	} else {
		m, ok := r.active[userID]
		if !ok {
			log.Info().Str("module", "room").Str("room", r.name).Str("user", userID).Bool("active", active).Msg("activity change is a no-op")
			return
		}
		delete(r.active, userID)
		r.passive[userID] = m
		delete(r.votes, userID)
	}

	r.broadcast(protocol.ActiveChanged{RoomName: r.name, UserID: userID, Active: active})
	// The completion denominator changed either way: a voter may have
	// been removed, or a new active member is now pending.
	r.broadcastVoteInfo()
}

func (r *Room) handleProfileUpdated(user domain.UserData) {
	m, ok := r.lookup(user.UserID)
	if !ok {
		log.Info().Str("module", "room").Str("room", r.name).Str("user", user.UserID).Msg("profile update for absent participant ignored")
		return
	}
	m.user = user
	r.broadcast(protocol.UserUpdated{User: user})
}

// deliverAll attempts delivery to every member, active then passive,
// and returns the ids whose delivery failed. It never mutates the
// member maps itself.
func (r *Room) deliverAll(msg protocol.Outbound) []string {
	var failed []string
	for id, m := range r.active {
		if err := m.sender.Send(msg); err != nil {
			failed = append(failed, id)
		}
	}
	for id, m := range r.passive {
		if err := m.sender.Send(msg); err != nil {
			failed = append(failed, id)
		}
	}
	return failed
}

func (r *Room) broadcast(msg protocol.Outbound) {
	r.reap(r.deliverAll(msg))
}

// deliverVoteInfo pushes the round status: per-member booleans while
// votes are outstanding, the full vote map once everyone voted. Values
// are withheld until completion.
func (r *Room) deliverVoteInfo() []string {
	if r.roundComplete() {
		votes := make(map[string]string, len(r.votes))
		for id, size := range r.votes {
			votes[id] = size
		}
		return r.deliverAll(protocol.VoteResults{RoomName: r.name, Votes: votes})
	}
	status := make(map[string]bool, len(r.active))
	for id := range r.active {
		_, voted := r.votes[id]
		status[id] = voted
	}
	return r.deliverAll(protocol.VoteStatus{RoomName: r.name, Votes: status})
}

func (r *Room) broadcastVoteInfo() {
	r.reap(r.deliverVoteInfo())
}

// notifyMember sends to a single member; an unreachable member is
// evicted the same way a failed broadcast recipient is.
func (r *Room) notifyMember(userID string, msg protocol.Outbound) {
	m, ok := r.lookup(userID)
	if !ok {
		return
	}
	if err := m.sender.Send(msg); err != nil {
		r.reap([]string{userID})
	}
}

// reap handles the implicit leaves of members whose delivery failed.
// The work is a queue, not recursion: notifying the survivors about an
// eviction can itself fail and append more evictions, and each id is
// handled at most once because it leaves the maps first.
func (r *Room) reap(failed []string) {
	queue := failed
	for len(queue) > 0 {
		userID := queue[0]
		queue = queue[1:]
		if !r.isMember(userID) {
			continue
		}
		log.Warn().Str("module", "room").Str("room", r.name).Str("user", userID).Msg("member unreachable, evicting")

		delete(r.active, userID)
		delete(r.passive, userID)
		delete(r.votes, userID)
		r.events.MemberGone(r.name, userID)

		queue = append(queue, r.deliverAll(protocol.UserLeft{RoomName: r.name, UserID: userID})...)
		queue = append(queue, r.deliverVoteInfo()...)
	}
}
