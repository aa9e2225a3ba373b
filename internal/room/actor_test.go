package room

import (
	"testing"
	"time"

	"github.com/meiao/sizematters-server/internal/domain"
	"github.com/meiao/sizematters-server/internal/protocol"
)

// chanSender feeds delivered messages into a channel so tests can
// observe the real goroutine-backed directory and rooms.
type chanSender struct {
	ch chan protocol.Outbound
}

func newChanSender() *chanSender {
	return &chanSender{ch: make(chan protocol.Outbound, 64)}
}

func (s *chanSender) Send(msg protocol.Outbound) error {
	s.ch <- msg
	return nil
}

func recv(t *testing.T, s *chanSender) protocol.Outbound {
	t.Helper()
	select {
	case msg := <-s.ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
		return nil
	}
}

func recvType(t *testing.T, s *chanSender, typ string) protocol.Outbound {
	t.Helper()
	msg := recv(t, s)
	if msg.Type() != typ {
		t.Fatalf("got %s, want %s", msg.Type(), typ)
	}
	return msg
}

// TestDirectoryEndToEnd exercises the full message flow across the
// real directory and room goroutines: per-room serialization means
// each participant sees pushes in a deterministic order.
func TestDirectoryEndToEnd(t *testing.T) {
	d := NewDirectory()
	defer d.Close()

	alice := newChanSender()
	bob := newChanSender()

	d.JoinRoom("demo", "x", false, domain.NewUserData("A"), alice)
	recvType(t, alice, "RoomJoined")

	d.JoinRoom("demo", "x", false, domain.NewUserData("B"), bob)
	recvType(t, alice, "UserJoined")
	recvType(t, bob, "RoomJoined")

	d.Vote("demo", "A", "3")
	own := recvType(t, alice, "OwnVote").(protocol.OwnVote)
	if own.Size != "3" {
		t.Errorf("OwnVote size = %q", own.Size)
	}
	status := recvType(t, alice, "VoteStatus").(protocol.VoteStatus)
	if !status.Votes["A"] || status.Votes["B"] {
		t.Errorf("VoteStatus = %v", status.Votes)
	}
	recvType(t, bob, "VoteStatus")

	d.Vote("demo", "B", "5")
	recvType(t, bob, "OwnVote")
	results := recvType(t, alice, "VoteResults").(protocol.VoteResults)
	if results.Votes["A"] != "3" || results.Votes["B"] != "5" {
		t.Errorf("VoteResults = %v", results.Votes)
	}
	recvType(t, bob, "VoteResults")
}

// A room whose last member leaves is reclaimed; the same name can then
// be taken again with a different password.
func TestRoomReclaimedAfterLastLeave(t *testing.T) {
	d := NewDirectory()
	defer d.Close()

	alice := newChanSender()
	d.JoinRoom("demo", "x", false, domain.NewUserData("A"), alice)
	recvType(t, alice, "RoomJoined")
	d.LeaveRoom("demo", "A")
	recvType(t, alice, "UserLeft")

	// The closure notification is asynchronous; retry the fresh join
	// until the new room answers. A reply with the new password's
	// hash proves fresh creation.
	carol := newChanSender()
	deadline := time.Now().Add(2 * time.Second)
	for {
		d.JoinRoom("demo", "fresh", false, domain.NewUserData("C"), carol)
		select {
		case msg := <-carol.ch:
			joined, ok := msg.(protocol.RoomJoined)
			if !ok {
				t.Fatalf("got %s, want RoomJoined", msg.Type())
			}
			if joined.HashedPassword != domain.MD5Hex("fresh") {
				t.Fatalf("hash = %q, room was not recreated", joined.HashedPassword)
			}
			return
		case <-time.After(50 * time.Millisecond):
			if time.Now().After(deadline) {
				t.Fatal("room was never reclaimed")
			}
		}
	}
}

func TestWrongPasswordLeavesNoTrace(t *testing.T) {
	d := NewDirectory()
	defer d.Close()

	alice := newChanSender()
	d.JoinRoom("demo", "x", false, domain.NewUserData("A"), alice)
	recvType(t, alice, "RoomJoined")

	mallory := newChanSender()
	d.JoinRoom("demo", "wrong", false, domain.NewUserData("M"), mallory)
	recvType(t, mallory, "WrongPassword")

	// The rejected participant can immediately join elsewhere: the
	// directory learned the admission failed and unmapped them.
	deadline := time.Now().Add(2 * time.Second)
	for {
		d.JoinRoom("elsewhere", "y", false, domain.NewUserData("M"), mallory)
		msg := recv(t, mallory)
		if msg.Type() == "RoomJoined" {
			return
		}
		if msg.Type() != "CannotJoinMultipleRooms" {
			t.Fatalf("got %s", msg.Type())
		}
		if time.Now().After(deadline) {
			t.Fatal("directory never unmapped the rejected participant")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestRoomsAreIndependent(t *testing.T) {
	d := NewDirectory()
	defer d.Close()

	alice := newChanSender()
	bob := newChanSender()
	d.JoinRoom("one", "x", false, domain.NewUserData("A"), alice)
	d.JoinRoom("two", "y", false, domain.NewUserData("B"), bob)
	recvType(t, alice, "RoomJoined")
	recvType(t, bob, "RoomJoined")

	d.Vote("one", "A", "3")
	recvType(t, alice, "OwnVote")
	recvType(t, alice, "VoteResults")

	select {
	case msg := <-bob.ch:
		t.Fatalf("room two observed room one's %s", msg.Type())
	case <-time.After(100 * time.Millisecond):
	}
}
