// Package protocol defines the tagged messages exchanged with clients.
// The wire form is a JSON envelope {"type": ..., "data": ...}; transports
// own the framing, this package owns the shapes.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/meiao/sizematters-server/internal/domain"
)

// Inbound is a client request. The concrete type identifies the operation.
type Inbound interface {
	inbound()
}

type SetProfile struct {
	Name   *string `json:"name,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

type Register struct{}

type JoinRoom struct {
	RoomName       string `json:"room_name"`
	Password       string `json:"password"`
	PasswordIsHash bool   `json:"password_is_hash"`
}

type LeaveRoom struct {
	RoomName string `json:"room_name"`
}

type Vote struct {
	RoomName string `json:"room_name"`
	Size     string `json:"size"`
}

type NewRound struct {
	RoomName string `json:"room_name"`
}

type Randomize struct {
	RoomName string `json:"room_name"`
}

type ChangeScale struct {
	RoomName  string `json:"room_name"`
	ScaleName string `json:"scale_name"`
}

type SetActive struct {
	RoomName string `json:"room_name"`
	UserID   string `json:"user_id"`
	Active   bool   `json:"active"`
}

func (SetProfile) inbound()  {}
func (Register) inbound()    {}
func (JoinRoom) inbound()    {}
func (LeaveRoom) inbound()   {}
func (Vote) inbound()        {}
func (NewRound) inbound()    {}
func (Randomize) inbound()   {}
func (ChangeScale) inbound() {}
func (SetActive) inbound()   {}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DecodeInbound parses one client frame into its typed request.
func DecodeInbound(raw []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var msg Inbound
	switch env.Type {
	case "SetProfile":
		msg = &SetProfile{}
	case "Register":
		return Register{}, nil
	case "JoinRoom":
		msg = &JoinRoom{}
	case "LeaveRoom":
		msg = &LeaveRoom{}
	case "Vote":
		msg = &Vote{}
	case "NewRound":
		msg = &NewRound{}
	case "Randomize":
		msg = &Randomize{}
	case "ChangeScale":
		msg = &ChangeScale{}
	case "SetActive":
		msg = &SetActive{}
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
	}
	return msg, nil
}

// Outbound is a server push. Type is the envelope tag on the wire.
type Outbound interface {
	Type() string
}

type RoomJoined struct {
	RoomName       string            `json:"room_name"`
	HashedPassword string            `json:"hashed_password"`
	Users          []domain.UserData `json:"users"`
	VotesCast      int               `json:"votes_cast"`
	Scales         []domain.Scale    `json:"scales"`
	SelectedScale  string            `json:"selected_scale_name"`
}

type UserJoined struct {
	RoomName string          `json:"room_name"`
	User     domain.UserData `json:"user"`
}

type UserLeft struct {
	RoomName string `json:"room_name"`
	UserID   string `json:"user_id"`
}

type UserUpdated struct {
	User domain.UserData `json:"user"`
}

type OwnData struct {
	User domain.UserData `json:"user"`
}

type OwnVote struct {
	RoomName string `json:"room_name"`
	Size     string `json:"size"`
}

type VoteStatus struct {
	RoomName string          `json:"room_name"`
	Votes    map[string]bool `json:"votes"`
}

type VoteResults struct {
	RoomName string            `json:"room_name"`
	Votes    map[string]string `json:"votes"`
}

type NewVote struct {
	RoomName string `json:"room_name"`
}

type Spotlighted struct {
	RoomName string `json:"room_name"`
	UserID   string `json:"user_id"`
}

type ScaleChanged struct {
	RoomName string       `json:"room_name"`
	Scale    domain.Scale `json:"scale"`
}

type ActiveChanged struct {
	RoomName string `json:"room_name"`
	UserID   string `json:"user_id"`
	Active   bool   `json:"active"`
}

type AlreadyInRoom struct {
	RoomName string `json:"room_name"`
}

type WrongPassword struct {
	RoomName string `json:"room_name"`
}

type InvalidRoomName struct{}

type CannotJoinMultipleRooms struct{}

type VotingOver struct{}

type Error struct {
	Msg string `json:"msg"`
}

func (RoomJoined) Type() string              { return "RoomJoined" }
func (UserJoined) Type() string              { return "UserJoined" }
func (UserLeft) Type() string                { return "UserLeft" }
func (UserUpdated) Type() string             { return "UserUpdated" }
func (OwnData) Type() string                 { return "OwnData" }
func (OwnVote) Type() string                 { return "OwnVote" }
func (VoteStatus) Type() string              { return "VoteStatus" }
func (VoteResults) Type() string             { return "VoteResults" }
func (NewVote) Type() string                 { return "NewVote" }
func (Spotlighted) Type() string             { return "Spotlighted" }
func (ScaleChanged) Type() string            { return "ScaleChanged" }
func (ActiveChanged) Type() string           { return "ActiveChanged" }
func (AlreadyInRoom) Type() string           { return "AlreadyInRoom" }
func (WrongPassword) Type() string           { return "WrongPassword" }
func (InvalidRoomName) Type() string         { return "InvalidRoomName" }
func (CannotJoinMultipleRooms) Type() string { return "CannotJoinMultipleRooms" }
func (VotingOver) Type() string              { return "VotingOver" }
func (Error) Type() string                   { return "Error" }

// EncodeOutbound wraps a server message in its envelope.
func EncodeOutbound(msg Outbound) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Type(), err)
	}
	return json.Marshal(envelope{Type: msg.Type(), Data: data})
}
