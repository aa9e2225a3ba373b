// Package domain contains entities without logic, just meta-data.
package domain

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
)

const (
	MaxNameLen = 36

	// DefaultName is what a participant is called until they pick a name.
	DefaultName = "Shirtless Muppet"
)

var (
	ErrNameTooLong = errors.New("name too long")
	ErrNameEmpty   = errors.New("name empty")
)

// UserData is a participant's public profile as seen by room members.
type UserData struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	GravatarID string `json:"gravatar_id"`
}

// NewUserData builds the default profile for a fresh participant.
// The avatar starts out derived from the participant id so every
// user has a stable gravatar before setting one explicitly.
func NewUserData(userID string) UserData {
	return UserData{
		UserID:     userID,
		Name:       DefaultName,
		GravatarID: MD5Hex(userID),
	}
}

func (u *UserData) SetName(name string) error {
	if len(name) == 0 {
		return ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	u.Name = name
	return nil
}

// SetAvatar stores the gravatar id for an email-like avatar reference.
// Only the hash ever leaves the process.
func (u *UserData) SetAvatar(avatar string) {
	u.GravatarID = MD5Hex(avatar)
}

// MD5Hex is the commitment format used for both gravatar ids and room
// password hashes. Clients pre-compute it, so it must stay stable.
func MD5Hex(value string) string {
	sum := md5.Sum([]byte(value))
	return hex.EncodeToString(sum[:])
}
