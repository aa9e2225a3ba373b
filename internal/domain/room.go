package domain

import "regexp"

// Room names are short identifiers typed by users; anything outside
// this set is rejected before a room is ever created.
var roomNamePattern = regexp.MustCompile(`^[-_A-Za-z]{1,50}$`)

func ValidRoomName(name string) bool {
	return roomNamePattern.MatchString(name)
}
