package domain

import (
	"strings"
	"testing"
)

func TestNewUserDataDefaults(t *testing.T) {
	u := NewUserData("u1")
	if u.UserID != "u1" {
		t.Errorf("user id = %q", u.UserID)
	}
	if u.Name != DefaultName {
		t.Errorf("name = %q", u.Name)
	}
	if u.GravatarID != MD5Hex("u1") {
		t.Errorf("gravatar = %q", u.GravatarID)
	}
}

func TestSetName(t *testing.T) {
	u := NewUserData("u1")
	if err := u.SetName("Alice"); err != nil {
		t.Fatalf("set name: %v", err)
	}
	if u.Name != "Alice" {
		t.Errorf("name = %q", u.Name)
	}
	if err := u.SetName(""); err != ErrNameEmpty {
		t.Errorf("empty name error = %v", err)
	}
	if err := u.SetName(strings.Repeat("x", MaxNameLen+1)); err != ErrNameTooLong {
		t.Errorf("long name error = %v", err)
	}
	if u.Name != "Alice" {
		t.Error("rejected update mutated the name")
	}
}

func TestSetAvatarHashes(t *testing.T) {
	u := NewUserData("u1")
	u.SetAvatar("alice@example.com")
	if u.GravatarID != MD5Hex("alice@example.com") {
		t.Errorf("gravatar = %q", u.GravatarID)
	}
}

// MD5Hex is a wire-visible commitment format; its output must never
// change.
func TestMD5HexStable(t *testing.T) {
	if got := MD5Hex(""); got != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("MD5Hex(\"\") = %q", got)
	}
	if got := MD5Hex("x"); got != "9dd4e461268c8034f5c8564e155c67a6" {
		t.Errorf("MD5Hex(\"x\") = %q", got)
	}
}

func TestValidRoomName(t *testing.T) {
	valid := []string{"a", "demo", "my-room", "my_room", "UPPER", strings.Repeat("a", 50)}
	for _, name := range valid {
		if !ValidRoomName(name) {
			t.Errorf("%q rejected", name)
		}
	}
	invalid := []string{"", "has space", "room1", "demo!", "名前", strings.Repeat("a", 51)}
	for _, name := range invalid {
		if ValidRoomName(name) {
			t.Errorf("%q accepted", name)
		}
	}
}

func TestScaleCatalog(t *testing.T) {
	if _, ok := ScaleByName(DefaultScaleName); !ok {
		t.Fatal("default scale missing from catalog")
	}
	if _, ok := ScaleByName("golden-ratio"); ok {
		t.Error("unknown scale found")
	}

	for _, s := range Scales() {
		if len(s.Values) == 0 {
			t.Errorf("scale %q has no values", s.Name)
			continue
		}
		if s.Values[len(s.Values)-1] != "?" {
			t.Errorf("scale %q does not end with the no-vote marker", s.Name)
		}
	}
}

func TestScalesReturnsACopy(t *testing.T) {
	Scales()[0].Name = "mutated"
	if Scales()[0].Name == "mutated" {
		t.Error("catalog order is shared mutable state")
	}
}
