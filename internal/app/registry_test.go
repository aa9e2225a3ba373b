package app

import (
	"strings"
	"testing"

	"github.com/meiao/sizematters-server/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestGetOrCreate(t *testing.T) {
	r := NewRegistry()

	u := r.GetOrCreate("u1")
	if u.Name != domain.DefaultName {
		t.Errorf("name = %q", u.Name)
	}

	_, err := r.SetProfile("u1", strPtr("Alice"), nil)
	if err != nil {
		t.Fatalf("set profile: %v", err)
	}
	if got := r.GetOrCreate("u1"); got.Name != "Alice" {
		t.Errorf("second lookup name = %q, profile not retained", got.Name)
	}
}

func TestSetProfile(t *testing.T) {
	r := NewRegistry()

	u, err := r.SetProfile("u1", strPtr("Alice"), strPtr("alice@example.com"))
	if err != nil {
		t.Fatalf("set profile: %v", err)
	}
	if u.Name != "Alice" {
		t.Errorf("name = %q", u.Name)
	}
	if u.GravatarID != domain.MD5Hex("alice@example.com") {
		t.Errorf("gravatar = %q", u.GravatarID)
	}

	// Avatar-only update keeps the name.
	u, err = r.SetProfile("u1", nil, strPtr("new@example.com"))
	if err != nil {
		t.Fatalf("avatar update: %v", err)
	}
	if u.Name != "Alice" {
		t.Errorf("avatar update changed name to %q", u.Name)
	}

	if _, err := r.SetProfile("u1", strPtr(strings.Repeat("x", domain.MaxNameLen+1)), nil); err == nil {
		t.Error("oversized name accepted")
	}
	if got := r.GetOrCreate("u1"); got.Name != "Alice" {
		t.Error("rejected update mutated the stored profile")
	}
}

func TestRemove(t *testing.T) {
	r := NewRegistry()
	_, _ = r.SetProfile("u1", strPtr("Alice"), nil)
	r.Remove("u1")
	if got := r.GetOrCreate("u1"); got.Name != domain.DefaultName {
		t.Errorf("profile survived removal: %q", got.Name)
	}
}
