// Package app holds process-wide application state outside the room
// subsystem. The Registry is the profile store: display name and
// avatar per participant.
package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/meiao/sizematters-server/internal/domain"
)

type Registry struct {
	mu    sync.RWMutex
	users map[string]domain.UserData
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[string]domain.UserData)}
}

// GetOrCreate returns the stored profile for a participant, creating
// the default one on first sight.
func (r *Registry) GetOrCreate(userID string) domain.UserData {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		return u
	}
	u := domain.NewUserData(userID)
	r.users[userID] = u
	log.Info().Str("module", "app.registry").Str("user", userID).Msg("created new profile")
	return u
}

// SetProfile applies the optional name and avatar updates and returns
// the resulting profile.
func (r *Registry) SetProfile(userID string, name, avatar *string) (domain.UserData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		u = domain.NewUserData(userID)
	}
	if name != nil {
		if err := u.SetName(*name); err != nil {
			return domain.UserData{}, err
		}
	}
	if avatar != nil {
		u.SetAvatar(*avatar)
	}
	r.users[userID] = u
	log.Info().Str("module", "app.registry").Str("user", userID).Str("name", u.Name).Msg("profile updated")
	return u, nil
}

// Remove forgets a participant's profile once their connection is gone.
func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, userID)
	log.Info().Str("module", "app.registry").Str("user", userID).Msg("profile removed")
}
