package app

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/moonhollow/moonhollow/internal/services/gamedata/storage"
)

// PreferenceCache holds the per-identity preference state the chat
// transport consults on its hot paths. It is hydrated once at startup and
// kept current by the service's toggle and set operations; callers query
// it rather than sharing its internals.
type PreferenceCache struct {
	mu      sync.RWMutex
	entries map[storage.Identity]preferenceState
}

type preferenceState struct {
	simple       bool
	notice       bool
	deadchat     bool
	pingInterval int
	stasis       int
}

func newPreferenceCache() *PreferenceCache {
	return &PreferenceCache{entries: make(map[storage.Identity]preferenceState)}
}

// Simple reports whether an identity prefers simplified notifications.
func (c *PreferenceCache) Simple(id storage.Identity) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[id].simple
}

// Notice reports whether an identity prefers notice-style messages.
func (c *PreferenceCache) Notice(id storage.Identity) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[id].notice
}

// Deadchat reports whether an identity opted into deadchat.
func (c *PreferenceCache) Deadchat(id storage.Identity) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[id].deadchat
}

// PingInterval returns an identity's ping threshold, 0 when unset.
func (c *PreferenceCache) PingInterval(id storage.Identity) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[id].pingInterval
}

// Stasis returns an identity's stasis penalty counter.
func (c *PreferenceCache) Stasis(id storage.Identity) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[id].stasis
}

// PingIntervalMembers returns the identities whose ping threshold equals
// interval, in deterministic order.
func (c *PreferenceCache) PingIntervalMembers(interval int) []storage.Identity {
	if interval <= 0 {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	var members []storage.Identity
	for id, state := range c.entries {
		if state.pingInterval == interval {
			members = append(members, id)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Kind != members[j].Kind {
			return members[i].Kind < members[j].Kind
		}
		return members[i].Value < members[j].Value
	})
	return members
}

func (c *PreferenceCache) update(id storage.Identity, fn func(*preferenceState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := c.entries[id]
	fn(&state)
	c.entries[id] = state
}

// HydratePreferences loads every active player's preference state into the
// cache. It runs once at startup before steady-state traffic begins.
func (s *Service) HydratePreferences(ctx context.Context) error {
	rows, err := s.store.ListPreferences(ctx)
	if err != nil {
		return fmt.Errorf("hydrate preferences: %w", err)
	}

	s.prefs.mu.Lock()
	defer s.prefs.mu.Unlock()
	s.prefs.entries = make(map[storage.Identity]preferenceState, len(rows))
	for _, row := range rows {
		id, ok := storage.IdentityFrom(row.Account, row.Hostmask)
		if !ok {
			continue
		}
		s.prefs.entries[id] = preferenceState{
			simple:       row.Simple,
			notice:       row.Notice,
			deadchat:     row.Deadchat,
			pingInterval: row.PingInterval,
			stasis:       row.Stasis,
		}
	}
	return nil
}

// ToggleSimple flips the simplified-notification preference for an
// identity, creating it when never seen, and returns the new value.
func (s *Service) ToggleSimple(ctx context.Context, account, hostmask string) (bool, error) {
	id, ok := storage.IdentityFrom(account, hostmask)
	if !ok {
		return false, fmt.Errorf("identity is required")
	}
	value, err := s.store.ToggleSimple(ctx, id)
	if err != nil {
		return false, err
	}
	s.prefs.update(id, func(p *preferenceState) { p.simple = value })
	return value, nil
}

// ToggleNotice flips the prefer-notice preference and returns the new value.
func (s *Service) ToggleNotice(ctx context.Context, account, hostmask string) (bool, error) {
	id, ok := storage.IdentityFrom(account, hostmask)
	if !ok {
		return false, fmt.Errorf("identity is required")
	}
	value, err := s.store.ToggleNotice(ctx, id)
	if err != nil {
		return false, err
	}
	s.prefs.update(id, func(p *preferenceState) { p.notice = value })
	return value, nil
}

// ToggleDeadchat flips the deadchat preference and returns the new value.
func (s *Service) ToggleDeadchat(ctx context.Context, account, hostmask string) (bool, error) {
	id, ok := storage.IdentityFrom(account, hostmask)
	if !ok {
		return false, fmt.Errorf("identity is required")
	}
	value, err := s.store.ToggleDeadchat(ctx, id)
	if err != nil {
		return false, err
	}
	s.prefs.update(id, func(p *preferenceState) { p.deadchat = value })
	return value, nil
}

// SetPingInterval sets an identity's ping threshold; zero or less clears it.
func (s *Service) SetPingInterval(ctx context.Context, account, hostmask string, value int) error {
	id, ok := storage.IdentityFrom(account, hostmask)
	if !ok {
		return fmt.Errorf("identity is required")
	}
	if err := s.store.SetPingInterval(ctx, id, value); err != nil {
		return err
	}
	if value < 0 {
		value = 0
	}
	s.prefs.update(id, func(p *preferenceState) { p.pingInterval = value })
	return nil
}

// SetStasis sets an identity's stasis penalty counter.
func (s *Service) SetStasis(ctx context.Context, account, hostmask string, amount int) error {
	id, ok := storage.IdentityFrom(account, hostmask)
	if !ok {
		return fmt.Errorf("identity is required")
	}
	if err := s.store.SetStasis(ctx, id, amount); err != nil {
		return err
	}
	s.prefs.update(id, func(p *preferenceState) { p.stasis = amount })
	return nil
}
