// Package app exposes the gamedata operations consumed by the chat
// transport and the game engine: identity resolution, game recording,
// statistics reports, the moderation ledger and preference state.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/moonhollow/moonhollow/internal/services/gamedata/storage"
	gamesqlite "github.com/moonhollow/moonhollow/internal/services/gamedata/storage/sqlite"
)

// ModeCustomRoles marks a game played with a custom role configuration.
// Such games have unreliable attribution and are never recorded.
const ModeCustomRoles = "roles"

// IndividualWinnerPrefix marks a winner designator that names a single
// player (a fool-style win) instead of a team.
const IndividualWinnerPrefix = "@"

// DefaultRoleOrder is the canonical presentation order for recognized
// roles; names outside it list afterwards.
var DefaultRoleOrder = []string{
	"villager",
	"seer",
	"oracle",
	"harlot",
	"hunter",
	"detective",
	"guardian angel",
	"bodyguard",
	"village drunk",
	"cursed villager",
	"shaman",
	"wolf",
	"werecrow",
	"wolf cub",
	"traitor",
	"sorcerer",
	"minion",
	"cultist",
	"fool",
	"lycan",
	"vengeful ghost",
	"monster",
}

// Participant is one player's entry in a completed game, as supplied by the
// game engine. Account may be the "*" sentinel when unregistered.
type Participant struct {
	Nick         string
	Account      string
	Ident        string
	Host         string
	Role         string
	Templates    []string
	Specials     []string
	Won          bool
	IndivWon     bool
	Disconnected bool
}

// GameResult is one completed match as supplied by the game engine. Winner
// is a team name, or IndividualWinnerPrefix plus the winning player's nick.
type GameResult struct {
	Mode     string
	Size     int
	Started  time.Time
	Finished time.Time
	Winner   string
	Players  []Participant
	Options  map[string]any
}

// Config holds service-level settings.
type Config struct {
	// SystemName substitutes as the sender of system-issued warnings.
	SystemName string
	// RoleOrder overrides the canonical role presentation order.
	RoleOrder []string
}

// Service wires the gamedata store to the operations the bot layers call.
type Service struct {
	store      *gamesqlite.Store
	systemName string
	roleOrder  []string
	prefs      *PreferenceCache
}

// New creates a gamedata service around an open store.
func New(store *gamesqlite.Store, cfg Config) *Service {
	systemName := strings.TrimSpace(cfg.SystemName)
	if systemName == "" {
		systemName = "moonhollow"
	}
	roleOrder := cfg.RoleOrder
	if roleOrder == nil {
		roleOrder = DefaultRoleOrder
	}
	return &Service{
		store:      store,
		systemName: systemName,
		roleOrder:  roleOrder,
		prefs:      newPreferenceCache(),
	}
}

// Preferences returns the hydrated preference cache.
func (s *Service) Preferences() *PreferenceCache {
	return s.prefs
}

// Resolve maps an (account, hostmask) pair to its stable ids. A miss is
// soft: the zero Membership comes back with a nil error.
func (s *Service) Resolve(ctx context.Context, account, hostmask string, create bool) (storage.Membership, error) {
	id, ok := storage.IdentityFrom(account, hostmask)
	if !ok {
		return storage.Membership{}, nil
	}
	member, err := s.store.Resolve(ctx, id, create)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Membership{}, nil
		}
		return storage.Membership{}, err
	}
	return member, nil
}

// DisplayName returns the display name for a person, empty for id 0.
func (s *Service) DisplayName(ctx context.Context, personID int64) (string, error) {
	name, err := s.store.DisplayName(ctx, personID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}
	return name, nil
}

// RecordGame persists one completed game. Games in the custom-roles mode
// are skipped without error. An individual winner designator that names a
// nick missing from the player list fails with storage.ErrUnknownWinner
// and nothing is persisted.
func (s *Service) RecordGame(ctx context.Context, result GameResult) error {
	if result.Mode == ModeCustomRoles {
		return nil
	}

	participants := make([]storage.GameParticipant, 0, len(result.Players))
	playerIDs := make(map[string]int64, len(result.Players))
	for _, p := range result.Players {
		hostmask := fmt.Sprintf("%s!%s@%s", p.Nick, p.Ident, p.Host)
		id, ok := storage.IdentityFrom(p.Account, hostmask)
		if !ok {
			return fmt.Errorf("participant %q has no identity", p.Nick)
		}
		member, err := s.store.Resolve(ctx, id, true)
		if err != nil {
			return fmt.Errorf("resolve participant %q: %w", p.Nick, err)
		}
		playerIDs[p.Nick] = member.PlayerID
		participants = append(participants, storage.GameParticipant{
			PlayerID:     member.PlayerID,
			TeamWin:      p.Won,
			IndivWin:     p.IndivWon,
			Disconnected: p.Disconnected,
			Role:         p.Role,
			Templates:    p.Templates,
			Specials:     p.Specials,
		})
	}

	winner := result.Winner
	if strings.HasPrefix(winner, IndividualWinnerPrefix) {
		nick := strings.TrimPrefix(winner, IndividualWinnerPrefix)
		playerID, ok := playerIDs[nick]
		if !ok {
			return fmt.Errorf("%w: %q", storage.ErrUnknownWinner, nick)
		}
		winner = IndividualWinnerPrefix + strconv.FormatInt(playerID, 10)
	}

	options, err := json.Marshal(result.Options)
	if err != nil {
		return fmt.Errorf("serialize game options: %w", err)
	}

	_, err = s.store.RecordGame(ctx, storage.GameRecord{
		Mode:     result.Mode,
		Size:     result.Size,
		Started:  result.Started,
		Finished: result.Finished,
		Winner:   winner,
		Options:  string(options),
		Players:  participants,
	})
	return err
}

// fallbackName picks the name to report for an identity that never played.
func fallbackName(account, hostmask string) string {
	if account != "" && account != storage.UnsetAccount {
		return account
	}
	return hostmask
}
