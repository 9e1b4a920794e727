// Package storage defines persistence contracts for game, identity and
// moderation state.
package storage

import (
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
var ErrAlreadyExists = errors.New("record already exists")

// ErrUnknownWinner indicates an individual-winner designator references a
// nickname absent from the supplied player list.
var ErrUnknownWinner = errors.New("winner not in player list")

// UnsetAccount is the sentinel the chat transport sends when a player has no
// registered account.
const UnsetAccount = "*"

// IdentityKind selects which connection identity channel a key refers to.
type IdentityKind int

const (
	// IdentityByAccount keys a player by a registered account name.
	IdentityByAccount IdentityKind = iota + 1
	// IdentityByHostmask keys a player by a connection-derived hostmask.
	IdentityByHostmask
)

// Identity is a tagged connection-identity key. The zero value means no
// identity was supplied.
type Identity struct {
	Kind  IdentityKind
	Value string
}

// ByAccount builds an account-keyed identity.
func ByAccount(account string) Identity {
	return Identity{Kind: IdentityByAccount, Value: account}
}

// ByHostmask builds a hostmask-keyed identity.
func ByHostmask(hostmask string) Identity {
	return Identity{Kind: IdentityByHostmask, Value: hostmask}
}

// IdentityFrom derives the identity key for an (account, hostmask) pair.
// The UnsetAccount sentinel counts as an absent account. Account takes
// priority over hostmask; ok is false when both channels are absent.
func IdentityFrom(account, hostmask string) (id Identity, ok bool) {
	if account == UnsetAccount {
		account = ""
	}
	if account != "" {
		return ByAccount(account), true
	}
	if hostmask != "" {
		return ByHostmask(hostmask), true
	}
	return Identity{}, false
}

// Membership pairs the stable person id with the concrete player id an
// identity resolved to.
type Membership struct {
	PersonID int64
	PlayerID int64
}

// GameParticipant is one resolved player's participation in a recorded game.
type GameParticipant struct {
	PlayerID     int64
	TeamWin      bool
	IndivWin     bool
	Disconnected bool
	Role         string
	Templates    []string
	Specials     []string
}

// GameRecord is one completed match ready for insertion. Winner is either a
// team name or "@<playerid>" for an individual winner. Options carries the
// serialized freeform game options.
type GameRecord struct {
	Mode     string
	Size     int
	Started  time.Time
	Finished time.Time
	Winner   string
	Options  string
	Players  []GameParticipant
}

// RoleStats aggregates one person's outcomes while holding one role.
type RoleStats struct {
	Role      string
	TeamWins  int64
	IndivWins int64
	Total     int64
}

// RoleCount is a per-role game count for one person.
type RoleCount struct {
	Role  string
	Games int64
}

// TeamCount is a per-winning-team game count for one mode and size.
type TeamCount struct {
	Team  string
	Games int64
}

// SizeCount is a per-game-size count for one mode.
type SizeCount struct {
	Size  int
	Games int64
}

// Warning is one moderation ledger entry. Sender 0 means system-issued.
// A zero Expires means the warning never expires.
type Warning struct {
	ID           int64
	Target       int64
	Sender       int64
	Amount       int
	Reason       string
	Notes        string
	Issued       time.Time
	Expires      time.Time
	Acknowledged bool
	Deleted      bool
}

// WarningRecord is one listed warning joined to display names. Expired is
// the derived predicate evaluated at query time.
type WarningRecord struct {
	ID           int64
	TargetName   string
	SenderName   string
	Amount       int
	Reason       string
	Notes        string
	Issued       time.Time
	Expires      time.Time
	Expired      bool
	Acknowledged bool
	Deleted      bool
}

// WarningQuery selects a warning listing window. Target 0 lists warnings
// across all targets. All includes deleted and expired entries; otherwise
// only currently-active warnings are returned. Show 0 disables the page
// window. FallbackSender substitutes for system-issued warnings.
type WarningQuery struct {
	Target         int64
	All            bool
	Skip           int
	Show           int
	FallbackSender string
}

// SanctionDenyCommand is the sanction kind that denies a command.
const SanctionDenyCommand = "deny command"

// PreferenceRow is one active player's person-level preference state, as
// scanned during startup hydration.
type PreferenceRow struct {
	Account      string
	Hostmask     string
	Notice       bool
	Simple       bool
	Deadchat     bool
	PingInterval int
	Stasis       int
}
