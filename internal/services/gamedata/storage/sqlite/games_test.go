package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/moonhollow/moonhollow/internal/services/gamedata/storage"
)

func mustResolve(t *testing.T, store *Store, id storage.Identity) storage.Membership {
	t.Helper()
	member, err := store.Resolve(context.Background(), id, true)
	if err != nil {
		t.Fatalf("resolve %+v: %v", id, err)
	}
	return member
}

func TestRecordGamePersistsAllRows(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	alice := mustResolve(t, store, storage.ByAccount("alice"))
	bob := mustResolve(t, store, storage.ByAccount("bob"))

	started := time.Date(2026, 8, 30, 21, 0, 0, 0, time.UTC)
	rec := storage.GameRecord{
		Mode:     "default",
		Size:     8,
		Started:  started,
		Finished: started.Add(25 * time.Minute),
		Winner:   "villagers",
		Options:  `{"roles":{"wolf":1}}`,
		Players: []storage.GameParticipant{
			{
				PlayerID:  alice.PlayerID,
				TeamWin:   true,
				Role:      "seer",
				Templates: []string{"cursed villager"},
				Specials:  []string{"lover"},
			},
			{
				PlayerID:     bob.PlayerID,
				Role:         "wolf",
				Disconnected: true,
			},
		},
	}

	gameID, err := store.RecordGame(ctx, rec)
	if err != nil {
		t.Fatalf("record game: %v", err)
	}
	if gameID == 0 {
		t.Fatal("record game returned zero id")
	}

	if got := countRows(t, store, "game"); got != 1 {
		t.Fatalf("game rows = %d, want 1", got)
	}
	if got := countRows(t, store, "game_player"); got != 2 {
		t.Fatalf("game_player rows = %d, want 2", got)
	}
	// Primary roles plus one template plus one special quality.
	if got := countRows(t, store, "game_player_role"); got != 4 {
		t.Fatalf("game_player_role rows = %d, want 4", got)
	}

	total, err := store.TotalGames(ctx, alice.PersonID)
	if err != nil {
		t.Fatalf("total games: %v", err)
	}
	if total != 1 {
		t.Fatalf("total games = %d, want 1", total)
	}

	stats, err := store.RoleStats(ctx, alice.PersonID, "seer")
	if err != nil {
		t.Fatalf("role stats: %v", err)
	}
	if stats.Total != 1 || stats.TeamWins != 1 || stats.IndivWins != 0 {
		t.Fatalf("role stats = %+v, want one game with one team win", stats)
	}
}

func TestRecordGameRejectsInvalidParticipantsAtomically(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	alice := mustResolve(t, store, storage.ByAccount("alice"))

	rec := storage.GameRecord{
		Mode:     "default",
		Size:     6,
		Started:  time.Now().UTC(),
		Finished: time.Now().UTC(),
		Winner:   "wolves",
		Players: []storage.GameParticipant{
			{PlayerID: alice.PlayerID, Role: "villager"},
			{PlayerID: 0, Role: "wolf"},
		},
	}
	if _, err := store.RecordGame(ctx, rec); err == nil {
		t.Fatal("expected error for participant without player id")
	}

	if got := countRows(t, store, "game"); got != 0 {
		t.Fatalf("game rows = %d, want 0 after rejected record", got)
	}
	if got := countRows(t, store, "game_player"); got != 0 {
		t.Fatalf("game_player rows = %d, want 0 after rejected record", got)
	}
}

func TestRoleStatsUnknownRoleIsNotFound(t *testing.T) {
	store := openTestStore(t)

	alice := mustResolve(t, store, storage.ByAccount("alice"))
	_, err := store.RoleStats(context.Background(), alice.PersonID, "seer")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("role stats err = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestRoleTotalsOrdersByRoleName(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	alice := mustResolve(t, store, storage.ByAccount("alice"))
	for _, role := range []string{"wolf", "seer", "wolf"} {
		rec := storage.GameRecord{
			Mode:     "default",
			Size:     6,
			Started:  time.Now().UTC(),
			Finished: time.Now().UTC(),
			Winner:   "villagers",
			Players:  []storage.GameParticipant{{PlayerID: alice.PlayerID, Role: role}},
		}
		if _, err := store.RecordGame(ctx, rec); err != nil {
			t.Fatalf("record game: %v", err)
		}
	}

	totals, err := store.RoleTotals(ctx, alice.PersonID)
	if err != nil {
		t.Fatalf("role totals: %v", err)
	}
	want := []storage.RoleCount{{Role: "seer", Games: 1}, {Role: "wolf", Games: 2}}
	if len(totals) != len(want) {
		t.Fatalf("role totals = %+v, want %+v", totals, want)
	}
	for i := range want {
		if totals[i] != want[i] {
			t.Fatalf("role totals[%d] = %+v, want %+v", i, totals[i], want[i])
		}
	}
}

func TestTeamWinCountsCollapsesIndividualWinners(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	alice := mustResolve(t, store, storage.ByAccount("alice"))
	record := func(winner string) {
		t.Helper()
		rec := storage.GameRecord{
			Mode:     "default",
			Size:     8,
			Started:  time.Now().UTC(),
			Finished: time.Now().UTC(),
			Winner:   winner,
			Players:  []storage.GameParticipant{{PlayerID: alice.PlayerID, Role: "villager"}},
		}
		if _, err := store.RecordGame(ctx, rec); err != nil {
			t.Fatalf("record game: %v", err)
		}
	}
	record("wolves")
	record("villagers")
	record("villagers")
	record("@41")
	record("@57")

	counts, err := store.TeamWinCounts(ctx, "default", 8)
	if err != nil {
		t.Fatalf("team win counts: %v", err)
	}
	want := []storage.TeamCount{
		{Team: "villagers", Games: 2},
		{Team: "wolves", Games: 1},
		{Team: "fools", Games: 2},
	}
	if len(counts) != len(want) {
		t.Fatalf("team win counts = %+v, want %+v", counts, want)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("team win counts[%d] = %+v, want %+v", i, counts[i], want[i])
		}
	}

	total, err := store.CountGames(ctx, "default", 8)
	if err != nil {
		t.Fatalf("count games: %v", err)
	}
	if total != 5 {
		t.Fatalf("count games = %d, want 5", total)
	}
}

func TestSizeCountsGroupsByGameSize(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	alice := mustResolve(t, store, storage.ByAccount("alice"))
	for _, size := range []int{12, 6, 6} {
		rec := storage.GameRecord{
			Mode:     "default",
			Size:     size,
			Started:  time.Now().UTC(),
			Finished: time.Now().UTC(),
			Winner:   "villagers",
			Players:  []storage.GameParticipant{{PlayerID: alice.PlayerID, Role: "villager"}},
		}
		if _, err := store.RecordGame(ctx, rec); err != nil {
			t.Fatalf("record game: %v", err)
		}
	}

	counts, err := store.SizeCounts(ctx, "default")
	if err != nil {
		t.Fatalf("size counts: %v", err)
	}
	want := []storage.SizeCount{{Size: 6, Games: 2}, {Size: 12, Games: 1}}
	if len(counts) != len(want) {
		t.Fatalf("size counts = %+v, want %+v", counts, want)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("size counts[%d] = %+v, want %+v", i, counts[i], want[i])
		}
	}

	modeTotal, err := store.CountGamesForMode(ctx, "default")
	if err != nil {
		t.Fatalf("count games for mode: %v", err)
	}
	if modeTotal != 3 {
		t.Fatalf("count games for mode = %d, want 3", modeTotal)
	}
}

func TestTotalGamesZeroPersonCountsZero(t *testing.T) {
	store := openTestStore(t)

	total, err := store.TotalGames(context.Background(), 0)
	if err != nil {
		t.Fatalf("total games: %v", err)
	}
	if total != 0 {
		t.Fatalf("total games = %d, want 0", total)
	}
}
