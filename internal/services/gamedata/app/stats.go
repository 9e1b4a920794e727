package app

import (
	"context"
	"errors"
	"math"

	"github.com/moonhollow/moonhollow/internal/services/gamedata/storage"
)

// RoleStatsReport summarizes one person's outcomes while holding one role.
// HasPlayed false means the identity has no recorded games at all; Games 0
// with HasPlayed true means they played but never held the role.
type RoleStatsReport struct {
	Name            string
	Role            string
	HasPlayed       bool
	Games           int64
	TeamWins        int64
	IndivWins       int64
	TeamWinPercent  int
	IndivWinPercent int
}

// PlayerTotalsReport summarizes one person's per-role game counts.
type PlayerTotalsReport struct {
	Name      string
	HasPlayed bool
	Games     int64
	Roles     []storage.RoleCount
}

// TeamStanding is one team's win count and rounded percentage for a game
// configuration.
type TeamStanding struct {
	Team    string
	Wins    int64
	Percent int
}

// GameStatsReport summarizes outcomes for one mode and size. Total 0 means
// no games were recorded for the configuration.
type GameStatsReport struct {
	Mode  string
	Size  int
	Total int64
	Teams []TeamStanding
}

// GameTotalsReport summarizes per-size game counts for one mode.
type GameTotalsReport struct {
	Mode  string
	Total int64
	Sizes []storage.SizeCount
}

// percent rounds 100*part/total to the nearest integer.
func percent(part, total int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// PlayerRoleStats reports a person's wins and totals as one role. Reads
// never create identities: an unknown identity reports HasPlayed false.
func (s *Service) PlayerRoleStats(ctx context.Context, account, hostmask, role string) (RoleStatsReport, error) {
	report := RoleStatsReport{Name: fallbackName(account, hostmask), Role: role}

	member, err := s.Resolve(ctx, account, hostmask, false)
	if err != nil {
		return RoleStatsReport{}, err
	}
	total, err := s.store.TotalGames(ctx, member.PersonID)
	if err != nil {
		return RoleStatsReport{}, err
	}
	if total == 0 {
		return report, nil
	}
	report.HasPlayed = true

	if name, err := s.store.DisplayName(ctx, member.PersonID); err == nil && name != "" {
		report.Name = name
	}

	stats, err := s.store.RoleStats(ctx, member.PersonID, role)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return report, nil
		}
		return RoleStatsReport{}, err
	}

	report.Games = stats.Total
	report.TeamWins = stats.TeamWins
	report.IndivWins = stats.IndivWins
	report.TeamWinPercent = percent(stats.TeamWins, stats.Total)
	report.IndivWinPercent = percent(stats.IndivWins, stats.Total)
	return report, nil
}

// PlayerTotals reports a person's per-role game counts: recognized roles in
// the canonical order first, remaining names alphabetically after.
func (s *Service) PlayerTotals(ctx context.Context, account, hostmask string) (PlayerTotalsReport, error) {
	report := PlayerTotalsReport{Name: fallbackName(account, hostmask)}

	member, err := s.Resolve(ctx, account, hostmask, false)
	if err != nil {
		return PlayerTotalsReport{}, err
	}
	total, err := s.store.TotalGames(ctx, member.PersonID)
	if err != nil {
		return PlayerTotalsReport{}, err
	}
	if total == 0 {
		return report, nil
	}
	report.HasPlayed = true
	report.Games = total

	if name, err := s.store.DisplayName(ctx, member.PersonID); err == nil && name != "" {
		report.Name = name
	}

	totals, err := s.store.RoleTotals(ctx, member.PersonID)
	if err != nil {
		return PlayerTotalsReport{}, err
	}

	byRole := make(map[string]int64, len(totals))
	for _, rc := range totals {
		byRole[rc.Role] = rc.Games
	}
	ordered := make([]storage.RoleCount, 0, len(totals))
	for _, role := range s.roleOrder {
		if games, ok := byRole[role]; ok {
			ordered = append(ordered, storage.RoleCount{Role: role, Games: games})
			delete(byRole, role)
		}
	}
	// Leftover specials and unrecognized roles keep the store's
	// alphabetical order.
	for _, rc := range totals {
		if _, ok := byRole[rc.Role]; ok {
			ordered = append(ordered, rc)
		}
	}
	report.Roles = ordered
	return report, nil
}

// GameStats reports team standings for one mode and size.
func (s *Service) GameStats(ctx context.Context, mode string, size int) (GameStatsReport, error) {
	report := GameStatsReport{Mode: mode, Size: size}

	total, err := s.store.CountGames(ctx, mode, size)
	if err != nil {
		return GameStatsReport{}, err
	}
	if total == 0 {
		return report, nil
	}
	report.Total = total

	counts, err := s.store.TeamWinCounts(ctx, mode, size)
	if err != nil {
		return GameStatsReport{}, err
	}
	for _, tc := range counts {
		report.Teams = append(report.Teams, TeamStanding{
			Team:    tc.Team,
			Wins:    tc.Games,
			Percent: percent(tc.Games, total),
		})
	}
	return report, nil
}

// GameTotals reports per-size game counts for one mode.
func (s *Service) GameTotals(ctx context.Context, mode string) (GameTotalsReport, error) {
	report := GameTotalsReport{Mode: mode}

	total, err := s.store.CountGamesForMode(ctx, mode)
	if err != nil {
		return GameTotalsReport{}, err
	}
	if total == 0 {
		return report, nil
	}
	report.Total = total

	sizes, err := s.store.SizeCounts(ctx, mode)
	if err != nil {
		return GameTotalsReport{}, err
	}
	report.Sizes = sizes
	return report, nil
}
