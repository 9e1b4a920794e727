package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/moonhollow/moonhollow/internal/services/gamedata/storage"
)

// RecordGame inserts one completed game with all participant and role rows
// in a single transaction: either the full game persists or none of it does.
// It returns the new game id.
func (s *Store) RecordGame(ctx context.Context, rec storage.GameRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}
	if rec.Mode == "" {
		return 0, fmt.Errorf("game mode is required")
	}
	if len(rec.Players) == 0 {
		return 0, fmt.Errorf("player list is required")
	}
	for _, p := range rec.Players {
		if p.PlayerID == 0 {
			return 0, fmt.Errorf("participant player id is required")
		}
		if p.Role == "" {
			return 0, fmt.Errorf("participant role is required")
		}
	}

	var winner sql.NullString
	if rec.Winner != "" {
		winner = sql.NullString{String: rec.Winner, Valid: true}
	}

	var gameID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO game (gamemode, options, started, finished, gamesize, winner)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.Mode, rec.Options, toMillis(rec.Started), toMillis(rec.Finished), rec.Size, winner)
		if err != nil {
			return fmt.Errorf("insert game: %w", err)
		}
		gameID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("game id: %w", err)
		}

		for _, p := range rec.Players {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO game_player (game, player, team_win, indiv_win, dced)
				 VALUES (?, ?, ?, ?, ?)`,
				gameID, p.PlayerID, p.TeamWin, p.IndivWin, p.Disconnected)
			if err != nil {
				return fmt.Errorf("insert game player: %w", err)
			}
			gpID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("game player id: %w", err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO game_player_role (game_player, role, special) VALUES (?, ?, 0)`,
				gpID, p.Role); err != nil {
				return fmt.Errorf("insert primary role: %w", err)
			}
			for _, tpl := range p.Templates {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO game_player_role (game_player, role, special) VALUES (?, ?, 0)`,
					gpID, tpl); err != nil {
					return fmt.Errorf("insert template role: %w", err)
				}
			}
			for _, sq := range p.Specials {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO game_player_role (game_player, role, special) VALUES (?, ?, 1)`,
					gpID, sq); err != nil {
					return fmt.Errorf("insert special quality: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return gameID, nil
}

// TotalGames counts the distinct games a person participated in across all
// of their linked players. A zero person id counts zero games.
func (s *Store) TotalGames(ctx context.Context, personID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}
	if personID == 0 {
		return 0, nil
	}

	var total int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT gp.game)
		 FROM person pe
		 JOIN person_player pmap ON pmap.person = pe.id
		 JOIN game_player gp ON gp.player = pmap.player
		 WHERE pe.id = ?`, personID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total games: %w", err)
	}
	return total, nil
}

// RoleStats aggregates one person's outcomes while holding one role,
// across every player linked to the person. storage.ErrNotFound means the
// person never held the role.
func (s *Store) RoleStats(ctx context.Context, personID int64, role string) (storage.RoleStats, error) {
	if err := ctx.Err(); err != nil {
		return storage.RoleStats{}, err
	}
	if err := s.ready(); err != nil {
		return storage.RoleStats{}, err
	}

	var stats storage.RoleStats
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT gpr.role, SUM(gp.team_win), SUM(gp.indiv_win), COUNT(1)
		 FROM person pe
		 JOIN person_player pmap ON pmap.person = pe.id
		 JOIN game_player gp ON gp.player = pmap.player
		 JOIN game_player_role gpr ON gpr.game_player = gp.id AND gpr.role = ?
		 WHERE pe.id = ?
		 GROUP BY gpr.role`, role, personID).
		Scan(&stats.Role, &stats.TeamWins, &stats.IndivWins, &stats.Total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.RoleStats{}, storage.ErrNotFound
		}
		return storage.RoleStats{}, fmt.Errorf("role stats: %w", err)
	}
	return stats, nil
}

// RoleTotals counts games per role (and special quality) for one person,
// ordered by role name for deterministic output.
func (s *Store) RoleTotals(ctx context.Context, personID int64) ([]storage.RoleCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT gpr.role, COUNT(1)
		 FROM person pe
		 JOIN person_player pmap ON pmap.person = pe.id
		 JOIN game_player gp ON gp.player = pmap.player
		 JOIN game_player_role gpr ON gpr.game_player = gp.id
		 WHERE pe.id = ?
		 GROUP BY gpr.role
		 ORDER BY gpr.role ASC`, personID)
	if err != nil {
		return nil, fmt.Errorf("role totals: %w", err)
	}
	defer rows.Close()

	var totals []storage.RoleCount
	for rows.Next() {
		var rc storage.RoleCount
		if err := rows.Scan(&rc.Role, &rc.Games); err != nil {
			return nil, fmt.Errorf("role totals: %w", err)
		}
		totals = append(totals, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("role totals: %w", err)
	}
	return totals, nil
}

// CountGames counts recorded games for one mode and size.
func (s *Store) CountGames(ctx context.Context, mode string, size int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}

	var total int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM game WHERE gamemode = ? AND gamesize = ?`,
		mode, size).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return total, nil
}

// CountGamesForMode counts recorded games for one mode across all sizes.
func (s *Store) CountGamesForMode(ctx context.Context, mode string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}

	var total int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM game WHERE gamemode = ?`, mode).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count games for mode: %w", err)
	}
	return total, nil
}

// TeamWinCounts buckets winners for one mode and size. Individual winners
// (the "@<playerid>" encoding) collapse into a single "fools" bucket.
// Villagers order first, then wolves, then remaining teams by name.
func (s *Store) TeamWinCounts(ctx context.Context, mode string, size int) ([]storage.TeamCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT
		   CASE substr(winner, 1, 1) WHEN '@' THEN 'fools' ELSE winner END AS team,
		   COUNT(1) AS games,
		   CASE winner WHEN 'villagers' THEN 0 WHEN 'wolves' THEN 1 ELSE 2 END AS ord
		 FROM game
		 WHERE gamemode = ? AND gamesize = ? AND winner IS NOT NULL
		 GROUP BY team
		 ORDER BY ord ASC, team ASC`, mode, size)
	if err != nil {
		return nil, fmt.Errorf("team win counts: %w", err)
	}
	defer rows.Close()

	var counts []storage.TeamCount
	for rows.Next() {
		var tc storage.TeamCount
		var ord int
		if err := rows.Scan(&tc.Team, &tc.Games, &ord); err != nil {
			return nil, fmt.Errorf("team win counts: %w", err)
		}
		counts = append(counts, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("team win counts: %w", err)
	}
	return counts, nil
}

// SizeCounts counts recorded games per game size for one mode, smallest
// size first.
func (s *Store) SizeCounts(ctx context.Context, mode string) ([]storage.SizeCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT gamesize, COUNT(1)
		 FROM game
		 WHERE gamemode = ?
		 GROUP BY gamesize
		 ORDER BY gamesize ASC`, mode)
	if err != nil {
		return nil, fmt.Errorf("size counts: %w", err)
	}
	defer rows.Close()

	var counts []storage.SizeCount
	for rows.Next() {
		var sc storage.SizeCount
		if err := rows.Scan(&sc.Size, &sc.Games); err != nil {
			return nil, fmt.Errorf("size counts: %w", err)
		}
		counts = append(counts, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("size counts: %w", err)
	}
	return counts, nil
}
