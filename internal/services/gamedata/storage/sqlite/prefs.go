package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/moonhollow/moonhollow/internal/services/gamedata/storage"
)

// Person-level preference columns. Toggles and setters only ever touch this
// fixed set; callers cannot supply column names.
const (
	prefSimple   = "simple"
	prefNotice   = "notice"
	prefDeadchat = "deadchat"
	prefPingIf   = "pingif"
	prefStasis   = "stasis_amount"
)

// ToggleSimple flips the simplified-notification preference, creating the
// identity when it has never been seen. It returns the new value.
func (s *Store) ToggleSimple(ctx context.Context, id storage.Identity) (bool, error) {
	return s.toggleFlag(ctx, id, prefSimple)
}

// ToggleNotice flips the prefer-notice preference and returns the new value.
func (s *Store) ToggleNotice(ctx context.Context, id storage.Identity) (bool, error) {
	return s.toggleFlag(ctx, id, prefNotice)
}

// ToggleDeadchat flips the deadchat preference and returns the new value.
func (s *Store) ToggleDeadchat(ctx context.Context, id storage.Identity) (bool, error) {
	return s.toggleFlag(ctx, id, prefDeadchat)
}

// SetPingInterval sets the ping-threshold preference; a value of zero or
// less clears it.
func (s *Store) SetPingInterval(ctx context.Context, id storage.Identity, value int) error {
	var v sql.NullInt64
	if value > 0 {
		v = sql.NullInt64{Int64: int64(value), Valid: true}
	}
	return s.setValue(ctx, id, prefPingIf, v)
}

// SetStasis sets the stasis penalty counter.
func (s *Store) SetStasis(ctx context.Context, id storage.Identity, amount int) error {
	return s.setValue(ctx, id, prefStasis, sql.NullInt64{Int64: int64(amount), Valid: true})
}

// toggleFlag resolves the identity (creating it if needed) and flips the
// named boolean column, all in one transaction.
func (s *Store) toggleFlag(ctx context.Context, id storage.Identity, column string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.ready(); err != nil {
		return false, err
	}

	var value bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		member, err := s.resolveTx(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE person SET %s = CASE %s WHEN 1 THEN 0 ELSE 1 END WHERE id = ?`, column, column),
			member.PersonID); err != nil {
			return fmt.Errorf("toggle %s: %w", column, err)
		}
		if err := tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT %s FROM person WHERE id = ?`, column),
			member.PersonID).Scan(&value); err != nil {
			return fmt.Errorf("read %s: %w", column, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return value, nil
}

func (s *Store) setValue(ctx context.Context, id storage.Identity, column string, value sql.NullInt64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		member, err := s.resolveTx(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE person SET %s = ? WHERE id = ?`, column),
			value, member.PersonID); err != nil {
			return fmt.Errorf("set %s: %w", column, err)
		}
		return nil
	})
}

// ListPreferences scans every active player's person-level preference state.
// It backs the one-time startup cache hydration and is not meant to run
// interleaved with steady-state writers.
func (s *Store) ListPreferences(ctx context.Context) ([]storage.PreferenceRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT
		   COALESCE(pl.account, ''),
		   COALESCE(pl.hostmask, ''),
		   pe.notice,
		   pe.simple,
		   pe.deadchat,
		   COALESCE(pe.pingif, 0),
		   pe.stasis_amount
		 FROM person pe
		 JOIN person_player pp ON pp.person = pe.id
		 JOIN player pl ON pl.id = pp.player
		 WHERE pl.active = 1`)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	var prefs []storage.PreferenceRow
	for rows.Next() {
		var row storage.PreferenceRow
		if err := rows.Scan(
			&row.Account,
			&row.Hostmask,
			&row.Notice,
			&row.Simple,
			&row.Deadchat,
			&row.PingInterval,
			&row.Stasis,
		); err != nil {
			return nil, fmt.Errorf("list preferences: %w", err)
		}
		prefs = append(prefs, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	return prefs, nil
}
