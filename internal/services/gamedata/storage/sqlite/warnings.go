package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/moonhollow/moonhollow/internal/services/gamedata/storage"
)

// AddWarning inserts one moderation warning and returns its id. Issued is
// stamped with the store clock; a zero Expires persists as never-expiring.
// Sender 0 records a system-issued warning.
func (s *Store) AddWarning(ctx context.Context, w storage.Warning) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}
	if w.Target == 0 {
		return 0, fmt.Errorf("warning target is required")
	}

	var sender sql.NullInt64
	if w.Sender != 0 {
		sender = sql.NullInt64{Int64: w.Sender, Valid: true}
	}
	var expires sql.NullInt64
	if !w.Expires.IsZero() {
		expires = sql.NullInt64{Int64: toMillis(w.Expires), Valid: true}
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO warning (target, sender, amount, issued, expires, reason, notes, acknowledged)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.Target, sender, w.Amount, toMillis(s.now()), expires, w.Reason, w.Notes, w.Acknowledged)
	if err != nil {
		return 0, fmt.Errorf("insert warning: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("warning id: %w", err)
	}
	return id, nil
}

// AddWarningSanction attaches one enforcement action to a warning.
func (s *Store) AddWarningSanction(ctx context.Context, warningID int64, sanction, data string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if warningID == 0 {
		return fmt.Errorf("warning id is required")
	}
	if sanction == "" {
		return fmt.Errorf("sanction kind is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO warning_sanction (warning, sanction, data) VALUES (?, ?, ?)`,
		warningID, sanction, data); err != nil {
		return fmt.Errorf("insert warning sanction: %w", err)
	}
	return nil
}

// AcknowledgeWarning marks one warning as acknowledged.
func (s *Store) AcknowledgeWarning(ctx context.Context, warningID int64) error {
	return s.updateWarningFlag(ctx, warningID, "acknowledged")
}

// DeleteWarning soft-deletes one warning. Warnings are never physically
// removed.
func (s *Store) DeleteWarning(ctx context.Context, warningID int64) error {
	return s.updateWarningFlag(ctx, warningID, "deleted")
}

func (s *Store) updateWarningFlag(ctx context.Context, warningID int64, column string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	// column is one of the two fixed names above, never caller input.
	res, err := s.sqlDB.ExecContext(ctx,
		fmt.Sprintf(`UPDATE warning SET %s = 1 WHERE id = ?`, column), warningID)
	if err != nil {
		return fmt.Errorf("update warning %s: %w", column, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update warning %s: %w", column, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// WarningPoints sums the severity of a person's currently-active warnings.
// The active predicate is recomputed at call time; an unknown person sums
// to zero.
func (s *Store) WarningPoints(ctx context.Context, personID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}
	if personID == 0 {
		return 0, nil
	}

	var points int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0)
		 FROM warning
		 WHERE target = ?
		   AND deleted = 0
		   AND (expires IS NULL OR expires > ?)`,
		personID, toMillis(s.now())).Scan(&points)
	if err != nil {
		return 0, fmt.Errorf("warning points: %w", err)
	}
	return points, nil
}

// DeniedCommands returns the distinct commands denied by sanctions on a
// person's currently-active warnings, sorted for deterministic output.
func (s *Store) DeniedCommands(ctx context.Context, personID int64) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	if personID == 0 {
		return nil, nil
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT DISTINCT ws.data
		 FROM warning w
		 JOIN warning_sanction ws ON ws.warning = w.id
		 WHERE ws.sanction = ?
		   AND w.target = ?
		   AND w.deleted = 0
		   AND (w.expires IS NULL OR w.expires > ?)
		 ORDER BY ws.data ASC`,
		storage.SanctionDenyCommand, personID, toMillis(s.now()))
	if err != nil {
		return nil, fmt.Errorf("denied commands: %w", err)
	}
	defer rows.Close()

	var commands []string
	for rows.Next() {
		var cmd string
		if err := rows.Scan(&cmd); err != nil {
			return nil, fmt.Errorf("denied commands: %w", err)
		}
		commands = append(commands, cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("denied commands: %w", err)
	}
	return commands, nil
}

// ListWarnings returns warnings newest-issued-first, joined to target and
// sender display names. See storage.WarningQuery for filtering and paging.
func (s *Store) ListWarnings(ctx context.Context, q storage.WarningQuery) ([]storage.WarningRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	now := toMillis(s.now())
	query := `SELECT
		    w.id,
		    COALESCE(plt.account, plt.hostmask) AS target,
		    COALESCE(pls.account, pls.hostmask, ?) AS sender,
		    w.amount,
		    w.issued,
		    w.expires,
		    CASE WHEN w.expires IS NOT NULL AND w.expires <= ? THEN 1 ELSE 0 END AS expired,
		    w.acknowledged,
		    w.deleted,
		    w.reason,
		    COALESCE(w.notes, '')
		  FROM warning w
		  JOIN person pet ON pet.id = w.target
		  JOIN player plt ON plt.id = pet.primary_player
		  LEFT JOIN person pes ON pes.id = w.sender
		  LEFT JOIN player pls ON pls.id = pes.primary_player`
	args := []any{q.FallbackSender, now}

	where := ""
	if q.Target != 0 {
		where = " WHERE w.target = ?"
		args = append(args, q.Target)
	}
	if !q.All {
		if where == "" {
			where = " WHERE"
		} else {
			where += " AND"
		}
		where += " w.deleted = 0 AND (w.expires IS NULL OR w.expires > ?)"
		args = append(args, now)
	}
	query += where + " ORDER BY w.issued DESC"
	if q.Show > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Show, q.Skip)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list warnings: %w", err)
	}
	defer rows.Close()

	var records []storage.WarningRecord
	for rows.Next() {
		var (
			rec     storage.WarningRecord
			issued  int64
			expires sql.NullInt64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.TargetName,
			&rec.SenderName,
			&rec.Amount,
			&issued,
			&expires,
			&rec.Expired,
			&rec.Acknowledged,
			&rec.Deleted,
			&rec.Reason,
			&rec.Notes,
		); err != nil {
			return nil, fmt.Errorf("list warnings: %w", err)
		}
		rec.Issued = fromMillis(issued)
		if expires.Valid {
			rec.Expires = fromMillis(expires.Int64)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list warnings: %w", err)
	}
	return records, nil
}

// AccessFlags resolves a person's effective permission flags: the person's
// own access flags, falling back one level to its template's flags.
// storage.ErrNotFound means the person has no access row at all.
func (s *Store) AccessFlags(ctx context.Context, personID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.ready(); err != nil {
		return "", err
	}
	if personID == 0 {
		return "", storage.ErrNotFound
	}

	var flags sql.NullString
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COALESCE(a.flags, at.flags)
		 FROM access a
		 LEFT JOIN access_template at ON at.id = a.template
		 WHERE a.person = ?`, personID).Scan(&flags)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("access flags: %w", err)
	}
	return flags.String, nil
}

// SetAccess sets a person's access row. templateID 0 clears the template
// link; empty flags store as unset so the template fallback applies.
func (s *Store) SetAccess(ctx context.Context, personID, templateID int64, flags string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if personID == 0 {
		return fmt.Errorf("person id is required")
	}

	var tmpl sql.NullInt64
	if templateID != 0 {
		tmpl = sql.NullInt64{Int64: templateID, Valid: true}
	}
	var f sql.NullString
	if flags != "" {
		f = sql.NullString{String: flags, Valid: true}
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO access (person, template, flags) VALUES (?, ?, ?)
		 ON CONFLICT(person) DO UPDATE SET template = excluded.template, flags = excluded.flags`,
		personID, tmpl, f); err != nil {
		return fmt.Errorf("set access: %w", err)
	}
	return nil
}

// AddAccessTemplate creates a named access template and returns its id.
func (s *Store) AddAccessTemplate(ctx context.Context, name, flags string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}
	if name == "" {
		return 0, fmt.Errorf("template name is required")
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO access_template (name, flags) VALUES (?, ?)`, name, flags)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("add access template: %w", storage.ErrAlreadyExists)
		}
		return 0, fmt.Errorf("add access template: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("access template id: %w", err)
	}
	return id, nil
}
