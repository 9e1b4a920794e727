package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/moonhollow/moonhollow/internal/services/gamedata/storage"
)

// Resolve maps a connection identity to its stable person and player ids.
// A miss with create=false returns storage.ErrNotFound and has no side
// effects. A miss with create=true inserts the player, its person and the
// person_player link atomically, so a failure never leaves an orphaned
// player behind.
func (s *Store) Resolve(ctx context.Context, id storage.Identity, create bool) (storage.Membership, error) {
	if err := ctx.Err(); err != nil {
		return storage.Membership{}, err
	}
	if err := s.ready(); err != nil {
		return storage.Membership{}, err
	}
	if id.Kind == 0 || id.Value == "" {
		return storage.Membership{}, storage.ErrNotFound
	}

	var member storage.Membership
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var txErr error
		member, txErr = s.resolveTx(ctx, tx, id, create)
		return txErr
	})
	if err != nil {
		return storage.Membership{}, err
	}
	return member, nil
}

// resolveTx is the lookup-or-create shared by every identity-resolving
// operation. It must run inside the caller's transaction.
func (s *Store) resolveTx(ctx context.Context, tx *sql.Tx, id storage.Identity, create bool) (storage.Membership, error) {
	if id.Kind == 0 || id.Value == "" {
		return storage.Membership{}, storage.ErrNotFound
	}

	var query string
	switch id.Kind {
	case storage.IdentityByAccount:
		query = `SELECT pe.id, pl.id
			 FROM player pl
			 JOIN person_player pp ON pp.player = pl.id
			 JOIN person pe ON pe.id = pp.person
			 WHERE pl.account = ? AND pl.hostmask IS NULL AND pl.active = 1`
	case storage.IdentityByHostmask:
		query = `SELECT pe.id, pl.id
			 FROM player pl
			 JOIN person_player pp ON pp.player = pl.id
			 JOIN person pe ON pe.id = pp.person
			 WHERE pl.account IS NULL AND pl.hostmask = ? AND pl.active = 1`
	default:
		return storage.Membership{}, fmt.Errorf("unknown identity kind %d", id.Kind)
	}

	var member storage.Membership
	err := tx.QueryRowContext(ctx, query, id.Value).Scan(&member.PersonID, &member.PlayerID)
	if err == nil {
		return member, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return storage.Membership{}, fmt.Errorf("resolve identity: %w", err)
	}
	if !create {
		return storage.Membership{}, storage.ErrNotFound
	}

	var account, hostmask sql.NullString
	switch id.Kind {
	case storage.IdentityByAccount:
		account = sql.NullString{String: id.Value, Valid: true}
	case storage.IdentityByHostmask:
		hostmask = sql.NullString{String: id.Value, Valid: true}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO player (account, hostmask, active) VALUES (?, ?, 1)`,
		account, hostmask)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.Membership{}, fmt.Errorf("create player: %w", storage.ErrAlreadyExists)
		}
		return storage.Membership{}, fmt.Errorf("create player: %w", err)
	}
	playerID, err := res.LastInsertId()
	if err != nil {
		return storage.Membership{}, fmt.Errorf("player id: %w", err)
	}

	res, err = tx.ExecContext(ctx,
		`INSERT INTO person (primary_player) VALUES (?)`, playerID)
	if err != nil {
		return storage.Membership{}, fmt.Errorf("create person: %w", err)
	}
	personID, err := res.LastInsertId()
	if err != nil {
		return storage.Membership{}, fmt.Errorf("person id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO person_player (person, player) VALUES (?, ?)`,
		personID, playerID); err != nil {
		return storage.Membership{}, fmt.Errorf("link person to player: %w", err)
	}

	return storage.Membership{PersonID: personID, PlayerID: playerID}, nil
}

// DisplayName returns the account or hostmask of a person's primary player.
// A zero person id yields an empty name without error.
func (s *Store) DisplayName(ctx context.Context, personID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.ready(); err != nil {
		return "", err
	}
	if personID == 0 {
		return "", nil
	}

	var name string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COALESCE(pl.account, pl.hostmask)
		 FROM person pe
		 JOIN player pl ON pl.id = pe.primary_player
		 WHERE pe.id = ?`, personID).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("display name: %w", err)
	}
	return name, nil
}
