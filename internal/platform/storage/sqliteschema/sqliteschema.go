// Package sqliteschema applies versioned SQLite schema lifecycle scripts.
//
// A store's schema state is tracked with PRAGMA user_version. A fresh
// database runs the install script and is stamped at the current version
// directly. An existing database that still reads version 0 carries the
// legacy schema: it runs install followed by the one-time migrate script.
// Databases below the current version run the pending additive upgrade
// steps. Databases above the current version are rejected so a process
// never writes through a schema it does not understand.
package sqliteschema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownVersion indicates the persisted schema version has no known
// lifecycle path in this build.
var ErrUnknownVersion = errors.New("unknown schema version")

// Scripts holds the lifecycle SQL for one store.
type Scripts struct {
	// Install creates the full current schema.
	Install string
	// Migrate copies forward data from the legacy (version 0) schema.
	// It runs at most once, immediately after Install.
	Migrate string
	// Upgrades holds additive steps; Upgrades[n] moves version n+1 to n+2.
	Upgrades []string
}

// Apply brings db to the current schema version. Each lifecycle phase runs
// in a single transaction with the version stamp as its last statement, so
// a failed script never leaves the store marked at a version it does not
// satisfy. fresh reports whether the backing file did not exist before the
// database handle was opened.
func Apply(ctx context.Context, db *sql.DB, scripts Scripts, current int, fresh bool) error {
	if db == nil {
		return fmt.Errorf("sql db is required")
	}
	if current < 1 {
		return fmt.Errorf("current schema version must be at least 1")
	}

	if fresh {
		return runPhase(ctx, db, "install", current, scripts.Install)
	}

	version, err := readVersion(ctx, db)
	if err != nil {
		return err
	}

	switch {
	case version == current:
		return nil
	case version == 0:
		// Legacy store predating the version stamp: install the current
		// schema, then copy forward what the migrate script selects.
		return runPhase(ctx, db, "migrate", current, scripts.Install, scripts.Migrate)
	case version > current:
		return fmt.Errorf("%w: store at version %d, build supports %d", ErrUnknownVersion, version, current)
	case len(scripts.Upgrades) < current-1:
		return fmt.Errorf("%w: no upgrade path from version %d", ErrUnknownVersion, version)
	default:
		return runPhase(ctx, db, "upgrade", current, scripts.Upgrades[version-1:current-1]...)
	}
}

func runPhase(ctx context.Context, db *sql.DB, phase string, stamp int, statements ...string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s transaction: %w", phase, err)
	}
	defer tx.Rollback()

	for _, script := range statements {
		if strings.TrimSpace(script) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, script); err != nil {
			if !IsAlreadyExistsError(err) {
				return fmt.Errorf("exec %s script: %w", phase, err)
			}
		}
	}

	// PRAGMA does not support bind parameters; stamp is an int under our control.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", stamp)); err != nil {
		return fmt.Errorf("stamp %s version: %w", phase, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", phase, err)
	}
	return nil
}

func readVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// IsAlreadyExistsError reports whether this error indicates idempotent DDL success.
func IsAlreadyExistsError(err error) bool {
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "already exists") || strings.Contains(value, "duplicate column name")
}
