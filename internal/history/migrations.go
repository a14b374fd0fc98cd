// internal/history/migrations.go
package history

import (
	"context"
	"database/sql"
	"fmt"
)

// Manager handles schema versioning for the interaction log.
type Manager struct{}

const latestVersion = 2

func (m Manager) ensureTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL);`)
	if err != nil {
		return err
	}
	var count int
	_ = db.QueryRowContext(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&count)
	if count == 0 {
		_, err = db.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES(0)`)
	}
	return err
}

// Version reports the schema version currently applied.
func (m Manager) Version(ctx context.Context, db *sql.DB) (int, error) {
	if err := m.ensureTable(ctx, db); err != nil {
		return 0, err
	}
	var v int
	if err := db.QueryRowContext(ctx, `SELECT version FROM schema_migrations`).Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

func (m Manager) setVersion(ctx context.Context, db *sql.DB, v int) error {
	_, err := db.ExecContext(ctx, `UPDATE schema_migrations SET version=?`, v)
	return err
}

// UpToLatest applies any missing migrations in order.
func (m Manager) UpToLatest(ctx context.Context, db *sql.DB) error {
	current, err := m.Version(ctx, db)
	if err != nil {
		return err
	}
	for v := current + 1; v <= latestVersion; v++ {
		if err := m.up(ctx, db, v); err != nil {
			return fmt.Errorf("migrate up to v%d: %w", v, err)
		}
		if err := m.setVersion(ctx, db, v); err != nil {
			return err
		}
	}
	return nil
}

func (m Manager) up(ctx context.Context, db *sql.DB, v int) error {
	switch v {
	case 1:
		stmts := []string{
			`CREATE TABLE IF NOT EXISTS interactions (
                id TEXT PRIMARY KEY,
                session_id TEXT NOT NULL,
                persona TEXT NOT NULL,
                question TEXT NOT NULL,
                answer TEXT NOT NULL,
                sources TEXT,
                degraded INTEGER NOT NULL DEFAULT 0,
                elapsed_ms INTEGER NOT NULL DEFAULT 0,
                created_at TEXT NOT NULL
            );`,
			`CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at);`,
			`CREATE INDEX IF NOT EXISTS idx_interactions_session ON interactions(session_id);`,
		}
		for i, s := range stmts {
			if _, err := db.ExecContext(ctx, s); err != nil {
				return fmt.Errorf("v1 step %d: %w", i, err)
			}
		}
		return nil
	case 2:
		// records which chat model produced each answer
		_, err := db.ExecContext(ctx, `ALTER TABLE interactions ADD COLUMN model TEXT NOT NULL DEFAULT ''`)
		return err
	default:
		return fmt.Errorf("unknown migration version %d", v)
	}
}
