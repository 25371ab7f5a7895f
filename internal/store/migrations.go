package store

import (
	"context"
	"database/sql"
	"strings"
)

// schema contains the DDL for all tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id            TEXT PRIMARY KEY,
		input_name    TEXT NOT NULL,
		machine_count INTEGER NOT NULL,
		job_count     INTEGER NOT NULL,
		seed          TEXT NOT NULL DEFAULT '',
		config        TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL DEFAULT 'RUNNING',
		upper_bound   INTEGER NOT NULL DEFAULT 0,
		lower_bound   INTEGER NOT NULL DEFAULT 0,
		started_at    TEXT NOT NULL,
		finished_at   TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS solutions (
		run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		rank       INTEGER NOT NULL,
		c_max      INTEGER NOT NULL,
		algorithms TEXT NOT NULL,
		config     TEXT NOT NULL DEFAULT '',
		schedule   TEXT NOT NULL DEFAULT '[]',
		PRIMARY KEY (run_id, rank)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_input_name ON runs(input_name)`,
}

// alterStatements are column additions that need special handling since
// SQLite doesn't support IF NOT EXISTS for ALTER TABLE ADD COLUMN.
var alterStatements = []struct {
	table    string
	column   string
	alterSQL string
	indexSQL string // Optional index to create after column is added
}{
	{
		table:    "runs",
		column:   "known_optimum",
		alterSQL: "ALTER TABLE runs ADD COLUMN known_optimum INTEGER NOT NULL DEFAULT 0",
	},
	{
		table:    "solutions",
		column:   "created_at",
		alterSQL: "ALTER TABLE solutions ADD COLUMN created_at TEXT NOT NULL DEFAULT ''",
		indexSQL: "CREATE INDEX IF NOT EXISTS idx_solutions_c_max ON solutions(c_max)",
	},
}

// migrate executes all schema DDL statements, alter migrations, and post-migration indexes.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	for _, alter := range alterStatements {
		if err := addColumnIfNotExists(ctx, db, alter.table, alter.column, alter.alterSQL); err != nil {
			return err
		}
		if alter.indexSQL != "" {
			if _, err := db.ExecContext(ctx, alter.indexSQL); err != nil {
				return err
			}
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(ctx context.Context, db *sql.DB, table, column, alterSQL string) error {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue *string
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, column) {
			return nil // Column already exists
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, alterSQL)
	return err
}
