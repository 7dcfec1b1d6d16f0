package store

import (
	"context"
	"database/sql"
	"fmt"
)

// createJobsTable matches the table the scrapers write to. Enrichment
// columns are nullable; status starts as 'new'.
const createJobsTable = `CREATE TABLE IF NOT EXISTS jobs (
	id                   TEXT PRIMARY KEY,
	title                TEXT NOT NULL,
	company              TEXT NOT NULL,
	url                  TEXT UNIQUE NOT NULL,
	description          TEXT,
	source               TEXT,
	status               TEXT DEFAULT 'new',
	location             TEXT,
	country              TEXT,
	work_type            TEXT,
	salary               TEXT,
	salary_min           INTEGER,
	salary_max           INTEGER,
	currency             TEXT,
	experience_level     TEXT,
	job_type             TEXT,
	summary              TEXT,
	mandatory_skills     TEXT,
	preferred_skills     TEXT,
	posted_date          TEXT,
	requires_citizenship INTEGER DEFAULT 0,
	no_visa_sponsorship  INTEGER DEFAULT 0,
	enriched_at          TEXT,
	created_at           DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// enrichmentColumns are added to older tables that predate them.
var enrichmentColumns = []struct{ name, decl string }{
	{"location", "TEXT"},
	{"country", "TEXT"},
	{"summary", "TEXT"},
	{"work_type", "TEXT"},
	{"salary_min", "INTEGER"},
	{"salary_max", "INTEGER"},
	{"currency", "TEXT"},
	{"experience_level", "TEXT"},
	{"job_type", "TEXT"},
	{"mandatory_skills", "TEXT"},
	{"preferred_skills", "TEXT"},
	{"posted_date", "TEXT"},
	{"requires_citizenship", "INTEGER DEFAULT 0"},
	{"no_visa_sponsorship", "INTEGER DEFAULT 0"},
	{"enriched_at", "TEXT"},
}

// EnsureSchema creates the jobs table if needed and adds any enrichment
// column an existing table is missing. It never drops or rewrites data.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	return s.withDB(ctx, func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, createJobsTable); err != nil {
			return fmt.Errorf("creating jobs table: %w", err)
		}

		existing, err := tableColumns(ctx, db, "jobs")
		if err != nil {
			return err
		}
		for _, col := range enrichmentColumns {
			if existing[col.name] {
				continue
			}
			stmt := fmt.Sprintf("ALTER TABLE jobs ADD COLUMN %s %s", col.name, col.decl)
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("adding column %s: %w", col.name, err)
			}
		}

		if _, err := db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)"); err != nil {
			return fmt.Errorf("creating status index: %w", err)
		}
		return nil
	})
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning column name: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
