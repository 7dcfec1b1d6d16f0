package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/amishk599/jobenricher/internal/model"
)

// ErrNotFound is returned when a job id does not exist.
var ErrNotFound = errors.New("job not found")

var _ model.JobStore = (*SQLiteStore)(nil)

// Options tunes a SQLiteStore.
type Options struct {
	BusyTimeout time.Duration
	Schema      model.Schema
	// KeepDescriptionOnFailure also writes the fetched text when the model
	// step failed. Off by default: a minimal result only touches status and
	// enriched_at.
	KeepDescriptionOnFailure bool
}

// SQLiteStore reads and updates the jobs table. Every operation opens its own
// database handle and closes it before returning, so no connection or lock
// is held while a job is being fetched or analyzed.
type SQLiteStore struct {
	dsn             string
	schema          model.Schema
	keepDescription bool
	now             func() time.Time
}

// NewSQLiteStore checks that the database at dbPath can be opened.
func NewSQLiteStore(dbPath string, opts Options) (*SQLiteStore, error) {
	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	schema := opts.Schema
	if schema == "" {
		schema = model.SchemaBasic
	}

	s := &SQLiteStore{
		dsn:             fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", dbPath, busy.Milliseconds()),
		schema:          schema,
		keepDescription: opts.KeepDescriptionOnFailure,
		now:             time.Now,
	}

	// Verify the database is reachable.
	if err := s.withDB(context.Background(), func(*sql.DB) error { return nil }); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) withDB(ctx context.Context, fn func(db *sql.DB) error) error {
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return fmt.Errorf("opening sqlite db: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging sqlite db: %w", err)
	}
	return fn(db)
}

// FetchPending returns up to limit jobs with status 'new', in insertion order.
// Only the columns needed for enrichment are populated.
func (s *SQLiteStore) FetchPending(ctx context.Context, limit int) ([]model.Job, error) {
	var jobs []model.Job
	err := s.withDB(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `SELECT id, title, company, url, COALESCE(source, '')
			FROM jobs WHERE status = ? ORDER BY rowid LIMIT ?`, string(model.StatusNew), limit)
		if err != nil {
			return fmt.Errorf("querying pending jobs: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			j := model.Job{Status: model.StatusNew}
			if err := rows.Scan(&j.ID, &j.Title, &j.Company, &j.URL, &j.Source); err != nil {
				return fmt.Errorf("scanning pending job: %w", err)
			}
			jobs = append(jobs, j)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// PersistResult moves a job to 'enriched'. With ext, every enrichment column
// is written in the same statement; without it only status and enriched_at
// change. Calling it again overwrites the previous values.
func (s *SQLiteStore) PersistResult(ctx context.Context, jobID string, ext *model.Extraction, description string) error {
	enrichedAt := s.now().UTC().Format(time.RFC3339Nano)

	var (
		query string
		args  []any
	)
	switch {
	case ext != nil:
		query, args = s.fullUpdate(jobID, ext, description, enrichedAt)
	case s.keepDescription && description != "":
		query = `UPDATE jobs SET status = ?, description = ?, enriched_at = ? WHERE id = ?`
		args = []any{string(model.StatusEnriched), description, enrichedAt, jobID}
	default:
		query = `UPDATE jobs SET status = ?, enriched_at = ? WHERE id = ?`
		args = []any{string(model.StatusEnriched), enrichedAt, jobID}
	}

	return s.withDB(ctx, func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("persisting result for %s: %w", jobID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("persisting result for %s: %w", jobID, err)
		}
		if n == 0 {
			return fmt.Errorf("persisting result for %s: %w", jobID, ErrNotFound)
		}
		return nil
	})
}

func (s *SQLiteStore) fullUpdate(jobID string, ext *model.Extraction, description, enrichedAt string) (string, []any) {
	sets := []string{
		"status = ?", "location = ?", "description = ?", "summary = ?",
		"requires_citizenship = ?", "no_visa_sponsorship = ?", "enriched_at = ?",
	}
	args := []any{
		string(model.StatusEnriched), ext.Location, description, ext.Summary,
		boolInt(ext.RequiresCitizenship), boolInt(ext.NoVisaSponsorship), enrichedAt,
	}

	if s.schema == model.SchemaExtended && ext.Details != nil {
		d := ext.Details
		sets = append(sets,
			"salary_min = ?", "salary_max = ?", "currency = ?", "work_type = ?", "job_type = ?",
			"experience_level = ?", "posted_date = ?", "mandatory_skills = ?", "preferred_skills = ?",
		)
		args = append(args,
			nullInt(d.SalaryMin), nullInt(d.SalaryMax), nullString(d.Currency), string(d.WorkType),
			nullString(d.JobType), nullString(d.ExperienceLevel), nullDate(d.PostedDate),
			skillsJSON(d.MandatorySkills), skillsJSON(d.PreferredSkills),
		)
	}

	query := "UPDATE jobs SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	return query, append(args, jobID)
}

const jobColumns = `id, title, company, url, COALESCE(source, ''), COALESCE(status, 'new'),
	location, description, summary, country,
	COALESCE(requires_citizenship, 0), COALESCE(no_visa_sponsorship, 0), enriched_at,
	salary_min, salary_max, currency, work_type, job_type, experience_level, posted_date,
	mandatory_skills, preferred_skills`

// Get returns a single job by id.
func (s *SQLiteStore) Get(ctx context.Context, jobID string) (*model.Job, error) {
	var job *model.Job
	err := s.withDB(ctx, func(db *sql.DB) error {
		row := db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", jobID)
		j, err := s.scanJob(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("loading job %s: %w", jobID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("loading job %s: %w", jobID, err)
		}
		job = &j
		return nil
	})
	return job, err
}

// ListEnriched returns enriched jobs, most recently enriched first. A
// non-positive limit returns all of them.
func (s *SQLiteStore) ListEnriched(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	var jobs []model.Job
	err := s.withDB(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, "SELECT "+jobColumns+` FROM jobs
			WHERE status = ? ORDER BY enriched_at DESC, rowid DESC LIMIT ?`, string(model.StatusEnriched), limit)
		if err != nil {
			return fmt.Errorf("querying enriched jobs: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			j, err := s.scanJob(rows)
			if err != nil {
				return fmt.Errorf("scanning enriched job: %w", err)
			}
			jobs = append(jobs, j)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// Stats summarises the queue.
type Stats struct {
	Total    int
	New      int
	Enriched int
	// WithData counts enriched jobs that received a model summary, i.e. went
	// through the full chain.
	WithData int
}

// Stats counts jobs by state.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.withDB(ctx, func(db *sql.DB) error {
		err := db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'new' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'enriched' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'enriched' AND summary IS NOT NULL THEN 1 ELSE 0 END), 0)
			FROM jobs`).Scan(&st.Total, &st.New, &st.Enriched, &st.WithData)
		if err != nil {
			return fmt.Errorf("counting jobs: %w", err)
		}
		return nil
	})
	return st, err
}

// AddJob inserts a new pending job with a generated id. A job whose URL is
// already stored is left alone and reported with inserted = false.
func (s *SQLiteStore) AddJob(ctx context.Context, job model.Job) (id string, inserted bool, err error) {
	id = job.ID
	if id == "" {
		id = uuid.NewString()
	}
	err = s.withDB(ctx, func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO jobs (id, title, company, url, source, status)
			VALUES (?, ?, ?, ?, ?, ?)`, id, job.Title, job.Company, job.URL, nullString(job.Source), string(model.StatusNew))
		if err != nil {
			return fmt.Errorf("adding job %s: %w", job.URL, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("adding job %s: %w", job.URL, err)
		}
		inserted = n > 0
		return nil
	})
	return id, inserted, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanJob(row rowScanner) (model.Job, error) {
	var (
		j                                          model.Job
		status                                     string
		location, description, summary, country    sql.NullString
		requiresCitizenship, noVisa                int64
		enrichedAt                                 sql.NullString
		salaryMin, salaryMax                       sql.NullInt64
		currency, workType, jobType, level, posted sql.NullString
		mandatory, preferred                       sql.NullString
	)
	err := row.Scan(&j.ID, &j.Title, &j.Company, &j.URL, &j.Source, &status,
		&location, &description, &summary, &country,
		&requiresCitizenship, &noVisa, &enrichedAt,
		&salaryMin, &salaryMax, &currency, &workType, &jobType, &level, &posted,
		&mandatory, &preferred)
	if err != nil {
		return model.Job{}, err
	}

	j.Status = model.Status(status)
	j.Location = location.String
	j.Description = description.String
	j.Summary = summary.String
	j.Country = country.String
	j.RequiresCitizenship = requiresCitizenship != 0
	j.NoVisaSponsorship = noVisa != 0
	j.EnrichedAt = parseTimestamp(enrichedAt)

	if s.schema == model.SchemaExtended {
		j.Details = &model.JobDetails{
			SalaryMin:       int64Ptr(salaryMin),
			SalaryMax:       int64Ptr(salaryMax),
			Currency:        currency.String,
			WorkType:        model.WorkType(workType.String),
			JobType:         jobType.String,
			ExperienceLevel: level.String,
			PostedDate:      parseDate(posted),
			MandatorySkills: parseSkills(mandatory),
			PreferredSkills: parseSkills(preferred),
		}
	}
	return j, nil
}

// IsTransient reports whether err is a lock contention error worth retrying.
func IsTransient(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.DateOnly)
}

func skillsJSON(skills []string) any {
	if skills == nil {
		skills = []string{}
	}
	b, err := json.Marshal(skills)
	if err != nil {
		return nil
	}
	return string(b)
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// Timestamps written by older tooling use Python's isoformat without zone.
var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"}

func parseTimestamp(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v.String); err == nil {
			return &t
		}
	}
	return nil
}

func parseDate(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	t, err := time.Parse(time.DateOnly, v.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseSkills(v sql.NullString) []string {
	if !v.Valid || v.String == "" {
		return nil
	}
	var skills []string
	if err := json.Unmarshal([]byte(v.String), &skills); err != nil {
		return nil
	}
	return skills
}
