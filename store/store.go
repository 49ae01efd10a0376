// Package store persists extracted company records in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/use-agent/orgscope/models"
	"golang.org/x/text/cases"
)

// DBFile is the database file name inside the store directory.
const DBFile = "orgscope.db"

// Query limits.
const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Store is the record store behind the cache-aside lookup. One record per
// company slug; an insert replaces the previous record entirely.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so readers do not block the
	// writer.
	EnableWAL bool
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the store in dir.
func Open(dir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dir, DBFile)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("store: database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("store: check database path: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: enable WAL mode: %w", err)
		}
	}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create tables: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.dbPath }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS companies (
		page_id TEXT PRIMARY KEY,
		name TEXT,
		name_folded TEXT,
		followers INTEGER,
		tagline TEXT,
		description TEXT,
		industry TEXT,
		website TEXT,
		headquarters TEXT,
		founded TEXT,
		company_size TEXT,
		specialties TEXT,
		employees_on_linkedin TEXT,
		source_about_url TEXT NOT NULL,
		partial INTEGER NOT NULL DEFAULT 0,
		scraped_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_companies_followers ON companies(followers);
	CREATE INDEX IF NOT EXISTS idx_companies_industry ON companies(industry);
	`
	if _, err := s.db.ExecContext(context.Background(), schema); err != nil {
		return err
	}
	return s.addFoldedNames()
}

// addFoldedNames adds and backfills name_folded on databases created
// before the column existed.
func (s *Store) addFoldedNames() error {
	ctx := context.Background()
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('companies') WHERE name = 'name_folded'`,
	).Scan(&n)
	if err != nil || n > 0 {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `ALTER TABLE companies ADD COLUMN name_folded TEXT`); err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT page_id, name FROM companies WHERE name IS NOT NULL`)
	if err != nil {
		return err
	}
	folded := map[string]string{}
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return err
		}
		folded[id] = foldName(name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for id, f := range folded {
		if _, err := s.db.ExecContext(ctx, `UPDATE companies SET name_folded = ? WHERE page_id = ?`, f, id); err != nil {
			return err
		}
	}
	return nil
}

const columns = `page_id, name, followers, tagline, description, industry, website,
	headquarters, founded, company_size, specialties, employees_on_linkedin,
	source_about_url, partial, scraped_at`

// Find returns the record for pageID, or nil if there is none.
func (s *Store) Find(ctx context.Context, pageID string) (*models.CompanyRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM companies WHERE page_id = ?`, pageID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find %s: %w", pageID, err)
	}
	return rec, nil
}

// Insert stores rec, replacing every column of any existing record with
// the same page ID.
func (s *Store) Insert(ctx context.Context, rec *models.CompanyRecord) error {
	if rec.PageID == "" {
		return errors.New("store: record has no page id")
	}
	p := rec.Profile

	query := `
	INSERT INTO companies (` + columns + `, name_folded)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(page_id) DO UPDATE SET
		name = excluded.name,
		name_folded = excluded.name_folded,
		followers = excluded.followers,
		tagline = excluded.tagline,
		description = excluded.description,
		industry = excluded.industry,
		website = excluded.website,
		headquarters = excluded.headquarters,
		founded = excluded.founded,
		company_size = excluded.company_size,
		specialties = excluded.specialties,
		employees_on_linkedin = excluded.employees_on_linkedin,
		source_about_url = excluded.source_about_url,
		partial = excluded.partial,
		scraped_at = excluded.scraped_at
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.PageID,
		nullString(p.Name),
		nullInt(p.Followers),
		nullString(p.Tagline),
		nullString(p.Description),
		nullString(p.Industry),
		nullString(p.Website),
		nullString(p.Headquarters),
		nullString(p.Founded),
		nullString(p.CompanySize),
		nullString(p.Specialties),
		nullString(p.EmployeesOnLinkedIn),
		p.SourceAboutURL,
		rec.Partial,
		rec.ScrapedAt.UnixNano(),
		foldedName(p.Name),
	)
	if err != nil {
		return fmt.Errorf("store: insert %s: %w", rec.PageID, err)
	}
	return nil
}

// Query returns records matching q, most-followed first. Records without a
// follower count sort last and never match a follower bound.
func (s *Store) Query(ctx context.Context, q models.CompanyQuery) ([]*models.CompanyRecord, error) {
	var (
		where []string
		args  []any
	)
	if q.MinFollowers != nil {
		where = append(where, "followers >= ?")
		args = append(args, *q.MinFollowers)
	}
	if q.MaxFollowers != nil {
		where = append(where, "followers <= ?")
		args = append(args, *q.MaxFollowers)
	}
	if name := strings.TrimSpace(q.Name); name != "" {
		where = append(where, `name_folded LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(foldName(name))+"%")
	}
	if q.Industry != "" {
		where = append(where, "industry = ?")
		args = append(args, q.Industry)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	query := `SELECT ` + columns + ` FROM companies`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY followers DESC, page_id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()

	var out []*models.CompanyRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*models.CompanyRecord, error) {
	var (
		rec       models.CompanyRecord
		followers sql.NullInt64
		text      [10]sql.NullString
		scrapedAt int64
	)
	err := sc.Scan(
		&rec.PageID,
		&text[0], &followers, &text[1], &text[2], &text[3], &text[4],
		&text[5], &text[6], &text[7], &text[8], &text[9],
		&rec.Profile.SourceAboutURL,
		&rec.Partial,
		&scrapedAt,
	)
	if err != nil {
		return nil, err
	}

	p := &rec.Profile
	for i, dst := range []**string{
		&p.Name, &p.Tagline, &p.Description, &p.Industry, &p.Website,
		&p.Headquarters, &p.Founded, &p.CompanySize, &p.Specialties, &p.EmployeesOnLinkedIn,
	} {
		if text[i].Valid {
			v := text[i].String
			*dst = &v
		}
	}
	if followers.Valid {
		v := followers.Int64
		p.Followers = &v
	}
	rec.ScrapedAt = time.Unix(0, scrapedAt).UTC()
	return &rec, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}

// foldName case-folds s with full Unicode folding. SQLite's own LOWER and
// LIKE only fold ASCII, so the name filter matches against this form.
func foldName(s string) string {
	return cases.Fold().String(s)
}

func foldedName(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: foldName(*s), Valid: true}
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
