// Package store persists event records in SQLite. The primary URL is the
// natural unique key: Upsert updates the row with a matching URL or
// inserts a new one. As a defense-in-depth layer, the store re-checks the
// content policy before saving, independent of the pipeline's own checks.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/AlexTo8319/ukraine-event-intelligence/models"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/policy"
)

const DefaultDBName = "events.db"

// Store is the record-store boundary consumed by the pipeline.
type Store interface {
	FindByURL(url string) (*models.Event, error)
	Upsert(e models.Event) (models.Event, error)
	Delete(id int64) error
	ListAll(limit int) ([]models.Event, error)
}

// DB is the SQLite-backed store.
type DB struct {
	*sql.DB
	path   string
	policy *policy.Policy
}

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    event_title TEXT NOT NULL,
    event_date TEXT NOT NULL,           -- calendar date, YYYY-MM-DD, no timezone
    event_time TEXT,
    organizer TEXT,
    url TEXT NOT NULL UNIQUE,
    registration_url TEXT,
    category TEXT NOT NULL DEFAULT 'General',
    is_online INTEGER NOT NULL DEFAULT 0,
    target_audience TEXT,
    summary TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_events_date ON events(event_date);
CREATE INDEX IF NOT EXISTS idx_events_category ON events(category);
`

func openDB(dbPath string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return sqlDB, nil
}

// Open opens (or creates) the events database at path and ensures the
// schema exists. ":memory:" is supported for tests.
func Open(path string, p *policy.Policy) (*DB, error) {
	if path == "" {
		path = DefaultDBName
	}
	sqlDB, err := openDB(path)
	if err != nil {
		return nil, err
	}
	db := &DB{DB: sqlDB, path: path, policy: p}
	if err := db.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// InitSchema creates the tables if they do not exist.
func (db *DB) InitSchema() error {
	_, err := db.Exec(schema)
	return err
}

func scanEvent(row interface{ Scan(...any) error }) (*models.Event, error) {
	var e models.Event
	var eventTime, organizer, regURL, audience, summary sql.NullString
	var category string
	var isOnline int
	err := row.Scan(&e.ID, &e.Title, &e.Date, &eventTime, &organizer, &e.URL,
		&regURL, &category, &isOnline, &audience, &summary)
	if err != nil {
		return nil, err
	}
	e.Time = eventTime.String
	e.Organizer = organizer.String
	e.RegistrationURL = regURL.String
	e.Category = models.ParseCategory(category)
	e.IsOnline = isOnline != 0
	e.TargetAudience = audience.String
	e.Summary = summary.String
	return &e, nil
}

const eventColumns = `id, event_title, event_date, event_time, organizer, url,
	registration_url, category, is_online, target_audience, summary`

// FindByURL returns the event with the given primary URL, or nil when
// none exists.
func (db *DB) FindByURL(url string) (*models.Event, error) {
	row := db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE url = ?`, url)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query event by URL: %w", err)
	}
	return e, nil
}

// Upsert inserts the event or updates the existing row with the same URL.
// Records failing the content policy are rejected before touching disk.
func (db *DB) Upsert(e models.Event) (models.Event, error) {
	if err := e.Validate(); err != nil {
		return e, err
	}
	if db.policy != nil {
		if db.policy.IsBlocked(e.URL) {
			return e, fmt.Errorf("refusing to save blocked URL %q", e.URL)
		}
		if ok, reason := db.policy.CheckRelevance(e.Title, e.Summary); !ok {
			return e, fmt.Errorf("refusing to save event: %s", reason)
		}
	}

	isOnline := 0
	if e.IsOnline {
		isOnline = 1
	}
	res, err := db.Exec(`
		INSERT INTO events (event_title, event_date, event_time, organizer, url,
			registration_url, category, is_online, target_audience, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			event_title = excluded.event_title,
			event_date = excluded.event_date,
			event_time = excluded.event_time,
			organizer = excluded.organizer,
			registration_url = excluded.registration_url,
			category = excluded.category,
			is_online = excluded.is_online,
			target_audience = excluded.target_audience,
			summary = excluded.summary,
			updated_at = CURRENT_TIMESTAMP
	`, e.Title, e.Date, nullable(e.Time), nullable(e.Organizer), e.URL,
		nullable(e.RegistrationURL), string(e.Category), isOnline,
		nullable(e.TargetAudience), nullable(e.Summary))
	if err != nil {
		return e, fmt.Errorf("failed to upsert event: %w", err)
	}

	if e.ID == 0 {
		if id, err := res.LastInsertId(); err == nil && id > 0 {
			e.ID = id
		}
		if stored, err := db.FindByURL(e.URL); err == nil && stored != nil {
			e.ID = stored.ID
		}
	}
	return e, nil
}

// Delete removes an event by ID.
func (db *DB) Delete(id int64) error {
	_, err := db.Exec(`DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event %d: %w", id, err)
	}
	return nil
}

// ListAll returns up to limit events ordered by date.
func (db *DB) ListAll(limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`SELECT `+eventColumns+` FROM events ORDER BY event_date ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
