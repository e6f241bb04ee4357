/*
Package sqlite provides SQLite-backed storage for the schedule engine's
administrative inputs.

PURPOSE:
  The generation engine is a pure computation; what persists are its
  inputs: milestone sets, per-legal-entity schedule configurations, and
  per-organization custom holiday overrides. This package stores all
  three and exposes the override rows through the holiday.OverrideSource
  contract.

KEY TABLES:
  milestone_sets:   named sets
  milestones:       ordered members of a set
  schedule_configs: one JSON config per legal entity
  custom_holidays:  per-organization, per-country declared holidays

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened with WAL so
  readers do not block each other.

SEE ALSO:
  - schedule/generator.go: consumes Config + MilestoneSet
  - holiday/holiday.go: the OverrideSource contract
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/holiday"
	"github.com/warp/payroll-engine/schedule"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS milestone_sets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS milestones (
		id TEXT PRIMARY KEY,
		set_id TEXT NOT NULL REFERENCES milestone_sets(id) ON DELETE CASCADE,
		identifier TEXT NOT NULL,
		description TEXT,
		interval_days INTEGER NOT NULL DEFAULT 0,
		pivot BOOLEAN NOT NULL DEFAULT FALSE,
		idx INTEGER NOT NULL,
		entity_types_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_milestones_set
		ON milestones(set_id, idx);

	CREATE TABLE IF NOT EXISTS schedule_configs (
		entity_id TEXT PRIMARY KEY,
		config_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS custom_holidays (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		country TEXT NOT NULL,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_custom_holidays_org_country
		ON custom_holidays(org_id, country, date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_custom_holidays_unique
		ON custom_holidays(org_id, country, date, name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// MILESTONE SETS
// =============================================================================

// SaveMilestoneSet saves a set and its milestones atomically, replacing any
// previous members. Missing IDs are generated.
func (s *Store) SaveMilestoneSet(ctx context.Context, set schedule.MilestoneSet) (schedule.MilestoneSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if set.ID == "" {
		set.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return set, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO milestone_sets (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at
	`, set.ID, set.Name, now, now)
	if err != nil {
		return set, err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM milestones WHERE set_id = ?", set.ID); err != nil {
		return set, err
	}

	for i := range set.Milestones {
		m := &set.Milestones[i]
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		entityTypes, _ := json.Marshal(m.EntityTypes)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO milestones (id, set_id, identifier, description, interval_days, pivot, idx, entity_types_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, m.ID, set.ID, m.Identifier, m.Description, m.Interval, m.Pivot, m.Index, string(entityTypes))
		if err != nil {
			return set, err
		}
	}

	return set, tx.Commit()
}

// GetMilestoneSet retrieves a set with its milestones in index order.
// Returns nil when the set does not exist.
func (s *Store) GetMilestoneSet(ctx context.Context, id string) (*schedule.MilestoneSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getMilestoneSet(ctx, id)
}

func (s *Store) getMilestoneSet(ctx context.Context, id string) (*schedule.MilestoneSet, error) {
	var set schedule.MilestoneSet
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name FROM milestone_sets WHERE id = ?", id,
	).Scan(&set.ID, &set.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, identifier, description, interval_days, pivot, idx, entity_types_json
		FROM milestones WHERE set_id = ? ORDER BY idx ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m           schedule.Milestone
			description sql.NullString
			entityTypes sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Identifier, &description, &m.Interval, &m.Pivot, &m.Index, &entityTypes); err != nil {
			return nil, err
		}
		m.Description = description.String
		if entityTypes.Valid && entityTypes.String != "" && entityTypes.String != "null" {
			json.Unmarshal([]byte(entityTypes.String), &m.EntityTypes)
		}
		set.Milestones = append(set.Milestones, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &set, nil
}

// ListMilestoneSets returns all sets (with members) ordered by name.
func (s *Store) ListMilestoneSets(ctx context.Context) ([]schedule.MilestoneSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM milestone_sets ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sets := make([]schedule.MilestoneSet, 0, len(ids))
	for _, id := range ids {
		set, err := s.getMilestoneSet(ctx, id)
		if err != nil {
			return nil, err
		}
		if set != nil {
			sets = append(sets, *set)
		}
	}
	return sets, nil
}

// DeleteMilestoneSet removes a set and its milestones.
func (s *Store) DeleteMilestoneSet(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM milestone_sets WHERE id = ?", id)
	return err
}

// =============================================================================
// SCHEDULE CONFIGS
// =============================================================================

// SaveScheduleConfig stores a legal entity's schedule configuration as JSON.
func (s *Store) SaveScheduleConfig(ctx context.Context, cfg schedule.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.EntityID == "" {
		return fmt.Errorf("schedule config requires an entity id")
	}
	blob, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schedule_configs (entity_id, config_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`, cfg.EntityID, string(blob), time.Now().UTC().Format(time.RFC3339))
	return err
}

// GetScheduleConfig retrieves a legal entity's schedule configuration.
// Returns nil when none is stored.
func (s *Store) GetScheduleConfig(ctx context.Context, entityID string) (*schedule.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var blob string
	err := s.db.QueryRowContext(ctx,
		"SELECT config_json FROM schedule_configs WHERE entity_id = ?", entityID,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg schedule.Config
	if err := json.Unmarshal([]byte(blob), &cfg); err != nil {
		return nil, fmt.Errorf("corrupt schedule config for %s: %w", entityID, err)
	}
	cfg.EntityID = entityID
	return &cfg, nil
}

// =============================================================================
// CUSTOM HOLIDAYS
// =============================================================================

// CustomHoliday is one organization-declared holiday row.
type CustomHoliday struct {
	ID      string        `json:"id"`
	OrgID   string        `json:"org_id"`
	Country string        `json:"country"`
	Date    calendar.Date `json:"date"`
	Name    string        `json:"name"`
}

// SaveCustomHoliday inserts one custom holiday; duplicates are ignored.
func (s *Store) SaveCustomHoliday(ctx context.Context, h CustomHoliday) (CustomHoliday, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO custom_holidays (id, org_id, country, date, name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(org_id, country, date, name) DO NOTHING
	`, h.ID, h.OrgID, h.Country, h.Date.String(), h.Name, time.Now().UTC().Format(time.RFC3339))
	return h, err
}

// DeleteCustomHoliday removes a custom holiday by ID.
func (s *Store) DeleteCustomHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM custom_holidays WHERE id = ?", id)
	return err
}

// ListCustomHolidays returns an organization's custom holidays, all
// countries, ordered by date.
func (s *Store) ListCustomHolidays(ctx context.Context, orgID string) ([]CustomHoliday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, country, date, name
		FROM custom_holidays WHERE org_id = ? ORDER BY date ASC, country ASC
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CustomHoliday
	for rows.Next() {
		h, err := scanCustomHoliday(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func scanCustomHoliday(rows *sql.Rows) (CustomHoliday, error) {
	var (
		h       CustomHoliday
		dateStr string
	)
	if err := rows.Scan(&h.ID, &h.OrgID, &h.Country, &dateStr, &h.Name); err != nil {
		return h, err
	}
	date, err := calendar.Parse(dateStr)
	if err != nil {
		return h, fmt.Errorf("corrupt custom holiday date %q: %w", dateStr, err)
	}
	h.Date = date
	return h, nil
}

// =============================================================================
// OVERRIDE SOURCE ADAPTER
// =============================================================================

// overrideSource adapts one organization's custom holiday rows to the
// holiday.OverrideSource contract.
type overrideSource struct {
	store *Store
	orgID string
}

// Overrides returns the holiday.OverrideSource view for one organization.
func (s *Store) Overrides(orgID string) holiday.OverrideSource {
	return &overrideSource{store: s, orgID: orgID}
}

func (o *overrideSource) HolidayOverrides(ctx context.Context, countryCode string, year int) ([]holiday.Holiday, error) {
	o.store.mu.RLock()
	defer o.store.mu.RUnlock()

	rows, err := o.store.db.QueryContext(ctx, `
		SELECT id, org_id, country, date, name
		FROM custom_holidays
		WHERE org_id = ? AND country = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, o.orgID, countryCode,
		fmt.Sprintf("%d-01-01", year), fmt.Sprintf("%d-12-31", year))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []holiday.Holiday
	for rows.Next() {
		h, err := scanCustomHoliday(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, holiday.Holiday{Country: h.Country, Date: h.Date, Name: h.Name})
	}
	return out, rows.Err()
}

var _ holiday.OverrideSource = (*overrideSource)(nil)
