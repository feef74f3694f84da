package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"olx-scraper/models"
	"olx-scraper/utils"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed migrations
var migrationFS embed.FS

// SQLRunStore persists scrape run metadata to PostgreSQL or SQLite.
type SQLRunStore struct {
	db     *sql.DB
	driver string
	logger *utils.Logger
}

// NewSQLRunStore opens the database, waits for it to accept connections and
// applies pending schema migrations.
func NewSQLRunStore(ctx context.Context, driver, dsn string, retry utils.RetryConfig, logger *utils.Logger) (*SQLRunStore, error) {
	switch driver {
	case DriverPostgres:
	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("%s: create data dir: %w", driver, err)
		}
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One writer at a time; concurrent requests queue on the pool.
		db.SetMaxOpenConns(1)
	}

	if retry.Logger == nil {
		retry.Logger = logger
	}
	if err := retry.Do(ctx, driver+" ping", db.PingContext); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLRunStore{db: db, driver: driver, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: migrate: %w", driver, err)
	}

	logger.Info("[storage] Run history stored in %s", driver)
	return s, nil
}

func (s *SQLRunStore) migrate() error {
	source, err := iofs.New(migrationFS, "migrations/"+s.driver)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	var driver database.Driver
	switch s.driver {
	case DriverPostgres:
		driver, err = postgres.WithInstance(s.db, &postgres.Config{})
	case DriverSQLite:
		driver, err = sqlite.WithInstance(s.db, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, s.driver, driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}
	s.logger.Debug("[storage] Schema at version %d (dirty=%v)", version, dirty)
	return nil
}

// Record inserts one run. A run id that already exists is ignored.
func (s *SQLRunStore) Record(ctx context.Context, run *models.ScrapeRun) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO scrape_runs (id, source, fetch_mode, started_at_ms, duration_ms,
			requested_limit, returned, total_candidates, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`),
		run.ID, run.Source, run.FetchMode, run.StartedAt.UnixMilli(), run.DurationMs,
		run.RequestedLimit, run.Returned, run.TotalCandidates, run.Status, run.Error,
	)
	if err != nil {
		return fmt.Errorf("%s: insert run: %w", s.driver, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *SQLRunStore) Recent(ctx context.Context, limit int) ([]*models.ScrapeRun, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, source, fetch_mode, started_at_ms, duration_ms,
			requested_limit, returned, total_candidates, status, error_message
		FROM scrape_runs
		ORDER BY started_at_ms DESC, id
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("%s: query runs: %w", s.driver, err)
	}
	defer rows.Close()

	runs := make([]*models.ScrapeRun, 0, limit)
	for rows.Next() {
		r := &models.ScrapeRun{}
		var startedMs int64
		if err := rows.Scan(
			&r.ID, &r.Source, &r.FetchMode, &startedMs, &r.DurationMs,
			&r.RequestedLimit, &r.Returned, &r.TotalCandidates, &r.Status, &r.Error,
		); err != nil {
			return nil, fmt.Errorf("%s: scan run: %w", s.driver, err)
		}
		r.StartedAt = time.UnixMilli(startedMs).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Ping reports whether the database is reachable.
func (s *SQLRunStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLRunStore) Driver() string {
	return s.driver
}

func (s *SQLRunStore) Close() error {
	return s.db.Close()
}

// rebind turns ? placeholders into $n for PostgreSQL.
func (s *SQLRunStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
