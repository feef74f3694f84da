package storage

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"olx-scraper/models"
	"olx-scraper/utils"
)

func newTestStore(t *testing.T, path string) *SQLRunStore {
	t.Helper()
	logger := utils.NewLoggerWithOptions(utils.LoggerOptions{Output: &bytes.Buffer{}})
	s, err := NewSQLRunStore(context.Background(), DriverSQLite, path,
		utils.RetryConfig{MaxAttempts: 1}, logger)
	if err != nil {
		t.Fatalf("NewSQLRunStore: %v", err)
	}
	return s
}

func TestSQLRunStoreRecordAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "runs.db")
	s := newTestStore(t, path)
	defer s.Close()

	ctx := context.Background()
	base := time.Date(2024, 11, 20, 15, 30, 0, 0, time.UTC)
	runs := []*models.ScrapeRun{
		{ID: "00000000-0000-0000-0000-000000000001", Source: "https://a", FetchMode: "static", StartedAt: base,
			DurationMs: 120, RequestedLimit: 20, Returned: 3, TotalCandidates: 5, Status: models.RunOK},
		{ID: "00000000-0000-0000-0000-000000000002", Source: "https://b", FetchMode: "dynamic", StartedAt: base.Add(time.Minute),
			DurationMs: 900, RequestedLimit: 10, Status: models.RunFailed, Error: "navigating: timeout"},
		{ID: "00000000-0000-0000-0000-000000000003", Source: "https://c", FetchMode: "static", StartedAt: base.Add(2 * time.Minute),
			RequestedLimit: 1, Returned: 1, TotalCandidates: 1, Status: models.RunOK},
	}
	for _, r := range runs {
		if err := s.Record(ctx, r); err != nil {
			t.Fatalf("Record(%s): %v", r.ID, err)
		}
	}
	// Duplicate ids are ignored.
	if err := s.Record(ctx, runs[0]); err != nil {
		t.Fatalf("Record duplicate: %v", err)
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent(2) returned %d runs", len(got))
	}
	if got[0].Source != "https://c" || got[1].Source != "https://b" {
		t.Errorf("Recent order = %s, %s; want c, b", got[0].Source, got[1].Source)
	}
	if got[1].Status != models.RunFailed || got[1].Error != "navigating: timeout" || got[1].DurationMs != 900 {
		t.Errorf("failed run = %+v", got[1])
	}
	if !got[0].StartedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("StartedAt = %v", got[0].StartedAt)
	}

	all, err := s.Recent(ctx, 10)
	if err != nil || len(all) != 3 {
		t.Errorf("Recent(10) = %d runs, err %v; want 3", len(all), err)
	}
}

func TestSQLRunStoreReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	s := newTestStore(t, path)
	run := &models.ScrapeRun{ID: "00000000-0000-0000-0000-00000000000a", Source: "https://a",
		FetchMode: "static", StartedAt: time.Now(), RequestedLimit: 5, Status: models.RunOK}
	if err := s.Record(context.Background(), run); err != nil {
		t.Fatalf("Record: %v", err)
	}
	s.Close()

	s = newTestStore(t, path)
	defer s.Close()
	got, err := s.Recent(context.Background(), 5)
	if err != nil || len(got) != 1 {
		t.Fatalf("after reopen: %d runs, err %v", len(got), err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestNewSQLRunStoreRejectsUnknownDriver(t *testing.T) {
	logger := utils.NewLoggerWithOptions(utils.LoggerOptions{Output: &bytes.Buffer{}})
	if _, err := NewSQLRunStore(context.Background(), "mongo", "x", utils.RetryConfig{}, logger); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLRunStore{driver: DriverPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("postgres rebind = %q", got)
	}
	lite := &SQLRunStore{driver: DriverSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
}
