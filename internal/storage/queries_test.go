package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(SQLite, ":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open("mysql", "x", slog.Default()); err == nil {
		t.Error("Open(mysql) = nil error, want error")
	}
}

func TestOpen_MigrationsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.migrate(); err != nil {
		t.Errorf("second migrate: %v", err)
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: Postgres}
	lite := &DB{driver: SQLite}
	q := `SELECT a FROM t WHERE b = ? AND c = ?`

	if got, want := pg.rebind(q), `SELECT a FROM t WHERE b = $1 AND c = $2`; got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
	if got := lite.rebind(q); got != q {
		t.Errorf("sqlite rebind = %q, want unchanged", got)
	}
}

func TestRecordFeedStatus_Upsert(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := time.Unix(1700000000, 0).UTC()
	if err := db.RecordFeedStatus(ctx, FeedStatus{
		FeedID:        "ACE",
		Endpoint:      "https://example.test/ace",
		LastAttemptAt: first,
		LastSuccessAt: &first,
		EntityCount:   42,
		NyctVersion:   "1.0",
	}); err != nil {
		t.Fatalf("record success: %v", err)
	}

	second := first.Add(30 * time.Second)
	if err := db.RecordFeedStatus(ctx, FeedStatus{
		FeedID:        "ACE",
		Endpoint:      "https://example.test/ace",
		LastAttemptAt: second,
		LastError:     "HTTP 503",
	}); err != nil {
		t.Fatalf("record failure: %v", err)
	}

	got, err := db.FeedStatuses(ctx)
	if err != nil {
		t.Fatalf("FeedStatuses: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1", len(got))
	}
	s := got[0]
	if !s.LastAttemptAt.Equal(second) {
		t.Errorf("LastAttemptAt = %v, want %v", s.LastAttemptAt, second)
	}
	if s.LastSuccessAt == nil || !s.LastSuccessAt.Equal(first) {
		t.Errorf("LastSuccessAt = %v, want %v", s.LastSuccessAt, first)
	}
	if s.LastError != "HTTP 503" {
		t.Errorf("LastError = %q, want HTTP 503", s.LastError)
	}
	if s.EntityCount != 42 || s.NyctVersion != "1.0" {
		t.Errorf("EntityCount/NyctVersion = %d/%q, want 42/1.0", s.EntityCount, s.NyctVersion)
	}

	third := second.Add(30 * time.Second)
	if err := db.RecordFeedStatus(ctx, FeedStatus{
		FeedID:        "ACE",
		Endpoint:      "https://example.test/ace",
		LastAttemptAt: third,
		LastSuccessAt: &third,
		EntityCount:   7,
		NyctVersion:   "1.1",
	}); err != nil {
		t.Fatalf("record recovery: %v", err)
	}
	got, _ = db.FeedStatuses(ctx)
	s = got[0]
	if s.LastError != "" || s.EntityCount != 7 || s.NyctVersion != "1.1" {
		t.Errorf("after recovery = %+v", s)
	}
	if s.LastSuccessAt == nil || !s.LastSuccessAt.Equal(third) {
		t.Errorf("LastSuccessAt = %v, want %v", s.LastSuccessAt, third)
	}
}

func TestFeedStatuses_Ordered(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	for _, id := range []string{"SI", "1234567S", "L", "ACE"} {
		if err := db.RecordFeedStatus(ctx, FeedStatus{FeedID: id, Endpoint: "e", LastAttemptAt: now}); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	got, err := db.FeedStatuses(ctx)
	if err != nil {
		t.Fatalf("FeedStatuses: %v", err)
	}
	want := []string{"1234567S", "ACE", "L", "SI"}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i, s := range got {
		if s.FeedID != want[i] {
			t.Errorf("row %d = %s, want %s", i, s.FeedID, want[i])
		}
		if s.LastSuccessAt != nil {
			t.Errorf("%s LastSuccessAt = %v, want nil", s.FeedID, s.LastSuccessAt)
		}
	}
}

func TestFeedStatuses_Empty(t *testing.T) {
	db := openTestDB(t)
	got, err := db.FeedStatuses(context.Background())
	if err != nil {
		t.Fatalf("FeedStatuses: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d rows, want 0", len(got))
	}
}
