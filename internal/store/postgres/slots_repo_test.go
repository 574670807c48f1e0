package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"fairway/backend/internal/domain"
	"fairway/backend/internal/store"
)

func TestCourseLockKeys_SortedAndDistinct(t *testing.T) {
	refs := []domain.CourseRef{domain.DualCourse(8, 3), domain.SingleCourse(3)}
	dates := []time.Time{domain.Date(2024, 6, 2), domain.Date(2024, 6, 1), time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)}

	got := courseLockKeys(refs, dates)
	want := []string{
		"timeslots:3:2024-06-01",
		"timeslots:3:2024-06-02",
		"timeslots:8:2024-06-01",
		"timeslots:8:2024-06-02",
	}
	if len(got) != len(want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %v, want %v", got, want)
		}
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"exclusion", &pgconn.PgError{Code: "23P01", ConstraintName: "time_slots_no_overlap"}, store.ErrConflict},
		{"unique active", &pgconn.PgError{Code: "23505", ConstraintName: constraintUniqueActive}, store.ErrDuplicateSlot},
		{"serialization", &pgconn.PgError{Code: "40001"}, store.ErrUnavailable},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, store.ErrUnavailable},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, store.ErrUnavailable},
		{"connection failure", &pgconn.PgError{Code: "08006"}, store.ErrUnavailable},
		{"wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23P01"}), store.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapError(tt.in); !errors.Is(got, tt.want) {
				t.Fatalf("mapError = %v, want %v", got, tt.want)
			}
		})
	}

	other := &pgconn.PgError{Code: "23514", ConstraintName: "time_slots_capacity_check"}
	if got := mapError(other); got != error(other) {
		t.Fatalf("mapError passed through %v, want original error", got)
	}
	if mapError(nil) != nil {
		t.Fatalf("mapError(nil) != nil")
	}
	if got := mapError(context.Canceled); !errors.Is(got, context.Canceled) {
		t.Fatalf("mapError(context.Canceled) = %v", got)
	}
}

func TestSameSlotRequest(t *testing.T) {
	a := domain.TimeSlot{Date: domain.Date(2024, 6, 1), StartTime: domain.Clock(9, 0), EndTime: domain.Clock(10, 0), MaxSlots: 4, Price: 100}
	a.SetCourses(domain.SingleCourse(5))
	b := a
	b.BookedSlots = 2
	b.Status = domain.StatusBooked
	if !sameSlotRequest(a, b) {
		t.Fatalf("expected server-managed fields to be ignored")
	}
	b.Price = 200
	if sameSlotRequest(a, b) {
		t.Fatalf("expected price change to differ")
	}
}

func TestExtractGooseUpAndSplit(t *testing.T) {
	src := "-- +goose Up\nCREATE TABLE a (id int);\nCREATE INDEX a_idx ON a (id);\n\n-- +goose Down\nDROP TABLE a;\n"
	up, err := extractGooseUp(src)
	if err != nil {
		t.Fatalf("extractGooseUp error: %v", err)
	}
	stmts := splitSQLStatements(up)
	if len(stmts) != 2 {
		t.Fatalf("len(stmts) = %d, want 2: %q", len(stmts), stmts)
	}
	if stmts[1] != "CREATE INDEX a_idx ON a (id)" {
		t.Fatalf("stmts[1] = %q", stmts[1])
	}
	if _, err := extractGooseUp("SELECT 1"); err == nil {
		t.Fatalf("expected error for missing marker")
	}

	got, ok := normalizeExtensionStatement("CREATE EXTENSION IF NOT EXISTS btree_gist")
	if !ok || got != "CREATE EXTENSION IF NOT EXISTS btree_gist SCHEMA public" {
		t.Fatalf("normalizeExtensionStatement = %q, %v", got, ok)
	}
	if _, ok := normalizeExtensionStatement("CREATE TABLE t (id int)"); ok {
		t.Fatalf("expected non-extension statement to be left alone")
	}
}

func TestEmbeddedMigrationsHaveUpSections(t *testing.T) {
	names := []string{"migrations/0001_courses.sql", "migrations/0002_time_slots.sql"}
	for _, name := range names {
		b, err := migrationFiles.ReadFile(name)
		if err != nil {
			t.Fatalf("ReadFile(%s) error: %v", name, err)
		}
		up, err := extractGooseUp(string(b))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(splitSQLStatements(up)) == 0 {
			t.Fatalf("%s has no statements", name)
		}
	}
}
