package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"fairway/backend/internal/domain"
	"fairway/backend/internal/store"
)

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()
	databaseURL := strings.TrimSpace(os.Getenv("FAIRWAY_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("FAIRWAY_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// One connection keeps the session search_path on every query.
	db, err := Open(ctx, databaseURL, PoolConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	schema := "fairway_test_" + randomHex(t, 8)
	if _, err := db.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
	})
	if _, err := db.NewRaw("SET search_path TO " + schema + ", public").Exec(ctx); err != nil {
		t.Fatalf("set search_path: %v", err)
	}
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	// Second run is a no-op.
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("Migrate (again) error: %v", err)
	}
	return db
}

func newTestSlot(ref domain.CourseRef, start, end domain.ClockTime, capacity int) domain.TimeSlot {
	s := domain.TimeSlot{
		Date:      domain.Date(2024, 6, 1),
		StartTime: start,
		EndTime:   end,
		MaxSlots:  capacity,
		Price:     4500,
		Status:    domain.StatusAvailable,
	}
	s.SetCourses(ref)
	return s
}

func insertSlot(ctx context.Context, repo *SlotRepo, s domain.TimeSlot) (domain.TimeSlot, error) {
	var out domain.TimeSlot
	err := repo.InCourseTransaction(ctx, []domain.CourseRef{s.Courses()}, []time.Time{s.Date}, func(ctx context.Context, tx store.SlotTx) error {
		var err error
		out, err = tx.Insert(ctx, s)
		return err
	})
	return out, err
}

func TestPostgresIntegration_SlotInsertFindAndConstraints(t *testing.T) {
	db := openTestDB(t)
	repo := NewSlotRepo(db)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s1, err := insertSlot(ctx, repo, newTestSlot(domain.SingleCourse(5), domain.Clock(9, 0), domain.Clock(10, 0), 4))
	if err != nil {
		t.Fatalf("insert error: %v", err)
	}
	if s1.ID == uuid.Nil || s1.CourseKey != "5" || len(s1.CourseIDs) != 1 {
		t.Fatalf("unexpected inserted slot: %+v", s1)
	}

	// Touching endpoints are allowed.
	if _, err := insertSlot(ctx, repo, newTestSlot(domain.SingleCourse(5), domain.Clock(10, 0), domain.Clock(11, 0), 4)); err != nil {
		t.Fatalf("adjacent insert error: %v", err)
	}

	_, err = insertSlot(ctx, repo, newTestSlot(domain.SingleCourse(5), domain.Clock(9, 0), domain.Clock(10, 0), 4))
	if !errors.Is(err, store.ErrDuplicateSlot) {
		t.Fatalf("duplicate err = %v, want %v", err, store.ErrDuplicateSlot)
	}
	_, err = insertSlot(ctx, repo, newTestSlot(domain.SingleCourse(5), domain.Clock(9, 30), domain.Clock(10, 30), 4))
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("overlap err = %v, want %v", err, store.ErrConflict)
	}

	dual, err := insertSlot(ctx, repo, newTestSlot(domain.DualCourse(5, 9), domain.Clock(12, 0), domain.Clock(16, 0), 4))
	if err != nil {
		t.Fatalf("dual insert error: %v", err)
	}

	rows, err := repo.FindByCourseAndDateRange(ctx, domain.SingleCourse(9), domain.Date(2024, 6, 1), domain.Date(2024, 6, 1))
	if err != nil {
		t.Fatalf("find error: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != dual.ID {
		t.Fatalf("find by course 9 = %+v, want the dual slot", rows)
	}
	rows, err = repo.FindByCourseAndDateRange(ctx, domain.SingleCourse(5), domain.Date(2024, 6, 1), domain.Date(2024, 6, 1))
	if err != nil {
		t.Fatalf("find error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	if rows[0].StartTime != domain.Clock(9, 0) || !rows[2].IsDualCourse {
		t.Fatalf("unexpected order: %+v", rows)
	}

	// Idempotent replay and mismatch.
	replay := newTestSlot(domain.SingleCourse(7), domain.Clock(9, 0), domain.Clock(10, 0), 4)
	replay.ID = uuid.MustParse("00000000-0000-0000-0000-000000000901")
	first, err := insertSlot(ctx, repo, replay)
	if err != nil {
		t.Fatalf("insert error: %v", err)
	}
	again, err := insertSlot(ctx, repo, replay)
	if err != nil {
		t.Fatalf("replay error: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("replay id = %s, want %s", again.ID, first.ID)
	}
	replay.Price = 1
	if _, err := insertSlot(ctx, repo, replay); !errors.Is(err, store.ErrIdempotencyConflict) {
		t.Fatalf("idempotency err = %v, want %v", err, store.ErrIdempotencyConflict)
	}

	// Cancelled slots free the interval.
	err = repo.InCourseTransaction(ctx, []domain.CourseRef{s1.Courses()}, []time.Time{s1.Date}, func(ctx context.Context, tx store.SlotTx) error {
		return tx.Cancel(ctx, s1.ID)
	})
	if err != nil {
		t.Fatalf("cancel error: %v", err)
	}
	if _, err := insertSlot(ctx, repo, newTestSlot(domain.SingleCourse(5), domain.Clock(9, 0), domain.Clock(10, 0), 4)); err != nil {
		t.Fatalf("insert after cancel error: %v", err)
	}

	list, err := repo.List(ctx, store.SlotFilter{Statuses: []domain.Status{domain.StatusCancelled}})
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(list) != 1 || list[0].ID != s1.ID {
		t.Fatalf("cancelled list = %+v", list)
	}
}

func TestPostgresIntegration_AdjustOccupancy(t *testing.T) {
	db := openTestDB(t)
	repo := NewSlotRepo(db)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := insertSlot(ctx, repo, newTestSlot(domain.SingleCourse(5), domain.Clock(9, 0), domain.Clock(10, 0), 4))
	if err != nil {
		t.Fatalf("insert error: %v", err)
	}

	got, err := repo.AdjustOccupancy(ctx, s.ID, 3)
	if err != nil {
		t.Fatalf("reserve error: %v", err)
	}
	if got.BookedSlots != 3 || got.Status != domain.StatusAvailable {
		t.Fatalf("after reserve: %+v", got)
	}

	if _, err := repo.AdjustOccupancy(ctx, s.ID, 2); !errors.Is(err, store.ErrCapacityExceeded) {
		t.Fatalf("overbook err = %v, want %v", err, store.ErrCapacityExceeded)
	}

	got, err = repo.AdjustOccupancy(ctx, s.ID, 1)
	if err != nil {
		t.Fatalf("reserve error: %v", err)
	}
	if got.BookedSlots != 4 || got.Status != domain.StatusBooked {
		t.Fatalf("after fill: %+v", got)
	}

	got, err = repo.AdjustOccupancy(ctx, s.ID, -2)
	if err != nil {
		t.Fatalf("release error: %v", err)
	}
	if got.BookedSlots != 2 || got.Status != domain.StatusAvailable {
		t.Fatalf("after release: %+v", got)
	}

	if _, err := repo.AdjustOccupancy(ctx, s.ID, -3); !errors.Is(err, store.ErrInsufficientBookings) {
		t.Fatalf("over-release err = %v, want %v", err, store.ErrInsufficientBookings)
	}
	if _, err := repo.AdjustOccupancy(ctx, uuid.New(), 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing slot err = %v, want %v", err, store.ErrNotFound)
	}

	err = repo.InCourseTransaction(ctx, []domain.CourseRef{s.Courses()}, []time.Time{s.Date}, func(ctx context.Context, tx store.SlotTx) error {
		return tx.Cancel(ctx, s.ID)
	})
	if !errors.Is(err, store.ErrHasBookings) {
		t.Fatalf("cancel booked err = %v, want %v", err, store.ErrHasBookings)
	}
}

func TestPostgresIntegration_CourseDirectory(t *testing.T) {
	db := openTestDB(t)
	courses := NewCourseRepo(db)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := db.NewInsert().Model(&[]courseRow{{ID: 5, Name: "Lakes", Active: true}, {ID: 6, Name: "Old", Active: false}}).Exec(ctx); err != nil {
		t.Fatalf("seed courses: %v", err)
	}
	if _, err := db.NewInsert().Model(&closureRow{CourseID: 5, ClosedOn: domain.Date(2024, 6, 2), Reason: "aeration"}).Exec(ctx); err != nil {
		t.Fatalf("seed closures: %v", err)
	}

	for id, want := range map[int64]bool{5: true, 6: false, 7: false} {
		got, err := courses.CourseExists(ctx, id)
		if err != nil {
			t.Fatalf("CourseExists(%d) error: %v", id, err)
		}
		if got != want {
			t.Fatalf("CourseExists(%d) = %v, want %v", id, got, want)
		}
	}

	closures, err := courses.Closures(ctx, []int64{5, 6}, domain.Date(2024, 6, 1), domain.Date(2024, 6, 3))
	if err != nil {
		t.Fatalf("Closures error: %v", err)
	}
	if reason, ok := closures.Closed(5, domain.Date(2024, 6, 2)); !ok || reason != "aeration" {
		t.Fatalf("Closed(5, 2024-06-02) = %q, %v", reason, ok)
	}
	if _, ok := closures.Closed(5, domain.Date(2024, 6, 1)); ok {
		t.Fatalf("unexpected closure on 2024-06-01")
	}
}

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}
