package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"fairway/backend/internal/domain"
	"fairway/backend/internal/store"
)

const (
	constraintUniqueActive = "time_slots_unique_active"
	constraintPrimaryKey   = "time_slots_pkey"
)

type SlotRepo struct {
	db *bun.DB
}

func NewSlotRepo(db *bun.DB) *SlotRepo {
	return &SlotRepo{db: db}
}

type slotTx struct {
	tx bun.Tx
}

func (r *SlotRepo) Get(ctx context.Context, id uuid.UUID) (domain.TimeSlot, error) {
	return getSlot(ctx, r.db, id, false)
}

func (r *SlotRepo) List(ctx context.Context, filter store.SlotFilter) ([]domain.TimeSlot, error) {
	var rows []domain.TimeSlot
	q := r.db.NewSelect().Model(&rows)
	if filter.Course != nil {
		q = q.Where("course_ids && ?", pgdialect.Array(filter.Course.IDs()))
	}
	if !filter.From.IsZero() {
		q = q.Where("slot_date >= ?", domain.DateOf(filter.From))
	}
	if !filter.To.IsZero() {
		q = q.Where("slot_date <= ?", domain.DateOf(filter.To))
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN (?)", bun.In(filter.Statuses))
	}
	if filter.OnlyAvailable {
		q = q.Where("status = ?", domain.StatusAvailable).Where("booked_slots < max_slots")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	err := q.OrderExpr("slot_date ASC, start_minute ASC, course_key ASC").Scan(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

func (r *SlotRepo) FindByCourseAndDateRange(ctx context.Context, ref domain.CourseRef, from, to time.Time) ([]domain.TimeSlot, error) {
	return findByCourse(ctx, r.db, ref, from, to)
}

// AdjustOccupancy adds delta to booked_slots only when the result stays within [0, max_slots].
// Positive deltas additionally require a bookable status. The status follows the count:
// reaching capacity marks the slot BOOKED and regaining headroom reopens it.
func (r *SlotRepo) AdjustOccupancy(ctx context.Context, id uuid.UUID, delta int) (domain.TimeSlot, error) {
	if delta == 0 {
		return r.Get(ctx, id)
	}

	var out domain.TimeSlot
	q := r.db.NewUpdate().
		Model(&out).
		Set("booked_slots = booked_slots + ?", delta).
		Set(`status = CASE
			WHEN ? > 0 AND booked_slots + ? >= max_slots THEN ?
			WHEN status = ? AND booked_slots + ? < max_slots THEN ?
			ELSE status END`,
			delta, delta, domain.StatusBooked,
			domain.StatusBooked, delta, domain.StatusAvailable).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("booked_slots + ? >= 0", delta).
		Where("booked_slots + ? <= max_slots", delta)
	if delta > 0 {
		q = q.Where("status IN (?)", bun.In([]domain.Status{domain.StatusAvailable, domain.StatusBooked}))
	}

	err := q.Returning("*").Scan(ctx)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.TimeSlot{}, mapError(err)
	}

	current, getErr := r.Get(ctx, id)
	if getErr != nil {
		return domain.TimeSlot{}, getErr
	}
	switch {
	case delta > 0 && !current.Status.Bookable():
		return current, store.ErrNotBookable
	case delta > 0:
		return current, store.ErrCapacityExceeded
	default:
		return current, store.ErrInsufficientBookings
	}
}

func (r *SlotRepo) InCourseTransaction(ctx context.Context, refs []domain.CourseRef, dates []time.Time, fn func(ctx context.Context, tx store.SlotTx) error) error {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, key := range courseLockKeys(refs, dates) {
			if err := lockCourseDay(ctx, tx, key); err != nil {
				return err
			}
		}
		return fn(ctx, slotTx{tx: tx})
	})
	return mapError(err)
}

// courseLockKeys returns one key per (course id, date), sorted so concurrent writers
// acquire advisory locks in the same order.
func courseLockKeys(refs []domain.CourseRef, dates []time.Time) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, ref := range refs {
		for _, id := range ref.IDs() {
			for _, d := range dates {
				k := "timeslots:" + strconv.FormatInt(id, 10) + ":" + domain.FormatDate(domain.DateOf(d))
				if _, ok := seen[k]; ok {
					continue
				}
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func lockCourseDay(ctx context.Context, tx bun.Tx, key string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", key).Exec(ctx)
	return err
}

func (t slotTx) FindByCourseAndDateRange(ctx context.Context, ref domain.CourseRef, from, to time.Time) ([]domain.TimeSlot, error) {
	return findByCourse(ctx, t.tx, ref, from, to)
}

func (t slotTx) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.TimeSlot, error) {
	return getSlot(ctx, t.tx, id, true)
}

// Insert persists slot. A caller-chosen id that already exists replays the earlier insert
// when the request matches, and fails with ErrIdempotencyConflict otherwise.
func (t slotTx) Insert(ctx context.Context, slot domain.TimeSlot) (domain.TimeSlot, error) {
	if slot.ID != uuid.Nil {
		existing, err := getSlot(ctx, t.tx, slot.ID, false)
		switch {
		case err == nil:
			if !sameSlotRequest(existing, slot) {
				return domain.TimeSlot{}, store.ErrIdempotencyConflict
			}
			return existing, nil
		case !errors.Is(err, store.ErrNotFound):
			return domain.TimeSlot{}, err
		}
	}

	m := slot
	_, err := t.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraintPrimaryKey {
			return domain.TimeSlot{}, store.ErrIdempotencyConflict
		}
		return domain.TimeSlot{}, mapError(err)
	}
	return m, nil
}

func (t slotTx) Update(ctx context.Context, slot domain.TimeSlot) (domain.TimeSlot, error) {
	m := slot
	err := t.tx.NewUpdate().
		Model(&m).
		ExcludeColumn("id", "created_at", "booked_slots").
		WherePK().
		Returning("*").
		Scan(ctx)
	if err != nil {
		return domain.TimeSlot{}, mapError(err)
	}
	return m, nil
}

func (t slotTx) Cancel(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.NewUpdate().
		Model((*domain.TimeSlot)(nil)).
		Set("status = ?", domain.StatusCancelled).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("booked_slots = 0").
		Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := getSlot(ctx, t.tx, id, false); err != nil {
			return err
		}
		return store.ErrHasBookings
	}
	return nil
}

func (t slotTx) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.NewDelete().
		Model((*domain.TimeSlot)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func getSlot(ctx context.Context, db bun.IDB, id uuid.UUID, forUpdate bool) (domain.TimeSlot, error) {
	var s domain.TimeSlot
	q := db.NewSelect().Model(&s).Where("id = ?", id).Limit(1)
	if forUpdate {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return domain.TimeSlot{}, mapError(err)
	}
	return s, nil
}

func findByCourse(ctx context.Context, db bun.IDB, ref domain.CourseRef, from, to time.Time) ([]domain.TimeSlot, error) {
	var rows []domain.TimeSlot
	err := db.NewSelect().
		Model(&rows).
		Where("course_ids && ?", pgdialect.Array(ref.IDs())).
		Where("slot_date >= ?", domain.DateOf(from)).
		Where("slot_date <= ?", domain.DateOf(to)).
		OrderExpr("slot_date ASC, start_minute ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

// sameSlotRequest compares the caller-controlled fields of an idempotent create.
func sameSlotRequest(a, b domain.TimeSlot) bool {
	return a.Courses().Key() == b.Courses().Key() &&
		a.Courses().IsDual() == b.Courses().IsDual() &&
		domain.SameDate(a.Date, b.Date) &&
		a.StartTime == b.StartTime &&
		a.EndTime == b.EndTime &&
		a.BreakMinutes == b.BreakMinutes &&
		a.MaxSlots == b.MaxSlots &&
		a.Price == b.Price
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23P01":
			return store.ErrConflict
		case pgErr.Code == "23505" && pgErr.ConstraintName == constraintUniqueActive:
			return store.ErrDuplicateSlot
		case pgErr.Code == "40001", pgErr.Code == "40P01", pgErr.Code == "57P01", strings.HasPrefix(pgErr.Code, "08"):
			return fmt.Errorf("%w: %s", store.ErrUnavailable, pgErr.Message)
		}
		return err
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) || errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return err
}
