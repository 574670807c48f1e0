package postgres

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"fairway/backend/internal/domain"
)

type courseRow struct {
	bun.BaseModel `bun:"table:courses"`

	ID        int64     `bun:"id,pk"`
	Name      string    `bun:"name,notnull"`
	Active    bool      `bun:"active,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type closureRow struct {
	bun.BaseModel `bun:"table:course_closures"`

	CourseID int64     `bun:"course_id,pk"`
	ClosedOn time.Time `bun:"closed_on,pk,type:date"`
	Reason   string    `bun:"reason,notnull"`
}

// CourseRepo reads course master data owned by another service.
type CourseRepo struct {
	db *bun.DB
}

func NewCourseRepo(db *bun.DB) *CourseRepo {
	return &CourseRepo{db: db}
}

func (r *CourseRepo) CourseExists(ctx context.Context, courseID int64) (bool, error) {
	ok, err := r.db.NewSelect().
		Model((*courseRow)(nil)).
		Where("id = ?", courseID).
		Where("active").
		Exists(ctx)
	if err != nil {
		return false, mapError(err)
	}
	return ok, nil
}

func (r *CourseRepo) Closures(ctx context.Context, courseIDs []int64, from, to time.Time) (domain.ClosureSet, error) {
	out := domain.ClosureSet{}
	if len(courseIDs) == 0 {
		return out, nil
	}

	var rows []closureRow
	err := r.db.NewSelect().
		Model(&rows).
		Where("course_id IN (?)", bun.In(courseIDs)).
		Where("closed_on >= ?", domain.DateOf(from)).
		Where("closed_on <= ?", domain.DateOf(to)).
		Scan(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	for _, row := range rows {
		out.Close(row.CourseID, row.ClosedOn, row.Reason)
	}
	return out, nil
}
