package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/amo-platform/amo-server/internal/models"
)

// CreateActivity appends an activity record
func (s *PostgresStore) CreateActivity(ctx context.Context, activity *models.Activity) error {
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now()
	}

	query := `
        INSERT INTO activities (id, created_at, title, description, subject_type, subject_id)
        VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query,
		activity.ID, activity.CreatedAt, activity.Title,
		activity.Description, activity.SubjectType, activity.SubjectID,
	)

	return mapError(err)
}

// ListActivities lists activities for a subject, newest first
func (s *PostgresStore) ListActivities(ctx context.Context, subjectType models.SubjectType, subjectID uuid.UUID, limit, offset int) ([]*models.Activity, int64, error) {
	type page struct {
		activities []*models.Activity
		total      int64
	}

	p, err := retryRead(ctx, func() (page, error) {
		var p page

		countQuery := `SELECT COUNT(*) FROM activities WHERE subject_type = $1 AND subject_id = $2`
		if err := s.db.QueryRowContext(ctx, countQuery, subjectType, subjectID).Scan(&p.total); err != nil {
			return p, mapError(err)
		}

		query := `
            SELECT id, created_at, title, description, subject_type, subject_id
            FROM activities
            WHERE subject_type = $1 AND subject_id = $2
            ORDER BY created_at DESC
            LIMIT $3 OFFSET $4`

		rows, err := s.db.QueryContext(ctx, query, subjectType, subjectID, limit, offset)
		if err != nil {
			return p, mapError(err)
		}
		defer rows.Close()

		for rows.Next() {
			activity := &models.Activity{}
			err := rows.Scan(
				&activity.ID, &activity.CreatedAt, &activity.Title,
				&activity.Description, &activity.SubjectType, &activity.SubjectID,
			)
			if err != nil {
				return p, mapError(err)
			}
			p.activities = append(p.activities, activity)
		}

		return p, mapError(rows.Err())
	})
	if err != nil {
		return nil, 0, err
	}

	return p.activities, p.total, nil
}
