package models

import (
	"time"

	"github.com/google/uuid"
)

// SubjectType identifies what kind of record an activity refers to
type SubjectType string

const (
	SubjectAccount SubjectType = "account"
	SubjectTenant  SubjectType = "tenant"
)

// Activity represents an append-only record of a state-changing action
type Activity struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`

	SubjectType SubjectType `json:"subjectType" db:"subject_type"`
	SubjectID   uuid.UUID   `json:"subjectId" db:"subject_id"`
}
