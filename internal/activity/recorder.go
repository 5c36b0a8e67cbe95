package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/amo-platform/amo-server/internal/models"
	"github.com/amo-platform/amo-server/internal/storage"
)

// Recorder appends activity records and publishes them for downstream
// consumers (the desktop sync side subscribes to the NATS subjects).
// Recording is fire-and-forget: a failed write is logged, never
// propagated to the primary operation.
type Recorder struct {
	store storage.Store
	nc    *nats.Conn
}

// NewRecorder creates a recorder. nc may be nil, in which case records
// are only written to the store.
func NewRecorder(store storage.Store, nc *nats.Conn) *Recorder {
	return &Recorder{
		store: store,
		nc:    nc,
	}
}

// Record appends one activity record
func (r *Recorder) Record(ctx context.Context, title, description string, subjectType models.SubjectType, subjectID uuid.UUID) {
	activity := &models.Activity{
		Title:       title,
		Description: description,
		SubjectType: subjectType,
		SubjectID:   subjectID,
	}

	if err := r.store.CreateActivity(ctx, activity); err != nil {
		log.Error().Err(err).
			Str("title", title).
			Str("subject_id", subjectID.String()).
			Msg("Failed to record activity")
	}

	if r.nc == nil {
		return
	}

	data, err := json.Marshal(activity)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal activity")
		return
	}

	subject := fmt.Sprintf("amo.activity.%s", subjectType)
	if err := r.nc.Publish(subject, data); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("Failed to publish activity")
	}
}
