package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/amo-platform/amo-server/internal/storage"
)

// SyncSubscriber consumes usage reports published by the desktop
// application and applies them to tenant usage counters
type SyncSubscriber struct {
	nc    *nats.Conn
	store storage.Store
	subs  []*nats.Subscription
}

// NewSyncSubscriber creates a sync subscriber
func NewSyncSubscriber(nc *nats.Conn, store storage.Store) *SyncSubscriber {
	return &SyncSubscriber{
		nc:    nc,
		store: store,
		subs:  make([]*nats.Subscription, 0),
	}
}

// Start starts subscriptions and blocks until the context is cancelled
func (s *SyncSubscriber) Start(ctx context.Context) error {
	sub, err := s.nc.Subscribe("amo.sync.*.usage", s.handleUsageReport)
	if err != nil {
		return fmt.Errorf("subscribe usage reports: %w", err)
	}
	s.subs = append(s.subs, sub)

	log.Info().
		Int("subscriptions", len(s.subs)).
		Msg("Sync subscriber started")

	<-ctx.Done()

	for _, sub := range s.subs {
		sub.Unsubscribe()
	}

	return ctx.Err()
}

// handleUsageReport handles a usage report from the desktop side
func (s *SyncSubscriber) handleUsageReport(msg *nats.Msg) {
	log.Debug().
		Str("subject", msg.Subject).
		Int("size", len(msg.Data)).
		Msg("Received usage report")

	var report struct {
		TenantID  string  `json:"tenantId"`
		ScanCount int64   `json:"scanCount"`
		VATAmount float64 `json:"vatAmount"`
		SyncedAt  string  `json:"syncedAt"`
	}

	if err := json.Unmarshal(msg.Data, &report); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal usage report")
		return
	}

	tenantID, err := uuid.Parse(report.TenantID)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", report.TenantID).Msg("Invalid tenant ID in usage report")
		return
	}

	syncedAt := time.Now()
	if t, err := time.Parse(time.RFC3339, report.SyncedAt); err == nil {
		syncedAt = t
	}

	ctx := context.Background()
	err = s.store.RecordTenantUsage(ctx, tenantID, report.ScanCount, report.VATAmount, syncedAt)
	if errors.Is(err, storage.ErrNotFound) {
		log.Warn().Str("tenant_id", report.TenantID).Msg("Usage report for unknown tenant, dropping")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("tenant_id", report.TenantID).Msg("Failed to record tenant usage")
		return
	}

	log.Info().
		Str("tenant_id", report.TenantID).
		Int64("scan_count", report.ScanCount).
		Float64("vat_amount", report.VATAmount).
		Msg("Tenant usage updated")
}
