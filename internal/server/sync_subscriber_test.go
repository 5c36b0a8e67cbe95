package server

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amo-platform/amo-server/internal/models"
	"github.com/amo-platform/amo-server/internal/storage/storetest"
)

func TestHandleUsageReport(t *testing.T) {
	store := storetest.New()
	ctx := context.Background()

	tenant := &models.Tenant{Name: "Acme", TaxNumber: "12345"}
	require.NoError(t, store.CreateTenant(ctx, tenant))

	sub := NewSyncSubscriber(nil, store)

	sub.handleUsageReport(&nats.Msg{
		Subject: "amo.sync." + tenant.ID.String() + ".usage",
		Data: []byte(`{"tenantId":"` + tenant.ID.String() + `","scanCount":120,"vatAmount":4200.50,"syncedAt":"` +
			time.Now().UTC().Format(time.RFC3339) + `"}`),
	})

	fresh, err := store.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 120, fresh.ScanCount)
	assert.InDelta(t, 4200.50, fresh.VATAmount, 0.001)
	assert.NotNil(t, fresh.LastSyncAt)

	// A stale report never moves the accrued counters backwards.
	sub.handleUsageReport(&nats.Msg{
		Subject: "amo.sync." + tenant.ID.String() + ".usage",
		Data:    []byte(`{"tenantId":"` + tenant.ID.String() + `","scanCount":80,"vatAmount":3100.00}`),
	})

	fresh, err = store.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 120, fresh.ScanCount)
	assert.InDelta(t, 4200.50, fresh.VATAmount, 0.001)

	// Malformed payloads and unknown tenants are dropped, not fatal.
	sub.handleUsageReport(&nats.Msg{Subject: "amo.sync.x.usage", Data: []byte(`{`)})
	sub.handleUsageReport(&nats.Msg{
		Subject: "amo.sync.x.usage",
		Data:    []byte(`{"tenantId":"00000000-0000-0000-0000-000000000001","scanCount":1}`),
	})
}
