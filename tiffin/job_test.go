package tiffin_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/tiffin-engine/calendar"
	"github.com/warp/tiffin-engine/store/memory"
	"github.com/warp/tiffin-engine/tiffin"
)

func newJob(store *memory.Store) *tiffin.SnapshotJob {
	return &tiffin.SnapshotJob{
		Repo:   store,
		Events: store,
		Engine: tiffin.Engine{
			Window: calendar.DeliveryWindow{Start: time.Monday, End: time.Friday},
			Cutoff: calendar.Cutoff{Hour: 17, Loc: time.UTC},
		},
		Log: zap.NewNop(),
	}
}

func planOrder(id string, units int, status tiffin.Status, history string) tiffin.Order {
	o := tiffin.Order{
		ID:     tiffin.OrderID(id),
		Status: status,
		LineItems: []tiffin.LineItem{{
			ProductName: "Weekly Plan",
			Quantity:    1,
			Metadata: map[string]string{
				tiffin.MetaTiffinCount:   "10",
				tiffin.MetaStartDate:     "2025-03-03", // Monday
				tiffin.MetaPreferredDays: "Monday - Friday",
			},
		}},
		Metadata: map[string]string{},
	}
	o.LineItems[0].Metadata[tiffin.MetaTiffinCount] = strconv.Itoa(units)
	if history != "" {
		o.Metadata[tiffin.MetaCountHistory] = history
	}
	return o
}

func historyFor(t *testing.T, store *memory.Store, id string) tiffin.CountHistory {
	t.Helper()
	o, err := store.GetOrder(context.Background(), tiffin.OrderID(id))
	require.NoError(t, err)
	h, err := tiffin.HistoryOf(o)
	require.NoError(t, err)
	return h
}

func TestSnapshotJob_NoOpBeforeCutoff(t *testing.T) {
	store := memory.New()
	store.AddOrder(planOrder("order-1", 10, tiffin.StatusProcessing, ""))
	job := newJob(store)

	summary, err := job.Run(context.Background(), time.Date(2025, time.March, 5, 9, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Empty(t, historyFor(t, store, "order-1"))
}

func TestSnapshotJob_AppendsOneEntryAndIsIdempotent(t *testing.T) {
	store := memory.New()
	store.AddOrder(planOrder("order-1", 10, tiffin.StatusProcessing, ""))
	job := newJob(store)

	// GIVEN the job runs after cutoff on Wednesday of the first week
	now := time.Date(2025, time.March, 5, 17, 30, 0, 0, time.UTC)
	summary, err := job.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)

	h := historyFor(t, store, "order-1")
	entry, ok := h.Entry(calendar.NewDate(2025, time.March, 5))
	require.True(t, ok)
	assert.Equal(t, 7, entry.RemainingTiffins) // Mon, Tue, Wed consumed
	assert.Equal(t, 1, entry.BoxesDelivered)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, entry.DeliveryDays)

	// WHEN the trigger fires again the same evening
	summary, err = job.Run(context.Background(), now.Add(2*time.Hour))
	require.NoError(t, err)

	// THEN the order is skipped and the history did not grow
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Len(t, historyFor(t, store, "order-1"), 1)
}

func TestSnapshotJob_AdvancesFromPriorSnapshot(t *testing.T) {
	store := memory.New()
	store.AddOrder(planOrder("order-1", 10, tiffin.StatusProcessing,
		`{"2025-03-04":{"remaining_tiffins":8,"delivery_days":[1,2,3,4,5],"boxes_delivered":1}}`))
	job := newJob(store)

	_, err := job.Run(context.Background(), time.Date(2025, time.March, 5, 17, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	entry, ok := historyFor(t, store, "order-1").Entry(calendar.NewDate(2025, time.March, 5))
	require.True(t, ok)
	assert.Equal(t, 7, entry.RemainingTiffins)
}

func TestSnapshotJob_PausedOrderIsFrozen(t *testing.T) {
	store := memory.New()
	store.AddOrder(planOrder("order-1", 10, tiffin.StatusPaused,
		`{"2025-03-04":{"remaining_tiffins":8,"delivery_days":[1,2,3,4,5],"boxes_delivered":1}}`))
	store.AddStatusEvent("order-1", tiffin.StatusEvent{
		At:   time.Date(2025, time.March, 4, 20, 0, 0, 0, time.UTC),
		From: tiffin.StatusProcessing,
		To:   tiffin.StatusPaused,
	})
	job := newJob(store)

	_, err := job.Run(context.Background(), time.Date(2025, time.March, 5, 17, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	// The day is recorded, but nothing was consumed and no box went out.
	entry, ok := historyFor(t, store, "order-1").Entry(calendar.NewDate(2025, time.March, 5))
	require.True(t, ok)
	assert.Equal(t, 8, entry.RemainingTiffins)
	assert.Equal(t, 0, entry.BoxesDelivered)
}

func TestSnapshotJob_CompletesOrderAtZero(t *testing.T) {
	store := memory.New()
	store.AddOrder(planOrder("order-1", 10, tiffin.StatusProcessing,
		`{"2025-03-04":{"remaining_tiffins":1,"delivery_days":[1,2,3,4,5],"boxes_delivered":1}}`))
	job := newJob(store)

	summary, err := job.Run(context.Background(), time.Date(2025, time.March, 5, 17, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Completed)

	o, err := store.GetOrder(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, tiffin.StatusCompleted, o.Status)

	// Completed orders leave the active set: the next run sees nothing.
	summary, err = job.Run(context.Background(), time.Date(2025, time.March, 6, 17, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 0, summary.Skipped)
}

func TestSnapshotJob_SkipsBeforeStartAndWithoutSchedule(t *testing.T) {
	store := memory.New()
	future := planOrder("order-future", 10, tiffin.StatusProcessing, "")
	future.LineItems[0].Metadata[tiffin.MetaStartDate] = "2025-04-07"
	store.AddOrder(future)
	store.AddOrder(tiffin.Order{ID: "order-bare", Status: tiffin.StatusProcessing})
	job := newJob(store)

	summary, err := job.Run(context.Background(), time.Date(2025, time.March, 5, 17, 30, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 2, summary.Skipped)
}

func TestSnapshotJob_CorruptHistoryCountsAsFailure(t *testing.T) {
	store := memory.New()
	store.AddOrder(planOrder("order-bad", 10, tiffin.StatusProcessing, `{broken`))
	store.AddOrder(planOrder("order-good", 10, tiffin.StatusProcessing, ""))
	job := newJob(store)

	summary, err := job.Run(context.Background(), time.Date(2025, time.March, 5, 17, 30, 0, 0, time.UTC))

	// One failure never aborts the batch.
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Processed)
	assert.NotEmpty(t, historyFor(t, store, "order-good"))
}
