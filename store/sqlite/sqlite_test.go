package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/tiffin-engine/calendar"
	"github.com/warp/tiffin-engine/renewal"
	"github.com/warp/tiffin-engine/tiffin"
)

var testWindow = calendar.DeliveryWindow{Start: time.Monday, End: time.Friday}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleOrder(id string) tiffin.Order {
	return tiffin.Order{
		ID:     tiffin.OrderID(id),
		Status: tiffin.StatusProcessing,
		Customer: tiffin.Customer{
			FirstName: "Asha",
			Phone:     "+15550100",
		},
		LineItems: []tiffin.LineItem{{
			ProductID:   "plan-20",
			ProductName: "Deluxe Weekly Plan",
			Quantity:    1,
			Total:       decimal.RequireFromString("129.99"),
			Metadata: map[string]string{
				tiffin.MetaTiffinCount:   "20",
				tiffin.MetaStartDate:     "2025-03-03",
				tiffin.MetaPreferredDays: "Monday - Friday",
			},
		}},
		Metadata: map[string]string{
			tiffin.MetaTiffinCount: "20",
		},
	}
}

func TestSaveAndGetOrder_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveOrder(ctx, sampleOrder("order-1"), testWindow, time.Now(), time.UTC))

	got, err := s.GetOrder(ctx, "order-1")
	require.NoError(t, err)

	assert.Equal(t, tiffin.OrderID("order-1"), got.ID)
	assert.Equal(t, tiffin.StatusProcessing, got.Status)
	assert.Equal(t, "Asha", got.Customer.FirstName)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, "Deluxe Weekly Plan", got.LineItems[0].ProductName)
	assert.True(t, got.LineItems[0].Total.Equal(decimal.RequireFromString("129.99")))
	assert.Equal(t, "20", got.LineItems[0].Metadata[tiffin.MetaTiffinCount])
	assert.Equal(t, "20", got.Metadata[tiffin.MetaTiffinCount])
}

func TestGetOrder_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetOrder(context.Background(), "missing")

	assert.ErrorIs(t, err, tiffin.ErrOrderNotFound)
}

func TestSaveOrder_SeedsHistoryFromRemainingOverride(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	o := sampleOrder("order-1")
	o.Metadata[tiffin.MetaRemainingOverride] = "12"
	createdAt := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveOrder(ctx, o, testWindow, createdAt, time.UTC))

	got, err := s.GetOrder(ctx, "order-1")
	require.NoError(t, err)

	h, err := tiffin.HistoryOf(got)
	require.NoError(t, err)
	entry, ok := h.Entry(calendar.NewDate(2025, time.March, 3))
	require.True(t, ok, "expected a day-zero history entry")
	assert.Equal(t, 12, entry.RemainingTiffins)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, entry.DeliveryDays)
	assert.Equal(t, 0, entry.BoxesDelivered)
}

func TestSaveOrder_SeedsHistoryInBusinessTimezone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	o := sampleOrder("order-1")
	o.Metadata[tiffin.MetaRemainingOverride] = "12"
	// 19:00 UTC on March 3 is already March 4 in Kolkata (UTC+5:30).
	createdAt := time.Date(2025, time.March, 3, 19, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveOrder(ctx, o, testWindow, createdAt, kolkata))

	got, err := s.GetOrder(ctx, "order-1")
	require.NoError(t, err)

	h, err := tiffin.HistoryOf(got)
	require.NoError(t, err)
	entry, ok := h.Entry(calendar.NewDate(2025, time.March, 4))
	require.True(t, ok, "entry should be keyed by the business-timezone day")
	assert.Equal(t, 12, entry.RemainingTiffins)

	_, ok = h.Entry(calendar.NewDate(2025, time.March, 3))
	assert.False(t, ok, "no entry keyed by the UTC day")
}

func TestListActiveOrders_ExcludesTerminalStatuses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	active := sampleOrder("order-active")
	paused := sampleOrder("order-paused")
	paused.Status = tiffin.StatusPaused
	done := sampleOrder("order-done")
	done.Status = tiffin.StatusCompleted
	cancelled := sampleOrder("order-cancelled")
	cancelled.Status = tiffin.StatusCancelled

	base := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
	for i, o := range []tiffin.Order{active, paused, done, cancelled} {
		require.NoError(t, s.SaveOrder(ctx, o, testWindow, base.Add(time.Duration(i)*time.Minute), time.UTC))
	}

	got, err := s.ListActiveOrders(ctx)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, tiffin.OrderID("order-active"), got[0].ID)
	assert.Equal(t, tiffin.OrderID("order-paused"), got[1].ID)
}

func TestUpdateMetadata_Upserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveOrder(ctx, sampleOrder("order-1"), testWindow, time.Now(), time.UTC))

	require.NoError(t, s.UpdateMetadata(ctx, "order-1", tiffin.MetaReminderSent, "yes"))
	require.NoError(t, s.UpdateMetadata(ctx, "order-1", tiffin.MetaReminderSent, "yes, twice"))

	got, err := s.GetOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "yes, twice", got.Metadata[tiffin.MetaReminderSent])

	err = s.UpdateMetadata(ctx, "missing", "k", "v")
	assert.ErrorIs(t, err, tiffin.ErrOrderNotFound)
}

func TestUpdateStatus_WritesAuditEvent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveOrder(ctx, sampleOrder("order-1"), testWindow, time.Now(), time.UTC))

	require.NoError(t, s.UpdateStatus(ctx, "order-1", tiffin.StatusCompleted, "plan consumed"))

	got, err := s.GetOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, tiffin.StatusCompleted, got.Status)

	events, err := s.StatusEvents(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, tiffin.StatusProcessing, events[0].From)
	assert.Equal(t, tiffin.StatusCompleted, events[0].To)
}

func TestRecordStatusEvent_AppendsChronologically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveOrder(ctx, sampleOrder("order-1"), testWindow, time.Now(), time.UTC))

	first := tiffin.StatusEvent{
		At:   time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC),
		From: tiffin.StatusProcessing,
		To:   tiffin.StatusPaused,
	}
	second := tiffin.StatusEvent{
		At:   time.Date(2025, time.March, 6, 9, 0, 0, 0, time.UTC),
		From: tiffin.StatusPaused,
		To:   tiffin.StatusProcessing,
	}
	require.NoError(t, s.RecordStatusEvent(ctx, "order-1", first, "customer pause"))
	require.NoError(t, s.RecordStatusEvent(ctx, "order-1", second, "customer resume"))

	events, err := s.StatusEvents(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, tiffin.StatusPaused, events[0].To)
	assert.Equal(t, tiffin.StatusProcessing, events[1].To)
	assert.True(t, events[0].At.Before(events[1].At))
}

func TestOffers_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	offer := renewal.Offer{
		Token:     "tok-123",
		OrderID:   "order-1",
		PlanName:  "Deluxe Weekly Plan",
		Units:     20,
		Price:     decimal.RequireFromString("129.99"),
		StartDate: calendar.NewDate(2025, time.March, 10),
		EndDate:   calendar.NewDate(2025, time.March, 7),
		CreatedAt: time.Date(2025, time.March, 5, 18, 0, 0, 0, time.UTC),
		ExpiresAt: time.Date(2025, time.March, 19, 18, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveOffer(ctx, offer))

	got, err := s.GetOffer(ctx, "tok-123")
	require.NoError(t, err)
	assert.Equal(t, tiffin.OrderID("order-1"), got.OrderID)
	assert.Equal(t, 20, got.Units)
	assert.True(t, got.Price.Equal(offer.Price))
	assert.Equal(t, "2025-03-10", got.StartDate.String())
	assert.Equal(t, "2025-03-07", got.EndDate.String())
	assert.True(t, got.ExpiresAt.Equal(offer.ExpiresAt))

	_, err = s.GetOffer(ctx, "missing")
	assert.ErrorIs(t, err, renewal.ErrOfferNotFound)
}
