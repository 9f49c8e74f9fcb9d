/*
handlers.go - HTTP API handlers for the tiffin subscription engine

PURPOSE:
  Exposes the tiffin engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Orders:
    GET    /api/orders                        List active orders
    POST   /api/orders                        Register an order
    GET    /api/orders/{id}                   Get order details
    GET    /api/orders/{id}/remaining         Live remaining count
    GET    /api/orders/{id}/history           Dated snapshot history
    GET    /api/orders/{id}/history.csv       History as CSV download
    GET    /api/orders/{id}/renewal-projection Completion projection
    POST   /api/orders/{id}/status            Record status transition

  Renewals:
    GET    /api/renewals/offers/{token}       Resolve an offer token

  Admin:
    POST   /api/admin/run-daily-job           Run the snapshot job now
    POST   /api/admin/renewal-scan            Run a reminder sweep now

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Order or offer not found
  - 409: Conflict (duplicate snapshot)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/tiffin-engine/calendar"
	"github.com/warp/tiffin-engine/renewal"
	"github.com/warp/tiffin-engine/tiffin"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// OrderWriter is the write side of order intake: registering new
// orders and recording externally observed status transitions. loc is
// the business timezone the creation day is resolved in.
type OrderWriter interface {
	SaveOrder(ctx context.Context, o tiffin.Order, window calendar.DeliveryWindow, createdAt time.Time, loc *time.Location) error
	RecordStatusEvent(ctx context.Context, id tiffin.OrderID, ev tiffin.StatusEvent, note string) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Repo    tiffin.OrderRepository
	Writer  OrderWriter
	Events  tiffin.StatusEventLog
	Offers  renewal.OfferStore
	Engine  tiffin.Engine
	Planner *renewal.Planner
	Job     *tiffin.SnapshotJob
	Log     *zap.Logger
}

// =============================================================================
// ORDER HANDLERS
// =============================================================================

// ListOrders returns all non-terminal orders with their live remaining
// counts.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Repo.ListActiveOrders(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list orders", err)
		return
	}

	now := time.Now()
	dtos := make([]OrderSummaryDTO, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		remaining, err := h.Engine.RemainingAsOf(o, now)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to compute remaining count", err)
			return
		}
		var plan string
		if s, err := tiffin.ParseOrderSchedule(o); err == nil {
			plan = s.PlanName
		}
		dtos = append(dtos, OrderSummaryDTO{
			ID:        string(o.ID),
			Status:    string(o.Status),
			FirstName: o.Customer.FirstName,
			PlanName:  plan,
			Remaining: remaining,
		})
	}

	writeJSON(w, http.StatusOK, dtos)
}

// CreateOrder registers a new order with the engine.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "Order id is required", nil)
		return
	}
	if len(req.LineItems) == 0 {
		writeError(w, http.StatusBadRequest, "At least one line item is required", nil)
		return
	}

	status := tiffin.Status(req.Status)
	if status == "" {
		status = tiffin.StatusProcessing
	}

	o := tiffin.Order{
		ID:     tiffin.OrderID(req.ID),
		Status: status,
		Customer: tiffin.Customer{
			FirstName: req.FirstName,
			Phone:     req.Phone,
		},
		Metadata: req.Metadata,
	}
	for _, item := range req.LineItems {
		total, err := decimal.NewFromString(item.Total)
		if err != nil && item.Total != "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid total %q", item.Total), err)
			return
		}
		o.LineItems = append(o.LineItems, tiffin.LineItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Total:       total,
			Metadata:    item.Metadata,
		})
	}

	if err := h.Writer.SaveOrder(r.Context(), o, h.Engine.Window, time.Now(), h.Engine.Cutoff.Loc); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save order", err)
		return
	}

	h.Log.Info("order registered",
		zap.String("order_id", req.ID),
		zap.String("status", string(status)))

	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

// GetOrder returns a single order.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.loadOrder(w, r)
	if !ok {
		return
	}

	dto := OrderDTO{
		ID:        string(o.ID),
		Status:    string(o.Status),
		FirstName: o.Customer.FirstName,
		Phone:     o.Customer.Phone,
		Metadata:  o.Metadata,
	}
	for _, item := range o.LineItems {
		dto.LineItems = append(dto.LineItems, LineItemDTO{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Total:       item.Total.String(),
			Metadata:    item.Metadata,
		})
	}

	writeJSON(w, http.StatusOK, dto)
}

// GetRemaining computes the order's remaining count as of now.
func (h *Handler) GetRemaining(w http.ResponseWriter, r *http.Request) {
	o, ok := h.loadOrder(w, r)
	if !ok {
		return
	}

	now := time.Now()
	remaining, err := h.Engine.RemainingAsOf(o, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute remaining count", err)
		return
	}

	writeJSON(w, http.StatusOK, RemainingDTO{
		OrderID:   string(o.ID),
		Remaining: remaining,
		AsOf:      h.Engine.Cutoff.Today(now).String(),
	})
}

// GetHistory returns the order's snapshot history, newest first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	o, ok := h.loadOrder(w, r)
	if !ok {
		return
	}

	entries, err := historyRows(o)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read history", err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// ExportHistoryCSV streams the order's snapshot history as CSV.
func (h *Handler) ExportHistoryCSV(w http.ResponseWriter, r *http.Request) {
	o, ok := h.loadOrder(w, r)
	if !ok {
		return
	}

	entries, err := historyRows(o)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read history", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", string(o.ID)+"-history.csv"))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"date", "remaining_tiffins", "boxes_delivered", "delivery_days"})
	for _, e := range entries {
		days := make([]byte, 0, len(e.DeliveryDays)*2)
		for i, d := range e.DeliveryDays {
			if i > 0 {
				days = append(days, ' ')
			}
			days = strconv.AppendInt(days, int64(d), 10)
		}
		_ = cw.Write([]string{
			e.Date,
			strconv.Itoa(e.RemainingTiffins),
			strconv.Itoa(e.BoxesDelivered),
			string(days),
		})
	}
	cw.Flush()
}

// GetRenewalProjection reports when the plan is projected to finish.
func (h *Handler) GetRenewalProjection(w http.ResponseWriter, r *http.Request) {
	o, ok := h.loadOrder(w, r)
	if !ok {
		return
	}

	s, err := tiffin.ParseOrderSchedule(o)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Order carries no subscription schedule", err)
		return
	}

	now := time.Now()
	remaining, err := h.Engine.RemainingAsOf(o, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute remaining count", err)
		return
	}

	today := h.Engine.Cutoff.Today(now)
	endDate, projected := renewal.ProjectEndDate(remaining, s.PreferredDays, h.Engine.Window, today)
	if !projected {
		writeError(w, http.StatusUnprocessableEntity, "No projectable completion date", nil)
		return
	}

	writeJSON(w, http.StatusOK, RenewalProjectionDTO{
		OrderID:            string(o.ID),
		Remaining:          remaining,
		ProjectedEndDate:   endDate.String(),
		SuggestedStartDate: renewal.NextBusinessStart(endDate.AddDays(1)).String(),
	})
}

// ChangeStatus records a status transition and applies it to the
// order. Transitions feed the pause/resume resolution at cutoff time.
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	o, ok := h.loadOrder(w, r)
	if !ok {
		return
	}

	var req StatusChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "Status is required", nil)
		return
	}

	at := time.Now()
	if req.At != "" {
		parsed, err := time.Parse(time.RFC3339, req.At)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid timestamp, want RFC3339", err)
			return
		}
		at = parsed
	}

	ev := tiffin.StatusEvent{At: at, From: o.Status, To: tiffin.Status(req.Status)}
	if err := h.Writer.RecordStatusEvent(r.Context(), o.ID, ev, req.Note); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record status event", err)
		return
	}
	if err := h.Repo.UpdateStatus(r.Context(), o.ID, ev.To, req.Note); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update status", err)
		return
	}

	h.Log.Info("order status changed",
		zap.String("order_id", string(o.ID)),
		zap.String("from", string(ev.From)),
		zap.String("to", string(ev.To)))

	writeJSON(w, http.StatusOK, map[string]string{
		"id":     string(o.ID),
		"status": req.Status,
	})
}

// =============================================================================
// RENEWAL HANDLERS
// =============================================================================

// GetOffer resolves a renewal offer token.
func (h *Handler) GetOffer(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	offer, err := h.Offers.GetOffer(r.Context(), token)
	if err != nil {
		if errors.Is(err, renewal.ErrOfferNotFound) {
			writeError(w, http.StatusNotFound, "Offer not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load offer", err)
		return
	}
	if time.Now().After(offer.ExpiresAt) {
		writeError(w, http.StatusGone, "Offer has expired", nil)
		return
	}

	writeJSON(w, http.StatusOK, OfferDTO{
		Token:     offer.Token,
		OrderID:   string(offer.OrderID),
		PlanName:  offer.PlanName,
		Units:     offer.Units,
		Price:     offer.Price.String(),
		StartDate: offer.StartDate.String(),
		EndDate:   offer.EndDate.String(),
		ExpiresAt: offer.ExpiresAt.Format(time.RFC3339),
	})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// RunDailyJob triggers the snapshot job immediately.
func (h *Handler) RunDailyJob(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Job.Run(r.Context(), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Daily job failed", err)
		return
	}

	writeJSON(w, http.StatusOK, JobSummaryDTO{
		RunID:     summary.RunID,
		Date:      summary.Date,
		Processed: summary.Processed,
		Skipped:   summary.Skipped,
		Failed:    summary.Failed,
		Completed: summary.Completed,
	})
}

// RunRenewalScan triggers a renewal reminder sweep immediately.
func (h *Handler) RunRenewalScan(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Planner.Scan(r.Context(), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Renewal scan failed", err)
		return
	}

	writeJSON(w, http.StatusOK, ScanSummaryDTO{
		Offered: summary.Offered,
		Skipped: summary.Skipped,
		Failed:  summary.Failed,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loadOrder(w http.ResponseWriter, r *http.Request) (*tiffin.Order, bool) {
	id := chi.URLParam(r, "id")

	o, err := h.Repo.GetOrder(r.Context(), tiffin.OrderID(id))
	if err != nil {
		if errors.Is(err, tiffin.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "Order not found", nil)
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to load order", err)
		return nil, false
	}
	return o, true
}

// historyRows decodes the order's history and sorts it newest first.
func historyRows(o *tiffin.Order) ([]HistoryEntryDTO, error) {
	history, err := tiffin.HistoryOf(o)
	if err != nil {
		return nil, err
	}

	out := make([]HistoryEntryDTO, 0, len(history))
	for date, entry := range history {
		out = append(out, HistoryEntryDTO{
			Date:             date,
			RemainingTiffins: entry.RemainingTiffins,
			DeliveryDays:     entry.DeliveryDays,
			BoxesDelivered:   entry.BoxesDelivered,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
