/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

// =============================================================================
// ORDER TYPES
// =============================================================================

// OrderSummaryDTO is the list-view representation of an order.
type OrderSummaryDTO struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	FirstName string `json:"first_name"`
	PlanName  string `json:"plan_name,omitempty"`
	Remaining int    `json:"remaining_tiffins"`
}

// LineItemDTO represents one purchased line.
type LineItemDTO struct {
	ProductID   string            `json:"product_id"`
	ProductName string            `json:"product_name"`
	Quantity    int               `json:"quantity"`
	Total       string            `json:"total"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// OrderDTO is the detail-view representation of an order.
type OrderDTO struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	FirstName string            `json:"first_name"`
	Phone     string            `json:"phone"`
	LineItems []LineItemDTO     `json:"line_items"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// CreateOrderRequest is the request to register a new order.
type CreateOrderRequest struct {
	ID        string              `json:"id"`
	Status    string              `json:"status"`
	FirstName string              `json:"first_name"`
	Phone     string              `json:"phone"`
	LineItems []CreateItemRequest `json:"line_items"`
	Metadata  map[string]string   `json:"metadata"`
}

// CreateItemRequest is one line of a new order.
type CreateItemRequest struct {
	ProductID   string            `json:"product_id"`
	ProductName string            `json:"product_name"`
	Quantity    int               `json:"quantity"`
	Total       string            `json:"total"`
	Metadata    map[string]string `json:"metadata"`
}

// StatusChangeRequest records a status transition (pause, resume,
// cancel) observed by the order system.
type StatusChangeRequest struct {
	Status string `json:"status"`
	At     string `json:"at,omitempty"` // RFC3339, defaults to now
	Note   string `json:"note,omitempty"`
}

// =============================================================================
// COMPUTED VIEWS
// =============================================================================

// RemainingDTO reports the live remaining count for an order.
type RemainingDTO struct {
	OrderID   string `json:"order_id"`
	Remaining int    `json:"remaining_tiffins"`
	AsOf      string `json:"as_of"` // accounting date the count reflects
}

// HistoryEntryDTO is one dated snapshot row.
type HistoryEntryDTO struct {
	Date             string `json:"date"`
	RemainingTiffins int    `json:"remaining_tiffins"`
	DeliveryDays     []int  `json:"delivery_days"`
	BoxesDelivered   int    `json:"boxes_delivered"`
}

// RenewalProjectionDTO reports when the plan is projected to run out
// and the suggested start of a renewed plan.
type RenewalProjectionDTO struct {
	OrderID            string `json:"order_id"`
	Remaining          int    `json:"remaining_tiffins"`
	ProjectedEndDate   string `json:"projected_end_date"`
	SuggestedStartDate string `json:"suggested_start_date"`
}

// OfferDTO represents a stored renewal offer resolved from its token.
type OfferDTO struct {
	Token     string `json:"token"`
	OrderID   string `json:"order_id"`
	PlanName  string `json:"plan_name"`
	Units     int    `json:"units"`
	Price     string `json:"price"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	ExpiresAt string `json:"expires_at"`
}

// =============================================================================
// ADMIN TYPES
// =============================================================================

// JobSummaryDTO reports a daily snapshot run.
type JobSummaryDTO struct {
	RunID     string `json:"run_id"`
	Date      string `json:"date"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Completed int    `json:"completed"`
}

// ScanSummaryDTO reports a renewal reminder sweep.
type ScanSummaryDTO struct {
	Offered int `json:"offered"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
