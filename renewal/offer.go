/*
offer.go - Renewal offer construction and reminder dispatch

PURPOSE:
  BuildOffer is the gate-and-build operation: it checks the reminder
  policy (threshold reached, not already sent, not excluded), projects
  the plan's completion date, persists an offer record keyed by an
  opaque token, marks the order reminder-sent, and hands the
  notification payload to the transport.

ORDERING:
  mark-sent happens BEFORE Send. Delivery is at-most-once: a transport
  failure is logged as a durable record for manual follow-up, never
  retried here, and never unsets the flag.
*/
package renewal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/tiffin-engine/calendar"
	"github.com/warp/tiffin-engine/tiffin"
)

// =============================================================================
// OFFER - persisted record behind the renewal link
// =============================================================================

// Offer is the serialized record an opaque renewal token resolves to.
type Offer struct {
	Token     string
	OrderID   tiffin.OrderID
	PlanName  string
	Units     int
	Price     decimal.Decimal
	StartDate calendar.Date // suggested start of the renewed plan
	EndDate   calendar.Date // projected completion of the current plan
	CreatedAt time.Time
	ExpiresAt time.Time
}

// OfferStore persists offers for later redemption.
type OfferStore interface {
	SaveOffer(ctx context.Context, o Offer) error
	GetOffer(ctx context.Context, token string) (*Offer, error)
}

// =============================================================================
// NOTIFICATION - outbound payload, delivery is external
// =============================================================================

// Notification is the payload handed to the messaging transport. The
// engine constructs it; it never sends anything itself.
type Notification struct {
	Phone          string
	FirstName      string
	RemainingUnits int
	EndDate        string
	NewStartDate   string
	PlanName       string
	RenewalLink    string
}

// Notifier is the external messaging transport.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// LogNotifier is the default transport: it records the payload and
// delivers nothing. Useful in development and as the fallback when no
// real transport is wired.
type LogNotifier struct {
	Log *zap.Logger
}

func (l *LogNotifier) Send(_ context.Context, n Notification) error {
	l.Log.Info("renewal notification (log transport, not delivered)",
		zap.String("phone", n.Phone),
		zap.String("plan", n.PlanName),
		zap.Int("remaining", n.RemainingUnits),
		zap.String("link", n.RenewalLink))
	return nil
}

// =============================================================================
// PLANNER
// =============================================================================

// Config is the reminder policy, read once from the loaded
// configuration.
type Config struct {
	Enabled           bool
	Threshold         int
	ExcludeTrialMeals bool
	ExcludedProducts  []string
	LinkBase          string        // renewal link prefix, token is appended
	OfferTTL          time.Duration // how long an offer token stays valid
}

// Planner builds and dispatches renewal offers.
type Planner struct {
	Repo     tiffin.OrderRepository
	Events   tiffin.StatusEventLog
	Offers   OfferStore
	Notifier Notifier
	Engine   tiffin.Engine
	Config   Config
	Log      *zap.Logger
}

// BuildOffer runs the full gate-project-persist-notify sequence for
// one order. Gating failures come back as the sentinel errors in
// errors.go; callers scanning many orders treat those as skips.
func (p *Planner) BuildOffer(ctx context.Context, id tiffin.OrderID, now time.Time) (*Offer, error) {
	o, err := p.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	s, err := tiffin.ParseOrderSchedule(o)
	if err != nil {
		return nil, err
	}
	if err := p.checkExclusions(o, s); err != nil {
		return nil, err
	}
	if _, sent := o.MetaValue(tiffin.MetaReminderSent); sent {
		return nil, ErrReminderAlreadySent
	}

	remaining, err := p.Engine.RemainingAsOf(o, now)
	if err != nil {
		return nil, err
	}
	if remaining > p.Config.Threshold || remaining <= 0 {
		return nil, ErrNotAtThreshold
	}

	today := p.Engine.Cutoff.Today(now)
	endDate, ok := ProjectEndDate(remaining, s.PreferredDays, p.Engine.Window, today)
	if !ok {
		return nil, ErrNoProjectableEnd
	}
	startDate := NextBusinessStart(endDate.AddDays(1))

	offer := Offer{
		Token:     uuid.NewString(),
		OrderID:   o.ID,
		PlanName:  s.PlanName,
		Units:     s.TotalUnits,
		Price:     planPrice(o),
		StartDate: startDate,
		EndDate:   endDate,
		CreatedAt: now,
		ExpiresAt: now.Add(p.Config.OfferTTL),
	}
	if err := p.Offers.SaveOffer(ctx, offer); err != nil {
		return nil, fmt.Errorf("persisting offer: %w", err)
	}

	// Mark sent before dispatch: at-most-once.
	if err := p.Repo.UpdateMetadata(ctx, o.ID, tiffin.MetaReminderSent, "yes"); err != nil {
		return nil, fmt.Errorf("marking reminder sent: %w", err)
	}

	n := Notification{
		Phone:          o.Customer.Phone,
		FirstName:      o.Customer.FirstName,
		RemainingUnits: remaining,
		EndDate:        endDate.String(),
		NewStartDate:   startDate.String(),
		PlanName:       s.PlanName,
		RenewalLink:    strings.TrimRight(p.Config.LinkBase, "/") + "/" + offer.Token,
	}
	if err := p.Notifier.Send(ctx, n); err != nil {
		p.Log.Error("renewal notification transport failed, reminder stays marked sent",
			zap.String("order_id", string(o.ID)),
			zap.String("token", offer.Token),
			zap.Error(err))
	}

	return &offer, nil
}

// ScanSummary reports a renewal sweep over all active orders.
type ScanSummary struct {
	Offered int
	Skipped int
	Failed  int
}

// Scan walks the active orders and builds an offer for each one at the
// threshold. Gating sentinels count as skips; real failures are logged
// and do not abort the sweep.
func (p *Planner) Scan(ctx context.Context, now time.Time) (ScanSummary, error) {
	var summary ScanSummary
	if !p.Config.Enabled {
		return summary, nil
	}

	orders, err := p.Repo.ListActiveOrders(ctx)
	if err != nil {
		return summary, fmt.Errorf("listing active orders: %w", err)
	}

	for i := range orders {
		_, err := p.BuildOffer(ctx, orders[i].ID, now)
		switch {
		case err == nil:
			summary.Offered++
		case isGatingError(err):
			summary.Skipped++
		default:
			summary.Failed++
			p.Log.Error("renewal offer failed",
				zap.String("order_id", string(orders[i].ID)),
				zap.Error(err))
		}
	}
	return summary, nil
}

func isGatingError(err error) bool {
	for _, sentinel := range []error{
		ErrNotAtThreshold, ErrReminderAlreadySent, ErrExcluded,
		ErrNoProjectableEnd, tiffin.ErrMissingSchedule,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func (p *Planner) checkExclusions(o *tiffin.Order, s tiffin.Schedule) error {
	if p.Config.ExcludeTrialMeals && strings.Contains(strings.ToLower(s.PlanName), "trial") {
		return ErrExcluded
	}
	for _, item := range o.LineItems {
		for _, excluded := range p.Config.ExcludedProducts {
			if item.ProductID == excluded {
				return ErrExcluded
			}
		}
	}
	return nil
}

// planPrice resolves the plan line's price, preferring the line item
// carrying the unit-count field.
func planPrice(o *tiffin.Order) decimal.Decimal {
	for _, item := range o.LineItems {
		if v, ok := item.Metadata[tiffin.MetaTiffinCount]; ok && v != "" {
			return item.Total
		}
	}
	if len(o.LineItems) > 0 {
		return o.LineItems[0].Total
	}
	return decimal.Zero
}
