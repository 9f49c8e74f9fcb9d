// Package memory provides an in-memory order repository for tests and
// development. It implements tiffin.OrderRepository,
// tiffin.StatusEventLog and renewal.OfferStore with the same contracts
// as the SQLite store, including per-order write serialization.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/tiffin-engine/calendar"
	"github.com/warp/tiffin-engine/renewal"
	"github.com/warp/tiffin-engine/tiffin"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu     sync.RWMutex
	orders map[tiffin.OrderID]*tiffin.Order
	events map[tiffin.OrderID][]tiffin.StatusEvent
	offers map[string]renewal.Offer

	// order of insertion, so ListActiveOrders is deterministic
	ids []tiffin.OrderID
}

func New() *Store {
	return &Store{
		orders: make(map[tiffin.OrderID]*tiffin.Order),
		events: make(map[tiffin.OrderID][]tiffin.StatusEvent),
		offers: make(map[string]renewal.Offer),
	}
}

// AddOrder seeds an order. Copies the value so callers can't mutate
// stored state from outside.
func (s *Store) AddOrder(o tiffin.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := copyOrder(&o)
	if _, exists := s.orders[o.ID]; !exists {
		s.ids = append(s.ids, o.ID)
	}
	s.orders[o.ID] = cp
}

// AddStatusEvent seeds a status transition, kept in chronological
// order.
func (s *Store) AddStatusEvent(id tiffin.OrderID, ev tiffin.StatusEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	evs := append(s.events[id], ev)
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].At.Before(evs[j].At) })
	s.events[id] = evs
}

// SaveOrder stores a new order. The memory store does not seed
// override history; tests seed history explicitly when they need it.
func (s *Store) SaveOrder(_ context.Context, o tiffin.Order, _ calendar.DeliveryWindow, _ time.Time, _ *time.Location) error {
	s.AddOrder(o)
	return nil
}

// RecordStatusEvent appends an observed transition.
func (s *Store) RecordStatusEvent(_ context.Context, id tiffin.OrderID, ev tiffin.StatusEvent, _ string) error {
	s.AddStatusEvent(id, ev)
	return nil
}

// =============================================================================
// tiffin.OrderRepository
// =============================================================================

func (s *Store) GetOrder(_ context.Context, id tiffin.OrderID) (*tiffin.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, tiffin.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (s *Store) ListActiveOrders(_ context.Context) ([]tiffin.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []tiffin.Order
	for _, id := range s.ids {
		o := s.orders[id]
		if o.Status.Terminal() {
			continue
		}
		out = append(out, *copyOrder(o))
	}
	return out, nil
}

func (s *Store) UpdateMetadata(_ context.Context, id tiffin.OrderID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return tiffin.ErrOrderNotFound
	}
	if o.Metadata == nil {
		o.Metadata = make(map[string]string)
	}
	o.Metadata[key] = value
	return nil
}

func (s *Store) UpdateStatus(_ context.Context, id tiffin.OrderID, status tiffin.Status, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return tiffin.ErrOrderNotFound
	}
	o.Status = status
	_ = note // the memory store keeps no audit log
	return nil
}

// =============================================================================
// tiffin.StatusEventLog
// =============================================================================

func (s *Store) StatusEvents(_ context.Context, id tiffin.OrderID) ([]tiffin.StatusEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]tiffin.StatusEvent, len(s.events[id]))
	copy(out, s.events[id])
	return out, nil
}

// =============================================================================
// renewal.OfferStore
// =============================================================================

func (s *Store) SaveOffer(_ context.Context, o renewal.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers[o.Token] = o
	return nil
}

func (s *Store) GetOffer(_ context.Context, token string) (*renewal.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.offers[token]
	if !ok {
		return nil, renewal.ErrOfferNotFound
	}
	return &o, nil
}

func copyOrder(o *tiffin.Order) *tiffin.Order {
	cp := *o
	cp.Metadata = make(map[string]string, len(o.Metadata))
	for k, v := range o.Metadata {
		cp.Metadata[k] = v
	}
	cp.LineItems = make([]tiffin.LineItem, len(o.LineItems))
	for i, item := range o.LineItems {
		itemCp := item
		itemCp.Metadata = make(map[string]string, len(item.Metadata))
		for k, v := range item.Metadata {
			itemCp.Metadata[k] = v
		}
		cp.LineItems[i] = itemCp
	}
	return &cp
}
