/*
Package sqlite provides the SQLite-backed order store.

PURPOSE:
  Implements tiffin.OrderRepository, tiffin.StatusEventLog and
  renewal.OfferStore on SQLite. The engine sees the order system only
  through those interfaces; this package is where orders, line items,
  metadata, status events and renewal offers actually live.

KEY TABLES:
  orders          Order header (status, customer contact)
  order_items     Line items with a JSON metadata blob
  order_meta      Order-level metadata key/value pairs
  status_events   Append-only status transition log with audit notes
  renewal_offers  Offers keyed by opaque token

WRITE SERIALIZATION:
  A process-wide mutex serializes writes, which satisfies the daily
  job's per-order serialization requirement. With a server-grade
  database the same guarantee would come from row locking.

WAL MODE:
  The database is opened with WAL so dashboard reads don't block the
  daily job's writes.

SEE ALSO:
  - tiffin/order.go: the interfaces implemented here
  - store/memory: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/tiffin-engine/calendar"
	"github.com/warp/tiffin-engine/renewal"
	"github.com/warp/tiffin-engine/tiffin"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the database at dbPath. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: ":memory:" gives every pooled connection its own
	// database, and writes are serialized process-wide anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		first_name TEXT,
		phone TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS order_items (
		order_id TEXT NOT NULL REFERENCES orders(id),
		position INTEGER NOT NULL,
		product_id TEXT,
		product_name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		total TEXT NOT NULL,
		metadata_json TEXT,
		PRIMARY KEY (order_id, position)
	);

	CREATE TABLE IF NOT EXISTS order_meta (
		order_id TEXT NOT NULL REFERENCES orders(id),
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (order_id, key)
	);

	-- Append-only: transitions are recorded, never edited.
	CREATE TABLE IF NOT EXISTS status_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id TEXT NOT NULL REFERENCES orders(id),
		at TEXT NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		note TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_status_events_order
		ON status_events(order_id, at);

	CREATE TABLE IF NOT EXISTS renewal_offers (
		token TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		plan_name TEXT NOT NULL,
		units INTEGER NOT NULL,
		price TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		expires_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ORDER WRITES (order-entry workflow)
// =============================================================================

// SaveOrder inserts a new order with its items and metadata. When the
// order carries an initial remaining override, a day-zero history entry
// is seeded so the first daily run advances from it instead of
// replaying from scratch. loc is the business timezone; the seeded
// entry is keyed by the creation instant's calendar day there.
func (s *Store) SaveOrder(ctx context.Context, o tiffin.Order, window calendar.DeliveryWindow, createdAt time.Time, loc *time.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, status, first_name, phone, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(o.ID), string(o.Status), o.Customer.FirstName, o.Customer.Phone,
		createdAt.UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}

	for i, item := range o.LineItems {
		metaJSON, err := json.Marshal(item.Metadata)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, position, product_id, product_name, quantity, total, metadata_json)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(o.ID), i, item.ProductID, item.ProductName, item.Quantity,
			item.Total.String(), string(metaJSON))
		if err != nil {
			return err
		}
	}

	meta := make(map[string]string, len(o.Metadata))
	for k, v := range o.Metadata {
		meta[k] = v
	}

	// Initial "remaining" override, written once at order creation.
	if raw, ok := meta[tiffin.MetaRemainingOverride]; ok {
		if seeded, err := seedHistory(raw, window, createdAt, loc); err == nil {
			meta[tiffin.MetaCountHistory] = seeded
		}
	}

	for k, v := range meta {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_meta (order_id, key, value) VALUES (?, ?, ?)`,
			string(o.ID), k, v); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func seedHistory(rawOverride string, window calendar.DeliveryWindow, createdAt time.Time, loc *time.Location) (string, error) {
	var remaining int
	if _, err := fmt.Sscanf(rawOverride, "%d", &remaining); err != nil || remaining < 0 {
		return "", fmt.Errorf("unusable remaining override %q", rawOverride)
	}
	h := tiffin.CountHistory{}
	day := calendar.DateOf(createdAt, loc)
	h[day.String()] = tiffin.HistoryEntry{
		RemainingTiffins: remaining,
		DeliveryDays:     window.Days().Ints(),
		BoxesDelivered:   0,
	}
	return h.Encode()
}

// =============================================================================
// tiffin.OrderRepository
// =============================================================================

func (s *Store) GetOrder(ctx context.Context, id tiffin.OrderID) (*tiffin.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, first_name, phone FROM orders WHERE id = ?`, string(id))

	var o tiffin.Order
	var idStr, status string
	if err := row.Scan(&idStr, &status, &o.Customer.FirstName, &o.Customer.Phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tiffin.ErrOrderNotFound
		}
		return nil, err
	}
	o.ID = tiffin.OrderID(idStr)
	o.Status = tiffin.Status(status)

	if err := s.loadItems(ctx, &o); err != nil {
		return nil, err
	}
	if err := s.loadMeta(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) ListActiveOrders(ctx context.Context) ([]tiffin.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM orders WHERE status NOT IN (?, ?, ?) ORDER BY created_at, id`,
		string(tiffin.StatusCompleted), string(tiffin.StatusCancelled), string(tiffin.StatusRefunded))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []tiffin.OrderID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, tiffin.OrderID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]tiffin.Order, 0, len(ids))
	for _, id := range ids {
		o, err := s.GetOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, nil
}

func (s *Store) UpdateMetadata(ctx context.Context, id tiffin.OrderID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = ?`, string(id)).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return tiffin.ErrOrderNotFound
	}
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO order_meta (order_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(order_id, key) DO UPDATE SET value = excluded.value`,
		string(id), key, value)
	return err
}

// UpdateStatus transitions the order and appends the audit note to the
// status event log in one transaction.
func (s *Store) UpdateStatus(ctx context.Context, id tiffin.OrderID, status tiffin.Status, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, string(id)).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return tiffin.ErrOrderNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE id = ?`, string(status), string(id)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO status_events (order_id, at, from_status, to_status, note) VALUES (?, ?, ?, ?, ?)`,
		string(id), time.Now().UTC().Format(time.RFC3339), current, string(status), note); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordStatusEvent appends an externally observed transition (used by
// the order-entry workflow for pause/resume).
func (s *Store) RecordStatusEvent(ctx context.Context, id tiffin.OrderID, ev tiffin.StatusEvent, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO status_events (order_id, at, from_status, to_status, note) VALUES (?, ?, ?, ?, ?)`,
		string(id), ev.At.UTC().Format(time.RFC3339), string(ev.From), string(ev.To), note)
	return err
}

// =============================================================================
// tiffin.StatusEventLog
// =============================================================================

func (s *Store) StatusEvents(ctx context.Context, id tiffin.OrderID) ([]tiffin.StatusEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, from_status, to_status FROM status_events WHERE order_id = ? ORDER BY at, id`,
		string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tiffin.StatusEvent
	for rows.Next() {
		var at, from, to string
		if err := rows.Scan(&at, &from, &to); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return nil, fmt.Errorf("bad status event timestamp %q: %w", at, err)
		}
		out = append(out, tiffin.StatusEvent{
			At:   t,
			From: tiffin.Status(from),
			To:   tiffin.Status(to),
		})
	}
	return out, rows.Err()
}

// =============================================================================
// renewal.OfferStore
// =============================================================================

func (s *Store) SaveOffer(ctx context.Context, o renewal.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO renewal_offers (token, order_id, plan_name, units, price, start_date, end_date, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Token, string(o.OrderID), o.PlanName, o.Units, o.Price.String(),
		o.StartDate.String(), o.EndDate.String(),
		o.CreatedAt.UTC().Format(time.RFC3339), o.ExpiresAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) GetOffer(ctx context.Context, token string) (*renewal.Offer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT token, order_id, plan_name, units, price, start_date, end_date, created_at, expires_at
		 FROM renewal_offers WHERE token = ?`, token)

	var o renewal.Offer
	var orderID, price, startDate, endDate, createdAt, expiresAt string
	err := row.Scan(&o.Token, &orderID, &o.PlanName, &o.Units, &price, &startDate, &endDate, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, renewal.ErrOfferNotFound
	}
	if err != nil {
		return nil, err
	}

	o.OrderID = tiffin.OrderID(orderID)
	if o.Price, err = decimal.NewFromString(price); err != nil {
		return nil, err
	}
	if o.StartDate, err = calendar.ParseDate(startDate); err != nil {
		return nil, err
	}
	if o.EndDate, err = calendar.ParseDate(endDate); err != nil {
		return nil, err
	}
	if o.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, err
	}
	if o.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
		return nil, err
	}
	return &o, nil
}

// =============================================================================
// ROW LOADING
// =============================================================================

func (s *Store) loadItems(ctx context.Context, o *tiffin.Order) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, product_name, quantity, total, metadata_json
		 FROM order_items WHERE order_id = ? ORDER BY position`, string(o.ID))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item tiffin.LineItem
		var total string
		var metaJSON sql.NullString
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &total, &metaJSON); err != nil {
			return err
		}
		if item.Total, err = decimal.NewFromString(total); err != nil {
			return err
		}
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &item.Metadata); err != nil {
				return err
			}
		}
		o.LineItems = append(o.LineItems, item)
	}
	return rows.Err()
}

func (s *Store) loadMeta(ctx context.Context, o *tiffin.Order) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM order_meta WHERE order_id = ?`, string(o.ID))
	if err != nil {
		return err
	}
	defer rows.Close()

	o.Metadata = make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		o.Metadata[k] = v
	}
	return rows.Err()
}
