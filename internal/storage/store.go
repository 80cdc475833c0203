// Package storage provides abstractions for the persisted billing ledger.
package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/scanbill/internal/models"
)

// LedgerKey is the fixed blob store key the ledger is persisted under.
const LedgerKey = "billing_db"

// DefaultRecentLimit is used by RecentBills when limit is not positive.
const DefaultRecentLimit = 10

// Ledger defines the interface for bill ledger operations.
//
// Every mutating method persists the full ledger before returning. A method
// either fully succeeds, persist included, or returns an error and leaves
// the ledger as it was. Implementations serialize all calls.
type Ledger interface {
	// CreateBill inserts bill and its items in one transaction and persists.
	// bill.ID and each item's ID and BillID are populated by the store.
	CreateBill(ctx context.Context, bill *models.Bill) error

	// DailyStats aggregates the bills dated on day's calendar date.
	DailyStats(ctx context.Context, day time.Time) (models.DailyStats, error)

	// LifetimeRevenue sums TotalAmount over all bills.
	LifetimeRevenue(ctx context.Context) (decimal.Decimal, error)

	// RecentBills lists bills newest first with item counts.
	RecentBills(ctx context.Context, limit int) ([]models.BillSummary, error)

	// AllItemsJoined lists every item with its bill, newest bill first,
	// then by bill and item insertion order.
	AllItemsJoined(ctx context.Context) ([]models.JoinedItem, error)

	// GetItem returns one joined item row, or ErrNotFound.
	GetItem(ctx context.Context, itemID int64) (*models.JoinedItem, error)

	// UpdateItem overwrites an item's editable fields and recomputes the
	// owning bill's total. Returns ErrNotFound if the item does not exist.
	UpdateItem(ctx context.Context, itemID int64, upd models.ItemUpdate) error

	// DeleteItem removes an item. The owning bill is deleted with its last
	// item, otherwise its total is recomputed. billDeleted reports which.
	DeleteItem(ctx context.Context, itemID int64) (billDeleted bool, err error)

	// ResetAll drops all data and recreates an empty schema.
	ResetAll(ctx context.Context) error

	// Snapshot returns the serialized ledger as last persisted.
	Snapshot(ctx context.Context) ([]byte, error)

	// Close releases any resources held by the ledger.
	Close() error
}
