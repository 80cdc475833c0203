package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillDateLayout is the ISO-8601 layout bill dates are stored with.
// It matches the millisecond UTC form used by browsers' toISOString.
const BillDateLayout = "2006-01-02T15:04:05.000Z"

// Bill represents one finalized transaction.
type Bill struct {
	// ID is assigned by the store on commit.
	ID int64

	// BillDate is the ISO-8601 commit timestamp. Immutable.
	BillDate string

	// TotalAmount is the sum of Items' prices.
	TotalAmount decimal.Decimal

	// Items are the priced lines belonging to this bill.
	Items []BillItem
}

// MaxPrice is the largest accepted item price.
var MaxPrice = decimal.RequireFromString("999999999.99")

// PriceInRange reports whether p is a non-negative price no larger than MaxPrice.
func PriceInRange(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(MaxPrice)
}

// FormatBillDate renders t in BillDateLayout.
func FormatBillDate(t time.Time) string {
	return t.UTC().Format(BillDateLayout)
}

// BillItem represents one priced product line within a Bill.
type BillItem struct {
	ID     int64
	BillID int64

	// ProductID is the raw decoded scan string.
	ProductID string

	// PSUCode and Weight are fixed-position substrings of ProductID.
	PSUCode string
	Weight  string

	Price decimal.Decimal
}

// ItemUpdate carries the administratively editable fields of a BillItem.
type ItemUpdate struct {
	PSUCode string
	Weight  string
	Price   decimal.Decimal
}

// BillSummary is a Bill annotated with its item count.
type BillSummary struct {
	ID          int64
	BillDate    string
	TotalAmount decimal.Decimal
	ItemCount   int
}

// JoinedItem is a BillItem joined with its owning Bill's date and total.
// This is the row shape consumed by the admin table and exports.
type JoinedItem struct {
	ItemID      int64
	BillID      int64
	BillDate    string
	TotalAmount decimal.Decimal
	ProductID   string
	PSUCode     string
	Weight      string
	Price       decimal.Decimal
}

// DailyStats aggregates the bills whose date falls on a single calendar day.
type DailyStats struct {
	Date      string
	ItemCount int
	Revenue   decimal.Decimal
	BillCount int
}
