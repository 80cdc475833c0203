// Package draft holds the in-progress bill being assembled at the counter.
package draft

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/scanbill/internal/barcode"
	"github.com/mmynk/scanbill/internal/models"
)

// ErrIndexOutOfRange is returned for a line index outside the draft.
var ErrIndexOutOfRange = errors.New("line index out of range")

// Line is one scanned product awaiting a price.
type Line struct {
	ProductID string
	PSUCode   string
	Weight    string
	Price     decimal.Decimal
}

// Draft is an ordered, duplicate-free sequence of lines.
// It is not safe for concurrent use; the owning session serializes access.
type Draft struct {
	lines []Line
}

// New returns an empty draft.
func New() *Draft {
	return &Draft{}
}

// AddScanned appends a line for productID at price zero. It reports false
// without changing the draft if productID is already present.
func (d *Draft) AddScanned(productID string) bool {
	if d.indexOf(productID) >= 0 {
		return false
	}

	code := barcode.Parse(productID)
	slog.Debug("Parsed product code",
		"psu_code", code.PSUCode,
		"weight", code.Weight,
		"branch_code", code.BranchCode,
		"unique_id", code.UniqueID,
		"complete", code.Complete(),
	)

	d.lines = append(d.lines, Line{
		ProductID: productID,
		PSUCode:   code.PSUCode,
		Weight:    code.Weight,
		Price:     decimal.Zero,
	})
	return true
}

// SetPrice sets the price of the line at index from raw user input.
// Negative, non-numeric or out-of-range input is stored as zero; valid input
// is rounded to cents.
func (d *Draft) SetPrice(index int, raw string) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	d.lines[index].Price = ParsePrice(raw)
	return nil
}

// RemoveAt deletes the line at index; later lines shift down by one.
func (d *Draft) RemoveAt(index int) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	d.lines = append(d.lines[:index], d.lines[index+1:]...)
	return nil
}

// Total is the sum of all line prices.
func (d *Draft) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range d.lines {
		total = total.Add(l.Price)
	}
	return total
}

// CanCommit reports whether the draft may become a bill.
func (d *Draft) CanCommit(paymentConfirmed bool) bool {
	return d.Reason(paymentConfirmed) == ""
}

// Reason explains why the draft cannot be committed, or "" if it can.
func (d *Draft) Reason(paymentConfirmed bool) string {
	switch {
	case len(d.lines) == 0:
		return "no items in bill"
	case !d.Total().IsPositive():
		return "bill total is zero"
	case !paymentConfirmed:
		return "payment not confirmed"
	default:
		return ""
	}
}

// Lines returns a copy of the draft lines in order.
func (d *Draft) Lines() []Line {
	out := make([]Line, len(d.lines))
	copy(out, d.lines)
	return out
}

// Len is the number of lines.
func (d *Draft) Len() int {
	return len(d.lines)
}

// Clear empties the draft.
func (d *Draft) Clear() {
	d.lines = nil
}

// ParsePrice converts raw price input into an amount in cents precision
// within [0, models.MaxPrice]. Anything else yields zero.
func ParsePrice(raw string) decimal.Decimal {
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	v = v.Round(2)
	if !models.PriceInRange(v) {
		return decimal.Zero
	}
	return v
}

func (d *Draft) indexOf(productID string) int {
	for i, l := range d.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (d *Draft) checkIndex(index int) error {
	if index < 0 || index >= len(d.lines) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, index, len(d.lines))
	}
	return nil
}
