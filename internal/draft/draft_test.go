package draft

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/scanbill/internal/models"
)

const code = "178325003001100101265"

func TestAddScanned(t *testing.T) {
	d := New()

	if !d.AddScanned(code) {
		t.Fatal("expected first scan to add a line")
	}
	if d.AddScanned(code) {
		t.Error("duplicate scan must be a no-op")
	}
	if !d.AddScanned("999999888881111") {
		t.Error("expected a different code to add a line")
	}

	lines := d.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].ProductID != code || lines[0].PSUCode != "178325" || lines[0].Weight != "00300" {
		t.Errorf("unexpected first line: %+v", lines[0])
	}
	if !lines[0].Price.IsZero() {
		t.Errorf("expected zero price, got %s", lines[0].Price)
	}
}

func TestAddScannedNeverDuplicates(t *testing.T) {
	d := New()
	scans := []string{"a", "b", "a", "c", "b", "a", "short", "c"}
	for _, s := range scans {
		d.AddScanned(s)
	}

	seen := map[string]bool{}
	for _, l := range d.Lines() {
		if seen[l.ProductID] {
			t.Errorf("duplicate line %q", l.ProductID)
		}
		seen[l.ProductID] = true
	}
	if d.Len() != 4 {
		t.Errorf("expected 4 lines, got %d", d.Len())
	}
}

func TestSetPrice(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"45.50", "45.5"},
		{"10", "10"},
		{"0.015", "0.02"},
		{"-3", "0"},
		{"abc", "0"},
		{"", "0"},
		{"999999999.99", "999999999.99"},
		{"999999999.995", "0"},
		{"1000000000", "0"},
		{"123456789012345678.91", "0"},
		{"1e400", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			d := New()
			d.AddScanned(code)
			if err := d.SetPrice(0, tt.raw); err != nil {
				t.Fatalf("SetPrice failed: %v", err)
			}
			if got := d.Lines()[0].Price; !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("price = %s, want %s", got, tt.want)
			}
		})
	}

	t.Run("index out of range", func(t *testing.T) {
		d := New()
		if err := d.SetPrice(0, "1"); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("expected ErrIndexOutOfRange on empty draft, got %v", err)
		}
		d.AddScanned(code)
		for _, i := range []int{1, -1} {
			if err := d.SetPrice(i, "1"); !errors.Is(err, ErrIndexOutOfRange) {
				t.Errorf("SetPrice(%d): expected ErrIndexOutOfRange, got %v", i, err)
			}
		}
	})
}

func TestParsePriceStaysInRange(t *testing.T) {
	for _, raw := range []string{"1e400", "-1e400", "9999999999", "NaN", "Infinity"} {
		if p := ParsePrice(raw); !models.PriceInRange(p) {
			t.Errorf("ParsePrice(%q) = %s, outside [0, %s]", raw, p, models.MaxPrice)
		}
	}
	if p := ParsePrice(models.MaxPrice.String()); !p.Equal(models.MaxPrice) {
		t.Errorf("ParsePrice(max) = %s, want %s", p, models.MaxPrice)
	}
}

func TestRemoveAtShiftsLines(t *testing.T) {
	d := New()
	for _, s := range []string{"a", "b", "c", "d"} {
		d.AddScanned(s)
	}
	if err := d.SetPrice(2, "3"); err != nil {
		t.Fatalf("SetPrice failed: %v", err)
	}

	if err := d.RemoveAt(1); err != nil {
		t.Fatalf("RemoveAt failed: %v", err)
	}

	lines := d.Lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, want := range []string{"a", "c", "d"} {
		if lines[i].ProductID != want {
			t.Errorf("line %d = %q, want %q", i, lines[i].ProductID, want)
		}
	}
	// "c" moved from index 2 to 1 with its price.
	if !lines[1].Price.Equal(decimal.NewFromInt(3)) {
		t.Errorf("shifted price = %s, want 3", lines[1].Price)
	}

	if err := d.SetPrice(1, "7"); err != nil {
		t.Fatalf("SetPrice failed: %v", err)
	}
	if got := d.Lines()[1].Price; !got.Equal(decimal.NewFromInt(7)) {
		t.Errorf("price = %s, want 7", got)
	}
	if err := d.RemoveAt(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestCanCommit(t *testing.T) {
	d := New()
	if d.CanCommit(true) || d.Reason(true) != "no items in bill" {
		t.Errorf("empty draft: CanCommit=%v reason=%q", d.CanCommit(true), d.Reason(true))
	}

	d.AddScanned("a")
	d.AddScanned("b")
	if d.CanCommit(true) || d.Reason(true) != "bill total is zero" {
		t.Errorf("zero total: CanCommit=%v reason=%q", d.CanCommit(true), d.Reason(true))
	}

	if err := d.SetPrice(0, "10"); err != nil {
		t.Fatalf("SetPrice failed: %v", err)
	}
	if err := d.SetPrice(1, "20"); err != nil {
		t.Fatalf("SetPrice failed: %v", err)
	}
	if !d.Total().Equal(decimal.NewFromInt(30)) {
		t.Errorf("total = %s, want 30", d.Total())
	}
	if d.CanCommit(false) || d.Reason(false) != "payment not confirmed" {
		t.Errorf("unconfirmed: CanCommit=%v reason=%q", d.CanCommit(false), d.Reason(false))
	}
	if !d.CanCommit(true) {
		t.Error("expected confirmed draft to be committable")
	}

	d.Clear()
	if d.Len() != 0 || !d.Total().IsZero() {
		t.Errorf("expected empty draft after Clear, got %d lines total %s", d.Len(), d.Total())
	}
}
