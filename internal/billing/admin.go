package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/scanbill/internal/models"
	"github.com/mmynk/scanbill/internal/storage"
)

// Admin operations trust the authorized flag supplied by the caller and
// fail with storage.ErrUnauthorized when it is false.

// ListItems returns every item joined with its bill.
func (s *Service) ListItems(ctx context.Context, authorized bool) ([]models.JoinedItem, error) {
	if !authorized {
		return nil, storage.ErrUnauthorized
	}
	items, err := s.ledger.AllItemsJoined(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// GetItem returns a single joined item.
func (s *Service) GetItem(ctx context.Context, authorized bool, itemID int64) (*models.JoinedItem, error) {
	if !authorized {
		return nil, storage.ErrUnauthorized
	}
	item, err := s.ledger.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get item %d: %w", itemID, err)
	}
	return item, nil
}

// UpdateItem overwrites an item's editable fields. The price is rounded to
// cents and must lie within [0, models.MaxPrice].
func (s *Service) UpdateItem(ctx context.Context, authorized bool, itemID int64, upd models.ItemUpdate) error {
	if !authorized {
		return storage.ErrUnauthorized
	}
	upd.Price = upd.Price.Round(2)
	if !models.PriceInRange(upd.Price) {
		return fmt.Errorf("%w: price %s outside [0, %s]", ErrInvalidItem, upd.Price, models.MaxPrice.StringFixed(2))
	}

	if err := s.ledger.UpdateItem(ctx, itemID, upd); err != nil {
		return fmt.Errorf("failed to update item %d: %w", itemID, err)
	}
	slog.Info("Item updated", "item_id", itemID, "price", upd.Price.StringFixed(2))
	return nil
}

// DeleteItem removes an item, and its bill with it if it was the last one.
func (s *Service) DeleteItem(ctx context.Context, authorized bool, itemID int64) (bool, error) {
	if !authorized {
		return false, storage.ErrUnauthorized
	}
	billDeleted, err := s.ledger.DeleteItem(ctx, itemID)
	if err != nil {
		return false, fmt.Errorf("failed to delete item %d: %w", itemID, err)
	}
	return billDeleted, nil
}

// ResetAll irreversibly discards the whole ledger.
func (s *Service) ResetAll(ctx context.Context, authorized bool) error {
	if !authorized {
		return storage.ErrUnauthorized
	}
	if err := s.ledger.ResetAll(ctx); err != nil {
		return fmt.Errorf("failed to reset ledger: %w", err)
	}
	slog.Warn("Ledger reset")
	return nil
}

// Snapshot returns the raw serialized ledger for whole-database export.
func (s *Service) Snapshot(ctx context.Context, authorized bool) ([]byte, error) {
	if !authorized {
		return nil, storage.ErrUnauthorized
	}
	data, err := s.ledger.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot ledger: %w", err)
	}
	return data, nil
}
