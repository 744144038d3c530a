package store

import (
	"fmt"

	"github.com/mpannell/strmsync/internal/models"
)

// UpsertFailedItem records one item failure. A later failure of the same
// item replaces the earlier record, so the table never accumulates
// duplicates for a flapping item.
func (s *Store) UpsertFailedItem(item models.FailedItem) error {
	_, err := s.db.Exec(`
		INSERT INTO failed_items (run_id, item_type, item_id, name, category_id, extension, error, failed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_type, item_id) DO UPDATE SET
			run_id = excluded.run_id,
			name = excluded.name,
			category_id = excluded.category_id,
			extension = excluded.extension,
			error = excluded.error,
			failed_at = excluded.failed_at`,
		item.RunID, item.Type, item.ItemID, item.Name, item.CategoryID, item.Extension, item.Error, item.FailedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record failed item %d: %w", item.ItemID, err)
	}
	return nil
}

// ListFailedItems returns every recorded failure, oldest first.
func (s *Store) ListFailedItems() ([]models.FailedItem, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, item_type, item_id, name, category_id, extension, error, failed_at
		FROM failed_items ORDER BY failed_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed items: %w", err)
	}
	defer rows.Close()

	var items []models.FailedItem
	for rows.Next() {
		var item models.FailedItem
		if err := rows.Scan(
			&item.ID, &item.RunID, &item.Type, &item.ItemID, &item.Name,
			&item.CategoryID, &item.Extension, &item.Error, &item.FailedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ResolveFailedItem removes one failure record after a successful retry or
// after the item disappeared from the catalog.
func (s *Store) ResolveFailedItem(itemType models.ItemType, itemID int64) error {
	_, err := s.db.Exec("DELETE FROM failed_items WHERE item_type = ? AND item_id = ?", itemType, itemID)
	if err != nil {
		return fmt.Errorf("failed to resolve failed item %d: %w", itemID, err)
	}
	return nil
}

// ClearFailedItems empties the failure table.
func (s *Store) ClearFailedItems() error {
	if _, err := s.db.Exec("DELETE FROM failed_items"); err != nil {
		return fmt.Errorf("failed to clear failed items: %w", err)
	}
	return nil
}
