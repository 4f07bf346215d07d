package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"requisas/model"
)

func GetInventoryItems(db *sqlx.DB) ([]model.InventoryItem, error) {
	items := []model.InventoryItem{}
	err := db.Select(&items, `SELECT id, sku, description, stock, unit FROM inventory_items ORDER BY sku`)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory items: %w", err)
	}
	return items, nil
}

// GetInventoryItemInTx returns sql.ErrNoRows unwrapped so callers can
// distinguish an unknown item from a storage failure.
func GetInventoryItemInTx(tx *sqlx.Tx, id int64) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := tx.Get(&item, `SELECT id, sku, description, stock, unit FROM inventory_items WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func GetStock(db *sqlx.DB, id int64) (float64, error) {
	var stock float64
	if err := db.Get(&stock, `SELECT stock FROM inventory_items WHERE id = ?`, id); err != nil {
		return 0, fmt.Errorf("failed to get stock for item %d: %w", id, err)
	}
	return stock, nil
}

// DecrementStockInTx reduces the item's stock by qty, clamped so stock never
// goes negative. It returns the quantity actually granted and the new stock
// level; the caller is responsible for surfacing granted < qty as a
// shortfall. Runs entirely under the caller's transaction.
func DecrementStockInTx(tx *sqlx.Tx, id int64, qty float64) (granted, newStock float64, err error) {
	var stock float64
	if err = tx.Get(&stock, `SELECT stock FROM inventory_items WHERE id = ?`, id); err != nil {
		return 0, 0, fmt.Errorf("failed to read stock for item %d: %w", id, err)
	}

	granted = qty
	if granted > stock {
		granted = stock
	}
	newStock = stock - granted

	if _, err = tx.Exec(`UPDATE inventory_items SET stock = ? WHERE id = ?`, newStock, id); err != nil {
		return 0, 0, fmt.Errorf("failed to decrement stock for item %d: %w", id, err)
	}
	return granted, newStock, nil
}

func CreateInventoryItemInTx(tx *sqlx.Tx, item *model.InventoryItem) (int64, error) {
	res, err := tx.Exec(`INSERT INTO inventory_items (sku, description, stock, unit) VALUES (?, ?, ?, ?)`,
		item.Sku, item.Description, item.Stock, item.Unit)
	if err != nil {
		return 0, fmt.Errorf("failed to create inventory item '%s': %w", item.Sku, err)
	}
	return res.LastInsertId()
}
