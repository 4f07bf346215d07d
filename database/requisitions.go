package database

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"requisas/model"
)

const requisitionColumns = `id, code, requester_id, machine_id, area_id, status, note, created_at, updated_at`

const requisitionItemColumns = `
	ri.id, ri.requisition_id, ri.inventory_item_id,
	i.sku, i.description,
	ri.qty_requested, ri.qty_approved`

func InsertRequisitionInTx(tx *sqlx.Tx, r *model.Requisition) (int64, error) {
	res, err := tx.Exec(`
		INSERT INTO requisitions (code, requester_id, machine_id, area_id, status, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Code, r.RequesterID, r.MachineID, r.AreaID, r.Status, r.Note, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert requisition '%s': %w", r.Code, err)
	}
	return res.LastInsertId()
}

func InsertRequisitionItemInTx(tx *sqlx.Tx, item *model.RequisitionItem) (int64, error) {
	res, err := tx.Exec(`
		INSERT INTO requisition_items (requisition_id, inventory_item_id, qty_requested, qty_approved)
		VALUES (?, ?, ?, NULL)`,
		item.RequisitionID, item.InventoryItemID, item.QtyRequested)
	if err != nil {
		return 0, fmt.Errorf("failed to insert requisition item (requisition %d, item %d): %w",
			item.RequisitionID, item.InventoryItemID, err)
	}
	return res.LastInsertId()
}

// GetRequisitionInTx loads the requisition header only. sql.ErrNoRows is
// passed through unwrapped.
func GetRequisitionInTx(tx *sqlx.Tx, id int64) (*model.Requisition, error) {
	var r model.Requisition
	if err := tx.Get(&r, `SELECT `+requisitionColumns+` FROM requisitions WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &r, nil
}

func GetRequisitionItemsInTx(tx *sqlx.Tx, requisitionID int64) ([]model.RequisitionItem, error) {
	items := []model.RequisitionItem{}
	err := tx.Select(&items, `
		SELECT `+requisitionItemColumns+`
		FROM requisition_items ri
		JOIN inventory_items i ON i.id = ri.inventory_item_id
		WHERE ri.requisition_id = ?
		ORDER BY ri.id`, requisitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for requisition %d: %w", requisitionID, err)
	}
	return items, nil
}

func SetItemApprovedInTx(tx *sqlx.Tx, itemID int64, qty float64) error {
	if _, err := tx.Exec(`UPDATE requisition_items SET qty_approved = ? WHERE id = ?`, qty, itemID); err != nil {
		return fmt.Errorf("failed to set approved quantity on item %d: %w", itemID, err)
	}
	return nil
}

func SetRequisitionStatusInTx(tx *sqlx.Tx, id int64, status model.RequisitionStatus, updatedAt string) error {
	if _, err := tx.Exec(`UPDATE requisitions SET status = ?, updated_at = ? WHERE id = ?`, status, updatedAt, id); err != nil {
		return fmt.Errorf("failed to set status '%s' on requisition %d: %w", status, id, err)
	}
	return nil
}

// GetRequisition loads a requisition with its items and approval records.
// sql.ErrNoRows is passed through unwrapped.
func GetRequisition(db *sqlx.DB, id int64) (*model.Requisition, error) {
	var r model.Requisition
	if err := db.Get(&r, `SELECT `+requisitionColumns+` FROM requisitions WHERE id = ?`, id); err != nil {
		return nil, err
	}
	if err := attachDetails(db, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func ListByRequester(db *sqlx.DB, requesterID int64) ([]model.Requisition, error) {
	reqs := []model.Requisition{}
	err := db.Select(&reqs, `
		SELECT `+requisitionColumns+` FROM requisitions
		WHERE requester_id = ?
		ORDER BY created_at DESC, id DESC`, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list requisitions for requester %d: %w", requesterID, err)
	}
	for i := range reqs {
		if err := attachDetails(db, &reqs[i]); err != nil {
			return nil, err
		}
	}
	return reqs, nil
}

func ListPending(db *sqlx.DB) ([]model.Requisition, error) {
	reqs := []model.Requisition{}
	err := db.Select(&reqs, `
		SELECT `+requisitionColumns+` FROM requisitions
		WHERE status = ?
		ORDER BY created_at, id`, model.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requisitions: %w", err)
	}
	for i := range reqs {
		if err := attachDetails(db, &reqs[i]); err != nil {
			return nil, err
		}
	}
	return reqs, nil
}

// ListHistory returns the flattened requisition history, newest first,
// limited to at most limit lines.
func ListHistory(db *sqlx.DB, limit int) ([]model.HistoryRow, error) {
	rows := []model.HistoryRow{}
	err := db.Select(&rows, `
		SELECT r.code, u.username AS requester, a.name AS area_name, m.name AS machine_name,
		       i.sku, i.description, ri.qty_requested, ri.qty_approved, r.status, r.created_at
		FROM requisitions r
		JOIN users u ON u.id = r.requester_id
		LEFT JOIN areas a ON a.id = r.area_id
		LEFT JOIN machines m ON m.id = r.machine_id
		JOIN requisition_items ri ON ri.requisition_id = r.id
		JOIN inventory_items i ON i.id = ri.inventory_item_id
		ORDER BY r.created_at DESC, r.id DESC, ri.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list requisition history: %w", err)
	}
	return rows, nil
}

func CountByStatus(db *sqlx.DB) ([]model.StatusCount, error) {
	counts := []model.StatusCount{}
	err := db.Select(&counts, `SELECT status, COUNT(*) AS count FROM requisitions GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count requisitions by status: %w", err)
	}
	return counts, nil
}

func TopRequestedItems(db *sqlx.DB, limit int) ([]model.ItemTotal, error) {
	totals := []model.ItemTotal{}
	err := db.Select(&totals, `
		SELECT i.sku, i.description,
		       SUM(ri.qty_requested) AS total_requested,
		       SUM(COALESCE(ri.qty_approved, 0)) AS total_approved
		FROM requisition_items ri
		JOIN inventory_items i ON i.id = ri.inventory_item_id
		GROUP BY i.id
		ORDER BY total_requested DESC, i.sku
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate top requested items: %w", err)
	}
	return totals, nil
}

// AverageDecisionHours measures from requisition creation to its decision
// record. NULL when nothing has been decided yet.
func AverageDecisionHours(db *sqlx.DB) (sql.NullFloat64, error) {
	var avg sql.NullFloat64
	err := db.Get(&avg, `
		SELECT AVG((julianday(ap.created_at) - julianday(r.created_at)) * 24.0)
		FROM requisitions r
		JOIN approvals ap ON ap.requisition_id = r.id`)
	if err != nil {
		return avg, fmt.Errorf("failed to compute average decision time: %w", err)
	}
	return avg, nil
}

func attachDetails(db *sqlx.DB, r *model.Requisition) error {
	items := []model.RequisitionItem{}
	err := db.Select(&items, `
		SELECT `+requisitionItemColumns+`
		FROM requisition_items ri
		JOIN inventory_items i ON i.id = ri.inventory_item_id
		WHERE ri.requisition_id = ?
		ORDER BY ri.id`, r.ID)
	if err != nil {
		return fmt.Errorf("failed to get items for requisition %d: %w", r.ID, err)
	}
	r.Items = items

	approvals, err := ListApprovalsByRequisition(db, r.ID)
	if err != nil {
		return err
	}
	r.Approvals = approvals
	return nil
}
