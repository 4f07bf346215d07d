package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"requisas/model"
)

// InsertApprovalInTx appends one decision record. Approval rows are never
// updated or deleted.
func InsertApprovalInTx(tx *sqlx.Tx, a *model.Approval) (int64, error) {
	res, err := tx.Exec(`
		INSERT INTO approvals (requisition_id, approver_id, approved, comment, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.RequisitionID, a.ApproverID, a.Approved, a.Comment, a.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert approval for requisition %d: %w", a.RequisitionID, err)
	}
	return res.LastInsertId()
}

func ListApprovalsByRequisition(db *sqlx.DB, requisitionID int64) ([]model.Approval, error) {
	approvals := []model.Approval{}
	err := db.Select(&approvals, `
		SELECT id, requisition_id, approver_id, approved, comment, created_at
		FROM approvals
		WHERE requisition_id = ?
		ORDER BY id`, requisitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals for requisition %d: %w", requisitionID, err)
	}
	return approvals, nil
}
