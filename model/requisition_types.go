package model

import "database/sql"

// RequisitionStatus is the requisition state machine. pending is the only
// non-terminal state; cancelled is reserved and no flow sets it yet.
type RequisitionStatus string

const (
	StatusPending           RequisitionStatus = "pending"
	StatusApproved          RequisitionStatus = "approved"
	StatusPartiallyApproved RequisitionStatus = "partially_approved"
	StatusRejected          RequisitionStatus = "rejected"
	StatusCancelled         RequisitionStatus = "cancelled"
)

func (s RequisitionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusPartiallyApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further decision may be applied.
func (s RequisitionStatus) Terminal() bool {
	switch s {
	case StatusApproved, StatusPartiallyApproved, StatusRejected, StatusCancelled:
		return true
	case StatusPending:
		return false
	}
	return false
}

type Requisition struct {
	ID          int64             `db:"id" json:"id"`
	Code        string            `db:"code" json:"code"`
	RequesterID int64             `db:"requester_id" json:"requesterId"`
	MachineID   sql.NullInt64     `db:"machine_id" json:"machineId"`
	AreaID      sql.NullInt64     `db:"area_id" json:"areaId"`
	Status      RequisitionStatus `db:"status" json:"status"`
	Note        string            `db:"note" json:"note"`
	CreatedAt   string            `db:"created_at" json:"createdAt"`
	UpdatedAt   string            `db:"updated_at" json:"updatedAt"`

	Items     []RequisitionItem `json:"items,omitempty"`
	Approvals []Approval        `json:"approvals,omitempty"`
}

// RequisitionItem carries the SKU and description of its inventory item
// (joined on read) so list views need no second lookup.
type RequisitionItem struct {
	ID              int64           `db:"id" json:"id"`
	RequisitionID   int64           `db:"requisition_id" json:"requisitionId"`
	InventoryItemID int64           `db:"inventory_item_id" json:"inventoryItemId"`
	Sku             string          `db:"sku" json:"sku"`
	Description     string          `db:"description" json:"description"`
	QtyRequested    float64         `db:"qty_requested" json:"qtyRequested"`
	QtyApproved     sql.NullFloat64 `db:"qty_approved" json:"qtyApproved"`
}

// Approval is one immutable decision record. A requisition accumulates at
// most one per successful decision.
type Approval struct {
	ID            int64  `db:"id" json:"id"`
	RequisitionID int64  `db:"requisition_id" json:"requisitionId"`
	ApproverID    int64  `db:"approver_id" json:"approverId"`
	Approved      bool   `db:"approved" json:"approved"`
	Comment       string `db:"comment" json:"comment"`
	CreatedAt     string `db:"created_at" json:"createdAt"`
}

// HistoryRow is one line of the flattened requisition history used by the
// history listing, CSV export and KPI views.
type HistoryRow struct {
	Code         string            `db:"code" json:"code"`
	Requester    string            `db:"requester" json:"requester"`
	AreaName     sql.NullString    `db:"area_name" json:"areaName"`
	MachineName  sql.NullString    `db:"machine_name" json:"machineName"`
	Sku          string            `db:"sku" json:"sku"`
	Description  string            `db:"description" json:"description"`
	QtyRequested float64           `db:"qty_requested" json:"qtyRequested"`
	QtyApproved  sql.NullFloat64   `db:"qty_approved" json:"qtyApproved"`
	Status       RequisitionStatus `db:"status" json:"status"`
	CreatedAt    string            `db:"created_at" json:"createdAt"`
}

type StatusCount struct {
	Status RequisitionStatus `db:"status" json:"status"`
	Count  int               `db:"count" json:"count"`
}

type ItemTotal struct {
	Sku            string  `db:"sku" json:"sku"`
	Description    string  `db:"description" json:"description"`
	TotalRequested float64 `db:"total_requested" json:"totalRequested"`
	TotalApproved  float64 `db:"total_approved" json:"totalApproved"`
}

type KpiReport struct {
	CountsByStatus     []StatusCount   `json:"countsByStatus"`
	AvgHoursToDecision sql.NullFloat64 `json:"avgHoursToDecision"`
	TopRequestedItems  []ItemTotal     `json:"topRequestedItems"`
}
