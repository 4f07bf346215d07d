package requisition

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"requisas/database"
	"requisas/model"
)

// Errors the lifecycle engine can return. Handlers map these to HTTP status
// codes; anything else is a storage failure the caller may retry.
var (
	ErrEmptyRequisition        = errors.New("requisition has no items with positive quantity")
	ErrUnknownInventoryItem    = errors.New("unknown inventory item")
	ErrUnknownReference        = errors.New("unknown requester, machine or area")
	ErrInvalidApprovedQuantity = errors.New("approved quantity out of range")
	ErrInvalidDecision         = errors.New("decision must be approve or reject")
	ErrRequisitionNotFound     = errors.New("requisition not found")
	ErrInvalidStateTransition  = errors.New("requisition is no longer pending")
	ErrCodeGeneration          = errors.New("could not generate a unique requisition code")
)

// maxCodeAttempts bounds the retry loop around a UNIQUE violation on
// requisitions.code. The per-day counter already serializes code issuing, so
// a conflict only happens if the counter was reset behind our back.
const maxCodeAttempts = 3

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

type ItemInput struct {
	InventoryItemID int64   `json:"inventoryItemId"`
	Qty             float64 `json:"qty"`
}

type CreateInput struct {
	RequesterID int64
	MachineID   *int64
	AreaID      *int64
	Items       []ItemInput
	Note        string
}

type DecideInput struct {
	RequisitionID int64
	ApproverID    int64
	Decision      Decision
	ApprovedQty   map[int64]float64
	Comment       string
}

// Shortfall reports a line whose approved quantity could not be fully
// granted from stock.
type Shortfall struct {
	RequisitionItemID int64   `json:"requisitionItemId"`
	Sku               string  `json:"sku"`
	Approved          float64 `json:"approved"`
	Granted           float64 `json:"granted"`
	Shortfall         float64 `json:"shortfall"`
}

type DecideResult struct {
	Requisition *model.Requisition `json:"requisition"`
	Shortfalls  []Shortfall        `json:"shortfalls,omitempty"`
}

// Service is the requisition lifecycle engine. Every mutating operation runs
// in exactly one transaction; the DSN's immediate transaction lock serializes
// competing decisions and competing stock decrements.
type Service struct {
	DB  *sqlx.DB
	Loc *time.Location
	Now func() time.Time // overridable for tests; nil means time.Now
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().In(s.Loc)
	}
	return time.Now().In(s.Loc)
}

// Create validates the input, reserves a code for today and persists the
// requisition with its lines in one transaction. Lines with non-positive
// quantities are dropped before validation; an empty remainder or an
// unresolvable reference aborts without touching storage.
func (s *Service) Create(in CreateInput) (*model.Requisition, error) {
	valid := make([]ItemInput, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Qty > 0 {
			valid = append(valid, it)
		}
	}
	if len(valid) == 0 {
		return nil, ErrEmptyRequisition
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		req, err := s.createOnce(in, valid)
		if err == nil {
			return req, nil
		}
		if isUniqueCodeConflict(err) {
			log.Printf("WARN: requisition code conflict on attempt %d, retrying: %v", attempt, err)
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("%w: gave up after %d attempts", ErrCodeGeneration, maxCodeAttempts)
}

func (s *Service) createOnce(in CreateInput, items []ItemInput) (*model.Requisition, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := database.GetUserInTx(tx, in.RequesterID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: requester %d", ErrUnknownReference, in.RequesterID)
		}
		return nil, fmt.Errorf("failed to resolve requester %d: %w", in.RequesterID, err)
	}
	if in.MachineID != nil {
		if _, err := database.GetMachineInTx(tx, *in.MachineID); err != nil {
			if err == sql.ErrNoRows {
				return nil, fmt.Errorf("%w: machine %d", ErrUnknownReference, *in.MachineID)
			}
			return nil, fmt.Errorf("failed to resolve machine %d: %w", *in.MachineID, err)
		}
	}
	if in.AreaID != nil {
		if _, err := database.GetAreaInTx(tx, *in.AreaID); err != nil {
			if err == sql.ErrNoRows {
				return nil, fmt.Errorf("%w: area %d", ErrUnknownReference, *in.AreaID)
			}
			return nil, fmt.Errorf("failed to resolve area %d: %w", *in.AreaID, err)
		}
	}

	// Every line must resolve before anything is written; a silently
	// dropped line would submit an incomplete requisition.
	for _, it := range items {
		if _, err := database.GetInventoryItemInTx(tx, it.InventoryItemID); err != nil {
			if err == sql.ErrNoRows {
				return nil, fmt.Errorf("%w: id %d", ErrUnknownInventoryItem, it.InventoryItemID)
			}
			return nil, fmt.Errorf("failed to resolve inventory item %d: %w", it.InventoryItemID, err)
		}
	}

	now := s.now()
	code, err := database.NextRequisitionCodeInTx(tx, now.Format("20060102"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodeGeneration, err)
	}

	req := &model.Requisition{
		Code:        code,
		RequesterID: in.RequesterID,
		MachineID:   nullableID(in.MachineID),
		AreaID:      nullableID(in.AreaID),
		Status:      model.StatusPending,
		Note:        in.Note,
		CreatedAt:   now.Format(time.RFC3339),
		UpdatedAt:   now.Format(time.RFC3339),
	}
	req.ID, err = database.InsertRequisitionInTx(tx, req)
	if err != nil {
		return nil, err
	}

	for _, it := range items {
		item := &model.RequisitionItem{
			RequisitionID:   req.ID,
			InventoryItemID: it.InventoryItemID,
			QtyRequested:    it.Qty,
		}
		if _, err := database.InsertRequisitionItemInTx(tx, item); err != nil {
			return nil, err
		}
	}

	req.Items, err = database.GetRequisitionItemsInTx(tx, req.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit requisition '%s': %w", code, err)
	}
	log.Printf("Requisition %s created (requester %d, %d items)", code, in.RequesterID, len(req.Items))
	return req, nil
}

// Decide applies one approve/reject decision to a pending requisition. The
// whole action is one transaction: precondition check, audit record, line
// updates, stock decrements and the status change commit together or not at
// all. Stock is decremented exactly once per line, at this transition.
func (s *Service) Decide(in DecideInput) (*DecideResult, error) {
	if in.Decision != DecisionApprove && in.Decision != DecisionReject {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidDecision, in.Decision)
	}

	tx, err := s.DB.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	req, err := database.GetRequisitionInTx(tx, in.RequisitionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: id %d", ErrRequisitionNotFound, in.RequisitionID)
		}
		return nil, fmt.Errorf("failed to load requisition %d: %w", in.RequisitionID, err)
	}
	if req.Status != model.StatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrInvalidStateTransition, req.Code, req.Status)
	}
	if _, err := database.GetUserInTx(tx, in.ApproverID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: approver %d", ErrUnknownReference, in.ApproverID)
		}
		return nil, fmt.Errorf("failed to resolve approver %d: %w", in.ApproverID, err)
	}

	items, err := database.GetRequisitionItemsInTx(tx, req.ID)
	if err != nil {
		return nil, err
	}

	// Validate the full mapping before any mutation. Out-of-range values are
	// a caller error, not something to clamp silently: the requester must be
	// able to trust that approved never exceeds requested.
	if in.Decision == DecisionApprove {
		for _, item := range items {
			qty, ok := in.ApprovedQty[item.ID]
			if !ok {
				continue
			}
			if qty < 0 || qty > item.QtyRequested {
				return nil, fmt.Errorf("%w: item %d (%s) approved %g, requested %g",
					ErrInvalidApprovedQuantity, item.ID, item.Sku, qty, item.QtyRequested)
			}
		}
	}

	now := s.now().Format(time.RFC3339)
	approval := &model.Approval{
		RequisitionID: req.ID,
		ApproverID:    in.ApproverID,
		Approved:      in.Decision == DecisionApprove,
		Comment:       in.Comment,
		CreatedAt:     now,
	}
	if _, err := database.InsertApprovalInTx(tx, approval); err != nil {
		return nil, err
	}

	var shortfalls []Shortfall
	status := model.StatusRejected

	if in.Decision == DecisionReject {
		for _, item := range items {
			if err := database.SetItemApprovedInTx(tx, item.ID, 0); err != nil {
				return nil, err
			}
		}
	} else {
		allFull := true
		for _, item := range items {
			approved := in.ApprovedQty[item.ID] // absent means nothing granted
			granted := approved
			if approved > 0 {
				granted, _, err = database.DecrementStockInTx(tx, item.InventoryItemID, approved)
				if err != nil {
					return nil, err
				}
				if granted < approved {
					shortfalls = append(shortfalls, Shortfall{
						RequisitionItemID: item.ID,
						Sku:               item.Sku,
						Approved:          approved,
						Granted:           granted,
						Shortfall:         approved - granted,
					})
				}
			}
			if err := database.SetItemApprovedInTx(tx, item.ID, granted); err != nil {
				return nil, err
			}
			if granted != item.QtyRequested {
				allFull = false
			}
		}
		// An approve action that grants nothing is still partially_approved,
		// not rejected: the approver said yes, the warehouse gave nothing.
		if allFull {
			status = model.StatusApproved
		} else {
			status = model.StatusPartiallyApproved
		}
	}

	if err := database.SetRequisitionStatusInTx(tx, req.ID, status, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit decision on '%s': %w", req.Code, err)
	}

	log.Printf("Requisition %s decided: %s -> %s (approver %d, %d shortfalls)",
		req.Code, in.Decision, status, in.ApproverID, len(shortfalls))

	decided, err := database.GetRequisition(s.DB, req.ID)
	if err != nil {
		return nil, err
	}
	return &DecideResult{Requisition: decided, Shortfalls: shortfalls}, nil
}

func (s *Service) Get(id int64) (*model.Requisition, error) {
	req, err := database.GetRequisition(s.DB, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: id %d", ErrRequisitionNotFound, id)
		}
		return nil, fmt.Errorf("failed to load requisition %d: %w", id, err)
	}
	return req, nil
}

func (s *Service) ListByRequester(requesterID int64) ([]model.Requisition, error) {
	return database.ListByRequester(s.DB, requesterID)
}

func (s *Service) ListPending() ([]model.Requisition, error) {
	return database.ListPending(s.DB)
}

func (s *Service) ListHistory(limit int) ([]model.HistoryRow, error) {
	return database.ListHistory(s.DB, limit)
}

func (s *Service) Kpis() (*model.KpiReport, error) {
	counts, err := database.CountByStatus(s.DB)
	if err != nil {
		return nil, err
	}
	avg, err := database.AverageDecisionHours(s.DB)
	if err != nil {
		return nil, err
	}
	top, err := database.TopRequestedItems(s.DB, 10)
	if err != nil {
		return nil, err
	}
	return &model.KpiReport{
		CountsByStatus:     counts,
		AvgHoursToDecision: avg,
		TopRequestedItems:  top,
	}, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func isUniqueCodeConflict(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
