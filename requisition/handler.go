package requisition

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"requisas/auth"
)

const defaultHistoryLimit = 500

type submitPayload struct {
	MachineID *int64      `json:"machineId"`
	AreaID    *int64      `json:"areaId"`
	Items     []ItemInput `json:"items"`
	Note      string      `json:"note"`
}

type decidePayload struct {
	RequisitionID int64             `json:"requisitionId"`
	Decision      Decision          `json:"decision"`
	ApprovedQty   map[int64]float64 `json:"approvedQty"`
	Comment       string            `json:"comment"`
}

// SubmitHandler creates a requisition on behalf of the authenticated caller.
func SubmitHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		var payload submitPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		req, err := svc.Create(CreateInput{
			RequesterID: identity.UserID,
			MachineID:   payload.MachineID,
			AreaID:      payload.AreaID,
			Items:       payload.Items,
			Note:        payload.Note,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message":     "Requisición creada: " + req.Code,
			"requisition": req,
		})
	}
}

// DecideHandler applies an approve/reject decision as the authenticated
// approver.
func DecideHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		var payload decidePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		result, err := svc.Decide(DecideInput{
			RequisitionID: payload.RequisitionID,
			ApproverID:    identity.UserID,
			Decision:      payload.Decision,
			ApprovedQty:   payload.ApprovedQty,
			Comment:       payload.Comment,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

// GetHandler serves a single requisition by id from the path.
func GetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.TrimPrefix(r.URL.Path, "/api/requisitions/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Requisition id is required", http.StatusBadRequest)
			return
		}
		req, err := svc.Get(id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(req)
	}
}

func ListMineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		reqs, err := svc.ListByRequester(identity.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(reqs)
	}
}

func ListPendingHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqs, err := svc.ListPending()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(reqs)
	}
}

func ListHistoryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultHistoryLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = n
		}
		rows, err := svc.ListHistory(limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rows)
	}
}

func KpisHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.Kpis()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(report)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRequisitionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidStateTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrEmptyRequisition),
		errors.Is(err, ErrUnknownInventoryItem),
		errors.Is(err, ErrUnknownReference),
		errors.Is(err, ErrInvalidApprovedQuantity),
		errors.Is(err, ErrInvalidDecision):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrCodeGeneration):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		log.Printf("Requisition storage failure: %v", err)
		http.Error(w, "Storage failure, please retry", http.StatusInternalServerError)
	}
}
