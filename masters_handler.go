package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"

	"github.com/jmoiron/sqlx"

	"requisas/auth"
	"requisas/database"
	"requisas/model"
)

func ListUsersHandler(dbConn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := database.ListUsers(dbConn)
		if err != nil {
			http.Error(w, "Failed to list users", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(users)
	}
}

type createUserPayload struct {
	Username string     `json:"username"`
	FullName string     `json:"fullName"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

func CreateUserHandler(dbConn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createUserPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if payload.Username == "" || payload.Password == "" {
			http.Error(w, "Username and password are required", http.StatusBadRequest)
			return
		}
		if !payload.Role.Valid() {
			http.Error(w, "Role must be requester, approver or administrator", http.StatusBadRequest)
			return
		}

		hashed, err := auth.HashPassword(payload.Password)
		if err != nil {
			http.Error(w, "Failed to hash password", http.StatusInternalServerError)
			return
		}

		tx, err := dbConn.Beginx()
		if err != nil {
			http.Error(w, "Failed to start transaction", http.StatusInternalServerError)
			return
		}
		defer tx.Rollback()

		user := &model.User{
			Username:       payload.Username,
			FullName:       payload.FullName,
			HashedPassword: hashed,
			Role:           payload.Role,
		}
		user.ID, err = database.CreateUserInTx(tx, user)
		if err != nil {
			log.Printf("Failed to create user '%s': %v", payload.Username, err)
			http.Error(w, "Failed to create user (duplicate username?)", http.StatusConflict)
			return
		}
		if err := tx.Commit(); err != nil {
			http.Error(w, "Failed to commit transaction", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(user)
	}
}

// AreasHandler lists areas for any authenticated user; creation is
// restricted to administrators.
func AreasHandler(dbConn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			areas, err := database.ListAreas(dbConn)
			if err != nil {
				http.Error(w, "Failed to list areas", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(areas)
		case http.MethodPost:
			if !isAdmin(r) {
				http.Error(w, "Administrator role required", http.StatusForbidden)
				return
			}
			var area model.Area
			if err := json.NewDecoder(r.Body).Decode(&area); err != nil || area.Code == "" || area.Name == "" {
				http.Error(w, "Area code and name are required", http.StatusBadRequest)
				return
			}
			if done := createInTx(dbConn, w, func(tx *sqlx.Tx) (err error) {
				area.ID, err = database.CreateAreaInTx(tx, &area)
				return err
			}); done {
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(area)
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	}
}

type createMachinePayload struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	AreaID *int64 `json:"areaId"`
}

// MachinesHandler mirrors AreasHandler for machines.
func MachinesHandler(dbConn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			machines, err := database.ListMachines(dbConn)
			if err != nil {
				http.Error(w, "Failed to list machines", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(machines)
		case http.MethodPost:
			if !isAdmin(r) {
				http.Error(w, "Administrator role required", http.StatusForbidden)
				return
			}
			var payload createMachinePayload
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Code == "" || payload.Name == "" {
				http.Error(w, "Machine code and name are required", http.StatusBadRequest)
				return
			}
			machine := model.Machine{Code: payload.Code, Name: payload.Name}
			if payload.AreaID != nil {
				machine.AreaID = sql.NullInt64{Int64: *payload.AreaID, Valid: true}
			}
			if done := createInTx(dbConn, w, func(tx *sqlx.Tx) (err error) {
				machine.ID, err = database.CreateMachineInTx(tx, &machine)
				return err
			}); done {
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(machine)
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	}
}

// CreateInventoryItemHandler lets an administrator register a new SKU.
// Restocking existing items is a separate warehouse process, not an API
// concern here.
func CreateInventoryItemHandler(dbConn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var item model.InventoryItem
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil || item.Sku == "" {
			http.Error(w, "SKU is required", http.StatusBadRequest)
			return
		}
		if item.Stock < 0 {
			http.Error(w, "Stock must not be negative", http.StatusBadRequest)
			return
		}
		if item.Unit == "" {
			item.Unit = "un"
		}
		if done := createInTx(dbConn, w, func(tx *sqlx.Tx) (err error) {
			item.ID, err = database.CreateInventoryItemInTx(tx, &item)
			return err
		}); done {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(item)
	}
}

func isAdmin(r *http.Request) bool {
	identity, ok := auth.FromContext(r.Context())
	return ok && identity.Role == model.RoleAdmin
}

// createInTx runs fn in a transaction and writes an HTTP error on failure.
// Returns true when the response has already been written.
func createInTx(dbConn *sqlx.DB, w http.ResponseWriter, fn func(tx *sqlx.Tx) error) bool {
	tx, err := dbConn.Beginx()
	if err != nil {
		http.Error(w, "Failed to start transaction", http.StatusInternalServerError)
		return true
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		log.Printf("Failed to create record: %v", err)
		http.Error(w, "Failed to create record (duplicate code?)", http.StatusConflict)
		return true
	}
	if err := tx.Commit(); err != nil {
		http.Error(w, "Failed to commit transaction", http.StatusInternalServerError)
		return true
	}
	return false
}
