package inventory

import (
	"encoding/json"
	"net/http"

	"github.com/jmoiron/sqlx"

	"requisas/database"
)

// ListHandler returns the current inventory with stock levels.
func ListHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := database.GetInventoryItems(db)
		if err != nil {
			http.Error(w, "Failed to list inventory", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(items)
	}
}
