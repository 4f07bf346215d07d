package auth

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"requisas/database"
)

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginHandler checks credentials and issues a bearer token. The response
// never distinguishes a missing user from a wrong password.
func LoginHandler(db *sqlx.DB, secret []byte, ttl time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload loginPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if payload.Username == "" || payload.Password == "" {
			http.Error(w, "Username and password are required", http.StatusBadRequest)
			return
		}

		user, err := database.GetUserByUsername(db, payload.Username)
		if err != nil {
			if err != sql.ErrNoRows {
				log.Printf("Error looking up user '%s': %v", payload.Username, err)
				http.Error(w, "Failed to check credentials", http.StatusInternalServerError)
				return
			}
			http.Error(w, "Credenciales inválidas", http.StatusUnauthorized)
			return
		}
		if !CheckPasswordHash(payload.Password, user.HashedPassword) {
			http.Error(w, "Credenciales inválidas", http.StatusUnauthorized)
			return
		}

		token, err := GenerateToken(user, secret, ttl)
		if err != nil {
			log.Printf("Error generating token for '%s': %v", user.Username, err)
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token": token,
			"user":  user,
		})
	}
}
