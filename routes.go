package main

import (
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"requisas/auth"
	"requisas/config"
	"requisas/inventory"
	"requisas/model"
	"requisas/requisition"
)

func SetupRoutes(mux *http.ServeMux, dbConn *sqlx.DB, svc *requisition.Service, cfg config.Config) {
	secret := []byte(cfg.JWTSecret)
	ttl := time.Duration(cfg.TokenTTLHours) * time.Hour

	// protect wraps a handler with token auth and an optional role gate;
	// administrators pass every gate.
	protect := func(h http.HandlerFunc, roles ...model.Role) http.HandlerFunc {
		return auth.Require(secret, h, roles...)
	}

	mux.HandleFunc("/api/login", auth.LoginHandler(dbConn, secret, ttl))

	mux.HandleFunc("/api/requisitions/create", protect(requisition.SubmitHandler(svc), model.RoleRequester))
	mux.HandleFunc("/api/requisitions/decide", protect(requisition.DecideHandler(svc), model.RoleApprover))
	mux.HandleFunc("/api/requisitions/mine", protect(requisition.ListMineHandler(svc)))
	mux.HandleFunc("/api/requisitions/pending", protect(requisition.ListPendingHandler(svc), model.RoleApprover))
	mux.HandleFunc("/api/requisitions/history", protect(requisition.ListHistoryHandler(svc)))
	mux.HandleFunc("/api/requisitions/history/export_csv", protect(requisition.ExportHistoryCSVHandler(svc)))
	mux.HandleFunc("/api/requisitions/kpis", protect(requisition.KpisHandler(svc)))
	mux.HandleFunc("/api/requisitions/", protect(requisition.GetHandler(svc)))

	mux.HandleFunc("/api/inventory", protect(inventory.ListHandler(dbConn)))

	mux.HandleFunc("/api/users", protect(ListUsersHandler(dbConn), model.RoleAdmin))
	mux.HandleFunc("/api/users/create", protect(CreateUserHandler(dbConn), model.RoleAdmin))
	mux.HandleFunc("/api/areas", protect(AreasHandler(dbConn)))
	mux.HandleFunc("/api/machines", protect(MachinesHandler(dbConn)))
	mux.HandleFunc("/api/inventory/create", protect(CreateInventoryItemHandler(dbConn), model.RoleAdmin))
}
