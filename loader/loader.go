package loader

import (
	_ "embed"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"requisas/auth"
	"requisas/database"
	"requisas/model"
)

//go:embed schema.sql
var schemaSQL string

// InitDatabase applies the embedded schema. Every statement is
// IF NOT EXISTS, so reapplying on an existing database is a no-op.
func InitDatabase(db *sqlx.DB) error {
	log.Println("Applying database schema...")
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	log.Println("Schema applied successfully.")
	return nil
}

// SeedDemoData creates demo users, reference data and inventory on an empty
// database. Skipped entirely once any user exists.
func SeedDemoData(db *sqlx.DB) error {
	n, err := database.CountUsers(db)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Println("Users already exist. Seeding skipped.")
		return nil
	}
	log.Println("Empty database. Seeding demo data...")

	hashed, err := auth.HashPassword("pass")
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to start seed transaction: %w", err)
	}
	defer tx.Rollback()

	users := []model.User{
		{Username: "supervisor1", FullName: "Supervisor Uno", HashedPassword: hashed, Role: model.RoleRequester},
		{Username: "bodega1", FullName: "Bodega Uno", HashedPassword: hashed, Role: model.RoleApprover},
		{Username: "admin", FullName: "Admin", HashedPassword: hashed, Role: model.RoleAdmin},
	}
	for i := range users {
		if _, err := database.CreateUserInTx(tx, &users[i]); err != nil {
			return err
		}
	}

	areaIDs := make([]int64, 0, 2)
	for _, a := range []model.Area{
		{Code: "A1", Name: "Area A"},
		{Code: "A2", Name: "Area B"},
	} {
		id, err := database.CreateAreaInTx(tx, &a)
		if err != nil {
			return err
		}
		areaIDs = append(areaIDs, id)
	}

	for i, m := range []model.Machine{
		{Code: "MACH-001", Name: "Corte 1"},
		{Code: "MACH-002", Name: "Taladro 1"},
	} {
		m.AreaID.Int64, m.AreaID.Valid = areaIDs[i], true
		if _, err := database.CreateMachineInTx(tx, &m); err != nil {
			return err
		}
	}

	for _, item := range []model.InventoryItem{
		{Sku: "SKU-001", Description: "Filtro", Stock: 50, Unit: "un"},
		{Sku: "SKU-002", Description: "Tornillo M8", Stock: 1000, Unit: "pcs"},
	} {
		if _, err := database.CreateInventoryItemInTx(tx, &item); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed data: %w", err)
	}
	log.Println("Demo data seeded.")
	return nil
}
