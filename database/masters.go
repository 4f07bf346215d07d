package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"requisas/model"
)

func ListAreas(db *sqlx.DB) ([]model.Area, error) {
	areas := []model.Area{}
	if err := db.Select(&areas, `SELECT id, code, name FROM areas ORDER BY code`); err != nil {
		return nil, fmt.Errorf("failed to list areas: %w", err)
	}
	return areas, nil
}

// GetAreaInTx passes sql.ErrNoRows through unwrapped.
func GetAreaInTx(tx *sqlx.Tx, id int64) (*model.Area, error) {
	var a model.Area
	if err := tx.Get(&a, `SELECT id, code, name FROM areas WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &a, nil
}

func CreateAreaInTx(tx *sqlx.Tx, a *model.Area) (int64, error) {
	res, err := tx.Exec(`INSERT INTO areas (code, name) VALUES (?, ?)`, a.Code, a.Name)
	if err != nil {
		return 0, fmt.Errorf("failed to create area '%s': %w", a.Code, err)
	}
	return res.LastInsertId()
}

func ListMachines(db *sqlx.DB) ([]model.Machine, error) {
	machines := []model.Machine{}
	if err := db.Select(&machines, `SELECT id, code, name, area_id FROM machines ORDER BY code`); err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	return machines, nil
}

// GetMachineInTx passes sql.ErrNoRows through unwrapped.
func GetMachineInTx(tx *sqlx.Tx, id int64) (*model.Machine, error) {
	var m model.Machine
	if err := tx.Get(&m, `SELECT id, code, name, area_id FROM machines WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &m, nil
}

func CreateMachineInTx(tx *sqlx.Tx, m *model.Machine) (int64, error) {
	res, err := tx.Exec(`INSERT INTO machines (code, name, area_id) VALUES (?, ?, ?)`, m.Code, m.Name, m.AreaID)
	if err != nil {
		return 0, fmt.Errorf("failed to create machine '%s': %w", m.Code, err)
	}
	return res.LastInsertId()
}
