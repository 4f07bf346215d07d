package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"requisas/model"
)

const userColumns = `id, username, full_name, hashed_password, role`

// GetUserByUsername passes sql.ErrNoRows through unwrapped.
func GetUserByUsername(db *sqlx.DB, username string) (*model.User, error) {
	var u model.User
	if err := db.Get(&u, `SELECT `+userColumns+` FROM users WHERE username = ?`, username); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserInTx passes sql.ErrNoRows through unwrapped.
func GetUserInTx(tx *sqlx.Tx, id int64) (*model.User, error) {
	var u model.User
	if err := tx.Get(&u, `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &u, nil
}

func ListUsers(db *sqlx.DB) ([]model.User, error) {
	users := []model.User{}
	if err := db.Select(&users, `SELECT `+userColumns+` FROM users ORDER BY username`); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func CountUsers(db *sqlx.DB) (int, error) {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func CreateUserInTx(tx *sqlx.Tx, u *model.User) (int64, error) {
	res, err := tx.Exec(`
		INSERT INTO users (username, full_name, hashed_password, role)
		VALUES (?, ?, ?, ?)`,
		u.Username, u.FullName, u.HashedPassword, u.Role)
	if err != nil {
		return 0, fmt.Errorf("failed to create user '%s': %w", u.Username, err)
	}
	return res.LastInsertId()
}
