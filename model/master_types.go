package model

import "database/sql"

// Role is the fixed set of user roles. There is no configurable
// permission model beyond these three.
type Role string

const (
	RoleRequester Role = "requester"
	RoleApprover  Role = "approver"
	RoleAdmin     Role = "administrator"
)

func (r Role) Valid() bool {
	switch r {
	case RoleRequester, RoleApprover, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID             int64  `db:"id" json:"id"`
	Username       string `db:"username" json:"username"`
	FullName       string `db:"full_name" json:"fullName"`
	HashedPassword string `db:"hashed_password" json:"-"`
	Role           Role   `db:"role" json:"role"`
}

type Area struct {
	ID   int64  `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

type Machine struct {
	ID     int64         `db:"id" json:"id"`
	Code   string        `db:"code" json:"code"`
	Name   string        `db:"name" json:"name"`
	AreaID sql.NullInt64 `db:"area_id" json:"areaId"`
}

type InventoryItem struct {
	ID          int64   `db:"id" json:"id"`
	Sku         string  `db:"sku" json:"sku"`
	Description string  `db:"description" json:"description"`
	Stock       float64 `db:"stock" json:"stock"`
	Unit        string  `db:"unit" json:"unit"`
}
