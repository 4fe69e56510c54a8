package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is a customer workspace. Every other row in the system hangs off a
// tenant and all queries are tenant-scoped.
type Tenant struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Tenant) TableName() string {
	return "tenants"
}
