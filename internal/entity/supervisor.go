package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Supervisor is a staff member overseeing one or more schools' orders.
type Supervisor struct {
	bun.BaseModel `bun:"table:supervisors"`

	ID        int64     `bun:",pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	Surname   string    `bun:"surname,notnull"`
	Email     string    `bun:"email,notnull,unique"`
	Token     string    `bun:"token,notnull,unique"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
