package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Warehouse is a storage location grouping (bodega).
type Warehouse struct {
	bun.BaseModel `bun:"table:warehouses"`

	ID        int64     `bun:",pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	Location  string    `bun:"location"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
