package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Product is a catalog item with quantity on hand. Stock is mutated only by
// order approval and by direct stock edits.
type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID          int64     `bun:",pk,autoincrement"`
	Name        string    `bun:"name,notnull"`
	Code        string    `bun:"code,notnull,unique"`
	Quantity    int       `bun:"quantity,notnull,default:0"`
	WarehouseID *int64    `bun:"warehouse_id,nullzero"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
