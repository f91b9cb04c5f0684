package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// OrderStatus is the lifecycle state of a school order. Transitions are
// one-directional: pending resolves to approved or rejected, never back.
type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderApproved OrderStatus = "approved"
	OrderRejected OrderStatus = "rejected"
)

// Order is a school's request for products (solicitud).
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID         int64       `bun:",pk,autoincrement"`
	SchoolID   int64       `bun:"school_id,notnull"`
	Requester  string      `bun:"requester,notnull"`
	Notes      string      `bun:"notes"`
	Status     OrderStatus `bun:"status,notnull"`
	CreatedAt  time.Time   `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	ApprovedAt *time.Time  `bun:"approved_at,nullzero"`

	School *School      `bun:"rel:belongs-to,join:school_id=id"`
	Lines  []*OrderLine `bun:"rel:has-many,join:id=order_id"`
}

// OrderLine is one product+quantity entry within an order (detalle).
type OrderLine struct {
	bun.BaseModel `bun:"table:order_lines"`

	ID        int64 `bun:",pk,autoincrement"`
	OrderID   int64 `bun:"order_id,notnull"`
	ProductID int64 `bun:"product_id,notnull"`
	Quantity  int   `bun:"quantity,notnull"`

	Product *Product `bun:"rel:belongs-to,join:product_id=id"`
}
