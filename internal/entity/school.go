package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// School is the ordering party (escuela). Token is the opaque identifier
// embedded in the school's scannable code; public order submission resolves
// schools by token only.
type School struct {
	bun.BaseModel `bun:"table:schools"`

	ID        int64     `bun:",pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	Token     string    `bun:"token,notnull,unique"`
	Address   string    `bun:"address"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
