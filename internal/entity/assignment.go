package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Assignment links a supervisor to a school. The pair is unique. At most one
// assignment per school carries the primary flag; the primary supervisor (or,
// absent one, the oldest assignment) receives order notifications.
type Assignment struct {
	bun.BaseModel `bun:"table:assignments"`

	ID           int64     `bun:",pk,autoincrement"`
	SupervisorID int64     `bun:"supervisor_id,notnull"`
	SchoolID     int64     `bun:"school_id,notnull"`
	Primary      bool      `bun:"is_primary,notnull,default:false"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`

	Supervisor *Supervisor `bun:"rel:belongs-to,join:supervisor_id=id"`
	School     *School     `bun:"rel:belongs-to,join:school_id=id"`
}
