package entity

import (
	"time"

	"github.com/uptrace/bun"
)

type Leave struct {
	bun.BaseModel `bun:"table:leaves"`

	BasicEntity
	WorkerID  *int       `json:"worker_id"   bun:"worker_id"`
	StartDate *time.Time `json:"start_date"  bun:"start_date"`
	EndDate   *time.Time `json:"end_date"    bun:"end_date"`
	Reason    *string    `json:"reason"      bun:"reason"`
	Status    *string    `json:"status"      bun:"status"`
}
