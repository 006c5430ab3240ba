package checklist

import (
	"time"

	"github.com/google/uuid"
)

// Rule maps to the checklist_rule table. A rule existing for a
// (from_stage, to_stage) pair is what makes that transition legal; the
// required lists are snapshotted onto ledger entries at transition time and
// never recomputed afterwards.
type Rule struct {
	ID              uuid.UUID `db:"id" json:"id"`
	FromStage       string    `db:"from_stage" json:"from_stage"`
	ToStage         string    `db:"to_stage" json:"to_stage"`
	RequiredOnEntry []string  `db:"required_on_entry" json:"required_on_entry"`
	RequiredOnExit  []string  `db:"required_on_exit" json:"required_on_exit"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
