package timeline

import (
	"time"

	"github.com/google/uuid"
)

// Entry maps to the timeline_entry table: one contiguous residency of a
// patient in a single stage. Entries are append-only; a closed entry is
// never mutated again, and the open entry (no exited_at) is mutated exactly
// once, to close it.
type Entry struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	PatientID uuid.UUID  `db:"patient_id" json:"patient_id"`
	Stage     string     `db:"stage" json:"stage"`
	EnteredAt time.Time  `db:"entered_at" json:"entered_at"`
	// Seq is assigned by storage and breaks ordering ties between entries
	// opened in the same instant.
	Seq       int64      `db:"seq" json:"seq"`
	ExitedAt  *time.Time `db:"exited_at" json:"exited_at,omitempty"`

	// Checklist snapshots taken from the rule at transition time. They are
	// never recomputed after the fact.
	RequiredOnEntry  []string `db:"required_on_entry" json:"required_on_entry"`
	RequiredOnExit   []string `db:"required_on_exit" json:"required_on_exit"`
	CompletedOnEntry []string `db:"completed_on_entry" json:"completed_on_entry"`
	CompletedOnExit  []string `db:"completed_on_exit" json:"completed_on_exit"`

	ActorID   string    `db:"actor_id" json:"actor_id"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IsOpen reports whether the entry is the patient's current residency.
func (e *Entry) IsOpen() bool { return e.ExitedAt == nil }

// CloseFields carries everything written onto the open entry when it is
// closed.
type CloseFields struct {
	ExitedAt        time.Time
	RequiredOnExit  []string
	CompletedOnExit []string
}
