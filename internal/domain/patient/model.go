package patient

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Patient maps to the patient table. CurrentStage, OpenEntryID and
// StageFirstSeen are denormalized from the timeline ledger; the ledger wins
// whenever the two disagree.
type Patient struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	MRN       string     `db:"mrn" json:"mrn"`
	FirstName string     `db:"first_name" json:"first_name"`
	LastName  string     `db:"last_name" json:"last_name"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`

	Department string `db:"department" json:"department"`
	Status     string `db:"status" json:"status"`

	CurrentStage string     `db:"current_stage" json:"current_stage"`
	OpenEntryID  *uuid.UUID `db:"open_entry_id" json:"open_entry_id,omitempty"`

	// StageFirstSeen records, per stage, the instant the patient first
	// entered it. Write-once per key: revisits never overwrite.
	StageFirstSeen map[string]time.Time `db:"stage_first_seen" json:"stage_first_seen"`

	// IndexKey is the department+status projection kept current on every
	// write so equality lookups stay cheap.
	IndexKey string `db:"index_key" json:"-"`

	Version   int        `db:"version" json:"version"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}

// ComputeIndexKey builds the composite lookup key for a department/status
// pair. Normalized so that lookups are insensitive to caller casing and
// stray whitespace.
func ComputeIndexKey(department, status string) string {
	return fmt.Sprintf("%s#%s",
		strings.ToLower(strings.TrimSpace(department)),
		strings.ToLower(strings.TrimSpace(status)))
}

// TransitionFields is the patient-side projection of a timeline transition:
// the new stage, the pointer to the freshly opened entry and the instant the
// stage was entered (used for the write-once first-seen map).
type TransitionFields struct {
	Stage       string
	OpenEntryID uuid.UUID
	EnteredAt   time.Time
}
