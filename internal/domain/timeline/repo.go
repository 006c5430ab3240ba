package timeline

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Append inserts a new entry. Repeated residencies in the same stage
	// are legal; nothing is unique about (patient, stage).
	Append(ctx context.Context, e *Entry) error

	// CloseOpen conditionally closes entry entryID for the patient: the
	// update applies only if the row still exists and still has no
	// exited_at. Returns false when the condition did not hold, which is
	// the optimistic-concurrency signal for a lost race.
	CloseOpen(ctx context.Context, patientID, entryID uuid.UUID, close CloseFields) (bool, error)

	// FindOpen resolves the patient's open entry: by pointer when one is
	// supplied and still open, otherwise by querying for the most recently
	// inserted entry with no exit, ordered by (entered_at, seq) descending.
	// Returns (nil, nil) when the ledger holds no open entry.
	FindOpen(ctx context.Context, patientID uuid.UUID, pointer *uuid.UUID) (*Entry, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error)
}
