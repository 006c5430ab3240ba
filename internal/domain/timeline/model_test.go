package timeline

import (
	"testing"
	"time"
)

func TestEntryIsOpen(t *testing.T) {
	e := &Entry{Stage: "onboarding", EnteredAt: time.Now()}
	if !e.IsOpen() {
		t.Error("entry without exited_at should be open")
	}

	exited := e.EnteredAt.Add(time.Hour)
	e.ExitedAt = &exited
	if e.IsOpen() {
		t.Error("entry with exited_at should be closed")
	}
}
