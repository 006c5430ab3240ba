package lifecycle

import "time"

// Clock abstracts time so transition ordering can be exercised in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
