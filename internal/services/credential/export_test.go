package credential

import "time"

// SetClock подменяет часы Verifier в тестах.
func (v *Verifier) SetClock(now func() time.Time) {
	v.now = now
}
