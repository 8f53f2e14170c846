package session

import "time"

// SetClock подменяет часы Directory в тестах.
func (d *Directory) SetClock(now func() time.Time) {
	d.now = now
}
