package scan

// Deduplicator suppresses a payload that was just accepted, so a badge held
// in front of the camera produces one submission per streak.
type Deduplicator struct {
	last string
	held bool
}

// Accept reports whether raw starts a new streak and, if so, remembers it.
func (d *Deduplicator) Accept(raw string) bool {
	if d.held && d.last == raw {
		return false
	}
	d.last, d.held = raw, true
	return true
}

// Reset forgets the remembered payload.
func (d *Deduplicator) Reset() {
	d.last, d.held = "", false
}
