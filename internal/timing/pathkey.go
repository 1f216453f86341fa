package timing

// PathKey identifies one hop in a call path. It is a plain comparable value:
// two keys are equal iff all four fields match exactly.
type PathKey struct {
	Name         string `json:"name"`
	SequenceID   int    `json:"sequence_id"`
	Classified   bool   `json:"classified"`
	ShouldRecord bool   `json:"should_record"`
}

// NewPathKey returns a key with the default discriminators
// (sequence 0, unclassified, recorded).
func NewPathKey(name string) PathKey {
	return PathKey{Name: name, ShouldRecord: true}
}

// WithSequence returns a copy of k with the given sequence discriminator.
func (k PathKey) WithSequence(id int) PathKey {
	k.SequenceID = id
	return k
}

// AsClassified returns a copy of k with the classification flag set.
func (k PathKey) AsClassified() PathKey {
	k.Classified = true
	return k
}

// Unrecorded returns a copy of k whose timings should not be recorded.
func (k PathKey) Unrecorded() PathKey {
	k.ShouldRecord = false
	return k
}
