package stagehand

// Segment is a run of characters within one line of a replace pair,
// marked changed when the run differs between the two sides.
type Segment struct {
	Text    string
	Changed bool
}

// WordDiffer computes the intraline difference between the two sides of a
// replace pair. The returned segments concatenate back to old and new
// respectively.
type WordDiffer interface {
	Diff(old, new string) (oldSegs, newSegs []Segment)
}
