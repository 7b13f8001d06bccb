package stagehand

import "strings"

// Effects is a bitmask of repository state categories a completed task may
// have changed. Every task declares a fixed set of bits it affects on
// success; the UI refreshes exactly the flagged categories.
type Effects uint8

// Effect bits, combinable.
const (
	AffectsIndex Effects = 1 << iota
	AffectsRefs
	AffectsRemotes
	AffectsWorkdir
)

// AffectsNothing is the empty effect set, reported on failure or abort.
const AffectsNothing Effects = 0

// Has reports whether any of the bits in f are set in e.
func (e Effects) Has(f Effects) bool {
	return e&f != 0
}

func (e Effects) String() string {
	if e == AffectsNothing {
		return "nothing"
	}
	var parts []string
	if e.Has(AffectsIndex) {
		parts = append(parts, "index")
	}
	if e.Has(AffectsRefs) {
		parts = append(parts, "refs")
	}
	if e.Has(AffectsRemotes) {
		parts = append(parts, "remotes")
	}
	if e.Has(AffectsWorkdir) {
		parts = append(parts, "workdir")
	}
	return strings.Join(parts, "|")
}
