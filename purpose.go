package stagehand

// Purpose identifies why a sub-patch is being extracted. The verb bit
// determines the extraction direction and the apply target; the unit bit
// records the granularity of the selection.
type Purpose uint8

// Purpose flags: exactly one verb combined with one unit.
const (
	PurposeStage Purpose = 1 << iota
	PurposeUnstage
	PurposeDiscard
	PurposeLines
	PurposeHunk
	PurposeFile
)

const (
	purposeVerbMask = PurposeStage | PurposeUnstage | PurposeDiscard
	purposeUnitMask = PurposeLines | PurposeHunk | PurposeFile
)

// Verb returns only the verb bit of the purpose.
func (p Purpose) Verb() Purpose {
	return p & purposeVerbMask
}

// Unit returns only the granularity bit of the purpose.
func (p Purpose) Unit() Purpose {
	return p & purposeUnitMask
}

// Reverse reports whether extraction must invert the patch. Staging applies
// the change forward to the index; unstaging and discarding undo a change
// that already exists on the target side.
func (p Purpose) Reverse() bool {
	return p.Verb() != PurposeStage
}

// Location returns where the extracted patch is applied: discards touch the
// working tree, staging and unstaging touch the index.
func (p Purpose) Location() ApplyLocation {
	if p.Verb() == PurposeDiscard {
		return ApplyToWorkdir
	}
	return ApplyToIndex
}

func (p Purpose) String() string {
	var verb, unit string
	switch p.Verb() {
	case PurposeStage:
		verb = "stage"
	case PurposeUnstage:
		verb = "unstage"
	case PurposeDiscard:
		verb = "discard"
	default:
		verb = "?"
	}
	switch p.Unit() {
	case PurposeLines:
		unit = "lines"
	case PurposeHunk:
		unit = "hunk"
	case PurposeFile:
		unit = "file"
	default:
		unit = "?"
	}
	return verb + " " + unit
}

// ApplyLocation selects the target of a patch application.
type ApplyLocation int

// Apply targets.
const (
	ApplyToIndex ApplyLocation = iota
	ApplyToWorkdir
)

func (l ApplyLocation) String() string {
	if l == ApplyToWorkdir {
		return "workdir"
	}
	return "index"
}
