package pipeline

// State is a step of the extraction state machine.
type State int

const (
	Init State = iota
	Validating
	ExtractingPrimary
	ExtractingDetails
	Done
	PartialDone
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Validating:
		return "validating"
	case ExtractingPrimary:
		return "extracting_primary"
	case ExtractingDetails:
		return "extracting_details"
	case Done:
		return "done"
	case PartialDone:
		return "partial_done"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool { return s == Done || s == PartialDone }
