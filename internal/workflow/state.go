package workflow

// State is a folder's position in the upload pipeline. Each folder advances
// monotonically from Pending to Done; Failed absorbs from any non-terminal
// state and records where progress stopped.
type State int

const (
	Pending State = iota
	Rotating
	LoggingIn
	FillingSettings
	CreatingBatch
	ExtractingID
	SelectingSides
	Uploading
	AwaitingValidation
	Done
	Failed
)

var stateNames = map[State]string{
	Pending:            "pending",
	Rotating:           "rotating",
	LoggingIn:          "logging_in",
	FillingSettings:    "filling_settings",
	CreatingBatch:      "creating_batch",
	ExtractingID:       "extracting_id",
	SelectingSides:     "selecting_sides",
	Uploading:          "uploading",
	AwaitingValidation: "awaiting_validation",
	Done:               "done",
	Failed:             "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}
