package pipeline

import "fmt"

// State is a Driver lifecycle state.
//
//	Idle → Loading → Cleaning → Calculating → Saving → Done
//	Idle → LoadingChunked → Saving → Done
//
// Any failure moves to Failed, which is terminal for the run.
type State int

const (
	Idle State = iota
	Loading
	Cleaning
	Calculating
	LoadingChunked
	Saving
	Done
	Failed
)

var stateNames = [...]string{
	Idle:           "idle",
	Loading:        "loading",
	Cleaning:       "cleaning",
	Calculating:    "calculating",
	LoadingChunked: "loading_chunked",
	Saving:         "saving",
	Done:           "done",
	Failed:         "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transition can happen in this run.
func (s State) Terminal() bool { return s == Done || s == Failed }

// StageError is returned by Run for a fatal failure. Stage is the state the
// driver was in when the failure happened.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }
