package questionnaire

// State of one submission. The workflow is a small finite-state machine:
//
//	idle → awaiting-followup → awaiting-final → analyzing → done
//	                │                               │
//	                └──────────→ failed ←───────────┘
//
// failed permits a manual retry of the phase that broke; nothing retries
// automatically.
type State int

const (
	StateIdle State = iota
	StateAwaitingFollowUp
	StateAwaitingFinal
	StateAnalyzing
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:             "idle",
	StateAwaitingFollowUp: "getting-followup",
	StateAwaitingFinal:    "awaiting-final",
	StateAnalyzing:        "loading",
	StateDone:             "success",
	StateFailed:           "error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// transitions is the explicit transition table; anything absent is illegal.
var transitions = map[State][]State{
	StateIdle:             {StateAwaitingFollowUp},
	StateAwaitingFollowUp: {StateAwaitingFinal, StateFailed},
	StateAwaitingFinal:    {StateAnalyzing},
	StateAnalyzing:        {StateDone, StateFailed},
	StateFailed:           {StateAwaitingFollowUp, StateAnalyzing},
}

// CanTransition reports whether the table allows s → to.
func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// InFlight reports whether a backend request is outstanding for this state;
// submits are rejected while one is.
func (s State) InFlight() bool {
	return s == StateAwaitingFollowUp || s == StateAnalyzing
}
