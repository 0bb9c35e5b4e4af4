package eventloop

// State is a phase of the cycle state machine.
type State int

const (
	Idle State = iota
	Preparing
	Streaming
	Succeeded
	Retrying
	Recovering
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Preparing:
		return "preparing"
	case Streaming:
		return "streaming"
	case Succeeded:
		return "succeeded"
	case Retrying:
		return "retrying"
	case Recovering:
		return "recovering"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition leaves s within a cycle.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}
