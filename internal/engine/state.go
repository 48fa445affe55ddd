package engine

// State is the lifecycle of one betting session.
//
//	Idle -> Configuring -> Running -> Stopping -> Idle
//
// Faulted is absorbing but recoverable: a new Configure leaves it,
// nothing else does.
type State string

const (
	StateIdle        State = "idle"
	StateConfiguring State = "configuring"
	StateRunning     State = "running"
	StateStopping    State = "stopping"
	StateFaulted     State = "faulted"
)

func (s State) String() string { return string(s) }
