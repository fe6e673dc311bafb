package replay

// State is the stage a replay pass has reached
type State int

const (
	StateConfiguring State = iota
	StateFetching
	StateStreaming
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConfiguring:
		return "configuring"
	case StateFetching:
		return "fetching"
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen from s
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
