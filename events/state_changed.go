package events

type StateChanged struct {
	Base
	From string
	To   string
}

func NewStateChangedEvent(executionId, from, to string) *StateChanged {
	return &StateChanged{
		Base: Base{ExecutionId: executionId},
		From: from,
		To:   to,
	}
}
