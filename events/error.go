package events

type Error struct {
	Base
	Err error
}

func NewErrorEvent(executionId string, err error) *Error {
	return &Error{
		Base: Base{ExecutionId: executionId},
		Err:  err,
	}
}
