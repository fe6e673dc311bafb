package events

type Complete struct {
	Base
	Records   uint64
	BytesRead int64
	Err       error
}

func NewCompletedEvent(executionId string, records uint64, bytesRead int64, err error) *Complete {
	return &Complete{
		Base:      Base{ExecutionId: executionId},
		Records:   records,
		BytesRead: bytesRead,
		Err:       err,
	}
}
