package events

// Status reports replay progress
type Status struct {
	Base
	Records uint64
	// Slot of the most recently forwarded record
	Slot      uint64
	BytesRead int64
}

func NewStatusEvent(executionId string) *Status {
	return &Status{
		Base: Base{ExecutionId: executionId},
	}
}

// Update records a forwarded account at slot, with bytesRead downloaded so far
func (s *Status) Update(slot uint64, bytesRead int64) {
	s.Records++
	s.Slot = slot
	s.BytesRead = bytesRead
}
