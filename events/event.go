package events

type Event interface {
	IsEvent()
}

type Base struct {
	ExecutionId string
}

func (b *Base) IsEvent() {}
