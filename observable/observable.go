package observable

import (
	"github.com/plerkle-io/snapshot-geyser/events"
)

type Observable interface {
	AddObserver(Observer) error
}

// Observer is the interface that all observers must implement
type Observer interface {
	Notify(events.Event) error
}

// ObserverFunc adapts a function to an Observer
type ObserverFunc func(events.Event) error

func (f ObserverFunc) Notify(e events.Event) error {
	return f(e)
}
