package observable

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/plerkle-io/snapshot-geyser/events"
)

// Base provides a base implementation of the Observable interface.
// It is embedded in the replayer so the CLI and tests can follow a pass
type Base struct {
	observerLock sync.RWMutex
	Observers    []Observer
}

func (p *Base) AddObserver(o Observer) error {
	if o == nil {
		return errors.New("observer must not be nil")
	}
	p.observerLock.Lock()
	p.Observers = append(p.Observers, o)
	p.observerLock.Unlock()
	slog.Debug("AddObserver", "observers", len(p.Observers))
	return nil
}

// NotifyObservers sends e to every observer, returning the joined errors of those that failed
func (p *Base) NotifyObservers(e events.Event) error {
	p.observerLock.RLock()
	defer p.observerLock.RUnlock()
	var notifyErrors []error
	for _, observer := range p.Observers {
		err := observer.Notify(e)
		if err != nil {
			notifyErrors = append(notifyErrors, err)
		}
	}

	return errors.Join(notifyErrors...)
}
