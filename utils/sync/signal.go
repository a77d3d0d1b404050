package sync

import (
	"sync"
)

// Signal represents a signal that can be sent out on many channels at once.
// Sending never blocks; a watcher whose buffer is full misses the value.
type Signal struct {
	lock       sync.Mutex
	observers  []chan interface{}
	bufferSize int
}

// NewSignal creates a new signal. Each watcher gets a channel buffered to
// bufferSize values.
func NewSignal(bufferSize int) *Signal {
	return &Signal{
		observers:  make([]chan interface{}, 0),
		bufferSize: bufferSize,
	}
}

// Watch watches for a signal to be fired.
func (s *Signal) Watch() chan interface{} {
	watcherChannel := make(chan interface{}, s.bufferSize)

	s.lock.Lock()
	s.observers = append(s.observers, watcherChannel)
	s.lock.Unlock()

	return watcherChannel
}

// Unwatch stops sending to the channel and closes it.
func (s *Signal) Unwatch(watcherChannel chan interface{}) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for i, o := range s.observers {
		if o == watcherChannel {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			close(o)
			return
		}
	}
}

// Signal sends a signal to the watchers and returns the number of watchers
// that could not receive it.
func (s *Signal) Signal(data interface{}) int {
	s.lock.Lock()
	defer s.lock.Unlock()

	dropped := 0
	for _, watcher := range s.observers {
		select {
		case watcher <- data:
		default:
			dropped++
		}
	}
	return dropped
}

// Watchers gets the number of channels watching the signal.
func (s *Signal) Watchers() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.observers)
}
