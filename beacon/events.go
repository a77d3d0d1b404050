package beacon

import (
	"github.com/phoreproject/beaconcore/primitives"
	utilsync "github.com/phoreproject/beaconcore/utils/sync"
)

// DefaultEventBufferSize is the number of events a subscriber may fall behind
// before it starts missing events.
const DefaultEventBufferSize = 64

// ChainLoaded is published once the canonical head is restored or
// bootstrapped.
type ChainLoaded struct {
	Block *primitives.Block
	State *primitives.ChainState
}

// ChainSynced is published when the chain is ready to process blocks.
type ChainSynced struct {
	Block *primitives.Block
	State *primitives.ChainState
}

// BlockProcessed is published for every block accepted by the chain.
type BlockProcessed struct {
	Block *primitives.Block
	State *primitives.ChainState
	// Best is set if the block became the canonical head.
	Best bool
}

type publisher struct {
	signal *utilsync.Signal
}

func newPublisher(bufferSize int) *publisher {
	return &publisher{signal: utilsync.NewSignal(bufferSize)}
}

func (p *publisher) publish(event interface{}) {
	if dropped := p.signal.Signal(event); dropped > 0 {
		eventsDropped.Add(float64(dropped))
		log.WithField("subscribers", dropped).Warn("event dropped for slow subscribers")
	}
}

// Subscribe returns a channel receiving ChainLoaded, ChainSynced and
// BlockProcessed events in the order they happened.
func (c *BeaconChain) Subscribe() chan interface{} {
	return c.events.signal.Watch()
}

// Unsubscribe stops sending events to a subscriber and closes its channel.
func (c *BeaconChain) Unsubscribe(ch chan interface{}) {
	c.events.signal.Unwatch(ch)
}
