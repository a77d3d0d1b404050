package utils

import (
	"sync"
	"time"

	"github.com/beevik/ntp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "clock")

// DefaultNTPServer is queried by CheckNTP when no server is given.
const DefaultNTPServer = "pool.ntp.org"

var (
	offsetLock sync.RWMutex
	timeOffset time.Duration
)

// CheckNTP queries an NTP server for the offset of the local clock and uses
// it for Now. The offset is left unchanged if the server can't be reached.
func CheckNTP(server string) (time.Duration, error) {
	if server == "" {
		server = DefaultNTPServer
	}

	res, err := ntp.Query(server)
	if err != nil {
		return 0, errors.Wrapf(err, "could not query NTP server %s", server)
	}

	log.WithField("offset", res.ClockOffset).Info("got clock offset from NTP server")
	SetTimeOffset(res.ClockOffset)
	return res.ClockOffset, nil
}

// SetTimeOffset sets the offset Now adds to the local clock.
func SetTimeOffset(offset time.Duration) {
	offsetLock.Lock()
	defer offsetLock.Unlock()
	timeOffset = offset
}

// Now gets the true time (not relying on computer time)
func Now() time.Time {
	offsetLock.RLock()
	defer offsetLock.RUnlock()
	return time.Now().Add(timeOffset)
}
