package datachannel

import (
	"sync/atomic"
	"time"

	"github.com/pion/logging"

	"github.com/1ureka/dcpipe/internal/util"
)

// congestion gates the outbound queue on the transport's buffered amount.
// The transport has no backpressure event, so while the buffer is too full
// it polls on a fixed interval.
type congestion struct {
	pressure  func() uint64 // Transport.BufferedAmount
	chunkSize uint64
	limit     uint64
	interval  time.Duration
	log       logging.LeveledLogger

	suspended atomic.Bool
}

// congested reports whether sending one more full chunk could push the
// transport buffer past the limit.
func (c *congestion) congested() bool {
	return c.pressure()+c.chunkSize > c.limit
}

// wait returns immediately when there is room. Otherwise it polls every
// interval until there is, returning false if stop closes first.
func (c *congestion) wait(stop <-chan struct{}) bool {
	if !c.congested() {
		return true
	}

	c.suspended.Store(true)
	defer c.suspended.Store(false)

	util.Stats.AddStall()
	c.log.Debugf("buffer pressure above %d bytes, pausing outbound queue", c.limit)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !c.congested() {
				c.log.Debug("buffer pressure relieved, resuming outbound queue")
				return true
			}
		case <-stop:
			return false
		}
	}
}
