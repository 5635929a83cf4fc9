package coherence

import (
	"fmt"

	"github.com/sarchlab/snoopsim/stats"
	"github.com/sarchlab/snoopsim/timing/bus"
	"github.com/sarchlab/snoopsim/timing/cache"
	"github.com/sarchlab/snoopsim/timing/memory"
	"github.com/sarchlab/snoopsim/trace"
)

// Controller owns one processor's cache and speaks the configured
// protocol on the bus. The processor-side path is ProcessorRequest; the
// snoop-side path is ReceiveSnoop, invoked synchronously by whichever
// controller currently initiates a bus transaction.
type Controller struct {
	ID       int
	Cache    *cache.Cache
	Bus      *bus.Bus
	Memory   *memory.Controller
	Stats    *stats.Accumulator
	Protocol Protocol

	fleet   []*Controller
	pending *PendingTransfer
}

// NewController creates a cache controller. Peers are wired afterwards
// with Connect.
func NewController(
	id int,
	cacheConfig cache.Config,
	protocol Protocol,
	b *bus.Bus,
	mem *memory.Controller,
	statsAccum *stats.Accumulator,
) *Controller {
	return &Controller{
		ID:       id,
		Cache:    cache.New(cacheConfig),
		Bus:      b,
		Memory:   mem,
		Stats:    statsAccum,
		Protocol: protocol,
	}
}

// Connect gives every controller the full peer list so an initiator can
// broadcast snoops by index.
func Connect(controllers []*Controller) {
	for _, c := range controllers {
		c.fleet = controllers
	}
}

// NumCores returns the number of connected controllers.
func (c *Controller) NumCores() int {
	return len(c.fleet)
}

// HasPendingTransfer reports whether the controller is mid-transfer on
// the snoop side.
func (c *Controller) HasPendingTransfer() bool {
	return c.pending != nil
}

// ProcessorRequest services one cycle of a processor memory instruction
// and reports whether the instruction retired. A false return means the
// processor must re-present the same instruction next cycle.
func (c *Controller) ProcessorRequest(kind trace.Kind, address uint32, cycle int64) bool {
	if kind == trace.Other {
		panic(fmt.Sprintf("controller %d: %s is not a memory request", c.ID, kind))
	}

	addr := c.Cache.ParseAddress(address)
	line, isHit := c.Cache.Locate(addr)
	state := line.Status

	var retired bool
	switch {
	case isHit && kind == trace.Read:
		retired = c.Protocol.ReadHit(c, cycle, addr, line)
	case isHit && kind == trace.Write:
		retired = c.Protocol.WriteHit(c, cycle, addr, line)
	case kind == trace.Read:
		retired = c.Protocol.ReadMiss(c, cycle, addr, line)
	default:
		retired = c.Protocol.WriteMiss(c, cycle, addr, line)
	}

	if retired && isHit {
		c.Cache.Touch(line, cycle)
		if kind == trace.Read {
			c.Stats.OnReadHit(c.ID, state)
		} else {
			c.Stats.OnWriteHit(c.ID, state)
		}
	}

	return retired
}

// ReceiveSnoop responds to the request currently on the bus. The
// initiator calls it on every controller, itself included; the origin
// short-circuits with an empty response.
func (c *Controller) ReceiveSnoop() {
	if c.Bus.Completed(c.ID) {
		return
	}

	req := c.Bus.Request()
	if req == nil {
		panic(fmt.Sprintf("controller %d: snoop with no request on the bus", c.ID))
	}

	if req.OriginID == c.ID {
		c.Bus.SetCompleted(c.ID, true)
		c.Bus.SetIsPresent(c.ID, false)
		return
	}

	addr := c.Cache.ParseAddress(req.Address)
	line, isHit := c.Cache.Locate(addr)
	c.pending = c.Protocol.Snoop(c, *req, line, isHit)
}

// broadcastSnoop polls every controller's snoop handler for the request
// currently on the bus.
func (c *Controller) broadcastSnoop() {
	for _, peer := range c.fleet {
		peer.ReceiveSnoop()
	}
}

// transact places a request on the bus and collects snoop responses.
// done is false while some snooper is mid-transfer; the initiator must
// retry next cycle. When done, shared reports whether any snooper held
// the block, and all response vectors have been cleared.
func (c *Controller) transact(req bus.Request) (shared, done bool) {
	c.Bus.SetRequest(req)
	c.broadcastSnoop()

	if c.Bus.AnyWaiting() {
		return false, false
	}

	shared = c.Bus.AnyPresent()
	c.Bus.ClearResponses()
	return shared, true
}

// flushVictim pays the write-back cost of a dirty victim before a miss
// replacement may proceed. It returns false while memory is still busy;
// once the write-back completes, the transaction's AlreadyFlush flag
// stops re-entries from paying it again.
func (c *Controller) flushVictim(line *cache.Line) bool {
	if c.Bus.AlreadyFlush || !c.Protocol.IsDirty(line.Status) {
		return true
	}

	if !c.Memory.WriteBack(c.Cache.LineAddress(line)) {
		return false
	}

	c.Bus.AlreadyFlush = true
	c.Stats.OnBusTraffic(c.Cache.NumWordsPerLine)
	return true
}

// fill installs the missed block into the victim line.
func (c *Controller) fill(line *cache.Line, addr cache.Address, cycle int64, status cache.Status) {
	c.Cache.Install(line, addr, status, cycle)
}
