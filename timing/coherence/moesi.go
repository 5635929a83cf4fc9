package coherence

import (
	"fmt"

	"github.com/sarchlab/snoopsim/timing/bus"
	"github.com/sarchlab/snoopsim/timing/cache"
)

// MOESI extends MESI with an Owned state: a dirty-shared owner that
// supplies data to readers without writing the block back to memory.
type MOESI struct{}

// Name returns "MOESI".
func (p *MOESI) Name() string { return "MOESI" }

// IsDirty reports whether the state requires a write-back on eviction.
func (p *MOESI) IsDirty(s cache.Status) bool {
	return s == cache.Modified || s == cache.Owned
}

// PrivateStates returns the private-access bucket.
func (p *MOESI) PrivateStates() []cache.Status {
	return []cache.Status{cache.Modified, cache.Exclusive}
}

// PublicStates returns the public-access bucket.
func (p *MOESI) PublicStates() []cache.Status {
	return []cache.Status{cache.Owned, cache.Shared}
}

// ReadHit serves a read hit locally without arbitrating for the bus.
func (p *MOESI) ReadHit(c *Controller, cycle int64, addr cache.Address, line *cache.Line) bool {
	return true
}

// WriteHit upgrades the line for writing. M retires silently, E upgrades
// to M silently. S and O invalidate the other copies with a dataless
// BusInvalidate that completes in a single transaction cycle.
func (p *MOESI) WriteHit(c *Controller, cycle int64, addr cache.Address, line *cache.Line) bool {
	if !c.Bus.Acquire(c.ID) {
		return false
	}

	switch line.Status {
	case cache.Modified:
		c.Bus.Release(c.ID)
		return true

	case cache.Exclusive:
		line.Status = cache.Modified
		c.Bus.Release(c.ID)
		return true

	case cache.Shared, cache.Owned:
		_, done := c.transact(bus.Request{
			Kind: bus.BusInvalidate, Address: addr.Raw, OriginID: c.ID,
		})
		if !done {
			return false
		}

		line.Status = cache.Modified
		c.Bus.Release(c.ID)
		return true
	}

	panic(fmt.Sprintf("moesi: write hit on controller %d in state %s", c.ID, line.Status))
}

// ReadMiss fills the victim from the owner or a sharer into S, or from
// memory into E.
func (p *MOESI) ReadMiss(c *Controller, cycle int64, addr cache.Address, line *cache.Line) bool {
	if !c.Bus.Acquire(c.ID) {
		return false
	}
	if !c.flushVictim(line) {
		return false
	}

	shared, done := c.transact(bus.Request{
		Kind: bus.BusRd, Address: addr.Raw, OriginID: c.ID,
	})
	if !done {
		return false
	}

	if !shared {
		if !c.Memory.ReadData(c.Cache.BlockAddress(addr.Raw)) {
			return false
		}
		c.fill(line, addr, cycle, cache.Exclusive)
	} else {
		c.fill(line, addr, cycle, cache.Shared)
	}

	c.Stats.OnBusTraffic(c.Cache.NumWordsPerLine)
	c.Bus.Release(c.ID)
	return true
}

// WriteMiss replaces the victim with the requested block in M,
// invalidating all other copies.
func (p *MOESI) WriteMiss(c *Controller, cycle int64, addr cache.Address, line *cache.Line) bool {
	if !c.Bus.Acquire(c.ID) {
		return false
	}
	if !c.flushVictim(line) {
		return false
	}

	shared, done := c.transact(bus.Request{
		Kind: bus.BusRdX, Address: addr.Raw, OriginID: c.ID,
	})
	if !done {
		return false
	}

	if !shared {
		if !c.Memory.ReadData(c.Cache.BlockAddress(addr.Raw)) {
			return false
		}
	}
	c.fill(line, addr, cycle, cache.Modified)

	c.Stats.OnBusTraffic(c.Cache.NumWordsPerLine)
	c.Bus.Release(c.ID)
	return true
}

// Snoop responds to a bus request. BusInvalidate completes immediately
// with no data movement. A hit on a data request starts a block
// transfer; a supplier in S pays an additional daisy-chain cost of
// num_cores+1 cycles to model arbitrated supply among non-owners.
func (p *MOESI) Snoop(c *Controller, req bus.Request, line *cache.Line, isHit bool) *PendingTransfer {
	if c.pending == nil {
		c.Bus.SetIsPresent(c.ID, isHit)
		c.Bus.SetWait(c.ID, isHit)

		if req.Kind == bus.BusInvalidate {
			c.Bus.SetWait(c.ID, false)
			c.Bus.SetCompleted(c.ID, true)
			if isHit {
				c.Stats.OnInvalidate(c.ID)
				p.applySnoop(req, line)
			}
			return nil
		}

		if !isHit {
			c.Bus.SetCompleted(c.ID, true)
			return nil
		}

		cycles := transferCycles(c.Cache.NumWordsPerLine)
		if line.Status == cache.Shared {
			cycles += c.NumCores() + 1
		}
		return &PendingTransfer{Request: req, CyclesLeft: cycles}
	}

	if !isHit {
		panic(fmt.Sprintf("moesi: controller %d mid-transfer with an invalid line", c.ID))
	}

	return continueTransfer(c, func(req bus.Request) {
		if req.Kind == bus.BusRdX {
			c.Stats.OnInvalidate(c.ID)
		}
		p.applySnoop(req, line)
	})
}

// applySnoop is the snooped-side state transition table.
func (p *MOESI) applySnoop(req bus.Request, line *cache.Line) {
	switch req.Kind {
	case bus.BusRd:
		switch line.Status {
		case cache.Modified:
			line.Status = cache.Owned
		case cache.Exclusive:
			line.Status = cache.Shared
		}

	case bus.BusRdX, bus.BusInvalidate:
		line.Status = cache.Invalid

	default:
		panic(fmt.Sprintf("moesi: %s must not appear on the snoop side", req.Kind))
	}
}
