package coherence

import (
	"fmt"

	"github.com/sarchlab/snoopsim/timing/bus"
	"github.com/sarchlab/snoopsim/timing/cache"
)

// MESIF extends MESI with a Forwarder state: among sharers, exactly one
// cache is designated to answer read requests. On a shared BusRd the
// new reader takes F and a prior forwarder demotes to S, so the most
// recent reader always forwards.
type MESIF struct{}

// Name returns "MESIF".
func (p *MESIF) Name() string { return "MESIF" }

// IsDirty reports whether the state requires a write-back on eviction.
// F is a clean state: only M writes back.
func (p *MESIF) IsDirty(s cache.Status) bool {
	return s == cache.Modified
}

// PrivateStates returns the private-access bucket.
func (p *MESIF) PrivateStates() []cache.Status {
	return []cache.Status{cache.Modified, cache.Exclusive}
}

// PublicStates returns the public-access bucket.
func (p *MESIF) PublicStates() []cache.Status {
	return []cache.Status{cache.Shared, cache.Forwarder}
}

// ReadHit serves a read hit locally.
func (p *MESIF) ReadHit(c *Controller, cycle int64, addr cache.Address, line *cache.Line) bool {
	if !c.Bus.Acquire(c.ID) {
		return false
	}
	c.Bus.Release(c.ID)
	return true
}

// WriteHit upgrades the line for writing; S and F behave alike and must
// invalidate the other copies with a BusRdX transaction.
func (p *MESIF) WriteHit(c *Controller, cycle int64, addr cache.Address, line *cache.Line) bool {
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

	case cache.Shared, cache.Forwarder:
		shared, done := c.transact(bus.Request{
			Kind: bus.BusRdX, Address: addr.Raw, OriginID: c.ID,
		})
		if !done {
			return false
		}

		line.Status = cache.Modified
		if shared {
			c.Stats.OnBusTraffic(c.Cache.NumWordsPerLine)
		}
		c.Bus.Release(c.ID)
		return true
	}

	panic(fmt.Sprintf("mesif: write hit on controller %d in state %s", c.ID, line.Status))
}

// ReadMiss fills the victim from the forwarder into F (taking over the
// forwarding duty), or from memory into E.
func (p *MESIF) ReadMiss(c *Controller, cycle int64, addr cache.Address, line *cache.Line) bool {
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
		c.fill(line, addr, cycle, cache.Forwarder)
	}

	c.Stats.OnBusTraffic(c.Cache.NumWordsPerLine)
	c.Bus.Release(c.ID)
	return true
}

// WriteMiss replaces the victim with the requested block in M,
// invalidating all other copies.
func (p *MESIF) WriteMiss(c *Controller, cycle int64, addr cache.Address, line *cache.Line) bool {
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

// Snoop responds to a bus request. Only the designated responder (the
// forwarder, or the single M/E holder) performs the timed block
// transfer; plain S sharers answer presence immediately and apply their
// transition on the spot.
func (p *MESIF) Snoop(c *Controller, req bus.Request, line *cache.Line, isHit bool) *PendingTransfer {
	if c.pending == nil {
		c.Bus.SetIsPresent(c.ID, isHit)

		if !isHit {
			c.Bus.SetWait(c.ID, false)
			c.Bus.SetCompleted(c.ID, true)
			return nil
		}

		if line.Status == cache.Shared {
			c.Bus.SetWait(c.ID, false)
			c.Bus.SetCompleted(c.ID, true)
			if req.Kind == bus.BusRdX {
				c.Stats.OnInvalidate(c.ID)
			}
			p.applySnoop(req, line)
			return nil
		}

		c.Bus.SetWait(c.ID, true)
		return &PendingTransfer{
			Request:    req,
			CyclesLeft: transferCycles(c.Cache.NumWordsPerLine),
		}
	}

	if !isHit {
		panic(fmt.Sprintf("mesif: controller %d mid-transfer with an invalid line", c.ID))
	}

	return continueTransfer(c, func(req bus.Request) {
		if req.Kind == bus.BusRdX {
			c.Stats.OnInvalidate(c.ID)
		}
		p.applySnoop(req, line)
	})
}

// applySnoop is the snooped-side state transition table. A prior
// forwarder demotes to S on BusRd because the new reader takes F.
func (p *MESIF) applySnoop(req bus.Request, line *cache.Line) {
	switch req.Kind {
	case bus.BusRd:
		switch line.Status {
		case cache.Modified, cache.Exclusive, cache.Forwarder:
			line.Status = cache.Shared
		}

	case bus.BusRdX:
		line.Status = cache.Invalid

	default:
		panic(fmt.Sprintf("mesif: %s must not appear on the snoop side", req.Kind))
	}
}
