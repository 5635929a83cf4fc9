package coherence

import (
	"fmt"

	"github.com/sarchlab/snoopsim/timing/bus"
	"github.com/sarchlab/snoopsim/timing/cache"
)

// MESI is the invalidation-based MESI protocol.
type MESI struct{}

// Name returns "MESI".
func (p *MESI) Name() string { return "MESI" }

// IsDirty reports whether the state requires a write-back on eviction.
func (p *MESI) IsDirty(s cache.Status) bool {
	return s == cache.Modified
}

// PrivateStates returns the private-access bucket.
func (p *MESI) PrivateStates() []cache.Status {
	return []cache.Status{cache.Modified, cache.Exclusive}
}

// PublicStates returns the public-access bucket.
func (p *MESI) PublicStates() []cache.Status {
	return []cache.Status{cache.Shared}
}

// ReadHit serves a read hit locally. The bus is acquired and released
// immediately; no traffic is generated.
func (p *MESI) ReadHit(c *Controller, cycle int64, addr cache.Address, line *cache.Line) bool {
	if !c.Bus.Acquire(c.ID) {
		return false
	}
	c.Bus.Release(c.ID)
	return true
}

// WriteHit upgrades the line for writing. M retires silently, E upgrades
// to M silently, and S must first invalidate the other sharers with a
// BusRdX transaction.
func (p *MESI) WriteHit(c *Controller, cycle int64, addr cache.Address, line *cache.Line) bool {
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

	case cache.Shared:
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

	panic(fmt.Sprintf("mesi: write hit on controller %d in state %s", c.ID, line.Status))
}

// ReadMiss replaces the victim with the requested block: cache-to-cache
// into S when a sharer exists, otherwise from memory into E.
func (p *MESI) ReadMiss(c *Controller, cycle int64, addr cache.Address, line *cache.Line) bool {
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
func (p *MESI) WriteMiss(c *Controller, cycle int64, addr cache.Address, line *cache.Line) bool {
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

// Snoop responds to a bus request. A hit starts a block transfer lasting
// 2*words-1 cycles; completion applies the snooped-side state
// transition and, for BusRdX, charges the invalidation to this snooper.
func (p *MESI) Snoop(c *Controller, req bus.Request, line *cache.Line, isHit bool) *PendingTransfer {
	if c.pending == nil {
		c.Bus.SetIsPresent(c.ID, isHit)
		c.Bus.SetWait(c.ID, isHit)

		if !isHit {
			c.Bus.SetCompleted(c.ID, true)
			return nil
		}
		return &PendingTransfer{
			Request:    req,
			CyclesLeft: transferCycles(c.Cache.NumWordsPerLine),
		}
	}

	if !isHit {
		panic(fmt.Sprintf("mesi: controller %d mid-transfer with an invalid line", c.ID))
	}

	return continueTransfer(c, func(req bus.Request) {
		if req.Kind == bus.BusRdX {
			c.Stats.OnInvalidate(c.ID)
		}
		p.applySnoop(req, line)
	})
}

// applySnoop is the snooped-side state transition table.
func (p *MESI) applySnoop(req bus.Request, line *cache.Line) {
	switch req.Kind {
	case bus.BusRd:
		switch line.Status {
		case cache.Modified, cache.Exclusive:
			line.Status = cache.Shared
		}

	case bus.BusRdX:
		line.Status = cache.Invalid

	default:
		panic(fmt.Sprintf("mesi: %s must not appear on the snoop side", req.Kind))
	}
}
