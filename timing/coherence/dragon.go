package coherence

import (
	"fmt"

	"github.com/sarchlab/snoopsim/timing/bus"
	"github.com/sarchlab/snoopsim/timing/cache"
)

// Dragon is the update-based Dragon protocol: writes to shared lines
// broadcast the written word instead of invalidating sharers.
type Dragon struct{}

// Name returns "Dragon".
func (p *Dragon) Name() string { return "Dragon" }

// IsDirty reports whether the state requires a write-back on eviction.
func (p *Dragon) IsDirty(s cache.Status) bool {
	return s == cache.Modified || s == cache.SharedModified
}

// PrivateStates returns the private-access bucket.
func (p *Dragon) PrivateStates() []cache.Status {
	return []cache.Status{cache.Modified, cache.Exclusive}
}

// PublicStates returns the public-access bucket.
func (p *Dragon) PublicStates() []cache.Status {
	return []cache.Status{cache.SharedModified, cache.SharedClean}
}

// ReadHit serves a read hit locally in every state.
func (p *Dragon) ReadHit(c *Controller, cycle int64, addr cache.Address, line *cache.Line) bool {
	if !c.Bus.Acquire(c.ID) {
		return false
	}
	c.Bus.Release(c.ID)
	return true
}

// WriteHit writes locally in M and E (E upgrades to M). A write to a
// shared line broadcasts one word with BusUpd and moves to Sm.
func (p *Dragon) WriteHit(c *Controller, cycle int64, addr cache.Address, line *cache.Line) bool {
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

	case cache.SharedClean, cache.SharedModified:
		_, done := c.transact(bus.Request{
			Kind: bus.BusUpd, Address: addr.Raw, OriginID: c.ID,
		})
		if !done {
			return false
		}

		line.Status = cache.SharedModified
		c.Stats.OnBusTraffic(1)
		c.Bus.Release(c.ID)
		return true
	}

	panic(fmt.Sprintf("dragon: write hit on controller %d in state %s", c.ID, line.Status))
}

// ReadMiss fills the victim from a sharer into Sc, or from memory into E.
func (p *Dragon) ReadMiss(c *Controller, cycle int64, addr cache.Address, line *cache.Line) bool {
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
		c.fill(line, addr, cycle, cache.SharedClean)
	}

	c.Stats.OnBusTraffic(c.Cache.NumWordsPerLine)
	c.Bus.Release(c.ID)
	return true
}

// WriteMiss first probes sharing with a BusRd (sharers answer with a
// block transfer); the probe runs at most once per transaction. An
// unshared block is fetched from memory into M; a shared one is updated
// with BusUpd and filled in Sm.
func (p *Dragon) WriteMiss(c *Controller, cycle int64, addr cache.Address, line *cache.Line) bool {
	if !c.Bus.Acquire(c.ID) {
		return false
	}
	if !c.flushVictim(line) {
		return false
	}

	if !c.Bus.AlreadyBusRd {
		shared, done := c.transact(bus.Request{
			Kind: bus.BusRd, Address: addr.Raw, OriginID: c.ID,
		})
		if !done {
			return false
		}

		c.Bus.AlreadyBusRd = true
		c.Bus.SharedLine = shared
		if shared {
			c.Stats.OnBusTraffic(c.Cache.NumWordsPerLine)
		}
	}

	if !c.Bus.SharedLine {
		if !c.Memory.ReadData(c.Cache.BlockAddress(addr.Raw)) {
			return false
		}
		c.fill(line, addr, cycle, cache.Modified)
		c.Stats.OnBusTraffic(c.Cache.NumWordsPerLine)
		c.Bus.Release(c.ID)
		return true
	}

	_, done := c.transact(bus.Request{
		Kind: bus.BusUpd, Address: addr.Raw, OriginID: c.ID,
	})
	if !done {
		return false
	}

	c.fill(line, addr, cycle, cache.SharedModified)
	c.Stats.OnBusTraffic(1)
	c.Bus.Release(c.ID)
	return true
}

// Snoop responds to a bus request. A BusRd hit starts a block transfer;
// a BusUpd hit accepts the updated word in one extra cycle. Completion
// applies the snooped-side transition and charges BusUpd updates to
// this snooper.
func (p *Dragon) Snoop(c *Controller, req bus.Request, line *cache.Line, isHit bool) *PendingTransfer {
	if c.pending == nil {
		switch req.Kind {
		case bus.BusRd, bus.BusUpd:
		default:
			panic(fmt.Sprintf("dragon: %s must not appear on the snoop side", req.Kind))
		}

		c.Bus.SetIsPresent(c.ID, isHit)
		c.Bus.SetWait(c.ID, isHit)

		if !isHit {
			c.Bus.SetCompleted(c.ID, true)
			return nil
		}

		cycles := transferCycles(c.Cache.NumWordsPerLine)
		if req.Kind == bus.BusUpd {
			cycles = 1
		}
		return &PendingTransfer{Request: req, CyclesLeft: cycles}
	}

	if !isHit {
		panic(fmt.Sprintf("dragon: controller %d mid-transfer with an invalid line", c.ID))
	}

	return continueTransfer(c, func(req bus.Request) {
		if req.Kind == bus.BusUpd {
			c.Stats.OnInvalidate(c.ID)
		}
		p.applySnoop(req, line)
	})
}

// applySnoop is the snooped-side state transition table.
func (p *Dragon) applySnoop(req bus.Request, line *cache.Line) {
	switch req.Kind {
	case bus.BusRd:
		switch line.Status {
		case cache.Modified:
			line.Status = cache.SharedModified
		case cache.Exclusive:
			line.Status = cache.SharedClean
		}

	case bus.BusUpd:
		if line.Status != cache.Invalid {
			line.Status = cache.SharedClean
		}

	default:
		panic(fmt.Sprintf("dragon: %s must not appear on the snoop side", req.Kind))
	}
}
