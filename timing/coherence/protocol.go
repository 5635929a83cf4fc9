// Package coherence implements the snoop-side cache controllers and the
// coherence protocol state machines: MESI, Dragon, MOESI, and MESIF.
package coherence

import (
	"fmt"

	"github.com/sarchlab/snoopsim/timing/bus"
	"github.com/sarchlab/snoopsim/timing/cache"
)

// Protocol is one coherence scheme: the four processor-side handlers,
// the snoop-side handler, and the state classification the statistics
// report needs.
//
// The processor-side handlers share one contract: they return true when
// the instruction retires this cycle and false when it must be
// re-presented next cycle (side effects on the bus and caches have
// still advanced). Every handler that arbitrates for the bus shares one
// guard at entry: if bus acquisition fails, return false and try again
// next cycle. MOESI read hits do not arbitrate and always retire.
type Protocol interface {
	// Name returns the protocol mnemonic.
	Name() string

	// IsDirty reports whether the state obliges a write-back before the
	// line may be replaced.
	IsDirty(s cache.Status) bool

	// PrivateStates lists the states bucketed as private accesses.
	PrivateStates() []cache.Status
	// PublicStates lists the states bucketed as public accesses.
	PublicStates() []cache.Status

	// ReadHit handles a processor read that hit in the cache.
	ReadHit(c *Controller, cycle int64, addr cache.Address, line *cache.Line) bool
	// WriteHit handles a processor write that hit in the cache.
	WriteHit(c *Controller, cycle int64, addr cache.Address, line *cache.Line) bool
	// ReadMiss handles a processor read that missed; line is the
	// proposed victim.
	ReadMiss(c *Controller, cycle int64, addr cache.Address, line *cache.Line) bool
	// WriteMiss handles a processor write that missed; line is the
	// proposed victim.
	WriteMiss(c *Controller, cycle int64, addr cache.Address, line *cache.Line) bool

	// Snoop responds to the bus request on behalf of a non-initiator.
	// It returns the controller's new pending transfer, or nil when the
	// snoop response is finished.
	Snoop(c *Controller, req bus.Request, line *cache.Line, isHit bool) *PendingTransfer
}

// PendingTransfer is snoop-side in-flight work: a multi-cycle block (or
// word) transfer performed on behalf of the current bus transaction.
// CyclesLeft strictly decreases; the transfer finishes when it reaches 1.
type PendingTransfer struct {
	Request    bus.Request
	CyclesLeft int
}

// NewProtocol returns the protocol implementation for a name.
func NewProtocol(name string) (Protocol, error) {
	switch name {
	case "MESI":
		return &MESI{}, nil
	case "Dragon":
		return &Dragon{}, nil
	case "MOESI":
		return &MOESI{}, nil
	case "MESIF":
		return &MESIF{}, nil
	}
	return nil, fmt.Errorf("invalid protocol: %s", name)
}

// transferCycles is the length of a snooped block transfer.
func transferCycles(numWordsPerLine int) int {
	return cacheFlushMultiplier*numWordsPerLine - 1
}

// cacheFlushMultiplier scales a line's word count into transfer cycles.
const cacheFlushMultiplier = 2

// continueTransfer advances a controller's pending snoop transfer by one
// cycle. While cycles remain, the controller keeps signalling presence
// and wait; on the final cycle it completes the response, clears the
// wait bit, and runs the protocol's completion accounting.
func continueTransfer(c *Controller, onComplete func(req bus.Request)) *PendingTransfer {
	pending := c.pending
	c.Bus.SetIsPresent(c.ID, true)

	if pending.CyclesLeft > 1 {
		c.Bus.SetWait(c.ID, true)
		return &PendingTransfer{Request: pending.Request, CyclesLeft: pending.CyclesLeft - 1}
	}

	c.Bus.SetCompleted(c.ID, true)
	c.Bus.SetWait(c.ID, false)
	onComplete(pending.Request)
	return nil
}
