// Package core provides the trace-replaying processor model. Each
// processor drives its prerecorded instruction trace through a cache
// controller, one cycle at a time.
package core

import (
	"github.com/sarchlab/snoopsim/stats"
	"github.com/sarchlab/snoopsim/timing/coherence"
	"github.com/sarchlab/snoopsim/trace"
)

// Processor replays one core's trace. It holds at most one in-flight
// instruction; a memory instruction that cannot complete this cycle is
// re-presented unchanged on the next one.
type Processor struct {
	id         int
	trace      []trace.Instruction
	index      int
	current    trace.Instruction
	hasCurrent bool

	controller *coherence.Controller
	statsAccum *stats.Accumulator
}

// NewProcessor creates a processor replaying instructions through the
// given cache controller.
func NewProcessor(
	id int,
	instructions []trace.Instruction,
	controller *coherence.Controller,
	statsAccum *stats.Accumulator,
) *Processor {
	return &Processor{
		id:         id,
		trace:      instructions,
		controller: controller,
		statsAccum: statsAccum,
	}
}

// ID returns the processor's core index.
func (p *Processor) ID() int { return p.id }

// Controller returns the processor's cache controller.
func (p *Processor) Controller() *coherence.Controller { return p.controller }

// Done reports whether the trace is exhausted and no instruction is in
// flight. Once done, further RunOnce calls are no-ops.
func (p *Processor) Done() bool {
	return p.index >= len(p.trace) && !p.hasCurrent
}

// RunOnce advances the processor by one cycle: it either consumes one
// compute cycle of an OTHER instruction or asks the cache controller to
// (partially) service the current memory instruction.
func (p *Processor) RunOnce(cycle int64) {
	if p.Done() {
		return
	}

	if !p.hasCurrent {
		p.current = p.trace[p.index]
		p.index++
		p.hasCurrent = true
	}

	if p.current.Kind == trace.Other {
		p.statsAccum.OnCompute(p.id)
		if p.current.Value > 1 {
			p.current.Value--
		} else {
			p.hasCurrent = false
		}
		return
	}

	if p.controller.ProcessorRequest(p.current.Kind, p.current.Value, cycle) {
		p.hasCurrent = false
	} else {
		p.statsAccum.OnIdle(p.id)
	}
}
