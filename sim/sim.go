// Package sim assembles the simulated machine and drives the global
// cycle loop: memory controller first, then the bus fairness latch,
// then every processor in fixed index order.
package sim

import (
	"fmt"

	"github.com/sarchlab/snoopsim/stats"
	"github.com/sarchlab/snoopsim/timing/bus"
	"github.com/sarchlab/snoopsim/timing/coherence"
	"github.com/sarchlab/snoopsim/timing/core"
	"github.com/sarchlab/snoopsim/timing/memory"
	"github.com/sarchlab/snoopsim/trace"
)

// System is one assembled simulation: processors, cache controllers,
// the shared bus, and the memory controller, all advanced by a single
// monotonically incrementing cycle counter.
type System struct {
	config Config

	bus         *bus.Bus
	memory      *memory.Controller
	controllers []*coherence.Controller
	processors  []*core.Processor
	statsAccum  *stats.Accumulator

	cycle int64
}

// New builds a system from a configuration and one trace per core.
func New(config Config, traces [][]trace.Instruction) (*System, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(traces) != config.NumCores {
		return nil, fmt.Errorf("expected %d traces, got %d", config.NumCores, len(traces))
	}

	protocol, err := coherence.NewProtocol(config.Protocol)
	if err != nil {
		return nil, err
	}

	statsAccum := stats.NewAccumulator(
		config.NumCores, protocol.PrivateStates(), protocol.PublicStates())

	var memOpts []memory.Option
	if config.UseWriteBuffer {
		memOpts = append(memOpts, memory.WithWriteBuffer(config.WriteBufferCapacity))
	}
	mem := memory.NewController(statsAccum, memOpts...)

	b := bus.New(config.NumCores)

	s := &System{
		config:      config,
		bus:         b,
		memory:      mem,
		controllers: make([]*coherence.Controller, config.NumCores),
		processors:  make([]*core.Processor, config.NumCores),
		statsAccum:  statsAccum,
	}

	for i := 0; i < config.NumCores; i++ {
		s.controllers[i] = coherence.NewController(
			i, config.CacheConfig(), protocol, b, mem, statsAccum)
	}
	coherence.Connect(s.controllers)

	mem.SetDelay(2 * s.controllers[0].Cache.NumWordsPerLine)

	for i := 0; i < config.NumCores; i++ {
		counts := trace.Count(traces[i])
		statsAccum.RegisterTraceCounts(i, counts.Loads, counts.Stores, counts.Computes)
		s.processors[i] = core.NewProcessor(i, traces[i], s.controllers[i], statsAccum)
	}

	return s, nil
}

// Cycle returns the current cycle number.
func (s *System) Cycle() int64 { return s.cycle }

// Stats returns the statistics accumulator.
func (s *System) Stats() *stats.Accumulator { return s.statsAccum }

// Controllers returns the cache controllers in core order.
func (s *System) Controllers() []*coherence.Controller { return s.controllers }

// Processors returns the processors in core order.
func (s *System) Processors() []*core.Processor { return s.processors }

// Done reports whether every processor has exhausted its trace.
func (s *System) Done() bool {
	for _, p := range s.processors {
		if !p.Done() {
			return false
		}
	}
	return true
}

// RunOnce advances the whole system by one cycle.
func (s *System) RunOnce() {
	s.memory.RunOnce()
	s.bus.Reset()

	for i, p := range s.processors {
		wasDone := p.Done()
		p.RunOnce(s.cycle)
		if !wasDone && p.Done() {
			s.statsAccum.OnRunEnd(i, s.cycle)
		}
	}

	s.cycle++
}

// Run advances the system until every processor completes and returns
// the final cycle count.
func (s *System) Run() int64 {
	for !s.Done() {
		s.RunOnce()
	}
	return s.cycle
}
