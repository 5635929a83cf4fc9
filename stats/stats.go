// Package stats accumulates simulation statistics: per-core instruction
// and cycle counters, per-state access histograms, and global bus
// traffic, write-back, and invalidation counts.
package stats

import (
	"github.com/sarchlab/snoopsim/timing/cache"
)

// Accumulator is the process-wide statistics sink. All counters are
// monotonically non-decreasing; writes come from a single goroutine
// inside the cycle loop.
type Accumulator struct {
	numCores int

	// Registered trace instruction mixes.
	loads    []int64
	stores   []int64
	computes []int64

	readHits      []int64
	writeHits     []int64
	computeCycles []int64
	idleCycles    []int64
	completion    []int64
	invalidations []int64

	readAccesses  []map[cache.Status]int64
	writeAccesses []map[cache.Status]int64

	privateStates []cache.Status
	publicStates  []cache.Status

	busTrafficWords int64
	writeBacks      int64
}

// NewAccumulator creates an accumulator for numCores cores. The private
// and public state sets drive the access-histogram bucketing of the
// report and are protocol-dependent.
func NewAccumulator(numCores int, privateStates, publicStates []cache.Status) *Accumulator {
	a := &Accumulator{
		numCores:      numCores,
		loads:         make([]int64, numCores),
		stores:        make([]int64, numCores),
		computes:      make([]int64, numCores),
		readHits:      make([]int64, numCores),
		writeHits:     make([]int64, numCores),
		computeCycles: make([]int64, numCores),
		idleCycles:    make([]int64, numCores),
		completion:    make([]int64, numCores),
		invalidations: make([]int64, numCores),
		readAccesses:  make([]map[cache.Status]int64, numCores),
		writeAccesses: make([]map[cache.Status]int64, numCores),
		privateStates: privateStates,
		publicStates:  publicStates,
	}
	for i := 0; i < numCores; i++ {
		a.completion[i] = -1
		a.readAccesses[i] = make(map[cache.Status]int64)
		a.writeAccesses[i] = make(map[cache.Status]int64)
	}
	return a
}

// NumCores returns the number of cores being tracked.
func (a *Accumulator) NumCores() int { return a.numCores }

// RegisterTraceCounts records the instruction mix of a core's trace.
func (a *Accumulator) RegisterTraceCounts(core int, loads, stores, computes int64) {
	a.loads[core] = loads
	a.stores[core] = stores
	a.computes[core] = computes
}

// OnRunEnd records the completion cycle of a core. Only the first call
// per core takes effect.
func (a *Accumulator) OnRunEnd(core int, cycle int64) {
	if a.completion[core] == -1 {
		a.completion[core] = cycle
	}
}

// OnCompute records one compute cycle.
func (a *Accumulator) OnCompute(core int) {
	a.computeCycles[core]++
}

// OnReadHit records a read hit served in the given state.
func (a *Accumulator) OnReadHit(core int, state cache.Status) {
	a.readHits[core]++
	a.readAccesses[core][state]++
}

// OnWriteHit records a write hit served in the given state.
func (a *Accumulator) OnWriteHit(core int, state cache.Status) {
	a.writeHits[core]++
	a.writeAccesses[core][state]++
}

// OnIdle records one cycle in which the core's in-flight memory
// instruction failed to retire.
func (a *Accumulator) OnIdle(core int) {
	a.idleCycles[core]++
}

// OnWriteBack records one completed memory write-back.
func (a *Accumulator) OnWriteBack() {
	a.writeBacks++
}

// OnBusTraffic records words moved over the bus.
func (a *Accumulator) OnBusTraffic(numWords int) {
	a.busTrafficWords += int64(numWords)
}

// OnInvalidate records one invalidation (or Dragon update) suffered by
// the core.
func (a *Accumulator) OnInvalidate(core int) {
	a.invalidations[core]++
}

// CompletionCycle returns the cycle the core completed at, or -1.
func (a *Accumulator) CompletionCycle(core int) int64 { return a.completion[core] }

// OverallCycle returns the largest per-core completion cycle.
func (a *Accumulator) OverallCycle() int64 {
	maxCycle := int64(-1)
	for _, c := range a.completion {
		if c > maxCycle {
			maxCycle = c
		}
	}
	return maxCycle
}

// ReadHits returns the core's read-hit count.
func (a *Accumulator) ReadHits(core int) int64 { return a.readHits[core] }

// WriteHits returns the core's write-hit count.
func (a *Accumulator) WriteHits(core int) int64 { return a.writeHits[core] }

// ComputeCycles returns the core's compute-cycle count.
func (a *Accumulator) ComputeCycles(core int) int64 { return a.computeCycles[core] }

// IdleCycles returns the core's idle-cycle count.
func (a *Accumulator) IdleCycles(core int) int64 { return a.idleCycles[core] }

// Invalidations returns the core's invalidation/update count.
func (a *Accumulator) Invalidations(core int) int64 { return a.invalidations[core] }

// Misses returns the core's combined read and write miss count.
func (a *Accumulator) Misses(core int) int64 {
	return a.loads[core] + a.stores[core] - a.readHits[core] - a.writeHits[core]
}

// BusTrafficWords returns the total words moved over the bus.
func (a *Accumulator) BusTrafficWords() int64 { return a.busTrafficWords }

// BusTrafficBytes returns the total bus traffic in bytes.
func (a *Accumulator) BusTrafficBytes() int64 {
	return a.busTrafficWords * (cache.WordSize / 8)
}

// WriteBacks returns the total completed memory write-backs.
func (a *Accumulator) WriteBacks() int64 { return a.writeBacks }

// AccessCount returns the hit count recorded for a state, split by
// reads and writes.
func (a *Accumulator) AccessCount(core int, state cache.Status) (reads, writes int64) {
	return a.readAccesses[core][state], a.writeAccesses[core][state]
}

func (a *Accumulator) classAccesses(core int, states []cache.Status) (reads, writes int64) {
	for _, s := range states {
		reads += a.readAccesses[core][s]
		writes += a.writeAccesses[core][s]
	}
	return reads, writes
}

// PrivateAccesses returns the core's hit counts in private states.
func (a *Accumulator) PrivateAccesses(core int) (reads, writes int64) {
	return a.classAccesses(core, a.privateStates)
}

// PublicAccesses returns the core's hit counts in public states.
func (a *Accumulator) PublicAccesses(core int) (reads, writes int64) {
	return a.classAccesses(core, a.publicStates)
}
