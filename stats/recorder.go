package stats

import (
	"github.com/sarchlab/akita/v4/datarecording"
)

// CoreRecord is one per-core row written to the statistics database.
type CoreRecord struct {
	Core            int
	CompletionCycle int64
	ComputeCycles   int64
	Loads           int64
	Stores          int64
	ReadHits        int64
	WriteHits       int64
	Misses          int64
	IdleCycles      int64
	Invalidations   int64
}

// RunRecord is the aggregate row written to the statistics database.
type RunRecord struct {
	OverallCycle    int64
	BusTrafficBytes int64
	WriteBacks      int64
}

// Record dumps the accumulated statistics into the recorder as one
// core_stats table and one run_stats table.
func (a *Accumulator) Record(rec datarecording.DataRecorder) {
	rec.CreateTable("core_stats", CoreRecord{})
	for i := 0; i < a.numCores; i++ {
		rec.InsertData("core_stats", CoreRecord{
			Core:            i,
			CompletionCycle: a.completion[i],
			ComputeCycles:   a.computeCycles[i],
			Loads:           a.loads[i],
			Stores:          a.stores[i],
			ReadHits:        a.readHits[i],
			WriteHits:       a.writeHits[i],
			Misses:          a.Misses(i),
			IdleCycles:      a.idleCycles[i],
			Invalidations:   a.invalidations[i],
		})
	}

	rec.CreateTable("run_stats", RunRecord{})
	rec.InsertData("run_stats", RunRecord{
		OverallCycle:    a.OverallCycle(),
		BusTrafficBytes: a.BusTrafficBytes(),
		WriteBacks:      a.writeBacks,
	})

	rec.Flush()
}
