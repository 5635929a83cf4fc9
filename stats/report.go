package stats

import (
	"fmt"
	"io"
	"sort"

	"github.com/sarchlab/snoopsim/timing/cache"
)

func pct(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100.0
}

// WriteReport writes the end-of-simulation text report.
func (a *Accumulator) WriteReport(w io.Writer) {
	fmt.Fprintf(w, "-------------STATISTICS----------------------\n")
	fmt.Fprintf(w, "Overall Execution Cycle: %d\n", a.OverallCycle())
	for i := 0; i < a.numCores; i++ {
		fmt.Fprintf(w, "\t Core %d completes at cycle: %d\n", i, a.completion[i])
	}

	fmt.Fprintf(w, "Number of Compute Cycles:\n")
	for i := 0; i < a.numCores; i++ {
		fmt.Fprintf(w, "\t Core %d: %d\n", i, a.computeCycles[i])
	}

	fmt.Fprintf(w, "Number of Loads/Stores Instructions:\n")
	for i := 0; i < a.numCores; i++ {
		fmt.Fprintf(w, "\t Core %d: %d instructions\n", i, a.loads[i]+a.stores[i])
	}

	fmt.Fprintf(w, "Read Hits:\n")
	for i := 0; i < a.numCores; i++ {
		fmt.Fprintf(w, "\t Core %d: %d (%.2f%%)\n",
			i, a.readHits[i], pct(a.readHits[i], a.loads[i]))
	}

	fmt.Fprintf(w, "Write Hits:\n")
	for i := 0; i < a.numCores; i++ {
		fmt.Fprintf(w, "\t Core %d: %d (%.2f%%)\n",
			i, a.writeHits[i], pct(a.writeHits[i], a.stores[i]))
	}

	fmt.Fprintf(w, "Cache Misses:\n")
	for i := 0; i < a.numCores; i++ {
		accesses := a.loads[i] + a.stores[i]
		fmt.Fprintf(w, "\t Core %d: %d (%.2f%%)\n",
			i, a.Misses(i), pct(a.Misses(i), accesses))
	}

	fmt.Fprintf(w, "Instructions Per Cycle:\n")
	for i := 0; i < a.numCores; i++ {
		instructions := a.loads[i] + a.stores[i] + a.computes[i]
		ipc := 0.0
		if a.completion[i] > 0 {
			ipc = float64(instructions) / float64(a.completion[i])
		}
		fmt.Fprintf(w, "\t Core %d: %.4f\n", i, ipc)
	}

	fmt.Fprintf(w, "Idle Cycles:\n")
	for i := 0; i < a.numCores; i++ {
		fmt.Fprintf(w, "\t Core %d: %d (%.2f%%)\n",
			i, a.idleCycles[i], pct(a.idleCycles[i], a.completion[i]))
	}

	fmt.Fprintf(w, "Cache Hit Accesses:\n")
	for i := 0; i < a.numCores; i++ {
		privR, privW := a.PrivateAccesses(i)
		pubR, pubW := a.PublicAccesses(i)
		private := privR + privW
		public := pubR + pubW

		fmt.Fprintf(w, "\t Core %d:\n", i)
		fmt.Fprintf(w, "\t\t Public: %d (R v. W: %.2f%% v. %.2f%%)\n",
			public, pct(pubR, public), pct(pubW, public))
		fmt.Fprintf(w, "\t\t Private: %d (R v. W: %.2f%% v. %.2f%%)\n",
			private, pct(privR, private), pct(privW, private))
		fmt.Fprintf(w, "\t\t Public v. Private: %d v. %d (%.2f%% v. %.2f%%)\n",
			public, private, pct(public, public+private), pct(private, public+private))
	}

	fmt.Fprintf(w, "Cache Accesses (Among Hits):\n")
	for i := 0; i < a.numCores; i++ {
		fmt.Fprintf(w, "\tCore %d:\n", i)
		fmt.Fprintf(w, "\t\tReads:\n")
		for _, s := range sortedStates(a.readAccesses[i]) {
			count := a.readAccesses[i][s]
			fmt.Fprintf(w, "\t\t\tState %s: %d (%.2f%%)\n",
				s, count, pct(count, a.readHits[i]))
		}
		fmt.Fprintf(w, "\t\tWrites:\n")
		for _, s := range sortedStates(a.writeAccesses[i]) {
			count := a.writeAccesses[i][s]
			fmt.Fprintf(w, "\t\t\tState %s: %d (%.2f%%)\n",
				s, count, pct(count, a.writeHits[i]))
		}
	}

	fmt.Fprintf(w, "Bus Traffic: %d bytes\n", a.BusTrafficBytes())
	fmt.Fprintf(w, "Write Backs: %d\n", a.writeBacks)

	fmt.Fprintf(w, "Num. Invalidates/Updates:\n")
	for i := 0; i < a.numCores; i++ {
		fmt.Fprintf(w, "\t Core %d: %d\n", i, a.invalidations[i])
	}
	fmt.Fprintf(w, "---------------------------------------------\n")
}

func sortedStates(m map[cache.Status]int64) []cache.Status {
	states := make([]cache.Status, 0, len(m))
	for s := range m {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })
	return states
}
