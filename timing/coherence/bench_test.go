package coherence_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/snoopsim/stats"
	"github.com/sarchlab/snoopsim/timing/bus"
	"github.com/sarchlab/snoopsim/timing/cache"
	"github.com/sarchlab/snoopsim/timing/coherence"
	"github.com/sarchlab/snoopsim/timing/memory"
	"github.com/sarchlab/snoopsim/trace"
)

// bench wires a fleet of controllers to one bus and memory controller
// and drives single instructions to completion, cycle by cycle, in the
// same order the top-level driver uses.
type bench struct {
	bus   *bus.Bus
	mem   *memory.Controller
	acc   *stats.Accumulator
	ctrls []*coherence.Controller
	cycle int64
}

func newBench(protocol string, numCores int, memOpts ...memory.Option) *bench {
	proto, err := coherence.NewProtocol(protocol)
	Expect(err).NotTo(HaveOccurred())

	acc := stats.NewAccumulator(numCores, proto.PrivateStates(), proto.PublicStates())
	b := bus.New(numCores)
	mem := memory.NewController(acc, memOpts...)

	config := cache.Config{Size: 4096, Associativity: 2, BlockSize: 32}
	ctrls := make([]*coherence.Controller, numCores)
	for i := range ctrls {
		ctrls[i] = coherence.NewController(i, config, proto, b, mem, acc)
	}
	coherence.Connect(ctrls)
	mem.SetDelay(2 * ctrls[0].Cache.NumWordsPerLine)

	return &bench{bus: b, mem: mem, acc: acc, ctrls: ctrls}
}

// run drives one memory instruction on one core to completion and
// returns the number of cycles it occupied.
func (tb *bench) run(id int, kind trace.Kind, address uint32) int {
	cycles := 0
	for {
		tb.mem.RunOnce()
		tb.bus.Reset()
		cycles++

		retired := tb.ctrls[id].ProcessorRequest(kind, address, tb.cycle)
		tb.cycle++
		if retired {
			return cycles
		}
		if cycles > 4096 {
			Fail("instruction never retired")
		}
	}
}

func (tb *bench) read(id int, address uint32) int {
	return tb.run(id, trace.Read, address)
}

func (tb *bench) write(id int, address uint32) int {
	return tb.run(id, trace.Write, address)
}

// state returns the coherence state the core holds the address in,
// Invalid when the block is not cached.
func (tb *bench) state(id int, address uint32) cache.Status {
	c := tb.ctrls[id].Cache
	line, hit := c.Locate(c.ParseAddress(address))
	if !hit {
		return cache.Invalid
	}
	return line.Status
}

// blockTransfer is the cycle cost of one snooped block transfer,
// including the request cycle.
func blockTransfer(tb *bench) int {
	return 2 * tb.ctrls[0].Cache.NumWordsPerLine
}
