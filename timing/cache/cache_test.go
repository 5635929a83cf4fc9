package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/snoopsim/timing/cache"
)

var _ = Describe("Cache", func() {
	var c *cache.Cache

	// install fills the block the address maps to and returns its line.
	install := func(address uint32, status cache.Status, cycle int64) *cache.Line {
		addr := c.ParseAddress(address)
		line, hit := c.Locate(addr)
		Expect(hit).To(BeFalse())
		c.Install(line, addr, status, cycle)
		return line
	}

	BeforeEach(func() {
		// 4KB, 2-way, 32B lines: 64 sets, 5 offset bits, 6 index bits.
		c = cache.New(cache.Config{Size: 4096, Associativity: 2, BlockSize: 32})
	})

	Describe("geometry", func() {
		It("should derive the set and bit counts from the config", func() {
			Expect(c.NumSets).To(Equal(64))
			Expect(c.NumOffsetBits).To(Equal(5))
			Expect(c.NumSetIndexBits).To(Equal(6))
			Expect(c.NumWordsPerLine).To(Equal(8))
		})

		It("should start with every line invalid", func() {
			for _, set := range c.Sets {
				for _, line := range set.Lines {
					Expect(line.Status).To(Equal(cache.Invalid))
				}
			}
		})
	})

	Describe("ParseAddress", func() {
		It("should split offset, set index, and tag", func() {
			addr := c.ParseAddress(0x12345678)

			Expect(addr.Offset).To(Equal(uint32(0x12345678 & 0x1F)))
			Expect(addr.SetIndex).To(Equal(uint32((0x12345678 >> 5) & 0x3F)))
			Expect(addr.Tag).To(Equal(uint32(0x12345678 >> 11)))
			Expect(addr.Raw).To(Equal(uint32(0x12345678)))
		})

		It("should parse address zero", func() {
			addr := c.ParseAddress(0)
			Expect(addr.Offset).To(Equal(uint32(0)))
			Expect(addr.SetIndex).To(Equal(uint32(0)))
			Expect(addr.Tag).To(Equal(uint32(0)))
		})

		It("should round-trip through LineAddress", func() {
			line := install(0x1000, cache.Modified, 1)
			Expect(c.LineAddress(line)).To(Equal(uint32(0x1000)))
		})
	})

	Describe("Locate", func() {
		It("should miss on a cold cache", func() {
			_, hit := c.Locate(c.ParseAddress(0x1000))
			Expect(hit).To(BeFalse())
		})

		It("should hit after a line is installed", func() {
			line := install(0x1000, cache.Exclusive, 1)

			found, hit := c.Locate(c.ParseAddress(0x1000))
			Expect(hit).To(BeTrue())
			Expect(found).To(BeIdenticalTo(line))
		})

		It("should hit any address within the installed block", func() {
			line := install(0x1000, cache.Exclusive, 1)

			found, hit := c.Locate(c.ParseAddress(0x101C))
			Expect(hit).To(BeTrue())
			Expect(found).To(BeIdenticalTo(line))
		})

		It("should not hit a line downgraded to Invalid", func() {
			line := install(0x1000, cache.Shared, 1)
			line.Status = cache.Invalid // snoop-side invalidation

			_, hit := c.Locate(c.ParseAddress(0x1000))
			Expect(hit).To(BeFalse())
		})

		It("should prefer an invalid line as the victim", func() {
			install(0x1000, cache.Modified, 5)

			// Same set, different tag: the remaining invalid way wins.
			victim, hit := c.Locate(c.ParseAddress(0x1000 + 4096))
			Expect(hit).To(BeFalse())
			Expect(victim.Status).To(Equal(cache.Invalid))
		})

		It("should evict the least recently used line when the set is full", func() {
			lineA := install(0x1000, cache.Exclusive, 1)
			install(0x1800, cache.Exclusive, 2) // same set, other way

			victim, hit := c.Locate(c.ParseAddress(0x2000))
			Expect(hit).To(BeFalse())
			Expect(victim).To(BeIdenticalTo(lineA))
		})

		It("should spare a line refreshed by Touch", func() {
			lineA := install(0x1000, cache.Exclusive, 1)
			lineB := install(0x1800, cache.Exclusive, 2)
			c.Touch(lineA, 3)

			victim, hit := c.Locate(c.ParseAddress(0x2000))
			Expect(hit).To(BeFalse())
			Expect(victim).To(BeIdenticalTo(lineB))
		})

		It("should reclaim an invalidated line before a valid one", func() {
			lineA := install(0x1000, cache.Exclusive, 1)
			install(0x1800, cache.Exclusive, 2)
			lineA.Status = cache.Invalid

			victim, hit := c.Locate(c.ParseAddress(0x2000))
			Expect(hit).To(BeFalse())
			Expect(victim).To(BeIdenticalTo(lineA))
		})

		It("should keep victim selection within the addressed set", func() {
			addrA := c.ParseAddress(0x0000)
			addrB := c.ParseAddress(0x0020)
			Expect(addrA.SetIndex).NotTo(Equal(addrB.SetIndex))

			victim, _ := c.Locate(addrB)
			Expect(victim.SetIndex).To(Equal(addrB.SetIndex))
		})
	})

	Describe("stamps", func() {
		It("should keep LastUsed monotonic across touches", func() {
			line := install(0x1000, cache.Exclusive, 1)
			Expect(line.LastUsed).To(Equal(int64(1)))

			c.Touch(line, 7)
			Expect(line.LastUsed).To(Equal(int64(7)))

			c.Touch(line, 20)
			Expect(line.LastUsed).To(Equal(int64(20)))
		})

		It("should restamp a reinstalled victim", func() {
			install(0x1000, cache.Exclusive, 1)
			install(0x1800, cache.Exclusive, 2)

			addr := c.ParseAddress(0x2000)
			victim, hit := c.Locate(addr)
			Expect(hit).To(BeFalse())
			c.Install(victim, addr, cache.Modified, 9)

			Expect(victim.LastUsed).To(Equal(int64(9)))
			Expect(victim.Tag).To(Equal(addr.Tag))
			Expect(victim.Status).To(Equal(cache.Modified))

			found, hit := c.Locate(addr)
			Expect(hit).To(BeTrue())
			Expect(found).To(BeIdenticalTo(victim))
		})
	})

	Describe("Config validation", func() {
		It("should accept the default config", func() {
			Expect(cache.DefaultConfig().Validate()).To(Succeed())
		})

		It("should reject a non-power-of-two cache size", func() {
			cfg := cache.Config{Size: 3000, Associativity: 2, BlockSize: 32}
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject a block smaller than one word", func() {
			cfg := cache.Config{Size: 4096, Associativity: 2, BlockSize: 2}
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject zero associativity", func() {
			cfg := cache.Config{Size: 4096, Associativity: 0, BlockSize: 32}
			Expect(cfg.Validate()).NotTo(Succeed())
		})
	})

	Describe("BlockAddress", func() {
		It("should mask the offset bits", func() {
			Expect(c.BlockAddress(0x1234)).To(Equal(uint32(0x1220)))
			Expect(c.BlockAddress(0x1220)).To(Equal(uint32(0x1220)))
		})
	})

	Describe("LinesInState", func() {
		It("should collect lines across sets", func() {
			lineA := install(0x1000, cache.Modified, 1)
			lineB := install(0x2020, cache.Shared, 2)

			Expect(c.LinesInState(cache.Modified)).To(ConsistOf(lineA))
			Expect(c.LinesInState(cache.Modified, cache.Shared)).To(ConsistOf(lineA, lineB))
		})
	})
})

var _ = Describe("Status", func() {
	It("should print the conventional short names", func() {
		Expect(cache.Invalid.String()).To(Equal("I"))
		Expect(cache.Modified.String()).To(Equal("M"))
		Expect(cache.Exclusive.String()).To(Equal("E"))
		Expect(cache.Shared.String()).To(Equal("S"))
		Expect(cache.Owned.String()).To(Equal("O"))
		Expect(cache.SharedClean.String()).To(Equal("Sc"))
		Expect(cache.SharedModified.String()).To(Equal("Sm"))
		Expect(cache.Forwarder.String()).To(Equal("F"))
	})
})
