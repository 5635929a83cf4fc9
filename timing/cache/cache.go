// Package cache models the per-controller set-associative cache using
// Akita cache components: address parsing, coherence-state tagged
// lines, and LRU victim selection.
package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// WordSize is the machine word width in bits.
const WordSize = 32

// Status identifies the coherence state of a cache line. The zero value
// is Invalid for every protocol; the meaning of the remaining values
// depends on the protocol driving the cache.
type Status uint8

const (
	// Invalid marks a line holding no usable data.
	Invalid Status = iota
	// Modified is the dirty-exclusive state.
	Modified
	// Exclusive is the clean-exclusive state.
	Exclusive
	// Shared is the clean-shared state of MESI, MOESI, and MESIF.
	Shared
	// Owned is the dirty-shared owner state of MOESI.
	Owned
	// SharedClean is the Dragon Sc state.
	SharedClean
	// SharedModified is the Dragon Sm state.
	SharedModified
	// Forwarder is the MESIF F state: the designated responder among sharers.
	Forwarder
)

// String returns the conventional short name of the state.
func (s Status) String() string {
	switch s {
	case Invalid:
		return "I"
	case Modified:
		return "M"
	case Exclusive:
		return "E"
	case Shared:
		return "S"
	case Owned:
		return "O"
	case SharedClean:
		return "Sc"
	case SharedModified:
		return "Sm"
	case Forwarder:
		return "F"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Address is a parsed 32-bit memory address. The low offset bits select
// a byte within the block, the next set-index bits select the set, and
// the remaining high bits form the tag.
type Address struct {
	Tag      uint32
	SetIndex uint32
	Offset   uint32
	Raw      uint32
}

// String formats the parsed address for diagnostics.
func (a Address) String() string {
	return fmt.Sprintf("Address{raw: 0x%x, tag: 0x%x, set: %d, offset: %d}",
		a.Raw, a.Tag, a.SetIndex, a.Offset)
}

// Line is a single cache line. Tag is semantically undefined while the
// status is Invalid. LastUsed carries the cycle stamp of the most recent
// allocation or hit; the replacement order itself lives in the Akita
// directory, which Touch and Install keep in step with the stamps.
type Line struct {
	Tag      uint32
	SetIndex uint32
	LastUsed int64
	Status   Status

	block *akitacache.Block
}

// String formats the line for diagnostics.
func (l *Line) String() string {
	return fmt.Sprintf("Line{set: %d, tag: 0x%x, last_used: %d, status: %s}",
		l.SetIndex, l.Tag, l.LastUsed, l.Status)
}

// Set is an ordered sequence of associativity-many lines.
type Set struct {
	Index uint32
	Lines []*Line
}

// Config holds cache geometry parameters.
type Config struct {
	// Size in bytes.
	Size int
	// Associativity (number of ways).
	Associativity int
	// BlockSize in bytes (cache line size).
	BlockSize int
}

// DefaultConfig returns the default cache geometry: 4KB, 2-way, 32B lines.
func DefaultConfig() Config {
	return Config{
		Size:          4096,
		Associativity: 2,
		BlockSize:     32,
	}
}

// Validate checks that the geometry is usable: positive power-of-two
// dimensions with at least one word per line.
func (c Config) Validate() error {
	if c.Size <= 0 || !isPowerOfTwo(c.Size) {
		return fmt.Errorf("cache size must be a positive power of two, got %d", c.Size)
	}
	if c.Associativity <= 0 {
		return fmt.Errorf("associativity must be positive, got %d", c.Associativity)
	}
	if c.BlockSize < WordSize/8 || !isPowerOfTwo(c.BlockSize) {
		return fmt.Errorf("block size must be a power of two of at least %d bytes, got %d",
			WordSize/8, c.BlockSize)
	}
	if c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("cache size %d is not divisible by associativity %d x block size %d",
			c.Size, c.Associativity, c.BlockSize)
	}
	numSets := c.Size / (c.Associativity * c.BlockSize)
	if !isPowerOfTwo(numSets) {
		return fmt.Errorf("number of sets must be a power of two, got %d", numSets)
	}
	return nil
}

func isPowerOfTwo(x int) bool {
	return x > 0 && x&(x-1) == 0
}

// Cache is a set-associative cache with LRU replacement. The Akita
// cache directory manages tags, ways, and the LRU order; the per-line
// coherence states and cycle stamps live alongside it, indexed by
// (setID * associativity + wayID). Data values are not modelled.
type Cache struct {
	NumSets         int
	NumOffsetBits   int
	NumSetIndexBits int
	NumWordsPerLine int
	Sets            []*Set

	associativity int
	directory     *akitacache.DirectoryImpl
	lines         []*Line
}

// New creates a cache with the given geometry. All lines start Invalid.
func New(config Config) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)

	c := &Cache{
		NumSets:         numSets,
		NumOffsetBits:   log2(config.BlockSize),
		NumSetIndexBits: log2(numSets),
		NumWordsPerLine: config.BlockSize / (WordSize / 8),
		Sets:            make([]*Set, numSets),
		associativity:   config.Associativity,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		lines: make([]*Line, numSets*config.Associativity),
	}

	for i, set := range c.directory.GetSets() {
		c.Sets[i] = &Set{
			Index: uint32(i),
			Lines: make([]*Line, len(set.Blocks)),
		}
		for w, block := range set.Blocks {
			line := &Line{SetIndex: uint32(block.SetID), block: block}
			c.Sets[i].Lines[w] = line
			c.lines[c.blockIndex(block)] = line
		}
	}

	return c
}

func log2(x int) int {
	n := 0
	for x > 1 {
		x >>= 1
		n++
	}
	return n
}

// blockIndex computes the index into lines for a directory block.
func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.associativity + block.WayID
}

// ParseAddress splits a raw address into tag, set index, and offset.
func (c *Cache) ParseAddress(address uint32) Address {
	offset := address & ((1 << c.NumOffsetBits) - 1)
	setIndex := (address >> c.NumOffsetBits) & ((1 << c.NumSetIndexBits) - 1)
	tag := address >> (c.NumOffsetBits + c.NumSetIndexBits)
	return Address{Tag: tag, SetIndex: setIndex, Offset: offset, Raw: address}
}

// LineAddress reconstructs the block-aligned address a line maps to.
func (c *Cache) LineAddress(line *Line) uint32 {
	return line.Tag<<(c.NumOffsetBits+c.NumSetIndexBits) |
		line.SetIndex<<c.NumOffsetBits
}

// BlockAddress returns the block-aligned form of a raw address.
func (c *Cache) BlockAddress(address uint32) uint32 {
	return address &^ ((1 << c.NumOffsetBits) - 1)
}

// Locate returns the valid line matching the address and true on a hit.
// On a miss it proposes a victim instead: the directory's LRU victim
// finder prefers an invalid way and otherwise picks the least recently
// visited one. The victim is not evicted; the caller installs the
// replacement when it completes.
func (c *Cache) Locate(addr Address) (*Line, bool) {
	c.syncSet(addr.SetIndex)
	blockAddr := uint64(c.BlockAddress(addr.Raw))

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		return c.lines[c.blockIndex(block)], true
	}

	victim := c.directory.FindVictim(blockAddr)
	return c.lines[c.blockIndex(victim)], false
}

// syncSet mirrors snoop-side status changes into the directory's
// validity bits. Coherence handlers downgrade lines by writing Status
// directly, so the set is reconciled before every lookup.
func (c *Cache) syncSet(setIndex uint32) {
	for _, line := range c.Sets[setIndex].Lines {
		line.block.IsValid = line.Status != Invalid
	}
}

// Touch stamps the line with the current cycle and refreshes its
// position in the directory's LRU order. Called on every hit.
func (c *Cache) Touch(line *Line, cycle int64) {
	line.LastUsed = cycle
	c.directory.Visit(line.block)
}

// Install replaces the line's contents with the addressed block in the
// given state, updating the directory's tag and LRU bookkeeping.
func (c *Cache) Install(line *Line, addr Address, status Status, cycle int64) {
	line.Tag = addr.Tag
	line.Status = status
	line.block.Tag = uint64(c.BlockAddress(addr.Raw))
	line.block.IsValid = status != Invalid
	c.Touch(line, cycle)
}

// LinesInState returns every line currently in one of the given states.
func (c *Cache) LinesInState(states ...Status) []*Line {
	var lines []*Line
	for _, set := range c.Sets {
		for _, line := range set.Lines {
			for _, s := range states {
				if line.Status == s {
					lines = append(lines, line)
					break
				}
			}
		}
	}
	return lines
}
