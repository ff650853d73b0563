// Package cache implements a set-associative cache model keyed by physical
// address, and a two-level inclusive hierarchy built from two such caches.
package cache

import (
	"fmt"
	"math/bits"
)

// A CacheAddress is the decomposition of a physical address into the fields
// used to locate a line: the set index, the in-line offset, and the tag that
// confirms an exact match within the set.
type CacheAddress struct {
	Tag    uint64
	Index  uint64
	Offset uint64
}

// A line records one resident block. insertedAt orders the lines of a set
// for FIFO eviction.
type line struct {
	valid      bool
	tag        uint64
	insertedAt uint64
}

// A Cache is a fixed-geometry set-associative cache. It stores no data, only
// tags; a probe answers whether the block is resident.
type Cache struct {
	lineSize      uint64
	associativity uint64
	numSets       uint64
	offsetBits    uint
	indexBits     uint

	sets [][]line

	hits   uint64
	misses uint64
	clock  uint64
}

// New creates a cache of cacheSize bytes organized as sets of associativity
// lines of lineSize bytes each. The size must divide evenly into sets, and
// both the line size and the derived set count must be powers of two.
func New(cacheSize, lineSize, associativity uint64) (*Cache, error) {
	if cacheSize == 0 || lineSize == 0 || associativity == 0 {
		return nil, fmt.Errorf(
			"cache size, line size, and associativity must be non-zero")
	}

	if cacheSize%(lineSize*associativity) != 0 {
		return nil, fmt.Errorf(
			"cache size %d is not divisible by line size %d x associativity %d",
			cacheSize, lineSize, associativity)
	}

	numSets := cacheSize / (lineSize * associativity)
	if !isPowerOfTwo(lineSize) || !isPowerOfTwo(numSets) {
		return nil, fmt.Errorf(
			"line size %d and set count %d must both be powers of two",
			lineSize, numSets)
	}

	sets := make([][]line, numSets)
	for i := range sets {
		sets[i] = make([]line, associativity)
	}

	c := &Cache{
		lineSize:      lineSize,
		associativity: associativity,
		numSets:       numSets,
		offsetBits:    uint(bits.TrailingZeros64(lineSize)),
		indexBits:     uint(bits.TrailingZeros64(numSets)),
		sets:          sets,
	}

	return c, nil
}

// DecodeAddress splits a physical address into tag, set index, and offset.
func (c *Cache) DecodeAddress(paddr uint64) CacheAddress {
	return CacheAddress{
		Offset: paddr & (c.lineSize - 1),
		Index:  (paddr >> c.offsetBits) & (c.numSets - 1),
		Tag:    paddr >> (c.offsetBits + c.indexBits),
	}
}

// Access probes the cache for the block holding paddr. A hit returns true.
// A miss counts, installs the block over the set's victim line, and returns
// false.
func (c *Cache) Access(paddr uint64) bool {
	addr := c.DecodeAddress(paddr)
	set := c.sets[addr.Index]

	for i := range set {
		if set[i].valid && set[i].tag == addr.Tag {
			c.hits++
			return true
		}
	}

	c.misses++
	c.insert(set, addr.Tag)

	return false
}

// Fill installs the block holding paddr without touching the hit/miss
// counters. The hierarchy uses it to propagate blocks between levels so that
// promotion does not perturb per-level statistics.
func (c *Cache) Fill(paddr uint64) {
	addr := c.DecodeAddress(paddr)
	c.insert(c.sets[addr.Index], addr.Tag)
}

// insert overwrites the victim line of the set with the given tag and stamps
// its insertion order.
func (c *Cache) insert(set []line, tag uint64) {
	victim := c.findVictim(set, tag)

	victim.valid = true
	victim.tag = tag
	victim.insertedAt = c.clock
	c.clock++
}

// findVictim picks the line to overwrite. A line already holding the tag is
// reused so a set never carries two valid lines with the same tag. Otherwise
// an invalid line is preferred, then the line inserted the longest ago.
func (c *Cache) findVictim(set []line, tag uint64) *line {
	for i := range set {
		if set[i].valid && set[i].tag == tag {
			return &set[i]
		}
	}

	for i := range set {
		if !set[i].valid {
			return &set[i]
		}
	}

	victim := &set[0]
	for i := range set {
		if set[i].insertedAt < victim.insertedAt {
			victim = &set[i]
		}
	}

	return victim
}

// Hits returns the number of probes that found their block resident.
func (c *Cache) Hits() uint64 {
	return c.hits
}

// Misses returns the number of probes that did not find their block.
func (c *Cache) Misses() uint64 {
	return c.misses
}

// HitRatio returns hits over total probes, or 0.0 before any probe.
func (c *Cache) HitRatio() float64 {
	total := c.hits + c.misses
	if total == 0 {
		return 0.0
	}

	return float64(c.hits) / float64(total)
}

// NumSets returns the number of sets the cache is divided into.
func (c *Cache) NumSets() uint64 {
	return c.numSets
}

// LineSize returns the line size in bytes.
func (c *Cache) LineSize() uint64 {
	return c.lineSize
}

// Associativity returns the number of lines per set.
func (c *Cache) Associativity() uint64 {
	return c.associativity
}

func isPowerOfTwo(x uint64) bool {
	return x != 0 && x&(x-1) == 0
}
