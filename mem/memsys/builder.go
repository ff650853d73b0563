package memsys

import (
	"github.com/memsimlab/memsim/mem/cache"
	"github.com/memsimlab/memsim/mem/vm"
)

// A Builder configures and creates MemSystems.
type Builder struct {
	pageSize          uint64
	numVirtualPages   uint64
	numPhysicalFrames uint64
	policy            vm.ReplacementPolicy

	l1Size, l1LineSize, l1Associativity uint64
	l2Size, l2LineSize, l2Associativity uint64
}

// MakeBuilder returns a new Builder with 4KiB pages, 16 frames backing 64
// virtual pages, and the 32KiB/256KiB direct-mapped L1/L2 pair.
func MakeBuilder() Builder {
	return Builder{
		pageSize:          4096,
		numVirtualPages:   64,
		numPhysicalFrames: 16,
		policy:            vm.FIFO,
		l1Size:            32 * 1024,
		l1LineSize:        64,
		l1Associativity:   1,
		l2Size:            256 * 1024,
		l2LineSize:        64,
		l2Associativity:   1,
	}
}

// WithPageSize sets the page size in bytes.
func (b Builder) WithPageSize(pageSize uint64) Builder {
	b.pageSize = pageSize
	return b
}

// WithNumVirtualPages sets the size of the virtual address space in pages.
func (b Builder) WithNumVirtualPages(n uint64) Builder {
	b.numVirtualPages = n
	return b
}

// WithNumPhysicalFrames sets the number of physical frames.
func (b Builder) WithNumPhysicalFrames(n uint64) Builder {
	b.numPhysicalFrames = n
	return b
}

// WithReplacementPolicy sets the page replacement policy.
func (b Builder) WithReplacementPolicy(p vm.ReplacementPolicy) Builder {
	b.policy = p
	return b
}

// WithL1 sets the geometry of the first-level cache.
func (b Builder) WithL1(size, lineSize, associativity uint64) Builder {
	b.l1Size = size
	b.l1LineSize = lineSize
	b.l1Associativity = associativity
	return b
}

// WithL2 sets the geometry of the second-level cache.
func (b Builder) WithL2(size, lineSize, associativity uint64) Builder {
	b.l2Size = size
	b.l2LineSize = lineSize
	b.l2Associativity = associativity
	return b
}

// Build creates the MemSystem. It fails if any component rejects its
// configuration.
func (b Builder) Build() (*MemSystem, error) {
	translator, err := vm.NewTranslator(
		b.numVirtualPages, b.numPhysicalFrames, b.pageSize, b.policy)
	if err != nil {
		return nil, err
	}

	l1, err := cache.New(b.l1Size, b.l1LineSize, b.l1Associativity)
	if err != nil {
		return nil, err
	}

	l2, err := cache.New(b.l2Size, b.l2LineSize, b.l2Associativity)
	if err != nil {
		return nil, err
	}

	return &MemSystem{
		translator: translator,
		hierarchy:  cache.NewHierarchy(l1, l2),
	}, nil
}
