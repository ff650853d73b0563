// Package buddy implements a binary buddy allocator over a power-of-two
// address range. Blocks split in halves on allocation and merge with their
// buddy, found by XOR-ing the block size into the address, on free.
package buddy

import (
	"errors"
	"fmt"
	"io"
	"math/bits"
	"sort"
)

// ErrOutOfMemory is returned when no free block can serve an allocation.
var ErrOutOfMemory = errors.New("no free block large enough")

type allocation struct {
	addr      uint64
	order     uint
	requested uint64
}

// An Allocator manages a power-of-two range with per-order free lists.
type Allocator struct {
	totalMemory uint64
	maxOrder    uint

	// freeLists[k] holds the start addresses of free blocks of size 1<<k.
	freeLists [][]uint64

	allocations map[int]allocation
	nextID      int
}

// New creates a buddy allocator managing totalMemory bytes, which must be a
// power of two. The whole range starts as a single free block.
func New(totalMemory uint64) (*Allocator, error) {
	if totalMemory == 0 || totalMemory&(totalMemory-1) != 0 {
		return nil, fmt.Errorf(
			"buddy allocator requires a power-of-two memory size, got %d",
			totalMemory)
	}

	maxOrder := uint(bits.TrailingZeros64(totalMemory))

	freeLists := make([][]uint64, maxOrder+1)
	freeLists[maxOrder] = []uint64{0}

	return &Allocator{
		totalMemory: totalMemory,
		maxOrder:    maxOrder,
		freeLists:   freeLists,
		allocations: make(map[int]allocation),
		nextID:      1,
	}, nil
}

// Allocate reserves at least size bytes, rounded up to the next power of
// two, and returns the block id.
func (a *Allocator) Allocate(size uint64) (int, error) {
	if size == 0 || size > a.totalMemory {
		return 0, fmt.Errorf("%w: requested %d bytes", ErrOutOfMemory, size)
	}

	targetOrder := orderFor(size)

	// Find the smallest order at or above the target with a free block.
	order := targetOrder
	for order <= a.maxOrder && len(a.freeLists[order]) == 0 {
		order++
	}

	if order > a.maxOrder {
		return 0, fmt.Errorf("%w: requested %d bytes", ErrOutOfMemory, size)
	}

	addr := a.freeLists[order][0]
	a.freeLists[order] = a.freeLists[order][1:]

	// Split down to the target order, freeing the upper half each time.
	for order > targetOrder {
		order--
		buddy := addr + uint64(1)<<order
		a.freeLists[order] = append([]uint64{buddy}, a.freeLists[order]...)
	}

	id := a.nextID
	a.nextID++

	a.allocations[id] = allocation{
		addr:      addr,
		order:     targetOrder,
		requested: size,
	}

	return id, nil
}

// Free releases the block with the given id, merging it with its buddy as
// long as the buddy is also free. Unknown ids are ignored.
func (a *Allocator) Free(id int) {
	alloc, ok := a.allocations[id]
	if !ok {
		return
	}
	delete(a.allocations, id)

	addr := alloc.addr
	order := alloc.order

	for order < a.maxOrder {
		buddy := addr ^ uint64(1)<<order

		if !a.removeFree(order, buddy) {
			break
		}

		if buddy < addr {
			addr = buddy
		}
		order++
	}

	a.freeLists[order] = append([]uint64{addr}, a.freeLists[order]...)
}

func (a *Allocator) removeFree(order uint, addr uint64) bool {
	for i, free := range a.freeLists[order] {
		if free == addr {
			a.freeLists[order] = append(
				a.freeLists[order][:i], a.freeLists[order][i+1:]...)
			return true
		}
	}

	return false
}

// TotalMemory returns the size of the managed range.
func (a *Allocator) TotalMemory() uint64 {
	return a.totalMemory
}

// UsedMemory returns the number of bytes held by live allocations,
// including rounding waste.
func (a *Allocator) UsedMemory() uint64 {
	var used uint64
	for _, alloc := range a.allocations {
		used += uint64(1) << alloc.order
	}

	return used
}

// FreeMemory returns the number of bytes not held by any allocation.
func (a *Allocator) FreeMemory() uint64 {
	return a.totalMemory - a.UsedMemory()
}

// LargestFreeBlock returns the size of the largest free block.
func (a *Allocator) LargestFreeBlock() uint64 {
	for order := int(a.maxOrder); order >= 0; order-- {
		if len(a.freeLists[order]) > 0 {
			return uint64(1) << uint(order)
		}
	}

	return 0
}

// InternalFragmentation reports the fraction of held memory wasted by
// rounding requests up to powers of two.
func (a *Allocator) InternalFragmentation() float64 {
	held := a.UsedMemory()
	if held == 0 {
		return 0.0
	}

	var requested uint64
	for _, alloc := range a.allocations {
		requested += alloc.requested
	}

	return float64(held-requested) / float64(held)
}

// Dump writes the free lists and live allocations grouped by order.
func (a *Allocator) Dump(w io.Writer) {
	fmt.Fprintln(w, "Free Blocks by Order")

	for order := uint(0); order <= a.maxOrder; order++ {
		if len(a.freeLists[order]) == 0 {
			continue
		}

		fmt.Fprintf(w, "order %2d (size %d):", order, uint64(1)<<order)
		for _, addr := range a.freeLists[order] {
			fmt.Fprintf(w, " 0x%04x", addr)
		}
		fmt.Fprintln(w)
	}

	if len(a.allocations) == 0 {
		return
	}

	ids := make([]int, 0, len(a.allocations))
	for id := range a.allocations {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	fmt.Fprintln(w, "Allocated Blocks")
	for _, id := range ids {
		alloc := a.allocations[id]
		size := uint64(1) << alloc.order
		fmt.Fprintf(w, "[0x%04x - 0x%04x] USED (id=%d, size=%d)\n",
			alloc.addr, alloc.addr+size-1, id, size)
	}
}

// Name identifies the allocator.
func (a *Allocator) Name() string {
	return "buddy allocator"
}

// orderFor returns the smallest order whose block size holds size bytes.
func orderFor(size uint64) uint {
	return uint(bits.Len64(size - 1))
}
