package alloc

import (
	"container/list"
	"errors"
	"fmt"
	"io"
)

// A Strategy selects how PhysicalMemory picks the free block that serves an
// allocation.
type Strategy int

const (
	// FirstFit takes the first free block large enough.
	FirstFit Strategy = iota

	// BestFit takes the smallest free block large enough.
	BestFit

	// WorstFit takes the largest free block large enough.
	WorstFit
)

func (s Strategy) String() string {
	switch s {
	case FirstFit:
		return "first-fit"
	case BestFit:
		return "best-fit"
	case WorstFit:
		return "worst-fit"
	}

	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ErrOutOfMemory is returned when no free block can serve an allocation.
var ErrOutOfMemory = errors.New("no free block large enough")

// A memoryBlock is one contiguous extent of the managed range, either free
// or owned by an allocation id.
type memoryBlock struct {
	start uint64
	size  uint64
	free  bool
	id    int
}

// PhysicalMemory manages a flat address range as an ordered list of blocks.
// Allocation splits a free block; freeing coalesces with free neighbors so
// the list never holds two adjacent free blocks.
type PhysicalMemory struct {
	totalSize uint64
	strategy  Strategy
	blocks    *list.List
	nextID    int
}

// NewPhysicalMemory creates an allocator managing totalSize bytes, starting
// as one free block.
func NewPhysicalMemory(totalSize uint64, strategy Strategy) (*PhysicalMemory, error) {
	if totalSize == 0 {
		return nil, errors.New("memory size must be greater than zero")
	}

	blocks := list.New()
	blocks.PushBack(&memoryBlock{
		start: 0,
		size:  totalSize,
		free:  true,
		id:    -1,
	})

	return &PhysicalMemory{
		totalSize: totalSize,
		strategy:  strategy,
		blocks:    blocks,
		nextID:    1,
	}, nil
}

// Allocate reserves size bytes using the configured strategy and returns the
// block id.
func (m *PhysicalMemory) Allocate(size uint64) (int, error) {
	if size == 0 {
		return 0, errors.New("allocation size must be greater than zero")
	}

	elem := m.findBlock(size)
	if elem == nil {
		return 0, fmt.Errorf("%w: requested %d bytes", ErrOutOfMemory, size)
	}

	return m.allocateFromBlock(elem, size), nil
}

func (m *PhysicalMemory) findBlock(size uint64) *list.Element {
	var chosen *list.Element

	for e := m.blocks.Front(); e != nil; e = e.Next() {
		b := e.Value.(*memoryBlock)
		if !b.free || b.size < size {
			continue
		}

		switch m.strategy {
		case FirstFit:
			return e
		case BestFit:
			if chosen == nil || b.size < chosen.Value.(*memoryBlock).size {
				chosen = e
			}
		case WorstFit:
			if chosen == nil || b.size > chosen.Value.(*memoryBlock).size {
				chosen = e
			}
		}
	}

	return chosen
}

// allocateFromBlock carves size bytes off the front of the free block. An
// exact fit converts the block in place.
func (m *PhysicalMemory) allocateFromBlock(elem *list.Element, size uint64) int {
	b := elem.Value.(*memoryBlock)

	id := m.nextID
	m.nextID++

	if b.size == size {
		b.free = false
		b.id = id
		return id
	}

	allocated := &memoryBlock{
		start: b.start,
		size:  size,
		free:  false,
		id:    id,
	}

	b.start += size
	b.size -= size

	m.blocks.InsertBefore(allocated, elem)

	return id
}

// Free releases the block with the given id and merges it with free
// neighbors. Unknown ids are ignored.
func (m *PhysicalMemory) Free(id int) {
	for e := m.blocks.Front(); e != nil; e = e.Next() {
		b := e.Value.(*memoryBlock)
		if b.free || b.id != id {
			continue
		}

		b.free = true
		b.id = -1

		if prev := e.Prev(); prev != nil {
			pb := prev.Value.(*memoryBlock)
			if pb.free {
				pb.size += b.size
				m.blocks.Remove(e)
				e = prev
				b = pb
			}
		}

		if next := e.Next(); next != nil {
			nb := next.Value.(*memoryBlock)
			if nb.free {
				b.size += nb.size
				m.blocks.Remove(next)
			}
		}

		return
	}
}

// TotalMemory returns the size of the managed range.
func (m *PhysicalMemory) TotalMemory() uint64 {
	return m.totalSize
}

// UsedMemory returns the number of bytes currently allocated.
func (m *PhysicalMemory) UsedMemory() uint64 {
	var used uint64

	for e := m.blocks.Front(); e != nil; e = e.Next() {
		b := e.Value.(*memoryBlock)
		if !b.free {
			used += b.size
		}
	}

	return used
}

// FreeMemory returns the number of bytes currently free.
func (m *PhysicalMemory) FreeMemory() uint64 {
	return m.totalSize - m.UsedMemory()
}

// LargestFreeBlock returns the size of the largest contiguous free block.
func (m *PhysicalMemory) LargestFreeBlock() uint64 {
	var largest uint64

	for e := m.blocks.Front(); e != nil; e = e.Next() {
		b := e.Value.(*memoryBlock)
		if b.free && b.size > largest {
			largest = b.size
		}
	}

	return largest
}

// ExternalFragmentation reports how scattered the free memory is, as
// 1 - largest_free_block/free_memory. It is 0 when memory is unfragmented
// or completely full.
func (m *PhysicalMemory) ExternalFragmentation() float64 {
	free := m.FreeMemory()
	if free == 0 {
		return 0.0
	}

	return 1.0 - float64(m.LargestFreeBlock())/float64(free)
}

// Dump writes the block layout, one extent per line.
func (m *PhysicalMemory) Dump(w io.Writer) {
	fmt.Fprintln(w, "Physical Memory Layout")

	for e := m.blocks.Front(); e != nil; e = e.Next() {
		b := e.Value.(*memoryBlock)

		fmt.Fprintf(w, "[%d - %d] ", b.start, b.start+b.size-1)
		if b.free {
			fmt.Fprintln(w, "FREE")
		} else {
			fmt.Fprintf(w, "USED (id=%d)\n", b.id)
		}
	}
}

// Name identifies the allocator and its strategy.
func (m *PhysicalMemory) Name() string {
	return m.strategy.String() + " allocator"
}

// Strategy returns the configured placement strategy.
func (m *PhysicalMemory) Strategy() Strategy {
	return m.strategy
}
