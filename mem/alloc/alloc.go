// Package alloc provides variable-size physical memory allocators. The
// allocators hand out numbered blocks of a flat address range; they back the
// frames the translation layer treats as pre-existing slots.
package alloc

import "io"

// An Allocator hands out blocks of physical memory identified by integer
// ids.
type Allocator interface {
	// Allocate reserves size bytes and returns the id of the new block.
	Allocate(size uint64) (int, error)

	// Free releases the block with the given id. Freeing an unknown id is
	// a no-op.
	Free(id int)

	// TotalMemory returns the size of the managed range in bytes.
	TotalMemory() uint64

	// UsedMemory returns the number of bytes currently allocated.
	UsedMemory() uint64

	// FreeMemory returns the number of bytes currently free.
	FreeMemory() uint64

	// LargestFreeBlock returns the size of the largest contiguous free
	// block.
	LargestFreeBlock() uint64

	// Dump writes a human-readable description of the block layout.
	Dump(w io.Writer)

	// Name identifies the allocator and its strategy.
	Name() string
}
