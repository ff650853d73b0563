package vm

import "fmt"

// A PageTableEntry maps one virtual page to a physical frame. FrameNumber is
// only meaningful while Valid is set. Recency carries the clock value the
// translator assigned on load, or on the most recent hit under LRU, and
// orders entries for eviction.
type PageTableEntry struct {
	Valid       bool
	FrameNumber uint64
	Recency     uint64
}

// A PageTable is a fixed-size array of page table entries, one per virtual
// page. It holds no policy; the translator owns fault handling and
// replacement.
type PageTable struct {
	entries []PageTableEntry
}

// NewPageTable creates a page table covering numPages virtual pages. All
// entries start invalid.
func NewPageTable(numPages uint64) *PageTable {
	return &PageTable{
		entries: make([]PageTableEntry, numPages),
	}
}

// Entry returns the entry for the given virtual page number. The pointer
// stays valid for the lifetime of the table. Asking for a VPN beyond the
// table is a programmer error and panics.
func (t *PageTable) Entry(vpn uint64) *PageTableEntry {
	if vpn >= uint64(len(t.entries)) {
		panic(fmt.Sprintf(
			"vpn %d out of range, page table has %d pages",
			vpn, len(t.entries)))
	}

	return &t.entries[vpn]
}

// Size returns the number of virtual pages the table covers.
func (t *PageTable) Size() uint64 {
	return uint64(len(t.entries))
}
