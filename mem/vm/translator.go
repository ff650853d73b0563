package vm

import (
	"errors"
	"fmt"
)

// A ReplacementPolicy selects the page that is evicted when a fault occurs
// and no physical frame is free.
type ReplacementPolicy int

const (
	// FIFO evicts the page that was loaded the longest ago. Hits on a
	// resident page do not change its eviction order.
	FIFO ReplacementPolicy = iota

	// LRU evicts the page that was touched the longest ago. Every successful
	// translation of a resident page refreshes its recency.
	LRU
)

func (p ReplacementPolicy) String() string {
	switch p {
	case FIFO:
		return "FIFO"
	case LRU:
		return "LRU"
	}

	return fmt.Sprintf("ReplacementPolicy(%d)", int(p))
}

// ErrOutOfRange is returned when a virtual address names a page beyond the
// configured virtual address space. It signals caller misuse rather than a
// page fault and is never silently masked by wrapping the VPN.
var ErrOutOfRange = errors.New("virtual address out of range")

// A Translator resolves virtual addresses to physical addresses through a
// page table. It handles page faults by claiming the lowest-numbered free
// frame, or, when every frame is occupied, by evicting the resident page
// with the smallest recency.
type Translator struct {
	decoder   *AddressDecoder
	pageTable *PageTable
	frameFree []bool
	policy    ReplacementPolicy

	clock      uint64
	pageFaults uint64
}

// NewTranslator creates a translator for a virtual address space of
// numVirtualPages pages backed by numPhysicalFrames frames. The page size
// must be a power of two and both counts must be non-zero.
func NewTranslator(
	numVirtualPages uint64,
	numPhysicalFrames uint64,
	pageSize uint64,
	policy ReplacementPolicy,
) (*Translator, error) {
	decoder, err := NewAddressDecoder(pageSize)
	if err != nil {
		return nil, err
	}

	if numVirtualPages == 0 {
		return nil, errors.New("translator requires at least one virtual page")
	}

	if numPhysicalFrames == 0 {
		return nil, errors.New("translator requires at least one physical frame")
	}

	frameFree := make([]bool, numPhysicalFrames)
	for i := range frameFree {
		frameFree[i] = true
	}

	t := &Translator{
		decoder:   decoder,
		pageTable: NewPageTable(numVirtualPages),
		frameFree: frameFree,
		policy:    policy,
	}

	return t, nil
}

// Translate resolves vaddr to a physical address. Accessing a non-resident
// page counts a fault and loads the page, evicting another page if no frame
// is free. The low offset bits of the result are always identical to the low
// offset bits of vaddr.
func (t *Translator) Translate(vaddr uint64) (uint64, error) {
	vpn, offset := t.decoder.Decode(vaddr)
	if vpn >= t.pageTable.Size() {
		return 0, fmt.Errorf("%w: vpn %d exceeds table of %d pages",
			ErrOutOfRange, vpn, t.pageTable.Size())
	}

	entry := t.pageTable.Entry(vpn)
	if entry.Valid {
		if t.policy == LRU {
			entry.Recency = t.clock
			t.clock++
		}

		return entry.FrameNumber*t.decoder.PageSize() + offset, nil
	}

	t.pageFaults++

	frame, found := t.claimFreeFrame()
	if !found {
		frame = t.evictVictim()
	}

	entry.Valid = true
	entry.FrameNumber = frame
	entry.Recency = t.clock
	t.clock++

	return frame*t.decoder.PageSize() + offset, nil
}

// PageFaults returns the cumulative number of page faults since
// construction. The count never decreases.
func (t *Translator) PageFaults() uint64 {
	return t.pageFaults
}

// PageSize returns the configured page size in bytes.
func (t *Translator) PageSize() uint64 {
	return t.decoder.PageSize()
}

// NumFrames returns the number of physical frames backing the translator.
func (t *Translator) NumFrames() uint64 {
	return uint64(len(t.frameFree))
}

// Policy returns the configured replacement policy.
func (t *Translator) Policy() ReplacementPolicy {
	return t.policy
}

func (t *Translator) claimFreeFrame() (uint64, bool) {
	for i, free := range t.frameFree {
		if free {
			t.frameFree[i] = false
			return uint64(i), true
		}
	}

	return 0, false
}

// evictVictim invalidates the valid entry with the smallest recency and
// hands its frame to the caller. The strict less-than keeps ties on the
// lowest VPN. A table with no valid entry while no frame is free would
// break the frame/entry bijection, so it panics.
func (t *Translator) evictVictim() uint64 {
	var victim *PageTableEntry

	for vpn := uint64(0); vpn < t.pageTable.Size(); vpn++ {
		e := t.pageTable.Entry(vpn)
		if !e.Valid {
			continue
		}

		if victim == nil || e.Recency < victim.Recency {
			victim = e
		}
	}

	if victim == nil {
		panic("no free frame and no valid page to evict")
	}

	victim.Valid = false

	return victim.FrameNumber
}
