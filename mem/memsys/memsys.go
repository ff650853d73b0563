// Package memsys wires an address translator and a two-level cache
// hierarchy into the translate-then-probe pipeline a caller drives: every
// memory access first resolves its virtual address to a physical one, then
// probes the caches with the physical address.
package memsys

import (
	"github.com/memsimlab/memsim/mem/cache"
	"github.com/memsimlab/memsim/mem/vm"
)

// An AccessResult describes one trip through the pipeline.
type AccessResult struct {
	VAddr     uint64
	PAddr     uint64
	PageFault bool
	CacheHit  bool
}

// A Tracer observes accesses as they complete. Tracers run synchronously on
// the caller's goroutine.
type Tracer interface {
	TraceAccess(r AccessResult)
}

// A MemSystem owns one translator and one cache hierarchy. It is not safe
// for concurrent use; a concurrent host must serialize access to the whole
// system behind a single lock.
type MemSystem struct {
	translator *vm.Translator
	hierarchy  *cache.Hierarchy
	tracers    []Tracer
}

// Access resolves vaddr and probes the hierarchy with the resulting physical
// address. Virtual addresses outside the configured address space return
// vm.ErrOutOfRange without touching the caches.
func (s *MemSystem) Access(vaddr uint64) (AccessResult, error) {
	faultsBefore := s.translator.PageFaults()

	paddr, err := s.translator.Translate(vaddr)
	if err != nil {
		return AccessResult{}, err
	}

	hit := s.hierarchy.Access(paddr)

	r := AccessResult{
		VAddr:     vaddr,
		PAddr:     paddr,
		PageFault: s.translator.PageFaults() > faultsBefore,
		CacheHit:  hit,
	}

	for _, t := range s.tracers {
		t.TraceAccess(r)
	}

	return r, nil
}

// AcceptTracer registers a tracer to be notified of every completed access.
func (s *MemSystem) AcceptTracer(t Tracer) {
	s.tracers = append(s.tracers, t)
}

// Translator returns the address translator of the system.
func (s *MemSystem) Translator() *vm.Translator {
	return s.translator
}

// Hierarchy returns the cache hierarchy of the system.
func (s *MemSystem) Hierarchy() *cache.Hierarchy {
	return s.hierarchy
}
