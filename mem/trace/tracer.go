// Package trace provides tracers that record memory-system accesses, either
// as text lines or as rows in a recording database.
package trace

import (
	"log"

	"github.com/rs/xid"

	"github.com/memsimlab/memsim/datarecording"
	"github.com/memsimlab/memsim/mem/memsys"
)

// memoryAccessEntry is one pipeline trip in the recording database.
type memoryAccessEntry struct {
	ID        string `json:"id"`
	Seq       uint64 `json:"seq"`
	VAddr     uint64 `json:"v_addr"`
	PAddr     uint64 `json:"p_addr"`
	PageFault bool   `json:"page_fault"`
	CacheHit  bool   `json:"cache_hit"`
}

// A tracer logs each access as one text line.
type tracer struct {
	logger *log.Logger
	seq    uint64
}

// NewTracer creates a tracer that writes one line per access to the given
// logger.
func NewTracer(logger *log.Logger) memsys.Tracer {
	return &tracer{logger: logger}
}

// TraceAccess logs the access.
func (t *tracer) TraceAccess(r memsys.AccessResult) {
	t.logger.Printf(
		"access, %d, 0x%x, 0x%x, fault=%t, hit=%t\n",
		t.seq, r.VAddr, r.PAddr, r.PageFault, r.CacheHit,
	)
	t.seq++
}

// A dbTracer records accesses into a DataRecorder table.
type dbTracer struct {
	recorder datarecording.DataRecorder
	seq      uint64
}

// NewDBTracer creates a tracer that records every access as a row of the
// memory_accesses table.
func NewDBTracer(recorder datarecording.DataRecorder) memsys.Tracer {
	t := &dbTracer{recorder: recorder}

	t.recorder.CreateTable("memory_accesses", memoryAccessEntry{})

	return t
}

// TraceAccess records the access.
func (t *dbTracer) TraceAccess(r memsys.AccessResult) {
	t.recorder.InsertData("memory_accesses", memoryAccessEntry{
		ID:        xid.New().String(),
		Seq:       t.seq,
		VAddr:     r.VAddr,
		PAddr:     r.PAddr,
		PageFault: r.PageFault,
		CacheHit:  r.CacheHit,
	})
	t.seq++
}
