package cache

// A Hierarchy chains an L1 and an L2 cache into an inclusive two-level
// lookup. It exclusively owns both levels; callers observe them through the
// L1 and L2 accessors only.
type Hierarchy struct {
	l1 *Cache
	l2 *Cache
}

// NewHierarchy creates a hierarchy over the given levels. The two caches may
// be configured independently.
func NewHierarchy(l1, l2 *Cache) *Hierarchy {
	return &Hierarchy{
		l1: l1,
		l2: l2,
	}
}

// Access probes L1, then L2. An L2 hit promotes the block into L1 without
// counting as an L1 probe. A miss in both levels fetches the block from
// backing storage into L2 and then L1. Either way the block is resident in
// L1 when Access returns.
func (h *Hierarchy) Access(paddr uint64) bool {
	if h.l1.Access(paddr) {
		return true
	}

	if h.l2.Access(paddr) {
		h.l1.Fill(paddr)
		return true
	}

	h.l2.Fill(paddr)
	h.l1.Fill(paddr)

	return false
}

// L1 returns the first-level cache.
func (h *Hierarchy) L1() *Cache {
	return h.l1
}

// L2 returns the second-level cache.
func (h *Hierarchy) L2() *Cache {
	return h.l2
}
