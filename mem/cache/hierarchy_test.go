package cache

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Hierarchy", func() {
	var (
		l1 *Cache
		l2 *Cache
		h  *Hierarchy
	)

	BeforeEach(func() {
		var err error

		l1, err = New(256, 64, 1)
		Expect(err).ToNot(HaveOccurred())

		l2, err = New(1024, 64, 2)
		Expect(err).ToNot(HaveOccurred())

		h = NewHierarchy(l1, l2)
	})

	It("should miss both levels on a cold access", func() {
		hit := h.Access(0x1000)

		Expect(hit).To(BeFalse())
		Expect(l1.Misses()).To(Equal(uint64(1)))
		Expect(l2.Misses()).To(Equal(uint64(1)))
	})

	It("should leave a probed address resident in L1", func() {
		h.Access(0x1000)

		Expect(l1.Access(0x1000)).To(BeTrue())
	})

	It("should hit in L1 without probing L2", func() {
		h.Access(0x1000)
		l2Probes := l2.Hits() + l2.Misses()

		hit := h.Access(0x1000)

		Expect(hit).To(BeTrue())
		Expect(l2.Hits() + l2.Misses()).To(Equal(l2Probes))
	})

	It("should promote an L2 hit into L1 without counting an L1 probe", func() {
		// 0x0000 and 0x0100 conflict in the one-way L1 but land in
		// different L2 sets.
		h.Access(0x0000)
		h.Access(0x0100)

		l1Probes := l1.Hits() + l1.Misses()

		// L1 now holds 0x0100's block; 0x0000 must be served by L2.
		hit := h.Access(0x0000)

		Expect(hit).To(BeTrue())
		Expect(l2.Hits()).To(Equal(uint64(1)))

		// One L1 probe for the access itself, none for the promotion.
		Expect(l1.Hits() + l1.Misses()).To(Equal(l1Probes + 1))

		// The promotion installed the block in L1.
		Expect(l1.Access(0x0000)).To(BeTrue())
	})

	It("should fill both levels after a double miss", func() {
		h.Access(0x2000)

		Expect(l1.Access(0x2000)).To(BeTrue())
		Expect(l2.Access(0x2000)).To(BeTrue())
	})

	It("should always leave the just-probed block in L1", func() {
		addrs := []uint64{0x0000, 0x0040, 0x0080, 0x1000, 0x2000, 0x0000}

		for _, a := range addrs {
			h.Access(a)

			Expect(l1.Access(a)).To(BeTrue())
		}
	})
})
