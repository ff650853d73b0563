package vm

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PageTable", func() {
	var table *PageTable

	BeforeEach(func() {
		table = NewPageTable(64)
	})

	It("should start with all entries invalid", func() {
		for vpn := uint64(0); vpn < table.Size(); vpn++ {
			entry := table.Entry(vpn)

			Expect(entry.Valid).To(BeFalse())
			Expect(entry.FrameNumber).To(Equal(uint64(0)))
			Expect(entry.Recency).To(Equal(uint64(0)))
		}
	})

	It("should hand out mutable entries", func() {
		entry := table.Entry(3)
		entry.Valid = true
		entry.FrameNumber = 7

		Expect(table.Entry(3).Valid).To(BeTrue())
		Expect(table.Entry(3).FrameNumber).To(Equal(uint64(7)))
	})

	It("should panic on an out-of-range VPN", func() {
		Expect(func() {
			table.Entry(64)
		}).To(Panic())
	})
})
