package cache

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Cache", func() {
	It("should reject zero-sized parameters", func() {
		_, err := New(0, 64, 1)
		Expect(err).To(HaveOccurred())

		_, err = New(1024, 0, 1)
		Expect(err).To(HaveOccurred())

		_, err = New(1024, 64, 0)
		Expect(err).To(HaveOccurred())
	})

	It("should reject a size that does not divide into sets", func() {
		_, err := New(1000, 64, 1)
		Expect(err).To(HaveOccurred())
	})

	It("should reject a non-power-of-two line size", func() {
		_, err := New(960, 48, 1)
		Expect(err).To(HaveOccurred())
	})

	It("should reject a non-power-of-two set count", func() {
		// 1536 / (64 * 2) leaves 12 sets.
		_, err := New(1536, 64, 2)
		Expect(err).To(HaveOccurred())
	})

	It("should derive the geometry from the size", func() {
		c, err := New(1024, 64, 2)

		Expect(err).ToNot(HaveOccurred())
		Expect(c.NumSets()).To(Equal(uint64(8)))
		Expect(c.LineSize()).To(Equal(uint64(64)))
		Expect(c.Associativity()).To(Equal(uint64(2)))
	})

	Context("address decoding", func() {
		It("should keep fields within their bit bounds", func() {
			c, _ := New(1024, 64, 1)

			for addr := uint64(0); addr < 1<<16; addr += 123 {
				decoded := c.DecodeAddress(addr)

				Expect(decoded.Offset).To(BeNumerically("<", 64))
				Expect(decoded.Index).To(BeNumerically("<", c.NumSets()))
			}
		})

		It("should reassemble into the original address", func() {
			c, _ := New(1024, 64, 1)

			addr := uint64(0x1234)
			d := c.DecodeAddress(addr)

			rebuilt := d.Tag<<10 | d.Index<<6 | d.Offset
			Expect(rebuilt).To(Equal(addr))
		})
	})

	Context("probing", func() {
		var c *Cache

		BeforeEach(func() {
			var err error
			c, err = New(1024, 64, 1)
			Expect(err).ToNot(HaveOccurred())
		})

		It("should miss on a cold cache", func() {
			hit := c.Access(0x1000)

			Expect(hit).To(BeFalse())
			Expect(c.Misses()).To(Equal(uint64(1)))
			Expect(c.Hits()).To(Equal(uint64(0)))
		})

		It("should hit on the second probe of an address", func() {
			c.Access(0x1000)
			hit := c.Access(0x1000)

			Expect(hit).To(BeTrue())
			Expect(c.Hits()).To(Equal(uint64(1)))
			Expect(c.Misses()).To(Equal(uint64(1)))
		})

		It("should hit anywhere within a resident line", func() {
			c.Access(0x1000)

			Expect(c.Access(0x103f)).To(BeTrue())
		})

		It("should evict on a set conflict", func() {
			// 0x0000 and 0x0400 are one cache size apart and share set 0.
			c.Access(0x0000)
			c.Access(0x0400)

			Expect(c.Access(0x0000)).To(BeFalse())
		})
	})

	Context("fill", func() {
		It("should install a block without counting", func() {
			c, _ := New(1024, 64, 1)

			c.Fill(0x2000)

			Expect(c.Hits()).To(Equal(uint64(0)))
			Expect(c.Misses()).To(Equal(uint64(0)))
			Expect(c.Access(0x2000)).To(BeTrue())
		})

		It("should not duplicate a resident block", func() {
			c, _ := New(1024, 64, 4)

			c.Fill(0x0000)
			c.Fill(0x0000)
			c.Fill(0x0400)
			c.Fill(0x0800)
			c.Fill(0x0c00)

			// With four ways and only one of them double-filled, all four
			// distinct blocks must still be resident.
			Expect(c.Access(0x0000)).To(BeTrue())
			Expect(c.Access(0x0400)).To(BeTrue())
			Expect(c.Access(0x0800)).To(BeTrue())
			Expect(c.Access(0x0c00)).To(BeTrue())
		})
	})

	Context("per-set FIFO eviction", func() {
		It("should evict the line inserted first", func() {
			c, _ := New(256, 64, 2)

			// Set 0 holds two ways; three conflicting blocks force out the
			// first one inserted.
			c.Access(0x0000)
			c.Access(0x0080)
			c.Access(0x0100)

			Expect(c.Access(0x0000)).To(BeFalse())
			Expect(c.Access(0x0080)).To(BeFalse())
		})

		It("should prefer an invalid line over eviction", func() {
			c, _ := New(256, 64, 2)

			c.Access(0x0000)
			c.Access(0x0080)

			Expect(c.Access(0x0000)).To(BeTrue())
			Expect(c.Access(0x0080)).To(BeTrue())
		})
	})

	Context("hit ratio", func() {
		It("should be zero before any access", func() {
			c, _ := New(1024, 64, 1)

			Expect(c.HitRatio()).To(Equal(0.0))
		})

		It("should stay within [0, 1]", func() {
			c, _ := New(2048, 64, 1)

			for i := uint64(0); i < 100; i++ {
				c.Access((i % 10) * 64)

				ratio := c.HitRatio()
				Expect(ratio).To(BeNumerically(">=", 0.0))
				Expect(ratio).To(BeNumerically("<=", 1.0))
			}
		})

		It("should equal hits over total probes", func() {
			c, _ := New(2048, 64, 1)

			// 8 cold misses, then 8 hits.
			for i := uint64(0); i < 8; i++ {
				c.Access(i * 64)
			}
			for i := uint64(0); i < 8; i++ {
				c.Access(i * 64)
			}

			Expect(c.HitRatio()).To(Equal(0.5))
		})
	})
})
