package vm

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Translator", func() {
	It("should reject a non-power-of-two page size", func() {
		_, err := NewTranslator(64, 16, 1000, FIFO)
		Expect(err).To(HaveOccurred())
	})

	It("should reject zero physical frames", func() {
		_, err := NewTranslator(64, 0, 4096, FIFO)
		Expect(err).To(HaveOccurred())
	})

	It("should reject zero virtual pages", func() {
		_, err := NewTranslator(0, 16, 4096, FIFO)
		Expect(err).To(HaveOccurred())
	})

	Context("with plenty of frames", func() {
		var t *Translator

		BeforeEach(func() {
			var err error
			t, err = NewTranslator(64, 16, 4096, FIFO)
			Expect(err).ToNot(HaveOccurred())
		})

		It("should start with no faults", func() {
			Expect(t.PageFaults()).To(Equal(uint64(0)))
		})

		It("should fault on the first touch of a page", func() {
			_, err := t.Translate(0x1000)

			Expect(err).ToNot(HaveOccurred())
			Expect(t.PageFaults()).To(Equal(uint64(1)))
		})

		It("should not fault again on a resident page", func() {
			paddr1, _ := t.Translate(0x2000)
			faults := t.PageFaults()

			paddr2, err := t.Translate(0x2000)

			Expect(err).ToNot(HaveOccurred())
			Expect(paddr2).To(Equal(paddr1))
			Expect(t.PageFaults()).To(Equal(faults))
		})

		It("should fault once per distinct page", func() {
			for i := uint64(0); i < 5; i++ {
				_, err := t.Translate(i * 4096)
				Expect(err).ToNot(HaveOccurred())
			}
			Expect(t.PageFaults()).To(Equal(uint64(5)))

			for i := uint64(0); i < 5; i++ {
				_, err := t.Translate(i * 4096)
				Expect(err).ToNot(HaveOccurred())
			}
			Expect(t.PageFaults()).To(Equal(uint64(5)))
		})

		It("should preserve the page offset", func() {
			for _, vaddr := range []uint64{0x1234, 0x2abc, 0x3fff, 0x7000} {
				paddr, err := t.Translate(vaddr)

				Expect(err).ToNot(HaveOccurred())
				Expect(paddr & 0xfff).To(Equal(vaddr & 0xfff))
			}
		})

		It("should map distinct pages to distinct frames", func() {
			frames := make(map[uint64]bool)

			for i := uint64(0); i < 10; i++ {
				paddr, err := t.Translate(i * 4096)
				Expect(err).ToNot(HaveOccurred())

				frame := paddr / 4096
				Expect(frames[frame]).To(BeFalse())
				frames[frame] = true
			}
		})

		It("should return a typed error for an out-of-range address", func() {
			_, err := t.Translate(64 * 4096)

			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, ErrOutOfRange)).To(BeTrue())
			Expect(t.PageFaults()).To(Equal(uint64(0)))
		})
	})

	Context("with FIFO replacement", func() {
		var t *Translator

		BeforeEach(func() {
			var err error
			t, err = NewTranslator(8, 4, 4096, FIFO)
			Expect(err).ToNot(HaveOccurred())
		})

		It("should evict the page loaded first", func() {
			for i := uint64(0); i < 4; i++ {
				t.Translate(i * 4096)
			}
			Expect(t.PageFaults()).To(Equal(uint64(4)))

			// Page 4 displaces page 0, the oldest load.
			t.Translate(4 * 4096)
			Expect(t.PageFaults()).To(Equal(uint64(5)))

			t.Translate(0)
			Expect(t.PageFaults()).To(Equal(uint64(6)))
		})

		It("should keep the middle pages resident", func() {
			for i := uint64(0); i < 5; i++ {
				t.Translate(i * 4096)
			}
			faults := t.PageFaults()

			for i := uint64(1); i < 4; i++ {
				t.Translate(i * 4096)
			}

			Expect(t.PageFaults()).To(Equal(faults))
		})

		It("should not let hits change the eviction order", func() {
			for i := uint64(0); i < 4; i++ {
				t.Translate(i * 4096)
			}

			// Touching page 0 must not save it under FIFO.
			t.Translate(0)

			t.Translate(4 * 4096)
			t.Translate(0)
			Expect(t.PageFaults()).To(Equal(uint64(6)))
		})
	})

	Context("with LRU replacement", func() {
		var t *Translator

		BeforeEach(func() {
			var err error
			t, err = NewTranslator(8, 4, 4096, LRU)
			Expect(err).ToNot(HaveOccurred())
		})

		It("should evict the least recently touched page", func() {
			for i := uint64(0); i < 4; i++ {
				t.Translate(i * 4096)
			}
			Expect(t.PageFaults()).To(Equal(uint64(4)))

			// Refresh pages 0-2 so that page 3 becomes the coldest.
			for i := uint64(0); i < 3; i++ {
				t.Translate(i * 4096)
			}

			t.Translate(4 * 4096)
			Expect(t.PageFaults()).To(Equal(uint64(5)))

			// Page 3 was the victim; pages 0-2 stayed resident.
			t.Translate(0)
			t.Translate(4096)
			t.Translate(2 * 4096)
			Expect(t.PageFaults()).To(Equal(uint64(5)))

			t.Translate(3 * 4096)
			Expect(t.PageFaults()).To(Equal(uint64(6)))
		})
	})

	Context("under thrashing", func() {
		It("should fault on every access of a cyclic scan", func() {
			t, _ := NewTranslator(16, 4, 4096, FIFO)

			// Cycling over 8 pages with 4 frames re-faults the whole
			// working set on every pass.
			for cycle := 0; cycle < 3; cycle++ {
				for i := uint64(0); i < 8; i++ {
					t.Translate(i * 4096)
				}
			}

			Expect(t.PageFaults()).To(Equal(uint64(24)))
		})
	})
})
