// Package vm models the address-translation side of a memory hierarchy. It
// provides a page table, an address decoder, and a translator that resolves
// virtual addresses to physical addresses with FIFO or LRU page replacement.
package vm

import (
	"fmt"
	"math/bits"
)

// An AddressDecoder splits an address into a virtual page number and an
// in-page offset for a fixed, power-of-two page size.
type AddressDecoder struct {
	pageSize   uint64
	offsetBits uint
}

// NewAddressDecoder creates a decoder for the given page size. The page size
// must be a power of two.
func NewAddressDecoder(pageSize uint64) (*AddressDecoder, error) {
	if !isPowerOfTwo(pageSize) {
		return nil, fmt.Errorf(
			"page size must be a power of two, got %d", pageSize)
	}

	return &AddressDecoder{
		pageSize:   pageSize,
		offsetBits: uint(bits.TrailingZeros64(pageSize)),
	}, nil
}

// Decode returns the virtual page number and the offset within the page. The
// offset is always smaller than the page size.
func (d *AddressDecoder) Decode(addr uint64) (vpn, offset uint64) {
	offset = addr & (d.pageSize - 1)
	vpn = addr >> d.offsetBits

	return vpn, offset
}

// PageSize returns the page size the decoder was built for.
func (d *AddressDecoder) PageSize() uint64 {
	return d.pageSize
}

// OffsetBits returns the number of low-order bits covered by the in-page
// offset.
func (d *AddressDecoder) OffsetBits() uint {
	return d.offsetBits
}

func isPowerOfTwo(x uint64) bool {
	return x != 0 && x&(x-1) == 0
}
