package core

// dram.go is the byte-addressable backing store for the hart's main memory.

import "fmt"

// DRAM is a fixed-size, byte-addressable, little-endian memory region.
type DRAM struct {
	cell [DRAMSize]byte
}

// NewDRAM returns a zeroed DRAM region.
func NewDRAM() *DRAM {
	return &DRAM{}
}

// Load copies size bits starting at addr (a full bus address; Load subtracts DRAMBase itself) as
// an unsigned, little-endian integer. size must be one of Byte, Halfword, or Fullword; any other
// size, or an address that would read outside the region, raises a Trap carrying the original bus
// address addr, not the translated offset.
func (d *DRAM) Load(addr Word, size Size) (Word, *Trap) {
	n := size.Bytes()
	if n != 1 && n != 2 && n != 4 {
		return 0, newTrap(LoadAccessFault, addr)
	}

	offset := addr - DRAMBase
	if uint64(offset)+uint64(n) > uint64(len(d.cell)) {
		return 0, newTrap(LoadAccessFault, addr)
	}

	var v Word
	for i := 0; i < n; i++ {
		v |= Word(d.cell[int(offset)+i]) << (8 * i)
	}

	return v, nil
}

// Store writes the low size bits of value, little-endian, starting at addr (a full bus address;
// Store subtracts DRAMBase itself). size must be one of Byte, Halfword, or Fullword; any other
// size, or an address that would write outside the region, raises a Trap carrying the original
// bus address addr, not the translated offset.
func (d *DRAM) Store(addr Word, value Word, size Size) *Trap {
	n := size.Bytes()
	if n != 1 && n != 2 && n != 4 {
		return newTrap(StoreAMOAccessFault, addr)
	}

	offset := addr - DRAMBase
	if uint64(offset)+uint64(n) > uint64(len(d.cell)) {
		return newTrap(StoreAMOAccessFault, addr)
	}

	for i := 0; i < n; i++ {
		d.cell[int(offset)+i] = byte(value >> (8 * i))
	}

	return nil
}

// LoadImage copies image into DRAM starting at offset 0, the convention used by the loader when
// constructing a new CPU from a flat binary.
func (d *DRAM) LoadImage(image []byte) error {
	if len(image) > len(d.cell) {
		return fmt.Errorf("core: image too large: %d bytes, DRAM is %d bytes", len(image), len(d.cell))
	}

	copy(d.cell[:], image)

	return nil
}
