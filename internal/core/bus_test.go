package core

import "testing"

func TestBusRoutesDRAM(t *testing.T) {
	b := NewBus(NewDRAM(), NewSerial())

	if trap := b.Store(DRAMBase+4, 0x2a, Fullword); trap != nil {
		t.Fatalf("Store: %v", trap)
	}

	v, trap := b.Load(DRAMBase+4, Fullword)
	if trap != nil {
		t.Fatalf("Load: %v", trap)
	}

	if v != 0x2a {
		t.Errorf("Load: got %s, want 0x2a", v)
	}
}

func TestBusRoutesSerial(t *testing.T) {
	var got byte

	s := NewSerial()
	s.Listen(func(b byte) { got = b })

	b := NewBus(NewDRAM(), s)

	if trap := b.Store(SerialBase, 'X', Byte); trap != nil {
		t.Fatalf("Store: %v", trap)
	}

	if got != 'X' {
		t.Errorf("listener byte: got %q, want 'X'", got)
	}
}

func TestBusUnmappedAccessFault(t *testing.T) {
	b := NewBus(NewDRAM(), NewSerial())

	if _, trap := b.Load(0x0000_0000, Fullword); trap == nil || trap.Cause != LoadAccessFault || trap.Value != 0 {
		t.Errorf("Load 0x0: want LoadAccessFault tval=0, got %v", trap)
	}

	if trap := b.Store(0x0000_0000, 1, Fullword); trap == nil || trap.Cause != StoreAMOAccessFault {
		t.Errorf("Store 0x0: want StoreAMOAccessFault, got %v", trap)
	}
}

func TestBusFetchTranslatesToInstructionAccessFault(t *testing.T) {
	b := NewBus(NewDRAM(), NewSerial())

	if _, trap := b.Fetch(0x0000_0000); trap == nil || trap.Cause != InstructionAccessFault {
		t.Errorf("Fetch outside DRAM: want InstructionAccessFault, got %v", trap)
	}
}

// TestBusOutOfBoundsTrapCarriesBusAddress asserts a DRAM access straddling the end of the region
// raises with the original bus address as the trap value, not the DRAM-relative offset DRAM.Load
// computes internally.
func TestBusOutOfBoundsTrapCarriesBusAddress(t *testing.T) {
	b := NewBus(NewDRAM(), NewSerial())

	_, trap := b.Load(DRAMEnd-2, Fullword)
	if trap == nil || trap.Cause != LoadAccessFault {
		t.Fatalf("Load straddling DRAM end: want LoadAccessFault, got %v", trap)
	}

	if trap.Value != DRAMEnd-2 {
		t.Errorf("trap value: got %s, want %s (the bus address, not DRAMSize-2)", trap.Value, Word(DRAMEnd-2))
	}
}
