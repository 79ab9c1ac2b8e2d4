package core

import "testing"

func TestSerialWriteBroadcastsToListeners(t *testing.T) {
	var a, b byte

	s := NewSerial()
	s.Listen(func(x byte) { a = x })
	s.Listen(func(x byte) { b = x })

	if trap := s.Store(0, 'Q', Byte); trap != nil {
		t.Fatalf("Store: %v", trap)
	}

	if a != 'Q' || b != 'Q' {
		t.Errorf("listeners: got %q %q, want 'Q' 'Q'", a, b)
	}
}

func TestSerialRejectsNonByteSize(t *testing.T) {
	s := NewSerial()

	if trap := s.Store(0, 0, Fullword); trap == nil || trap.Cause != StoreAMOAccessFault {
		t.Errorf("Store size=32: want StoreAMOAccessFault, got %v", trap)
	}
}

func TestSerialLoadIsNoop(t *testing.T) {
	s := NewSerial()

	v, trap := s.Load(0, Byte)
	if trap != nil {
		t.Fatalf("Load: %v", trap)
	}

	if v != 0 {
		t.Errorf("Load: got %s, want 0", v)
	}
}
