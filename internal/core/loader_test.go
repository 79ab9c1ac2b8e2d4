package core

import "testing"

func TestFlattenSingleChunk(t *testing.T) {
	image, err := Flatten([]ObjectCode{
		{Orig: DRAMBase, Code: []Word{0x1111_1111, 0x2222_2222}},
	})
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	if len(image) != 8 {
		t.Fatalf("image length: got %d, want 8", len(image))
	}

	cpu := mustCPU(t, image)

	v, trap := cpu.bus.Load(DRAMBase+4, Fullword)
	if trap != nil {
		t.Fatalf("Load: %v", trap)
	}

	if v != 0x2222_2222 {
		t.Errorf("word at +4: got %#x, want 0x22222222", uint32(v))
	}
}

func TestFlattenMultipleChunksAtDistinctOrigins(t *testing.T) {
	image, err := Flatten([]ObjectCode{
		{Orig: DRAMBase, Code: []Word{0xaaaa_aaaa}},
		{Orig: DRAMBase + 0x100, Code: []Word{0xbbbb_bbbb}},
	})
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	cpu := mustCPU(t, image)

	v, _ := cpu.bus.Load(DRAMBase+0x100, Fullword)
	if v != 0xbbbb_bbbb {
		t.Errorf("word at +0x100: got %#x, want 0xbbbbbbbb", uint32(v))
	}
}
