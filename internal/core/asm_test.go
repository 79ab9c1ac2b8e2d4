package core

// asm_test.go is a minimal, package-internal RV32IM instruction encoder used only by tests. It
// stands in for the out-of-scope assembler toolchain: just enough field-packing to construct
// fixture programs directly as encoded words.

func rType(opcode Opcode, rd GPR, funct3 uint8, rs1, rs2 GPR, funct7 uint8) Word {
	return Word(funct7)<<25 | Word(rs2)<<20 | Word(rs1)<<15 | Word(funct3)<<12 | Word(rd)<<7 | Word(opcode)
}

func iType(opcode Opcode, rd GPR, funct3 uint8, rs1 GPR, imm int32) Word {
	return (Word(uint32(imm))&0xfff)<<20 | Word(rs1)<<15 | Word(funct3)<<12 | Word(rd)<<7 | Word(opcode)
}

func sType(opcode Opcode, funct3 uint8, rs1, rs2 GPR, imm int32) Word {
	u := Word(uint32(imm)) & 0xfff
	hi := (u >> 5) & 0x7f
	lo := u & 0x1f

	return hi<<25 | Word(rs2)<<20 | Word(rs1)<<15 | Word(funct3)<<12 | lo<<7 | Word(opcode)
}

func bType(opcode Opcode, funct3 uint8, rs1, rs2 GPR, imm int32) Word {
	u := uint32(imm)
	bit12 := Word(u>>12) & 0x1
	bit11 := Word(u>>11) & 0x1
	bits10_5 := Word(u>>5) & 0x3f
	bits4_1 := Word(u>>1) & 0xf

	return bit12<<31 | bits10_5<<25 | Word(rs2)<<20 | Word(rs1)<<15 | Word(funct3)<<12 | bits4_1<<8 | bit11<<7 | Word(opcode)
}

func uType(opcode Opcode, rd GPR, imm20 uint32) Word {
	return Word(imm20&0xfffff)<<12 | Word(rd)<<7 | Word(opcode)
}

func jType(opcode Opcode, rd GPR, imm int32) Word {
	u := uint32(imm)
	bit20 := Word(u>>20) & 0x1
	bits19_12 := Word(u>>12) & 0xff
	bit11 := Word(u>>11) & 0x1
	bits10_1 := Word(u>>1) & 0x3ff

	return bit20<<31 | bits10_1<<21 | bit11<<20 | bits19_12<<12 | Word(rd)<<7 | Word(opcode)
}

// System-opcode helpers.

func csrType(funct3 uint8, rd GPR, rs1 GPR, csr CSR) Word {
	return Word(csr)<<20 | Word(rs1)<<15 | Word(funct3)<<12 | Word(rd)<<7 | Word(OpSystem)
}

func csrIType(funct3 uint8, rd GPR, uimm uint8, csr CSR) Word {
	return Word(csr)<<20 | Word(uimm&0x1f)<<15 | Word(funct3)<<12 | Word(rd)<<7 | Word(OpSystem)
}

func privType(funct7 uint8, rs2 uint8) Word {
	return Word(funct7)<<25 | Word(rs2)<<20 | Word(OpSystem)
}

// program builds a flat DRAM image by concatenating little-endian words, suitable for NewCPU.
func program(words ...Word) []byte {
	buf := make([]byte, len(words)*4)
	for i, w := range words {
		buf[i*4] = byte(w)
		buf[i*4+1] = byte(w >> 8)
		buf[i*4+2] = byte(w >> 16)
		buf[i*4+3] = byte(w >> 24)
	}

	return buf
}

func mustCPU(t interface{ Fatalf(string, ...any) }, image []byte) *CPU {
	cpu, err := NewCPU(image)
	if err != nil {
		t.Fatalf("NewCPU: %v", err)
	}

	return cpu
}
