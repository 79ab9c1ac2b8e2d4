package core

// ops_mem.go implements the LOAD and STORE opcodes. Effective addresses are computed as
// rs1 + immediate; unaligned accesses are permitted silently, matching the reference.

const (
	funct3LB  = 0x0
	funct3LH  = 0x1
	funct3LW  = 0x2
	funct3LBU = 0x4
	funct3LHU = 0x5

	funct3SB = 0x0
	funct3SH = 0x1
	funct3SW = 0x2
)

// execLoad implements LB, LH, LW, LBU, and LHU.
func execLoad(cpu *CPU, ir Instruction) (Word, *Trap) {
	addr := Word(cpu.regs.Get(ir.RS1())) + ir.ImmI()

	var (
		size Size
		sext bool
	)

	switch ir.Funct3() {
	case funct3LB:
		size, sext = Byte, true
	case funct3LH:
		size, sext = Halfword, true
	case funct3LW:
		size, sext = Fullword, false
	case funct3LBU:
		size, sext = Byte, false
	case funct3LHU:
		size, sext = Halfword, false
	default:
		return 0, newTrap(IllegalInstruction, Word(ir))
	}

	value, trap := cpu.bus.Load(addr, size)
	if trap != nil {
		return 0, trap
	}

	if sext {
		value.Sext(uint8(size))
	}

	cpu.regs.Set(ir.RD(), Register(value))

	return cpu.pc + 4, nil
}

// execStore implements SB, SH, and SW.
func execStore(cpu *CPU, ir Instruction) (Word, *Trap) {
	addr := Word(cpu.regs.Get(ir.RS1())) + ir.ImmS()
	value := Word(cpu.regs.Get(ir.RS2()))

	var size Size

	switch ir.Funct3() {
	case funct3SB:
		size = Byte
	case funct3SH:
		size = Halfword
	case funct3SW:
		size = Fullword
	default:
		return 0, newTrap(IllegalInstruction, Word(ir))
	}

	if trap := cpu.bus.Store(addr, value, size); trap != nil {
		return 0, trap
	}

	return cpu.pc + 4, nil
}
