// Package firmware provides a minimal machine-mode boot ROM: a trap handler that answers the
// console-write convention a bare-metal test program uses (write the byte in a0/x10 to the
// serial device, then resume) instead of leaving every ECALL to fall through as a fatal,
// unhandled trap.
//
// Without an installed firmware option, MTVEC stays zero and every trap is fatal -- which is the
// correct default for a simulator whose job is to execute a program under test, not to babysit
// it. Firmware is opt-in.
package firmware

import (
	"github.com/oxblood-labs/rv32core/internal/core"
)

// Origin is where the handler is installed, in the last page of DRAM so it never collides with a
// program loaded at DRAMBase.
const Origin = core.DRAMEnd - 0x100

const (
	opLoad   = 0x03
	opImm    = 0x13
	opStore  = 0x23
	opLUI    = 0x37
	opBranch = 0x63
	opJAL    = 0x6f
	opSystem = 0x73
)

// code is the handler's instruction stream, built once by init from the encode helpers below
// rather than written as a magic byte sequence. On entry it inspects MCAUSE: an ECALL from any
// privilege level writes the low byte of a0 to the serial aperture and resumes the guest with
// MRET; any other cause (a real fault reaching the installed handler) falls through to a halt
// word rather than silently resuming past it.
var code []core.Word

func init() {
	const (
		mepc   = 0x341
		mcause = 0x342

		a0 = 10 // x10: argument / ECALL byte to print.
		t0 = 28 // x28: holds MCAUSE.
		t1 = 29 // x29: comparison scratch.
		t2 = 30 // x30: holds MEPC while it is advanced past the ECALL.
		t3 = 31 // x31: scratch, holds the serial device address.
	)

	// Word indices into the instruction stream below, used to compute branch/jump offsets.
	const (
		ecall = 8  // first word of the ECALL path.
		halt  = 14 // first word after the handler -- left unwritten, so fetching it halts.
	)

	code = []core.Word{
		// t0 <- MCAUSE
		encodeI(opSystem, t0, 2 /* CSRRS */, 0, mcause),
		// ECALL_FROM_U: branch to the ECALL path on a match.
		encodeI(opImm, t1, 0 /* ADDI */, 0, uint32(core.ECallFromU)),
		encodeB(opBranch, 0 /* BEQ */, t0, t1, 4*(ecall-2)),
		// ECALL_FROM_S: branch to the ECALL path on a match.
		encodeI(opImm, t1, 0, 0, uint32(core.ECallFromS)),
		encodeB(opBranch, 0, t0, t1, 4*(ecall-4)),
		// ECALL_FROM_M: branch to the ECALL path on a match.
		encodeI(opImm, t1, 0, 0, uint32(core.ECallFromM)),
		encodeB(opBranch, 0, t0, t1, 4*(ecall-6)),
		// Any other cause: jump past the ECALL path to the halt word rather than resuming the
		// guest past a fault it never handled.
		encodeJ(opJAL, 0, 4*(halt-7)),

		// ECALL path: t2 <- MEPC
		encodeI(opSystem, t2, 2, 0, mepc),
		// t2 <- t2 + 4, skipping the ECALL instruction that trapped here.
		encodeI(opImm, t2, 0, t2, 4),
		// MEPC <- t2
		encodeI(opSystem, 0, 1 /* CSRRW */, t2, mepc),
		// t3 <- SerialBase
		encodeU(opLUI, t3, uint32(core.SerialBase)>>12),
		// serial[0] <- low byte of a0
		encodeS(opStore, 0 /* SB */, t3, a0, 0),
		// return to the resumed program.
		encodeR(opSystem, 0, 0, 0, 2, 0x18 /* MRET */),
	}
}

// Install returns a core.Option that loads the handler into DRAM at Origin and points MTVEC at
// it, so an ECALL from any privilege level is answered by the console-write convention instead of
// being treated as fatal; any other cause reaching the handler still halts the run.
func Install() core.Option {
	return core.WithFirmware(Origin, code)
}

// encodeR packs an R-type instruction.
func encodeR(opcode, rd, funct3, rs1, rs2, funct7 uint32) core.Word {
	return core.Word(funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode)
}

// encodeI packs an I-type instruction; imm is the raw 12-bit field (sign bit included where
// relevant, CSR address where not).
func encodeI(opcode, rd, funct3, rs1, imm uint32) core.Word {
	return core.Word((imm&0xfff)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode)
}

// encodeS packs an S-type instruction.
func encodeS(opcode, funct3, rs1, rs2, imm uint32) core.Word {
	immU := imm & 0xfff
	hi := (immU >> 5) & 0x7f
	lo := immU & 0x1f

	return core.Word(hi<<25 | rs2<<20 | rs1<<15 | funct3<<12 | lo<<7 | opcode)
}

// encodeU packs a U-type instruction; imm20 is the already-shifted-down 20-bit field (i.e. the
// value that will land in bits 31:12).
func encodeU(opcode, rd, imm20 uint32) core.Word {
	return core.Word((imm20&0xfffff)<<12 | rd<<7 | opcode)
}

// encodeB packs a B-type (branch) instruction; imm is the branch offset, relative to the
// instruction's own address, with bit 0 implicitly zero.
func encodeB(opcode, funct3, rs1, rs2, imm uint32) core.Word {
	bit12 := (imm >> 12) & 0x1
	bit11 := (imm >> 11) & 0x1
	bits10_5 := (imm >> 5) & 0x3f
	bits4_1 := (imm >> 1) & 0xf

	return core.Word(bit12<<31 | bits10_5<<25 | rs2<<20 | rs1<<15 | funct3<<12 | bits4_1<<8 | bit11<<7 | opcode)
}

// encodeJ packs a J-type (jump) instruction; imm is the jump offset, relative to the
// instruction's own address, with bit 0 implicitly zero.
func encodeJ(opcode, rd, imm uint32) core.Word {
	bit20 := (imm >> 20) & 0x1
	bits19_12 := (imm >> 12) & 0xff
	bit11 := (imm >> 11) & 0x1
	bits10_1 := (imm >> 1) & 0x3ff

	return core.Word(bit20<<31 | bits10_1<<21 | bit11<<20 | bits19_12<<12 | rd<<7 | opcode)
}
