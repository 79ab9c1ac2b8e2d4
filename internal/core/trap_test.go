package core

import (
	"errors"
	"testing"
)

func TestCSRSRETScenario(t *testing.T) {
	cpu := mustCPU(t, program(
		loadImmediate(2, 8),
		csrType(funct3CSRRW, 1, 2, SEPC),
		privType(funct7SRET, 2),
	))

	step(t, cpu)
	step(t, cpu)
	step(t, cpu)

	if got := cpu.csr.Load(SEPC); got != 8 {
		t.Errorf("SEPC: got %s, want 8", got)
	}

	if cpu.pc != 8 {
		t.Errorf("pc: got %s, want 8", cpu.pc)
	}

	if cpu.csr.Load(SSTATUS)&StatusSIE != 0 {
		t.Errorf("SSTATUS.SIE: want cleared")
	}
}

func TestUnknownOpcodeIsIllegalInstructionWithWordAsValue(t *testing.T) {
	const badOpcode = 0x0b

	word := Word(badOpcode)

	cpu := mustCPU(t, program(word))

	err := cpu.Step()
	if err == nil {
		t.Fatalf("Step: want fatal trap for unknown opcode 0x0b")
	}

	var trap *Trap
	if !errors.As(err, &trap) || trap.Cause != IllegalInstruction || trap.Value != word {
		t.Errorf("trap: got %v, want ILLEGAL_INSTRUCTION with tval=%s", trap, word)
	}
}

func TestDelegationToSupervisor(t *testing.T) {
	handlerS := DRAMEnd - 0x200
	handlerM := DRAMEnd - 0x100

	cpu, err := NewCPU(program(
		privType(0, 0), // ECALL from current privilege
	))
	if err != nil {
		t.Fatalf("NewCPU: %v", err)
	}

	// Delegation only applies when the hart is already at or below S; start there so
	// ECALL_FROM_S can be routed to the S-mode vector instead of falling through to M.
	cpu.priv = Supervisor
	cpu.csr.Store(MEDELEG, 1<<uint32(ECallFromS))
	cpu.csr.Store(STVEC, handlerS)
	cpu.csr.Store(MTVEC, handlerM)

	if err := cpu.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if cpu.priv != Supervisor {
		t.Errorf("priv after delegated trap: got %s, want S", cpu.priv)
	}

	if cpu.pc != handlerS&^0x3 {
		t.Errorf("pc: got %s, want %s", cpu.pc, handlerS&^0x3)
	}

	if got := cpu.csr.Load(SCAUSE); got != Word(ECallFromS) {
		t.Errorf("SCAUSE: got %s, want %s", Cause(got), ECallFromS)
	}

	if got := cpu.csr.Load(SEPC); got != DRAMBase {
		t.Errorf("SEPC: got %s, want %s", got, Word(DRAMBase))
	}
}

func TestUndelegatedTrapGoesToMachine(t *testing.T) {
	handlerM := DRAMEnd - 0x100

	cpu, err := NewCPU(program(
		privType(0, 0), // ECALL
	), WithFirmware(handlerM, []Word{privType(funct7MRET, 2)}))
	if err != nil {
		t.Fatalf("NewCPU: %v", err)
	}

	if err := cpu.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if cpu.priv != Machine {
		t.Errorf("priv: got %s, want M", cpu.priv)
	}

	if got := cpu.csr.Load(MCAUSE); got != Word(ECallFromM) {
		t.Errorf("MCAUSE: got %s, want %s", Cause(got), ECallFromM)
	}
}

func TestMRETRestoresPrivilegeAndPC(t *testing.T) {
	cpu := mustCPU(t, program(
		privType(funct7MRET, 2),
	))

	cpu.csr.Store(MEPC, 0x100)
	cpu.csr.Store(MSTATUS, (Word(Supervisor)<<StatusMPPShift)|StatusMPIE)

	step(t, cpu)

	if cpu.priv != Supervisor {
		t.Errorf("priv after MRET: got %s, want S", cpu.priv)
	}

	if cpu.pc != 0x100 {
		t.Errorf("pc after MRET: got %s, want 0x100", cpu.pc)
	}

	if cpu.csr.Load(MSTATUS)&StatusMIE == 0 {
		t.Errorf("MIE after MRET: want set (restored from MPIE)")
	}
}

func TestMRETClearsMPRVWhenLeavingMachine(t *testing.T) {
	cpu := mustCPU(t, program(
		privType(funct7MRET, 2),
	))

	cpu.csr.Store(MSTATUS, (Word(Supervisor)<<StatusMPPShift)|StatusMPRV)

	step(t, cpu)

	if cpu.csr.Load(MSTATUS)&StatusMPRV != 0 {
		t.Errorf("MPRV after MRET to non-Machine: want cleared")
	}
}
