package core

// trap.go implements the synchronous exception (trap) mechanism: raising a Trap from an executor
// handler, delivering it with machine-to-supervisor delegation, and the MRET/SRET instructions
// that return from a trap handler.

import "fmt"

// Trap is raised by an executor handler to signal an architectural exception. It carries the
// cause and the trap value (a faulting address or the offending instruction word, depending on
// cause) that the trap engine writes into xCAUSE and xTVAL on delivery.
//
// Trap implements error so it composes with errors.Is/errors.As, but it is never used for
// host-side failures -- only for the architectural events listed in Cause.
type Trap struct {
	Cause Cause
	Value Word
}

func (t *Trap) Error() string {
	return fmt.Sprintf("trap: %s (tval=%s)", t.Cause, t.Value)
}

func (t *Trap) Is(target error) bool {
	_, ok := target.(*Trap)
	return ok
}

func (t *Trap) As(target any) bool {
	if tt, ok := target.(**Trap); ok {
		*tt = t
		return true
	}

	return false
}

// newTrap constructs a Trap. Handlers use this rather than composite literals so the call site
// reads as "raise cause with value" instead of a struct literal.
func newTrap(cause Cause, value Word) *Trap {
	return &Trap{Cause: cause, Value: value}
}

// deliver executes the exception-entry sequence defined in the privileged architecture: it
// decides the target privilege level (honoring M-to-S delegation via MEDELEG), saves the
// faulting PC, cause, and trap value into the target's xEPC/xCAUSE/xTVAL, saves and clears the
// interrupt-enable bit, records the prior privilege, raises privilege to the target, and points PC
// at the trap vector.
//
// It returns the fatal flag: true if cause is in the undelegated, unhandled fatal set and the
// caller should stop running rather than continue at the trap vector.
func (cpu *CPU) deliver(trap *Trap, faultPC Word) (nextPC Word, fatal bool) {
	delegated := cpu.priv <= Supervisor && cpu.csr.IsMedelegated(trap.Cause)

	var tvec Word
	if !delegated {
		tvec = cpu.csr[MTVEC]
	} else {
		tvec = cpu.csr[STVEC]
	}

	if tvec == 0 && trap.Cause.IsFatal() {
		return 0, true
	}

	prevPriv := cpu.priv

	if delegated {
		cpu.csr[SEPC] = faultPC
		cpu.csr[SCAUSE] = Word(trap.Cause)
		cpu.csr[STVAL] = trap.Value

		sie := (cpu.csr[MSTATUS] & StatusSIE) != 0
		cpu.csr[MSTATUS] = setBit(cpu.csr[MSTATUS], StatusSPIE, sie)
		cpu.csr[MSTATUS] &^= StatusSIE

		spp := Word(0)
		if prevPriv == Supervisor {
			spp = 1
		}
		cpu.csr[MSTATUS] = setBit(cpu.csr[MSTATUS], StatusSPP, spp != 0)

		cpu.priv = Supervisor
	} else {
		cpu.csr[MEPC] = faultPC
		cpu.csr[MCAUSE] = Word(trap.Cause)
		cpu.csr[MTVAL] = trap.Value

		mie := (cpu.csr[MSTATUS] & StatusMIE) != 0
		cpu.csr[MSTATUS] = setBit(cpu.csr[MSTATUS], StatusMPIE, mie)
		cpu.csr[MSTATUS] &^= StatusMIE

		cpu.csr[MSTATUS] = (cpu.csr[MSTATUS] &^ StatusMPP) | (Word(prevPriv) << StatusMPPShift)

		cpu.priv = Machine
	}

	return tvec &^ 0x3, false
}

// mret implements the MRET instruction: return from a machine-mode trap handler.
func (cpu *CPU) mret() Word {
	mpp := Privilege((cpu.csr[MSTATUS] & StatusMPP) >> StatusMPPShift)

	mpie := (cpu.csr[MSTATUS] & StatusMPIE) != 0
	cpu.csr[MSTATUS] = setBit(cpu.csr[MSTATUS], StatusMIE, mpie)
	cpu.csr[MSTATUS] |= StatusMPIE
	cpu.csr[MSTATUS] &^= StatusMPP

	cpu.priv = mpp

	if mpp != Machine {
		cpu.csr[MSTATUS] &^= StatusMPRV
	}

	return cpu.csr[MEPC] &^ 0x3
}

// sret implements the SRET instruction: return from a supervisor-mode trap handler. It is
// symmetric with mret over SPP/SPIE/SIE and never touches MPRV.
func (cpu *CPU) sret() Word {
	var spp Privilege
	if cpu.csr[MSTATUS]&StatusSPP != 0 {
		spp = Supervisor
	} else {
		spp = User
	}

	spie := (cpu.csr[MSTATUS] & StatusSPIE) != 0
	cpu.csr[MSTATUS] = setBit(cpu.csr[MSTATUS], StatusSIE, spie)
	cpu.csr[MSTATUS] |= StatusSPIE
	cpu.csr[MSTATUS] &^= StatusSPP

	cpu.priv = spp

	return cpu.csr[SEPC] &^ 0x3
}

// setBit returns v with bit set or cleared according to on.
func setBit(v Word, bit Word, on bool) Word {
	if on {
		return v | bit
	}

	return v &^ bit
}
