package core

// exec.go defines the instruction cycle and the top-level opcode dispatch table. Handlers for
// each opcode group live in ops_*.go; each is a plain function of (cpu, instruction) returning
// either the computed next PC or a raised Trap, rather than a method on an injected receiver.

import (
	"context"
	"errors"
	"fmt"
)

// handlerFn executes one instruction's semantics. It must not consult or mutate anything besides
// the CPU it is given.
type handlerFn func(cpu *CPU, ir Instruction) (Word, *Trap)

// opTable dispatches on the instruction's seven-bit opcode field. It is built once in init();
// entries for opcodes the executor does not implement are left nil and raise ILLEGAL_INSTRUCTION.
var opTable [128]handlerFn

func init() {
	opTable[OpImm] = execOpImm
	opTable[OpReg] = execOpReg
	opTable[OpLUI] = execLUI
	opTable[OpAUIPC] = execAUIPC
	opTable[OpJAL] = execJAL
	opTable[OpJALR] = execJALR
	opTable[OpBranch] = execBranch
	opTable[OpLoad] = execLoad
	opTable[OpStore] = execStore
	opTable[OpFence] = execFence
	opTable[OpSystem] = execSystem
}

// dispatch looks up and runs the handler for ir's opcode, converting a missing or unrecognized
// opcode into ILLEGAL_INSTRUCTION with the instruction word as the trap value.
func dispatch(cpu *CPU, ir Instruction) (Word, *Trap) {
	op := ir.Opcode()
	if int(op) >= len(opTable) {
		return 0, newTrap(IllegalInstruction, Word(ir))
	}

	fn := opTable[op]
	if fn == nil {
		return 0, newTrap(IllegalInstruction, Word(ir))
	}

	return fn(cpu, ir)
}

// ErrHalted is a wrapped error returned by Step when the hart fetches a zero instruction word,
// the CLI's convention for "no more program to run".
var ErrHalted = errors.New("halted")

// ErrFatalTrap is a wrapped error returned by Step when a fatal exception (see Cause.IsFatal)
// fires with no trap handler installed.
var ErrFatalTrap = errors.New("fatal trap")

// Run drives the fetch-decode-execute loop until the hart halts, a fatal trap fires, or ctx is
// cancelled. A normal halt is reported as a nil error; anything else propagates.
func (cpu *CPU) Run(ctx context.Context) error {
	cpu.log.Info("START", "state", cpu)

	var err error

	for {
		select {
		case <-ctx.Done():
			cpu.log.Warn("CANCELLED")
			return ctx.Err()
		default:
		}

		if err = cpu.Step(); err != nil {
			break
		}

		cpu.log.Debug("EXEC", "state", cpu)
	}

	switch {
	case errors.Is(err, ErrHalted):
		cpu.log.Info("HALTED", "state", cpu)
		return nil
	case errors.Is(err, ErrFatalTrap):
		cpu.log.Error("HALTED (FATAL TRAP)", "state", cpu)
		return err
	default:
		cpu.log.Error("HALTED (ERR)", "err", err, "state", cpu)
		return err
	}
}

// Step executes a single instruction: fetch, dispatch, and either commit the next PC or deliver a
// raised trap. It returns ErrHalted when the fetched word is zero, and ErrFatalTrap when a trap
// could not be delivered because it is in the fatal set and no handler is installed.
func (cpu *CPU) Step() error {
	pc := cpu.pc

	word, trap := cpu.bus.Fetch(pc)
	if trap != nil {
		next, fatal := cpu.deliver(trap, pc)
		if fatal {
			return fmt.Errorf("core: %w: %w", ErrFatalTrap, trap)
		}

		cpu.pc = next

		return nil
	}

	if word == 0 {
		return fmt.Errorf("core: %w", ErrHalted)
	}

	ir := Instruction(word)

	nextPC, trap := dispatch(cpu, ir)
	if trap != nil {
		next, fatal := cpu.deliver(trap, pc)
		if fatal {
			return fmt.Errorf("core: %w: %w", ErrFatalTrap, trap)
		}

		cpu.pc = next

		return nil
	}

	cpu.log.Debug("executed", "pc", fmt.Sprintf("%#x", pc), "ir", ir, "next", fmt.Sprintf("%#x", nextPC))

	cpu.pc = nextPC

	return nil
}
