// Package core implements the hart: its register file, CSR file, memory bus, instruction
// decoder, executor, and trap engine.
package core

import (
	"fmt"

	"github.com/oxblood-labs/rv32core/internal/log"
)

// CPU holds all architectural state for a single hart and the memory subsystem it owns.
type CPU struct {
	regs RegisterFile
	pc   Word
	priv Privilege
	csr  *CSRFile

	dram   *DRAM
	serial *Serial
	bus    *Bus

	log *log.Logger
}

// NewCPU constructs a hart, loads image into DRAM at offset 0, and applies opts. Construction
// sets PC to DRAMBase, x2 (the conventional stack pointer) to DRAMEnd, zeroes the CSR file, and
// starts the hart in machine mode, matching the reference's lifecycle.
func NewCPU(image []byte, opts ...Option) (*CPU, error) {
	cpu := &CPU{
		priv: Machine,
		csr:  NewCSRFile(),
		dram: NewDRAM(),

		log: log.DefaultLogger(),
	}

	if err := cpu.dram.LoadImage(image); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}

	cpu.serial = NewSerial()
	cpu.bus = NewBus(cpu.dram, cpu.serial)

	cpu.pc = DRAMBase
	cpu.regs.Set(2, Register(DRAMEnd)) // Stack pointer convention: x2 <- top of DRAM.

	for _, opt := range opts {
		opt(cpu)
	}

	return cpu, nil
}

// Option configures a CPU at construction time.
type Option func(*CPU)

// WithLogger overrides the hart's logger.
func WithLogger(logger *log.Logger) Option {
	return func(cpu *CPU) {
		cpu.log = logger
	}
}

// WithSerialListener registers a listener for bytes written to the serial device. Used by the CLI
// to forward console output to standard output and by tests to capture it.
func WithSerialListener(listener func(byte)) Option {
	return func(cpu *CPU) {
		cpu.serial.Listen(listener)
	}
}

// WithFirmware installs firmware at the given origin and points MTVEC at it, so synchronous
// exceptions land in the firmware's trap handler instead of falling through the driver's default
// MTVEC == 0 fatal path.
func WithFirmware(origin Word, code []Word) Option {
	return func(cpu *CPU) {
		for i, w := range code {
			_ = cpu.dram.Store(origin+Word(i*4), w, Fullword)
		}

		cpu.csr.Store(MTVEC, origin)
	}
}

// PC returns the current program counter.
func (cpu *CPU) PC() Word { return cpu.pc }

// Privilege returns the current privilege level.
func (cpu *CPU) Privilege() Privilege { return cpu.priv }

// Registers returns a copy of the general-purpose register file.
func (cpu *CPU) Registers() RegisterFile { return cpu.regs }

// CSR reads a control and status register by address.
func (cpu *CPU) CSR(addr CSR) Word { return cpu.csr.Load(addr) }

func (cpu *CPU) String() string {
	return fmt.Sprintf("PC: %s PRIV: %s\n%s", Word(cpu.pc), cpu.priv, cpu.regs.String())
}

// LogValue renders the hart's architectural state as a structured log group.
func (cpu *CPU) LogValue() log.Value {
	return log.GroupValue(
		log.String("PC", Word(cpu.pc).String()),
		log.String("PRIV", cpu.priv.String()),
	)
}
