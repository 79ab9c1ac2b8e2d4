package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/oxblood-labs/rv32core/internal/cli"
	"github.com/oxblood-labs/rv32core/internal/core"
	"github.com/oxblood-labs/rv32core/internal/encoding"
	"github.com/oxblood-labs/rv32core/internal/firmware"
	"github.com/oxblood-labs/rv32core/internal/log"

	"golang.org/x/term"
)

// Run returns the "run" sub-command: load a program image and execute it to completion or a
// fatal fault.
func Run() cli.Command {
	return &runner{log: log.DefaultLogger()}
}

type runner struct {
	logLevel slog.Level
	hex      bool
	noFW     bool

	log *log.Logger
}

var _ cli.Command = (*runner)(nil)

func (*runner) Description() string {
	return "run a program"
}

func (*runner) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `run [-hex] [-loglevel level] program.bin

Loads a flat RV32IM binary image -- or, with -hex, the object-code hex
encoding -- at DRAM_BASE and runs it until the hart halts or a fatal
exception fires. Dumps all 32 registers and the PC to stdout on exit.`)

	return err
}

func (r *runner) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.BoolVar(&r.hex, "hex", false, "load `program` as object-code hex rather than a flat binary")
	fs.BoolVar(&r.noFW, "no-firmware", false, "skip installing the default ECALL firmware handler")
	fs.Func("loglevel", "set log `level`", func(s string) error {
		return r.logLevel.UnmarshalText([]byte(s))
	})

	return fs
}

// Run loads the named program and executes it, dumping the final architectural state to out on
// exit. It returns 0 on a normal halt, nonzero on a fatal trap or host-side error.
func (r *runner) Run(ctx context.Context, args []string, out io.Writer, logger *log.Logger) int {
	log.LogLevel.Set(r.logLevel)

	if len(args) != 1 {
		logger.Error("run: expected exactly one program argument")
		return 1
	}

	image, err := r.loadImage(args[0])
	if err != nil {
		logger.Error("loading program", "err", err)
		return 1
	}

	opts := []core.Option{core.WithLogger(logger)}

	if !r.noFW {
		opts = append(opts, firmware.Install())
	}

	opts = append(opts, core.WithSerialListener(func(b byte) {
		_, _ = out.Write([]byte{b})
	}))

	cpu, err := core.NewCPU(image, opts...)
	if err != nil {
		logger.Error("constructing hart", "err", err)
		return 1
	}

	runErr := cpu.Run(ctx)

	fmt.Fprintln(out)
	fmt.Fprint(out, r.dump(cpu))

	switch {
	case runErr == nil:
		return 0
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		logger.Warn("run: interrupted")
		return 2
	default:
		return 1
	}
}

// dump renders the hart's final register state, highlighted with ANSI color when stdout is a
// terminal, matching the teacher CLI's practice of only decorating output that a human will read.
func (r *runner) dump(cpu *core.CPU) string {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return "\033[1m" + cpu.String() + "\033[0m"
	}

	return cpu.String()
}

func (r *runner) loadImage(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	if !r.hex {
		return raw, nil
	}

	h := encoding.HexEncoding{}
	if err := h.UnmarshalText(raw); err != nil {
		return nil, err
	}

	return core.Flatten(h.Code)
}
