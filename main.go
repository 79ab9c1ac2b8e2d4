// Command rv32 is the command-line interface to the simulator: a RISC-V RV32IM hart with
// machine and supervisor privilege modes.
package main

import (
	"context"
	"os"

	"github.com/oxblood-labs/rv32core/internal/cli"
	"github.com/oxblood-labs/rv32core/internal/cli/cmd"
)

var commands = []cli.Command{
	cmd.Run(),
}

func main() {
	result :=
		cli.New(context.Background()).
			WithLogger(os.Stderr).
			WithCommands(commands).
			WithHelp(cmd.Help(commands)).
			Execute(os.Args[1:])

	os.Exit(result)
}
