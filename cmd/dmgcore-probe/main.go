// Command dmgcore-probe loads a raw ROM image, runs the core for a fixed
// number of steps, and prints any bytes the serial port captured. It is a
// debugging aid, not a test-suite runner: exit codes, suite file formats and
// ROM header parsing are out of scope for this core (spec §6).
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dmgkit/dmgcore"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "dmgcore-probe"
	app.Description = "Runs a raw Game Boy ROM image against the core for a fixed step count"
	app.Usage = "dmgcore-probe -rom <file> [-steps N]"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM image",
		},
		cli.IntFlag{
			Name:  "steps",
			Usage: "Number of CPU steps to run",
			Value: 1_000_000,
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("dmgcore-probe failed", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		cli.ShowAppHelp(c)
		return errors.New("no ROM path provided")
	}

	rom, err := os.ReadFile(romPath)
	if err != nil {
		return fmt.Errorf("reading ROM: %w", err)
	}

	gb := dmgcore.New()
	gb.LoadROM(rom)

	steps := c.Int("steps")
	cycles, runErr := gb.RunSteps(steps)

	slog.Info("run finished", "cycles", cycles, "pc", fmt.Sprintf("0x%04X", gb.CPU.PC()))

	if out := gb.Bus.TakeSerialOutput(); len(out) > 0 {
		fmt.Fprintln(os.Stdout, string(out))
	}

	return runErr
}
