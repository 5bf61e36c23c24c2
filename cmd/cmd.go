// Package cmd implements the munc command-line front-end (spec §6):
// "compile <input> <output>" and "run <wasm>", plus the --debug/
// --no-color/--std-dir flags shared across both.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/munlang/munc/compiler"
	"github.com/munlang/munc/internal/diag"
)

// Execute runs the munc CLI and exits the process with the appropriate
// code (spec §6: 0 success, 1 compile/semantic/IO error, the
// assembler's own exit code on assembler failure).
func Execute(version string) {
	cmd := &cli.Command{
		Name:    "munc",
		Usage:   "compiles .mun source to WebAssembly text or binary",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "print the full diagnostic chain instead of a one-line error",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "disable ANSI-colored diagnostics",
			},
			&cli.StringFlag{
				Name:  "std-dir",
				Usage: "override the standard library directory (MUNC_STD_DIR)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "compile",
				Usage:     "compile a .mun file to .wat or .wasm",
				ArgsUsage: "<input.mun> <output.wat|output.wasm>",
				Action:    compileAction,
			},
			{
				Name:      "run",
				Usage:     "execute a compiled .wasm module's main export",
				ArgsUsage: "<module.wasm>",
				Action:    runAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		noColor := cmd.Bool("no-color") || os.Getenv("NO_COLOR") != ""
		fmt.Fprintln(os.Stderr, formatError(err, cmd.Bool("debug"), noColor))
		os.Exit(exitCode(err))
	}
}

func compileAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 2 {
		return errors.New("usage: munc compile <input.mun> <output.wat|output.wasm>")
	}
	c := &compiler.Compiler{StdDir: cmd.String("std-dir"), Debug: cmd.Bool("debug")}
	return c.Compile(cmd.Args().Get(0), cmd.Args().Get(1))
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 1 {
		return errors.New("usage: munc run <module.wasm>")
	}
	c := &compiler.Compiler{StdDir: cmd.String("std-dir"), Debug: cmd.Bool("debug")}
	return c.Run(cmd.Args().Get(0))
}

// exitCode implements spec §6/§7's exit code table: 0 is handled by the
// caller (this is only ever reached on a non-nil err), 1 for ordinary
// compiler failures, and the assembler's own exit code when a *diag.Error
// of Kind Assembler carries one.
func exitCode(err error) int {
	var de *diag.Error
	if errors.As(err, &de) && de.Kind == diag.Assembler && de.ExitCode != 0 {
		return de.ExitCode
	}
	return 1
}

// formatError renders err per spec §7: a concise one-liner by default,
// or the full wrapped chain under --debug. Diagnostics are colorized
// (red "error:") when writing to a terminal and not disabled.
func formatError(err error, debug, noColor bool) string {
	if debug {
		return fmt.Sprintf("error: %+v", unwrapChain(err))
	}
	msg := err.Error()
	if noColor || !term.IsTerminal(int(os.Stderr.Fd())) {
		return "error: " + msg
	}
	const red, reset = "\033[31m", "\033[0m"
	return red + "error" + reset + ": " + msg
}

// unwrapChain renders err followed by every error it wraps, one per
// line, so --debug shows the full diagnostic chain (internal/diag.Error
// wraps the underlying cause via Wrap for exactly this purpose).
func unwrapChain(err error) string {
	msg := err.Error()
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return msg
		}
		msg += "\ncaused by: " + next.Error()
		err = next
	}
}
