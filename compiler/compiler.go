// Package compiler wires the pipeline together: resolve the source and
// its imports into one AST, check it, generate WAT, and optionally
// assemble it to WASM by shelling out to wat2wasm. It is the driver
// glue spec §2's component table allots 5% of the core to — the rest
// of the core lives in sema and codegen.
package compiler

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/munlang/munc/codegen"
	"github.com/munlang/munc/internal/diag"
	"github.com/munlang/munc/resolve"
	"github.com/munlang/munc/sema"
)

// Compiler holds the knobs a CLI invocation assembles before running the
// pipeline. StdDir and CacheDir default from the environment (the
// MUNC_STD_DIR / MUNC_CACHE_DIR variables) when left empty.
type Compiler struct {
	StdDir   string
	CacheDir string
	Debug    bool
}

// resolveStdDir returns the configured standard library directory, a
// path from MUNC_STD_DIR, or a "std" directory next to the binary.
func (c *Compiler) resolveStdDir() string {
	if c.StdDir != "" {
		return c.StdDir
	}
	if v := os.Getenv("MUNC_STD_DIR"); v != "" {
		return v
	}
	if exe, err := os.Executable(); err == nil {
		if dir := filepath.Join(filepath.Dir(exe), "std"); dirExists(dir) {
			return dir
		}
	}
	return "std"
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// CompileToWAT runs every stage of the pipeline up to and including
// codegen, returning the emitted WAT module text.
func (c *Compiler) CompileToWAT(inputPath string) (string, error) {
	prog, err := resolve.Resolve(inputPath, c.resolveStdDir())
	if err != nil {
		return "", c.annotate(err)
	}
	res, err := sema.Check(prog)
	if err != nil {
		return "", c.annotate(err)
	}
	wat, err := codegen.Generate(res)
	if err != nil {
		return "", c.annotate(err)
	}
	return wat, nil
}

// annotate wraps non-diag errors (should not normally occur, since every
// pipeline stage returns a *diag.Error) so --debug can still show a
// chain; diag errors pass through untouched since they already render.
func (c *Compiler) annotate(err error) error {
	if _, ok := err.(*diag.Error); ok {
		return err
	}
	return diag.Errorf(diag.IO, diag.Position{}, "%s", err)
}

// Compile compiles inputPath and writes the result to outputPath. The
// output extension selects the artifact (spec §6): ".wat" writes the
// text directly, anything else (canonically ".wasm") pipes the text
// through the external wat2wasm assembler.
func (c *Compiler) Compile(inputPath, outputPath string) error {
	wat, err := c.CompileToWAT(inputPath)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(outputPath), ".wat") {
		if err := os.WriteFile(outputPath, []byte(wat), 0644); err != nil {
			return diag.PathErrorf(diag.IO, outputPath, "%s", err)
		}
		return nil
	}

	return c.assemble(wat, outputPath)
}

// assemble shells out to wat2wasm (spec §5 "blocking process call with
// captured standard error"; its non-zero exit propagates as a compiler
// failure, per §6/§7).
func (c *Compiler) assemble(wat, outputPath string) error {
	cached, hit, err := c.cacheLookup(wat)
	if err != nil {
		return err
	}
	if hit {
		if err := os.WriteFile(outputPath, cached, 0644); err != nil {
			return diag.PathErrorf(diag.IO, outputPath, "%s", err)
		}
		return nil
	}

	tmp, err := os.CreateTemp("", "munc-*.wat")
	if err != nil {
		return diag.PathErrorf(diag.IO, outputPath, "creating temporary WAT file: %s", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(wat); err != nil {
		tmp.Close()
		return diag.PathErrorf(diag.IO, tmp.Name(), "%s", err)
	}
	tmp.Close()

	var stderr bytes.Buffer
	cmd := exec.Command("wat2wasm", tmp.Name(), "-o", outputPath)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return (&diag.Error{
				Kind:    diag.Assembler,
				Path:    outputPath,
				Message: strings.TrimSpace(stderr.String()),
				Wrapped: fmt.Errorf("wat2wasm exited with status %d", exitErr.ExitCode()),
			}).WithExitCode(exitErr.ExitCode())
		}
		return diag.PathErrorf(diag.IO, outputPath, "running wat2wasm: %s", err)
	}

	out, err := os.ReadFile(outputPath)
	if err == nil {
		c.cacheStore(wat, out)
	}
	return nil
}

// Run executes a compiled module's "main" export (spec §6 "run <wasm>").
// The host runtime itself is an external collaborator (spec §1); munc
// shells out to the wasmtime CLI exactly as it shells out to wat2wasm
// for assembly, rather than embedding a WASM VM.
func (c *Compiler) Run(wasmPath string) error {
	cmd := exec.Command("wasmtime", "run", "--invoke", "main", wasmPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return (&diag.Error{
				Kind:    diag.Assembler,
				Path:    wasmPath,
				Message: "wasmtime exited with a nonzero status",
				Wrapped: fmt.Errorf("exit status %d", exitErr.ExitCode()),
			}).WithExitCode(exitErr.ExitCode())
		}
		return diag.PathErrorf(diag.IO, wasmPath, "running wasmtime: %s", err)
	}
	return nil
}
