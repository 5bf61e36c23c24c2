package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/munlang/munc/internal/diag"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestResolveInlinesFileImports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.mun", `
int helper() {
	return 1;
}
`)
	entry := writeFile(t, dir, "main.mun", `
import "util.mun";

int main() {
	return helper();
}
`)

	prog, err := Resolve(entry, "")
	require.NoError(t, err)
	require.Len(t, prog.Functions, 2)
	require.Equal(t, "helper", prog.Functions[0].Name)
	require.Equal(t, "main", prog.Functions[1].Name)
}

func TestResolveBreaksImportCycles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.mun", `
import "b.mun";

int fromA() {
	return 1;
}
`)
	writeFile(t, dir, "b.mun", `
import "a.mun";

int fromB() {
	return 2;
}
`)
	entry := filepath.Join(dir, "a.mun")

	prog, err := Resolve(entry, "")
	require.NoError(t, err)
	names := []string{}
	for _, fn := range prog.Functions {
		names = append(names, fn.Name)
	}
	require.ElementsMatch(t, []string{"fromA", "fromB"}, names)
}

func TestResolveMissingImportIsImportError(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.mun", `
import "missing.mun";

int main() {
	return 0;
}
`)
	_, err := Resolve(entry, "")
	require.Error(t, err)
	var de *diag.Error
	require.ErrorAs(t, err, &de)
	require.Equal(t, diag.Import, de.Kind)
}

func TestResolveInlinesStdDirInSortedOrder(t *testing.T) {
	dir := t.TempDir()
	stdDir := filepath.Join(dir, "std")
	require.NoError(t, os.MkdirAll(stdDir, 0755))
	writeFile(t, stdDir, "zz.mun", `int fromZZ() { return 1; }`)
	writeFile(t, stdDir, "aa.mun", `int fromAA() { return 2; }`)

	entry := writeFile(t, dir, "main.mun", `
int main() {
	return 0;
}
`)

	prog, err := Resolve(entry, stdDir)
	require.NoError(t, err)
	require.Len(t, prog.Functions, 3)
	require.Equal(t, "fromAA", prog.Functions[0].Name)
	require.Equal(t, "fromZZ", prog.Functions[1].Name)
	require.Equal(t, "main", prog.Functions[2].Name)
}

func TestResolvePreservesHostImports(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.mun", `
import env.print(int) -> void;

void main() {
	print(1);
}
`)
	prog, err := Resolve(entry, "")
	require.NoError(t, err)
	require.Len(t, prog.Imports, 1)
	require.Equal(t, "print", prog.Imports[0].Name)
}
