package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileToWATWritesWatDirectly(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.mun")
	require.NoError(t, os.WriteFile(src, []byte(`
import env.write_int(int) -> void;

void main() {
	write_int(1 + 2 * 3);
}
`), 0644))

	c := &Compiler{StdDir: filepath.Join(dir, "nonexistent-std")}
	out := filepath.Join(dir, "main.wat")
	require.NoError(t, c.Compile(src, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(data), "i32.mul")
	require.Contains(t, string(data), `(export "main" (func $main))`)
}

func TestCompileToWATSurfacesSemanticError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.mun")
	require.NoError(t, os.WriteFile(src, []byte(`
void main() {
	int a = 1;
	int a = 2;
}
`), 0644))

	c := &Compiler{StdDir: filepath.Join(dir, "nonexistent-std")}
	_, err := c.CompileToWAT(src)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Redeclaration of 'a'")
}

func TestCompileToWATInlinesStandardLibrary(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.mun")
	require.NoError(t, os.WriteFile(src, []byte(`
import env.write_int(int) -> void;

void main() {
	list<int> xs = [1, 2, 3];
	write_int(xs.get(1));
	write_int(math.one);
}
`), 0644))

	c := &Compiler{StdDir: "../std"}
	wat, err := c.CompileToWAT(src)
	require.NoError(t, err)
	require.Contains(t, wat, "$list_list__int")
	require.Contains(t, wat, "$list_append__int")
	require.Contains(t, wat, "$list_get__int")
	require.Contains(t, wat, `(global $math_one i32 (i32.const 1))`)
}

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := &Compiler{CacheDir: dir}

	wat := "(module)"
	_, hit, err := c.cacheLookup(wat)
	require.NoError(t, err)
	require.False(t, hit)

	c.cacheStore(wat, []byte{0, 1, 2, 3})
	data, hit, err := c.cacheLookup(wat)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, []byte{0, 1, 2, 3}, data)
}
