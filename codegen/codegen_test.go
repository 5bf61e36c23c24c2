package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/munlang/munc/parser"
	"github.com/munlang/munc/sema"
)

func compileSrc(t *testing.T, src string) string {
	t.Helper()
	prog, err := parser.Parse("test.mun", src)
	require.NoError(t, err)
	res, err := sema.Check(prog)
	require.NoError(t, err)
	out, err := Generate(res)
	require.NoError(t, err)
	return out
}

func TestGenerateArithmeticPrecedence(t *testing.T) {
	out := compileSrc(t, `
import env.write_int(int) -> void;

void main() {
	write_int(1 + 2 * 3);
	write_int((1 + 2) * 3);
}
`)
	require.Contains(t, out, "i32.mul")
	require.Contains(t, out, "i32.add")
	require.Contains(t, out, `(import "env" "write_int" (func $write_int (param i32)))`)
	require.Contains(t, out, `(export "main" (func $main))`)
}

func TestGenerateGenericStructMangling(t *testing.T) {
	out := compileSrc(t, `
struct Box<T> {
	T value;

	Box(T v) {
		this.value = v;
	}

	T get() {
		return this.value;
	}
}

import env.write_int(int) -> void;

void main() {
	Box<int> b = Box<int>(42);
	write_int(b.get());
}
`)
	require.Contains(t, out, "$Box_Box__int")
	require.Contains(t, out, "$Box_get__int")
}

func TestGenerateStructLayoutOffsets(t *testing.T) {
	out := compileSrc(t, `
struct Pair {
	int a;
	int b;

	Pair(int x, int y) {
		this.a = x;
		this.b = y;
	}
}

void main() {
	Pair p = Pair(1, 2);
}
`)
	require.Contains(t, out, "i32.const 8")
	require.Contains(t, out, "i32.store offset=0")
	require.Contains(t, out, "i32.store offset=4")
}

func TestGenerateDoCountedLoopUsesScratchCounter(t *testing.T) {
	out := compileSrc(t, `
void main() {
	int i = 0;
	do 3 {
		i = i + 1;
	}
}
`)
	require.Contains(t, out, "local.set $__struct_ptr")
	require.Contains(t, out, "br_if $head")
}

func TestGenerateDoOnceRunsBodyUnconditionally(t *testing.T) {
	out := compileSrc(t, `
import env.write_int(int) -> void;

void main() {
	do {
		write_int(1);
	}
	write_int(2);
}
`)
	require.Contains(t, out, "call $write_int")
	require.NotContains(t, out, "br_if $head")
	callIdx := strings.Index(out, "call $write_int")
	require.NotEqual(t, -1, callIdx)
	require.Less(t, strings.Index(out, "i32.const 1"), strings.Index(out, "i32.const 2"))
}

func TestGenerateIsDeterministic(t *testing.T) {
	src := `
struct Box<T> {
	T value;

	Box(T v) {
		this.value = v;
	}

	T get() {
		return this.value;
	}
}

void main() {
	Box<int> a = Box<int>(1);
	Box<boolean> b = Box<boolean>(true);
}
`
	first := compileSrc(t, src)
	second := compileSrc(t, src)
	require.Equal(t, first, second)
}

func TestGenerateSkipsTemplateIdentityInstantiation(t *testing.T) {
	out := compileSrc(t, `
struct Box<T> {
	T value;

	Box(T v) {
		this.value = v;
	}
}

void main() {
	Box<int> b = Box<int>(1);
}
`)
	require.NotContains(t, out, "(func $Box_Box (param $this i32) (param $v i32)")
	require.Contains(t, out, "$Box_Box__int")
}

func TestGenerateStaticFieldGlobal(t *testing.T) {
	out := compileSrc(t, `
struct Counter {
	static int total = 0;
	int value;

	Counter() {
		this.value = 0;
	}
}

void main() {
	Counter c = Counter();
}
`)
	require.Contains(t, out, `(global $Counter_total i32 (i32.const 0))`)
}

func TestGenerateScriptModeEntryPoint(t *testing.T) {
	out := compileSrc(t, `
int x = 1;
int y = x + 2;
`)
	require.Contains(t, out, "$__script_main")
	require.Contains(t, out, `(export "main" (func $__script_main))`)
}
