package sema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/munlang/munc/ast"
	"github.com/munlang/munc/parser"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := parser.Parse("test.mun", src)
	require.NoError(t, err)
	return prog
}

func TestCheckGenericStructInstantiation(t *testing.T) {
	prog := mustParse(t, `
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
	Box<int> b = Box<int>(5);
	int x = b.get();
}
`)
	res, err := Check(prog)
	require.NoError(t, err)
	require.True(t, res.HasMain)
	require.Len(t, res.StructInsts, 1)
	require.Equal(t, "Box", res.StructInsts[0].Name)
	require.Len(t, res.StructInsts[0].Args, 1)
	require.Equal(t, "int", res.StructInsts[0].Args[0].Name)

	var sawGet bool
	for _, mi := range res.MethodInsts {
		if mi.Method.Name == "get" {
			sawGet = true
		}
	}
	require.True(t, sawGet)
}

func TestCheckRedeclarationOfLocal(t *testing.T) {
	prog := mustParse(t, `
void main() {
	int a = 1;
	int a = 2;
}
`)
	_, err := Check(prog)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Redeclaration of 'a'")
}

func TestCheckScriptAndMainConflict(t *testing.T) {
	prog := mustParse(t, `
int x = 1;

void main() {
}
`)
	_, err := Check(prog)
	require.Error(t, err)
}

func TestCheckMainMustBeVoidNoParams(t *testing.T) {
	prog := mustParse(t, `
int main() {
	return 0;
}
`)
	_, err := Check(prog)
	require.Error(t, err)
}

func TestCheckBreakOutsideLoop(t *testing.T) {
	prog := mustParse(t, `
void main() {
	break;
}
`)
	_, err := Check(prog)
	require.Error(t, err)
}

func TestCheckMissingReturnPath(t *testing.T) {
	prog := mustParse(t, `
int bad() {
	if (true) {
		return 1;
	}
}

void main() {
}
`)
	_, err := Check(prog)
	require.Error(t, err)
}

func TestCheckUndefinedVariable(t *testing.T) {
	prog := mustParse(t, `
void main() {
	int x = y;
}
`)
	_, err := Check(prog)
	require.Error(t, err)
}

func TestCheckUndefinedFieldTypeReportsPosition(t *testing.T) {
	prog := mustParse(t, `
struct Box {
	Missing value;
}
`)
	_, err := Check(prog)
	require.Error(t, err)
	require.Contains(t, err.Error(), "undefined type 'Missing'")
	require.Contains(t, err.Error(), "test.mun:2:")
}

func TestCheckNullAssignableToStructPointer(t *testing.T) {
	prog := mustParse(t, `
struct Node {
	Node next;

	Node() {
		this.next = null;
	}
}

void main() {
	Node n = Node();
}
`)
	_, err := Check(prog)
	require.NoError(t, err)
}

func TestCheckScriptModeWithoutMain(t *testing.T) {
	prog := mustParse(t, `
int x = 1;
int y = x + 2;
`)
	res, err := Check(prog)
	require.NoError(t, err)
	require.False(t, res.HasMain)
}
