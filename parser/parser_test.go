package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/munlang/munc/ast"
)

func TestParseFuncDecl(t *testing.T) {
	src := `
int add(int a, int b) {
	return a + b;
}
`
	prog, err := Parse("test.mun", src)
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)

	fn := prog.Functions[0]
	require.Equal(t, "add", fn.Name)
	require.Equal(t, ast.Int, fn.ReturnType)
	require.Len(t, fn.Params, 2)
	require.Equal(t, "a", fn.Params[0].Name)
	require.Equal(t, ast.Int, fn.Params[0].Type)

	require.Len(t, fn.Body, 1)
	ret, ok := fn.Body[0].(*ast.ReturnStmt)
	require.True(t, ok)
	bin, ok := ret.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, "+", bin.Op)
}

func TestParseGenericFuncDecl(t *testing.T) {
	src := `
T identity<T>(T x) {
	return x;
}
`
	prog, err := Parse("test.mun", src)
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)
	fn := prog.Functions[0]
	require.Equal(t, []string{"T"}, fn.TypeParams)
	require.Equal(t, "T", fn.ReturnType.Name)
}

func TestParseStructWithFieldsStaticsAndMethods(t *testing.T) {
	src := `
struct Box<T> {
	T value;
	static int count = 0;

	Box(T v) {
		this.value = v;
	}

	T get() {
		return this.value;
	}
}
`
	prog, err := Parse("test.mun", src)
	require.NoError(t, err)
	require.Len(t, prog.Structs, 1)
	sd := prog.Structs[0]
	require.Equal(t, "Box", sd.Name)
	require.Equal(t, []string{"T"}, sd.TypeParams)
	require.Len(t, sd.Fields, 1)
	require.Equal(t, "value", sd.Fields[0].Name)
	require.Len(t, sd.StaticFields, 1)
	require.Equal(t, "count", sd.StaticFields[0].Name)
	require.Len(t, sd.Methods, 2)

	ctor := sd.Constructor()
	require.NotNil(t, ctor)
	require.True(t, ctor.IsStatic)
	require.Equal(t, "Box", ctor.Name)
}

func TestParseVarDeclVsAssignmentDisambiguation(t *testing.T) {
	src := `
int main() {
	int x = 5;
	x = x + 1;
	Box<int> b = Box<int>(9);
	b.value = 3;
	return x;
}
`
	prog, err := Parse("test.mun", src)
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)
	body := prog.Functions[0].Body
	require.Len(t, body, 5)

	vd, ok := body[0].(*ast.VarDecl)
	require.True(t, ok)
	require.Equal(t, "x", vd.Name)
	require.Equal(t, ast.Int, vd.Type)

	asn, ok := body[1].(*ast.VarAssign)
	require.True(t, ok)
	require.Equal(t, "x", asn.Name)

	bd, ok := body[2].(*ast.VarDecl)
	require.True(t, ok)
	require.Equal(t, "b", bd.Name)
	require.Equal(t, "Box", bd.Type.Name)
	require.Len(t, bd.Type.Params, 1)
	call, ok := bd.Init.(*ast.CallExpr)
	require.True(t, ok)
	require.Equal(t, "Box", call.Name)
	require.Len(t, call.TypeArgs, 1)

	mas, ok := body[3].(*ast.MemberAssignStmt)
	require.True(t, ok)
	require.Equal(t, "value", mas.Field)
}

func TestParseIfElsifElse(t *testing.T) {
	src := `
int classify(int x) {
	if (x < 0) {
		return 0;
	} elsif (x == 0) {
		return 1;
	} else {
		return 2;
	}
}
`
	prog, err := Parse("test.mun", src)
	require.NoError(t, err)
	fn := prog.Functions[0]
	ifs, ok := fn.Body[0].(*ast.IfStmt)
	require.True(t, ok)
	require.True(t, ifs.HasElse())
	require.Len(t, ifs.ElsifClauses, 1)
	require.Len(t, ifs.ElseBody, 1)

	cmp, ok := ifs.Condition.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, "<", cmp.Op)
}

func TestParseLoops(t *testing.T) {
	src := `
void run() {
	for (int i = 0; i < 10; i = i + 1) {
		continue;
	} else {
		break;
	}

	while (true) {
		break;
	}

	until (false) {
		break;
	}

	do 3 {
		break;
	} while (true) else {
		break;
	}
}
`
	prog, err := Parse("test.mun", src)
	require.NoError(t, err)
	fn := prog.Functions[0]
	require.Len(t, fn.Body, 4)

	forSt, ok := fn.Body[0].(*ast.ForStmt)
	require.True(t, ok)
	require.NotNil(t, forSt.Init)
	require.NotNil(t, forSt.Condition)
	require.NotNil(t, forSt.Post)
	require.Len(t, forSt.ElseBody, 1)

	_, ok = fn.Body[1].(*ast.WhileStmt)
	require.True(t, ok)

	_, ok = fn.Body[2].(*ast.UntilStmt)
	require.True(t, ok)

	doSt, ok := fn.Body[3].(*ast.DoStmt)
	require.True(t, ok)
	require.NotNil(t, doSt.Count)
	require.NotNil(t, doSt.Condition)
	require.Len(t, doSt.ElseBody, 1)
}

func TestParseMethodCallWithTypeArgsVsComparison(t *testing.T) {
	src := `
boolean run() {
	int a = box.get<int>(1);
	boolean b = a < 5;
	return b;
}
`
	prog, err := Parse("test.mun", src)
	require.NoError(t, err)
	fn := prog.Functions[0]

	vd := fn.Body[0].(*ast.VarDecl)
	mc, ok := vd.Init.(*ast.MethodCall)
	require.True(t, ok)
	require.Equal(t, "get", mc.Method)
	require.Len(t, mc.MethodTArgs, 1)
	require.Len(t, mc.Args, 1)

	vd2 := fn.Body[1].(*ast.VarDecl)
	cmp, ok := vd2.Init.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, "<", cmp.Op)
}

func TestParseListLit(t *testing.T) {
	src := `
void run() {
	int x = 0;
	list<int> xs = [1, 2, 3];
}
`
	prog, err := Parse("test.mun", src)
	require.NoError(t, err)
	fn := prog.Functions[0]
	vd := fn.Body[1].(*ast.VarDecl)
	ll, ok := vd.Init.(*ast.ListLit)
	require.True(t, ok)
	require.Len(t, ll.Elements, 3)
}

func TestParseImportForms(t *testing.T) {
	src := `
import "util.mun";
import env.print(int) -> void;

int main() {
	return 0;
}
`
	prog, err := Parse("test.mun", src)
	require.NoError(t, err)
	require.Len(t, prog.Imports, 2)
	require.Equal(t, "util.mun", prog.Imports[0].Source)
	require.Equal(t, "env", prog.Imports[1].Module)
	require.Equal(t, "print", prog.Imports[1].Name)
	require.Equal(t, ast.Void, prog.Imports[1].ReturnType)
}

func TestParseErrorPosition(t *testing.T) {
	src := `
int main() {
	return
}
`
	_, err := Parse("test.mun", src)
	require.Error(t, err)
	require.Contains(t, err.Error(), "test.mun:4:1:")
}
