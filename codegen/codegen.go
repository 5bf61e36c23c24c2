// Package codegen lowers a semantically-checked program into a single
// WebAssembly text (WAT) module (spec §4.3). It consumes sema.Result
// and never mutates the AST; its own state (output buffer, label
// counter, current substitution) lives entirely on one generator value
// for the duration of one Generate call, mirroring the single-pass,
// single-owner emitter shape the teacher's own code generator uses.
package codegen

import (
	"fmt"
	"strings"

	"github.com/munlang/munc/ast"
	"github.com/munlang/munc/internal/diag"
	"github.com/munlang/munc/sema"
)

// loopFrame is one entry of the loop-nesting stack: the break and
// continue labels a break/continue statement inside the loop body
// branches to (spec §4.3 "Structured control flow").
type loopFrame struct {
	breakLabel    string
	continueLabel string
}

// generator is the single-pass WAT emitter. sb/indent mirror the
// teacher's codeGen.sb/codeGen.indent (compiler/codegen.go); sigma and
// loopFrames are munc-specific state the teacher's Go-source emitter
// has no equivalent of.
type generator struct {
	sb     strings.Builder
	indent int

	res     *sema.Result
	structs map[string]*ast.StructDecl

	sigma ast.Subst

	localOrder []string
	localSet   map[string]bool

	loopFrames []loopFrame
	labelSeq   int
}

// Generate emits the WAT module text for a fully checked program.
func Generate(res *sema.Result) (string, error) {
	g := &generator{res: res, structs: map[string]*ast.StructDecl{}}
	for _, sd := range res.Program.Structs {
		g.structs[sd.Name] = sd
	}

	g.writeln("(module")
	g.indent++

	for _, imp := range res.Program.Imports {
		g.writeHostImport(imp)
	}

	g.writeln(`(memory $mem 1)`)
	g.writeln(`(export "memory" (memory $mem))`)
	g.writeln(`(global $heap (mut i32) (i32.const 4))`)
	g.writeMalloc()
	g.writeStaticFieldGlobals()

	for _, si := range res.StructInsts {
		sd, ok := g.structs[si.Name]
		if !ok {
			return "", diag.Errorf(diag.Codegen, diag.Position{}, "instantiation of undeclared struct '%s'", si.Name)
		}
		if isTemplateIdentity(sd, si.Args) {
			continue
		}
		if err := g.writeStructInst(sd, si); err != nil {
			return "", err
		}
	}

	for _, fi := range res.FuncInsts {
		if err := g.writeFuncInst(fi); err != nil {
			return "", err
		}
	}

	if !res.HasMain {
		if err := g.writeScriptEntryPoint(res.Program.Statements); err != nil {
			return "", err
		}
	}

	if res.HasMain {
		g.writeln(`(export "main" (func $main))`)
	} else {
		g.writeln(`(export "main" (func $__script_main))`)
	}

	g.indent--
	g.writeln(")")
	return g.sb.String(), nil
}

// isTemplateIdentity reports whether args is exactly sd's own
// type-parameter names, in order — the as-declared template, which
// codegen never emits (spec §4.3 step 1 / "Instantiation filtering"). A
// non-generic struct has no template form: its empty-args instantiation
// is the concrete one and is always emitted.
func isTemplateIdentity(sd *ast.StructDecl, args []ast.TypeExpr) bool {
	if len(sd.TypeParams) == 0 || len(args) != len(sd.TypeParams) {
		return false
	}
	for i, a := range args {
		if len(a.Params) != 0 || a.Name != sd.TypeParams[i] {
			return false
		}
	}
	return true
}

func (g *generator) writeln(s string) {
	g.writef("%s\n", s)
}

func (g *generator) writef(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if line == "\n" {
		g.sb.WriteString(line)
		return
	}
	g.sb.WriteString(strings.Repeat("  ", g.indent))
	g.sb.WriteString(line)
}

func (g *generator) nextLabel() string {
	n := g.labelSeq
	g.labelSeq++
	return fmt.Sprintf("%d", n)
}

func (g *generator) writeHostImport(imp *ast.ImportDecl) {
	params := ""
	if len(imp.Params) > 0 {
		atoms := make([]string, len(imp.Params))
		for i := range imp.Params {
			atoms[i] = "i32"
		}
		params = " (param " + strings.Join(atoms, " ") + ")"
	}
	result := ""
	if !imp.ReturnType.Equal(ast.Void) {
		result = " (result i32)"
	}
	g.writeln(fmt.Sprintf(`(import "%s" "%s" (func $%s%s%s))`, imp.Module, imp.Name, imp.Name, params, result))
}

func (g *generator) writeMalloc() {
	g.writeln(`(func $malloc (param $n i32) (result i32)`)
	g.indent++
	g.writeln(`(local $ptr i32)`)
	g.writeln(`global.get $heap`)
	g.writeln(`local.set $ptr`)
	g.writeln(`global.get $heap`)
	g.writeln(`local.get $n`)
	g.writeln(`i32.add`)
	g.writeln(`global.set $heap`)
	g.writeln(`local.get $ptr`)
	g.indent--
	g.writeln(`)`)
	g.writeln(`(export "malloc" (func $malloc))`)
}

func (g *generator) writeStaticFieldGlobals() {
	for _, sd := range g.res.Program.Structs {
		for _, sf := range sd.StaticFields {
			g.writeln(fmt.Sprintf(`(global $%s_%s i32 (i32.const %d))`, sd.Name, sf.Name, literalIntValue(sf.Init)))
		}
	}
}

func literalIntValue(e ast.Expr) int64 {
	switch v := e.(type) {
	case *ast.IntLit:
		return v.Value
	case *ast.BoolLit:
		if v.Value {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// mangleName implements spec §4.3 "Name mangling":
// "${base}__${T1}_{T2}_…" when type-args are nonempty, else "$base".
func mangleName(base string, args []ast.TypeExpr) string {
	if len(args) == 0 {
		return "$" + base
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Mangle()
	}
	return "$" + base + "__" + strings.Join(parts, "_")
}

func methodBase(structName, methodName string) string {
	return structName + "_" + methodName
}

// fieldOffset returns the k-th field's byte offset (spec §3/§4.3:
// offset(field_i) = 4(i-1), 0-indexed here as 4*i).
func fieldOffset(sd *ast.StructDecl, field string) (int, bool) {
	for i, f := range sd.Fields {
		if f.Name == field {
			return i * 4, true
		}
	}
	return 0, false
}

func structSize(sd *ast.StructDecl) int {
	return 4 * len(sd.Fields)
}

// instArgsKey mirrors sema's instantiation key shape, used here only to
// correlate MethodInsts back to the StructInst currently being emitted.
func instArgsKey(name string, args []ast.TypeExpr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Mangle()
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

func (g *generator) methodsForInst(si sema.StructInst) []*ast.MethodDecl {
	key := instArgsKey(si.Name, si.Args)
	var out []*ast.MethodDecl
	for _, mi := range g.res.MethodInsts {
		if instArgsKey(mi.Struct.Name, mi.Struct.Args) == key {
			out = append(out, mi.Method)
		}
	}
	return out
}

func (g *generator) writeStructInst(sd *ast.StructDecl, si sema.StructInst) error {
	saved := g.sigma
	g.sigma = ast.Subst{}.Extend(sd.TypeParams, si.Args)
	defer func() { g.sigma = saved }()

	if ctor := sd.Constructor(); ctor != nil {
		if err := g.writeCtor(sd, si.Args, ctor); err != nil {
			return err
		}
	}
	for _, m := range g.methodsForInst(si) {
		if err := g.writeMethod(sd, si.Args, m); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) writeCtor(sd *ast.StructDecl, args []ast.TypeExpr, ctor *ast.MethodDecl) error {
	name := mangleName(methodBase(sd.Name, ctor.Name), args)

	var paramDecls []string
	paramDecls = append(paramDecls, "(param $this i32)")
	for _, p := range ctor.Params {
		paramDecls = append(paramDecls, fmt.Sprintf("(param $%s i32)", p.Name))
	}
	g.writeln(fmt.Sprintf("(func %s %s (result i32)", name, strings.Join(paramDecls, " ")))
	g.indent++

	g.localSet = map[string]bool{"this": true}
	for _, p := range ctor.Params {
		g.localSet[p.Name] = true
	}
	g.hoistLocals(ctor.Body)

	for _, st := range ctor.Body {
		if err := g.writeStmt(st); err != nil {
			g.indent--
			return err
		}
	}
	g.writeln(`local.get $this`)
	g.writeln(`return`)
	g.indent--
	g.writeln(`)`)
	return nil
}

func (g *generator) writeMethod(sd *ast.StructDecl, structArgs []ast.TypeExpr, m *ast.MethodDecl) error {
	name := mangleName(methodBase(sd.Name, m.Name), structArgs)

	var paramDecls []string
	if !m.IsStatic {
		paramDecls = append(paramDecls, "(param $this i32)")
	}
	for _, p := range m.Params {
		paramDecls = append(paramDecls, fmt.Sprintf("(param $%s i32)", p.Name))
	}
	retType := g.sigma.Apply(m.ReturnType)
	resultClause := ""
	if !retType.Equal(ast.Void) {
		resultClause = " (result i32)"
	}
	header := "(func " + name
	if len(paramDecls) > 0 {
		header += " " + strings.Join(paramDecls, " ")
	}
	header += resultClause
	g.writeln(header)
	g.indent++

	g.localSet = map[string]bool{}
	if !m.IsStatic {
		g.localSet["this"] = true
	}
	for _, p := range m.Params {
		g.localSet[p.Name] = true
	}
	g.hoistLocals(m.Body)

	for _, st := range m.Body {
		if err := g.writeStmt(st); err != nil {
			g.indent--
			return err
		}
	}
	if retType.Equal(ast.Void) {
		g.writeln(`return`)
	} else {
		g.writeln(`unreachable`)
	}
	g.indent--
	g.writeln(`)`)
	return nil
}

func (g *generator) writeFuncInst(fi sema.FuncInst) error {
	saved := g.sigma
	g.sigma = ast.Subst{}.Extend(fi.Decl.TypeParams, fi.Args)
	defer func() { g.sigma = saved }()

	name := mangleName(fi.Decl.Name, fi.Args)
	var paramDecls []string
	for _, p := range fi.Decl.Params {
		paramDecls = append(paramDecls, fmt.Sprintf("(param $%s i32)", p.Name))
	}
	retType := g.sigma.Apply(fi.Decl.ReturnType)
	resultClause := ""
	if !retType.Equal(ast.Void) {
		resultClause = " (result i32)"
	}
	header := "(func " + name
	if len(paramDecls) > 0 {
		header += " " + strings.Join(paramDecls, " ")
	}
	header += resultClause
	g.writeln(header)
	g.indent++

	g.localSet = map[string]bool{}
	for _, p := range fi.Decl.Params {
		g.localSet[p.Name] = true
	}
	g.hoistLocals(fi.Decl.Body)

	for _, st := range fi.Decl.Body {
		if err := g.writeStmt(st); err != nil {
			g.indent--
			return err
		}
	}
	if retType.Equal(ast.Void) {
		g.writeln(`return`)
	} else {
		g.writeln(`unreachable`)
	}
	g.indent--
	g.writeln(`)`)
	return nil
}

// writeScriptEntryPoint emits the top-level statements of a script-mode
// program as a synthetic void function, exported as "main" alongside
// every other emitted instantiation — a program with no declared main
// still needs one predictable exported entry point for the host
// runtime to call (glossary: "the statements form the module's entry
// point").
func (g *generator) writeScriptEntryPoint(stmts []ast.Stmt) error {
	g.sigma = ast.Subst{}
	g.writeln(`(func $__script_main`)
	g.indent++
	g.localSet = map[string]bool{}
	g.hoistLocals(stmts)
	for _, st := range stmts {
		if err := g.writeStmt(st); err != nil {
			g.indent--
			return err
		}
	}
	g.writeln(`return`)
	g.indent--
	g.writeln(`)`)
	return nil
}

// hoistLocals implements spec §4.3 "Locals hoisting": every unique
// VariableDeclaration name reachable from body, plus the two scratch
// locals, each declared once as an i32 local before the body is
// emitted. Names already in g.localSet (the function's own parameters,
// and "this") are never re-declared as locals.
func (g *generator) hoistLocals(body []ast.Stmt) {
	var names []string
	for _, vd := range ast.CollectVarDecls(body) {
		if g.localSet[vd.Name] {
			continue
		}
		g.localSet[vd.Name] = true
		names = append(names, vd.Name)
	}
	for _, scratch := range []string{"__struct_ptr", "__lit"} {
		if g.localSet[scratch] {
			continue
		}
		g.localSet[scratch] = true
		names = append(names, scratch)
	}
	g.localOrder = names
	for _, n := range names {
		g.writeln(fmt.Sprintf(`(local $%s i32)`, n))
	}
}
