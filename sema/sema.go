// Package sema is the semantic analyzer: name resolution, structural
// type validation and on-demand generic instantiation (spec §4.2). It
// runs between import resolution and code generation and never runs
// the toolchain itself — it only ever reads the merged *ast.Program
// the resolver produced.
package sema

import (
	"github.com/munlang/munc/ast"
	"github.com/munlang/munc/internal/diag"
)

var zeroPos = diag.Position{}

func errf(pos diag.Position, format string, args ...any) error {
	return diag.Errorf(diag.Semantic, pos, format, args...)
}

// Result is everything codegen needs: the merged program plus every
// concrete instantiation the program actually uses (or, for
// non-generic declarations, the single implicit instantiation every
// such declaration always gets).
type Result struct {
	Program     *ast.Program
	StructInsts []StructInst
	FuncInsts   []FuncInst
	MethodInsts []MethodInst
	HasMain     bool
}

type job struct {
	isStruct bool
	sd       *ast.StructDecl
	fd       *ast.FuncDecl
	args     []ast.TypeExpr
}

type checker struct {
	structs map[string]*ast.StructDecl
	funcs   map[string]*funcSig

	structSeen map[string]bool
	funcSeen   map[string]bool

	structInsts []StructInst
	funcInsts   []FuncInst
	methodInsts []MethodInst

	queue []job
}

// Check runs the full semantic analysis pipeline over prog and returns
// the instantiation sets codegen needs, or the first error encountered
// (spec §4.2 "Failure model": analysis halts at the first error found,
// no partial compilation).
func Check(prog *ast.Program) (*Result, error) {
	c := &checker{
		structs:    map[string]*ast.StructDecl{},
		funcs:      map[string]*funcSig{},
		structSeen: map[string]bool{},
		funcSeen:   map[string]bool{},
	}

	if err := c.collect(prog); err != nil {
		return nil, err
	}
	if err := c.validateStructures(prog); err != nil {
		return nil, err
	}

	hasMain, err := c.checkMode(prog)
	if err != nil {
		return nil, err
	}

	for _, sd := range prog.Structs {
		if len(sd.TypeParams) == 0 {
			c.enqueueStruct(sd, nil)
		}
	}
	for _, fd := range prog.Functions {
		if len(fd.TypeParams) == 0 {
			c.enqueueFunc(fd, nil)
		}
	}
	if err := c.drain(); err != nil {
		return nil, err
	}

	return &Result{
		Program:     prog,
		StructInsts: c.structInsts,
		FuncInsts:   c.funcInsts,
		MethodInsts: c.methodInsts,
		HasMain:     hasMain,
	}, nil
}

// collect implements spec §4.2 step 1: register every struct/function
// name, rejecting collisions with the pinned "Redeclaration of '%s'"
// message (the same wording scenario 6 pins for local variables, reused
// here for top-level names since both are instances of one rule: a
// name may not be declared twice in the same namespace).
func (c *checker) collect(prog *ast.Program) error {
	for _, sd := range prog.Structs {
		if _, exists := c.structs[sd.Name]; exists {
			return errf(sd.Pos, "Redeclaration of '%s'", sd.Name)
		}
		c.structs[sd.Name] = sd
	}
	for _, imp := range prog.Imports {
		if _, exists := c.funcs[imp.Name]; exists {
			return errf(imp.Pos, "Redeclaration of '%s'", imp.Name)
		}
		c.funcs[imp.Name] = &funcSig{name: imp.Name, params: imp.Params, ret: imp.ReturnType}
	}
	for _, fd := range prog.Functions {
		if _, exists := c.funcs[fd.Name]; exists {
			return errf(fd.Pos, "Redeclaration of '%s'", fd.Name)
		}
		params := make([]ast.TypeExpr, len(fd.Params))
		for i, p := range fd.Params {
			params[i] = p.Type
		}
		c.funcs[fd.Name] = &funcSig{name: fd.Name, typeParams: fd.TypeParams, params: params, ret: fd.ReturnType, decl: fd}
	}
	return nil
}

// validateStructures implements spec §4.2 step 2: shallow, non-generic
// structural validation of every struct's fields, static-field
// initializer types, and every function/method signature's type
// references — all before any expression is typed.
func (c *checker) validateStructures(prog *ast.Program) error {
	for _, sd := range prog.Structs {
		vars := typeVarSet(sd.TypeParams)
		for _, f := range sd.Fields {
			if err := c.validateTypeRef(sd.Pos, f.Type, vars); err != nil {
				return err
			}
		}
		for _, sf := range sd.StaticFields {
			if err := c.validateTypeRef(sf.Pos, sf.Type, vars); err != nil {
				return err
			}
			if !literalMatchesType(sf.Init, sf.Type) {
				return errf(sf.Pos, "static field '%s' initializer does not match its declared type", sf.Name)
			}
		}
		for _, m := range sd.Methods {
			mvars := typeVarSet(sd.TypeParams, m.TypeParams)
			for _, p := range m.Params {
				if err := c.validateTypeRef(m.Pos, p.Type, mvars); err != nil {
					return err
				}
			}
			if !m.IsConstructor(sd.Name) {
				if err := c.validateTypeRef(m.Pos, m.ReturnType, mvars); err != nil {
					return err
				}
			}
		}
	}
	for _, imp := range prog.Imports {
		for _, p := range imp.Params {
			if err := c.validateTypeRef(imp.Pos, p, nil); err != nil {
				return err
			}
		}
		if err := c.validateTypeRef(imp.Pos, imp.ReturnType, nil); err != nil {
			return err
		}
	}
	for _, fd := range prog.Functions {
		fvars := typeVarSet(fd.TypeParams)
		for _, p := range fd.Params {
			if err := c.validateTypeRef(fd.Pos, p.Type, fvars); err != nil {
				return err
			}
		}
		if err := c.validateTypeRef(fd.Pos, fd.ReturnType, fvars); err != nil {
			return err
		}
	}
	return nil
}

func literalMatchesType(init ast.Expr, t ast.TypeExpr) bool {
	switch init.(type) {
	case *ast.IntLit:
		return t.Equal(ast.Int)
	case *ast.BoolLit:
		return t.Equal(ast.Boolean)
	default:
		return false
	}
}

// checkMode implements spec §4.2's script-vs-main validation: a program
// is either script mode (top-level statements, no main) or main mode (a
// declared, no-args, void-returning main function, no top-level
// statements) — never both.
func (c *checker) checkMode(prog *ast.Program) (bool, error) {
	mainSig, hasMain := c.funcs["main"]
	hasMain = hasMain && mainSig.decl != nil
	if hasMain && len(prog.Statements) > 0 {
		return false, errf(zeroPos, "a program may not mix top-level statements with a 'main' function")
	}
	if hasMain {
		md := mainSig.decl
		if !md.ReturnType.Equal(ast.Void) {
			return false, errf(md.Pos, "'main' must return void")
		}
		if len(md.Params) != 0 {
			return false, errf(md.Pos, "'main' must take no parameters")
		}
		return true, nil
	}
	sc := newScope()
	tp := &typer{c: c, scope: sc, sigma: ast.Subst{}, expectedReturn: ast.Void}
	if err := tp.checkBlock(prog.Statements); err != nil {
		return false, err
	}
	return false, nil
}

func (c *checker) enqueueStruct(sd *ast.StructDecl, args []ast.TypeExpr) {
	key := instKey(sd.Name, args)
	if c.structSeen[key] {
		return
	}
	c.structSeen[key] = true
	c.structInsts = append(c.structInsts, StructInst{Name: sd.Name, Args: args})
	c.queue = append(c.queue, job{isStruct: true, sd: sd, args: args})
}

func (c *checker) enqueueFunc(fd *ast.FuncDecl, args []ast.TypeExpr) {
	key := instKey(fd.Name, args)
	if c.funcSeen[key] {
		return
	}
	c.funcSeen[key] = true
	c.funcInsts = append(c.funcInsts, FuncInst{Name: fd.Name, Args: args, Decl: fd})
	c.queue = append(c.queue, job{isStruct: false, fd: fd, args: args})
}

// drain runs the on-demand instantiation fixed point (spec §4.2 step
// 3): processing a job may enqueue further jobs (a generic function
// calling another generic function, or constructing another struct),
// so the worklist keeps draining until no new instantiation is
// discovered. The queue is FIFO, seeded in AST declaration order, and
// every later job is enqueued in the order the checker walks the
// bodies, so two runs over the same program discover instantiations in
// the same order (spec §8's determinism property).
func (c *checker) drain() error {
	for len(c.queue) > 0 {
		j := c.queue[0]
		c.queue = c.queue[1:]
		if j.isStruct {
			if err := c.checkStructInstantiation(j.sd, j.args); err != nil {
				return err
			}
		} else {
			if err := c.checkFuncInstantiation(j.fd, j.args); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *checker) checkStructInstantiation(sd *ast.StructDecl, args []ast.TypeExpr) error {
	sigma := ast.Subst{}.Extend(sd.TypeParams, args)
	thisType := ast.TypeExpr{Name: sd.Name, Params: args}

	if ctor := sd.Constructor(); ctor != nil {
		sc := newScope()
		sc.declare("this", thisType)
		for _, p := range ctor.Params {
			sc.declare(p.Name, sigma.Apply(p.Type))
		}
		tp := &typer{c: c, scope: sc, sigma: sigma, expectedReturn: ast.Void}
		if err := tp.checkBlock(ctor.Body); err != nil {
			return err
		}
	}

	for _, m := range sd.Methods {
		if m.IsConstructor(sd.Name) {
			continue
		}
		sc := newScope()
		if !m.IsStatic {
			sc.declare("this", thisType)
		}
		for _, p := range m.Params {
			sc.declare(p.Name, sigma.Apply(p.Type))
		}
		expected := sigma.Apply(m.ReturnType)
		tp := &typer{c: c, scope: sc, sigma: sigma, expectedReturn: expected}
		if err := tp.checkBlock(m.Body); err != nil {
			return err
		}
		if !expected.Equal(ast.Void) && !pathsReturn(m.Body) {
			return errf(m.Pos, "'%s' does not return a value on every path", m.Name)
		}
		c.methodInsts = append(c.methodInsts, MethodInst{Struct: StructInst{Name: sd.Name, Args: args}, Method: m})
	}
	return nil
}

func (c *checker) checkFuncInstantiation(fd *ast.FuncDecl, args []ast.TypeExpr) error {
	sigma := ast.Subst{}.Extend(fd.TypeParams, args)
	sc := newScope()
	for _, p := range fd.Params {
		sc.declare(p.Name, sigma.Apply(p.Type))
	}
	expected := sigma.Apply(fd.ReturnType)
	tp := &typer{c: c, scope: sc, sigma: sigma, expectedReturn: expected}
	if err := tp.checkBlock(fd.Body); err != nil {
		return err
	}
	if !expected.Equal(ast.Void) && !pathsReturn(fd.Body) {
		return errf(fd.Pos, "'%s' does not return a value on every path", fd.Name)
	}
	return nil
}
