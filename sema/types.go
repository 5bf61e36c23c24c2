package sema

import (
	"strings"

	"github.com/munlang/munc/ast"
	"github.com/munlang/munc/internal/diag"
)

// StructInst is one concrete (struct, type-args) key the program uses.
type StructInst struct {
	Name string
	Args []ast.TypeExpr
}

func (s StructInst) Type() ast.TypeExpr { return ast.TypeExpr{Name: s.Name, Params: s.Args} }

// FuncInst is one concrete (function, type-args) key the program uses.
// Every non-generic function gets one with a nil Args, same as a
// non-generic struct gets an empty-args StructInst — both are seeded
// up front so the code generator always emits them even if never
// called from elsewhere (spec §4.2 step 1 registers these; §4.3's
// module skeleton depends on every declared function being present).
type FuncInst struct {
	Name string
	Args []ast.TypeExpr
	Decl *ast.FuncDecl
}

// MethodInst is one concrete (struct-inst, method) pairing to emit.
// Methods are emitted once per struct instantiation (spec §4.3: "one
// function per emitted (struct, type-args) ... and each of its
// methods"); a method's own type parameters, if it declares any, are
// checked structurally rather than separately monomorphized per call
// site (see DESIGN.md — a deliberately bounded simplification of a
// case the spec itself calls rare).
type MethodInst struct {
	Struct StructInst
	Method *ast.MethodDecl
}

// instKey renders a deterministic string key for an instantiation,
// using TypeExpr.Mangle so nested generics (Box<Box<int>>) key
// distinctly from their siblings.
func instKey(name string, args []ast.TypeExpr) string {
	if len(args) == 0 {
		return name + "()"
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Mangle()
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

// funcSig is the unified view of a callable name: either a declared
// function (Decl != nil) or a host import (Decl == nil).
type funcSig struct {
	name       string
	typeParams []string
	params     []ast.TypeExpr
	ret        ast.TypeExpr
	decl       *ast.FuncDecl
}

// scope is a single flat symbol table for one function/method/ctor
// body. It is intentionally not a stack of nested block scopes: the
// code generator hoists every local into one function-wide list (spec
// §4.3 "Locals hoisting" — "shadowing is not permitted by the grammar
// and therefore not handled"), so redeclaration is checked against the
// same flat namespace a variable's name will occupy at emission time.
type scope struct {
	vars map[string]ast.TypeExpr
}

func newScope() *scope {
	return &scope{vars: map[string]ast.TypeExpr{}}
}

func (s *scope) lookup(name string) (ast.TypeExpr, bool) {
	t, ok := s.vars[name]
	return t, ok
}

// declare adds a new binding, reporting whether name was already bound
// (the caller turns that into a "Redeclaration of '%s'" diagnostic).
func (s *scope) declare(name string, t ast.TypeExpr) bool {
	if _, exists := s.vars[name]; exists {
		return false
	}
	s.vars[name] = t
	return true
}

// isStructName reports whether name is a declared struct template.
func (c *checker) isStructName(name string) bool {
	_, ok := c.structs[name]
	return ok
}

// assignable implements spec §4.1: equal types, or a wildcard paired
// with any struct type.
func (c *checker) assignable(target, value ast.TypeExpr) bool {
	if target.Equal(value) {
		return true
	}
	if value.Name == ast.TypeWildcard && c.isStructName(target.Name) {
		return true
	}
	if target.Name == ast.TypeWildcard && c.isStructName(value.Name) {
		return true
	}
	return false
}

// validateTypeRef implements spec §4.2 step 2(b)/(c): every named type
// appearing in a struct/method signature must be a built-in, a
// declared struct template used at the correct arity, or a type
// variable in scope (the struct's own type-params, and for methods,
// the method's own type-params too). pos is the position of the
// declaration the type reference appears in — TypeExpr itself carries
// no position, so callers thread the nearest enclosing one through.
func (c *checker) validateTypeRef(pos diag.Position, t ast.TypeExpr, typeVars map[string]bool) error {
	if t.IsBuiltinAtom() {
		return nil
	}
	if typeVars[t.Name] {
		if len(t.Params) != 0 {
			return errf(pos, "type variable '%s' cannot take type arguments", t.Name)
		}
		return nil
	}
	sd, ok := c.structs[t.Name]
	if !ok {
		return errf(pos, "undefined type '%s'", t.Name)
	}
	if len(t.Params) != len(sd.TypeParams) {
		return errf(pos, "'%s' expects %d type argument(s), got %d", t.Name, len(sd.TypeParams), len(t.Params))
	}
	for _, p := range t.Params {
		if err := c.validateTypeRef(pos, p, typeVars); err != nil {
			return err
		}
	}
	return nil
}

func typeVarSet(names ...[]string) map[string]bool {
	out := map[string]bool{}
	for _, group := range names {
		for _, n := range group {
			out[n] = true
		}
	}
	return out
}
