package ast

import "strings"

// TypeExpr is the tree representation of a type: a name plus an ordered
// list of type parameters (e.g. "Box" with one param "int" for Box<int>,
// or "int" with no params for the builtin atom).
//
// Equality is structural (see Equal), not identity: two TypeExprs built
// from unrelated parses compare equal if their name/param trees match.
type TypeExpr struct {
	Name   string
	Params []TypeExpr
}

// Builtin atom names. These never resolve to a struct template.
const (
	TypeInt     = "int"
	TypeBoolean = "boolean"
	TypeVoid    = "void"
	// TypeWildcard is the inferred type of the null literal: "*". It is
	// assignable to any struct-typed target and to itself, never to
	// int/boolean/void.
	TypeWildcard = "*"
)

// Int, Boolean, Void, Wildcard are the canonical zero-param builtin atoms.
var (
	Int      = TypeExpr{Name: TypeInt}
	Boolean  = TypeExpr{Name: TypeBoolean}
	Void     = TypeExpr{Name: TypeVoid}
	Wildcard = TypeExpr{Name: TypeWildcard}
)

// IsBuiltinAtom reports whether t names one of the four built-in atoms.
func (t TypeExpr) IsBuiltinAtom() bool {
	switch t.Name {
	case TypeInt, TypeBoolean, TypeVoid, TypeWildcard:
		return len(t.Params) == 0
	}
	return false
}

// Equal reports structural equality: same name, same arity, and every
// parameter pairwise equal. It does not apply the assignability rules
// (wildcard-to-struct) in spec §4.1 — callers needing those use
// sema.AssignableTo instead.
func (t TypeExpr) Equal(other TypeExpr) bool {
	if t.Name != other.Name || len(t.Params) != len(other.Params) {
		return false
	}
	for i := range t.Params {
		if !t.Params[i].Equal(other.Params[i]) {
			return false
		}
	}
	return true
}

// String renders the type the way diagnostics do: "Box" or
// "Box<int,boolean>". Mangled WAT names use Mangle instead.
func (t TypeExpr) String() string {
	if len(t.Params) == 0 {
		return t.Name
	}
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return t.Name + "<" + strings.Join(parts, ",") + ">"
}

// Mangle renders the type the way §4.3 name-mangling joins type
// arguments: bare names joined with "_", recursing into nested params
// (so Box<Box<int>> mangles as Box_Box_int, matching the cascading
// substitution the spec calls the "linchpin" of cross-instantiation
// emission).
func (t TypeExpr) Mangle() string {
	if len(t.Params) == 0 {
		return t.Name
	}
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.Mangle()
	}
	return t.Name + "_" + strings.Join(parts, "_")
}

// Subst is a finite map from type-variable names to concrete TypeExprs.
// Substitutions compose left-to-right and are never cyclic by
// construction: a type variable never names itself in user source
// because every generic site is explicit in the surface syntax (no
// unannotated generic inference).
type Subst map[string]TypeExpr

// Apply recurses a substitution into a type tree (spec §4.1 subst(σ,τ)):
// if t has no parameters and its name is bound in σ, return the bound
// type; otherwise rebuild t with every parameter substituted.
func (s Subst) Apply(t TypeExpr) TypeExpr {
	if len(s) == 0 {
		return t
	}
	if len(t.Params) == 0 {
		if bound, ok := s[t.Name]; ok {
			return bound
		}
		return t
	}
	params := make([]TypeExpr, len(t.Params))
	for i, p := range t.Params {
		params[i] = s.Apply(p)
	}
	return TypeExpr{Name: t.Name, Params: params}
}

// Extend returns a new substitution with additional bindings layered on
// top of s (the caller's bindings win on key collision), without
// mutating s. Used to combine a struct's σ with a method's own
// type-param bindings.
func (s Subst) Extend(names []string, args []TypeExpr) Subst {
	out := make(Subst, len(s)+len(names))
	for k, v := range s {
		out[k] = v
	}
	for i, n := range names {
		if i < len(args) {
			out[n] = args[i]
		}
	}
	return out
}
