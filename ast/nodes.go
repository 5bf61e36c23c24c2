// Package ast defines the munc abstract syntax tree: declarations,
// statements and expressions produced by the parser (and by import
// inlining), mutated in place only by the semantic analyzer to attach
// resolved struct types to member/method nodes (see the Resolved
// fields below).
package ast

import "github.com/munlang/munc/internal/diag"

// Node is the interface implemented by every AST node.
type Node interface {
	node()
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt()
	Position() diag.Position
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr()
	Position() diag.Position
}

// Base carries the source position shared by every node.
type Base struct {
	Pos diag.Position
}

func (b Base) Position() diag.Position { return b.Pos }

// Program is the root of a merged AST: after import inlining it holds
// every import, function, struct and (script-mode) top-level statement
// in declaration order (spec §5 "Ordering guarantees").
type Program struct {
	Imports    []*ImportDecl
	Functions  []*FuncDecl
	Structs    []*StructDecl
	Statements []Stmt // only populated in script mode
	SourceFile string
}

func (p *Program) node() {}

// ImportDecl is either a host import (Source == "") or a file import
// (Source != "", consumed by the import resolver and never reaching
// the analyzer).
type ImportDecl struct {
	Base
	Source     string // relative file path; empty for host imports
	Module     string // host module namespace, e.g. "env"
	Name       string // host function name
	Params     []TypeExpr
	ReturnType TypeExpr
}

func (i *ImportDecl) node() {}
func (i *ImportDecl) stmt() {}

// Param is a (name, type) pair shared by functions and methods.
type Param struct {
	Name string
	Type TypeExpr
}

// FuncDecl is a free function declaration.
type FuncDecl struct {
	Base
	Name       string
	TypeParams []string
	Params     []Param
	ReturnType TypeExpr
	Body       []Stmt
}

func (f *FuncDecl) node() {}
func (f *FuncDecl) stmt() {}

// StaticField is a struct-level static field with a literal initializer
// (spec §3 Invariant 2: static-field initializers are literal int or
// boolean).
type StaticField struct {
	Name string
	Type TypeExpr
	Init Expr // *IntLit or *BoolLit
	Pos  diag.Position
}

// MethodDecl is a method (instance or static) of a StructDecl. A static
// method whose name equals the enclosing struct's name is the
// constructor (spec §3, §4.2, glossary).
type MethodDecl struct {
	Base
	Name       string
	TypeParams []string
	Params     []Param
	ReturnType TypeExpr
	Body       []Stmt
	IsStatic   bool
}

func (m *MethodDecl) node() {}

// IsConstructor reports whether m is the constructor of struct named sname.
func (m *MethodDecl) IsConstructor(sname string) bool {
	return m.IsStatic && m.Name == sname
}

// StructDecl is a structure declaration: type parameters, fields, static
// fields and methods.
type StructDecl struct {
	Base
	Name         string
	TypeParams   []string
	Fields       []Param
	StaticFields []StaticField
	Methods      []*MethodDecl
}

func (s *StructDecl) node() {}

// Constructor returns the struct's constructor method, or nil if absent.
func (s *StructDecl) Constructor() *MethodDecl {
	for _, m := range s.Methods {
		if m.IsConstructor(s.Name) {
			return m
		}
	}
	return nil
}

// ---- Statements ----

// VarDecl declares a local: `T name = expr;`.
type VarDecl struct {
	Base
	Name string
	Type TypeExpr
	Init Expr // nil only when Type is void
}

func (v *VarDecl) node() {}
func (v *VarDecl) stmt() {}

// VarAssign assigns to an already-declared local: `name = expr;`.
type VarAssign struct {
	Base
	Name  string
	Value Expr
}

func (v *VarAssign) node() {}
func (v *VarAssign) stmt() {}

// MemberAssignStmt assigns to an instance field: `obj.field = expr;`.
type MemberAssignStmt struct {
	Base
	Object Expr
	Field  string
	Value  Expr

	// Resolved is attached by the semantic analyzer: the concrete struct
	// type of Object.
	Resolved TypeExpr
}

func (m *MemberAssignStmt) node() {}
func (m *MemberAssignStmt) stmt() {}

// ReturnStmt is `return [expr];`.
type ReturnStmt struct {
	Base
	Value Expr // nil for a bare return
}

func (r *ReturnStmt) node() {}
func (r *ReturnStmt) stmt() {}

// ElsifClause is one elsif branch of an IfStmt.
type ElsifClause struct {
	Condition Expr
	Body      []Stmt
}

// IfStmt is if/elsif*/else.
type IfStmt struct {
	Base
	Condition    Expr
	Body         []Stmt
	ElsifClauses []ElsifClause
	ElseBody     []Stmt
}

func (i *IfStmt) node() {}
func (i *IfStmt) stmt() {}

// HasElse reports whether the if has any else/elsif tail.
func (i *IfStmt) HasElse() bool {
	return len(i.ElsifClauses) > 0 || len(i.ElseBody) > 0
}

// WhileStmt is `while (cond) { body } [else { elseBody }]`.
type WhileStmt struct {
	Base
	Condition Expr
	Body      []Stmt
	ElseBody  []Stmt
}

func (w *WhileStmt) node() {}
func (w *WhileStmt) stmt() {}

// UntilStmt is `until (cond) { body } [else { elseBody }]`: body runs
// while cond is false, the mirror image of while.
type UntilStmt struct {
	Base
	Condition Expr
	Body      []Stmt
	ElseBody  []Stmt
}

func (u *UntilStmt) node() {}
func (u *UntilStmt) stmt() {}

// ForStmt is `for (init; cond; post) { body } [else { elseBody }]`. Any
// of Init/Condition/Post may be nil.
type ForStmt struct {
	Base
	Init      Stmt
	Condition Expr
	Post      Stmt
	Body      []Stmt
	ElseBody  []Stmt
}

func (f *ForStmt) node() {}
func (f *ForStmt) stmt() {}

// DoStmt is `do [N] { body } [while (cond)] [else { elseBody }]`. Count
// is non-nil for the counted "do N" form; Condition is non-nil for the
// "do ... while(cond)" form. Both may be present (spec §4.3/§9: the
// counted phase runs first, then the conditional phase, sharing one
// break label); neither may be present, in which case body still runs
// exactly once (plain "do { ... }").
type DoStmt struct {
	Base
	Count     Expr // nil unless "do N { ... }"
	Condition Expr // nil unless "... while(cond)"
	Body      []Stmt
	ElseBody  []Stmt
}

func (d *DoStmt) node() {}
func (d *DoStmt) stmt() {}

// BreakStmt is `break;`.
type BreakStmt struct{ Base }

func (b *BreakStmt) node() {}
func (b *BreakStmt) stmt() {}

// ContinueStmt is `continue;`.
type ContinueStmt struct{ Base }

func (c *ContinueStmt) node() {}
func (c *ContinueStmt) stmt() {}

// ExprStmt is a bare expression used as a statement (e.g. a call for
// its side effect).
type ExprStmt struct {
	Base
	X Expr
}

func (e *ExprStmt) node() {}
func (e *ExprStmt) stmt() {}

// ---- Expressions ----

// IntLit is an integer literal.
type IntLit struct {
	Base
	Value int64
}

func (i *IntLit) node() {}
func (i *IntLit) expr() {}

// BoolLit is true/false.
type BoolLit struct {
	Base
	Value bool
}

func (b *BoolLit) node() {}
func (b *BoolLit) expr() {}

// NullLit is the null literal; its type is the wildcard pointer.
type NullLit struct{ Base }

func (n *NullLit) node() {}
func (n *NullLit) expr() {}

// Ident is a variable reference (including "this" inside methods).
type Ident struct {
	Base
	Name string
}

func (i *Ident) node() {}
func (i *Ident) expr() {}

// UnaryExpr is `!e` or `-e`.
type UnaryExpr struct {
	Base
	Op string
	X  Expr
}

func (u *UnaryExpr) node() {}
func (u *UnaryExpr) expr() {}

// BinaryExpr is a binary arithmetic/comparison/logical expression.
type BinaryExpr struct {
	Base
	Op    string
	Left  Expr
	Right Expr
}

func (b *BinaryExpr) node() {}
func (b *BinaryExpr) expr() {}

// MemberAccess is `obj.field`. For a static-field access the analyzer
// sets IsStatic and sets Resolved to the struct template name.
type MemberAccess struct {
	Base
	Object   Expr
	Field    string
	IsStatic bool
	// Resolved is the concrete struct type of Object (or, for a static
	// access, the struct template name alone with no type args).
	Resolved TypeExpr
}

func (m *MemberAccess) node() {}
func (m *MemberAccess) expr() {}

// MethodCall is `e.m<Ām>(args)` (instance) or `S.m<Ām>(args)` (static,
// receiver is a bare struct-template identifier).
type MethodCall struct {
	Base
	Receiver    Expr
	Method      string
	MethodTArgs []TypeExpr
	Args        []Expr

	// Resolved is attached by the analyzer: the receiver's concrete
	// struct type (for instance calls) or the struct template's own
	// name (for static calls, no type args attached here — MethodTArgs
	// already carries the call's own generic arguments).
	Resolved TypeExpr
	IsStatic bool
}

func (m *MethodCall) node() {}
func (m *MethodCall) expr() {}

// CallExpr is `f<Ā>(args)`, a free-function call or a struct
// constructor call (struct calls are distinguished by IsCtor, set by
// the analyzer once it resolves Name against the struct-template
// table).
type CallExpr struct {
	Base
	Name     string
	TypeArgs []TypeExpr
	Args     []Expr

	IsCtor bool // true once resolved to a constructor call
}

func (c *CallExpr) node() {}
func (c *CallExpr) expr() {}

// ListLit is `[e1, ..., eN]`, desugared by the analyzer/codegen into
// repeated calls into the `list<T>` standard-library struct.
type ListLit struct {
	Base
	Elements []Expr

	// ElemType is filled in by the analyzer once every element has been
	// unified to a common type T.
	ElemType TypeExpr
}

func (l *ListLit) node() {}
func (l *ListLit) expr() {}
