package codegen

import (
	"fmt"

	"github.com/munlang/munc/ast"
	"github.com/munlang/munc/internal/diag"
)

// writeExpr lowers e with push-value semantics: the instructions it
// emits leave exactly one i32 on the operand stack (spec §4.3
// "Expression lowering").
func (g *generator) writeExpr(e ast.Expr) error {
	switch x := e.(type) {
	case *ast.IntLit:
		g.writeln(fmt.Sprintf("i32.const %d", x.Value))
		return nil
	case *ast.BoolLit:
		v := 0
		if x.Value {
			v = 1
		}
		g.writeln(fmt.Sprintf("i32.const %d", v))
		return nil
	case *ast.NullLit:
		g.writeln("i32.const 0")
		return nil
	case *ast.Ident:
		g.writeln(fmt.Sprintf("local.get $%s", x.Name))
		return nil
	case *ast.UnaryExpr:
		return g.writeUnary(x)
	case *ast.BinaryExpr:
		return g.writeBinary(x)
	case *ast.MemberAccess:
		return g.writeMemberAccess(x)
	case *ast.MethodCall:
		return g.writeMethodCall(x)
	case *ast.CallExpr:
		return g.writeCallExpr(x)
	case *ast.ListLit:
		return g.writeListLit(x)
	default:
		return diag.Errorf(diag.Codegen, e.Position(), "unsupported expression in codegen")
	}
}

func (g *generator) writeUnary(x *ast.UnaryExpr) error {
	switch x.Op {
	case "-":
		g.writeln("i32.const 0")
		if err := g.writeExpr(x.X); err != nil {
			return err
		}
		g.writeln("i32.sub")
		return nil
	case "!":
		if err := g.writeExpr(x.X); err != nil {
			return err
		}
		g.writeln("i32.eqz")
		return nil
	default:
		return diag.Errorf(diag.Codegen, x.Pos, "unknown unary operator '%s'", x.Op)
	}
}

var binOpcodes = map[string]string{
	"+":  "i32.add",
	"-":  "i32.sub",
	"*":  "i32.mul",
	"/":  "i32.div_s",
	"%":  "i32.rem_s",
	"==": "i32.eq",
	"!=": "i32.ne",
	"<":  "i32.lt_s",
	"<=": "i32.le_s",
	">":  "i32.gt_s",
	">=": "i32.ge_s",
	"&&": "i32.and",
	"||": "i32.or",
}

// writeBinary lowers a binary expression. Both operands are always
// evaluated: the language has no short-circuit && / || (spec §4.3,
// §9 "Short-circuit semantics" — a deliberate choice, not an omission).
func (g *generator) writeBinary(x *ast.BinaryExpr) error {
	op, ok := binOpcodes[x.Op]
	if !ok {
		return diag.Errorf(diag.Codegen, x.Pos, "unknown binary operator '%s'", x.Op)
	}
	if err := g.writeExpr(x.Left); err != nil {
		return err
	}
	if err := g.writeExpr(x.Right); err != nil {
		return err
	}
	g.writeln(op)
	return nil
}

func (g *generator) writeMemberAccess(x *ast.MemberAccess) error {
	if x.IsStatic {
		g.writeln(fmt.Sprintf("global.get $%s_%s", x.Resolved.Name, x.Field))
		return nil
	}
	sd, ok := g.structs[x.Resolved.Name]
	if !ok {
		return diag.Errorf(diag.Codegen, x.Pos, "codegen invariant violated: unknown struct '%s'", x.Resolved.Name)
	}
	offset, ok := fieldOffset(sd, x.Field)
	if !ok {
		return diag.Errorf(diag.Codegen, x.Pos, "codegen invariant violated: unknown field '%s'", x.Field)
	}
	if err := g.writeExpr(x.Object); err != nil {
		return err
	}
	g.writeln(fmt.Sprintf("i32.load offset=%d", offset))
	return nil
}

// resolveTypeArg substitutes any type-variable name appearing in a
// type-argument via the current σ before it's mangled, so calls inside
// a generic method's body lower to references to the caller's own
// concrete instantiation — spec §4.3's "linchpin of cross-instantiation
// emission".
func (g *generator) resolveTypeArgs(args []ast.TypeExpr) []ast.TypeExpr {
	if len(args) == 0 {
		return nil
	}
	out := make([]ast.TypeExpr, len(args))
	for i, a := range args {
		out[i] = g.sigma.Apply(a)
	}
	return out
}

func (g *generator) writeMethodCall(x *ast.MethodCall) error {
	sd, ok := g.structs[x.Resolved.Name]
	if !ok {
		return diag.Errorf(diag.Codegen, x.Pos, "codegen invariant violated: unknown struct '%s'", x.Resolved.Name)
	}
	if !x.IsStatic {
		if err := g.writeExpr(x.Receiver); err != nil {
			return err
		}
	}
	for _, a := range x.Args {
		if err := g.writeExpr(a); err != nil {
			return err
		}
	}
	structArgs := g.resolveTypeArgs(x.Resolved.Params)
	name := mangleName(methodBase(sd.Name, x.Method), structArgs)
	g.writeln(fmt.Sprintf("call %s", name))
	return nil
}

func (g *generator) writeCallExpr(x *ast.CallExpr) error {
	if x.IsCtor {
		sd, ok := g.structs[x.Name]
		if !ok {
			return diag.Errorf(diag.Codegen, x.Pos, "codegen invariant violated: unknown struct '%s'", x.Name)
		}
		typeArgs := g.resolveTypeArgs(x.TypeArgs)
		g.writeln(fmt.Sprintf("i32.const %d", structSize(sd)))
		g.writeln("call $malloc")
		g.writeln("local.set $__struct_ptr")
		g.writeln("local.get $__struct_ptr")
		for _, a := range x.Args {
			if err := g.writeExpr(a); err != nil {
				return err
			}
		}
		name := mangleName(methodBase(sd.Name, sd.Name), typeArgs)
		g.writeln(fmt.Sprintf("call %s", name))
		return nil
	}

	for _, a := range x.Args {
		if err := g.writeExpr(a); err != nil {
			return err
		}
	}
	typeArgs := g.resolveTypeArgs(x.TypeArgs)
	g.writeln(fmt.Sprintf("call %s", mangleName(x.Name, typeArgs)))
	return nil
}

// writeListLit lowers [e1,...,eN] into repeated list<T> constructor and
// append calls (spec §4.3 "List literal" row).
func (g *generator) writeListLit(x *ast.ListLit) error {
	elem := g.sigma.Apply(x.ElemType)
	ctorName := mangleName(methodBase("list", "list"), []ast.TypeExpr{elem})
	appendName := mangleName("list_append", []ast.TypeExpr{elem})

	listDecl, ok := g.structs["list"]
	if !ok {
		return diag.Errorf(diag.Codegen, x.Pos, "codegen invariant violated: 'list' struct not declared")
	}

	if err := g.writeListCtorCall(listDecl, ctorName, x.Elements[0]); err != nil {
		return err
	}
	g.writeln("local.set $__lit")
	for _, el := range x.Elements[1:] {
		if err := g.writeListCtorCall(listDecl, ctorName, el); err != nil {
			return err
		}
		g.writeln("local.set $__struct_ptr")
		g.writeln("local.get $__lit")
		g.writeln("local.get $__struct_ptr")
		g.writeln(fmt.Sprintf("call %s", appendName))
	}
	g.writeln("local.get $__lit")
	return nil
}

func (g *generator) writeListCtorCall(listDecl *ast.StructDecl, ctorName string, el ast.Expr) error {
	g.writeln(fmt.Sprintf("i32.const %d", structSize(listDecl)))
	g.writeln("call $malloc")
	g.writeln("local.set $__struct_ptr")
	g.writeln("local.get $__struct_ptr")
	if err := g.writeExpr(el); err != nil {
		return err
	}
	g.writeln(fmt.Sprintf("call %s", ctorName))
	return nil
}
