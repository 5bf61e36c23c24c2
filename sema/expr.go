package sema

import (
	"github.com/munlang/munc/ast"
)

// typer types expressions and statements within one function/method/
// constructor body (or the script-mode top-level block), carrying the
// substitution in effect for that body's own type parameters.
type typer struct {
	c              *checker
	scope          *scope
	sigma          ast.Subst
	expectedReturn ast.TypeExpr
	loopDepth      int
}

func (t *typer) resolveTypeArgs(args []ast.TypeExpr) []ast.TypeExpr {
	if len(args) == 0 {
		return nil
	}
	out := make([]ast.TypeExpr, len(args))
	for i, a := range args {
		out[i] = t.sigma.Apply(a)
	}
	return out
}

// typeOf computes the type of e, enqueueing any struct/function
// instantiation the expression triggers along the way (spec §4.2 step
// 3's on-demand instantiation).
func (t *typer) typeOf(e ast.Expr) (ast.TypeExpr, error) {
	switch x := e.(type) {
	case *ast.IntLit:
		return ast.Int, nil
	case *ast.BoolLit:
		return ast.Boolean, nil
	case *ast.NullLit:
		return ast.Wildcard, nil
	case *ast.Ident:
		ty, ok := t.scope.lookup(x.Name)
		if !ok {
			return ast.TypeExpr{}, errf(x.Pos, "undefined variable '%s'", x.Name)
		}
		return ty, nil
	case *ast.UnaryExpr:
		return t.typeUnary(x)
	case *ast.BinaryExpr:
		return t.typeBinary(x)
	case *ast.MemberAccess:
		return t.typeMemberAccess(x)
	case *ast.MethodCall:
		return t.typeMethodCall(x)
	case *ast.CallExpr:
		return t.typeCall(x)
	case *ast.ListLit:
		return t.typeListLit(x)
	default:
		return ast.TypeExpr{}, errf(e.Position(), "unsupported expression")
	}
}

func (t *typer) typeUnary(x *ast.UnaryExpr) (ast.TypeExpr, error) {
	xt, err := t.typeOf(x.X)
	if err != nil {
		return ast.TypeExpr{}, err
	}
	switch x.Op {
	case "!":
		if !xt.Equal(ast.Boolean) {
			return ast.TypeExpr{}, errf(x.Pos, "'!' requires boolean, got %s", xt)
		}
		return ast.Boolean, nil
	case "-":
		if !xt.Equal(ast.Int) {
			return ast.TypeExpr{}, errf(x.Pos, "unary '-' requires int, got %s", xt)
		}
		return ast.Int, nil
	default:
		return ast.TypeExpr{}, errf(x.Pos, "unknown unary operator '%s'", x.Op)
	}
}

func (t *typer) typeBinary(x *ast.BinaryExpr) (ast.TypeExpr, error) {
	lt, err := t.typeOf(x.Left)
	if err != nil {
		return ast.TypeExpr{}, err
	}
	rt, err := t.typeOf(x.Right)
	if err != nil {
		return ast.TypeExpr{}, err
	}
	switch x.Op {
	case "+", "-", "*", "/", "%":
		if !lt.Equal(ast.Int) || !rt.Equal(ast.Int) {
			return ast.TypeExpr{}, errf(x.Pos, "'%s' requires int operands, got %s and %s", x.Op, lt, rt)
		}
		return ast.Int, nil
	case "&&", "||":
		if !lt.Equal(ast.Boolean) || !rt.Equal(ast.Boolean) {
			return ast.TypeExpr{}, errf(x.Pos, "'%s' requires boolean operands, got %s and %s", x.Op, lt, rt)
		}
		return ast.Boolean, nil
	case "<", ">", "<=", ">=":
		if !lt.Equal(ast.Int) || !rt.Equal(ast.Int) {
			return ast.TypeExpr{}, errf(x.Pos, "'%s' requires int operands, got %s and %s", x.Op, lt, rt)
		}
		return ast.Boolean, nil
	case "==", "!=":
		if !t.c.assignable(lt, rt) && !t.c.assignable(rt, lt) {
			return ast.TypeExpr{}, errf(x.Pos, "cannot compare %s and %s", lt, rt)
		}
		return ast.Boolean, nil
	default:
		return ast.TypeExpr{}, errf(x.Pos, "unknown binary operator '%s'", x.Op)
	}
}

// receiverStructTemplate reports whether e is a bare identifier naming
// a struct template rather than a variable — the marker for a static
// member/method access (spec §4.2/§4.3's "static access" form).
func (t *typer) receiverStructTemplate(e ast.Expr) (*ast.StructDecl, bool) {
	id, ok := e.(*ast.Ident)
	if !ok {
		return nil, false
	}
	if _, isVar := t.scope.lookup(id.Name); isVar {
		return nil, false
	}
	sd, ok := t.c.structs[id.Name]
	return sd, ok
}

func (t *typer) typeMemberAccess(x *ast.MemberAccess) (ast.TypeExpr, error) {
	if sd, ok := t.receiverStructTemplate(x.Object); ok {
		for _, sf := range sd.StaticFields {
			if sf.Name == x.Field {
				x.IsStatic = true
				x.Resolved = ast.TypeExpr{Name: sd.Name}
				return sf.Type, nil
			}
		}
		return ast.TypeExpr{}, errf(x.Pos, "'%s' has no static field '%s'", sd.Name, x.Field)
	}

	ot, err := t.typeOf(x.Object)
	if err != nil {
		return ast.TypeExpr{}, err
	}
	sd, ok := t.c.structs[ot.Name]
	if !ok {
		return ast.TypeExpr{}, errf(x.Pos, "%s has no fields", ot)
	}
	fieldSigma := ast.Subst{}.Extend(sd.TypeParams, ot.Params)
	for _, f := range sd.Fields {
		if f.Name == x.Field {
			x.Resolved = ot
			return fieldSigma.Apply(f.Type), nil
		}
	}
	return ast.TypeExpr{}, errf(x.Pos, "'%s' has no field '%s'", sd.Name, x.Field)
}

func (t *typer) typeMethodCall(x *ast.MethodCall) (ast.TypeExpr, error) {
	typeArgs := t.resolveTypeArgs(x.MethodTArgs)

	var sd *ast.StructDecl
	var structArgs []ast.TypeExpr
	if cand, ok := t.receiverStructTemplate(x.Receiver); ok {
		sd = cand
		x.IsStatic = true
		x.Resolved = ast.TypeExpr{Name: sd.Name}
	} else {
		rt, err := t.typeOf(x.Receiver)
		if err != nil {
			return ast.TypeExpr{}, err
		}
		cand, ok := t.c.structs[rt.Name]
		if !ok {
			return ast.TypeExpr{}, errf(x.Pos, "%s has no methods", rt)
		}
		sd = cand
		structArgs = rt.Params
		x.Resolved = rt
	}

	var method *ast.MethodDecl
	for _, m := range sd.Methods {
		if m.Name == x.Method && !m.IsConstructor(sd.Name) && m.IsStatic == (structArgs == nil) {
			method = m
			break
		}
	}
	if method == nil {
		for _, m := range sd.Methods {
			if m.Name == x.Method && !m.IsConstructor(sd.Name) {
				method = m
				break
			}
		}
	}
	if method == nil {
		return ast.TypeExpr{}, errf(x.Pos, "'%s' has no method '%s'", sd.Name, x.Method)
	}
	if len(typeArgs) != len(method.TypeParams) {
		return ast.TypeExpr{}, errf(x.Pos, "'%s' expects %d type argument(s), got %d", x.Method, len(method.TypeParams), len(typeArgs))
	}
	if len(x.Args) != len(method.Params) {
		return ast.TypeExpr{}, errf(x.Pos, "'%s' expects %d argument(s), got %d", x.Method, len(method.Params), len(x.Args))
	}

	structSigma := ast.Subst{}.Extend(sd.TypeParams, structArgs)
	methodSigma := structSigma.Extend(method.TypeParams, identitySubstArgs(method.TypeParams))

	for i, a := range x.Args {
		at, err := t.typeOf(a)
		if err != nil {
			return ast.TypeExpr{}, err
		}
		want := structSigma.Apply(method.Params[i].Type)
		if len(method.TypeParams) > 0 {
			want = methodSigma.Apply(method.Params[i].Type)
		}
		if !t.c.assignable(want, at) {
			return ast.TypeExpr{}, errf(a.Position(), "argument %d to '%s': expected %s, got %s", i+1, x.Method, want, at)
		}
	}

	if structArgs != nil {
		t.c.enqueueStruct(sd, structArgs)
	}

	ret := structSigma.Apply(method.ReturnType)
	if len(method.TypeParams) > 0 {
		ret = methodSigma.Apply(method.ReturnType)
	}
	return ret, nil
}

// identitySubstArgs builds the symbolic self-mapping used for a
// method's own type parameters: each name maps to the bare type
// variable of the same name. Method-level generics are not
// monomorphized per call site (see DESIGN.md) — they are checked
// structurally once per enclosing struct instantiation, with their own
// type parameters left as symbolic placeholders rather than resolved
// to the call's actual MethodTArgs.
func identitySubstArgs(names []string) []ast.TypeExpr {
	out := make([]ast.TypeExpr, len(names))
	for i, n := range names {
		out[i] = ast.TypeExpr{Name: n}
	}
	return out
}

func (t *typer) typeCall(x *ast.CallExpr) (ast.TypeExpr, error) {
	typeArgs := t.resolveTypeArgs(x.TypeArgs)

	if sd, ok := t.c.structs[x.Name]; ok {
		x.IsCtor = true
		if len(typeArgs) != len(sd.TypeParams) {
			return ast.TypeExpr{}, errf(x.Pos, "'%s' expects %d type argument(s), got %d", sd.Name, len(sd.TypeParams), len(typeArgs))
		}
		ctor := sd.Constructor()
		wantArgs := 0
		if ctor != nil {
			wantArgs = len(ctor.Params)
		}
		if len(x.Args) != wantArgs {
			return ast.TypeExpr{}, errf(x.Pos, "'%s' expects %d argument(s), got %d", sd.Name, wantArgs, len(x.Args))
		}
		sigma := ast.Subst{}.Extend(sd.TypeParams, typeArgs)
		for i, a := range x.Args {
			at, err := t.typeOf(a)
			if err != nil {
				return ast.TypeExpr{}, err
			}
			want := sigma.Apply(ctor.Params[i].Type)
			if !t.c.assignable(want, at) {
				return ast.TypeExpr{}, errf(a.Position(), "argument %d to '%s': expected %s, got %s", i+1, sd.Name, want, at)
			}
		}
		t.c.enqueueStruct(sd, typeArgs)
		return ast.TypeExpr{Name: sd.Name, Params: typeArgs}, nil
	}

	sig, ok := t.c.funcs[x.Name]
	if !ok {
		return ast.TypeExpr{}, errf(x.Pos, "undefined function '%s'", x.Name)
	}
	if len(typeArgs) != len(sig.typeParams) {
		return ast.TypeExpr{}, errf(x.Pos, "'%s' expects %d type argument(s), got %d", sig.name, len(sig.typeParams), len(typeArgs))
	}
	if len(x.Args) != len(sig.params) {
		return ast.TypeExpr{}, errf(x.Pos, "'%s' expects %d argument(s), got %d", sig.name, len(sig.params), len(x.Args))
	}
	fnSigma := ast.Subst{}.Extend(sig.typeParams, typeArgs)
	for i, a := range x.Args {
		at, err := t.typeOf(a)
		if err != nil {
			return ast.TypeExpr{}, err
		}
		want := fnSigma.Apply(sig.params[i])
		if !t.c.assignable(want, at) {
			return ast.TypeExpr{}, errf(a.Position(), "argument %d to '%s': expected %s, got %s", i+1, sig.name, want, at)
		}
	}
	if sig.decl != nil && len(sig.typeParams) > 0 {
		t.c.enqueueFunc(sig.decl, typeArgs)
	}
	return fnSigma.Apply(sig.ret), nil
}

func (t *typer) typeListLit(x *ast.ListLit) (ast.TypeExpr, error) {
	var elem ast.TypeExpr
	for i, e := range x.Elements {
		et, err := t.typeOf(e)
		if err != nil {
			return ast.TypeExpr{}, err
		}
		if i == 0 {
			elem = et
			continue
		}
		if !t.c.assignable(elem, et) && !t.c.assignable(et, elem) {
			return ast.TypeExpr{}, errf(e.Position(), "list elements must share a common type, got %s and %s", elem, et)
		}
	}
	x.ElemType = elem
	listDecl, ok := t.c.structs["list"]
	if ok {
		t.c.enqueueStruct(listDecl, []ast.TypeExpr{elem})
	}
	return ast.TypeExpr{Name: "list", Params: []ast.TypeExpr{elem}}, nil
}
