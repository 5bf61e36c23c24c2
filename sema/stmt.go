package sema

import (
	"github.com/munlang/munc/ast"
)

// checkBlock type-checks every statement in stmts against one shared,
// flat scope (the scope belongs to the whole enclosing function body,
// not to this particular block — see scope's doc comment).
func (t *typer) checkBlock(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := t.checkStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (t *typer) checkStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.VarDecl:
		return t.checkVarDecl(st)
	case *ast.VarAssign:
		return t.checkVarAssign(st)
	case *ast.MemberAssignStmt:
		return t.checkMemberAssign(st)
	case *ast.ReturnStmt:
		return t.checkReturn(st)
	case *ast.IfStmt:
		return t.checkIf(st)
	case *ast.WhileStmt:
		return t.checkLoopBody(st.Condition, st.Body, st.ElseBody)
	case *ast.UntilStmt:
		return t.checkLoopBody(st.Condition, st.Body, st.ElseBody)
	case *ast.ForStmt:
		return t.checkFor(st)
	case *ast.DoStmt:
		return t.checkDo(st)
	case *ast.BreakStmt:
		if t.loopDepth == 0 {
			return errf(st.Pos, "'break' outside of a loop")
		}
		return nil
	case *ast.ContinueStmt:
		if t.loopDepth == 0 {
			return errf(st.Pos, "'continue' outside of a loop")
		}
		return nil
	case *ast.ExprStmt:
		_, err := t.typeOf(st.X)
		return err
	default:
		return errf(s.Position(), "unsupported statement")
	}
}

func (t *typer) checkVarDecl(st *ast.VarDecl) error {
	declType := t.sigma.Apply(st.Type)
	if st.Init == nil && !declType.Equal(ast.Void) {
		return errf(st.Pos, "'%s' of type %s must be initialized", st.Name, declType)
	}
	if st.Init != nil {
		it, err := t.typeOf(st.Init)
		if err != nil {
			return err
		}
		if !t.c.assignable(declType, it) {
			return errf(st.Pos, "cannot assign %s to '%s' of type %s", it, st.Name, declType)
		}
	}
	if !t.scope.declare(st.Name, declType) {
		return errf(st.Pos, "Redeclaration of '%s'", st.Name)
	}
	return nil
}

func (t *typer) checkVarAssign(st *ast.VarAssign) error {
	target, ok := t.scope.lookup(st.Name)
	if !ok {
		return errf(st.Pos, "undefined variable '%s'", st.Name)
	}
	vt, err := t.typeOf(st.Value)
	if err != nil {
		return err
	}
	if !t.c.assignable(target, vt) {
		return errf(st.Pos, "cannot assign %s to '%s' of type %s", vt, st.Name, target)
	}
	return nil
}

func (t *typer) checkMemberAssign(st *ast.MemberAssignStmt) error {
	ot, err := t.typeOf(st.Object)
	if err != nil {
		return err
	}
	sd, ok := t.c.structs[ot.Name]
	if !ok {
		return errf(st.Pos, "%s has no fields", ot)
	}
	fieldSigma := ast.Subst{}.Extend(sd.TypeParams, ot.Params)
	var fieldType ast.TypeExpr
	found := false
	for _, f := range sd.Fields {
		if f.Name == st.Field {
			fieldType = fieldSigma.Apply(f.Type)
			found = true
			break
		}
	}
	if !found {
		return errf(st.Pos, "'%s' has no field '%s'", sd.Name, st.Field)
	}
	vt, err := t.typeOf(st.Value)
	if err != nil {
		return err
	}
	if !t.c.assignable(fieldType, vt) {
		return errf(st.Pos, "cannot assign %s to field '%s' of type %s", vt, st.Field, fieldType)
	}
	st.Resolved = ot
	return nil
}

func (t *typer) checkReturn(st *ast.ReturnStmt) error {
	if st.Value == nil {
		if !t.expectedReturn.Equal(ast.Void) {
			return errf(st.Pos, "missing return value, expected %s", t.expectedReturn)
		}
		return nil
	}
	vt, err := t.typeOf(st.Value)
	if err != nil {
		return err
	}
	if !t.c.assignable(t.expectedReturn, vt) {
		return errf(st.Pos, "cannot return %s, expected %s", vt, t.expectedReturn)
	}
	return nil
}

func (t *typer) checkIf(st *ast.IfStmt) error {
	ct, err := t.typeOf(st.Condition)
	if err != nil {
		return err
	}
	if !ct.Equal(ast.Boolean) {
		return errf(st.Pos, "if condition must be boolean, got %s", ct)
	}
	if err := t.checkBlock(st.Body); err != nil {
		return err
	}
	for _, ec := range st.ElsifClauses {
		ect, err := t.typeOf(ec.Condition)
		if err != nil {
			return err
		}
		if !ect.Equal(ast.Boolean) {
			return errf(st.Pos, "elsif condition must be boolean, got %s", ect)
		}
		if err := t.checkBlock(ec.Body); err != nil {
			return err
		}
	}
	return t.checkBlock(st.ElseBody)
}

// checkLoopBody type-checks a while/until's condition and bodies,
// tracking loop depth for break/continue validation.
func (t *typer) checkLoopBody(cond ast.Expr, body, elseBody []ast.Stmt) error {
	ct, err := t.typeOf(cond)
	if err != nil {
		return err
	}
	if !ct.Equal(ast.Boolean) {
		return errf(cond.Position(), "loop condition must be boolean, got %s", ct)
	}
	t.loopDepth++
	err = t.checkBlock(body)
	t.loopDepth--
	if err != nil {
		return err
	}
	return t.checkBlock(elseBody)
}

func (t *typer) checkFor(st *ast.ForStmt) error {
	if st.Init != nil {
		if err := t.checkStmt(st.Init); err != nil {
			return err
		}
	}
	if st.Condition != nil {
		ct, err := t.typeOf(st.Condition)
		if err != nil {
			return err
		}
		if !ct.Equal(ast.Boolean) {
			return errf(st.Pos, "for condition must be boolean, got %s", ct)
		}
	}
	t.loopDepth++
	err := t.checkBlock(st.Body)
	if err == nil && st.Post != nil {
		err = t.checkStmt(st.Post)
	}
	t.loopDepth--
	if err != nil {
		return err
	}
	return t.checkBlock(st.ElseBody)
}

func (t *typer) checkDo(st *ast.DoStmt) error {
	if st.Count != nil {
		ct, err := t.typeOf(st.Count)
		if err != nil {
			return err
		}
		if !ct.Equal(ast.Int) {
			return errf(st.Pos, "'do' count must be int, got %s", ct)
		}
	}
	t.loopDepth++
	err := t.checkBlock(st.Body)
	t.loopDepth--
	if err != nil {
		return err
	}
	if st.Condition != nil {
		ct, err := t.typeOf(st.Condition)
		if err != nil {
			return err
		}
		if !ct.Equal(ast.Boolean) {
			return errf(st.Pos, "'do ... while' condition must be boolean, got %s", ct)
		}
	}
	return t.checkBlock(st.ElseBody)
}

// pathsReturn is a conservative structural check: true only when every
// control-flow path through stmts is guaranteed to hit a return. Loops
// never count as guaranteeing a return (their bodies may execute zero
// times, and break can exit early), matching the non-void
// path-completeness requirement (spec §4.2) without attempting dataflow
// analysis of loop trip counts.
func pathsReturn(stmts []ast.Stmt) bool {
	for _, s := range stmts {
		if stmtReturns(s) {
			return true
		}
	}
	return false
}

func stmtReturns(s ast.Stmt) bool {
	switch st := s.(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.IfStmt:
		if !st.HasElse() {
			return false
		}
		if !pathsReturn(st.Body) {
			return false
		}
		for _, ec := range st.ElsifClauses {
			if !pathsReturn(ec.Body) {
				return false
			}
		}
		return pathsReturn(st.ElseBody)
	default:
		return false
	}
}
