package codegen

import (
	"fmt"

	"github.com/munlang/munc/ast"
	"github.com/munlang/munc/internal/diag"
)

func (g *generator) writeStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.VarDecl:
		return g.writeVarDecl(st)
	case *ast.VarAssign:
		return g.writeVarAssign(st)
	case *ast.MemberAssignStmt:
		return g.writeMemberAssign(st)
	case *ast.ReturnStmt:
		return g.writeReturn(st)
	case *ast.IfStmt:
		return g.writeIf(st)
	case *ast.WhileStmt:
		return g.writeWhile(st)
	case *ast.UntilStmt:
		return g.writeUntil(st)
	case *ast.ForStmt:
		return g.writeFor(st)
	case *ast.DoStmt:
		return g.writeDo(st)
	case *ast.BreakStmt:
		if len(g.loopFrames) == 0 {
			return diag.Errorf(diag.Codegen, st.Pos, "codegen invariant violated: break outside loop")
		}
		g.writeln(fmt.Sprintf("br $%s", g.loopFrames[len(g.loopFrames)-1].breakLabel))
		return nil
	case *ast.ContinueStmt:
		if len(g.loopFrames) == 0 {
			return diag.Errorf(diag.Codegen, st.Pos, "codegen invariant violated: continue outside loop")
		}
		g.writeln(fmt.Sprintf("br $%s", g.loopFrames[len(g.loopFrames)-1].continueLabel))
		return nil
	case *ast.ExprStmt:
		if err := g.writeExpr(st.X); err != nil {
			return err
		}
		g.writeln("drop")
		return nil
	default:
		return diag.Errorf(diag.Codegen, s.Position(), "unsupported statement in codegen")
	}
}

func (g *generator) writeVarDecl(st *ast.VarDecl) error {
	if st.Init == nil {
		return nil
	}
	if err := g.writeExpr(st.Init); err != nil {
		return err
	}
	g.writeln(fmt.Sprintf("local.set $%s", st.Name))
	return nil
}

func (g *generator) writeVarAssign(st *ast.VarAssign) error {
	if err := g.writeExpr(st.Value); err != nil {
		return err
	}
	g.writeln(fmt.Sprintf("local.set $%s", st.Name))
	return nil
}

func (g *generator) writeMemberAssign(st *ast.MemberAssignStmt) error {
	sd, ok := g.structs[st.Resolved.Name]
	if !ok {
		return diag.Errorf(diag.Codegen, st.Pos, "codegen invariant violated: unknown struct '%s'", st.Resolved.Name)
	}
	offset, ok := fieldOffset(sd, st.Field)
	if !ok {
		return diag.Errorf(diag.Codegen, st.Pos, "codegen invariant violated: unknown field '%s'", st.Field)
	}
	if err := g.writeExpr(st.Object); err != nil {
		return err
	}
	if err := g.writeExpr(st.Value); err != nil {
		return err
	}
	g.writeln(fmt.Sprintf("i32.store offset=%d", offset))
	return nil
}

func (g *generator) writeReturn(st *ast.ReturnStmt) error {
	if st.Value != nil {
		if err := g.writeExpr(st.Value); err != nil {
			return err
		}
	}
	g.writeln("return")
	return nil
}

func (g *generator) writeIf(st *ast.IfStmt) error {
	if err := g.writeExpr(st.Condition); err != nil {
		return err
	}
	g.writeln("if")
	g.indent++
	for _, s := range st.Body {
		if err := g.writeStmt(s); err != nil {
			return err
		}
	}
	g.indent--

	return g.writeIfTail(st.ElsifClauses, st.ElseBody)
}

// writeIfTail lowers the elsif chain as nested else/if blocks, closing
// with a plain else for the final branch (or none, if absent).
func (g *generator) writeIfTail(elsifs []ast.ElsifClause, elseBody []ast.Stmt) error {
	if len(elsifs) == 0 {
		if len(elseBody) == 0 {
			g.writeln("end")
			return nil
		}
		g.writeln("else")
		g.indent++
		for _, s := range elseBody {
			if err := g.writeStmt(s); err != nil {
				return err
			}
		}
		g.indent--
		g.writeln("end")
		return nil
	}

	g.writeln("else")
	g.indent++
	head := elsifs[0]
	if err := g.writeExpr(head.Condition); err != nil {
		return err
	}
	g.writeln("if")
	g.indent++
	for _, s := range head.Body {
		if err := g.writeStmt(s); err != nil {
			return err
		}
	}
	g.indent--
	if err := g.writeIfTail(elsifs[1:], elseBody); err != nil {
		return err
	}
	g.indent--
	g.writeln("end")
	return nil
}

func (g *generator) pushLoop(breakLabel, continueLabel string) {
	g.loopFrames = append(g.loopFrames, loopFrame{breakLabel: breakLabel, continueLabel: continueLabel})
}

func (g *generator) popLoop() {
	g.loopFrames = g.loopFrames[:len(g.loopFrames)-1]
}

// writeHeadTestedLoop emits the shared while/until/for skeleton (spec
// §4.3): three labelled blocks giving break/exit/continue targets, a
// loop testing cond at the head (inverted with i32.eqz when invert is
// set, as for while/for; branched on unchanged for "until") and an optional
// post statement run after the body, each iteration. The else body
// runs only when the loop falls out of the $exit block — never when a
// break short-circuits past it.
func (g *generator) writeHeadTestedLoop(cond ast.Expr, invert bool, body []ast.Stmt, post ast.Stmt, elseBody []ast.Stmt) error {
	n := g.nextLabel()
	breakL, exitL, headL, contL := "break"+n, "exit"+n, "head"+n, "continue"+n

	g.writeln("block $" + breakL)
	g.indent++
	g.writeln("block $" + exitL)
	g.indent++
	g.writeln("loop $" + headL)
	g.indent++

	if cond != nil {
		if err := g.writeExpr(cond); err != nil {
			return err
		}
		if invert {
			g.writeln("i32.eqz")
		}
		g.writeln("br_if $" + exitL)
	}

	g.writeln("block $" + contL)
	g.indent++
	g.pushLoop(breakL, contL)
	for _, s := range body {
		if err := g.writeStmt(s); err != nil {
			g.popLoop()
			return err
		}
	}
	g.popLoop()
	g.indent--
	g.writeln("end")

	if post != nil {
		if err := g.writeStmt(post); err != nil {
			return err
		}
	}
	g.writeln("br $" + headL)
	g.indent--
	g.writeln("end")
	g.indent--
	g.writeln("end")

	for _, s := range elseBody {
		if err := g.writeStmt(s); err != nil {
			return err
		}
	}
	g.indent--
	g.writeln("end")
	return nil
}

func (g *generator) writeWhile(st *ast.WhileStmt) error {
	return g.writeHeadTestedLoop(st.Condition, true, st.Body, nil, st.ElseBody)
}

func (g *generator) writeUntil(st *ast.UntilStmt) error {
	return g.writeHeadTestedLoop(st.Condition, false, st.Body, nil, st.ElseBody)
}

func (g *generator) writeFor(st *ast.ForStmt) error {
	if st.Init != nil {
		if err := g.writeStmt(st.Init); err != nil {
			return err
		}
	}
	return g.writeHeadTestedLoop(st.Condition, true, st.Body, st.Post, st.ElseBody)
}

// writeDo lowers do/do-N/do-while/do-N-while/do-once (spec §4.3): a
// counted phase (using the $__struct_ptr scratch as the countdown) runs
// first if Count is present, then a condition-tested phase if Condition
// is present, sharing one break label across both phases. When neither
// is present the body still runs exactly once (the implicit N=1 case),
// matching the original implementation's default.
func (g *generator) writeDo(st *ast.DoStmt) error {
	n := g.nextLabel()
	breakL := "break" + n

	g.writeln("block $" + breakL)
	g.indent++

	if st.Count != nil {
		headL := "head" + n + "c"
		contL := "continue" + n + "c"
		if err := g.writeExpr(st.Count); err != nil {
			return err
		}
		g.writeln("local.set $__struct_ptr")
		g.writeln("loop $" + headL)
		g.indent++
		g.writeln("block $" + contL)
		g.indent++
		g.pushLoop(breakL, contL)
		for _, s := range st.Body {
			if err := g.writeStmt(s); err != nil {
				g.popLoop()
				return err
			}
		}
		g.popLoop()
		g.indent--
		g.writeln("end")
		g.writeln("local.get $__struct_ptr")
		g.writeln("i32.const 1")
		g.writeln("i32.sub")
		g.writeln("local.set $__struct_ptr")
		g.writeln("local.get $__struct_ptr")
		g.writeln("br_if $" + headL)
		g.indent--
		g.writeln("end")
	}

	if st.Condition != nil {
		headL := "head" + n + "w"
		contL := "continue" + n + "w"
		g.writeln("loop $" + headL)
		g.indent++
		g.writeln("block $" + contL)
		g.indent++
		g.pushLoop(breakL, contL)
		for _, s := range st.Body {
			if err := g.writeStmt(s); err != nil {
				g.popLoop()
				return err
			}
		}
		g.popLoop()
		g.indent--
		g.writeln("end")
		if err := g.writeExpr(st.Condition); err != nil {
			return err
		}
		g.writeln("br_if $" + headL)
		g.indent--
		g.writeln("end")
	}

	if st.Count == nil && st.Condition == nil {
		contL := "continue" + n + "o"
		g.writeln("block $" + contL)
		g.indent++
		g.pushLoop(breakL, contL)
		for _, s := range st.Body {
			if err := g.writeStmt(s); err != nil {
				g.popLoop()
				return err
			}
		}
		g.popLoop()
		g.indent--
		g.writeln("end")
	}

	for _, s := range st.ElseBody {
		if err := g.writeStmt(s); err != nil {
			return err
		}
	}
	g.indent--
	g.writeln("end")
	return nil
}
