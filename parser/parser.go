// Package parser builds a munc AST from a token stream. Like the lexer,
// it is an external collaborator per spec §1 — the core of this
// repository is the semantic analyzer and code generator downstream of
// it — so the grammar here is a straightforward hand-written recursive
// descent parser, not a generated one.
package parser

import (
	"strconv"

	"github.com/munlang/munc/ast"
	"github.com/munlang/munc/internal/diag"
	"github.com/munlang/munc/lexer"
)

// Parser turns a flat token slice into a *ast.Program.
type Parser struct {
	toks []lexer.Token
	pos  int
}

// New creates a Parser over an already-tokenized source.
func New(toks []lexer.Token) *Parser {
	return &Parser{toks: toks}
}

// Parse tokenizes and parses filename's source in one step.
func Parse(filename, src string) (*ast.Program, error) {
	toks, err := lexer.Tokenize(filename, src)
	if err != nil {
		return nil, err
	}
	return New(toks).ParseProgram()
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) peekKind() lexer.Kind { return p.toks[p.pos].Kind }

func (p *Parser) peekAt(n int) lexer.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k lexer.Kind) (lexer.Token, error) {
	t := p.cur()
	if t.Kind != k {
		return t, diag.Errorf(diag.Parse, t.Pos, "Expected %s, got %s", k, t.Kind)
	}
	return p.advance(), nil
}

// save/restore implement the parser's backtracking: disambiguating
// "Type name = expr;" local declarations (which may start with an
// arbitrary generic type, e.g. "Box<int> b = ...;") from an
// expression-statement, assignment, or member-assignment that also
// starts with a bare identifier, and the lookaheads of
// looksLikeFuncDecl, looksLikeCallTypeArgs and parseForInit.
func (p *Parser) save() int       { return p.pos }
func (p *Parser) restore(mark int) { p.pos = mark }

// ParseProgram parses a full source file: an interleaving, in any
// order, of imports, function/struct declarations and, in script mode,
// top-level statements (spec §3 Invariant 7 — the analyzer rejects the case where
// both a `main` function and top-level statements are present; the
// parser itself stays permissive and lets that through).
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.peekKind() != lexer.EOF {
		switch p.peekKind() {
		case lexer.KwImport:
			imp, err := p.parseImport()
			if err != nil {
				return nil, err
			}
			prog.Imports = append(prog.Imports, imp)
		case lexer.KwStruct:
			sd, err := p.parseStruct()
			if err != nil {
				return nil, err
			}
			prog.Structs = append(prog.Structs, sd)
		default:
			if p.looksLikeFuncDecl() {
				fd, err := p.parseFuncDecl()
				if err != nil {
					return nil, err
				}
				prog.Functions = append(prog.Functions, fd)
				continue
			}
			st, err := p.parseStmt()
			if err != nil {
				return nil, err
			}
			prog.Statements = append(prog.Statements, st)
		}
	}
	return prog, nil
}

// looksLikeFuncDecl decides, without consuming tokens, whether the
// upcoming declaration is "Type name (" or "Type name < ... > (" — a
// function declaration — as opposed to a top-level statement. Because a
// type's own "<...>" is only ever consumed immediately after the type's
// base name (inside parseType), and a function's type-param list can
// only follow the function's name, the two can't collide: once we've
// skipped past a well-formed type and a following identifier, seeing
// "(" or "<" settles it.
func (p *Parser) looksLikeFuncDecl() bool {
	mark := p.save()
	defer p.restore(mark)

	if _, err := p.parseType(); err != nil {
		return false
	}
	if p.peekKind() != lexer.Ident {
		return false
	}
	p.advance()
	switch p.peekKind() {
	case lexer.LParen:
		return true
	case lexer.LAngle:
		// Tentatively consume a type-param list; a function decl's
		// type-params are bare identifiers, never nested generics.
		p.advance()
		for p.peekKind() == lexer.Ident {
			p.advance()
			if p.peekKind() == lexer.Comma {
				p.advance()
				continue
			}
			break
		}
		if p.peekKind() != lexer.RAngle {
			return false
		}
		p.advance()
		return p.peekKind() == lexer.LParen
	default:
		return false
	}
}

// parseType parses a Type: Ident, optionally followed immediately by
// "<" Type ("," Type)* ">". Builtin atoms (int, boolean, void) are
// keywords; everything else is a struct name or in-scope type variable.
func (p *Parser) parseType() (ast.TypeExpr, error) {
	tok := p.cur()
	var name string
	switch tok.Kind {
	case lexer.KwInt:
		name = ast.TypeInt
		p.advance()
	case lexer.KwBoolean:
		name = ast.TypeBoolean
		p.advance()
	case lexer.KwVoid:
		name = ast.TypeVoid
		p.advance()
	case lexer.Ident:
		name = tok.Text
		p.advance()
	default:
		return ast.TypeExpr{}, diag.Errorf(diag.Parse, tok.Pos, "Expected a type, got %s", tok.Kind)
	}

	if p.peekKind() != lexer.LAngle {
		return ast.TypeExpr{Name: name}, nil
	}
	p.advance()
	var params []ast.TypeExpr
	for {
		t, err := p.parseType()
		if err != nil {
			return ast.TypeExpr{}, err
		}
		params = append(params, t)
		if p.peekKind() == lexer.Comma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RAngle); err != nil {
		return ast.TypeExpr{}, err
	}
	return ast.TypeExpr{Name: name, Params: params}, nil
}

func (p *Parser) parseTypeParamList() ([]string, error) {
	if p.peekKind() != lexer.LAngle {
		return nil, nil
	}
	p.advance()
	var names []string
	for {
		id, err := p.expect(lexer.Ident)
		if err != nil {
			return nil, err
		}
		names = append(names, id.Text)
		if p.peekKind() == lexer.Comma {
			p.advance()
			continue
		}
		break
	}
	_, err := p.expect(lexer.RAngle)
	return names, err
}

func (p *Parser) parseTypeArgList() ([]ast.TypeExpr, error) {
	if p.peekKind() != lexer.LAngle {
		return nil, nil
	}
	p.advance()
	var args []ast.TypeExpr
	for {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		args = append(args, t)
		if p.peekKind() == lexer.Comma {
			p.advance()
			continue
		}
		break
	}
	_, err := p.expect(lexer.RAngle)
	return args, err
}

func (p *Parser) parseParams() ([]ast.Param, error) {
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	var params []ast.Param
	if p.peekKind() != lexer.RParen {
		for {
			ty, err := p.parseType()
			if err != nil {
				return nil, err
			}
			name, err := p.expect(lexer.Ident)
			if err != nil {
				return nil, err
			}
			params = append(params, ast.Param{Name: name.Text, Type: ty})
			if p.peekKind() == lexer.Comma {
				p.advance()
				continue
			}
			break
		}
	}
	_, err := p.expect(lexer.RParen)
	return params, err
}

func (p *Parser) parseBlock() ([]ast.Stmt, error) {
	if _, err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for p.peekKind() != lexer.RBrace {
		if p.peekKind() == lexer.EOF {
			return nil, diag.Errorf(diag.Parse, p.cur().Pos, "Expected }, got EOF")
		}
		st, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
	p.advance()
	return stmts, nil
}

func (p *Parser) parseImport() (*ast.ImportDecl, error) {
	kw := p.advance() // "import"
	if p.peekKind() == lexer.StringLit {
		src := p.advance()
		_, err := p.expect(lexer.Semi)
		return &ast.ImportDecl{Base: baseAt(kw.Pos), Source: src.Text}, err
	}

	mod, err := p.expect(lexer.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Dot); err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	var params []ast.TypeExpr
	if p.peekKind() != lexer.RParen {
		for {
			ty, err := p.parseType()
			if err != nil {
				return nil, err
			}
			params = append(params, ty)
			if p.peekKind() == lexer.Comma {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Arrow); err != nil {
		return nil, err
	}
	ret, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semi); err != nil {
		return nil, err
	}
	return &ast.ImportDecl{
		Base:       baseAt(kw.Pos),
		Module:     mod.Text,
		Name:       name.Text,
		Params:     params,
		ReturnType: ret,
	}, nil
}

func (p *Parser) parseFuncDecl() (*ast.FuncDecl, error) {
	pos := p.cur().Pos
	ret, err := p.parseType()
	if err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.Ident)
	if err != nil {
		return nil, err
	}
	tparams, err := p.parseTypeParamList()
	if err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FuncDecl{
		Base:       baseAt(pos),
		Name:       name.Text,
		TypeParams: tparams,
		Params:     params,
		ReturnType: ret,
		Body:       body,
	}, nil
}

func (p *Parser) parseStruct() (*ast.StructDecl, error) {
	kw := p.advance() // "struct"
	name, err := p.expect(lexer.Ident)
	if err != nil {
		return nil, err
	}
	tparams, err := p.parseTypeParamList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}

	sd := &ast.StructDecl{Base: baseAt(kw.Pos), Name: name.Text, TypeParams: tparams}
	for p.peekKind() != lexer.RBrace {
		isStatic := false
		if p.peekKind() == lexer.KwStatic {
			p.advance()
			isStatic = true
		}

		// Constructor: a bare identifier matching the struct's own name,
		// directly followed by "(" — no separate return type, unlike a
		// method (spec §3/§4.2: the constructor is a static method whose
		// name equals the enclosing struct's name).
		if !isStatic && p.peekKind() == lexer.Ident && p.cur().Text == sd.Name && p.peekAt(1).Kind == lexer.LParen {
			ctorName := p.advance()
			params, err := p.parseParams()
			if err != nil {
				return nil, err
			}
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			sd.Methods = append(sd.Methods, &ast.MethodDecl{
				Base:       baseAt(ctorName.Pos),
				Name:       ctorName.Text,
				Params:     params,
				ReturnType: ast.TypeExpr{Name: sd.Name},
				Body:       body,
				IsStatic:   true,
			})
			continue
		}

		fieldMark := p.save()
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fname, err := p.expect(lexer.Ident)
		if err != nil {
			return nil, err
		}

		if isStatic || p.peekKind() == lexer.Assign || p.peekKind() == lexer.Semi {
			// Static or plain field: "Type name [= literal];"
			sf := ast.StaticField{Name: fname.Text, Type: ty, Pos: p.cur().Pos}
			if p.peekKind() == lexer.Assign {
				p.advance()
				init, err := p.parsePrimaryLiteral()
				if err != nil {
					return nil, err
				}
				sf.Init = init
			}
			if _, err := p.expect(lexer.Semi); err != nil {
				return nil, err
			}
			if isStatic {
				sd.StaticFields = append(sd.StaticFields, sf)
			} else {
				sd.Fields = append(sd.Fields, ast.Param{Name: fname.Text, Type: ty})
			}
			continue
		}

		if p.peekKind() == lexer.LParen || p.peekKind() == lexer.LAngle {
			// Method: "Type name [<Tparams>] (params) { body }"
			mtparams, err := p.parseTypeParamList()
			if err != nil {
				return nil, err
			}
			mparams, err := p.parseParams()
			if err != nil {
				return nil, err
			}
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			sd.Methods = append(sd.Methods, &ast.MethodDecl{
				Base:       baseAt(fname.Pos),
				Name:       fname.Text,
				TypeParams: mtparams,
				Params:     mparams,
				ReturnType: ty,
				Body:       body,
				IsStatic:   isStatic,
			})
			continue
		}

		p.restore(fieldMark)
		return nil, diag.Errorf(diag.Parse, p.cur().Pos, "Expected field or method declaration")
	}
	if _, err := p.expect(lexer.RBrace); err != nil {
		return nil, err
	}
	return sd, nil
}

// parsePrimaryLiteral parses the literal-only expressions allowed as
// static field initializers (spec §3 Invariant 2).
func (p *Parser) parsePrimaryLiteral() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Kind {
	case lexer.Int:
		return p.parsePrimary()
	case lexer.KwTrue, lexer.KwFalse:
		return p.parsePrimary()
	default:
		return nil, diag.Errorf(diag.Parse, tok.Pos, "static initializer must be a literal")
	}
}

// ---- Statements ----

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.peekKind() {
	case lexer.KwReturn:
		return p.parseReturn()
	case lexer.KwIf:
		return p.parseIf()
	case lexer.KwWhile:
		return p.parseWhile()
	case lexer.KwUntil:
		return p.parseUntil()
	case lexer.KwFor:
		return p.parseFor()
	case lexer.KwDo:
		return p.parseDo()
	case lexer.KwBreak:
		kw := p.advance()
		_, err := p.expect(lexer.Semi)
		return &ast.BreakStmt{Base: baseAt(kw.Pos)}, err
	case lexer.KwContinue:
		kw := p.advance()
		_, err := p.expect(lexer.Semi)
		return &ast.ContinueStmt{Base: baseAt(kw.Pos)}, err
	}

	if vd, ok, err := p.tryParseVarDecl(); err != nil {
		return nil, err
	} else if ok {
		return vd, nil
	}
	return p.parseSimpleStmt()
}

// tryParseVarDecl attempts "Type name [= expr];" using the one bit of
// backtracking the grammar needs (see save/restore above): an arbitrary
// generic type can lead a local declaration, so we can't tell a
// declaration from an assignment/expression-statement without trying.
func (p *Parser) tryParseVarDecl() (ast.Stmt, bool, error) {
	mark := p.save()
	pos := p.cur().Pos
	ty, err := p.parseType()
	if err != nil {
		p.restore(mark)
		return nil, false, nil
	}
	if p.peekKind() != lexer.Ident {
		p.restore(mark)
		return nil, false, nil
	}
	name := p.advance()
	switch p.peekKind() {
	case lexer.Assign:
		p.advance()
		init, err := p.parseExpr()
		if err != nil {
			return nil, false, err
		}
		if _, err := p.expect(lexer.Semi); err != nil {
			return nil, false, err
		}
		return &ast.VarDecl{Base: baseAt(pos), Name: name.Text, Type: ty, Init: init}, true, nil
	case lexer.Semi:
		p.advance()
		return &ast.VarDecl{Base: baseAt(pos), Name: name.Text, Type: ty}, true, nil
	default:
		p.restore(mark)
		return nil, false, nil
	}
}

// parseSimpleStmt handles the identifier/expression-led statements that
// tryParseVarDecl didn't claim: plain assignment, member assignment, and
// bare expression statements.
func (p *Parser) parseSimpleStmt() (ast.Stmt, error) {
	pos := p.cur().Pos
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peekKind() == lexer.Assign {
		p.advance()
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Semi); err != nil {
			return nil, err
		}
		switch e := expr.(type) {
		case *ast.Ident:
			return &ast.VarAssign{Base: baseAt(pos), Name: e.Name, Value: val}, nil
		case *ast.MemberAccess:
			return &ast.MemberAssignStmt{Base: baseAt(pos), Object: e.Object, Field: e.Field, Value: val}, nil
		default:
			return nil, diag.Errorf(diag.Parse, pos, "invalid assignment target")
		}
	}
	if _, err := p.expect(lexer.Semi); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Base: baseAt(pos), X: expr}, nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	kw := p.advance()
	if p.peekKind() == lexer.Semi {
		p.advance()
		return &ast.ReturnStmt{Base: baseAt(kw.Pos)}, nil
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semi); err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{Base: baseAt(kw.Pos), Value: val}, nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	kw := p.advance()
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	st := &ast.IfStmt{Base: baseAt(kw.Pos), Condition: cond, Body: body}
	for p.peekKind() == lexer.KwElsif {
		p.advance()
		if _, err := p.expect(lexer.LParen); err != nil {
			return nil, err
		}
		c, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		b, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		st.ElsifClauses = append(st.ElsifClauses, ast.ElsifClause{Condition: c, Body: b})
	}
	if p.peekKind() == lexer.KwElse {
		p.advance()
		b, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		st.ElseBody = b
	}
	return st, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	kw := p.advance()
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	st := &ast.WhileStmt{Base: baseAt(kw.Pos), Condition: cond, Body: body}
	if p.peekKind() == lexer.KwElse {
		p.advance()
		eb, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		st.ElseBody = eb
	}
	return st, nil
}

// parseUntil mirrors parseWhile: body runs while the condition is false.
func (p *Parser) parseUntil() (ast.Stmt, error) {
	kw := p.advance()
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	st := &ast.UntilStmt{Base: baseAt(kw.Pos), Condition: cond, Body: body}
	if p.peekKind() == lexer.KwElse {
		p.advance()
		eb, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		st.ElseBody = eb
	}
	return st, nil
}

// parseForInit/parseForPost parse the init and post clauses of a for
// loop, which are delimited by the loop's own semicolons rather than a
// statement-terminating one.
func (p *Parser) parseForInit() (ast.Stmt, error) {
	if p.peekKind() == lexer.Semi {
		return nil, nil
	}
	pos := p.cur().Pos
	mark := p.save()
	if ty, err := p.parseType(); err == nil && p.peekKind() == lexer.Ident {
		name := p.advance()
		if p.peekKind() == lexer.Assign {
			p.advance()
			init, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return &ast.VarDecl{Base: baseAt(pos), Name: name.Text, Type: ty, Init: init}, nil
		}
	}
	p.restore(mark)
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peekKind() == lexer.Assign {
		p.advance()
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		id, ok := expr.(*ast.Ident)
		if !ok {
			return nil, diag.Errorf(diag.Parse, pos, "invalid for-loop initializer")
		}
		return &ast.VarAssign{Base: baseAt(pos), Name: id.Name, Value: val}, nil
	}
	return &ast.ExprStmt{Base: baseAt(pos), X: expr}, nil
}

func (p *Parser) parseForPost() (ast.Stmt, error) {
	if p.peekKind() == lexer.RParen {
		return nil, nil
	}
	pos := p.cur().Pos
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peekKind() == lexer.Assign {
		p.advance()
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		id, ok := expr.(*ast.Ident)
		if !ok {
			return nil, diag.Errorf(diag.Parse, pos, "invalid for-loop post statement")
		}
		return &ast.VarAssign{Base: baseAt(pos), Name: id.Name, Value: val}, nil
	}
	return &ast.ExprStmt{Base: baseAt(pos), X: expr}, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	kw := p.advance()
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	init, err := p.parseForInit()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semi); err != nil {
		return nil, err
	}
	var cond ast.Expr
	if p.peekKind() != lexer.Semi {
		cond, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.Semi); err != nil {
		return nil, err
	}
	post, err := p.parseForPost()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	st := &ast.ForStmt{Base: baseAt(kw.Pos), Init: init, Condition: cond, Post: post, Body: body}
	if p.peekKind() == lexer.KwElse {
		p.advance()
		eb, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		st.ElseBody = eb
	}
	return st, nil
}

// parseDo covers every "do" form (spec §4.3/§9): counted "do N { ... }",
// conditional "do { ... } while (cond)", and the combination "do N
// { ... } while (cond)", all sharing one optional else tail.
func (p *Parser) parseDo() (ast.Stmt, error) {
	kw := p.advance()
	var count ast.Expr
	if p.peekKind() != lexer.LBrace {
		var err error
		count, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	st := &ast.DoStmt{Base: baseAt(kw.Pos), Count: count, Body: body}
	if p.peekKind() == lexer.KwWhile {
		p.advance()
		if _, err := p.expect(lexer.LParen); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		st.Condition = cond
	}
	if p.peekKind() == lexer.KwElse {
		p.advance()
		eb, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		st.ElseBody = eb
	}
	return st, nil
}

// ---- Expressions ----
//
// Precedence climbing over a small table: || (1), && (2), comparisons
// (5), + - (10), * / % (20), then unary ! - , then primary/postfix.
// "<" and ">" double as both the generic-argument brackets (in type
// position) and the comparison operators (in expression position); in
// expression position they're read back out of their LAngle/RAngle
// token kinds rather than Op.

func precedence(op string) int {
	switch op {
	case "||":
		return 1
	case "&&":
		return 2
	case "==", "!=", "<", ">", "<=", ">=":
		return 5
	case "+", "-":
		return 10
	case "*", "/", "%":
		return 20
	}
	return 0
}

func (p *Parser) binOpAt() (string, int, bool) {
	switch p.cur().Kind {
	case lexer.Op:
		t := p.cur().Text
		return t, precedence(t), true
	case lexer.LAngle:
		return "<", precedence("<"), true
	case lexer.RAngle:
		return ">", precedence(">"), true
	}
	return "", 0, false
}

func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseBinary(1)
}

func (p *Parser) parseBinary(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, prec, ok := p.binOpAt()
		if !ok || prec < minPrec {
			return left, nil
		}
		pos := p.cur().Pos
		p.advance()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Base: baseAt(pos), Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	tok := p.cur()
	if tok.Kind == lexer.Op && (tok.Text == "!" || tok.Text == "-") {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Base: baseAt(tok.Pos), Op: tok.Text, X: x}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary expression followed by any number of
// ".field" or ".method[<T>](args)" links, left-associatively.
func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peekKind() == lexer.Dot {
		dotPos := p.cur().Pos
		p.advance()
		name, err := p.expect(lexer.Ident)
		if err != nil {
			return nil, err
		}
		var targs []ast.TypeExpr
		if p.peekKind() == lexer.LAngle && p.looksLikeCallTypeArgs() {
			targs, err = p.parseTypeArgList()
			if err != nil {
				return nil, err
			}
		}
		if p.peekKind() == lexer.LParen || len(targs) > 0 {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			expr = &ast.MethodCall{Base: baseAt(dotPos), Receiver: expr, Method: name.Text, MethodTArgs: targs, Args: args}
			continue
		}
		expr = &ast.MemberAccess{Base: baseAt(dotPos), Object: expr, Field: name.Text}
	}
	return expr, nil
}

// looksLikeCallTypeArgs disambiguates "recv.m<T>(args)" from a
// comparison chain like "recv.m < a" by tentatively parsing a type-arg
// list and requiring it to be followed by "(", mirroring
// looksLikeFuncDecl's lookahead technique.
func (p *Parser) looksLikeCallTypeArgs() bool {
	mark := p.save()
	defer p.restore(mark)
	if _, err := p.parseTypeArgList(); err != nil {
		return false
	}
	return p.peekKind() == lexer.LParen
}

func (p *Parser) parseArgs() ([]ast.Expr, error) {
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	var args []ast.Expr
	if p.peekKind() != lexer.RParen {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, e)
			if p.peekKind() == lexer.Comma {
				p.advance()
				continue
			}
			break
		}
	}
	_, err := p.expect(lexer.RParen)
	return args, err
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Kind {
	case lexer.Int:
		p.advance()
		v, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return nil, diag.Errorf(diag.Parse, tok.Pos, "invalid integer literal %q", tok.Text)
		}
		return &ast.IntLit{Base: baseAt(tok.Pos), Value: v}, nil
	case lexer.KwTrue:
		p.advance()
		return &ast.BoolLit{Base: baseAt(tok.Pos), Value: true}, nil
	case lexer.KwFalse:
		p.advance()
		return &ast.BoolLit{Base: baseAt(tok.Pos), Value: false}, nil
	case lexer.KwNull:
		p.advance()
		return &ast.NullLit{Base: baseAt(tok.Pos)}, nil
	case lexer.LParen:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return e, nil
	case lexer.LBracket:
		return p.parseListLit()
	case lexer.Ident:
		return p.parseIdentOrCall()
	default:
		return nil, diag.Errorf(diag.Parse, tok.Pos, "unexpected token %s in expression", tok.Kind)
	}
}

func (p *Parser) parseListLit() (ast.Expr, error) {
	pos := p.cur().Pos
	p.advance() // "["
	var elems []ast.Expr
	if p.peekKind() != lexer.RBracket {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.peekKind() == lexer.Comma {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(lexer.RBracket); err != nil {
		return nil, err
	}
	return &ast.ListLit{Base: baseAt(pos), Elements: elems}, nil
}

// parseIdentOrCall parses a bare identifier, or a call form --
// "name(args)" or "name<T>(args)" -- left as a CallExpr for the
// analyzer to resolve against the function and struct-template tables
// (IsCtor is set once it resolves to a constructor).
func (p *Parser) parseIdentOrCall() (ast.Expr, error) {
	tok := p.advance()
	if p.peekKind() == lexer.LAngle && p.looksLikeCallTypeArgs() {
		targs, err := p.parseTypeArgList()
		if err != nil {
			return nil, err
		}
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &ast.CallExpr{Base: baseAt(tok.Pos), Name: tok.Text, TypeArgs: targs, Args: args}, nil
	}
	if p.peekKind() == lexer.LParen {
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &ast.CallExpr{Base: baseAt(tok.Pos), Name: tok.Text, Args: args}, nil
	}
	return &ast.Ident{Base: baseAt(tok.Pos), Name: tok.Text}, nil
}

func baseAt(pos diag.Position) ast.Base { return ast.Base{Pos: pos} }
