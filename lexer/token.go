// Package lexer turns munc source text into a token stream. It is one
// of the pipeline's external collaborators (spec §1): the semantic
// analyzer and code generator are this repository's core, so the lexer
// stays deliberately small — just enough to hand the parser a clean,
// positioned token stream.
package lexer

import "github.com/munlang/munc/internal/diag"

// Kind classifies a Token.
type Kind int

const (
	EOF Kind = iota
	Ident
	Int
	// Keywords
	KwImport
	KwStruct
	KwStatic
	KwReturn
	KwIf
	KwElsif
	KwElse
	KwWhile
	KwUntil
	KwDo
	KwFor
	KwBreak
	KwContinue
	KwTrue
	KwFalse
	KwNull
	KwVoid
	KwInt
	KwBoolean
	// Punctuation
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	LAngle
	RAngle
	Comma
	Dot
	Semi
	Colon
	Arrow // ->
	Assign
	// Operators
	Op
	StringLit
)

var keywords = map[string]Kind{
	"import":   KwImport,
	"struct":   KwStruct,
	"static":   KwStatic,
	"return":   KwReturn,
	"if":       KwIf,
	"elsif":    KwElsif,
	"else":     KwElse,
	"while":    KwWhile,
	"until":    KwUntil,
	"do":       KwDo,
	"for":      KwFor,
	"break":    KwBreak,
	"continue": KwContinue,
	"true":     KwTrue,
	"false":    KwFalse,
	"null":     KwNull,
	"void":     KwVoid,
	"int":      KwInt,
	"boolean":  KwBoolean,
}

// Token is one lexical unit: a kind, its literal text, and its source
// position (shared diag.Position so downstream diagnostics carry the
// same line:col convention end to end).
type Token struct {
	Kind Kind
	Text string
	Pos  diag.Position
}

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Ident:
		return "identifier"
	case Int:
		return "integer"
	case StringLit:
		return "string"
	case LParen:
		return "("
	case RParen:
		return ")"
	case LBrace:
		return "{"
	case RBrace:
		return "}"
	case LBracket:
		return "["
	case RBracket:
		return "]"
	case LAngle:
		return "<"
	case RAngle:
		return ">"
	case Comma:
		return ","
	case Dot:
		return "."
	case Semi:
		return ";"
	case Colon:
		return ":"
	case Arrow:
		return "->"
	case Assign:
		return "="
	case Op:
		return "operator"
	default:
		for text, kind := range keywords {
			if kind == k {
				return text
			}
		}
		return "token"
	}
}
