// Package token defines the lexical tokens pkg/lexer produces and
// pkg/parser consumes: one Type enum, one Token struct, and a keyword
// table.
package token

import "github.com/decafc/decafc/pkg/source"

type Type int

const (
	EOF Type = iota
	Ident
	IntLiteral
	DoubleLiteral
	StringLiteral

	// Keywords
	KwClass
	KwInterface
	KwExtends
	KwImplements
	KwVoid
	KwInt
	KwDouble
	KwBool
	KwString
	KwNull
	KwThis
	KwNew
	KwNewArray
	KwPrint
	KwReadInteger
	KwReadLine
	KwWhile
	KwFor
	KwIf
	KwElse
	KwReturn
	KwBreak
	KwTrue
	KwFalse

	// Punctuation
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Semi
	Dot

	// Operators
	Plus
	Minus
	Star
	Slash
	Percent
	Assign
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	AndAnd
	OrOr
	Not
)

var Keywords = map[string]Type{
	"class":       KwClass,
	"interface":   KwInterface,
	"extends":     KwExtends,
	"implements":  KwImplements,
	"void":        KwVoid,
	"int":         KwInt,
	"double":      KwDouble,
	"bool":        KwBool,
	"string":      KwString,
	"null":        KwNull,
	"this":        KwThis,
	"new":         KwNew,
	"NewArray":    KwNewArray,
	"Print":       KwPrint,
	"ReadInteger": KwReadInteger,
	"ReadLine":    KwReadLine,
	"while":       KwWhile,
	"for":         KwFor,
	"if":          KwIf,
	"else":        KwElse,
	"return":      KwReturn,
	"break":       KwBreak,
	"true":        KwTrue,
	"false":       KwFalse,
}

// Token is one lexical unit: its Type, the literal text that produced
// it (only meaningful for Ident/*Literal), and its source position.
type Token struct {
	Type  Type
	Value string
	Pos   source.Pos
}

func (t Type) String() string {
	switch t {
	case EOF:
		return "end of file"
	case Ident:
		return "identifier"
	case IntLiteral:
		return "integer literal"
	case DoubleLiteral:
		return "double literal"
	case StringLiteral:
		return "string literal"
	default:
		for text, ty := range Keywords {
			if ty == t {
				return "'" + text + "'"
			}
		}
		return "token"
	}
}
