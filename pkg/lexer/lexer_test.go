package lexer

import (
	"testing"

	"github.com/decafc/decafc/pkg/diag"
	"github.com/decafc/decafc/pkg/token"
)

func scanAll(t *testing.T, src string) ([]token.Token, *diag.NullReporter) {
	t.Helper()
	reporter := diag.NewNullReporter()
	lx := New([]rune(src), 0, reporter)
	var toks []token.Token
	for {
		tk := lx.Next()
		toks = append(toks, tk)
		if tk.Type == token.EOF {
			break
		}
	}
	return toks, reporter
}

func types(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, tk := range toks {
		out[i] = tk.Type
	}
	return out
}

func TestKeywordsAreDistinguishedFromIdentifiers(t *testing.T) {
	toks, reporter := scanAll(t, "class Animal extends Base { }")
	if reporter.Count() != 0 {
		t.Fatalf("unexpected diagnostics: %v", reporter.Kinds())
	}
	want := []token.Type{token.KwClass, token.Ident, token.KwExtends, token.Ident, token.LBrace, token.RBrace, token.EOF}
	got := types(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
	if toks[1].Value != "Animal" || toks[3].Value != "Base" {
		t.Fatalf("identifier values not preserved: %q, %q", toks[1].Value, toks[3].Value)
	}
}

func TestIntAndDoubleLiterals(t *testing.T) {
	toks, reporter := scanAll(t, "42 3.14 6.022e23 1e-5")
	if reporter.Count() != 0 {
		t.Fatalf("unexpected diagnostics: %v", reporter.Kinds())
	}
	wantType := []token.Type{token.IntLiteral, token.DoubleLiteral, token.DoubleLiteral, token.DoubleLiteral, token.EOF}
	wantValue := []string{"42", "3.14", "6.022e23", "1e-5"}
	for i, w := range wantType {
		if toks[i].Type != w {
			t.Fatalf("token %d type = %v, want %v", i, toks[i].Type, w)
		}
	}
	for i, w := range wantValue {
		if toks[i].Value != w {
			t.Fatalf("token %d value = %q, want %q", i, toks[i].Value, w)
		}
	}
}

func TestStringLiteralWithEscapes(t *testing.T) {
	toks, reporter := scanAll(t, `"hello\nworld\t\"quoted\""`)
	if reporter.Count() != 0 {
		t.Fatalf("unexpected diagnostics: %v", reporter.Kinds())
	}
	if toks[0].Type != token.StringLiteral {
		t.Fatalf("token type = %v, want StringLiteral", toks[0].Type)
	}
	want := "hello\nworld\t\"quoted\""
	if toks[0].Value != want {
		t.Fatalf("decoded string = %q, want %q", toks[0].Value, want)
	}
}

func TestUnterminatedStringReportsAndStopsAtEOF(t *testing.T) {
	toks, reporter := scanAll(t, `"never closed`)
	if reporter.Count() == 0 {
		t.Fatalf("expected a diagnostic for an unterminated string")
	}
	found := false
	for _, k := range reporter.Kinds() {
		if k == diag.SyntaxError {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a SyntaxError diagnostic, got %v", reporter.Kinds())
	}
	if toks[0].Type != token.StringLiteral || toks[0].Value != "never closed" {
		t.Fatalf("unterminated string token = %+v", toks[0])
	}
}

func TestBadCharacterReportedAndSkipped(t *testing.T) {
	// '$' is not part of the grammar; Next() must report it and keep
	// scanning rather than aborting the whole stream.
	toks, reporter := scanAll(t, "int $ x")
	found := false
	for _, k := range reporter.Kinds() {
		if k == diag.SyntaxError {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a SyntaxError diagnostic for the bad character")
	}
	want := []token.Type{token.KwInt, token.Ident, token.EOF}
	got := types(toks)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestOperatorsAndTwoCharLookahead(t *testing.T) {
	toks, reporter := scanAll(t, "<= < >= > == = != !")
	if reporter.Count() != 0 {
		t.Fatalf("unexpected diagnostics: %v", reporter.Kinds())
	}
	want := []token.Type{
		token.Le, token.Lt, token.Ge, token.Gt,
		token.Eq, token.Assign, token.Ne, token.Not,
		token.EOF,
	}
	got := types(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	toks, reporter := scanAll(t, "int x; // trailing comment\n/* block\ncomment */ int y;")
	if reporter.Count() != 0 {
		t.Fatalf("unexpected diagnostics: %v", reporter.Kinds())
	}
	want := []token.Type{
		token.KwInt, token.Ident, token.Semi,
		token.KwInt, token.Ident, token.Semi,
		token.EOF,
	}
	got := types(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLineAndColumnTracking(t *testing.T) {
	toks, _ := scanAll(t, "int x;\ny")
	// "y" is on line 2, column 1.
	var yTok token.Token
	for _, tk := range toks {
		if tk.Type == token.Ident && tk.Value == "y" {
			yTok = tk
		}
	}
	if yTok.Pos.Line != 2 || yTok.Pos.Column != 1 {
		t.Fatalf("y's position = %+v, want line 2 column 1", yTok.Pos)
	}
}
