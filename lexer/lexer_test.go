package lexer

import (
	"testing"

	"github.com/ilc-lang/ilc/token"
)

func TestNextTokenBasics(t *testing.T) {
	input := `mut i32 x = 5 + 10
if x == 15 {
  return true
}
return 0
`
	tests := []struct {
		kind   token.Kind
		lexeme string
	}{
		{token.MUT, "mut"},
		{token.I32_TYPE, "i32"},
		{token.IDENT, "x"},
		{token.ASSIGN, "="},
		{token.NUMBER, "5"},
		{token.PLUS, "+"},
		{token.NUMBER, "10"},
		{token.NEWLINE, "\n"},
		{token.IF, "if"},
		{token.IDENT, "x"},
		{token.EQ, "=="},
		{token.NUMBER, "15"},
		{token.LBRACE, "{"},
		{token.NEWLINE, "\n"},
		{token.RETURN, "return"},
		{token.TRUE, "true"},
		{token.NEWLINE, "\n"},
		{token.RBRACE, "}"},
		{token.NEWLINE, "\n"},
		{token.RETURN, "return"},
		{token.NUMBER, "0"},
		{token.NEWLINE, "\n"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("test[%d]: unexpected error: %v", i, err)
		}
		if tok.Kind != tt.kind {
			t.Fatalf("test[%d]: kind wrong. expected=%s, got=%s", i, tt.kind, tok.Kind)
		}
		if tok.Lexeme != tt.lexeme {
			t.Fatalf("test[%d]: lexeme wrong. expected=%q, got=%q", i, tt.lexeme, tok.Lexeme)
		}
	}
}

func TestNegativeNumberLiteral(t *testing.T) {
	// After an operator, "-5" is a single signed literal.
	tokens, err := Tokenize("i32 x = -5\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"i32", "x", "=", "-5", "\n", ""}
	if len(tokens) != len(want) {
		t.Fatalf("token count mismatch: got %d, want %d", len(tokens), len(want))
	}
	if tokens[3].Lexeme != "-5" {
		t.Fatalf("expected signed literal \"-5\", got %q", tokens[3].Lexeme)
	}
}

func TestMinusAfterIdentIsOperator(t *testing.T) {
	// After an identifier, "-" cannot start a number literal: "x-5" is
	// subtraction, not "x" followed by a literal "-5".
	tokens, err := Tokenize("x - 5\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens[1].Kind != token.MINUS {
		t.Fatalf("expected MINUS, got %s %q", tokens[1].Kind, tokens[1].Lexeme)
	}
	if tokens[2].Lexeme != "5" {
		t.Fatalf("expected unsigned literal \"5\", got %q", tokens[2].Lexeme)
	}
}

func TestArrowNotMistakenForMinus(t *testing.T) {
	tokens, err := Tokenize("fn f() -> i32 {\nreturn 0\n}\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, tok := range tokens {
		if tok.Kind == token.ARROW {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an ARROW token, got %v", tokens)
	}
}

func TestCommentsAreSkippedButNewlinesKept(t *testing.T) {
	tokens, err := Tokenize("i32 x = 1 // trailing comment\nreturn x\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var kinds []token.Kind
	for _, tok := range tokens {
		kinds = append(kinds, tok.Kind)
	}
	wantHasNewlineBeforeReturn := false
	for i := 0; i < len(kinds)-1; i++ {
		if kinds[i] == token.NEWLINE && kinds[i+1] == token.RETURN {
			wantHasNewlineBeforeReturn = true
		}
	}
	if !wantHasNewlineBeforeReturn {
		t.Fatalf("expected a NEWLINE immediately before RETURN, got %v", kinds)
	}
}

func TestIllegalCharacter(t *testing.T) {
	_, err := Tokenize("i32 x = 1 @ 2\n")
	if err == nil {
		t.Fatalf("expected a lexical error for '@', got none")
	}
}

func TestLeadingUnderscoreIsNotAnIdentifier(t *testing.T) {
	// IDENT is [A-Za-z][A-Za-z0-9_]* — a leading underscore is illegal,
	// even though underscore is allowed later in the name.
	_, err := Tokenize("i32 _x = 1\n")
	if err == nil {
		t.Fatalf("expected a lexical error for a leading underscore, got none")
	}
}

func TestUnderscoreMidIdentifierIsAllowed(t *testing.T) {
	tokens, err := Tokenize("i32 x_1 = 1\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens[1].Kind != token.IDENT || tokens[1].Lexeme != "x_1" {
		t.Fatalf("expected IDENT \"x_1\", got %s %q", tokens[1].Kind, tokens[1].Lexeme)
	}
}
