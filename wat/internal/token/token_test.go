package token

import "testing"

func checkTokens(t *testing.T, input string, want []Token) {
	t.Helper()
	got := Tokenize(input)
	if len(got) != len(want) {
		t.Fatalf("token count = %d, want %d\ngot: %v", len(got), len(want), got)
	}
	for i, tok := range got {
		if tok != want[i] {
			t.Errorf("token %d = %+v, want %+v", i, tok, want[i])
		}
	}
}

func TestTokenizeStructure(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Token
	}{
		{"empty", "", nil},
		{"parens", "()", []Token{{"(", LParen, 1}, {")", RParen, 1}}},
		{"module", "(module)", []Token{{"(", LParen, 1}, {"module", Ident, 1}, {")", RParen, 1}}},
		{"padded", "  (  module  )  ", []Token{{"(", LParen, 1}, {"module", Ident, 1}, {")", RParen, 1}}},
		{"line numbers", "(\nmodule\n)", []Token{{"(", LParen, 1}, {"module", Ident, 2}, {")", RParen, 3}}},
		{"dollar name", "$foo", []Token{{"$foo", Ident, 1}}},
		{"unicode name", "$日本語", []Token{{"$日本語", Ident, 1}}},
		{"mnemonic", "i32.const", []Token{{"i32.const", Ident, 1}}},
		{"memarg", "offset=4 align=2", []Token{{"offset=4", Ident, 1}, {"align=2", Ident, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkTokens(t, tt.input, tt.want)
		})
	}
}

func TestTokenizeNumbers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Token
	}{
		{"decimal", "42", Token{"42", Number, 1}},
		{"negative", "-42", Token{"-42", Number, 1}},
		{"explicit plus", "+7", Token{"+7", Number, 1}},
		{"hex", "0xFF", Token{"0xFF", Number, 1}},
		{"separators", "1_000_000", Token{"1_000_000", Number, 1}},
		{"float", "3.14", Token{"3.14", Number, 1}},
		{"exponent", "1e10", Token{"1e10", Number, 1}},
		{"negative exponent", "1e-10", Token{"1e-10", Number, 1}},
		{"hex float", "0x1.5p10", Token{"0x1.5p10", Number, 1}},
		{"hex float signed exp", "0x1p-149", Token{"0x1p-149", Number, 1}},
		{"inf", "inf", Token{"inf", Ident, 1}},
		{"signed inf", "-inf", Token{"-inf", Ident, 1}},
		{"nan", "nan", Token{"nan", Ident, 1}},
		{"signed nan", "+nan", Token{"+nan", Ident, 1}},
		{"nan payload", "nan:0x1234", Token{"nan:0x1234", Ident, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkTokens(t, tt.input, []Token{tt.want})
		})
	}
}

func TestTokenizeStringsAndComments(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Token
	}{
		{"string", `"hello"`, []Token{{"hello", String, 1}}},
		{"escapes kept raw", `"a\nb"`, []Token{{`a\nb`, String, 1}}},
		{"escaped quote", `"say \"hi\""`, []Token{{`say \"hi\"`, String, 1}}},
		{"line comment", ";; note\n(module)", []Token{{"(", LParen, 2}, {"module", Ident, 2}, {")", RParen, 2}}},
		{"block comment", "(; note ;)(module)", []Token{{"(", LParen, 1}, {"module", Ident, 1}, {")", RParen, 1}}},
		{"nested block comment", "(; a (; b ;) c ;)(module)", []Token{{"(", LParen, 1}, {"module", Ident, 1}, {")", RParen, 1}}},
		{"block comment lines", "(; a\nb ;)\n(module)", []Token{{"(", LParen, 3}, {"module", Ident, 3}, {")", RParen, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkTokens(t, tt.input, tt.want)
		})
	}
}

func TestTokenizeExpression(t *testing.T) {
	input := `(func $add (param i32 i32) (result i32)
  (i32.add (local.get 0) (local.get 1)))`
	want := []Token{
		{"(", LParen, 1}, {"func", Ident, 1}, {"$add", Ident, 1},
		{"(", LParen, 1}, {"param", Ident, 1}, {"i32", Ident, 1}, {"i32", Ident, 1}, {")", RParen, 1},
		{"(", LParen, 1}, {"result", Ident, 1}, {"i32", Ident, 1}, {")", RParen, 1},
		{"(", LParen, 2}, {"i32.add", Ident, 2},
		{"(", LParen, 2}, {"local.get", Ident, 2}, {"0", Number, 2}, {")", RParen, 2},
		{"(", LParen, 2}, {"local.get", Ident, 2}, {"1", Number, 2}, {")", RParen, 2},
		{")", RParen, 2}, {")", RParen, 2},
	}
	checkTokens(t, input, want)
}

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{LParen, "'('"},
		{RParen, "')'"},
		{Ident, "identifier"},
		{String, "string"},
		{Number, "number"},
		{Type(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("Type(%d).String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}
