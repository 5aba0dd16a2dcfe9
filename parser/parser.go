// Package parser implements a recursive-descent parser with a
// single-token lookahead cursor over an already-tokenized source file. It
// performs syntactic-only validation and builds an AST; it does not
// resolve names or types beyond tracking which identifiers name declared
// struct types, which is needed to disambiguate the grammar itself.
package parser

import (
	"strconv"

	"github.com/ilc-lang/ilc/ast"
	"github.com/ilc-lang/ilc/diag"
	"github.com/ilc-lang/ilc/lexer"
	"github.com/ilc-lang/ilc/token"
	"github.com/ilc-lang/ilc/types"
)

// Parser walks a buffered token slice with an integer cursor, so tentative
// lookahead (the "else" binding rule) is a plain save/restore of that
// cursor rather than needing a separate pushback mechanism.
type Parser struct {
	tokens          []token.Token
	pos             int
	declaredStructs map[string]bool
}

// New builds a Parser over a fully materialized token slice. The caller
// decides how those tokens were produced; Parse below is the usual
// shortcut from source text.
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens, declaredStructs: make(map[string]bool)}
}

// Parse lexes src and parses it into a Program in one step.
func Parse(src string) (*ast.Program, error) {
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return New(tokens).ParseProgram()
}

func (p *Parser) cur() token.Token {
	return p.tokens[p.pos]
}

func (p *Parser) next() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}

func (p *Parser) mark() int { return p.pos }

func (p *Parser) reset(mark int) { p.pos = mark }

// expect consumes the current token if it has kind k, else reports a
// SyntaxError at the current line.
func (p *Parser) expect(k token.Kind) error {
	if p.cur().Kind != k {
		return diag.NewSyntax(p.cur().Line, "expected %s, found %s %q", k, p.cur().Kind, p.cur().Lexeme)
	}
	p.next()
	return nil
}

func (p *Parser) skipNewlines() {
	for p.cur().Kind == token.NEWLINE {
		p.next()
	}
}

// expectTerminator enforces "each statement MUST be followed by a NEWLINE
// or EOF": it consumes a single trailing NEWLINE if present, and errors on
// anything else that isn't EOF.
func (p *Parser) expectTerminator() error {
	switch p.cur().Kind {
	case token.NEWLINE:
		p.next()
		return nil
	case token.EOF:
		return nil
	default:
		return diag.NewSyntax(p.cur().Line, "expected a newline after this statement, found %s %q", p.cur().Kind, p.cur().Lexeme)
	}
}

// ParseProgram parses the full grammar's "program" rule: the struct/func
// declaration prefix, the top-level body, and the mandatory final return.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	p.skipNewlines()

	for p.cur().Kind == token.STRUCT {
		sd, err := p.parseStructDecl()
		if err != nil {
			return nil, err
		}
		prog.Structs = append(prog.Structs, sd)
		p.declaredStructs[sd.Name] = true
		if err := p.expectTerminator(); err != nil {
			return nil, err
		}
		p.skipNewlines()
	}

	for p.cur().Kind == token.FN {
		fd, err := p.parseFunctionDecl("")
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, fd)
		if err := p.expectTerminator(); err != nil {
			return nil, err
		}
		p.skipNewlines()
	}

	for p.cur().Kind != token.RETURN && p.cur().Kind != token.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Body = append(prog.Body, stmt)
		if err := p.expectTerminator(); err != nil {
			return nil, err
		}
		p.skipNewlines()
	}

	if p.cur().Kind != token.RETURN {
		return nil, diag.NewSyntax(p.cur().Line, "program must end with a top-level return statement")
	}
	ret, err := p.parseReturnStmt()
	if err != nil {
		return nil, err
	}
	prog.Return = ret

	p.skipNewlines()
	if p.cur().Kind != token.EOF {
		return nil, diag.NewSyntax(p.cur().Line, "no code may follow the top-level return")
	}
	return prog, nil
}

func (p *Parser) parseStructDecl() (*ast.StructDecl, error) {
	line := p.cur().Line
	if err := p.expect(token.STRUCT); err != nil {
		return nil, err
	}
	if p.cur().Kind != token.IDENT {
		return nil, diag.NewSyntax(p.cur().Line, "expected a struct name, found %s", p.cur().Kind)
	}
	name := p.cur().Lexeme
	p.next()
	// The opening brace may follow the name on the same line or a later one.
	p.skipNewlines()
	if err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	if err := p.expectTerminator(); err != nil {
		return nil, err
	}
	p.skipNewlines()

	sd := &ast.StructDecl{Line: line, Name: name}

	for p.cur().Kind != token.RBRACE && p.cur().Kind != token.FN {
		field, err := p.parseFieldDecl()
		if err != nil {
			return nil, err
		}
		sd.Fields = append(sd.Fields, field)
		if err := p.expectTerminator(); err != nil {
			return nil, err
		}
		p.skipNewlines()
	}

	for p.cur().Kind == token.FN {
		method, err := p.parseFunctionDecl(name)
		if err != nil {
			return nil, err
		}
		sd.Methods = append(sd.Methods, method)
		if err := p.expectTerminator(); err != nil {
			return nil, err
		}
		p.skipNewlines()
	}

	if err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return sd, nil
}

// parseFieldDecl parses "field = type [\"mut\"] IDENT".
func (p *Parser) parseFieldDecl() (ast.FieldDecl, error) {
	declType, err := p.parseType()
	if err != nil {
		return ast.FieldDecl{}, err
	}
	mutable := false
	if p.cur().Kind == token.MUT {
		mutable = true
		p.next()
	}
	if p.cur().Kind != token.IDENT {
		return ast.FieldDecl{}, diag.NewSyntax(p.cur().Line, "expected a field name, found %s", p.cur().Kind)
	}
	name := p.cur().Lexeme
	p.next()
	return ast.FieldDecl{Name: name, Type: declType, Mutable: mutable}, nil
}

// parseFunctionDecl parses "fn IDENT = ( params ) -> type [NL] block": the
// block's opening brace may sit on the return type's line or a later one.
// receiver is "" for a free function, or the enclosing struct's name for a
// member function.
func (p *Parser) parseFunctionDecl(receiver string) (*ast.FunctionDecl, error) {
	line := p.cur().Line
	if err := p.expect(token.FN); err != nil {
		return nil, err
	}
	if p.cur().Kind != token.IDENT {
		return nil, diag.NewSyntax(p.cur().Line, "expected a function name, found %s", p.cur().Kind)
	}
	name := p.cur().Lexeme
	p.next()
	if err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}

	var params []ast.Param
	if p.cur().Kind != token.RPAREN {
		param, err := p.parseParam()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
		for p.cur().Kind == token.COMMA {
			p.next()
			param, err := p.parseParam()
			if err != nil {
				return nil, err
			}
			params = append(params, param)
		}
	}
	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if err := p.expect(token.ARROW); err != nil {
		return nil, err
	}
	retType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &ast.FunctionDecl{
		Line:       line,
		Receiver:   receiver,
		Name:       name,
		Params:     params,
		ReturnType: retType,
		Body:       body,
	}, nil
}

func (p *Parser) parseParam() (ast.Param, error) {
	declType, err := p.parseType()
	if err != nil {
		return ast.Param{}, err
	}
	if p.cur().Kind != token.IDENT {
		return ast.Param{}, diag.NewSyntax(p.cur().Line, "expected a parameter name, found %s", p.cur().Kind)
	}
	name := p.cur().Lexeme
	p.next()
	return ast.Param{Name: name, Type: declType}, nil
}

// parseBlock parses "{" NL {statement NL} [return_stmt NL] "}".
func (p *Parser) parseBlock() (*ast.CodeBlock, error) {
	if err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	if err := p.expectTerminator(); err != nil {
		return nil, err
	}
	p.skipNewlines()

	block := &ast.CodeBlock{}
	for p.cur().Kind != token.RBRACE && p.cur().Kind != token.RETURN {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
		if err := p.expectTerminator(); err != nil {
			return nil, err
		}
		p.skipNewlines()
	}

	if p.cur().Kind == token.RETURN {
		ret, err := p.parseReturnStmt()
		if err != nil {
			return nil, err
		}
		block.Return = ret
		if err := p.expectTerminator(); err != nil {
			return nil, err
		}
		p.skipNewlines()
	}

	if err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return block, nil
}

// parseStatement disambiguates var_decl vs. assignment vs. if_stmt by
// streaming-tracked context: a leading IDENT that names an already
// declared struct starts a declaration, not an assignment.
func (p *Parser) parseStatement() (ast.Statement, error) {
	switch {
	case isTypeStart(p.cur().Kind):
		return p.parseVarDecl()
	case p.cur().Kind == token.IDENT && p.declaredStructs[p.cur().Lexeme]:
		return p.parseVarDecl()
	case p.cur().Kind == token.IDENT:
		return p.parseAssignment()
	case p.cur().Kind == token.IF:
		return p.parseIfStmt()
	default:
		return nil, diag.NewSyntax(p.cur().Line, "unexpected token %s %q at start of statement", p.cur().Kind, p.cur().Lexeme)
	}
}

func isTypeStart(k token.Kind) bool {
	return k == token.I32_TYPE || k == token.I64_TYPE || k == token.BOOL_TYPE
}

// parseVarDecl parses "var_decl = type [\"mut\"] IDENT (\"{\" expr \"}\" |
// struct_init)". Both alternatives share the same "{" [expr {,expr}] "}"
// surface syntax; which one it is depends on whether declType is a struct.
func (p *Parser) parseVarDecl() (*ast.Declaration, error) {
	line := p.cur().Line
	declType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	mutable := false
	if p.cur().Kind == token.MUT {
		mutable = true
		p.next()
	}
	if p.cur().Kind != token.IDENT {
		return nil, diag.NewSyntax(p.cur().Line, "expected a variable name, found %s", p.cur().Kind)
	}
	name := p.cur().Lexeme
	p.next()

	args, err := p.parseBraceExprList()
	if err != nil {
		return nil, err
	}

	var init ast.Expression
	if declType.IsStruct() {
		init = &ast.StructInit{Line: line, StructName: declType.StructName, Args: args}
	} else {
		if len(args) != 1 {
			return nil, diag.NewSyntax(line, "a %s declaration takes exactly one initializer expression, got %d", declType, len(args))
		}
		init = args[0]
	}

	return &ast.Declaration{Line: line, Name: name, Mutable: mutable, Type: declType, Init: init}, nil
}

// parseBraceExprList parses "{" [expr {"," expr}] "}".
func (p *Parser) parseBraceExprList() ([]ast.Expression, error) {
	if err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	var args []ast.Expression
	if p.cur().Kind != token.RBRACE {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		for p.cur().Kind == token.COMMA {
			p.next()
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, e)
		}
	}
	if err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return args, nil
}

// parseAssignment parses "assignment = IDENT {\".\" IDENT} \"=\" expr",
// which covers both plain and field assignment.
func (p *Parser) parseAssignment() (ast.Statement, error) {
	line := p.cur().Line
	chain := []string{p.cur().Lexeme}
	p.next()
	for p.cur().Kind == token.DOT {
		p.next()
		if p.cur().Kind != token.IDENT {
			return nil, diag.NewSyntax(p.cur().Line, "expected a field name after '.', found %s", p.cur().Kind)
		}
		chain = append(chain, p.cur().Lexeme)
		p.next()
	}
	if err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if len(chain) == 1 {
		return &ast.Assignment{Line: line, Name: chain[0], Value: value}, nil
	}
	return &ast.FieldAssignment{
		Line:   line,
		Target: &ast.FieldAccess{Line: line, Chain: chain},
		Value:  value,
	}, nil
}

// parseIfStmt parses "if_stmt = \"if\" expr NL block [NL \"else\" NL
// block]". The trailing else is tentative: its leading NEWLINE is
// provisionally consumed and given back if no "else" follows, so the
// statement-terminating NEWLINE is still there for the caller to consume.
func (p *Parser) parseIfStmt() (*ast.If, error) {
	line := p.cur().Line
	if err := p.expect(token.IF); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectTerminator(); err != nil {
		return nil, err
	}
	p.skipNewlines()

	thenBlock, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	stmt := &ast.If{Line: line, Cond: cond, Then: thenBlock}

	mark := p.mark()
	if p.cur().Kind == token.NEWLINE {
		p.next()
		if p.cur().Kind == token.ELSE {
			p.next()
			if err := p.expectTerminator(); err != nil {
				return nil, err
			}
			p.skipNewlines()
			elseBlock, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			stmt.Else = elseBlock
			return stmt, nil
		}
	}
	p.reset(mark)
	return stmt, nil
}

func (p *Parser) parseReturnStmt() (*ast.Return, error) {
	line := p.cur().Line
	if err := p.expect(token.RETURN); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Return{Line: line, Value: value}, nil
}

// parseExpr parses "expr = factor {(\"+\"|\"-\"|\"*\"|\"==\"|\"!=\")
// factor}": a flat, left-associative fold giving all five binary operators
// equal precedence (see DESIGN.md — an intentional departure from
// conventional arithmetic precedence).
func (p *Parser) parseExpr() (ast.Expression, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := binaryOpFor(p.cur().Kind)
		if !ok {
			return left, nil
		}
		line := p.cur().Line
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Line: line, Op: op, Left: left, Right: right}
	}
}

func binaryOpFor(k token.Kind) (ast.Operator, bool) {
	switch k {
	case token.PLUS:
		return ast.OpAdd, true
	case token.MINUS:
		return ast.OpSub, true
	case token.STAR:
		return ast.OpMul, true
	case token.EQ:
		return ast.OpEq, true
	case token.NEQ:
		return ast.OpNeq, true
	default:
		return 0, false
	}
}

// parseFactor parses "factor = \"!\" factor | primary".
func (p *Parser) parseFactor() (ast.Expression, error) {
	if p.cur().Kind == token.NOT {
		line := p.cur().Line
		p.next()
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Line: line, Op: ast.OpNot, Operand: operand}, nil
	}
	return p.parsePrimary()
}

// parsePrimary parses "primary = NUMBER | \"true\" | \"false\" | IDENT
// [ \"(\" [expr {,expr}] \")\" | struct_init | \".\" IDENT {\".\" IDENT} ]".
func (p *Parser) parsePrimary() (ast.Expression, error) {
	tok := p.cur()
	switch tok.Kind {
	case token.NUMBER:
		p.next()
		value, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return nil, diag.NewSyntax(tok.Line, "malformed number literal %q", tok.Lexeme)
		}
		return &ast.Number{Line: tok.Line, Value: value, Lexeme: tok.Lexeme}, nil
	case token.TRUE:
		p.next()
		return &ast.Boolean{Line: tok.Line, Value: true}, nil
	case token.FALSE:
		p.next()
		return &ast.Boolean{Line: tok.Line, Value: false}, nil
	case token.IDENT:
		name := tok.Lexeme
		p.next()
		switch p.cur().Kind {
		case token.LPAREN:
			return p.parseCall(nil, name, tok.Line)
		case token.LBRACE:
			args, err := p.parseBraceExprListAlreadyOpen()
			if err != nil {
				return nil, err
			}
			return &ast.StructInit{Line: tok.Line, StructName: name, Args: args}, nil
		case token.DOT:
			chain := []string{name}
			for p.cur().Kind == token.DOT {
				p.next()
				if p.cur().Kind != token.IDENT {
					return nil, diag.NewSyntax(p.cur().Line, "expected a field name after '.', found %s", p.cur().Kind)
				}
				chain = append(chain, p.cur().Lexeme)
				p.next()
			}
			if p.cur().Kind == token.LPAREN {
				method := chain[len(chain)-1]
				receiver := chain[:len(chain)-1]
				return p.parseCall(receiver, method, tok.Line)
			}
			return &ast.FieldAccess{Line: tok.Line, Chain: chain}, nil
		default:
			return &ast.Identifier{Line: tok.Line, Name: name}, nil
		}
	default:
		return nil, diag.NewSyntax(tok.Line, "unexpected token %s %q in expression", tok.Kind, tok.Lexeme)
	}
}

// parseBraceExprListAlreadyOpen is parseBraceExprList for the case where
// the struct_init syntax is reached from inside parsePrimary, which has
// not yet consumed the opening "{".
func (p *Parser) parseBraceExprListAlreadyOpen() ([]ast.Expression, error) {
	return p.parseBraceExprList()
}

// parseCall parses the "(" [expr {,expr}] ")" argument list of a function
// or member-function call whose name/receiver has already been read.
func (p *Parser) parseCall(receiver []string, name string, line int) (ast.Expression, error) {
	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var args []ast.Expression
	if p.cur().Kind != token.RPAREN {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		for p.cur().Kind == token.COMMA {
			p.next()
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, e)
		}
	}
	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &ast.FunctionCall{Line: line, Receiver: receiver, Name: name, Args: args}, nil
}

// parseType parses "type = \"i32\" | \"i64\" | \"bool\" | IDENT", where an
// IDENT is only a valid type if it names a struct declared earlier in the
// file (the syntactic prefix restriction makes forward references
// impossible).
func (p *Parser) parseType() (types.DataType, error) {
	switch p.cur().Kind {
	case token.I32_TYPE:
		p.next()
		return types.I32Type(), nil
	case token.I64_TYPE:
		p.next()
		return types.I64Type(), nil
	case token.BOOL_TYPE:
		p.next()
		return types.BoolType(), nil
	case token.IDENT:
		name := p.cur().Lexeme
		if !p.declaredStructs[name] {
			return types.DataType{}, diag.NewSyntax(p.cur().Line, "%q is not a declared struct type", name)
		}
		p.next()
		return types.StructType(name), nil
	default:
		return types.DataType{}, diag.NewSyntax(p.cur().Line, "expected a type, found %s %q", p.cur().Kind, p.cur().Lexeme)
	}
}
