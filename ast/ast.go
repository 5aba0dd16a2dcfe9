// Package ast defines the closed set of syntax-tree node types the parser
// builds and the analyzer annotates in place. There is no visitor
// interface: each pipeline stage that needs to walk the tree does so with
// an ordinary type switch over the Statement/Expression interfaces, in
// Go's usual tagged-variant style.
package ast

import "github.com/ilc-lang/ilc/types"

// Node is the root of every syntax-tree type; it can report the source
// line it came from, for diagnostics.
type Node interface {
	SourceLine() int
}

// Statement is any node usable directly inside a CodeBlock.
type Statement interface {
	Node
	statementNode()
}

// Expression is any node producing a value. The analyzer annotates each
// Expression with its resolved DataType as it type-checks the tree;
// ResultType is meaningless before analysis has run.
type Expression interface {
	Node
	expressionNode()
	Type() types.DataType
	SetType(types.DataType)
}

// Operator is the closed set of binary/unary operators the grammar
// accepts. All five binary operators share one precedence level (see
// DESIGN.md); Operator only distinguishes comparison from arithmetic so
// the analyzer and codegen can pick the right result type and LLVM
// mnemonic.
type Operator int

const (
	OpAdd Operator = iota
	OpSub
	OpMul
	OpEq
	OpNeq
	OpNot
)

func (o Operator) IsComparison() bool {
	return o == OpEq || o == OpNeq
}

func (o Operator) String() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpNot:
		return "!"
	default:
		return "?"
	}
}

// Program is the root node: struct declarations and function declarations
// are restricted to a syntactic prefix, followed by the top-level body and
// its single mandatory Return.
type Program struct {
	Structs   []*StructDecl
	Functions []*FunctionDecl
	Body      []Statement
	Return    *Return
}

// Param is one function or member-function parameter.
type Param struct {
	Name string
	Type types.DataType
}

// FieldDecl is one struct field declaration.
type FieldDecl struct {
	Name    string
	Type    types.DataType
	Mutable bool
}

// StructDecl declares a struct's fields and its member functions.
type StructDecl struct {
	Line    int
	Name    string
	Fields  []FieldDecl
	Methods []*FunctionDecl
}

func (n *StructDecl) SourceLine() int { return n.Line }
func (n *StructDecl) statementNode()  {}

// FunctionDecl is a free function or, when Receiver is non-empty, a
// member function declared inside a StructDecl. Receiver holds the
// enclosing struct's name for member functions and is empty for free
// functions.
type FunctionDecl struct {
	Line       int
	Receiver   string
	Name       string
	Params     []Param
	ReturnType types.DataType
	Body       *CodeBlock
}

func (n *FunctionDecl) SourceLine() int { return n.Line }
func (n *FunctionDecl) statementNode()  {}

// CodeBlock is the body of a function, or of an if/else branch. Return is
// optional: per the grammar, any block may end with a return statement
// that closes it, not only function bodies.
type CodeBlock struct {
	Statements []Statement
	Return     *Return
}

// Return is a return statement. Whether it exits the enclosing function
// or acts as an early top-level program exit depends on where codegen
// encounters it, not on where it was parsed (see DESIGN.md).
type Return struct {
	Line  int
	Value Expression
}

func (n *Return) SourceLine() int { return n.Line }
func (n *Return) statementNode()  {}

// Declaration introduces a new variable in the current scope, with its
// declared type and mandatory initializer.
type Declaration struct {
	Line    int
	Name    string
	Mutable bool
	Type    types.DataType
	Init    Expression
}

func (n *Declaration) SourceLine() int { return n.Line }
func (n *Declaration) statementNode()  {}

// Assignment gives an already-declared variable, named without a field
// chain, a new value.
type Assignment struct {
	Line  int
	Name  string
	Value Expression
}

func (n *Assignment) SourceLine() int { return n.Line }
func (n *Assignment) statementNode()  {}

// FieldAssignment rebinds one field at the end of a dotted access chain,
// e.g. "a.b.c = e".
type FieldAssignment struct {
	Line   int
	Target *FieldAccess
	Value  Expression
}

func (n *FieldAssignment) SourceLine() int { return n.Line }
func (n *FieldAssignment) statementNode()  {}

// If is an if/else statement. Else is nil when the statement has no else
// branch (tentatively bound to the nearest unmatched if at parse time).
type If struct {
	Line int
	Cond Expression
	Then *CodeBlock
	Else *CodeBlock
}

func (n *If) SourceLine() int { return n.Line }
func (n *If) statementNode()  {}

// Identifier reads a plain variable.
type Identifier struct {
	Line       int
	Name       string
	ResultType types.DataType
}

func (n *Identifier) SourceLine() int             { return n.Line }
func (n *Identifier) expressionNode()              {}
func (n *Identifier) Type() types.DataType          { return n.ResultType }
func (n *Identifier) SetType(t types.DataType)      { n.ResultType = t }

// Number is an integer literal. Value holds the parsed signed value; the
// exact source lexeme is kept alongside it, and codegen emits that lexeme
// verbatim as the literal operand.
type Number struct {
	Line       int
	Value      int64
	Lexeme     string
	ResultType types.DataType
}

func (n *Number) SourceLine() int        { return n.Line }
func (n *Number) expressionNode()        {}
func (n *Number) Type() types.DataType   { return n.ResultType }
func (n *Number) SetType(t types.DataType) { n.ResultType = t }

// Boolean is a true/false literal.
type Boolean struct {
	Line       int
	Value      bool
	ResultType types.DataType
}

func (n *Boolean) SourceLine() int        { return n.Line }
func (n *Boolean) expressionNode()        {}
func (n *Boolean) Type() types.DataType   { return n.ResultType }
func (n *Boolean) SetType(t types.DataType) { n.ResultType = t }

// BinaryOp applies one of the five binary operators. All five share one
// precedence level and are left-associative (see DESIGN.md and spec.md
// §9); the parser never distinguishes them by precedence, only codegen
// and the analyzer distinguish comparison from arithmetic.
type BinaryOp struct {
	Line       int
	Op         Operator
	Left       Expression
	Right      Expression
	ResultType types.DataType
}

func (n *BinaryOp) SourceLine() int        { return n.Line }
func (n *BinaryOp) expressionNode()        {}
func (n *BinaryOp) Type() types.DataType   { return n.ResultType }
func (n *BinaryOp) SetType(t types.DataType) { n.ResultType = t }

// UnaryOp applies the single unary operator, logical not.
type UnaryOp struct {
	Line       int
	Op         Operator
	Operand    Expression
	ResultType types.DataType
}

func (n *UnaryOp) SourceLine() int        { return n.Line }
func (n *UnaryOp) expressionNode()        {}
func (n *UnaryOp) Type() types.DataType   { return n.ResultType }
func (n *UnaryOp) SetType(t types.DataType) { n.ResultType = t }

// FieldAccess reads the end of a dotted access chain, e.g. "a.b.c".
// Mutable is computed and set by the analyzer: true iff every link in the
// chain is mutable, per the mutability-chain rule.
type FieldAccess struct {
	Line       int
	Chain      []string
	Mutable    bool
	ResultType types.DataType
}

func (n *FieldAccess) SourceLine() int        { return n.Line }
func (n *FieldAccess) expressionNode()        {}
func (n *FieldAccess) Type() types.DataType   { return n.ResultType }
func (n *FieldAccess) SetType(t types.DataType) { n.ResultType = t }

// StructInit constructs a struct value: "Name{arg, arg, ...}", positional
// and in field-declaration order.
type StructInit struct {
	Line       int
	StructName string
	Args       []Expression
	ResultType types.DataType
}

func (n *StructInit) SourceLine() int        { return n.Line }
func (n *StructInit) expressionNode()        {}
func (n *StructInit) Type() types.DataType   { return n.ResultType }
func (n *StructInit) SetType(t types.DataType) { n.ResultType = t }

// FunctionCall invokes a function or member function. Receiver is the
// dotted chain identifying the receiver object (without the method name
// itself); it is nil for a call with no receiver.
type FunctionCall struct {
	Line       int
	Receiver   []string
	Name       string
	Args       []Expression
	ResultType types.DataType
}

func (n *FunctionCall) SourceLine() int        { return n.Line }
func (n *FunctionCall) expressionNode()        {}
func (n *FunctionCall) Type() types.DataType   { return n.ResultType }
func (n *FunctionCall) SetType(t types.DataType) { n.ResultType = t }
