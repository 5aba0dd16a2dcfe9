package parser

import (
	"testing"

	"github.com/ilc-lang/ilc/ast"
	"github.com/stretchr/testify/require"
)

func TestParseArithmeticProgram(t *testing.T) {
	src := "i32 a{5}\ni32 b{3}\ni32 c{a + b}\nreturn c\n"
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Body, 3)
	require.NotNil(t, prog.Return)

	decl, ok := prog.Body[0].(*ast.Declaration)
	require.True(t, ok)
	require.Equal(t, "a", decl.Name)
	require.False(t, decl.Mutable)
}

func TestUniformLeftAssociativePrecedence(t *testing.T) {
	// "2 + 3 * 4" must parse as ((2 + 3) * 4), not the conventional
	// (2 + (3 * 4)) — operators are uniform precedence, left-associative.
	src := "i32 x{2 + 3 * 4}\nreturn x\n"
	prog, err := Parse(src)
	require.NoError(t, err)
	decl := prog.Body[0].(*ast.Declaration)
	top, ok := decl.Init.(*ast.BinaryOp)
	require.True(t, ok)
	require.Equal(t, ast.OpMul, top.Op)
	inner, ok := top.Left.(*ast.BinaryOp)
	require.True(t, ok)
	require.Equal(t, ast.OpAdd, inner.Op)
}

func TestIfElseTentativeBinding(t *testing.T) {
	src := "i32 mut x{5}\nif x == 5\n{\nx = 100\n}\nelse\n{\nx = 200\n}\nreturn x\n"
	prog, err := Parse(src)
	require.NoError(t, err)
	ifStmt, ok := prog.Body[1].(*ast.If)
	require.True(t, ok)
	require.NotNil(t, ifStmt.Else)
}

func TestIfWithoutElseLeavesTerminatorIntact(t *testing.T) {
	src := "i32 mut x{5}\nif x == 5\n{\nx = 100\n}\nreturn x\n"
	prog, err := Parse(src)
	require.NoError(t, err)
	ifStmt, ok := prog.Body[1].(*ast.If)
	require.True(t, ok)
	require.Nil(t, ifStmt.Else)
	require.NotNil(t, prog.Return)
}

func TestStructDeclAndFieldMutation(t *testing.T) {
	src := "struct Point {\ni32 mut x\ni32 mut y\n}\nPoint mut p{10, 20}\np.x = 15\nreturn p.x\n"
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Structs, 1)
	require.Equal(t, "Point", prog.Structs[0].Name)
	require.Len(t, prog.Structs[0].Fields, 2)

	assign, ok := prog.Body[1].(*ast.FieldAssignment)
	require.True(t, ok)
	require.Equal(t, []string{"p", "x"}, assign.Target.Chain)
}

func TestFunctionDeclAndCall(t *testing.T) {
	src := "fn add = (i32 a, i32 b) -> i32 {\nreturn a + b\n}\ni32 r{add(5, 10)}\nreturn r\n"
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)
	require.Equal(t, "add", prog.Functions[0].Name)
	require.Len(t, prog.Functions[0].Params, 2)

	decl := prog.Body[0].(*ast.Declaration)
	call, ok := decl.Init.(*ast.FunctionCall)
	require.True(t, ok)
	require.Nil(t, call.Receiver)
	require.Len(t, call.Args, 2)
}

func TestCodeAfterReturnIsSyntaxError(t *testing.T) {
	src := "return 0\ni32 x{1}\n"
	_, err := Parse(src)
	require.Error(t, err)
}

func TestTwoStatementsOnOneLineIsSyntaxError(t *testing.T) {
	src := "i32 a{1} i32 b{2}\nreturn a\n"
	_, err := Parse(src)
	require.Error(t, err)
}

func TestSelfAssignmentParsesFine(t *testing.T) {
	// Self-assignment is a semantic rule, not a syntax one; the parser
	// must accept it.
	src := "i32 mut x{10}\nx = x\nreturn x\n"
	_, err := Parse(src)
	require.NoError(t, err)
}
