package analyzer

import (
	"testing"

	"github.com/ilc-lang/ilc/parser"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	require.NoError(t, Analyze(prog))
}

func mustRejectParse(t *testing.T, src string) {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	require.Error(t, Analyze(prog))
}

func TestArithmeticProgramAccepted(t *testing.T) {
	mustParse(t, "i32 a{5}\ni32 b{3}\ni32 c{a + b}\nreturn c\n")
}

func TestWideningI32ToI64Accepted(t *testing.T) {
	mustParse(t, "i64 a{5}\ni32 b{3}\ni64 c{a + b}\nreturn c\n")
}

func TestIfElseBothBranchesChecked(t *testing.T) {
	mustParse(t, "i32 mut x{5}\nif x == 5\n{\nx = 100\n}\nelse\n{\nx = 200\n}\nreturn x\n")
}

func TestNonMutAssignmentRejected(t *testing.T) {
	mustRejectParse(t, "i32 x{5}\nx = 10\nreturn x\n")
}

func TestStructFieldMutationRequiresMutableChain(t *testing.T) {
	mustParse(t, "struct Point {\ni32 mut x\ni32 mut y\n}\nPoint mut p{10, 20}\np.x = 15\nreturn p.x\n")
}

func TestImmutableFieldAssignmentRejected(t *testing.T) {
	// Point.x is declared without mut, so assigning through it must fail
	// even though p itself is mut.
	mustRejectParse(t, "struct Point {\ni32 x\ni32 mut y\n}\nPoint mut p{10, 20}\np.x = 15\nreturn p.y\n")
}

func TestNonMutOwnerBlocksFieldAssignmentEvenIfFieldIsMut(t *testing.T) {
	mustRejectParse(t, "struct Point {\ni32 mut x\ni32 mut y\n}\nPoint p{10, 20}\np.x = 15\nreturn p.y\n")
}

func TestFunctionCallArityMismatchRejected(t *testing.T) {
	mustRejectParse(t, "fn add = (i32 a, i32 b) -> i32 {\nreturn a + b\n}\ni32 r{add(5)}\nreturn r\n")
}

func TestFunctionCallTypeMismatchRejected(t *testing.T) {
	mustRejectParse(t, "fn add = (i32 a, i32 b) -> i32 {\nreturn a + b\n}\nbool flag{true}\ni32 r{add(flag, 1)}\nreturn r\n")
}

func TestSelfAssignmentRejected(t *testing.T) {
	mustRejectParse(t, "i32 mut x{10}\nx = x\nreturn x\n")
}

func TestUndeclaredVariableRejected(t *testing.T) {
	mustRejectParse(t, "i32 a{y}\nreturn a\n")
}

func TestUseInOwnInitializerRejected(t *testing.T) {
	mustRejectParse(t, "i32 x{x}\nreturn x\n")
}

func TestRedeclarationInSameScopeRejected(t *testing.T) {
	mustRejectParse(t, "i32 a{1}\ni32 a{2}\nreturn a\n")
}

func TestShadowingInNestedScopeAccepted(t *testing.T) {
	mustParse(t, "i32 a{1}\nbool cond{true}\nif cond\n{\ni32 a{2}\n}\nreturn a\n")
}

func TestTopLevelReturnOfStructRejected(t *testing.T) {
	mustRejectParse(t, "struct Point {\ni32 x\ni32 y\n}\nPoint p{1, 2}\nreturn p\n")
}

func TestComparisonProducesBool(t *testing.T) {
	prog, err := parser.Parse("i32 a{5}\ni32 b{3}\nbool c{a == b}\nreturn c\n")
	require.NoError(t, err)
	require.NoError(t, Analyze(prog))
}

func TestArithmeticCannotMixBool(t *testing.T) {
	mustRejectParse(t, "bool a{true}\ni32 b{a + 1}\nreturn b\n")
}

func TestMemberFunctionCallOnReceiver(t *testing.T) {
	src := "struct Point {\n" +
		"i32 mut x\n" +
		"i32 mut y\n" +
		"fn sum = () -> i32 {\n" +
		"return x + y\n" +
		"}\n" +
		"}\n" +
		"Point p{1, 2}\n" +
		"i32 r{p.sum()}\n" +
		"return r\n"
	mustParse(t, src)
}

func TestBoolUnaryNotAccepted(t *testing.T) {
	mustParse(t, "bool a{true}\nbool b{!a}\nreturn b\n")
}

func TestUnaryNotOnIntegerRejected(t *testing.T) {
	mustRejectParse(t, "i32 a{5}\nbool b{!a}\nreturn b\n")
}
