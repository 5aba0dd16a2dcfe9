package codegen

import (
	"strings"
	"testing"

	"github.com/ilc-lang/ilc/analyzer"
	"github.com/ilc-lang/ilc/parser"
)

func generate(t *testing.T, src string) string {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if err := analyzer.Analyze(prog); err != nil {
		t.Fatalf("analyze error: %v", err)
	}
	out, err := Generate(prog)
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	return out
}

func TestPreludeIsAlwaysEmitted(t *testing.T) {
	output := generate(t, "return 0\n")
	if !strings.Contains(output, `@exit_format = private unnamed_addr constant [29 x i8] c"Program exit with result %d\0A\00", align 1`) {
		t.Errorf("expected the exit_format constant in output, got:\n%s", output)
	}
	if !strings.Contains(output, "declare i32 @printf(i8*, ...)") {
		t.Errorf("expected a printf declaration in output, got:\n%s", output)
	}
	if !strings.Contains(output, "define i32 @main()") {
		t.Errorf("expected @main in output, got:\n%s", output)
	}
}

func TestArithmeticProgramEmitsAddAndPrintResult(t *testing.T) {
	output := generate(t, "i32 a{5}\ni32 b{3}\ni32 c{a + b}\nreturn c\n")
	if !strings.Contains(output, "add i32") {
		t.Errorf("expected an add instruction, got:\n%s", output)
	}
	if !strings.Contains(output, "call void @printResult") {
		t.Errorf("expected a call to @printResult, got:\n%s", output)
	}
}

func TestWideningEmitsSext(t *testing.T) {
	output := generate(t, "i64 a{5}\ni32 b{3}\ni64 c{a + b}\nreturn c\n")
	if !strings.Contains(output, "sext i32") {
		t.Errorf("expected a sext instruction widening i32 to i64, got:\n%s", output)
	}
}

func TestI64TopLevelReturnEmitsTrunc(t *testing.T) {
	output := generate(t, "i64 a{5}\nreturn a\n")
	if !strings.Contains(output, "trunc i64") {
		t.Errorf("expected a trunc instruction narrowing i64 to i32 for printResult, got:\n%s", output)
	}
}

func TestBoolTopLevelReturnEmitsZext(t *testing.T) {
	output := generate(t, "bool a{true}\nreturn a\n")
	if !strings.Contains(output, "zext i1") {
		t.Errorf("expected a zext instruction widening i1 to i32 for printResult, got:\n%s", output)
	}
}

func TestIfElseEmitsBranchAndLabels(t *testing.T) {
	output := generate(t, "i32 mut x{5}\nif x == 5\n{\nx = 100\n}\nelse\n{\nx = 200\n}\nreturn x\n")
	if !strings.Contains(output, "icmp eq i32") {
		t.Errorf("expected an icmp eq instruction, got:\n%s", output)
	}
	if !strings.Contains(output, "br i1") {
		t.Errorf("expected a conditional branch, got:\n%s", output)
	}
	if !strings.Contains(output, "then1:") || !strings.Contains(output, "else1:") || !strings.Contains(output, "endif1:") {
		t.Errorf("expected then/else/endif labels, got:\n%s", output)
	}
	// The writes to x inside both branches must be unobservable once the
	// if/else ends: the final return resolves x back to its original
	// pre-if binding (%x, holding 5), not whatever register either branch
	// rebound x to (%x.1 = 100, %x.2 = 200).
	if !strings.Contains(output, "call void @printResult(i32 %x)") {
		t.Errorf("expected the final return to print the pre-if binding %%x (value 5), got:\n%s", output)
	}
	if strings.Contains(output, "call void @printResult(i32 %x.1)") || strings.Contains(output, "call void @printResult(i32 %x.2)") {
		t.Errorf("final return must not observe a write made inside the if/else, got:\n%s", output)
	}
}

func TestStructDeclEmitsTypeDefinition(t *testing.T) {
	output := generate(t, "struct Point {\ni32 mut x\ni32 mut y\n}\nPoint mut p{10, 20}\np.x = 15\nreturn p.x\n")
	if !strings.Contains(output, "%struct.Point = type { i32, i32 }") {
		t.Errorf("expected a struct.Point type definition, got:\n%s", output)
	}
	if !strings.Contains(output, "getelementptr inbounds") {
		t.Errorf("expected a getelementptr instruction for field access, got:\n%s", output)
	}
}

func TestFunctionDeclEmitsMangledDefinitionAndCall(t *testing.T) {
	output := generate(t, "fn add = (i32 a, i32 b) -> i32 {\nreturn a + b\n}\ni32 r{add(5, 10)}\nreturn r\n")
	if !strings.Contains(output, "define i32 @add(") {
		t.Errorf("expected a define for @add, got:\n%s", output)
	}
	if !strings.Contains(output, "call i32 @add(") {
		t.Errorf("expected a call to @add, got:\n%s", output)
	}
}

func TestMemberFunctionIsNameMangledWithThisPointer(t *testing.T) {
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
	output := generate(t, src)
	if !strings.Contains(output, "define i32 @Point_sum(%struct.Point* %this)") {
		t.Errorf("expected a mangled define for @Point_sum taking %%this, got:\n%s", output)
	}
	if !strings.Contains(output, "call i32 @Point_sum(%struct.Point* %") {
		t.Errorf("expected a call to @Point_sum passing a struct pointer, got:\n%s", output)
	}
}

func TestNestedStructFieldIsCopiedNotStoredAsPointer(t *testing.T) {
	src := "struct Inner {\n" +
		"i32 mut v\n" +
		"}\n" +
		"struct Outer {\n" +
		"Inner mut in\n" +
		"i32 mut w\n" +
		"}\n" +
		"Outer o{Inner{5}, 10}\n" +
		"return o.in.v\n"
	output := generate(t, src)
	if !strings.Contains(output, "%struct.Outer = type { %struct.Inner, i32 }") {
		t.Errorf("expected Outer to embed Inner by value, got:\n%s", output)
	}
	// Inner{5} is an rvalue struct pointer; initializing o.in from it must
	// copy Inner's field rather than storing the pointer itself where an
	// aggregate is expected.
	if !strings.Contains(output, "load i32, i32* ") || !strings.Contains(output, "store i32 ") {
		t.Errorf("expected a field-by-field i32 load/store copying Inner into Outer.in, got:\n%s", output)
	}
	if strings.Contains(output, "store %struct.Inner ") {
		t.Errorf("must not store a struct pointer where an aggregate is expected, got:\n%s", output)
	}
}

func TestStructFieldAssignmentCopiesNestedStruct(t *testing.T) {
	src := "struct Inner {\n" +
		"i32 mut v\n" +
		"}\n" +
		"struct Outer {\n" +
		"Inner mut in\n" +
		"}\n" +
		"Outer mut o{Inner{5}}\n" +
		"Inner mut other{7}\n" +
		"o.in = other\n" +
		"return o.in.v\n"
	output := generate(t, src)
	if strings.Contains(output, "store %struct.Inner ") {
		t.Errorf("assigning one struct field to another must copy fields, not store a pointer, got:\n%s", output)
	}
}

func TestEarlyTopLevelReturnInsideIfAlsoCallsPrintResult(t *testing.T) {
	output := generate(t, "bool cond{true}\nif cond\n{\nreturn 1\n}\nreturn 0\n")
	count := strings.Count(output, "call void @printResult")
	if count != 2 {
		t.Errorf("expected two calls to @printResult (one per reachable return), got %d in:\n%s", count, output)
	}
}
