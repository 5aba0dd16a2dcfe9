// Package codegen turns an analyzed AST into textual LLVM IR. It assumes
// the tree has already been through analyzer.Analyze: every expression
// carries a resolved DataType, field-access mutability has been checked,
// and every top-level-context return yields an integer or bool. Codegen
// itself performs no further validation — an invariant broken here means
// an earlier stage let something through it shouldn't have.
package codegen

import (
	"fmt"
	"strings"

	"github.com/ilc-lang/ilc/ast"
	"github.com/ilc-lang/ilc/diag"
	"github.com/ilc-lang/ilc/symbols"
	"github.com/ilc-lang/ilc/types"
)

// Generator accumulates the emitted module text and the process-wide
// counters that keep every virtual register and branch label unique
// across the whole program, not just within one function.
type Generator struct {
	out strings.Builder

	structs *symbols.StructTable
	funcs   *symbols.FunctionTable

	regCounter   int
	labelCounter int
}

// value is an already-computed operand: either a named register/pointer
// or a literal constant, tagged with its LLVM-relevant DataType.
type value struct {
	reg string
	typ types.DataType
}

// funcState is the per-function codegen context: the live scalar variable
// bindings (a bare name maps to whatever register currently holds its
// value — reassigning a name just rebinds the map entry, producing the
// %x, %x.1, %x.2, ... naming scheme with no load/store, no phi nodes, and
// no mem2reg pass needed) and struct variable pointers (structs are always
// stack-allocated, so mutation through a field chain is ordinary memory
// store and is NOT undone by a block-scope restore the way scalar
// rebinding is — see genIf).
type funcState struct {
	vars        map[string]value
	varVersions map[string]int
	receiver    string // enclosing struct name for a member function, else ""
	buf         *strings.Builder

	// topLevel and returnType describe what a "return" reached inside
	// this function's body means: inside @main, topLevel is true and any
	// return (the mandatory final one or an early one nested in an if)
	// prints the result and exits; inside a real function/method body,
	// topLevel is false and a return yields returnType via an ordinary
	// "ret" instruction.
	topLevel   bool
	returnType types.DataType
}

// Generate lowers an analyzed program to a complete LLVM IR module.
func Generate(prog *ast.Program) (string, error) {
	g := &Generator{
		structs: symbols.NewStructTable(),
		funcs:   symbols.NewFunctionTable(),
	}
	g.collectSignatures(prog)

	g.emitPrelude()
	g.emitStructTypes(prog)

	for _, sd := range prog.Structs {
		for _, m := range sd.Methods {
			if err := g.emitFunction(m); err != nil {
				return "", err
			}
		}
	}
	for _, fd := range prog.Functions {
		if err := g.emitFunction(fd); err != nil {
			return "", err
		}
	}

	if err := g.emitMain(prog); err != nil {
		return "", err
	}

	return g.out.String(), nil
}

// collectSignatures rebuilds the same struct-layout and function-signature
// tables the analyzer built, independently: codegen needs them to compute
// mangled call targets and GEP index paths, and re-deriving them here
// (rather than threading the analyzer's tables through) keeps the two
// passes decoupled, matching how the original implementation's code
// generator re-walks the declaration list itself instead of reusing the
// semantic visitor's state.
func (g *Generator) collectSignatures(prog *ast.Program) {
	for _, sd := range prog.Structs {
		fields := make([]symbols.StructField, 0, len(sd.Fields))
		for _, f := range sd.Fields {
			fields = append(fields, symbols.StructField{Name: f.Name, Type: f.Type, Mutable: f.Mutable})
		}
		g.structs.Define(sd.Name, fields)
		for _, m := range sd.Methods {
			g.funcs.Define(sd.Name, m.Name, signatureOf(m))
		}
	}
	for _, fd := range prog.Functions {
		g.funcs.Define(symbols.GlobalScope, fd.Name, signatureOf(fd))
	}
}

func signatureOf(fd *ast.FunctionDecl) symbols.FunctionInfo {
	params := make([]types.DataType, len(fd.Params))
	for i, p := range fd.Params {
		params[i] = p.Type
	}
	return symbols.FunctionInfo{ParamTypes: params, ReturnType: fd.ReturnType}
}

func (g *Generator) newReg() string {
	g.regCounter++
	return fmt.Sprintf("%%t%d", g.regCounter)
}

// newLabelID allocates the numeric suffix that one if statement's
// then/else/endif labels share.
func (g *Generator) newLabelID() int {
	g.labelCounter++
	return g.labelCounter
}

// nextVersion implements the %x, %x.1, %x.2 naming scheme for a scalar
// variable named name: the first binding is plain %x, every later one
// appends the next integer.
func (fs *funcState) nextVersion(name string) string {
	v := fs.varVersions[name]
	fs.varVersions[name] = v + 1
	if v == 0 {
		return "%" + name
	}
	return fmt.Sprintf("%%%s.%d", name, v)
}

// bindScalar rebinds name to a freshly versioned register holding src's
// value and records the binding in fs.vars. It emits a trivial identity
// "add ... 0" so the versioned name (%x, %x.1, %x.2, ...) is an actual
// register in the output, not just bookkeeping aliased onto whatever
// register the initializer/rvalue happened to compute into.
func (g *Generator) bindScalar(name string, src string, t types.DataType, fs *funcState) {
	versioned := fs.nextVersion(name)
	fs.emit("%s = add %s 0, %s", versioned, t.LLVM(), src)
	fs.vars[name] = value{reg: versioned, typ: t}
}

func (fs *funcState) emit(format string, args ...interface{}) {
	fmt.Fprintf(fs.buf, "  "+format+"\n", args...)
}

func mangle(structName, funcName string) string {
	if structName == "" {
		return "@" + funcName
	}
	return fmt.Sprintf("@%s_%s", structName, funcName)
}

func structTypeName(name string) string {
	return "%struct." + name
}

// llvmFieldType returns the LLVM type a struct field occupies within its
// owning struct's type definition: primitives map to their scalar type,
// and a struct-typed field is embedded by value (not behind a pointer),
// matching how the original implementation lays out nested structs.
func llvmFieldType(t types.DataType) string {
	if t.IsStruct() {
		return structTypeName(t.StructName)
	}
	return t.LLVM()
}

func (g *Generator) emitPrelude() {
	g.out.WriteString("; generated by ilc — do not edit by hand\n\n")
	g.out.WriteString(`@exit_format = private unnamed_addr constant [29 x i8] c"Program exit with result %d\0A\00", align 1` + "\n\n")
	g.out.WriteString("declare i32 @printf(i8*, ...)\n\n")
	g.out.WriteString("define private void @printResult(i32 %val) {\n")
	g.out.WriteString("entry:\n")
	g.out.WriteString("  %fmt = getelementptr inbounds [29 x i8], [29 x i8]* @exit_format, i32 0, i32 0\n")
	g.out.WriteString("  call i32 (i8*, ...) @printf(i8* %fmt, i32 %val)\n")
	g.out.WriteString("  ret void\n")
	g.out.WriteString("}\n\n")
}

func (g *Generator) emitStructTypes(prog *ast.Program) {
	for _, sd := range prog.Structs {
		fields, _ := g.structs.Fields(sd.Name)
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = llvmFieldType(f.Type)
		}
		fmt.Fprintf(&g.out, "%s = type { %s }\n", structTypeName(sd.Name), strings.Join(parts, ", "))
	}
	if len(prog.Structs) > 0 {
		g.out.WriteString("\n")
	}
}

// emitFunction lowers one free function or member function. Member
// functions gain an implicit leading %this pointer parameter; reads and
// writes of a bare field name inside the body resolve against it (see
// genIdentifier).
func (g *Generator) emitFunction(fd *ast.FunctionDecl) error {
	fs := &funcState{
		vars:        make(map[string]value),
		varVersions: make(map[string]int),
		receiver:    fd.Receiver,
		buf:         &strings.Builder{},
		returnType:  fd.ReturnType,
	}

	var sig []string
	if fd.Receiver != "" {
		sig = append(sig, fmt.Sprintf("%s* %%this", structTypeName(fd.Receiver)))
	}
	for _, p := range fd.Params {
		reg := fs.nextVersion(p.Name)
		fs.vars[p.Name] = value{reg: reg, typ: p.Type}
		paramType := llvmFieldType(p.Type)
		if p.Type.IsStruct() {
			// A struct argument is a pointer to the caller's storage.
			paramType += "*"
		}
		sig = append(sig, fmt.Sprintf("%s %s", paramType, reg))
	}

	fmt.Fprintf(fs.buf, "define %s %s(%s) {\n", fd.ReturnType.LLVM(), mangle(fd.Receiver, fd.Name), strings.Join(sig, ", "))
	fs.buf.WriteString("entry:\n")

	terminated, err := g.genCodeBlock(fd.Body, fs)
	if err != nil {
		return err
	}
	if !terminated {
		return diag.NewInternal("function %q fell through without a return", fd.Name)
	}
	fs.buf.WriteString("}\n\n")

	g.out.WriteString(fs.buf.String())
	return nil
}

// emitMain lowers the top-level body into @main. A top-level return —
// whether the program's single mandatory one or an early one nested in a
// top-level if — prints the result via @printResult and returns 0; it
// never returns control to the caller of @main.
func (g *Generator) emitMain(prog *ast.Program) error {
	fs := &funcState{
		vars:        make(map[string]value),
		varVersions: make(map[string]int),
		buf:         &strings.Builder{},
		topLevel:    true,
	}

	fs.buf.WriteString("define i32 @main() {\n")
	fs.buf.WriteString("entry:\n")

	for _, stmt := range prog.Body {
		terminated, err := g.genStatement(stmt, fs)
		if err != nil {
			return err
		}
		if terminated {
			return diag.NewInternal("unreachable code after an early top-level return")
		}
	}

	if err := g.genTopLevelReturn(prog.Return, fs); err != nil {
		return err
	}
	fs.buf.WriteString("}\n")

	g.out.WriteString(fs.buf.String())
	return nil
}

func (g *Generator) genTopLevelReturn(r *ast.Return, fs *funcState) error {
	v, err := g.genExpr(r.Value, fs)
	if err != nil {
		return err
	}
	printable, err := g.toI32(v, fs)
	if err != nil {
		return err
	}
	fs.emit("call void @printResult(i32 %s)", printable)
	fs.emit("ret i32 0")
	return nil
}

// toI32 widens or narrows v to i32 for the fixed printf-based exit report:
// bool is zero-extended, i64 is truncated, i32 passes through unchanged.
func (g *Generator) toI32(v value, fs *funcState) (string, error) {
	switch v.typ.Kind {
	case types.I32:
		return v.reg, nil
	case types.Bool:
		r := g.newReg()
		fs.emit("%s = zext i1 %s to i32", r, v.reg)
		return r, nil
	case types.I64:
		r := g.newReg()
		fs.emit("%s = trunc i64 %s to i32", r, v.reg)
		return r, nil
	default:
		return "", diag.NewInternal("cannot print a value of type %s", v.typ)
	}
}

// genCodeBlock lowers a function/method body or an if/else branch inside
// one. Whether a trailing return in b ends the block with an ordinary
// "ret" or an early program exit depends on fs.topLevel, which is fixed
// for the whole function/main being generated — not on how deeply the
// block is nested inside ifs. It returns true if the block is guaranteed
// to end in a terminator instruction, so the caller knows whether control
// can still fall through past it.
func (g *Generator) genCodeBlock(b *ast.CodeBlock, fs *funcState) (bool, error) {
	for _, stmt := range b.Statements {
		terminated, err := g.genStatement(stmt, fs)
		if err != nil {
			return false, err
		}
		if terminated {
			return true, nil
		}
	}
	if b.Return != nil {
		v, err := g.genExpr(b.Return.Value, fs)
		if err != nil {
			return false, err
		}
		if fs.topLevel {
			return true, g.genEarlyTopLevelReturn(v, fs)
		}
		casted, err := g.castTo(v, fs.returnType, fs)
		if err != nil {
			return false, err
		}
		fs.emit("ret %s %s", fs.returnType.LLVM(), casted)
		return true, nil
	}
	return false, nil
}

// genEarlyTopLevelReturn lowers a return found inside a top-level
// if/else branch: it behaves exactly like the program's final mandatory
// return (print, then ret i32 0), since from @main's point of view both
// are just "the program is done".
func (g *Generator) genEarlyTopLevelReturn(v value, fs *funcState) error {
	printable, err := g.toI32(v, fs)
	if err != nil {
		return err
	}
	fs.emit("call void @printResult(i32 %s)", printable)
	fs.emit("ret i32 0")
	return nil
}

func snapshotVars(m map[string]value) map[string]value {
	out := make(map[string]value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// genStatement lowers one statement. It returns true when the statement
// cannot fall through to whatever follows it — currently only possible
// for an If whose every branch already returned.
func (g *Generator) genStatement(stmt ast.Statement, fs *funcState) (bool, error) {
	switch n := stmt.(type) {
	case *ast.Declaration:
		return false, g.genDeclaration(n, fs)
	case *ast.Assignment:
		return false, g.genAssignment(n, fs)
	case *ast.FieldAssignment:
		return false, g.genFieldAssignment(n, fs)
	case *ast.If:
		return g.genIf(n, fs)
	default:
		return false, diag.NewInternal("codegen: unhandled statement type %T", n)
	}
}

func (g *Generator) genDeclaration(d *ast.Declaration, fs *funcState) error {
	if d.Type.IsStruct() {
		ptr := g.newReg()
		fs.emit("%s = alloca %s", ptr, structTypeName(d.Type.StructName))
		fs.vars[d.Name] = value{reg: ptr, typ: d.Type}
		init, ok := d.Init.(*ast.StructInit)
		if !ok {
			return diag.NewInternal("struct declaration %q initialized with a non-struct-init expression", d.Name)
		}
		return g.storeStructFields(ptr, d.Type.StructName, init.Args, fs)
	}

	v, err := g.genExpr(d.Init, fs)
	if err != nil {
		return err
	}
	casted, err := g.castTo(v, d.Type, fs)
	if err != nil {
		return err
	}
	g.bindScalar(d.Name, casted, d.Type, fs)
	return nil
}

// storeStructFields emits one GEP+store per field of a freshly alloca'd
// struct pointer, in declaration order. A struct-typed field's source value
// is itself a pointer to the source struct's storage (see the value
// invariant documented on copyStruct), so it is copied field-by-field
// rather than stored directly.
func (g *Generator) storeStructFields(ptr, structName string, args []ast.Expression, fs *funcState) error {
	fields, _ := g.structs.Fields(structName)
	for i, arg := range args {
		v, err := g.genExpr(arg, fs)
		if err != nil {
			return err
		}
		casted, err := g.castTo(v, fields[i].Type, fs)
		if err != nil {
			return err
		}
		fieldPtr := g.newReg()
		fs.emit("%s = getelementptr inbounds %s, %s* %s, i32 0, i32 %d", fieldPtr, structTypeName(structName), structTypeName(structName), ptr, i)
		if fields[i].Type.IsStruct() {
			if err := g.copyStruct(fieldPtr, casted, fields[i].Type.StructName, fs); err != nil {
				return err
			}
			continue
		}
		fs.emit("store %s %s, %s* %s", llvmFieldType(fields[i].Type), casted, llvmFieldType(fields[i].Type), fieldPtr)
	}
	return nil
}

// copyStruct copies every field of structName from srcPtr to destPtr,
// recursing into any field that is itself a struct. Every struct-typed
// value in this generator — a struct variable's binding, a struct-init
// result, or a struct-typed field read off another struct — is a pointer
// to its storage, never a loaded aggregate, so a field-by-field
// GEP+load+store is what actually moves the value; a plain "store" would
// store the pointer itself instead of the struct's contents (see the
// original implementation's copy_struct_fields, which this mirrors).
func (g *Generator) copyStruct(destPtr, srcPtr, structName string, fs *funcState) error {
	fields, _ := g.structs.Fields(structName)
	for i, f := range fields {
		srcFieldPtr := g.newReg()
		fs.emit("%s = getelementptr inbounds %s, %s* %s, i32 0, i32 %d", srcFieldPtr, structTypeName(structName), structTypeName(structName), srcPtr, i)
		destFieldPtr := g.newReg()
		fs.emit("%s = getelementptr inbounds %s, %s* %s, i32 0, i32 %d", destFieldPtr, structTypeName(structName), structTypeName(structName), destPtr, i)
		if f.Type.IsStruct() {
			if err := g.copyStruct(destFieldPtr, srcFieldPtr, f.Type.StructName, fs); err != nil {
				return err
			}
			continue
		}
		loaded := g.newReg()
		fs.emit("%s = load %s, %s* %s", loaded, llvmFieldType(f.Type), llvmFieldType(f.Type), srcFieldPtr)
		fs.emit("store %s %s, %s* %s", llvmFieldType(f.Type), loaded, llvmFieldType(f.Type), destFieldPtr)
	}
	return nil
}

func (g *Generator) genAssignment(n *ast.Assignment, fs *funcState) error {
	if _, ok := fs.vars[n.Name]; !ok && fs.receiver != "" {
		// Inside a member function, a bare name with no local binding is
		// one of the receiver's own fields: store through %this.
		return g.genFieldAssignment(&ast.FieldAssignment{Line: n.Line, Target: &ast.FieldAccess{Line: n.Line, Chain: []string{n.Name}}, Value: n.Value}, fs)
	}
	v, err := g.genExpr(n.Value, fs)
	if err != nil {
		return err
	}
	cur, ok := fs.vars[n.Name]
	if !ok {
		return diag.NewInternal("assignment to unresolved variable %q", n.Name)
	}
	casted, err := g.castTo(v, cur.typ, fs)
	if err != nil {
		return err
	}
	if cur.typ.IsStruct() {
		// A struct variable's binding points at its storage; assigning to
		// it copies the new value into that storage field by field.
		return g.copyStruct(cur.reg, casted, cur.typ.StructName, fs)
	}
	// Rebinding the name to a freshly versioned register is the whole of
	// the assignment: see funcState's doc comment.
	g.bindScalar(n.Name, casted, cur.typ, fs)
	return nil
}

func (g *Generator) genFieldAssignment(n *ast.FieldAssignment, fs *funcState) error {
	ptr, fieldType, err := g.resolveFieldPointer(n.Target.Chain, fs)
	if err != nil {
		return err
	}
	v, err := g.genExpr(n.Value, fs)
	if err != nil {
		return err
	}
	casted, err := g.castTo(v, fieldType, fs)
	if err != nil {
		return err
	}
	if fieldType.IsStruct() {
		return g.copyStruct(ptr, casted, fieldType.StructName, fs)
	}
	fs.emit("store %s %s, %s* %s", llvmFieldType(fieldType), casted, llvmFieldType(fieldType), ptr)
	return nil
}

// genIf lowers an if/else statement. Writes to scalar variables inside
// either branch are visible only within that branch: funcState.vars is
// snapshotted before each branch and restored afterward, so the renamed
// register a branch bound to a name is simply forgotten once the branch
// ends — reproducing the language's documented "a write inside an if
// becomes unobservable after it" rule without any phi nodes. Field writes
// through a struct pointer are real stores and are NOT undone by this.
func (g *Generator) genIf(n *ast.If, fs *funcState) (bool, error) {
	cond, err := g.genExpr(n.Cond, fs)
	if err != nil {
		return false, err
	}

	id := g.newLabelID()
	thenLabel := fmt.Sprintf("then%d", id)
	elseLabel := fmt.Sprintf("else%d", id)
	endLabel := fmt.Sprintf("endif%d", id)

	elseTarget := elseLabel
	if n.Else == nil {
		elseTarget = endLabel
	}
	fs.emit("br i1 %s, label %%%s, label %%%s", cond.reg, thenLabel, elseTarget)

	fmt.Fprintf(fs.buf, "%s:\n", thenLabel)
	snapshot := snapshotVars(fs.vars)
	thenTerminated, err := g.genCodeBlock(n.Then, fs)
	if err != nil {
		return false, err
	}
	fs.vars = snapshot
	if !thenTerminated {
		fs.emit("br label %%%s", endLabel)
	}

	elseTerminated := false
	if n.Else != nil {
		fmt.Fprintf(fs.buf, "%s:\n", elseLabel)
		snapshot = snapshotVars(fs.vars)
		elseTerminated, err = g.genCodeBlock(n.Else, fs)
		if err != nil {
			return false, err
		}
		fs.vars = snapshot
		if !elseTerminated {
			fs.emit("br label %%%s", endLabel)
		}
	}

	if thenTerminated && n.Else != nil && elseTerminated {
		// Every path already returned; the end label is unreachable, so
		// it must not be emitted at all.
		return true, nil
	}
	fmt.Fprintf(fs.buf, "%s:\n", endLabel)
	return false, nil
}

func (g *Generator) genExpr(expr ast.Expression, fs *funcState) (value, error) {
	switch n := expr.(type) {
	case *ast.Number:
		return value{reg: n.Lexeme, typ: n.Type()}, nil
	case *ast.Boolean:
		lit := "0"
		if n.Value {
			lit = "1"
		}
		return value{reg: lit, typ: types.BoolType()}, nil
	case *ast.Identifier:
		return g.genIdentifier(n, fs)
	case *ast.BinaryOp:
		return g.genBinaryOp(n, fs)
	case *ast.UnaryOp:
		return g.genUnaryOp(n, fs)
	case *ast.FieldAccess:
		return g.genFieldAccess(n, fs)
	case *ast.StructInit:
		return g.genStructInitExpr(n, fs)
	case *ast.FunctionCall:
		return g.genFunctionCall(n, fs)
	default:
		return value{}, diag.NewInternal("codegen: unhandled expression type %T", n)
	}
}

// genIdentifier resolves a bare name. A local/parameter binding in
// fs.vars wins; otherwise, inside a member function, the name must be an
// implicit reference to one of the receiver's own fields, read off %this.
func (g *Generator) genIdentifier(n *ast.Identifier, fs *funcState) (value, error) {
	if v, ok := fs.vars[n.Name]; ok {
		return v, nil
	}
	if fs.receiver != "" {
		return g.loadFieldChain("%this", fs.receiver, []string{n.Name}, fs)
	}
	return value{}, diag.NewInternal("identifier %q has no binding", n.Name)
}

func (g *Generator) genBinaryOp(n *ast.BinaryOp, fs *funcState) (value, error) {
	left, err := g.genExpr(n.Left, fs)
	if err != nil {
		return value{}, err
	}
	right, err := g.genExpr(n.Right, fs)
	if err != nil {
		return value{}, err
	}

	if n.Op.IsComparison() {
		operandType := left.typ
		if right.typ.Kind == types.I64 {
			operandType = right.typ
		}
		l, err := g.castTo(left, operandType, fs)
		if err != nil {
			return value{}, err
		}
		r, err := g.castTo(right, operandType, fs)
		if err != nil {
			return value{}, err
		}
		mnemonic := "eq"
		if n.Op == ast.OpNeq {
			mnemonic = "ne"
		}
		res := g.newReg()
		fs.emit("%s = icmp %s %s %s, %s", res, mnemonic, operandType.LLVM(), l, r)
		return value{reg: res, typ: types.BoolType()}, nil
	}

	result := n.ResultType
	l, err := g.castTo(left, result, fs)
	if err != nil {
		return value{}, err
	}
	r, err := g.castTo(right, result, fs)
	if err != nil {
		return value{}, err
	}
	mnemonic := map[ast.Operator]string{ast.OpAdd: "add", ast.OpSub: "sub", ast.OpMul: "mul"}[n.Op]
	res := g.newReg()
	fs.emit("%s = %s %s %s, %s", res, mnemonic, result.LLVM(), l, r)
	return value{reg: res, typ: result}, nil
}

func (g *Generator) genUnaryOp(n *ast.UnaryOp, fs *funcState) (value, error) {
	operand, err := g.genExpr(n.Operand, fs)
	if err != nil {
		return value{}, err
	}
	res := g.newReg()
	fs.emit("%s = xor i1 %s, true", res, operand.reg)
	return value{reg: res, typ: types.BoolType()}, nil
}

func (g *Generator) genFieldAccess(n *ast.FieldAccess, fs *funcState) (value, error) {
	if base, ok := fs.vars[n.Chain[0]]; ok {
		return g.loadFieldChain(base.reg, base.typ.StructName, n.Chain[1:], fs)
	}
	if fs.receiver != "" {
		return g.loadFieldChain("%this", fs.receiver, n.Chain, fs)
	}
	return value{}, diag.NewInternal("field access on unresolved base %q", n.Chain[0])
}

// loadFieldChain builds the single cumulative GEP that reaches the end of
// chain starting from basePtr (typed as structTypeName(baseStruct)), then
// loads the result. Nested structs are embedded by value within their
// parent, so one GEP with one index per level suffices — there is never a
// pointer to dereference partway through the chain.
//
// If the chain ends on a struct-typed field, the GEP'd pointer is returned
// as-is, with no load: every struct-typed value this generator produces
// (a struct variable's binding, a struct-init result, or a struct field
// read off another struct) is a pointer to its storage, never a loaded
// aggregate — see copyStruct, which relies on that invariant to copy
// struct-typed values field-by-field instead of storing a pointer where an
// aggregate is expected.
func (g *Generator) loadFieldChain(basePtr, baseStruct string, chain []string, fs *funcState) (value, error) {
	ptr, fieldType, err := g.gepChain(basePtr, baseStruct, chain, fs)
	if err != nil {
		return value{}, err
	}
	if fieldType.IsStruct() {
		return value{reg: ptr, typ: fieldType}, nil
	}
	res := g.newReg()
	fs.emit("%s = load %s, %s* %s", res, llvmFieldType(fieldType), llvmFieldType(fieldType), ptr)
	return value{reg: res, typ: fieldType}, nil
}

// resolveFieldPointer builds the GEP for an assignment target, given the
// full chain including its leading variable name.
func (g *Generator) resolveFieldPointer(chain []string, fs *funcState) (string, types.DataType, error) {
	if base, ok := fs.vars[chain[0]]; ok {
		return g.gepChain(base.reg, base.typ.StructName, chain[1:], fs)
	}
	if fs.receiver != "" {
		return g.gepChain("%this", fs.receiver, chain, fs)
	}
	return "", types.DataType{}, diag.NewInternal("field assignment on unresolved base %q", chain[0])
}

// gepChain builds and emits the single cumulative getelementptr that walks
// fieldNames (at least one name) from basePtr, a pointer typed
// structTypeName(baseStruct). Nested structs are embedded by value, so one
// GEP instruction with one index per level reaches any depth.
func (g *Generator) gepChain(basePtr, baseStruct string, fieldNames []string, fs *funcState) (string, types.DataType, error) {
	curStruct := baseStruct
	var curType types.DataType
	indices := []string{"0"}
	for _, fieldName := range fieldNames {
		field, idx, ok := g.structs.Field(curStruct, fieldName)
		if !ok {
			return "", types.DataType{}, diag.NewInternal("struct %q has no field %q", curStruct, fieldName)
		}
		indices = append(indices, fmt.Sprintf("%d", idx))
		curType = field.Type
		curStruct = field.Type.StructName
	}
	idxArgs := make([]string, len(indices))
	for i, idx := range indices {
		idxArgs[i] = "i32 " + idx
	}
	ptr := g.newReg()
	fs.emit("%s = getelementptr inbounds %s, %s* %s, %s", ptr, structTypeName(baseStruct), structTypeName(baseStruct), basePtr, strings.Join(idxArgs, ", "))
	return ptr, curType, nil
}

func (g *Generator) genStructInitExpr(n *ast.StructInit, fs *funcState) (value, error) {
	ptr := g.newReg()
	fs.emit("%s = alloca %s", ptr, structTypeName(n.StructName))
	if err := g.storeStructFields(ptr, n.StructName, n.Args, fs); err != nil {
		return value{}, err
	}
	return value{reg: ptr, typ: types.StructType(n.StructName)}, nil
}

func (g *Generator) genFunctionCall(n *ast.FunctionCall, fs *funcState) (value, error) {
	scope := symbols.GlobalScope
	var thisArg string
	if len(n.Receiver) > 0 {
		base, ok := fs.vars[n.Receiver[0]]
		if !ok {
			if fs.receiver == "" {
				return value{}, diag.NewInternal("call receiver %q has no binding", n.Receiver[0])
			}
			// The receiver chain starts at one of the enclosing struct's own
			// fields, reached through %this.
			fieldPtr, fieldType, err := g.gepChain("%this", fs.receiver, n.Receiver[:1], fs)
			if err != nil {
				return value{}, err
			}
			base = value{reg: fieldPtr, typ: fieldType}
		}
		var ptr string
		var recvType types.DataType
		if len(n.Receiver) == 1 {
			ptr, recvType = base.reg, base.typ
		} else {
			var err error
			ptr, recvType, err = g.gepChain(base.reg, base.typ.StructName, n.Receiver[1:], fs)
			if err != nil {
				return value{}, err
			}
		}
		scope = recvType.StructName
		thisArg = fmt.Sprintf("%s* %s", structTypeName(recvType.StructName), ptr)
	} else if fs.receiver != "" && g.funcs.IsDefined(fs.receiver, n.Name) {
		scope = fs.receiver
		thisArg = fmt.Sprintf("%s* %%this", structTypeName(fs.receiver))
	}

	info, ok := g.funcs.Lookup(scope, n.Name)
	if !ok {
		return value{}, diag.NewInternal("call to unresolved function %q", n.Name)
	}

	var args []string
	if thisArg != "" {
		args = append(args, thisArg)
	}
	for i, a := range n.Args {
		v, err := g.genExpr(a, fs)
		if err != nil {
			return value{}, err
		}
		casted, err := g.castTo(v, info.ParamTypes[i], fs)
		if err != nil {
			return value{}, err
		}
		argType := llvmFieldType(info.ParamTypes[i])
		if info.ParamTypes[i].IsStruct() {
			argType += "*"
		}
		args = append(args, fmt.Sprintf("%s %s", argType, casted))
	}

	if info.ReturnType.IsStruct() {
		// Not reachable for a well-formed program: nothing in the
		// grammar lets a function declare a struct return type that
		// isn't itself immediately bound by a var_decl, and struct
		// values always live in caller-visible alloca'd storage rather
		// than being returned by value. See DESIGN.md.
		return value{}, diag.NewInternal("struct-returning function calls are not supported")
	}
	res := g.newReg()
	fs.emit("%s = call %s %s(%s)", res, info.ReturnType.LLVM(), mangle(scope, n.Name), strings.Join(args, ", "))
	return value{reg: res, typ: info.ReturnType}, nil
}

// castTo widens v to target where the language's assignability
// rule allows it (i32 -> i64 via sext; a same-type pass-through is a
// no-op). It is also used to coerce both operands of a binary op to their
// shared result type.
func (g *Generator) castTo(v value, target types.DataType, fs *funcState) (string, error) {
	if v.typ.Equal(target) {
		return v.reg, nil
	}
	if v.typ.Kind == types.I32 && target.Kind == types.I64 {
		r := g.newReg()
		fs.emit("%s = sext i32 %s to i64", r, v.reg)
		return r, nil
	}
	return "", diag.NewInternal("cannot cast value of type %s to %s", v.typ, target)
}
