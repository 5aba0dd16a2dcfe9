// Package types defines the small closed set of data types the language
// supports and their mapping onto LLVM IR type syntax.
package types

import "fmt"

// Kind distinguishes the three primitives from the open-ended set of
// struct types, which are identified by name rather than by kind.
type Kind int

const (
	I32 Kind = iota
	I64
	Bool
	Struct
)

func (k Kind) String() string {
	switch k {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case Bool:
		return "bool"
	case Struct:
		return "struct"
	default:
		return "unknown"
	}
}

// DataType is a tagged variant: either one of the three primitives, or a
// named struct type. Two DataTypes are equal (via ==) iff they denote the
// same type, since StructName is the empty string for every primitive.
type DataType struct {
	Kind       Kind
	StructName string
}

func I32Type() DataType  { return DataType{Kind: I32} }
func I64Type() DataType  { return DataType{Kind: I64} }
func BoolType() DataType { return DataType{Kind: Bool} }

func StructType(name string) DataType {
	return DataType{Kind: Struct, StructName: name}
}

func (d DataType) IsPrimitive() bool { return d.Kind != Struct }
func (d DataType) IsStruct() bool    { return d.Kind == Struct }
func (d DataType) IsBool() bool      { return d.Kind == Bool }
func (d DataType) IsInteger() bool   { return d.Kind == I32 || d.Kind == I64 }

func (d DataType) String() string {
	if d.Kind == Struct {
		return d.StructName
	}
	return d.Kind.String()
}

// LLVM returns the primitive's LLVM IR scalar type name. Struct types are
// not handled here; the codegen package builds their type names from the
// struct layout table directly (%struct.Name), since that mapping needs
// the "is this a pointer-passed struct" context the codegen carries.
func (d DataType) LLVM() string {
	switch d.Kind {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case Bool:
		return "i1"
	default:
		panic(fmt.Sprintf("types: LLVM() called on non-primitive type %q", d.StructName))
	}
}

// FromKeyword maps a lexed primitive type keyword to its DataType. It does
// not know about struct names; callers resolve those against the struct
// table and fall back to StructType(name) themselves.
func FromKeyword(kw string) (DataType, bool) {
	switch kw {
	case "i32":
		return I32Type(), true
	case "i64":
		return I64Type(), true
	case "bool":
		return BoolType(), true
	default:
		return DataType{}, false
	}
}

// Equal reports whether two types denote exactly the same type (no
// widening). Used for struct-to-struct assignability and field matches,
// where no implicit conversion ever applies.
func (d DataType) Equal(other DataType) bool {
	return d.Kind == other.Kind && d.StructName == other.StructName
}

// AssignableTo reports whether a value of type d may be assigned/bound
// (declaration, assignment, argument, return) to a target of type target.
// The only implicit widening the language performs is i32 -> i64; bool and
// struct types only match themselves.
func (d DataType) AssignableTo(target DataType) bool {
	if d.Equal(target) {
		return true
	}
	return d.Kind == I32 && target.Kind == I64
}
