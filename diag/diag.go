// Package diag defines the compiler's four error kinds. Every stage in the
// pipeline reports failures as one of these so the driver can render a
// uniform, line-tagged message regardless of which stage caught it.
package diag

import "fmt"

// LexError reports an unexpected character the lexer's state machine has
// no transition for.
type LexError struct {
	Line    int
	Column  int
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("line %d: lexical error: %s", e.Line, e.Message)
}

// SyntaxError reports a token the parser found where its grammar rule
// required something else. The parser stops at the first one; there is no
// error-recovery/resynchronization.
type SyntaxError struct {
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: syntax error: %s", e.Line, e.Message)
}

// SemanticError reports a well-formed but ill-typed or otherwise invalid
// program: unknown names, type mismatches, mutability violations, arity
// mismatches, duplicate declarations, and similar.
type SemanticError struct {
	Line    int
	Message string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("line %d: semantic error: %s", e.Line, e.Message)
}

// InternalError reports a violated invariant the earlier stages should
// have already ruled out. It should never be observed for a well-formed
// program; its presence means a stage let something through it shouldn't
// have.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s", e.Message)
}

func NewLex(line, column int, format string, args ...interface{}) *LexError {
	return &LexError{Line: line, Column: column, Message: fmt.Sprintf(format, args...)}
}

func NewSyntax(line int, format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{Line: line, Message: fmt.Sprintf(format, args...)}
}

func NewSemantic(line int, format string, args ...interface{}) *SemanticError {
	return &SemanticError{Line: line, Message: fmt.Sprintf(format, args...)}
}

func NewInternal(format string, args ...interface{}) *InternalError {
	return &InternalError{Message: fmt.Sprintf(format, args...)}
}
