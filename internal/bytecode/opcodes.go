// Package bytecode defines the compiled module format the interpreter
// core consumes: instruction words, opcodes, constant/string pools and
// debug metadata. Nothing in this package parses source text — modules
// arrive here already built by an external compiler.
package bytecode

// OpCode identifies the operation of one instruction word. The dispatch
// loop in internal/vm switches on these values.
type OpCode byte

const (
	OpNop OpCode = iota

	// Constants and literals
	OpPrimitive // write the null/true/false singleton named by Instr.Primitive
	OpInt       // write an int literal
	OpNum       // write a float literal
	OpStr       // write a str literal from the string pool

	// Aggregate construction
	OpBuildTuple
	OpBuildList
	OpBuildMap
	OpBuildError
	OpBuildErrorNull
	OpBuildTagged
	OpBuildTaggedNull
	OpBuildFunc
	OpBuildRange
	OpBuildRangeStep

	// Arithmetic
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpDivFloor
	OpRem
	OpPow
	OpLShift
	OpRShift
	OpBitAnd
	OpBitOr
	OpBitXor

	// Unary
	OpNegate
	OpBoolNot
	OpBitNot

	// Comparison
	OpEqual
	OpNotEqual
	OpLessThan
	OpLessThanEqual
	OpGreaterThan
	OpGreaterThanEqual

	// Containers
	OpGet
	OpGetInt
	OpGetOrNull
	OpSet
	OpAppend
	OpIn
	OpSpread

	// Destructuring
	OpCheckLen
	OpAssertLen
	OpSpreadDest

	// Error-wrapping
	OpUnwrapError
	OpUnwrapTagged
	OpUnwrapTaggedOrNull

	// Variables
	OpCopyUn
	OpCopy
	OpMove
	OpLoadGlobal
	OpLoadCapture
	OpLoadThis

	// Control flow
	OpJump
	OpJumpIfTrue
	OpJumpIfFalse
	OpJumpIfNull
	OpPushErrHandler
	OpPopErrHandler
	OpUnwrapErrorOrJump

	// Iteration
	OpIterInit
	OpIterNext

	// Call and return
	OpCall
	OpCallOne
	OpCallZero
	OpThisCall
	OpThisCallZero
	OpRet
	OpRetNull

	// Module level
	OpImport
	OpDiscard
	OpThrow

	// Explicit coercion
	OpAs
)

// String names an opcode for diagnostics and disassembly.
func (op OpCode) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "unknown"
}

var opNames = []string{
	"nop",
	"primitive", "int", "num", "str",
	"build_tuple", "build_list", "build_map", "build_error", "build_error_null",
	"build_tagged", "build_tagged_null", "build_func", "build_range", "build_range_step",
	"add", "sub", "mul", "div", "div_floor", "rem", "pow",
	"l_shift", "r_shift", "bit_and", "bit_or", "bit_xor",
	"negate", "bool_not", "bit_not",
	"equal", "not_equal", "less_than", "less_than_equal", "greater_than", "greater_than_equal",
	"get", "get_int", "get_or_null", "set", "append", "in", "spread",
	"check_len", "assert_len", "spread_dest",
	"unwrap_error", "unwrap_tagged", "unwrap_tagged_or_null",
	"copy_un", "copy", "move", "load_global", "load_capture", "load_this",
	"jump", "jump_if_true", "jump_if_false", "jump_if_null",
	"push_err_handler", "pop_err_handler", "unwrap_error_or_jump",
	"iter_init", "iter_next",
	"call", "call_one", "call_zero", "this_call", "this_call_zero", "ret", "ret_null",
	"import", "discard", "throw", "as",
}
