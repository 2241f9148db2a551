package bytecode

// Ref is an unsigned index into a frame's evaluation stack. The
// compiler that produced a Module guarantees refs are dense and
// contiguous within one function; the interpreter grows the stack
// lazily to fit whatever ref it is handed.
type Ref uint32

// PrimitiveKind names one of the three value singletons an OpPrimitive
// instruction can write.
type PrimitiveKind uint8

const (
	PrimNull PrimitiveKind = iota
	PrimTrue
	PrimFalse
)

// Instr is one instruction in decoded form: the op plus every operand
// field spelled out, rather than a packed 32-bit {op, data} word; this
// is the reconstructed, already-decoded shape a loader would hand the
// interpreter. Which fields are meaningful depends on Op — see the
// per-opcode cases of internal/vm's dispatch switch (step) for the
// exact mapping. The general convention: A is the
// destination ref for every opcode that produces a value, B/C/D are
// source operand refs.
type Instr struct {
	Op OpCode

	A, B, C, D Ref

	// extra: {index, length} into Module.Extra, used by variable-length
	// operand lists (build_tuple/list/map, call argument lists) and as
	// the FuncProto index for build_func.
	ExtraIndex uint32
	ExtraLen   uint32

	// jump / jump_condition: absolute instruction index to branch to.
	Jump uint32

	// str: {offset, length} into Module.Strings — string literals and
	// interned tagged/import names.
	StrOffset uint32
	StrLen    uint32

	// int / num: immediate literals.
	IntLit int64
	NumLit float64

	// primitive: which singleton to write.
	Primitive PrimitiveKind

	// as: target tag for the explicit-cast opcode, named by value.Kind
	// but kept untyped here to avoid bytecode depending on value.
	TargetKind uint8
}

// FuncProto is the compiled body of one function literal, referenced by
// OpBuildFunc. The body is a slice into the owning module's Code array,
// addressed as a (BodyStart, BodyLen) pair of instruction indices.
type FuncProto struct {
	Name      string
	BodyStart uint32
	BodyLen   uint32
	ArgCount  int
	Variadic  bool
	// Captures lists the refs (in the *defining* frame) copied into the
	// new closure's capture slice when OpBuildFunc executes.
	Captures []Ref
}
