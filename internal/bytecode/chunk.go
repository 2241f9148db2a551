package bytecode

// LineEntry maps one instruction index to a byte offset in the owning
// module's source, the unit the line table is built from.
type LineEntry struct {
	InstrIndex int
	ByteOffset int
}

// DebugInfo carries enough of the module's source to render a caret
// diagnostic: path, raw bytes, and an instruction-index -> byte-offset
// table. Lookups are linear scans over a typically-small line table.
type DebugInfo struct {
	SourcePath  string
	SourceBytes []byte
	LineTable   []LineEntry
}

// ByteOffset returns the source byte offset recorded for instrIndex, or
// -1 if none was recorded (e.g. a synthetic instruction inserted by a
// transform pass).
func (d *DebugInfo) ByteOffset(instrIndex int) int {
	// Line tables are append-ordered and instruction indices are
	// monotonic, so the last entry at or before instrIndex wins.
	best := -1
	for _, e := range d.LineTable {
		if e.InstrIndex > instrIndex {
			break
		}
		best = e.ByteOffset
	}
	return best
}

// Code is the module's flat instruction stream, stored as two parallel
// arrays: one slice of opcodes, one slice of the accompanying operand
// data, indexed identically.
type Code struct {
	Op   []OpCode
	Data []Instr
}

func (c *Code) Len() int { return len(c.Op) }

// At returns the full instruction at index i (Op folded into Instr for
// caller convenience; Instr.Op is kept in sync with Op[i] by Append).
func (c *Code) At(i int) Instr {
	instr := c.Data[i]
	instr.Op = c.Op[i]
	return instr
}

// Append adds one instruction and returns its index.
func (c *Code) Append(instr Instr) int {
	c.Op = append(c.Op, instr.Op)
	c.Data = append(c.Data, instr)
	return len(c.Op) - 1
}

// Module is the immutable, already-compiled translation unit the
// interpreter core executes. It owns no reference back to the compiler
// or lexer that produced it — the core treats Module as an opaque
// artifact.
type Module struct {
	Path string

	// Main is the instruction range (as [start,end) indices into Code)
	// for the module's top-level body.
	MainStart int
	MainEnd   int

	Code Code

	// Extra is the flat pool of refs referenced by opcodes with a
	// variable-length operand list (aggregate construction, call args).
	Extra []Ref

	// Strings is the flat UTF-8 byte pool str literals slice into.
	Strings []byte

	// Funcs holds one FuncProto per build_func site, indexed by the
	// ExtraIndex the OpBuildFunc instruction carries.
	Funcs []FuncProto

	Debug DebugInfo

	// Exports maps an exported name to the global ref it was installed
	// at, consulted by the import resolver when name resolves to this
	// module.
	Exports map[string]Ref

	// NumGlobals sizes the module-level frame's stack.
	NumGlobals int
}

// Main returns the instruction slice for the module's top-level body.
func (m *Module) Main() []Instr {
	out := make([]Instr, 0, m.MainEnd-m.MainStart)
	for i := m.MainStart; i < m.MainEnd; i++ {
		out = append(out, m.Code.At(i))
	}
	return out
}

// String materializes the (offset,length) string literal at a given
// instruction's StrOffset/StrLen.
func (m *Module) String(offset, length uint32) string {
	end := offset + length
	if int(end) > len(m.Strings) {
		end = uint32(len(m.Strings))
	}
	return string(m.Strings[offset:end])
}

// ExtraSlice returns the operand ref list for a variable-length opcode.
func (m *Module) ExtraSlice(index, length uint32) []Ref {
	end := index + length
	if int(end) > len(m.Extra) {
		end = uint32(len(m.Extra))
	}
	return m.Extra[index:end]
}
