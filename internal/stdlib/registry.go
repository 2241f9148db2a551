// Package stdlib wires ember's native packages: host-backed
// functionality the interpreter core itself knows nothing about,
// registered into a VM's ImportResolver under names an import opcode
// resolves against. Each package is a thunk lazily building its export
// Map the first time it is imported.
package stdlib

import "ember/internal/vm"

// RegisterAll installs every native package this module ships with
// onto vm. An embedder that wants a narrower surface can instead pass
// the individual package thunks (DB, Crypto, Net, Fmt, ID) to
// RegisterNativePackage directly.
func RegisterAll(v *vm.VM) {
	v.RegisterNativePackage("std.db", DB)
	v.RegisterNativePackage("std.crypto", Crypto)
	v.RegisterNativePackage("std.net", Net)
	v.RegisterNativePackage("std.fmt", Fmt)
	v.RegisterNativePackage("std.id", ID)
}
