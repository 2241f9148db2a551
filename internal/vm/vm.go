// Package vm implements the interpreter core: the dispatch loop, the
// call-frame model, the error-handler stack, and the value heap's
// wiring into opcode execution. The VM is built around a ref-indexed
// Frame model: every live value in a call lives at a dense integer
// offset into that frame's evaluation stack.
package vm

import (
	"ember/internal/bytecode"
	"ember/internal/diag"
	"ember/internal/value"
)

// maxRecursionDepth is the hard call-depth ceiling.
const maxRecursionDepth = 512

// Options is the VM configuration surface: a plain struct the embedder
// assigns fields on directly rather than a parsed env/flag config.
type Options struct {
	ImportFiles   bool
	Repl          bool
	MaxImportSize uint32
	PageLimit     uint32
}

// DefaultOptions returns the conservative defaults a standalone run
// should start from.
func DefaultOptions() Options {
	return Options{
		ImportFiles:   true,
		Repl:          false,
		MaxImportSize: 5 * 1024 * 1024,
		PageLimit:     value.DefaultPageBudget,
	}
}

// VM bundles the heap, frame cache, diagnostics reporter and import
// resolver one interpreter run shares.
type VM struct {
	Heap     *value.Heap
	Cache    *FrameCache
	Reporter *diag.Reporter
	Options  Options
	Resolver *ImportResolver
	Methods  methodRegistry

	callDepth int
}

// NewVM constructs a VM with the given options. compiler may be nil if
// the embedder never enables file imports.
func NewVM(opts Options, compiler Compiler) *VM {
	if opts.PageLimit == 0 {
		opts.PageLimit = value.DefaultPageBudget
	}
	if opts.MaxImportSize == 0 {
		opts.MaxImportSize = 5 * 1024 * 1024
	}
	vm := &VM{
		Heap:     value.NewHeap(int(opts.PageLimit)),
		Cache:    NewFrameCache(),
		Reporter: diag.NewReporter(),
		Options:  opts,
		Methods:  newMethodRegistry(),
	}
	vm.Resolver = NewImportResolver(vm, compiler)
	return vm
}

// RegisterNativePackage installs a native package thunk under name,
// consulted by ImportResolver step 3.
func (vm *VM) RegisterNativePackage(name string, pkg NativePackage) {
	vm.Resolver.RegisterNative(name, pkg)
}

// RunModule executes module's top-level body as the program entry
// point and returns its result value
// description ("the dispatch loop runs until ret/ret_null/fatal").
func (vm *VM) RunModule(module *bytecode.Module) (value.Value, error) {
	result, frame, err := vm.runModuleFrame(module)
	if err != nil {
		// Fatal exit: drop the frame's stack/handlers rather than
		// returning them to the cache.
		return nil, err
	}
	s, h := frame.ReleaseToCache()
	vm.Cache.Release(s, h)
	return result, nil
}

// runModuleFrame is RunModule's implementation, additionally returning
// the module's own frame so callers that need its globals (the import
// resolver, building an export map) can read them before the frame's
// stack is truncated back into the cache. The caller owns releasing
// the frame's stack/handlers back to vm.Cache.
func (vm *VM) runModuleFrame(module *bytecode.Module) (value.Value, *Frame, error) {
	frame := NewFrame(module, nil, value.NullValue, nil, 0, vm.Reporter, "<module>")
	stack, handlers := vm.Cache.Acquire()
	frame.Adopt(stack, handlers)
	frame.EnsureCapacity(module.NumGlobals)
	frame.ip = module.MainStart

	result, err := vm.run(frame, module.MainEnd)
	return result, frame, err
}
