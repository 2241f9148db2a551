package vm

import (
	"os"
	"path/filepath"
	"strings"

	"ember/internal/bytecode"
	"ember/internal/value"
)

// fileExtension is the language's source file extension, used to
// distinguish a file-module import from a native-package import in
// step 2.
const fileExtension = ".sn"

// Compiler is the external compiler front-end's interface as the core
// sees it: an opaque "turn source bytes into a Module" step. The
// compiler itself is out of scope for this module; this is the seam
// the ImportResolver calls through.
type Compiler interface {
	Compile(path string, src []byte) (*bytecode.Module, error)
}

// importedModule tracks one resolved import's cached state.
type importedModule struct {
	value    value.Value
	executed bool
	module   *bytecode.Module
}

// ImportResolver maps import names to either a registered native
// package or a compiled file module, caching results for the lifetime
// of the VM. Not thread-safe — the interpreter is strictly
// single-threaded, so the resolver carries no lock: there is no
// second goroutine that could ever contend for one.
type ImportResolver struct {
	vm       *VM
	compiler Compiler

	cache   map[string]*importedModule
	natives map[string]NativePackage

	searchPaths []string
	currentDir  string
}

func NewImportResolver(vm *VM, compiler Compiler) *ImportResolver {
	return &ImportResolver{
		vm:          vm,
		compiler:    compiler,
		cache:       make(map[string]*importedModule),
		natives:     make(map[string]NativePackage),
		searchPaths: []string{"."},
		currentDir:  ".",
	}
}

func (r *ImportResolver) RegisterNative(name string, pkg NativePackage) {
	r.natives[name] = pkg
}

// SetCurrentDirectory sets the base directory relative file imports
// resolve against.
func (r *ImportResolver) SetCurrentDirectory(dir string) {
	r.currentDir = dir
}

// Import implements four-step lookup.
func (r *ImportResolver) Import(name string) (value.Value, error) {
	// Step 1: already resolved.
	if cached, ok := r.cache[name]; ok {
		if !cached.executed && cached.module != nil {
			if err := r.execute(name, cached); err != nil {
				return nil, err
			}
		}
		return cached.value, nil
	}

	// Step 2: file-module import.
	if strings.HasSuffix(name, fileExtension) {
		if !r.vm.Options.ImportFiles {
			return nil, value.Throwf("importing disabled by host")
		}
		return r.importFile(name)
	}

	// Step 3: native package registry.
	if pkg, ok := r.natives[name]; ok {
		v, err := pkg(r.vm)
		if err != nil {
			return nil, err
		}
		r.cache[name] = &importedModule{value: v, executed: true}
		return v, nil
	}

	// Step 4.
	return nil, value.Throwf("no such package: %s", name)
}

func (r *ImportResolver) importFile(name string) (value.Value, error) {
	resolvedPath, err := r.resolvePath(name)
	if err != nil {
		return nil, value.Throwf("%v", err)
	}

	info, err := os.Stat(resolvedPath)
	if err != nil {
		return nil, value.Throwf("module not found: %s", name)
	}
	if uint32(info.Size()) > r.vm.Options.MaxImportSize {
		return nil, value.Throwf("import %s exceeds max import size (%d bytes)", name, r.vm.Options.MaxImportSize)
	}

	src, err := os.ReadFile(resolvedPath)
	if err != nil {
		return nil, value.Throwf("failed to read module %s: %v", name, err)
	}

	if r.compiler == nil {
		return nil, value.Throwf("file import compiled by an external front-end that was not configured on this VM")
	}
	module, err := r.compiler.Compile(resolvedPath, src)
	if err != nil {
		return nil, value.Throwf("compile error in module %s: %v", name, err)
	}

	entry := &importedModule{module: module}
	r.cache[name] = entry
	if err := r.execute(name, entry); err != nil {
		delete(r.cache, name)
		return nil, err
	}
	return entry.value, nil
}

// execute runs a cached-but-not-yet-executed module's main body. If the
// module declares exports, the import's value is a Map of export name
// to the value bound at that name's global ref in the module's own
// frame; otherwise the import's value is whatever the main body
// returned.
func (r *ImportResolver) execute(_ string, entry *importedModule) error {
	oldDir := r.currentDir
	r.currentDir = filepath.Dir(entry.module.Path)
	defer func() { r.currentDir = oldDir }()

	result, frame, err := r.vm.runModuleFrame(entry.module)
	if err != nil {
		return err
	}

	if len(entry.module.Exports) > 0 {
		exports := value.NewMap()
		for name, ref := range entry.module.Exports {
			exports.Set(value.NewStr(name), frame.Val(ref))
		}
		entry.value = exports
	} else {
		entry.value = result
	}

	s, h := frame.ReleaseToCache()
	r.vm.Cache.Release(s, h)
	entry.executed = true
	return nil
}

func (r *ImportResolver) resolvePath(name string) (string, error) {
	path := name
	if strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") {
		rel := filepath.Join(r.currentDir, path)
		abs, err := filepath.Abs(rel)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(abs); err == nil {
			return abs, nil
		}
		return "", notFoundErr(path)
	}
	for _, sp := range r.searchPaths {
		abs, err := filepath.Abs(filepath.Join(sp, path))
		if err != nil {
			continue
		}
		if _, err := os.Stat(abs); err == nil {
			return abs, nil
		}
	}
	return "", notFoundErr(path)
}

func notFoundErr(path string) error {
	return value.Throwf("module not found: %s", path)
}
