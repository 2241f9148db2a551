// cmd/ember/main.go
package main

import (
	"fmt"
	"os"

	"ember/internal/bytecode"
	"ember/internal/stdlib"
	"ember/internal/value"
	"ember/internal/vm"
)

const version = "0.1.0"

// Command aliases for the single-word dispatch table below. ember
// ships the interpreter core, not a compiler front-end, so there is no
// check/lint/fmt/build/watch surface to expose here.
var commandAliases = map[string]string{
	"r": "run",
	"d": "demo",
	"v": "version",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		fmt.Printf("ember %s\n", version)
	case "demo":
		runDemo()
	case "run":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: ember run <file>")
			os.Exit(1)
		}
		runFile(args[1])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println("ember - a small bytecode-interpreter runtime")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ember run <file>      Run a script (no compiler in this build) (alias: r)")
	fmt.Println("  ember demo            Run a built-in smoke-test module (alias: d)")
	fmt.Println("  ember version         Print the version               (alias: v)")
}

// runFile reports that path cannot be run and exits with status 1.
// ember's interpreter core takes a pre-compiled *bytecode.Module; this
// build has no Compiler wired in, so a source file can only be run once
// an embedder supplies one via vm.NewVM(opts, compiler).
func runFile(path string) {
	fmt.Fprintf(os.Stderr, "ember: no compiler front-end is configured in this build; "+
		"%s was not run. Construct a *bytecode.Module directly and call vm.RunModule, "+
		"or wire an implementation of vm.Compiler into vm.NewVM.\n", path)
	os.Exit(1)
}

// runDemo hand-assembles a tiny module computing 1 + 2 * 3 and prints
// its result, exercising the dispatch loop, the stdlib registry, and
// the VM's default options end-to-end without requiring a compiler.
func runDemo() {
	module := demoModule()

	machine := vm.NewVM(vm.DefaultOptions(), nil)
	stdlib.RegisterAll(machine)

	result, err := machine.RunModule(module)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ember: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(render(result))
}

func render(v value.Value) string {
	switch x := v.(type) {
	case value.Int:
		return fmt.Sprintf("%d", x.V)
	case value.Num:
		return fmt.Sprintf("%g", x.V)
	case *value.Str:
		return x.String()
	default:
		return value.TypeName(v)
	}
}

// demoModule builds: r0 = 2; r1 = 3; r2 = r0 * r1; r3 = 1; r4 = r3 + r2; ret r4.
func demoModule() *bytecode.Module {
	var code bytecode.Code
	code.Append(bytecode.Instr{Op: bytecode.OpInt, A: 0, IntLit: 2})
	code.Append(bytecode.Instr{Op: bytecode.OpInt, A: 1, IntLit: 3})
	code.Append(bytecode.Instr{Op: bytecode.OpMul, A: 2, B: 0, C: 1})
	code.Append(bytecode.Instr{Op: bytecode.OpInt, A: 3, IntLit: 1})
	code.Append(bytecode.Instr{Op: bytecode.OpAdd, A: 4, B: 3, C: 2})
	code.Append(bytecode.Instr{Op: bytecode.OpRet, B: 4})

	return &bytecode.Module{
		Path:       "<demo>",
		MainStart:  0,
		MainEnd:    code.Len(),
		Code:       code,
		NumGlobals: 5,
	}
}
