// Command m8rc compiles and runs one script file against a host-process
// Engine.
//
// Usage:
//
//	m8rc [flags] <source.m8r>
//
// Flags:
//
//	-disassemble   Print the compiled bytecode instead of running it
//	-config <path> Load engine tunables from a TOML file; only the heap
//	               size is applied (GC and scheduler values are read but
//	               not used)
//	-debug         Run the VM in debug mode (stack snapshots on error)
//	-version       Print version and exit
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cmarrin/m8rscript-sub000/internal/compiler"
	"github.com/cmarrin/m8rscript-sub000/internal/config"
	"github.com/cmarrin/m8rscript-sub000/internal/diag"
	"github.com/cmarrin/m8rscript-sub000/internal/engine"
	"github.com/cmarrin/m8rscript-sub000/internal/hostsys"
	"github.com/cmarrin/m8rscript-sub000/internal/object"
	"github.com/cmarrin/m8rscript-sub000/internal/opcode"
)

const version = "0.1.0"

func main() {
	var (
		disassemble = flag.Bool("disassemble", false, "Print compiled bytecode instead of running it")
		configPath  = flag.String("config", "", "Load engine tunables from a TOML file")
		debug       = flag.Bool("debug", false, "Run the VM in debug mode")
		ver         = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *ver {
		fmt.Printf("m8rc %s\n", version)
		return
	}

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: m8rc [flags] <source.m8r>")
		os.Exit(1)
	}

	filename := flag.Arg(0)
	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	if *disassemble {
		runDisassemble(filename, string(source))
		return
	}

	if err := run(cfg, string(source), *debug); err != nil {
		fmt.Fprintln(diag.Writer(os.Stderr), err)
		os.Exit(1)
	}
}

func runDisassemble(filename, source string) {
	prog := object.NewProgram()
	if err := compiler.Compile(source, prog); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", filename, err)
		os.Exit(1)
	}
	fmt.Print(opcode.Disassemble(prog.Code()))
}

func run(cfg config.Config, source string, debug bool) error {
	host := hostsys.New()
	host.SetDeviceName("m8rc")

	e, err := engine.New(engine.Options{
		HeapBytes: cfg.Heap.SizeBytes,
		System:    host,
		Debug:     debug,
	})
	if err != nil {
		return fmt.Errorf("m8rc: %w", err)
	}
	defer e.Close()

	if _, err := e.Load(source); err != nil {
		return err
	}
	return e.Run()
}
