// Package engine wires one runnable instance of the scripting runtime:
// a heap, its GC, the object store, the atom/literal tables of the
// loaded program, a task scheduler, and an event queue, all owned by a
// single struct rather than the package-level statics
// `original_source/src/SystemInterface.h` keeps (its process-wide
// `SystemInterface::get()` singleton). Spec §9 calls for exactly this:
// "encapsulate [global state] in a single Engine/Runtime struct... one
// engine per logical instance", generalized from
// `probe-lang/integration/engine.go`'s construct-then-Execute shape
// (there: one Contract run per call; here: one long-lived script run
// per Engine, possibly spawning further tasks of its own).
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"github.com/cmarrin/m8rscript-sub000/internal/compiler"
	"github.com/cmarrin/m8rscript-sub000/internal/event"
	"github.com/cmarrin/m8rscript-sub000/internal/heap"
	"github.com/cmarrin/m8rscript-sub000/internal/hostsys"
	"github.com/cmarrin/m8rscript-sub000/internal/object"
	"github.com/cmarrin/m8rscript-sub000/internal/sched"
	"github.com/cmarrin/m8rscript-sub000/internal/sysiface"
	"github.com/cmarrin/m8rscript-sub000/internal/value"
	"github.com/cmarrin/m8rscript-sub000/internal/vm"
)

// importCacheSize bounds how many distinct import() sources this engine
// keeps compiled results for.
const importCacheSize = 32

// Options configures a new Engine. HeapBytes and System fall back to
// sane defaults (internal/config supplies the CLI's own TOML-derived
// values; tests may leave these zero to get the defaults directly).
type Options struct {
	HeapBytes int
	System    sysiface.SystemInterface
	Debug     bool
}

const defaultHeapBytes = 64 * 1024

// Engine is one instance of the runtime: everything a running script
// needs that used to live in process-wide statics.
type Engine struct {
	ID uuid.UUID

	heap      *heap.Heap
	gc        *heap.GC
	store     *object.Store
	scheduler *sched.Scheduler
	events    *event.Queue
	system    sysiface.SystemInterface
	debug     bool

	importCache *lru.Cache
}

// New creates an Engine ready to load and run scripts. Callers must
// call Close once done, to release the heap's mapped memory.
func New(opts Options) (*Engine, error) {
	heapBytes := opts.HeapBytes
	if heapBytes <= 0 {
		heapBytes = defaultHeapBytes
	}
	h, err := heap.New(heapBytes)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	store := object.NewStore(h)
	gc := heap.NewGC(h)
	gc.MarkObject = store.MarkObject
	gc.Destroy = store.Destroy

	cache, err := lru.New(importCacheSize)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("engine: %w", err)
	}

	system := opts.System
	if system == nil {
		system = hostsys.New()
	}

	return &Engine{
		ID:          uuid.New(),
		heap:        h,
		gc:          gc,
		store:       store,
		scheduler:   sched.New(nil),
		events:      event.New(),
		system:      system,
		debug:       opts.Debug,
		importCache: cache,
	}, nil
}

// Close releases the Engine's heap.
func (e *Engine) Close() error {
	return e.heap.Close()
}

// Events returns the Engine's event queue, for the host to Post to.
func (e *Engine) Events() *event.Queue { return e.events }

// Load compiles src into a fresh program, creates a VM positioned at its
// top level, schedules it to run, and returns the scheduler's task id
// for it.
func (e *Engine) Load(src string) (uuid.UUID, error) {
	prog := object.NewProgram()
	if err := compiler.Compile(src, prog); err != nil {
		return uuid.UUID{}, err
	}

	v := vm.New(prog, vm.Options{
		Store:  e.store,
		Heap:   e.heap,
		GC:     e.gc,
		Events: e.events,
		Debug:  e.debug,
	})
	prevRoots := e.gc.MarkRoots
	e.gc.MarkRoots = func(mark heap.MarkFunc) {
		if prevRoots != nil {
			prevRoots(mark)
		}
		v.MarkRoots(mark)
	}
	e.registerImport(v, prog)
	e.registerGlobals(v, prog)

	return e.scheduler.Add(v), nil
}

// Run drives the scheduler until every loaded script has finished,
// advancing the GC by one phase per scheduler iteration whenever
// ShouldRun reports true, the way spec §4.2's Heartbeat-driven
// cadence does. Mirrors Scheduler.Run's own wait-for-fire-time loop
// rather than calling ExecuteNextTask back to back — ExecuteNextTask
// always pops and runs the earliest task regardless of whether its fire
// time has actually arrived, so the caller is the one responsible for
// not getting there early.
func (e *Engine) Run() error {
	for !e.scheduler.Empty() {
		if wait := e.scheduler.NextTimeToFire().Sub(e.scheduler.Now()); wait > 0 {
			time.Sleep(wait)
		}

		e.gc.NoteAllocation()
		if e.gc.ShouldRun() {
			e.gc.Tick(false)
		}
		if _, err := e.scheduler.ExecuteNextTask(); err != nil {
			return err
		}
	}
	return nil
}

// registerImport wires import()/importString() onto prog's global
// object as native functions bound to v, per Global.cpp's registration
// of both names onto the program global pointing at
// ExecutionUnit::import(). Results are cached by source text so a
// script that imports the same module twice only compiles it once.
func (e *Engine) registerImport(v *vm.VM, prog *object.Program) {
	importFn := value.NativeFunction(func(ctx value.NativeContext, this value.Value, nparams int32) (value.CallReturnValue, error) {
		if nparams < 1 {
			return value.CallReturnValue{Kind: value.CallReturnError, N: int32(value.ErrWrongNumberOfParams)}, nil
		}
		src := v.ToString(v.ArgN(nparams, 0))

		if cached, ok := e.importCache.Get(src); ok {
			ctx.PushReturn(cached.(value.Value))
			return value.CallReturnValue{Kind: value.CallReturnCount, N: 1}, nil
		}

		result, err := v.Import(src)
		if err != nil {
			return value.CallReturnValue{Kind: value.CallReturnError, N: int32(value.ErrSyntaxErrors)}, nil
		}
		e.importCache.Add(src, result)
		ctx.PushReturn(result)
		return value.CallReturnValue{Kind: value.CallReturnCount, N: 1}, nil
	})

	for _, name := range []string{"import", "importString"} {
		a, err := prog.Atoms.Atomize(name)
		if err != nil {
			continue
		}
		prog.Global.SetProperty(a, importFn, object.SetPropertyAlwaysAdd)
	}
}

// registerGlobals wires the two native globals every spec §8 end-to-end
// scenario calls: println(...), which writes its space-joined,
// string-coerced arguments to the engine's SystemInterface (spec §6.1's
// printf), and delay(ms), which yields the calling task back to the
// scheduler for ms milliseconds (spec §4.8's MsDelay CallReturnValue).
func (e *Engine) registerGlobals(v *vm.VM, prog *object.Program) {
	printlnFn := value.NativeFunction(func(ctx value.NativeContext, this value.Value, nparams int32) (value.CallReturnValue, error) {
		parts := make([]string, nparams)
		for i := int32(0); i < nparams; i++ {
			parts[i] = v.ToString(v.ArgN(nparams, i))
		}
		e.system.Printf("%s\n", strings.Join(parts, " "))
		return value.CallReturnValue{Kind: value.CallReturnCount, N: 0}, nil
	})

	delayFn := value.NativeFunction(func(ctx value.NativeContext, this value.Value, nparams int32) (value.CallReturnValue, error) {
		if nparams < 1 {
			return value.CallReturnValue{Kind: value.CallReturnError, N: int32(value.ErrWrongNumberOfParams)}, nil
		}
		ms := v.ArgN(nparams, 0).AsInt()
		return value.CallReturnValue{Kind: value.CallReturnMsDelay, N: ms}, nil
	})

	for name, fn := range map[string]value.Value{"println": printlnFn, "delay": delayFn} {
		a, err := prog.Atoms.Atomize(name)
		if err != nil {
			continue
		}
		prog.Global.SetProperty(a, fn, object.SetPropertyAlwaysAdd)
	}
}
