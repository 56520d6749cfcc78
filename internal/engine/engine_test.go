package engine

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/cmarrin/m8rscript-sub000/internal/hostsys"
)

// capturingSystem is a hostsys.Host that records Printf output instead of
// writing to stdout, so tests can assert on what println() produced.
type capturingSystem struct {
	*hostsys.Host

	mu  sync.Mutex
	out strings.Builder
}

func newCapturingSystem() *capturingSystem {
	return &capturingSystem{Host: hostsys.New()}
}

func (c *capturingSystem) Printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out.WriteString(fmt.Sprintf(format, args...))
}

func (c *capturingSystem) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.String()
}

func TestNewAndClose(t *testing.T) {
	e, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.ID.String() == "" {
		t.Fatal("Engine.ID should be a valid uuid")
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestLoadAndRunEmptyScript(t *testing.T) {
	e, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	if _, err := e.Load(""); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !e.scheduler.Empty() {
		t.Fatal("scheduler should be empty once the only script finishes")
	}
}

func TestLoadRejectsBadSyntax(t *testing.T) {
	e, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	if _, err := e.Load("{{{"); err == nil {
		t.Fatal("Load should reject unparseable source")
	}
}

func TestPrintlnWritesToSystemInterface(t *testing.T) {
	sys := newCapturingSystem()
	e, err := New(Options{System: sys})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	if _, err := e.Load(`println("hello", 1, 2);`); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := sys.String(), "hello 1 2\n"; got != want {
		t.Fatalf("println output = %q, want %q", got, want)
	}
}

func TestArrayPushBackJoinAndLength(t *testing.T) {
	sys := newCapturingSystem()
	e, err := New(Options{System: sys})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	src := `
		var a = [1, 2, 3];
		a.push_back(4);
		println(a.length);
		println(a.join(","));
	`
	if _, err := e.Load(src); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := sys.String(), "4\n1,2,3,4\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestArrayLengthTruncatesOnAssignment(t *testing.T) {
	sys := newCapturingSystem()
	e, err := New(Options{System: sys})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	src := `
		var a = [1, 2, 3, 4];
		a.length = 2;
		println(a.join(","));
	`
	if _, err := e.Load(src); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := sys.String(), "1,2\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestArgumentsObjectCarriesExtraCallArgs(t *testing.T) {
	sys := newCapturingSystem()
	e, err := New(Options{System: sys})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	src := `
		function f(a) {
			println(arguments.length);
			println(arguments[0]);
			println(arguments[2]);
		}
		f(10, 20, 30);
	`
	if _, err := e.Load(src); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := sys.String(), "3\n10\n30\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestDelayYieldsWithoutLosingSubsequentOutput(t *testing.T) {
	sys := newCapturingSystem()
	e, err := New(Options{System: sys})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	src := `
		println("before");
		delay(5);
		println("after");
	`
	if _, err := e.Load(src); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := sys.String(), "before\nafter\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestSwitchStatementRunsMatchingCaseOnly(t *testing.T) {
	sys := newCapturingSystem()
	e, err := New(Options{System: sys})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	src := `
		var x = 2;
		switch (x) {
		case 1:
			println("one");
			break;
		case 2:
			println("two");
			break;
		default:
			println("other");
		}
	`
	if _, err := e.Load(src); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := sys.String(), "two\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestForInStatementWalksArrayIndices(t *testing.T) {
	sys := newCapturingSystem()
	e, err := New(Options{System: sys})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	src := `
		var a = [7, 8, 9];
		for (var i in a) {
			println(a[i]);
		}
	`
	if _, err := e.Load(src); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := sys.String(), "7\n8\n9\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}
