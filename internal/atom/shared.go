package atom

// sharedNames is the compile-time shared atom prefix. Every Atom id in
// [0, len(sharedNames)) names an entry in this table; ids at or above that
// are per-program user atoms (see Table). The order and content of this
// table is part of the engine's wire format (spec §6.6): extending it is a
// breaking change, so new well-known names are appended, never inserted.
//
// Ported in name and order from the original engine's SharedAtoms table,
// less the platform-driver-specific names (GPIO/TCP/UDP/JSON/Base64 own
// their atoms through the native objects that implement them, which are
// out of scope here) and with the JS-like surface's own well-known names
// (constructor, length, push_back, join, prototype, iterator members)
// kept.
var sharedNames = [...]string{
	"Array",
	"Object",
	"Error",
	"None",
	"a",
	"arguments",
	"b",
	"c",
	"call",
	"constructor",
	"d",
	"done",
	"getValue",
	"iterator",
	"join",
	"length",
	"next",
	"prototype",
	"push_back",
	"setValue",
	"split",
	"trim",
	"value",
	"__nativeObject",
	"__this",
	"__typeName",
	"__count__",
}

// NSharedAtoms is the number of entries in the shared prefix.
const NSharedAtoms = len(sharedNames)

// Well-known atom ids, matching the index of their name in sharedNames.
// Keep in sync with sharedNames by construction (see
// TestSharedTableConsistency in atom_test.go).
const (
	Array Atom = iota
	Object
	Error
	None
	A
	Arguments
	B
	C
	Call
	Constructor
	D
	Done
	GetValue
	Iterator
	Join
	Length
	Next
	Prototype
	PushBack
	SetValue
	Split
	Trim
	Value
	NativeObject
	This
	TypeName
	Count
)

var sharedIndex map[string]Atom

func init() {
	sharedIndex = make(map[string]Atom, len(sharedNames))
	for i, n := range sharedNames {
		sharedIndex[n] = Atom(i)
	}
}
