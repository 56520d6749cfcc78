// Package atom implements the interned-identifier table described in
// spec §3 (Atom) and §4.3 (Atom table).
//
// An Atom is a 16-bit id. Ids in [0, NSharedAtoms) name an entry in the
// compile-time shared table (shared.go); ids at or above that index a
// per-program growing table of user identifiers, stored as a byte vector
// of `[length][bytes...]` records where length is encoded as a negated
// byte (its high bit set marks the start of a record) — ported directly
// from the original engine's AtomTable layout.
package atom

import "fmt"

// Atom is an interned identifier id.
type Atom uint16

// NoAtom is the invalid/empty atom.
const NoAtom Atom = 0xFFFF

// MaxUserAtomLength is the longest identifier the table can intern.
const MaxUserAtomLength = 127

// Table holds the per-program user-atom store on top of the shared prefix.
// The zero value is ready to use.
type Table struct {
	// bytes holds records of the form: one byte of -(len), followed by
	// len raw bytes. Appends only; ids are stable for the table's life.
	bytes []byte
	// offsets[i] is the byte offset into bytes of the i-th user atom's
	// length byte. offsets[i] + NSharedAtoms is that atom's id.
	offsets []int
}

// Atomize interns s, returning its Atom id. Repeated calls with equal
// strings return the same id (exact-string dedup, linear scan as spec
// §4.3 specifies — compile-time identifier counts are small enough that
// this never shows up in a profile).
func (t *Table) Atomize(s string) (Atom, error) {
	if len(s) > MaxUserAtomLength {
		return NoAtom, fmt.Errorf("atom: identifier %q exceeds max length %d", s, MaxUserAtomLength)
	}
	if a, ok := sharedIndex[s]; ok {
		return a, nil
	}
	for i, off := range t.offsets {
		if t.recordAt(off) == s {
			return Atom(NSharedAtoms + i), nil
		}
	}
	off := len(t.bytes)
	t.bytes = append(t.bytes, byte(-int8(len(s))))
	t.bytes = append(t.bytes, s...)
	t.offsets = append(t.offsets, off)
	return Atom(NSharedAtoms + len(t.offsets) - 1), nil
}

// String returns the name for atom a, or "" if a is NoAtom or out of range.
func (t *Table) String(a Atom) string {
	if a == NoAtom {
		return ""
	}
	if int(a) < NSharedAtoms {
		return sharedNames[a]
	}
	idx := int(a) - NSharedAtoms
	if idx < 0 || idx >= len(t.offsets) {
		return ""
	}
	return t.recordAt(t.offsets[idx])
}

// IsShared reports whether a names an entry in the compile-time prefix.
func (t *Table) IsShared(a Atom) bool { return int(a) < NSharedAtoms }

func (t *Table) recordAt(off int) string {
	length := int(-int8(t.bytes[off]))
	return string(t.bytes[off+1 : off+1+length])
}

// Len returns the number of user atoms interned so far.
func (t *Table) Len() int { return len(t.offsets) }
