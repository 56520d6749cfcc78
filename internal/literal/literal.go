// Package literal implements the per-program string literal table from
// spec §3 (StringLiteral) and §4.3 (Literal table): a byte vector of
// NUL-terminated strings, addressed by byte offset, deduplicated on exact
// string match.
package literal

import "strings"

// ID is a 32-bit offset into a Table's byte arena.
type ID uint32

// NoID denotes "no literal".
const NoID ID = 0xFFFFFFFF

// Table is a per-program growable literal arena. The zero value is ready
// to use.
type Table struct {
	bytes []byte
}

// Add interns s, returning its ID. A second Add of an equal string returns
// the same ID (spec's round-trip law: stringLiteralFromString is
// idempotent).
func (t *Table) Add(s string) ID {
	if id, ok := t.find(s); ok {
		return id
	}
	id := ID(len(t.bytes))
	t.bytes = append(t.bytes, s...)
	t.bytes = append(t.bytes, 0)
	return id
}

// String returns the string stored at id, or "" if id is out of range.
func (t *Table) String(id ID) string {
	if id == NoID || int(id) >= len(t.bytes) {
		return ""
	}
	end := int(id)
	for end < len(t.bytes) && t.bytes[end] != 0 {
		end++
	}
	return string(t.bytes[id:end])
}

// find performs the linear dedup scan spec §4.3 mandates.
func (t *Table) find(s string) (ID, bool) {
	needle := s + "\x00"
	search := 0
	for {
		rel := strings.Index(string(t.bytes[search:]), needle)
		if rel < 0 {
			return 0, false
		}
		idx := search + rel
		if idx == 0 || t.bytes[idx-1] == 0 {
			return ID(idx), true
		}
		// False match spanning a record boundary; resume just past it.
		search = idx + 1
	}
}

// Len returns the number of bytes in the arena.
func (t *Table) Len() int { return len(t.bytes) }
