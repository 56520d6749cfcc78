// Package heap implements the typed block allocator from spec §4.1: a
// single pre-claimed memory region addressed by 16-bit block-scaled
// handles (Mad<T>), with an address-ordered free list and first-fit,
// coalescing allocation.
package heap

import (
	"fmt"

	"github.com/edsrzf/mmap-go"
)

// Mad is a 16-bit block-scaled handle into a Heap. NoMad denotes null.
type Mad uint16

// NoMad is the invalid/null handle.
const NoMad Mad = 0xFFFF

// MemoryType tags an allocation's purpose for accounting, mirroring the
// source engine's MemoryType enum.
type MemoryType uint8

const (
	TypeUnknown MemoryType = iota
	TypeObject
	TypeString
	TypeInstruction
	TypeCallRecord
	TypeEventValue
	TypeConstantValue
	TypeFunctionEntry
	numMemoryTypes
)

func (t MemoryType) String() string {
	names := [...]string{"Unknown", "Object", "String", "Instruction", "CallRecord", "EventValue", "ConstantValue", "FunctionEntry"}
	if int(t) < len(names) {
		return names[t]
	}
	return "Invalid"
}

// header describes every allocation or free run: the next-block index
// for free-list chaining, its size in blocks, its memory type, and the GC
// mark bit. Headers are kept out-of-band in Heap.headers, indexed by the
// run's first block number, not inside the block arena.
type header struct {
	next     Mad // free-list successor, or NoMad
	sizeBlks uint16
	memType  MemoryType
	marked   bool
	free     bool
}

const headerBlocks = 1 // not used by the allocator: headers live in Heap.headers, outside the arena.

// blockSize4 is the smallest block size New will pick. 4 bytes is too
// small to hold a header inline: the Go header struct packed
// naturally, so the Go port keeps headers out-of-band in a parallel slice
// indexed by block number rather than inline in the byte arena — this
// preserves the handle-addressing contract (Mad values are still
// block-scaled offsets) while letting block sizes stay at the spec's
// 4/8/16 granularity for the payload area.
const (
	blockSize4  = 4
	blockSize8  = 8
	blockSize16 = 16
)

// maxBlocks is the largest block count a 16-bit handle can address
// (0xFFFF is reserved for NoMad).
const maxBlocks = 0xFFFF

// Heap is a single pre-claimed arena of block-scaled storage.
type Heap struct {
	mem       mmap.MMap
	blockSize int
	numBlocks int
	headers   []header
	freeHead  Mad

	counts [numMemoryTypes]struct {
		blocks uint32
		allocs uint32
	}
}

// New creates a Heap able to address sizeBytes of payload, choosing the
// smallest block size in {4, 8, 16} such that the heap fits within
// maxBlocks blocks (spec §4.1's block-sizing rule, bounding Mad<T> to 16
// bits for heaps up to 1 MB).
func New(sizeBytes int) (*Heap, error) {
	if sizeBytes <= 0 {
		return nil, fmt.Errorf("heap: size must be positive")
	}
	blockSize := blockSize4
	for _, bs := range []int{blockSize4, blockSize8, blockSize16} {
		if sizeBytes/bs <= maxBlocks {
			blockSize = bs
			break
		}
		blockSize = bs
	}
	numBlocks := sizeBytes / blockSize
	if numBlocks > maxBlocks {
		numBlocks = maxBlocks
	}
	if numBlocks < 1 {
		return nil, fmt.Errorf("heap: size %d too small for one block", sizeBytes)
	}
	mem, err := mmap.MapRegion(nil, numBlocks*blockSize, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, fmt.Errorf("heap: mmap: %w", err)
	}
	h := &Heap{
		mem:       mem,
		blockSize: blockSize,
		numBlocks: numBlocks,
		headers:   make([]header, numBlocks),
		freeHead:  0,
	}
	h.headers[0] = header{next: NoMad, sizeBlks: uint16(numBlocks), free: true}
	return h, nil
}

// Close releases the underlying mapped region.
func (h *Heap) Close() error {
	if h.mem == nil {
		return nil
	}
	err := h.mem.Unmap()
	h.mem = nil
	return err
}

// BlockSize returns the allocator's chosen block size in bytes.
func (h *Heap) BlockSize() int { return h.blockSize }

// Alloc reserves at least sizeBytes of payload tagged as memType, returning
// a handle or NoMad on exhaustion. First-fit over the address-ordered free
// list; splits off the remainder when the found block is larger than
// needed.
func (h *Heap) Alloc(sizeBytes int, memType MemoryType) Mad {
	needBlocks := (sizeBytes + h.blockSize - 1) / h.blockSize
	if needBlocks < 1 {
		needBlocks = 1
	}

	var prev Mad = NoMad
	cur := h.freeHead
	for cur != NoMad {
		hdr := &h.headers[cur]
		if int(hdr.sizeBlks) >= needBlocks {
			if int(hdr.sizeBlks) > needBlocks {
				remainder := Mad(int(cur) + needBlocks)
				h.headers[remainder] = header{
					next:     hdr.next,
					sizeBlks: hdr.sizeBlks - uint16(needBlocks),
					free:     true,
				}
				h.unlinkAndRelink(prev, cur, remainder)
			} else {
				h.unlinkAndRelink(prev, cur, hdr.next)
			}
			h.headers[cur] = header{sizeBlks: uint16(needBlocks), memType: memType, free: false}
			h.counts[memType].blocks += uint32(needBlocks)
			h.counts[memType].allocs++
			return cur
		}
		prev = cur
		cur = hdr.next
	}
	return NoMad
}

func (h *Heap) unlinkAndRelink(prev, removed, replacement Mad) {
	if prev == NoMad {
		h.freeHead = replacement
		return
	}
	h.headers[prev].next = replacement
	_ = removed
}

// Free returns handle to the free list, coalescing with its immediate
// address-order predecessor and successor.
func (h *Heap) Free(handle Mad) {
	if handle == NoMad {
		return
	}
	hdr := h.headers[handle]
	if hdr.free {
		return
	}
	h.counts[hdr.memType].blocks -= uint32(hdr.sizeBlks)
	h.counts[hdr.memType].allocs--

	h.insertFree(handle, hdr.sizeBlks)
}

func (h *Heap) insertFree(handle Mad, sizeBlks uint16) {
	var prev Mad = NoMad
	cur := h.freeHead
	for cur != NoMad && cur < handle {
		prev = cur
		cur = h.headers[cur].next
	}

	h.headers[handle] = header{next: cur, sizeBlks: sizeBlks, free: true}
	if prev == NoMad {
		h.freeHead = handle
	} else {
		h.headers[prev].next = handle
	}

	// Coalesce with successor first (so merged size is known before
	// trying the predecessor merge).
	if cur != NoMad && int(handle)+int(h.headers[handle].sizeBlks) == int(cur) {
		h.headers[handle].sizeBlks += h.headers[cur].sizeBlks
		h.headers[handle].next = h.headers[cur].next
	}
	if prev != NoMad && int(prev)+int(h.headers[prev].sizeBlks) == int(handle) {
		h.headers[prev].sizeBlks += h.headers[handle].sizeBlks
		h.headers[prev].next = h.headers[handle].next
	}
}

// Bytes returns a slice over the payload area of handle, sized to its
// block-rounded allocation. Resolving a handle is base + handle*blockSize,
// per spec §4.1.
func (h *Heap) Bytes(handle Mad) []byte {
	hdr := h.headers[handle]
	start := int(handle) * h.blockSize
	end := start + int(hdr.sizeBlks)*h.blockSize
	return h.mem[start:end]
}

// SizeBlocks returns the number of blocks occupied by handle's allocation.
func (h *Heap) SizeBlocks(handle Mad) int { return int(h.headers[handle].sizeBlks) }

// MemType returns the memory type tag of handle's allocation.
func (h *Heap) MemType(handle Mad) MemoryType { return h.headers[handle].memType }

// Mark sets the GC mark bit on handle's allocation.
func (h *Heap) Mark(handle Mad) { h.headers[handle].marked = true }

// Unmark clears the GC mark bit on handle's allocation.
func (h *Heap) Unmark(handle Mad) { h.headers[handle].marked = false }

// Marked reports handle's GC mark bit.
func (h *Heap) Marked(handle Mad) bool { return h.headers[handle].marked }

// IsFree reports whether handle currently names a free block.
func (h *Heap) IsFree(handle Mad) bool { return h.headers[handle].free }

// NumBlocks returns the heap's total block count.
func (h *Heap) NumBlocks() int { return h.numBlocks }

// Counts returns the (blocks, allocations) accounting for memType.
func (h *Heap) Counts(memType MemoryType) (blocks, allocs uint32) {
	c := h.counts[memType]
	return c.blocks, c.allocs
}

// Walk invokes fn for every allocated (non-free) block header, in address
// order. Used by the GC sweep phases to enumerate live candidates.
func (h *Heap) Walk(fn func(handle Mad, memType MemoryType, marked bool)) {
	var i Mad
	for int(i) < h.numBlocks {
		hdr := h.headers[i]
		if !hdr.free {
			fn(i, hdr.memType, hdr.marked)
		}
		if hdr.sizeBlks == 0 {
			break
		}
		i += Mad(hdr.sizeBlks)
	}
}
