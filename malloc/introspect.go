/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package malloc

// contains reports whether p falls inside a reserved page at a position a
// payload could start at.
func (h *BuddyHeap) contains(p Ptr) bool {
	if !h.initialized || p.IsNil() {
		return false
	}
	off := p.Offset()
	return p.Page() < len(h.pages) && off >= HeaderSize && off < h.arenaSize
}

// AllocSize returns the payload capacity of the allocation at p,
// or 0 if the block at p is free.
//
// p should be a pointer this heap has handed out; other values in range
// return whatever their bytes decode to.
func (h *BuddyHeap) AllocSize(p Ptr) int {
	if !h.contains(p) {
		return 0
	}
	hdr := h.header(p)
	if !hdr.allocated() {
		return 0
	}
	return hdr.size()
}

// IsAllocated reports whether p is the start of a live allocation.
// Unlike AllocSize it is safe for any value of p: it scans the block list
// of p's page looking for an allocated block whose payload starts at p.
func (h *BuddyHeap) IsAllocated(p Ptr) bool {
	if !h.contains(p) {
		return false
	}
	mem := h.pages[p.Page()].mem
	for off := 0; off != noBlock; {
		hdr := header{mem: mem, off: off}
		if hdr.payload() == p.Offset() {
			return hdr.allocated()
		}
		if hdr.payload() > p.Offset() {
			return false
		}
		off = hdr.next()
	}
	return false
}

// TotalAllocated returns the payload bytes currently allocated,
// not including any header overhead.
func (h *BuddyHeap) TotalAllocated() int {
	return h.allocated
}

// Bytes returns the payload of the allocation at p, len(Bytes(p)) == AllocSize(p).
// It returns nil if p is not a live allocation.
func (h *BuddyHeap) Bytes(p Ptr) []byte {
	if !h.IsAllocated(p) {
		return nil
	}
	return h.payload(p, h.header(p).size())
}

// Stats describes the geometry and usage of a heap.
type Stats struct {
	ArenaSize    int
	Pages        int
	HeaderSize   int
	MinBlockSize int

	// Allocated is the payload bytes handed out, as TotalAllocated.
	Allocated int
	// PageUsed is the slot bytes handed out per page, headers included.
	PageUsed []int

	Blocks     int
	FreeBlocks int
}

// Stats walks every page and returns a snapshot of its usage.
func (h *BuddyHeap) Stats() Stats {
	s := Stats{
		ArenaSize:    h.arenaSize,
		Pages:        len(h.pages),
		HeaderSize:   HeaderSize,
		MinBlockSize: h.minBlockSize,
		Allocated:    h.allocated,
		PageUsed:     make([]int, len(h.pages)),
	}
	for i := range h.pages {
		s.PageUsed[i] = h.pages[i].used
		h.Walk(i, func(b BlockInfo) bool {
			s.Blocks++
			if !b.Allocated {
				s.FreeBlocks++
			}
			return true
		})
	}
	return s
}
