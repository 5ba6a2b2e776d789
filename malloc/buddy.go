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

import (
	"fmt"
	"log/slog"
)

// BuddyHeap is a buddy allocator over one or more fixed-size pages.
//
// Every block, free or allocated, is prefixed by a header, and the headers of
// a page form a doubly linked list in address order that partitions the page
// exactly. Blocks are always A/2^k bytes including the header, where A is the
// page size.
//
// BuddyHeap is not safe for concurrent use.
type BuddyHeap struct {
	pages        []page
	arenaSize    int
	minBlockSize int
	depth        int
	source       ArenaSource
	logger       *slog.Logger

	// allocated is the payload bytes handed out across all pages, headers excluded.
	allocated int

	// cursor is the header of the block returned by the last Malloc.
	// It is only a hint for where to resume scanning and is dropped on Free.
	cursorPage int
	cursor     int

	initialized bool
}

// NewBuddyHeap creates a heap from o. A nil o means DefaultOption().
// No memory is reserved until the first call into the heap or Init.
func NewBuddyHeap(o *Option) (*BuddyHeap, error) {
	if o == nil {
		o = DefaultOption()
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	h := &BuddyHeap{
		pages:        make([]page, o.Pages),
		arenaSize:    o.ArenaSize,
		minBlockSize: o.MinBlockSize,
		depth:        o.treeDepth(),
		source:       o.Source,
		logger:       o.Logger,
		cursor:       noBlock,
	}
	if h.source == nil {
		h.source = HeapSource{}
	}
	if h.logger == nil {
		h.logger = discardLogger()
	}
	return h, nil
}

// Init reserves every page and lays a single free block across each.
// It is called implicitly by Malloc and Realloc; later calls are no-ops.
func (h *BuddyHeap) Init() error {
	if h.initialized {
		return nil
	}
	for i := range h.pages {
		mem, err := h.source.Reserve(h.arenaSize)
		if err != nil {
			return fmt.Errorf("reserve page %d: %w", i, err)
		}
		if len(mem) < h.arenaSize {
			return fmt.Errorf("reserve page %d: got %d bytes, want %d", i, len(mem), h.arenaSize)
		}
		h.pages[i].mem = mem[:h.arenaSize:h.arenaSize]
		header{mem: h.pages[i].mem}.reset(i, h.arenaSize)
	}
	h.initialized = true
	h.logger.Debug("arena reserved", "pages", len(h.pages), "arena_size", h.arenaSize)
	return nil
}

// perfectFit reports whether halving a slot of the given size would make it
// too small for required bytes. A request that fills the slot exactly fits.
func perfectFit(slot, required int) bool {
	return slot>>1 < required && required <= slot
}

// Malloc allocates a block with at least size bytes of payload and returns a
// pointer to it. Requests below the minimum block size are rounded up.
// It returns ErrOutOfMemory when no page has a large enough block.
func (h *BuddyHeap) Malloc(size int) (Ptr, error) {
	if size < 0 {
		return Nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if err := h.Init(); err != nil {
		return Nil, err
	}
	if size < h.minBlockSize {
		size = h.minBlockSize
	}
	if size < h.arenaSize {
		for i := range h.pages {
			if p, ok := h.allocFrom(i, size); ok {
				return p, nil
			}
		}
	}
	h.logger.Debug("out of memory", "size", size, "allocated", h.allocated)
	return Nil, ErrOutOfMemory
}

func (h *BuddyHeap) allocFrom(i, size int) (Ptr, bool) {
	pg := &h.pages[i]
	// cheap admission check, the block search below may still fail
	if pg.used+size+HeaderSize >= h.arenaSize {
		return Nil, false
	}

	start := 0
	if h.cursor != noBlock && h.cursorPage == i {
		start = h.cursor
	}
	off := h.scan(pg.mem, start, noBlock, size)
	if off == noBlock && start != 0 {
		off = h.scan(pg.mem, 0, start, size)
	}
	if off == noBlock {
		return Nil, false
	}

	hdr := header{mem: pg.mem, off: off}
	hdr.setAllocated(true)
	n := hdr.size()
	pg.used += n + HeaderSize
	h.allocated += n
	h.cursorPage, h.cursor = i, off
	return makePtr(i, hdr.payload()), true
}

// scan walks the list from the header at `from` up to (not including) the
// header at `until` and returns the first block that can serve size bytes.
func (h *BuddyHeap) scan(mem []byte, from, until, size int) int {
	for off := from; off != noBlock && off != until; {
		hdr := header{mem: mem, off: off}
		if found := search(hdr, hdr.slot(), size); found != noBlock {
			return found
		}
		off = hdr.next()
	}
	return noBlock
}

// search returns the header of the smallest block under hdr that fits size,
// splitting hdr as needed. The left half is always tried before the right.
func search(hdr header, slot, size int) int {
	if hdr.allocated() || hdr.size() < size {
		return noBlock
	}
	if perfectFit(slot, size+HeaderSize) {
		return hdr.off
	}
	right := hdr.split()
	if found := search(hdr, slot>>1, size); found != noBlock {
		return found
	}
	return search(right, slot>>1, size)
}
