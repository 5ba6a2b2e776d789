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
	"io"
	"strconv"

	"github.com/bytedance/gopkg/lang/mcache"
	"github.com/bytedance/gopkg/util/xxhash3"

	"github.com/cloudwego/buddyheap/unsafex"
)

// BlockInfo describes one block of a page.
type BlockInfo struct {
	Page int `json:"page"`
	// Offset is the offset of the block header within the page.
	Offset int `json:"offset"`
	// Slot is the span of the block, header included.
	Slot int `json:"slot"`
	// Size is the payload capacity.
	Size      int  `json:"size"`
	Allocated bool `json:"allocated"`
}

// Ptr returns the pointer Malloc hands out for the block.
func (b BlockInfo) Ptr() Ptr {
	return makePtr(b.Page, b.Offset+HeaderSize)
}

// Walk calls fn for every block of the page in address order until fn returns false.
// Before the heap is initialized every page is a single free block.
func (h *BuddyHeap) Walk(page int, fn func(BlockInfo) bool) {
	if page < 0 || page >= len(h.pages) {
		return
	}
	if !h.initialized {
		fn(BlockInfo{Page: page, Slot: h.arenaSize, Size: h.arenaSize - HeaderSize})
		return
	}
	mem := h.pages[page].mem
	for off := 0; off != noBlock; {
		hdr := header{mem: mem, off: off}
		b := BlockInfo{
			Page:      page,
			Offset:    off,
			Slot:      hdr.slot(),
			Size:      hdr.size(),
			Allocated: hdr.allocated(),
		}
		if !fn(b) {
			return
		}
		off = hdr.next()
	}
}

// Blocks returns every block of the page in address order.
func (h *BuddyHeap) Blocks(page int) []BlockInfo {
	var bs []BlockInfo
	h.Walk(page, func(b BlockInfo) bool {
		bs = append(bs, b)
		return true
	})
	return bs
}

// Dump writes the slot sizes of the page in address order, allocated blocks
// marked with '*', followed by the block count:
//
//	128*, 128, 256, 512
//	4 blocks in total
func (h *BuddyHeap) Dump(w io.Writer, page int) error {
	buf := mcache.Malloc(0, 256)
	n := 0
	h.Walk(page, func(b BlockInfo) bool {
		if n > 0 {
			buf = append(buf, ", "...)
		}
		buf = strconv.AppendInt(buf, int64(b.Slot), 10)
		if b.Allocated {
			buf = append(buf, '*')
		}
		n++
		return true
	})
	buf = append(buf, '\n')
	buf = strconv.AppendInt(buf, int64(n), 10)
	buf = append(buf, " blocks in total\n"...)
	_, err := w.Write(buf)
	mcache.Free(buf)
	return err
}

// Fingerprint hashes the layout of the page: the slot size and state of
// every block in address order. Two heaps driven by the same calls end up
// with the same fingerprints.
func (h *BuddyHeap) Fingerprint(page int) uint64 {
	bs := h.Blocks(page)
	buf := mcache.Malloc(8 * len(bs))
	for i, b := range bs {
		// slots are powers of two >= 64, the low bit is free for the state
		v := uint64(b.Slot)
		if b.Allocated {
			v |= 1
		}
		unsafex.PutUint64At(buf, 8*i, v)
	}
	sum := xxhash3.Hash(buf)
	mcache.Free(buf)
	return sum
}

// Check verifies the structure of every page:
//
//   - the blocks of a page partition it exactly, in address order
//   - every slot is the page size halved 0 to TreeDepth times, and aligned to its size
//   - no two free buddies are left unmerged
//   - the usage counters agree with the blocks marked allocated
func (h *BuddyHeap) Check() error {
	if !h.initialized {
		return nil
	}
	minSlot := h.arenaSize >> h.depth
	total := 0
	for i := range h.pages {
		pg := &h.pages[i]
		used, prev, prevSlot, prevFree := 0, noBlock, 0, false
		end := 0
		for off := 0; off != noBlock; {
			if off != end || off > h.arenaSize-HeaderSize {
				return fmt.Errorf("%w: page %d: block at %#x, expected %#x", ErrCorrupted, i, off, end)
			}
			hdr := header{mem: pg.mem, off: off}
			slot := hdr.slot()
			switch {
			case hdr.page() != i:
				return fmt.Errorf("%w: page %d: block at %#x claims page %d", ErrCorrupted, i, off, hdr.page())
			case hdr.prev() != prev:
				return fmt.Errorf("%w: page %d: block at %#x links back to %#x, expected %#x",
					ErrCorrupted, i, off, hdr.prev(), prev)
			case slot < minSlot || slot > h.arenaSize || slot&(slot-1) != 0:
				return fmt.Errorf("%w: page %d: block at %#x has slot %d", ErrCorrupted, i, off, slot)
			case off&(slot-1) != 0:
				return fmt.Errorf("%w: page %d: block at %#x is not aligned to its slot %d",
					ErrCorrupted, i, off, slot)
			}
			free := !hdr.allocated()
			if free && prevFree && prevSlot == slot && prev&(slot<<1-1) == 0 {
				return fmt.Errorf("%w: page %d: free buddies at %#x and %#x", ErrCorrupted, i, prev, off)
			}
			if !free {
				used += slot
				total += hdr.size()
			}
			end = off + slot
			prev, prevSlot, prevFree = off, slot, free
			off = hdr.next()
		}
		if end != h.arenaSize {
			return fmt.Errorf("%w: page %d: blocks cover %d of %d bytes", ErrCorrupted, i, end, h.arenaSize)
		}
		if used != pg.used {
			return fmt.Errorf("%w: page %d: %d bytes in use, counter says %d", ErrCorrupted, i, used, pg.used)
		}
	}
	if total != h.allocated {
		return fmt.Errorf("%w: %d bytes allocated, counter says %d", ErrCorrupted, total, h.allocated)
	}
	return nil
}

// Pages returns the number of pages of the heap.
func (h *BuddyHeap) Pages() int {
	return len(h.pages)
}

// TreeDepth returns how many times a page can be halved.
func (h *BuddyHeap) TreeDepth() int {
	return h.depth
}
