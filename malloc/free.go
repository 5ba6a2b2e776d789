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

// Free releases the block p points at and merges it with its free buddies.
// Free(Nil) does nothing.
//
// p must have been returned by Malloc or Realloc on this heap and not freed
// since; anything else corrupts the heap.
func (h *BuddyHeap) Free(p Ptr) {
	if p.IsNil() || !h.initialized {
		return
	}
	pg := &h.pages[p.Page()]
	hdr := header{mem: pg.mem, off: p.Offset() - HeaderSize}

	// a free may open a better candidate in front of the cursor
	h.cursor = noBlock

	hdr.setAllocated(false)
	n := hdr.size()
	pg.used -= n + HeaderSize
	h.allocated -= n

	h.coalesce(hdr)
}

// coalesce merges hdr with its buddy while the buddy is free and whole,
// climbing one level per merge until the page root is rebuilt.
func (h *BuddyHeap) coalesce(hdr header) {
	for {
		slot := hdr.slot()
		if slot >= h.arenaSize {
			return
		}
		if hdr.off&(slot<<1-1) == 0 {
			// left half: the buddy is the successor
			next := hdr.next()
			if next == noBlock {
				return
			}
			buddy := hdr.at(next)
			if buddy.allocated() || buddy.slot() != slot {
				return
			}
			buddy.unlink()
			hdr.setSize(hdr.size() + slot)
		} else {
			// right half: the buddy is the predecessor
			prev := hdr.prev()
			if prev == noBlock {
				return
			}
			buddy := hdr.at(prev)
			if buddy.allocated() || buddy.slot() != slot {
				return
			}
			hdr.unlink()
			buddy.setSize(buddy.size() + slot)
			hdr = buddy
		}
	}
}
