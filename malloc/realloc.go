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

	"github.com/cloudwego/buddyheap/unsafex"
)

// Realloc changes the size of the allocation at p, as realloc(3) would.
//
//   - Realloc(Nil, size) is Malloc(size).
//   - Realloc(p, 0) frees p and returns Nil.
//   - If the block at p already holds size bytes, p is returned as is.
//     Blocks are never shrunk.
//   - Otherwise a new block is allocated, the old payload is copied over
//     and p is freed. If the allocation fails, p is left untouched.
func (h *BuddyHeap) Realloc(p Ptr, size int) (Ptr, error) {
	if p.IsNil() {
		return h.Malloc(size)
	}
	if size < 0 {
		return Nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if size == 0 {
		h.Free(p)
		return Nil, nil
	}

	old := h.header(p)
	n := old.size()
	if n >= size {
		return p, nil
	}

	np, err := h.Malloc(size)
	if err != nil {
		return Nil, err
	}
	unsafex.Copy(h.payload(np, n), h.payload(p, n), n)
	h.Free(p)
	return np, nil
}

func (h *BuddyHeap) header(p Ptr) header {
	return header{mem: h.pages[p.Page()].mem, off: p.Offset() - HeaderSize}
}

// payload returns the n bytes following the header of p.
func (h *BuddyHeap) payload(p Ptr, n int) []byte {
	off := p.Offset()
	return h.pages[p.Page()].mem[off : off+n : off+n]
}
