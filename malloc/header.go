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

// HeaderSize is the size of the header stored in front of every block.
//
// Layout:
//
//	[0:4]   page index
//	[4:8]   allocated flag
//	[8:16]  payload size
//	[16:24] next header offset
//	[24:32] prev header offset
const HeaderSize = 32

const (
	offPage      = 0
	offAllocated = 4
	offSize      = 8
	offNext      = 16
	offPrev      = 24

	// noBlock is the in-memory form of a missing link.
	noBlock = -1
	// nilLink is how noBlock is stored in a header.
	nilLink = ^uint64(0)
)

// Ptr references the payload of a block: the page index in the high 32 bits
// and the payload offset within the page in the low 32 bits.
//
// Offset 0 of a page always holds a header, so the zero value never
// addresses a payload and is used as the null pointer.
type Ptr uint64

// Nil is the null Ptr.
const Nil Ptr = 0

func makePtr(page, off int) Ptr {
	return Ptr(uint64(page)<<32 | uint64(off))
}

// Page returns the index of the page p points into.
func (p Ptr) Page() int { return int(p >> 32) }

// Offset returns the payload offset of p within its page.
func (p Ptr) Offset() int { return int(p & 0xFFFFFFFF) }

// IsNil reports whether p is the null pointer.
func (p Ptr) IsNil() bool { return p == Nil }

func (p Ptr) String() string {
	if p.IsNil() {
		return "nil"
	}
	return fmt.Sprintf("%d:%#x", p.Page(), p.Offset())
}

// header is a view of the block header stored at off within mem.
type header struct {
	mem []byte
	off int
}

func (h header) page() int {
	return int(unsafex.Uint32At(h.mem, h.off+offPage))
}

func (h header) setPage(i int) {
	unsafex.PutUint32At(h.mem, h.off+offPage, uint32(i))
}

func (h header) allocated() bool {
	return unsafex.Uint32At(h.mem, h.off+offAllocated) != 0
}

func (h header) setAllocated(v bool) {
	var x uint32
	if v {
		x = 1
	}
	unsafex.PutUint32At(h.mem, h.off+offAllocated, x)
}

// size is the payload capacity, header excluded.
func (h header) size() int {
	return int(unsafex.Uint64At(h.mem, h.off+offSize))
}

func (h header) setSize(n int) {
	unsafex.PutUint64At(h.mem, h.off+offSize, uint64(n))
}

// slot is the full span of the block, header included.
func (h header) slot() int {
	return h.size() + HeaderSize
}

func (h header) next() int {
	return loadLink(h.mem, h.off+offNext)
}

func (h header) setNext(off int) {
	storeLink(h.mem, h.off+offNext, off)
}

func (h header) prev() int {
	return loadLink(h.mem, h.off+offPrev)
}

func (h header) setPrev(off int) {
	storeLink(h.mem, h.off+offPrev, off)
}

// payload is the offset of the first byte after the header.
func (h header) payload() int {
	return h.off + HeaderSize
}

func (h header) at(off int) header {
	return header{mem: h.mem, off: off}
}

// reset turns h into a free block of the given slot with no neighbours.
func (h header) reset(page, slot int) {
	h.setPage(page)
	h.setAllocated(false)
	h.setSize(slot - HeaderSize)
	h.setNext(noBlock)
	h.setPrev(noBlock)
}

// split halves h into two free buddies: h keeps the left half and the
// returned header, linked in as h's successor, owns the right half.
func (h header) split() header {
	half := h.slot() >> 1
	right := h.at(h.off + half)
	right.setPage(h.page())
	right.setAllocated(false)
	right.setSize(half - HeaderSize)

	next := h.next()
	right.setNext(next)
	right.setPrev(h.off)
	if next != noBlock {
		h.at(next).setPrev(right.off)
	}
	h.setNext(right.off)
	h.setSize(half - HeaderSize)
	return right
}

// unlink removes h from its list.
func (h header) unlink() {
	prev, next := h.prev(), h.next()
	if prev != noBlock {
		h.at(prev).setNext(next)
	}
	if next != noBlock {
		h.at(next).setPrev(prev)
	}
	h.setNext(noBlock)
	h.setPrev(noBlock)
}

func loadLink(mem []byte, off int) int {
	v := unsafex.Uint64At(mem, off)
	if v == nilLink {
		return noBlock
	}
	return int(v)
}

func storeLink(mem []byte, off, link int) {
	if link == noBlock {
		unsafex.PutUint64At(mem, off, nilLink)
		return
	}
	unsafex.PutUint64At(mem, off, uint64(link))
}
