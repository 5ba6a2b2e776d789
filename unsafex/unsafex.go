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

// Package unsafex holds the raw memory accessors used by the allocator.
//
// Every accessor checks the offset against the slice length before touching
// memory, so a corrupted offset panics instead of reading past the arena.
package unsafex

import (
	"fmt"
	"unsafe"
)

func checkRange(b []byte, off, width int) {
	if off < 0 || off > len(b)-width {
		panic(fmt.Sprintf("unsafex: offset %d (width %d) out of range [0, %d)", off, width, len(b)))
	}
}

// Uint32At loads a native-endian uint32 stored at b[off:off+4].
func Uint32At(b []byte, off int) uint32 {
	checkRange(b, off, 4)
	return *(*uint32)(unsafe.Add(unsafe.Pointer(unsafe.SliceData(b)), off))
}

// PutUint32At stores v at b[off:off+4] in native byte order.
func PutUint32At(b []byte, off int, v uint32) {
	checkRange(b, off, 4)
	*(*uint32)(unsafe.Add(unsafe.Pointer(unsafe.SliceData(b)), off)) = v
}

// Uint64At loads a native-endian uint64 stored at b[off:off+8].
func Uint64At(b []byte, off int) uint64 {
	checkRange(b, off, 8)
	return *(*uint64)(unsafe.Add(unsafe.Pointer(unsafe.SliceData(b)), off))
}

// PutUint64At stores v at b[off:off+8] in native byte order.
func PutUint64At(b []byte, off int, v uint64) {
	checkRange(b, off, 8)
	*(*uint64)(unsafe.Add(unsafe.Pointer(unsafe.SliceData(b)), off)) = v
}

// Copy copies n bytes from src to dst and returns dst.
//
// n is clipped to the length of both slices, n <= 0 copies nothing,
// and a nil dst or src leaves dst untouched.
func Copy(dst, src []byte, n int) []byte {
	if dst == nil || src == nil || n <= 0 {
		return dst
	}
	if n > len(dst) {
		n = len(dst)
	}
	if n > len(src) {
		n = len(src)
	}
	copy(dst[:n], src[:n])
	return dst
}
