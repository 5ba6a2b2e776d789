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
	"github.com/bytedance/gopkg/lang/dirtmake"
)

// ArenaSource reserves the backing memory of a page.
// Memory handed out by Reserve is owned by the heap for the rest of the process.
type ArenaSource interface {
	Reserve(size int) ([]byte, error)
}

// HeapSource reserves pages from the Go heap without zeroing them.
type HeapSource struct{}

// Reserve implements ArenaSource.
func (HeapSource) Reserve(size int) ([]byte, error) {
	return dirtmake.Bytes(size, size), nil
}

// MmapSource reserves pages with anonymous private mappings, keeping large
// arenas out of the Go heap. Platforms without mmap fall back to HeapSource.
type MmapSource struct{}

// page is one independently managed arena.
type page struct {
	mem []byte

	// used is the number of slot bytes (payload plus header) handed out.
	used int
}
