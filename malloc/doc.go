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

// Package malloc implements a buddy allocator over fixed-size pages.
//
// A BuddyHeap owns one or more pages of ArenaSize bytes, reserved once on
// first use and never released. Each page starts as a single free block.
// Malloc finds the first block in address order that can hold the request
// and halves it until halving again would make it too small, so every block
// spans ArenaSize/2^k bytes header included. Free merges a block with its
// buddy for as long as the buddy is free, rebuilding larger blocks.
//
// Pointers handed out are Ptr values rather than Go pointers; use Bytes to
// access the payload:
//
//	h, _ := malloc.NewBuddyHeap(nil)
//	p, err := h.Malloc(100)
//	if err != nil {
//		return err
//	}
//	copy(h.Bytes(p), data)
//	h.Free(p)
package malloc
