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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeNil(t *testing.T) {
	h := newTestHeap(t, 1024, 1, 64)
	mustMalloc(t, h, 100)
	before := h.Fingerprint(0)
	total := h.TotalAllocated()

	h.Free(Nil)
	assert.Equal(t, before, h.Fingerprint(0))
	assert.Equal(t, total, h.TotalAllocated())
	assert.Equal(t, h.Stats().PageUsed, []int{256})
}

func TestFreeBuddies(t *testing.T) {
	h := newTestHeap(t, 1024, 1, 64)
	a := mustMalloc(t, h, 8)
	b := mustMalloc(t, h, 8)
	assert.Equal(t, a.Offset()+128, b.Offset())
	assert.Equal(t, "128*, 128*, 256, 512", layout(t, h, 0))

	// b is still in use, a cannot merge
	h.Free(a)
	assert.Equal(t, "128, 128*, 256, 512", layout(t, h, 0))
	assert.NoError(t, h.Check())

	// b merges left with a, then the pair climbs back to the root
	h.Free(b)
	assert.Equal(t, "1024", layout(t, h, 0))
	assert.Equal(t, 0, h.TotalAllocated())
	assert.NoError(t, h.Check())
}

func TestFreeRightFirst(t *testing.T) {
	h := newTestHeap(t, 1024, 1, 64)
	a := mustMalloc(t, h, 8)
	b := mustMalloc(t, h, 8)

	h.Free(b)
	assert.Equal(t, "128*, 128, 256, 512", layout(t, h, 0))
	h.Free(a)
	assert.Equal(t, "1024", layout(t, h, 0))
	assert.NoError(t, h.Check())
}

func TestFreeKeepsNonBuddiesApart(t *testing.T) {
	h := newTestHeap(t, 1024, 1, 64)
	a := mustMalloc(t, h, 8)   // 128 at 0
	b := mustMalloc(t, h, 8)   // 128 at 128
	c := mustMalloc(t, h, 200) // 256 at 256
	assert.Equal(t, "128*, 128*, 256*, 512", layout(t, h, 0))

	// b and c are adjacent but not buddies: they must stay apart
	h.Free(c)
	h.Free(b)
	assert.Equal(t, "128*, 128, 256, 512", layout(t, h, 0))
	assert.NoError(t, h.Check())

	h.Free(a)
	assert.Equal(t, "1024", layout(t, h, 0))
}

func TestFreeCascade(t *testing.T) {
	h := newTestHeap(t, 4096, 1, 64)
	var ptrs []Ptr
	for i := 0; i < 32; i++ {
		ptrs = append(ptrs, mustMalloc(t, h, 64))
	}
	assert.Len(t, h.Blocks(0), 32)
	_, err := h.Malloc(1)
	assert.ErrorIs(t, err, ErrOutOfMemory)

	// free the odd blocks, nothing can merge
	for i := 1; i < len(ptrs); i += 2 {
		h.Free(ptrs[i])
	}
	assert.Len(t, h.Blocks(0), 32)
	require.NoError(t, h.Check())

	// every even free merges its pair and cascades as far as it can
	for i := 0; i < len(ptrs); i += 2 {
		h.Free(ptrs[i])
		require.NoError(t, h.Check())
	}
	assert.Equal(t, "4096", layout(t, h, 0))
}

func TestFreeRoundTrip(t *testing.T) {
	for _, size := range []int{0, 1, 63, 64, 96, 97, 200, 500, 1000, 3000} {
		h := newTestHeap(t, 4096, 1, 64)
		before := h.Fingerprint(0)
		p := mustMalloc(t, h, size)
		h.Free(p)
		assert.Equal(t, before, h.Fingerprint(0), "size=%d", size)
		assert.Equal(t, "4096", layout(t, h, 0), "size=%d", size)
	}
}

func TestFreeResetsCursor(t *testing.T) {
	h := newTestHeap(t, 1024, 1, 64)
	a := mustMalloc(t, h, 8)
	mustMalloc(t, h, 8)
	mustMalloc(t, h, 8)
	assert.Equal(t, "128*, 128*, 128*, 128, 512", layout(t, h, 0))

	// the next allocation scans from the head again and reuses a's block
	h.Free(a)
	p := mustMalloc(t, h, 8)
	assert.Equal(t, a, p)
}

func TestFreeShuffled(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	h := newTestHeap(t, 1<<16, 2, 32)
	fresh := newTestHeap(t, 1<<16, 2, 32)

	for round := 0; round < 20; round++ {
		var ptrs []Ptr
		for {
			p, err := h.Malloc(r.Intn(2000))
			if err != nil {
				break
			}
			ptrs = append(ptrs, p)
		}
		require.NotEmpty(t, ptrs)
		require.NoError(t, h.Check())

		r.Shuffle(len(ptrs), func(i, j int) { ptrs[i], ptrs[j] = ptrs[j], ptrs[i] })
		for _, p := range ptrs {
			h.Free(p)
			require.NoError(t, h.Check())
		}
		for page := 0; page < 2; page++ {
			assert.Equal(t, fresh.Fingerprint(page), h.Fingerprint(page))
			assert.Len(t, h.Blocks(page), 1)
		}
		assert.Equal(t, 0, h.TotalAllocated())
	}
}
