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

package unsafex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint32At(t *testing.T) {
	b := make([]byte, 16)
	PutUint32At(b, 4, 0xBADF00D)
	assert.Equal(t, uint32(0xBADF00D), Uint32At(b, 4))
	assert.Equal(t, uint32(0), Uint32At(b, 0))
	assert.Equal(t, uint32(0), Uint32At(b, 12))
}

func TestUint64At(t *testing.T) {
	b := make([]byte, 32)
	PutUint64At(b, 8, ^uint64(0))
	PutUint64At(b, 24, 1<<40)
	assert.Equal(t, ^uint64(0), Uint64At(b, 8))
	assert.Equal(t, uint64(1<<40), Uint64At(b, 24))
	assert.Equal(t, uint64(0), Uint64At(b, 16))
}

func TestOutOfRange(t *testing.T) {
	b := make([]byte, 16)
	assert.Panics(t, func() { Uint32At(b, -1) })
	assert.Panics(t, func() { Uint32At(b, 13) })
	assert.Panics(t, func() { PutUint64At(b, 9, 1) })
	assert.Panics(t, func() { Uint64At(nil, 0) })
	assert.NotPanics(t, func() { Uint64At(b, 8) })
}

func TestCopy(t *testing.T) {
	src := []byte("hello world")

	dst := make([]byte, 5)
	ret := Copy(dst, src, 5)
	require.Equal(t, "hello", string(ret))

	// clipped to len(dst)
	dst = make([]byte, 3)
	assert.Equal(t, "hel", string(Copy(dst, src, 100)))

	// zero length leaves dst as is
	dst = []byte("xyz")
	assert.Equal(t, "xyz", string(Copy(dst, src, 0)))
	assert.Equal(t, "xyz", string(Copy(dst, src, -1)))

	// nil operands are a no-op
	assert.Nil(t, Copy(nil, src, 3))
	assert.Equal(t, "xyz", string(Copy(dst, nil, 3)))
}

func BenchmarkUint64At(b *testing.B) {
	buf := make([]byte, 64)
	for i := 0; i < b.N; i++ {
		PutUint64At(buf, 16, uint64(i))
		_ = Uint64At(buf, 16)
	}
}
