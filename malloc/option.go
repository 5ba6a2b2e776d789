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
	"log/slog"
	"math/bits"
)

const (
	// DefaultArenaSize is the default size of a page (1MB).
	DefaultArenaSize = 1 << 20

	// DefaultMinBlockSize is the default minimum payload of a block.
	// Smaller requests are rounded up to it.
	DefaultMinBlockSize = 64

	// MaxArenaSize is the largest page a Ptr can address (4GB).
	MaxArenaSize = 1 << 32
)

// Option configures a BuddyHeap.
type Option struct {
	// ArenaSize is the size of every page in bytes. It must be a power of two.
	ArenaSize int

	// Pages is the number of independent pages. Blocks never span two pages.
	Pages int

	// MinBlockSize is the smallest payload handed out by Malloc.
	MinBlockSize int

	// Source reserves the backing memory of each page.
	// nil means HeapSource.
	Source ArenaSource

	// Logger receives debug records about reservations and failed allocations.
	// nil discards everything.
	Logger *slog.Logger
}

// DefaultOption returns the default values of Option.
func DefaultOption() *Option {
	return &Option{
		ArenaSize:    DefaultArenaSize,
		Pages:        1,
		MinBlockSize: DefaultMinBlockSize,
	}
}

func (o *Option) validate() error {
	if o.ArenaSize <= 0 || o.ArenaSize&(o.ArenaSize-1) != 0 {
		return fmt.Errorf("%w: arena size must be a power of two, got %d", ErrInvalidOption, o.ArenaSize)
	}
	if o.ArenaSize > MaxArenaSize {
		return fmt.Errorf("%w: arena size must be <= %d, got %d", ErrInvalidOption, MaxArenaSize, o.ArenaSize)
	}
	if o.MinBlockSize < 1 {
		return fmt.Errorf("%w: min block size must be positive, got %d", ErrInvalidOption, o.MinBlockSize)
	}
	if o.ArenaSize <= o.MinBlockSize+HeaderSize {
		return fmt.Errorf("%w: arena size %d cannot hold a %d byte block plus its %d byte header",
			ErrInvalidOption, o.ArenaSize, o.MinBlockSize, HeaderSize)
	}
	if o.Pages < 1 {
		return fmt.Errorf("%w: pages must be >= 1, got %d", ErrInvalidOption, o.Pages)
	}
	return nil
}

// treeDepth returns how many times a page can be halved before a slot
// can no longer hold the minimum block.
func (o *Option) treeDepth() int {
	minSlot := o.MinBlockSize + HeaderSize
	depth := bits.TrailingZeros(uint(o.ArenaSize))
	for depth > 0 && o.ArenaSize>>depth < minSlot {
		depth--
	}
	return depth
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
