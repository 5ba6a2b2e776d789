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

import "errors"

var (
	// ErrOutOfMemory indicates that no block large enough was found in any page.
	ErrOutOfMemory = errors.New("malloc: out of memory")

	// ErrInvalidSize indicates a negative allocation size.
	ErrInvalidSize = errors.New("malloc: invalid size")

	// ErrInvalidOption indicates an arena geometry the allocator cannot manage.
	ErrInvalidOption = errors.New("malloc: invalid option")

	// ErrCorrupted indicates that a block list no longer partitions its page.
	ErrCorrupted = errors.New("malloc: heap corrupted")
)
