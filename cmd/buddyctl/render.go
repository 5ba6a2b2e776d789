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

package main

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cloudwego/buddyheap/malloc"
)

// renderer prints page layouts, allocated slots in green and free ones in red.
type renderer struct {
	color     bool
	allocated lipgloss.Style
	free      lipgloss.Style
}

func newRenderer(color bool) renderer {
	return renderer{
		color:     color,
		allocated: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		free:      lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

func (r renderer) block(b malloc.BlockInfo) string {
	s := strconv.Itoa(b.Slot)
	switch {
	case !r.color && b.Allocated:
		return s + "*"
	case !r.color:
		return s
	case b.Allocated:
		return r.allocated.Render(s)
	default:
		return r.free.Render(s)
	}
}

// layout renders the blocks of one page followed by the block count.
func (r renderer) layout(blocks []malloc.BlockInfo) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = r.block(b)
	}
	var sb strings.Builder
	sb.WriteString(strings.Join(parts, ", "))
	sb.WriteString("\n")
	sb.WriteString(strconv.Itoa(len(blocks)))
	sb.WriteString(" blocks in total\n")
	return sb.String()
}
