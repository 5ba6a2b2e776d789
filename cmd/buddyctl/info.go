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
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type heapInfo struct {
	ArenaSize    int `json:"arena_size"`
	Pages        int `json:"pages"`
	HeaderSize   int `json:"header_size"`
	MinBlockSize int `json:"min_block_size"`
	MinSlot      int `json:"min_slot"`
	TreeDepth    int `json:"tree_depth"`
}

func newInfoCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the heap geometry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := opts.newHeap(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			s := h.Stats()
			info := heapInfo{
				ArenaSize:    s.ArenaSize,
				Pages:        s.Pages,
				HeaderSize:   s.HeaderSize,
				MinBlockSize: s.MinBlockSize,
				MinSlot:      s.ArenaSize >> h.TreeDepth(),
				TreeDepth:    h.TreeDepth(),
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			fmt.Fprintf(out, "Arena size:  %d bytes\n", info.ArenaSize)
			fmt.Fprintf(out, "Pages:       %d\n", info.Pages)
			fmt.Fprintf(out, "Header size: %d bytes\n", info.HeaderSize)
			fmt.Fprintf(out, "Min block:   %d bytes\n", info.MinBlockSize)
			fmt.Fprintf(out, "Min slot:    %d bytes\n", info.MinSlot)
			fmt.Fprintf(out, "Tree depth:  %d\n", info.TreeDepth)
			return nil
		},
	}
}
