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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudwego/buddyheap/malloc"
)

func newReplayCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay [script]",
		Short: "Replay an allocation script and print the resulting layout",
		Long: `The replay command runs a script of allocator calls, one per line:

  malloc <name> <size>    allocate size bytes and remember the block as name
  realloc <name> <size>   resize the block called name
  free <name>             free the block called name
  print [page]            print the layout of one page, or of every page
  check                   verify the heap structure

The script is read from stdin when no file is given. Failed allocations are
reported and the script goes on.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open script: %w", err)
				}
				defer f.Close()
				in = f
			}
			ops, err := parseScript(in)
			if err != nil {
				return err
			}
			h, err := opts.newHeap(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			rp := newReplayer(h, cmd.OutOrStdout(), newRenderer(!opts.noColor && !opts.jsonOut))
			if opts.jsonOut {
				// keep stdout a single JSON document
				rp.notes = cmd.ErrOrStderr()
			}
			if err := rp.run(ops); err != nil {
				return err
			}
			if opts.jsonOut {
				return rp.printJSON()
			}
			rp.printAll()
			fmt.Fprintf(rp.out, "total allocated: %d bytes\n", h.TotalAllocated())
			return nil
		},
	}
}

// replayer applies script operations to a heap, tracking blocks by name.
type replayer struct {
	heap  *malloc.BuddyHeap
	pages int
	out   io.Writer
	// notes receives failed allocations and check results.
	notes io.Writer
	r     renderer
	names map[string]malloc.Ptr
}

func newReplayer(h *malloc.BuddyHeap, out io.Writer, r renderer) *replayer {
	return &replayer{
		heap:  h,
		pages: h.Pages(),
		out:   out,
		notes: out,
		r:     r,
		names: make(map[string]malloc.Ptr),
	}
}

func (rp *replayer) run(ops []op) error {
	for _, o := range ops {
		if err := rp.apply(o); err != nil {
			return fmt.Errorf("line %d: %w", o.line, err)
		}
	}
	return nil
}

func (rp *replayer) apply(o op) error {
	switch o.kind {
	case opMalloc:
		if _, ok := rp.names[o.name]; ok {
			return fmt.Errorf("%s is already allocated", o.name)
		}
		p, err := rp.heap.Malloc(o.size)
		if errors.Is(err, malloc.ErrOutOfMemory) {
			fmt.Fprintf(rp.notes, "malloc %s %d: out of memory\n", o.name, o.size)
			return nil
		}
		if err != nil {
			return err
		}
		rp.names[o.name] = p
	case opRealloc:
		p, ok := rp.names[o.name]
		if !ok {
			return fmt.Errorf("unknown block %s", o.name)
		}
		np, err := rp.heap.Realloc(p, o.size)
		if errors.Is(err, malloc.ErrOutOfMemory) {
			fmt.Fprintf(rp.notes, "realloc %s %d: out of memory\n", o.name, o.size)
			return nil
		}
		if err != nil {
			return err
		}
		if np.IsNil() {
			delete(rp.names, o.name)
		} else {
			rp.names[o.name] = np
		}
	case opFree:
		p, ok := rp.names[o.name]
		if !ok {
			return fmt.Errorf("unknown block %s", o.name)
		}
		rp.heap.Free(p)
		delete(rp.names, o.name)
	case opPrint:
		if o.page < 0 {
			rp.printAll()
			return nil
		}
		if o.page >= rp.pages {
			return fmt.Errorf("page %d out of range", o.page)
		}
		rp.printPage(o.page)
	case opCheck:
		if err := rp.heap.Check(); err != nil {
			return err
		}
		fmt.Fprintln(rp.notes, "ok")
	}
	return nil
}

func (rp *replayer) printPage(page int) {
	fmt.Fprintf(rp.out, "page %d: %s", page, rp.r.layout(rp.heap.Blocks(page)))
}

func (rp *replayer) printAll() {
	for page := 0; page < rp.pages; page++ {
		rp.printPage(page)
	}
}

type pageLayout struct {
	Page   int                `json:"page"`
	Blocks []malloc.BlockInfo `json:"blocks"`
}

type replayResult struct {
	Pages          []pageLayout `json:"pages"`
	TotalAllocated int          `json:"total_allocated"`
}

func (rp *replayer) printJSON() error {
	res := replayResult{TotalAllocated: rp.heap.TotalAllocated()}
	for page := 0; page < rp.pages; page++ {
		res.Pages = append(res.Pages, pageLayout{Page: page, Blocks: rp.heap.Blocks(page)})
	}
	enc := json.NewEncoder(rp.out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
