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
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cloudwego/buddyheap/malloc"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	arenaSize int
	pages     int
	minBlock  int
	mmap      bool
	noColor   bool
	jsonOut   bool
	verbose   bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	def := malloc.DefaultOption()

	cmd := &cobra.Command{
		Use:   "buddyctl",
		Short: "Replay allocations against a buddy heap and inspect its layout",
		Long: `buddyctl drives a buddy allocator configured from the command line
and prints how its pages are split into blocks.

Example:
  buddyctl info --arena-size 1024 --min-block 64
  buddyctl replay script.txt --arena-size 1024 --pages 2`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.IntVar(&opts.arenaSize, "arena-size", def.ArenaSize, "Size of each page in bytes (power of two)")
	flags.IntVar(&opts.pages, "pages", def.Pages, "Number of pages")
	flags.IntVar(&opts.minBlock, "min-block", def.MinBlockSize, "Minimum block payload in bytes")
	flags.BoolVar(&opts.mmap, "mmap", false, "Reserve pages with mmap instead of the Go heap")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&opts.jsonOut, "json", false, "Output in JSON format")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log allocator debug records to stderr")

	cmd.AddCommand(newInfoCmd(opts))
	cmd.AddCommand(newReplayCmd(opts))
	return cmd
}

// newHeap builds a heap from the persistent flags, logging to errOut.
func (o *globalOptions) newHeap(errOut io.Writer) (*malloc.BuddyHeap, error) {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	opt := &malloc.Option{
		ArenaSize:    o.arenaSize,
		Pages:        o.pages,
		MinBlockSize: o.minBlock,
		Logger:       slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level})),
	}
	if o.mmap {
		opt.Source = malloc.MmapSource{}
	}
	return malloc.NewBuddyHeap(opt)
}
