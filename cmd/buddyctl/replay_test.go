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
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/buddyheap/malloc"
)

// runCmd executes buddyctl with args and stdin, returning stdout.
func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	out, _, err := runCmdStderr(t, stdin, args...)
	return out, err
}

// runCmdStderr is runCmd that also returns stderr.
func runCmdStderr(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRenderer(t *testing.T) {
	blocks := []malloc.BlockInfo{
		{Slot: 128, Size: 96, Allocated: true},
		{Offset: 128, Slot: 128, Size: 96},
	}
	assert.Equal(t, "128*, 128\n2 blocks in total\n", newRenderer(false).layout(blocks))
	assert.Equal(t, "\n0 blocks in total\n", newRenderer(false).layout(nil))

	colored := newRenderer(true).layout(blocks)
	assert.Contains(t, colored, "128")
	assert.Contains(t, colored, "2 blocks in total")
	assert.NotContains(t, colored, "*")
}

func TestInfoCommand(t *testing.T) {
	out, err := runCmd(t, "", "info", "--arena-size", "1024", "--min-block", "64")
	require.NoError(t, err)
	assert.Contains(t, out, "Arena size:  1024 bytes")
	assert.Contains(t, out, "Min slot:    128 bytes")
	assert.Contains(t, out, "Tree depth:  3")

	out, err = runCmd(t, "", "info", "--arena-size", "4096", "--pages", "2", "--json")
	require.NoError(t, err)
	var info heapInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, heapInfo{
		ArenaSize:    4096,
		Pages:        2,
		HeaderSize:   malloc.HeaderSize,
		MinBlockSize: malloc.DefaultMinBlockSize,
		MinSlot:      128,
		TreeDepth:    5,
	}, info)

	_, err = runCmd(t, "", "info", "--arena-size", "1000")
	assert.ErrorIs(t, err, malloc.ErrInvalidOption)
}

func TestReplayCommand(t *testing.T) {
	script := `malloc a 100
malloc b 100
malloc c 100
malloc d 100
malloc e 100
check
free a
free b
print 0
`
	out, err := runCmd(t, script, "replay", "--arena-size", "1024", "--no-color")
	require.NoError(t, err)
	assert.Equal(t, `malloc e 100: out of memory
ok
page 0: 512, 256*, 256*
3 blocks in total
page 0: 512, 256*, 256*
3 blocks in total
total allocated: 448 bytes
`, out)
}

func TestReplayFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.txt")
	require.NoError(t, os.WriteFile(path, []byte("malloc a 8\nrealloc a 200\n"), 0o644))

	out, err := runCmd(t, "", "replay", path, "--arena-size", "1024", "--pages", "2", "--no-color")
	require.NoError(t, err)
	assert.Equal(t, `page 0: 256, 256*, 512
3 blocks in total
page 1: 1024
1 blocks in total
total allocated: 224 bytes
`, out)

	_, err = runCmd(t, "", "replay", filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorContains(t, err, "failed to open script")
}

func TestReplayJSON(t *testing.T) {
	out, err := runCmd(t, "malloc a 8\n", "replay", "--arena-size", "1024", "--json")
	require.NoError(t, err)

	var res replayResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Pages, 1)
	assert.Equal(t, 96, res.TotalAllocated)
	require.Len(t, res.Pages[0].Blocks, 4)
	assert.True(t, res.Pages[0].Blocks[0].Allocated)
	assert.Equal(t, 512, res.Pages[0].Blocks[3].Slot)
	assert.Contains(t, out, `"allocated": true`)
	assert.NotContains(t, out, `"Slot"`)
}

func TestReplayJSONNotes(t *testing.T) {
	out, errOut, err := runCmdStderr(t, "malloc a 2000\nmalloc b 8\nrealloc b 5000\ncheck\n",
		"replay", "--arena-size", "1024", "--json")
	require.NoError(t, err)

	var res replayResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 96, res.TotalAllocated)
	assert.Contains(t, errOut, "malloc a 2000: out of memory\n")
	assert.Contains(t, errOut, "realloc b 5000: out of memory\n")
	assert.Contains(t, errOut, "ok\n")
}

func TestReplayWithoutAllocations(t *testing.T) {
	out, err := runCmd(t, "print 0\ncheck\n", "replay", "--arena-size", "1024", "--pages", "2", "--no-color")
	require.NoError(t, err)
	assert.Equal(t, `page 0: 1024
1 blocks in total
ok
page 0: 1024
1 blocks in total
page 1: 1024
1 blocks in total
total allocated: 0 bytes
`, out)
}

func TestReplayErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"free_unknown", "free a", "line 1: unknown block a"},
		{"realloc_unknown", "malloc a 1\nrealloc b 2", "line 2: unknown block b"},
		{"double_malloc", "malloc a 1\nmalloc a 1", "line 2: a is already allocated"},
		{"page_range", "print 3", "line 1: page 3 out of range"},
		{"parse", "oops", `unknown operation "oops"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, tt.script, "replay", "--arena-size", "1024")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestReplayReallocFree(t *testing.T) {
	out, err := runCmd(t, "malloc a 8\nrealloc a 0\nmalloc a 8\nfree a\n", "replay",
		"--arena-size", "1024", "--no-color", "--mmap")
	require.NoError(t, err)
	assert.Equal(t, "page 0: 1024\n1 blocks in total\ntotal allocated: 0 bytes\n", out)
}
