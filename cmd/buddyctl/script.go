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
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type opKind int

const (
	opMalloc opKind = iota
	opRealloc
	opFree
	opPrint
	opCheck
)

// op is one line of a replay script.
type op struct {
	line int
	kind opKind
	name string
	size int
	page int // -1 prints every page
}

// parseScript reads one operation per line:
//
//	malloc <name> <size>
//	realloc <name> <size>
//	free <name>
//	print [page]
//	check
//
// Blank lines and text after '#' are ignored.
func parseScript(r io.Reader) ([]op, error) {
	var ops []op
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line, _, _ := strings.Cut(sc.Text(), "#")
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		o, err := parseOp(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		o.line = n
		ops = append(ops, o)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ops, nil
}

func parseOp(fields []string) (op, error) {
	verb, args := fields[0], fields[1:]
	switch verb {
	case "malloc", "realloc":
		if len(args) != 2 {
			return op{}, fmt.Errorf("usage: %s <name> <size>", verb)
		}
		size, err := strconv.Atoi(args[1])
		if err != nil || size < 0 {
			return op{}, fmt.Errorf("invalid size %q", args[1])
		}
		kind := opMalloc
		if verb == "realloc" {
			kind = opRealloc
		}
		return op{kind: kind, name: args[0], size: size}, nil
	case "free":
		if len(args) != 1 {
			return op{}, fmt.Errorf("usage: free <name>")
		}
		return op{kind: opFree, name: args[0]}, nil
	case "print":
		o := op{kind: opPrint, page: -1}
		if len(args) > 1 {
			return op{}, fmt.Errorf("usage: print [page]")
		}
		if len(args) == 1 {
			page, err := strconv.Atoi(args[0])
			if err != nil || page < 0 {
				return op{}, fmt.Errorf("invalid page %q", args[0])
			}
			o.page = page
		}
		return o, nil
	case "check":
		if len(args) != 0 {
			return op{}, fmt.Errorf("usage: check")
		}
		return op{kind: opCheck}, nil
	}
	return op{}, fmt.Errorf("unknown operation %q", verb)
}
