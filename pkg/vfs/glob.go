// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package vfs

import "strings"

// matchPattern implements spec.md §4.7's enumerate() glob semantics, which
// differ from path/filepath.Match: '*' matches any run of characters
// including '.', '?' matches any single character except '.', a pattern with
// no '.' is implicitly suffixed with one, and "*"/"*.*" both match every
// name. No stdlib or pack glob routine implements this dotted-name rule, so
// it's hand-rolled as a small two-pointer matcher (classic wildcard-matching
// backtrack, not a port of any specific library).
func matchPattern(pattern, name string) bool {
	if pattern == "*" || pattern == "*.*" {
		return true
	}
	if !strings.Contains(pattern, ".") {
		pattern += "."
	}
	return wildMatch(pattern, name)
}

func wildMatch(pattern, name string) bool {
	var pi, ni int
	var starIdx, matchIdx int = -1, 0

	for ni < len(name) {
		if pi < len(pattern) && (pattern[pi] == '?' && name[ni] != '.' || pattern[pi] == name[ni]) {
			pi++
			ni++
		} else if pi < len(pattern) && pattern[pi] == '*' {
			starIdx = pi
			matchIdx = ni
			pi++
		} else if starIdx != -1 {
			pi = starIdx + 1
			matchIdx++
			ni = matchIdx
		} else {
			return false
		}
	}

	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}
