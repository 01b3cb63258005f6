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
package volmgr

import (
	"fmt"
	"strconv"

	"github.com/corehound/diskvfs/pkg/diskerr"
)

// MetaNode is one node of the parsed text metadata document: a set of
// key/value pairs where a value is either a scalar (string/int64), a list
// of scalars, or a nested `{ ... }` section (itself a *MetaNode).
type MetaNode struct {
	Values   map[string]any
	Sections map[string]*MetaNode
}

func newMetaNode() *MetaNode {
	return &MetaNode{Values: map[string]any{}, Sections: map[string]*MetaNode{}}
}

// String returns a value's direct string form, or ("", false) if absent or
// not a string.
func (n *MetaNode) String(key string) (string, bool) {
	v, ok := n.Values[key].(string)
	return v, ok
}

// Int returns a value's direct integer form.
func (n *MetaNode) Int(key string) (int64, bool) {
	v, ok := n.Values[key].(int64)
	return v, ok
}

// StringList returns a value stored as a bracketed list of strings.
func (n *MetaNode) StringList(key string) ([]string, bool) {
	v, ok := n.Values[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(v))
	for _, e := range v {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}

// metaLexer tokenizes the key/value + `{...}` document format.
type metaLexer struct {
	s   string
	pos int
}

func (l *metaLexer) skipSpaceAndComments() {
	for l.pos < len(l.s) {
		c := l.s[l.pos]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			l.pos++
			continue
		}
		if c == '#' {
			for l.pos < len(l.s) && l.s[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		break
	}
}

func (l *metaLexer) peek() byte {
	if l.pos >= len(l.s) {
		return 0
	}
	return l.s[l.pos]
}

// ParseMetadata parses a complete text metadata document into a root
// MetaNode, per spec.md §4.4's "key/value pairs and `{ ... }`-delimited
// sections" description.
func ParseMetadata(doc string) (*MetaNode, error) {
	l := &metaLexer{s: doc}
	root := newMetaNode()
	if err := parseBody(l, root); err != nil {
		return nil, diskerr.New(diskerr.CorruptStructure, "volmgr", "metadata document", err)
	}
	return root, nil
}

func parseBody(l *metaLexer, node *MetaNode) error {
	for {
		l.skipSpaceAndComments()
		if l.pos >= len(l.s) || l.peek() == '}' {
			return nil
		}

		key, err := parseIdent(l)
		if err != nil {
			return err
		}
		l.skipSpaceAndComments()

		switch l.peek() {
		case '{':
			l.pos++
			child := newMetaNode()
			if err := parseBody(l, child); err != nil {
				return err
			}
			l.skipSpaceAndComments()
			if l.peek() != '}' {
				return fmt.Errorf("expected '}' closing section %q at offset %d", key, l.pos)
			}
			l.pos++
			node.Sections[key] = child

		case '=':
			l.pos++
			l.skipSpaceAndComments()
			v, err := parseValue(l)
			if err != nil {
				return err
			}
			node.Values[key] = v

		default:
			return fmt.Errorf("expected '=' or '{' after key %q at offset %d", key, l.pos)
		}
	}
}

func parseIdent(l *metaLexer) (string, error) {
	start := l.pos
	for l.pos < len(l.s) {
		c := l.s[l.pos]
		if c == '_' || c == '-' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			l.pos++
			continue
		}
		break
	}
	if start == l.pos {
		return "", fmt.Errorf("expected identifier at offset %d", l.pos)
	}
	return l.s[start:l.pos], nil
}

func parseValue(l *metaLexer) (any, error) {
	switch l.peek() {
	case '"':
		return parseString(l)
	case '[':
		return parseList(l)
	default:
		return parseNumber(l)
	}
}

func parseString(l *metaLexer) (string, error) {
	if l.peek() != '"' {
		return "", fmt.Errorf("expected '\"' at offset %d", l.pos)
	}
	l.pos++
	start := l.pos
	for l.pos < len(l.s) && l.s[l.pos] != '"' {
		l.pos++
	}
	if l.pos >= len(l.s) {
		return "", fmt.Errorf("unterminated string starting at offset %d", start)
	}
	s := l.s[start:l.pos]
	l.pos++
	return s, nil
}

func parseNumber(l *metaLexer) (int64, error) {
	start := l.pos
	if l.peek() == '-' {
		l.pos++
	}
	for l.pos < len(l.s) && l.s[l.pos] >= '0' && l.s[l.pos] <= '9' {
		l.pos++
	}
	if start == l.pos {
		return 0, fmt.Errorf("expected number at offset %d", l.pos)
	}
	return strconv.ParseInt(l.s[start:l.pos], 10, 64)
}

func parseList(l *metaLexer) ([]any, error) {
	l.pos++ // consume '['
	var out []any
	for {
		l.skipSpaceAndComments()
		if l.peek() == ']' {
			l.pos++
			return out, nil
		}
		v, err := parseValue(l)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		l.skipSpaceAndComments()
		if l.peek() == ',' {
			l.pos++
		}
	}
}
