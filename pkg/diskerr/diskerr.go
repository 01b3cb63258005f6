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

// Package diskerr centralizes the error-kind taxonomy shared by every
// container, partition table and file-system reader in the module.
package diskerr

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a failure, independent of which reader or
// container produced it. Callers should use errors.Is against
// AsSentinel(kind) for the Kind values below rather than matching on
// message text.
type Kind int

const (
	BadMagic Kind = iota
	Truncated
	ChecksumMismatch
	UnsupportedFeature
	UnsupportedVersion
	CorruptStructure
	NotFound
	NotWritable
	NotReadable
	OutOfSpace
	ParentMismatch
	NonContiguousVolume
	Cancelled
	ReadError
)

func (k Kind) String() string {
	switch k {
	case BadMagic:
		return "BadMagic"
	case Truncated:
		return "Truncated"
	case ChecksumMismatch:
		return "ChecksumMismatch"
	case UnsupportedFeature:
		return "UnsupportedFeature"
	case UnsupportedVersion:
		return "UnsupportedVersion"
	case CorruptStructure:
		return "CorruptStructure"
	case NotFound:
		return "NotFound"
	case NotWritable:
		return "NotWritable"
	case NotReadable:
		return "NotReadable"
	case OutOfSpace:
		return "OutOfSpace"
	case ParentMismatch:
		return "ParentMismatch"
	case NonContiguousVolume:
		return "NonContiguousVolume"
	case Cancelled:
		return "Cancelled"
	case ReadError:
		return "ReadError"
	default:
		return "Unknown"
	}
}

// Error carries a Kind plus the component and offset/path context spec.md §7
// requires every error to surface.
type Error struct {
	Kind      Kind
	Component string // e.g. "ntfs", "gpt", "vhd"
	Context   string // path, offset, or other locator
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Component, e.Kind, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Component, e.Kind, e.Context)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is(err, diskerr.AsSentinel(diskerr.BadMagic)) style
// matching against a Kind.
func (e *Error) Is(target error) bool {
	var k kindSentinel
	if errors.As(target, &k) {
		return e.Kind == k.kind
	}
	return false
}

// kindSentinel wraps a Kind so it can be compared with errors.Is.
type kindSentinel struct{ kind Kind }

func (k kindSentinel) Error() string { return k.kind.String() }

// New builds an *Error for the given kind/component/context, wrapping cause.
func New(kind Kind, component, context string, cause error) *Error {
	return &Error{Kind: kind, Component: component, Context: context, Cause: cause}
}

// AsSentinel returns an error value usable with errors.Is(err, AsSentinel(kind)).
func AsSentinel(k Kind) error { return kindSentinel{kind: k} }
