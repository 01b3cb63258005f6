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

package ntfs

import "github.com/corehound/diskvfs/pkg/diskerr"

// resetRunLength is the minimum single-span allocation size that resets the
// fragmentation latch back off (spec.md §8 scenario 6).
const resetRunLength = 4

// AllocatorProbe lets tests observe the allocator's internal decisions
// without inspecting its bitmap directly (spec.md §8 scenario 6 requires
// the contiguous-range pass skip to be "observable via an injectable
// probe"). Every hook is optional.
type AllocatorProbe struct {
	OnContiguousScan        func(requested uint64)
	OnFragmentedModeEntered func()
	OnFragmentedModeReset   func()
}

// ClusterRun is one allocated or freed (start, length) span of clusters.
type ClusterRun struct {
	Start  uint64
	Length uint64
}

// Allocator is NTFS's fragmentation-aware cluster bitmap allocator
// (spec.md §4.5.2). Bit i of the bitmap means cluster i is in use.
type Allocator struct {
	bitmap         []byte
	totalClusters  uint64
	fragmentedMode bool
	probe          *AllocatorProbe
}

// NewAllocator wraps an existing $BITMAP attribute's decoded bytes.
func NewAllocator(bitmap []byte, totalClusters uint64, probe *AllocatorProbe) *Allocator {
	return &Allocator{bitmap: bitmap, totalClusters: totalClusters, probe: probe}
}

func (a *Allocator) present(cluster uint64) bool {
	byteIdx := cluster / 8
	if byteIdx >= uint64(len(a.bitmap)) {
		return true // treat clusters past the tracked bitmap as unavailable
	}
	return a.bitmap[byteIdx]&(1<<(cluster%8)) != 0
}

func (a *Allocator) setPresent(cluster uint64, present bool) {
	byteIdx := cluster / 8
	if byteIdx >= uint64(len(a.bitmap)) {
		return
	}
	if present {
		a.bitmap[byteIdx] |= 1 << (cluster % 8)
	} else {
		a.bitmap[byteIdx] &^= 1 << (cluster % 8)
	}
}

// freeRunAt returns the length of the contiguous run of free clusters
// starting at start, capped at max.
func (a *Allocator) freeRunAt(start, max uint64) uint64 {
	var n uint64
	for n < max && start+n < a.totalClusters && !a.present(start+n) {
		n++
	}
	return n
}

// largestFreeRun scans the whole bitmap once, front to back, and returns
// the offset and length of the largest contiguous free run when it is at
// least minLen long, or ok=false. It does not narrow the search to disk
// regions of decreasing size first.
func (a *Allocator) largestFreeRun(minLen uint64) (start, length uint64, ok bool) {
	var bestStart, bestLen uint64
	var cur uint64
	curStart := uint64(0)
	for i := uint64(0); i < a.totalClusters; i++ {
		if a.present(i) {
			cur = 0
			continue
		}
		if cur == 0 {
			curStart = i
		}
		cur++
		if cur > bestLen {
			bestLen = cur
			bestStart = curStart
		}
	}
	if bestLen >= minLen {
		return bestStart, bestLen, true
	}
	return 0, 0, false
}

func (a *Allocator) markRuns(runs []ClusterRun, present bool) {
	for _, r := range runs {
		for i := uint64(0); i < r.Length; i++ {
			a.setPresent(r.Start+i, present)
		}
	}
}

func (a *Allocator) setFragmentedMode(v bool) {
	if a.fragmentedMode == v {
		return
	}
	a.fragmentedMode = v
	if a.probe == nil {
		return
	}
	if v && a.probe.OnFragmentedModeEntered != nil {
		a.probe.OnFragmentedModeEntered()
	}
	if !v && a.probe.OnFragmentedModeReset != nil {
		a.probe.OnFragmentedModeReset()
	}
}

// Allocate finds count free clusters, preferring to extend an existing run
// starting at proposedStart, and returns the runs it allocated in
// allocation order (spec.md §4.5.2).
func (a *Allocator) Allocate(count uint64, proposedStart uint64) ([]ClusterRun, error) {
	if count == 0 {
		return nil, nil
	}
	var allocated []ClusterRun
	remaining := count

	// Step 1: extend at the proposed start. Mark it present immediately so
	// later steps' scans don't reselect the same clusters.
	if n := a.freeRunAt(proposedStart, remaining); n > 0 {
		run := ClusterRun{Start: proposedStart, Length: n}
		a.markRuns([]ClusterRun{run}, true)
		allocated = append(allocated, run)
		remaining -= n
	}

	// Step 2: a single contiguous range elsewhere, skipped once the
	// fragmentation latch is set.
	if remaining > 0 && !a.fragmentedMode {
		if a.probe != nil && a.probe.OnContiguousScan != nil {
			a.probe.OnContiguousScan(remaining)
		}
		if start, _, ok := a.largestFreeRun(remaining); ok {
			run := ClusterRun{Start: start, Length: remaining}
			a.markRuns([]ClusterRun{run}, true)
			allocated = append(allocated, run)
			remaining = 0
		}
	}

	// Step 3: anywhere, accumulating whatever free runs exist.
	if remaining > 0 {
		var i uint64
		for remaining > 0 && i < a.totalClusters {
			if a.present(i) {
				i++
				continue
			}
			n := a.freeRunAt(i, remaining)
			run := ClusterRun{Start: i, Length: n}
			a.markRuns([]ClusterRun{run}, true)
			allocated = append(allocated, run)
			remaining -= n
			i += n
		}
	}

	if remaining > 0 {
		a.markRuns(allocated, false)
		return nil, diskerr.New(diskerr.OutOfSpace, "ntfs", "cluster allocation", nil)
	}

	if len(allocated) > 1 {
		a.setFragmentedMode(true)
	} else if len(allocated) == 1 && allocated[0].Length >= resetRunLength {
		a.setFragmentedMode(false)
	}

	return allocated, nil
}

// Free marks every cluster in runs as available again.
func (a *Allocator) Free(runs []ClusterRun) {
	a.markRuns(runs, false)
}
