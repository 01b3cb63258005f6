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
package fatfs

import "github.com/corehound/diskvfs/pkg/bytesx"

const badCluster = 0x0FFFFFF7

// nextCluster reads the FAT entry for cluster, returning the next cluster
// in the chain, or 0 once the terminal sentinel is reached (the sentinel's
// exact bit pattern is format-specific per spec.md §4.5.6).
func nextCluster(fatTable []byte, bpb *BPB, cluster uint32) (uint32, bool) {
	switch bpb.Variant {
	case FAT12:
		idx := cluster + cluster/2
		if int(idx)+1 >= len(fatTable) {
			return 0, false
		}
		v := uint16(fatTable[idx]) | uint16(fatTable[idx+1])<<8
		if cluster&1 != 0 {
			v >>= 4
		} else {
			v &= 0x0FFF
		}
		if v >= 0x0FF8 {
			return 0, false
		}
		return uint32(v), true
	case FAT16:
		off := int(cluster) * 2
		if off+2 > len(fatTable) {
			return 0, false
		}
		v := bytesx.U16LE(fatTable[off:])
		if v >= 0xFFF8 {
			return 0, false
		}
		return uint32(v), true
	default: // FAT32
		off := int(cluster) * 4
		if off+4 > len(fatTable) {
			return 0, false
		}
		v := bytesx.U32LE(fatTable[off:]) & 0x0FFFFFFF
		if v >= 0x0FFFFFF8 || v == badCluster {
			return 0, false
		}
		return v, true
	}
}

// clusterChain walks the FAT starting at start, returning every cluster in
// order. Chains longer than maxClusters are truncated defensively against a
// corrupt loop.
func clusterChain(fatTable []byte, bpb *BPB, start uint32, maxClusters int) []uint32 {
	if start < 2 {
		return nil
	}
	var chain []uint32
	cur := start
	for len(chain) < maxClusters {
		chain = append(chain, cur)
		next, ok := nextCluster(fatTable, bpb, cur)
		if !ok {
			break
		}
		cur = next
	}
	return chain
}
