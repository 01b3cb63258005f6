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
	"sort"

	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/sparse"
)

// Segment is one contiguous extent run of a logical volume, striped over a
// single physical volume (stripe-count 1 is the only configuration this
// core supports, per spec.md §4.4).
type Segment struct {
	StartExtent int64
	ExtentCount int64
	PVName      string
	PVStart     int64 // start_extent within the physical volume
}

// LogicalVolume is one `logical_volumes { ... }` entry plus its segments,
// sorted by StartExtent.
type LogicalVolume struct {
	Name     string
	Status   []string
	Segments []Segment
}

func (lv *LogicalVolume) readable() bool {
	for _, s := range lv.Status {
		if s == "read" {
			return true
		}
	}
	return false
}

// PhysicalVolume pairs a VG-declared PV entry with the opened stream backing
// its extents (pv.content in spec.md §4.4's resolution formula).
type PhysicalVolume struct {
	Name    string
	Content sparse.Stream
	Header  *PVHeader
}

// VolumeGroup is the parsed `vg_name { ... }` section plus the resolved PV
// streams it needs to assemble logical volumes.
type VolumeGroup struct {
	Name        string
	ExtentSize  int64 // in 512-byte sectors
	PVs         map[string]*PhysicalVolume
	LogicalVols []*LogicalVolume
}

// ParseVolumeGroup walks a parsed metadata document's single top-level VG
// section (the document's root holds exactly one, named after the VG) and
// resolves its logical volumes' segment streams against pvs.
func ParseVolumeGroup(root *MetaNode, pvs map[string]*PhysicalVolume) (*VolumeGroup, error) {
	var vgName string
	var vgNode *MetaNode
	for name, node := range root.Sections {
		if name == "physical_volumes" || name == "logical_volumes" {
			continue
		}
		vgName, vgNode = name, node
		break
	}
	if vgNode == nil {
		return nil, diskerr.New(diskerr.CorruptStructure, "volmgr", "no volume group section found", nil)
	}

	extentSize, _ := vgNode.Int("extent_size")
	vg := &VolumeGroup{Name: vgName, ExtentSize: extentSize, PVs: pvs}

	lvSection, ok := vgNode.Sections["logical_volumes"]
	if !ok {
		return vg, nil
	}

	for lvName, lvNode := range lvSection.Sections {
		status, _ := lvNode.StringList("status")
		lv := &LogicalVolume{Name: lvName, Status: status}

		segSection, ok := lvNode.Sections["segments"]
		if ok {
			for _, segNode := range segSection.Sections {
				seg, err := parseSegment(segNode)
				if err != nil {
					return nil, err
				}
				lv.Segments = append(lv.Segments, seg)
			}
		}
		sort.Slice(lv.Segments, func(i, j int) bool { return lv.Segments[i].StartExtent < lv.Segments[j].StartExtent })

		vg.LogicalVols = append(vg.LogicalVols, lv)
	}
	return vg, nil
}

func parseSegment(n *MetaNode) (Segment, error) {
	startExtent, _ := n.Int("start_extent")
	extentCount, _ := n.Int("extent_count")
	stripeCount, _ := n.Int("stripe_count")
	if stripeCount != 1 {
		return Segment{}, diskerr.New(diskerr.UnsupportedFeature, "volmgr", fmt.Sprintf("stripe_count=%d", stripeCount), nil)
	}
	stripesRaw, ok := n.Values["stripes"].([]any)
	if !ok || len(stripesRaw) != 2 {
		return Segment{}, diskerr.New(diskerr.CorruptStructure, "volmgr", "segment stripes list", nil)
	}
	pvName, ok := stripesRaw[0].(string)
	if !ok {
		return Segment{}, diskerr.New(diskerr.CorruptStructure, "volmgr", "segment PV name", nil)
	}
	pvStart, ok := stripesRaw[1].(int64)
	if !ok {
		return Segment{}, diskerr.New(diskerr.CorruptStructure, "volmgr", "segment PV start extent", nil)
	}
	return Segment{
		StartExtent: startExtent,
		ExtentCount: extentCount,
		PVName:      pvName,
		PVStart:     pvStart,
	}, nil
}

// Stream assembles lv's segment streams into the logical volume's linear
// address space, per spec.md §4.4's resolution formula. Segments must be
// contiguous starting at extent 0; a gap fails with NonContiguousVolume.
func (vg *VolumeGroup) Stream(lv *LogicalVolume) (sparse.Stream, error) {
	if !lv.readable() {
		return nil, diskerr.New(diskerr.NotReadable, "volmgr", lv.Name, fmt.Errorf("status does not include \"read\""))
	}
	if len(lv.Segments) == 0 {
		return nil, diskerr.New(diskerr.CorruptStructure, "volmgr", lv.Name, fmt.Errorf("no segments"))
	}

	expected := int64(0)
	parts := make([]sparse.Stream, 0, len(lv.Segments))
	for _, seg := range lv.Segments {
		if seg.StartExtent != expected {
			return nil, diskerr.New(diskerr.NonContiguousVolume, "volmgr", lv.Name, fmt.Errorf("gap before extent %d", seg.StartExtent))
		}

		pv, ok := vg.PVs[seg.PVName]
		if !ok {
			return nil, diskerr.New(diskerr.NotFound, "volmgr", seg.PVName, nil)
		}
		if len(pv.Header.DataAreas) == 0 {
			return nil, diskerr.New(diskerr.CorruptStructure, "volmgr", seg.PVName, fmt.Errorf("no data area"))
		}
		dataOff := int64(pv.Header.DataAreas[0].Offset)

		extentBytes := vg.ExtentSize * 512
		offset := dataOff + seg.PVStart*extentBytes
		length := seg.ExtentCount * extentBytes

		sub, err := sparse.NewSubStream(pv.Content, offset, length)
		if err != nil {
			return nil, diskerr.New(diskerr.CorruptStructure, "volmgr", seg.PVName, err)
		}
		parts = append(parts, sub)
		expected += seg.ExtentCount
	}
	return sparse.NewConcatStream(parts), nil
}
