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

// Package diskvfs wires pkg/imgfile, pkg/vdisk, pkg/partition, pkg/volmgr,
// pkg/fsdetect and pkg/vfs into one CLI, the same way the teacher's cmd/cmd
// wired internal/scan and internal/format into the `scan`/`recover` commands.
package diskvfs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/corehound/diskvfs/internal/logger"
	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/fsdetect"
	"github.com/corehound/diskvfs/pkg/imgfile"
	"github.com/corehound/diskvfs/pkg/partition"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/corehound/diskvfs/pkg/vdisk"
	"github.com/corehound/diskvfs/pkg/vfs"
	"github.com/corehound/diskvfs/pkg/volmgr"
)

// openContainer opens path and, if it carries a VHD-family footer, unwraps
// it into the virtual disk's own address space; a plain image or raw device
// is returned as-is.
func openContainer(path string) (*imgfile.File, sparse.Stream, error) {
	f, err := imgfile.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if !vdisk.IsSparseContainer(f) {
		disk, _, err := maybeVHD(f, path)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return f, disk, nil
	}
	return f, f, nil
}

// maybeVHD tries the classic VHD footer at the tail of the stream; streams
// without one (raw dd images, most test fixtures) fall through to f itself.
func maybeVHD(f *imgfile.File, path string) (sparse.Stream, *vdisk.Footer, error) {
	if f.Size() < vdisk.FooterSize {
		return f, nil, nil
	}
	disk, footer, err := vdisk.Open(f, filepath.Dir(path), siblingParentOpener)
	if err != nil {
		return f, nil, nil
	}
	return disk, footer, nil
}

// siblingParentOpener resolves a differencing disk's parent by looking for
// a file of the same name next to the child, the common layout an export
// tool uses when it keeps a snapshot chain together in one directory.
func siblingParentOpener(hint vdisk.ParentHint) (sparse.Stream, *vdisk.Footer, error) {
	candidates := []string{hint.RelativePath, hint.AbsolutePath}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		p := c
		if !filepath.IsAbs(p) {
			p = filepath.Join(hint.ChildDir, p)
		}
		f, err := imgfile.Open(p)
		if err != nil {
			continue
		}
		disk, footer, err := vdisk.Open(f, hint.ChildDir, siblingParentOpener)
		if err != nil {
			f.Close()
			continue
		}
		return disk, footer, nil
	}
	return nil, nil, diskerr.New(diskerr.NotFound, "vdisk", "parent disk", nil)
}

// selectedVolume is a disk-level stream narrowed down to one partition (or
// the whole disk, when the image carries no partition table at all) and,
// when that partition holds a stacked volume manager, one logical volume.
type selectedVolume struct {
	stream sparse.Stream
	label  string
}

// partitionsOf reads path's partition table, falling back to a single
// whole-disk entry the same way internal/scan.DiscoverPartitions did.
func partitionsOf(disk sparse.Stream) (*partition.Table, error) {
	return partition.Detect(disk)
}

// resolveVolume narrows disk down to the partition selected by index (-1
// means "whole disk" or "the only partition"), then, if lvName is set,
// descends into that partition's volume group to pick one logical volume.
func resolveVolume(disk sparse.Stream, index int, lvName string) (*selectedVolume, error) {
	table, err := partitionsOf(disk)
	if err != nil {
		return nil, err
	}

	var part *partition.Partition
	switch {
	case index >= 0:
		for i := range table.Partitions {
			if table.Partitions[i].Num == index {
				part = &table.Partitions[i]
				break
			}
		}
		if part == nil {
			return nil, diskerr.New(diskerr.NotFound, "diskvfs", fmt.Sprintf("partition %d", index), nil)
		}
	case len(table.Partitions) == 1:
		part = &table.Partitions[0]
	case len(table.Partitions) == 0:
		return &selectedVolume{stream: disk, label: "whole disk"}, nil
	default:
		return nil, diskerr.New(diskerr.UnsupportedFeature, "diskvfs", "multiple partitions found, pass --partition", nil)
	}

	stream, err := part.Stream(disk)
	if err != nil {
		return nil, err
	}
	label := fmt.Sprintf("partition %d", part.Num)

	if lvName == "" {
		return &selectedVolume{stream: stream, label: label}, nil
	}

	lvStream, err := resolveLogicalVolume(stream, lvName)
	if err != nil {
		return nil, err
	}
	return &selectedVolume{stream: lvStream, label: label + "/" + lvName}, nil
}

// resolveLogicalVolume reads a single physical volume's PV header and
// metadata document and returns the stream for the named logical volume.
// Striped segments spanning multiple PVs need every member opened the same
// way and handed to volmgr.ParseVolumeGroup's pvs map; this single-PV path
// covers the common case of one PV per volume group.
func resolveLogicalVolume(pvStream sparse.Stream, lvName string) (sparse.Stream, error) {
	hdr, err := volmgr.ReadPVHeader(pvStream)
	if err != nil {
		return nil, err
	}
	if len(hdr.MetadataAreas) == 0 {
		return nil, diskerr.New(diskerr.CorruptStructure, "diskvfs", "PV metadata area", nil)
	}
	metaArea := hdr.MetadataAreas[0]

	metaBuf := make([]byte, metaArea.Size)
	if err := sparse.ReadFull(pvStream, metaBuf, int64(metaArea.Offset)); err != nil {
		return nil, err
	}
	root, err := volmgr.ParseMetadata(string(metaBuf))
	if err != nil {
		return nil, err
	}

	pv := &volmgr.PhysicalVolume{Content: pvStream, Header: hdr}
	pvs := map[string]*volmgr.PhysicalVolume{}
	for _, vgNode := range root.Sections {
		pvSection, ok := vgNode.Sections["physical_volumes"]
		if !ok {
			continue
		}
		for pvName := range pvSection.Sections {
			pv.Name = pvName
			pvs[pvName] = pv
		}
		break
	}

	vg, err := volmgr.ParseVolumeGroup(root, pvs)
	if err != nil {
		return nil, err
	}
	for _, lv := range vg.LogicalVols {
		if lv.Name == lvName {
			return vg.Stream(lv)
		}
	}
	return nil, diskerr.New(diskerr.NotFound, "diskvfs", "logical volume "+lvName, nil)
}

// mountFilesystem detects vol's file-system kind and mounts it behind the
// uniform vfs façade (spec.md §4.7).
func mountFilesystem(vol sparse.Stream, opts vfs.Options) (*vfs.Mounted, fsdetect.Kind, error) {
	fsys, kind, err := fsdetect.DetectAndMount(fsdetect.DefaultRegistry(), vol, opts)
	if err != nil {
		return nil, kind, err
	}
	return vfs.Mount(fsys, kind.String()), kind, nil
}

var log = logger.New(os.Stderr, logger.InfoLevel)
