package volmgr_test

import (
	"testing"

	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/corehound/diskvfs/pkg/volmgr"
	"github.com/stretchr/testify/require"
)

const sampleMetadata = `
myvg {
	extent_size = 1
	physical_volumes {
		pv0 {
			id = "abc"
		}
	}
	logical_volumes {
		root {
			status = ["read", "write", "visible"]
			segments {
				seg0 {
					start_extent = 0
					extent_count = 4
					stripe_count = 1
					stripes = ["pv0", 0]
				}
				seg1 {
					start_extent = 4
					extent_count = 2
					stripe_count = 1
					stripes = ["pv0", 4]
				}
			}
		}
	}
}
`

func TestParseMetadataAndVolumeGroup(t *testing.T) {
	root, err := volmgr.ParseMetadata(sampleMetadata)
	require.NoError(t, err)

	pvSize := int64(4096)
	pvData := make([]byte, pvSize)
	for i := range pvData {
		pvData[i] = byte(i)
	}
	pv := &volmgr.PhysicalVolume{
		Name:    "pv0",
		Content: sparse.NewReaderAtStream(memReader(pvData), pvSize),
		Header:  &volmgr.PVHeader{DataAreas: []volmgr.DiskArea{{Offset: 0, Size: uint64(pvSize)}}},
	}

	vg, err := volmgr.ParseVolumeGroup(root, map[string]*volmgr.PhysicalVolume{"pv0": pv})
	require.NoError(t, err)
	require.Equal(t, "myvg", vg.Name)
	require.Len(t, vg.LogicalVols, 1)

	lv := vg.LogicalVols[0]
	require.Equal(t, "root", lv.Name)
	require.Len(t, lv.Segments, 2)

	stream, err := vg.Stream(lv)
	require.NoError(t, err)
	require.Equal(t, (int64(4)+2)*512, stream.Size())
}

func TestVolumeGroupRefusesUnreadableLV(t *testing.T) {
	root, err := volmgr.ParseMetadata(`vg { extent_size = 1 logical_volumes { data { status = ["write"] segments { } } } }`)
	require.NoError(t, err)
	vg, err := volmgr.ParseVolumeGroup(root, nil)
	require.NoError(t, err)
	_, err = vg.Stream(vg.LogicalVols[0])
	require.Error(t, err)
}

func TestVolumeGroupRejectsNonContiguousSegments(t *testing.T) {
	root, err := volmgr.ParseMetadata(`vg {
		extent_size = 1
		logical_volumes {
			data {
				status = ["read"]
				segments {
					seg0 { start_extent = 0 extent_count = 1 stripe_count = 1 stripes = ["pv0", 0] }
					seg1 { start_extent = 5 extent_count = 1 stripe_count = 1 stripes = ["pv0", 1] }
				}
			}
		}
	}`)
	require.NoError(t, err)

	pv := &volmgr.PhysicalVolume{
		Name:    "pv0",
		Content: sparse.NewReaderAtStream(memReader(make([]byte, 4096)), 4096),
		Header:  &volmgr.PVHeader{DataAreas: []volmgr.DiskArea{{Offset: 0, Size: 4096}}},
	}
	vg, err := volmgr.ParseVolumeGroup(root, map[string]*volmgr.PhysicalVolume{"pv0": pv})
	require.NoError(t, err)
	_, err = vg.Stream(vg.LogicalVols[0])
	require.Error(t, err)
}

type memReaderAt []byte

func memReader(b []byte) memReaderAt { return memReaderAt(b) }

func (m memReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m)) {
		return 0, nil
	}
	return copy(p, m[off:]), nil
}
