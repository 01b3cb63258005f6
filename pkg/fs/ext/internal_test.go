package ext

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFastSymlinkTargetReadsEmbeddedBytes(t *testing.T) {
	raw := make([]byte, 128)
	copy(raw[40:], "/etc/alternatives/x")
	require.Equal(t, "/etc/alternatives/x", fastSymlinkTarget(raw, 19))
}

func TestParseDirBlockSkipsDotEntriesAndDeleted(t *testing.T) {
	b := make([]byte, 64)
	// "." entry, inode 2, reclen 12
	b[0], b[1] = 2, 0
	b[4], b[5] = 12, 0
	b[6] = 1
	b[7] = 2
	b[8] = '.'

	// real entry at offset 12
	b[12], b[13] = 3, 0
	b[16], b[17] = 12, 0
	b[18] = 3
	b[19] = 1
	copy(b[20:], "abc")

	// deleted entry at offset 24: inode 0, reclen 12
	b[28], b[29] = 12, 0
	b[30] = 3
	b[31] = 1
	copy(b[32:], "old")

	recs := parseDirBlock(b, true)
	require.Len(t, recs, 1)
	require.Equal(t, "abc", recs[0].Name)
	require.False(t, recs[0].IsDir)
}

func TestWalkExtentNodeDecodesLeafEntries(t *testing.T) {
	node := make([]byte, 12+12)
	// header: magic 0xF30A, entries=1, depth=0
	node[0], node[1] = 0x0A, 0xF3
	node[2], node[3] = 1, 0
	node[6], node[7] = 0, 0
	// entry: logical=0, len=2, physical=100
	node[12], node[13], node[14], node[15] = 0, 0, 0, 0
	node[16], node[17] = 2, 0
	node[20], node[21], node[22], node[23] = 100, 0, 0, 0

	runs, err := walkExtentNode(nil, nil, node)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.EqualValues(t, 100, runs[0].physical)
	require.EqualValues(t, 2, runs[0].count)
}
