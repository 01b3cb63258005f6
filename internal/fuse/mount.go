//go:build !linux
// +build !linux

package fuse

import (
	"fmt"

	"github.com/corehound/diskvfs/pkg/vfs"
)

func Mount(mountpoint string, fsys vfs.Filesystem) error {
	return fmt.Errorf("FUSE mount is only supported on Linux")
}
