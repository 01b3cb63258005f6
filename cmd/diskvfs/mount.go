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
package diskvfs

import (
	"github.com/spf13/cobra"

	"github.com/corehound/diskvfs/internal/fuse"
	"github.com/corehound/diskvfs/pkg/fsdetect"
	diskos "github.com/corehound/diskvfs/pkg/util/os"
	"github.com/corehound/diskvfs/pkg/vfs"
)

func DefineMountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mount <image> <mountpoint>",
		Short: "Mount a volume's file system read-only over FUSE (Linux only)",
		Args:  cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:  runMount,
	}
	addVolumeFlags(cmd)
	cmd.Flags().Bool("require-empty", true, "fail before opening the image if the mountpoint already has entries in it (the FUSE mount refuses a non-empty mountpoint either way)")
	return cmd
}

func runMount(cmd *cobra.Command, args []string) error {
	index, lv := volumeFlagsFrom(cmd)
	requireEmpty, _ := cmd.Flags().GetBool("require-empty")

	if _, err := diskos.EnsureDir(args[1], requireEmpty); err != nil {
		return err
	}

	f, disk, err := openContainer(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	vol, err := resolveVolume(disk, index, lv)
	if err != nil {
		return err
	}

	fsys, kind, err := fsdetect.DetectAndMount(fsdetect.DefaultRegistry(), vol.stream, vfs.Options{})
	if err != nil {
		return err
	}

	log.Infof("mounting %s (%s) at %s", vol.label, kind, args[1])
	return fuse.Mount(args[1], fsys)
}
