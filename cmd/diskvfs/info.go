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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corehound/diskvfs/pkg/util/format"
	"github.com/corehound/diskvfs/pkg/vfs"
)

func DefineInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <image>",
		Short: "Detect and summarize the file system on a volume",
		Args:  cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:  runInfo,
	}
	addVolumeFlags(cmd)
	return cmd
}

func runInfo(cmd *cobra.Command, args []string) error {
	index, lv := volumeFlagsFrom(cmd)

	f, disk, err := openContainer(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	vol, err := resolveVolume(disk, index, lv)
	if err != nil {
		return err
	}

	mounted, kind, err := mountFilesystem(vol.stream, vfs.Options{})
	if err != nil {
		return err
	}

	fmt.Printf("volume:      %s\n", vol.label)
	fmt.Printf("file system: %s\n", kind)
	fmt.Printf("size:        %s\n", format.FormatBytes(vol.stream.Size()))

	attrs, err := mounted.Attributes("/")
	if err == nil {
		fmt.Printf("root length: %s\n", format.FormatBytes(attrs.Length))
	}
	return nil
}
