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
	"io"
	"os"

	"github.com/spf13/cobra"

	diskio "github.com/corehound/diskvfs/pkg/util/io"
	"github.com/corehound/diskvfs/pkg/vfs"
)

func DefineCatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat <image> <path>",
		Short: "Stream a file's content from a mounted volume to stdout, or to a file with --out",
		Args:  cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:  runCat,
	}
	addVolumeFlags(cmd)
	cmd.Flags().String("out", "", "write the file's content here instead of stdout")
	return cmd
}

func runCat(cmd *cobra.Command, args []string) error {
	index, lv := volumeFlagsFrom(cmd)
	out, _ := cmd.Flags().GetString("out")

	f, disk, err := openContainer(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	vol, err := resolveVolume(disk, index, lv)
	if err != nil {
		return err
	}

	mounted, _, err := mountFilesystem(vol.stream, vfs.Options{})
	if err != nil {
		return err
	}

	stream, err := mounted.Open(args[1], vfs.Open, vfs.Read)
	if err != nil {
		return err
	}

	r := io.NewSectionReader(stream, 0, stream.Size())
	if out != "" {
		return diskio.CopyFile(out, r)
	}
	_, err = io.Copy(os.Stdout, r)
	return err
}
