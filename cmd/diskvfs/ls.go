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
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/corehound/diskvfs/pkg/util/format"
	"github.com/corehound/diskvfs/pkg/vfs"
)

func DefineLsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls <image> <path>",
		Short: "List a directory's entries on a mounted volume",
		Args:  cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:  runLs,
	}
	addVolumeFlags(cmd)
	cmd.Flags().Bool("recursive", false, "descend into subdirectories")
	return cmd
}

func runLs(cmd *cobra.Command, args []string) error {
	index, lv := volumeFlagsFrom(cmd)
	recursive, _ := cmd.Flags().GetBool("recursive")

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

	entries, err := mounted.Enumerate(args[1], "*", recursive)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tLENGTH\tSTREAMS\tMODIFIED")
	for _, e := range entries {
		streams := ""
		if e.StreamCount > 0 {
			streams = fmt.Sprintf("%d", e.StreamCount)
		}
		modified := ""
		if !e.Times.Modified.IsZero() {
			modified = e.Times.Modified.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Name, kindLabel(e.Kind), format.FormatBytes(e.Length), streams, modified)
	}
	return w.Flush()
}

func kindLabel(k vfs.EntryKind) string {
	switch k {
	case vfs.KindDirectory:
		return "dir"
	case vfs.KindSymlink:
		return "symlink"
	default:
		return "file"
	}
}

func joinVFSPath(base, rel string) string {
	if base == "/" || base == "" {
		return "/" + rel
	}
	return base + "/" + rel
}
