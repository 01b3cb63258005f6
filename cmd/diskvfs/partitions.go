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
)

func DefinePartitionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "partitions <image>",
		Short: "List the partition table of a disk image",
		Long: `The 'partitions' command reads image's MBR or GPT partition table and
prints each entry's number, offset, size and type. Images with no valid
partition table are reported as a single whole-disk volume.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         runPartitions,
	}
}

func runPartitions(cmd *cobra.Command, args []string) error {
	f, disk, err := openContainer(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	table, err := partitionsOf(disk)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NUM\tOFFSET\tSIZE\tTYPE\tBOOT\tNAME")
	for _, p := range table.Partitions {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%v\t%s\n", p.Num, p.Offset, format.FormatBytes(p.Size), p.Type, p.Bootable, p.Name)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if table.Scheme == "none" {
		fmt.Println("no partition table found; treating image as a single whole-disk volume")
	}
	for _, d := range table.Diagnostics {
		fmt.Printf("diagnostic [%s]: %s\n", d.Kind, d.Message)
	}
	return nil
}
