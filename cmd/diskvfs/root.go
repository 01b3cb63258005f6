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

	"github.com/corehound/diskvfs/internal/env"
)

func Execute() error {
	rootCmd := &cobra.Command{
		Use:   env.AppName,
		Short: env.AppName + " - mount and inspect disk images, volumes and file systems",
	}

	rootCmd.AddCommand(
		DefinePartitionsCommand(),
		DefineInfoCommand(),
		DefineLsCommand(),
		DefineCatCommand(),
		DefineManifestCommand(),
		DefineMountCommand(),
	)

	return rootCmd.Execute()
}

// addVolumeFlags adds the flags every command that resolves down to a single
// volume shares: which partition and, for a stacked volume manager, which
// logical volume to mount.
func addVolumeFlags(cmd *cobra.Command) {
	cmd.Flags().Int("partition", -1, "partition number to use (default: auto-select if there is exactly one)")
	cmd.Flags().String("lv", "", "logical volume name, when the partition holds a stacked volume manager")
}

func volumeFlagsFrom(cmd *cobra.Command) (int, string) {
	index, _ := cmd.Flags().GetInt("partition")
	lv, _ := cmd.Flags().GetString("lv")
	return index, lv
}
