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
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/corehound/diskvfs/internal/env"
	"github.com/corehound/diskvfs/pkg/dfxml"
	"github.com/corehound/diskvfs/pkg/pbar"
	"github.com/corehound/diskvfs/pkg/vfs"
)

func DefineManifestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest <image>",
		Short: "Walk a mounted volume and emit a DFXML byte-run manifest",
		Long: `The 'manifest' command walks every file reachable from a mounted
volume's root and writes one <fileobject> per file, each carrying the
byte runs path_to_extents resolved for it — a map from the file's own
logical offsets to the image's physical ones.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         runManifest,
	}
	addVolumeFlags(cmd)
	cmd.Flags().String("out", "", "write the manifest here instead of stdout")
	cmd.Flags().Bool("progress", false, "print a progress bar to stderr while walking (requires --out)")
	cmd.AddCommand(defineManifestVerifyCommand())
	return cmd
}

func runManifest(cmd *cobra.Command, args []string) error {
	index, lv := volumeFlagsFrom(cmd)
	out, _ := cmd.Flags().GetString("out")
	progress, _ := cmd.Flags().GetBool("progress")
	if progress && out == "" {
		return fmt.Errorf("--progress requires --out: the progress bar and the manifest both write by default, and only one of them can own stdout")
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

	mounted, _, err := mountFilesystem(vol.stream, vfs.Options{})
	if err != nil {
		return err
	}

	dest := io.Writer(os.Stdout)
	if out != "" {
		file, err := os.Create(out)
		if err != nil {
			return err
		}
		defer file.Close()
		dest = file
	}

	w := dfxml.NewDFXMLWriter(dest)
	hdr := dfxml.DFXMLHeader{
		XmlOutput: dfxml.XmlOutputVersion,
		Metadata:  dfxml.DefaultMetadata,
		Creator: dfxml.Creator{
			Package:              env.AppName,
			Version:              env.Version,
			ExecutionEnvironment: dfxml.GetExecEnv(),
		},
		Source: dfxml.Source{
			ImageFilename: args[0],
			SectorSize:    512,
			ImageSize:     uint64(vol.stream.Size()),
		},
	}
	if err := w.WriteHeader(hdr); err != nil {
		return err
	}

	var pb *pbar.ProgressBarState
	if progress {
		pb = pbar.NewProgressBarState(vol.stream.Size())
	}
	if err := walkManifest(mounted, "/", w, pb); err != nil {
		return err
	}
	if pb != nil {
		pb.Render(true)
		pb.Finish()
	}
	return w.Close()
}

func walkManifest(mounted *vfs.Mounted, dir string, w *dfxml.DFXMLWriter, pb *pbar.ProgressBarState) error {
	entries, err := mounted.Enumerate(dir, "*", false)
	if err != nil {
		return err
	}
	for _, e := range entries {
		p := joinVFSPath(dir, e.Name)
		if e.Kind == vfs.KindDirectory {
			if err := walkManifest(mounted, p, w, pb); err != nil {
				return err
			}
			continue
		}

		obj := dfxml.FileObject{Filename: p, FileSize: uint64(e.Length)}
		if e.StreamCount > 0 {
			if streams, err := mounted.Streams(p); err == nil {
				for _, s := range streams {
					obj.AlternateStreams = append(obj.AlternateStreams, dfxml.AlternateStream{Name: s.Name, Length: uint64(s.Length)})
				}
			}
		}
		extents, err := mounted.PathToExtents(p)
		if err == nil {
			runs := make([]dfxml.ByteRun, len(extents))
			var logical uint64
			for i, e := range extents {
				runs[i] = dfxml.ByteRun{Offset: logical, ImgOffset: e.Offset, Length: e.Length}
				logical += e.Length
			}
			obj.ByteRuns = dfxml.ByteRuns{Runs: runs}
		}
		if err := w.WriteFileObject(obj); err != nil {
			return err
		}
		if pb != nil {
			pb.FilesFound++
			pb.ProcessedBytes += int64(e.Length)
			pb.Render(false)
		}
	}
	return nil
}

func defineManifestVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <image> <manifest-file>",
		Short: "Diff a saved DFXML manifest against a live walk of the volume",
		Long: `The 'manifest verify' command reads a manifest previously written by
'manifest' and re-walks the volume it describes, reporting files the
manifest records that the live walk no longer finds (removed), files the live walk finds
that the manifest never recorded (added), and files present in both
whose size disagrees (changed).`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         runManifestVerify,
	}
	addVolumeFlags(cmd)
	return cmd
}

func runManifestVerify(cmd *cobra.Command, args []string) error {
	index, lv := volumeFlagsFrom(cmd)

	manifestFile, err := os.Open(args[1])
	if err != nil {
		return err
	}
	defer manifestFile.Close()
	recorded, err := dfxml.ReadFileObjects(manifestFile)
	if err != nil {
		return err
	}
	recordedSize := make(map[string]uint64, len(recorded))
	for _, fo := range recorded {
		recordedSize[fo.Filename] = fo.FileSize
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

	mounted, _, err := mountFilesystem(vol.stream, vfs.Options{})
	if err != nil {
		return err
	}

	liveSize := make(map[string]uint64, len(recorded))
	if err := collectManifestSizes(mounted, "/", liveSize); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tFILE\tRECORDED\tLIVE")
	for name, size := range recordedSize {
		live, ok := liveSize[name]
		switch {
		case !ok:
			fmt.Fprintf(w, "removed\t%s\t%d\t-\n", name, size)
		case live != size:
			fmt.Fprintf(w, "changed\t%s\t%d\t%d\n", name, size, live)
		}
	}
	for name, live := range liveSize {
		if _, ok := recordedSize[name]; !ok {
			fmt.Fprintf(w, "added\t%s\t-\t%d\n", name, live)
		}
	}
	return w.Flush()
}

func collectManifestSizes(mounted *vfs.Mounted, dir string, out map[string]uint64) error {
	entries, err := mounted.Enumerate(dir, "*", false)
	if err != nil {
		return err
	}
	for _, e := range entries {
		p := joinVFSPath(dir, e.Name)
		if e.Kind == vfs.KindDirectory {
			if err := collectManifestSizes(mounted, p, out); err != nil {
				return err
			}
			continue
		}
		out[p] = uint64(e.Length)
	}
	return nil
}
