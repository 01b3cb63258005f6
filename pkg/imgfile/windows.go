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

//go:build windows

package imgfile

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

const sectorSize = 512

// windowsBacking opens a path with CreateFile rather than os.Open, the
// only way to get random-access reads off a raw
// "\\.\PhysicalDriveN"-style device path; ordinary image files open the
// same way, so every image path goes through this one backing on Windows.
type windowsBacking struct {
	handle windows.Handle
}

func (w *windowsBacking) ReadAt(p []byte, off int64) (int, error) {
	alignedOffset := off / sectorSize * sectorSize
	alignmentDiff := int(off - alignedOffset)
	alignedSize := ((len(p) + alignmentDiff + sectorSize - 1) / sectorSize) * sectorSize

	buf := make([]byte, alignedSize)
	var bytesRead uint32
	ov := windows.Overlapped{
		Offset:     uint32(alignedOffset),
		OffsetHigh: uint32(alignedOffset >> 32),
	}
	if err := windows.ReadFile(w.handle, buf, &bytesRead, &ov); err != nil {
		if err == windows.ERROR_HANDLE_EOF {
			return 0, fmt.Errorf("read past end of device")
		}
		return 0, fmt.Errorf("ReadFile: %w", err)
	}
	return copy(p, buf[alignmentDiff:]), nil
}

func (w *windowsBacking) Close() error { return windows.CloseHandle(w.handle) }

type diskGeometry struct {
	Cylinders         int64
	MediaType         uint32
	TracksPerCylinder uint32
	SectorsPerTrack   uint32
	BytesPerSector    uint32
}

const ioctlDiskGetDriveGeometry = 0x70000

func openBacking(path string) (backing, int64, error) {
	handle, err := windows.CreateFile(
		windows.StringToUTF16Ptr(path),
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("CreateFile %q: %w", path, err)
	}

	b := &windowsBacking{handle: handle}

	if isRawDevicePath(path) {
		size, err := diskSize(handle)
		if err != nil {
			windows.CloseHandle(handle)
			return nil, 0, err
		}
		return b, size, nil
	}

	var fileSize int64
	if err := windows.GetFileSizeEx(handle, &fileSize); err != nil {
		windows.CloseHandle(handle)
		return nil, 0, fmt.Errorf("GetFileSizeEx %q: %w", path, err)
	}
	return b, fileSize, nil
}

func isRawDevicePath(path string) bool {
	return strings.HasPrefix(path, `\\.\`) || strings.HasPrefix(path, `\\?\`)
}

func diskSize(handle windows.Handle) (int64, error) {
	var geometry diskGeometry
	var bytesReturned uint32
	err := windows.DeviceIoControl(
		handle,
		ioctlDiskGetDriveGeometry,
		nil,
		0,
		(*byte)(unsafe.Pointer(&geometry)),
		uint32(unsafe.Sizeof(geometry)),
		&bytesReturned,
		nil,
	)
	if err != nil {
		return 0, fmt.Errorf("DeviceIoControl(IOCTL_DISK_GET_DRIVE_GEOMETRY): %w", err)
	}
	return geometry.Cylinders * int64(geometry.TracksPerCylinder) * int64(geometry.SectorsPerTrack) * int64(geometry.BytesPerSector), nil
}
