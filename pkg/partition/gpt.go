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
package partition

import (
	"fmt"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/google/uuid"
)

const GPTHeaderSize = 92

var gptSignature = [8]byte{'E', 'F', 'I', ' ', 'P', 'A', 'R', 'T'}

// GPTHeader is the 92-byte (of a 512-byte sector) primary or backup GPT
// header, per spec.md §4.3.
type GPTHeader struct {
	Revision        uint32
	HeaderSize      uint32
	HeaderCRC32     uint32
	CurrentLBA      uint64
	BackupLBA       uint64
	FirstUsableLBA  uint64
	LastUsableLBA   uint64
	DiskGUID        uuid.UUID
	EntriesStartLBA uint64
	NumEntries      uint32
	EntrySize       uint32
	EntriesCRC32    uint32
}

// GPTEntry is a 128-byte partition entry.
type GPTEntry struct {
	TypeGUID   uuid.UUID
	UniqueGUID uuid.UUID
	FirstLBA   uint64
	LastLBA    uint64
	Attributes uint64
	Name       string
}

func parseGPTHeader(data []byte) (*GPTHeader, error) {
	if len(data) < GPTHeaderSize {
		return nil, diskerr.New(diskerr.Truncated, "gpt", "header", fmt.Errorf("expected at least %d bytes, got %d", GPTHeaderSize, len(data)))
	}

	var sig [8]byte
	copy(sig[:], data[0:8])
	if sig != gptSignature {
		return nil, diskerr.New(diskerr.BadMagic, "gpt", "header signature", nil)
	}

	h := &GPTHeader{
		Revision:        bytesx.U32LE(data[8:12]),
		HeaderSize:      bytesx.U32LE(data[12:16]),
		HeaderCRC32:     bytesx.U32LE(data[16:20]),
		CurrentLBA:      bytesx.U64LE(data[24:32]),
		BackupLBA:       bytesx.U64LE(data[32:40]),
		FirstUsableLBA:  bytesx.U64LE(data[40:48]),
		LastUsableLBA:   bytesx.U64LE(data[48:56]),
		EntriesStartLBA: bytesx.U64LE(data[72:80]),
		NumEntries:      bytesx.U32LE(data[80:84]),
		EntrySize:       bytesx.U32LE(data[84:88]),
		EntriesCRC32:    bytesx.U32LE(data[88:92]),
	}

	guid, err := guidFromMixedEndian(data[56:72])
	if err != nil {
		return nil, diskerr.New(diskerr.CorruptStructure, "gpt", "disk GUID", err)
	}
	h.DiskGUID = guid

	// The header checksum is computed over HeaderSize bytes with the
	// checksum field itself zeroed.
	crcBuf := make([]byte, h.HeaderSize)
	copy(crcBuf, data[:min(int(h.HeaderSize), len(data))])
	crcBuf[16], crcBuf[17], crcBuf[18], crcBuf[19] = 0, 0, 0, 0
	if got := bytesx.CRC32(crcBuf); got != h.HeaderCRC32 {
		return nil, diskerr.New(diskerr.ChecksumMismatch, "gpt", fmt.Sprintf("header CRC32: want 0x%08x got 0x%08x", h.HeaderCRC32, got), nil)
	}
	return h, nil
}

func parseGPTEntry(data []byte) (GPTEntry, error) {
	var e GPTEntry
	typeGUID, err := guidFromMixedEndian(data[0:16])
	if err != nil {
		return e, err
	}
	uniqueGUID, err := guidFromMixedEndian(data[16:32])
	if err != nil {
		return e, err
	}
	e.TypeGUID = typeGUID
	e.UniqueGUID = uniqueGUID
	e.FirstLBA = bytesx.U64LE(data[32:40])
	e.LastLBA = bytesx.U64LE(data[40:48])
	e.Attributes = bytesx.U64LE(data[48:56])
	e.Name = bytesx.UTF16LEString(data[56:128])
	return e, nil
}

// guidFromMixedEndian decodes the RFC-4122 "mixed-endian" GUID encoding
// (first three fields little-endian, last two big-endian) GPT uses.
func guidFromMixedEndian(b []byte) (uuid.UUID, error) {
	var be [16]byte
	bytesx.PutU32BE(be[0:4], bytesx.U32LE(b[0:4]))
	bytesx.PutU16BE(be[4:6], bytesx.U16LE(b[4:6]))
	bytesx.PutU16BE(be[6:8], bytesx.U16LE(b[6:8]))
	copy(be[8:16], b[8:16])
	return uuid.FromBytes(be[:])
}

// ReadGPT reads the primary and backup GPT headers and the entry array of
// the header it uses, requiring a protective MBR at LBA 0 (type 0xEE), per spec.md §4.3. A
// primary/backup disagreement is recorded as a Diagnostic rather than
// failing outright, with the primary's entry-array CRC treated as
// authoritative.
func ReadGPT(disk sparse.Stream) (*Table, error) {
	protective := make([]byte, SectorSize)
	if err := sparse.ReadFull(disk, protective, 0); err != nil {
		return nil, diskerr.New(diskerr.Truncated, "gpt", "protective MBR", err)
	}
	mbr, err := ParseMBR(protective)
	if err != nil {
		return nil, err
	}
	if mbr.Entries[0].Type != TypeGPTProtective {
		return nil, diskerr.New(diskerr.BadMagic, "gpt", "missing protective MBR (type 0xEE)", nil)
	}

	primaryBuf := make([]byte, SectorSize)
	if err := sparse.ReadFull(disk, primaryBuf, SectorSize); err != nil {
		return nil, diskerr.New(diskerr.Truncated, "gpt", "primary header LBA 1", err)
	}
	primary, primaryErr := parseGPTHeader(primaryBuf)

	var diagnostics []Diagnostic
	backupLBA := disk.Size()/SectorSize - 1
	backupBuf := make([]byte, SectorSize)
	var backup *GPTHeader
	if err := sparse.ReadFull(disk, backupBuf, backupLBA*SectorSize); err == nil {
		backup, _ = parseGPTHeader(backupBuf)
	}

	header := primary
	if primaryErr != nil {
		if backup == nil {
			return nil, diskerr.New(diskerr.CorruptStructure, "gpt", "both primary and backup headers invalid", primaryErr)
		}
		diagnostics = append(diagnostics, Diagnostic{Kind: "backup_out_of_sync", Message: "primary header invalid, using backup"})
		header = backup
	} else if backup != nil && backup.EntriesCRC32 != primary.EntriesCRC32 {
		diagnostics = append(diagnostics, Diagnostic{Kind: "backup_out_of_sync", Message: "backup entry-array CRC disagrees with primary; primary is authoritative"})
	}

	entriesBuf := make([]byte, int(header.NumEntries)*int(header.EntrySize))
	if err := sparse.ReadFull(disk, entriesBuf, int64(header.EntriesStartLBA)*SectorSize); err != nil {
		return nil, diskerr.New(diskerr.Truncated, "gpt", "entry array", err)
	}
	if got := bytesx.CRC32(entriesBuf); got != header.EntriesCRC32 {
		return nil, diskerr.New(diskerr.ChecksumMismatch, "gpt", fmt.Sprintf("entry array CRC32: want 0x%08x got 0x%08x", header.EntriesCRC32, got), nil)
	}

	t := &Table{Scheme: "gpt", Diagnostics: diagnostics}
	emptyGUID := uuid.UUID{}
	for i := uint32(0); i < header.NumEntries; i++ {
		off := int(i * header.EntrySize)
		e, err := parseGPTEntry(entriesBuf[off : off+int(header.EntrySize)])
		if err != nil {
			return nil, diskerr.New(diskerr.CorruptStructure, "gpt", "entry GUID", err)
		}
		if e.TypeGUID == emptyGUID {
			continue
		}
		t.Partitions = append(t.Partitions, Partition{
			Num:    len(t.Partitions) + 1,
			Offset: e.FirstLBA * SectorSize,
			Size:   (e.LastLBA - e.FirstLBA + 1) * SectorSize,
			Type:   e.TypeGUID.String(),
			Name:   e.Name,
		})
	}
	return t, nil
}
