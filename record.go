// Copyright 2026 The zipdump Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipdump

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// RecordType identifies a PK record by the two bytes following the "PK"
// prefix, interpreted little-endian.
type RecordType uint16

// String renders the type code the way it appears on disk, e.g. "PK.0102".
func (t RecordType) String() string {
	return fmt.Sprintf("PK.%02x%02x", byte(t), byte(t>>8))
}

// Record is a decoded PK record. Implementations are immutable after
// construction except for the variable-length fields resolved by LoadItems.
type Record interface {
	// Offset is the absolute file offset of the "PK" magic.
	Offset() int64

	// End is the offset immediately after all of the record's regions,
	// including variable-length ones that have not been loaded.
	End() int64

	// Type returns the record's two-byte type code.
	Type() RecordType

	// LoadItems resolves the record's variable-length fields (name, extra,
	// comment) against the source. It is idempotent: once the fields are
	// loaded, further calls are no-ops.
	LoadItems(src io.ReadSeeker) error

	fmt.Stringer
}

// recordDecoder constructs one record variant from an in-memory window.
// decode receives the absolute offset of the "PK" magic and exactly
// headerSize bytes starting right after the type code; it must not perform
// any I/O.
type recordDecoder struct {
	headerSize int
	decode     func(pkOffset int64, b []byte) Record
}

// recordTypes maps each known type code to its decoder. Unlisted codes are
// not PK records as far as the scanner is concerned.
var recordTypes = map[RecordType]recordDecoder{
	TypeLocalFileHeader:  {26, decodeLocalFileHeader},
	TypeCentralDirEntry:  {42, decodeCentralDirEntry},
	TypeEndOfCentralDir:  {18, decodeEndOfCentralDir},
	TypeDataDescriptor:   {12, decodeDataDescriptor},
	TypeZip64EndOfDir:    {0, decodeMarker(TypeZip64EndOfDir)},
	TypeZip64Locator:     {0, decodeMarker(TypeZip64Locator)},
	TypeArchiveExtraData: {0, decodeMarker(TypeArchiveExtraData)},
	TypeSpannedMarker:    {0, decodeMarker(TypeSpannedMarker)},
	TypeArchiveSignature: {0, decodeMarker(TypeArchiveSignature)},
}

// maxFixedHeaderSize is the largest fixed header in recordTypes. The
// scanner's carry window must be at least this large.
const maxFixedHeaderSize = 42

// LocalFileHeader is the per-entry header immediately preceding the entry's
// compressed data (PK.0304).
type LocalFileHeader struct {
	PKOffset       int64
	NeededVersion  uint16
	Flags          uint16
	Method         uint16
	Timestamp      uint32 // DOS time in the low half, DOS date in the high half
	CRC32          uint32
	CompressedSize uint32
	OriginalSize   uint32
	NameLength     uint16
	ExtraLength    uint16

	NameOffset  int64
	ExtraOffset int64
	DataOffset  int64
	EndOffset   int64

	Name   string
	Extra  []byte
	loaded bool
}

func decodeLocalFileHeader(pkOffset int64, b []byte) Record {
	r := &LocalFileHeader{
		PKOffset:       pkOffset,
		NeededVersion:  binary.LittleEndian.Uint16(b[0:2]),
		Flags:          binary.LittleEndian.Uint16(b[2:4]),
		Method:         binary.LittleEndian.Uint16(b[4:6]),
		Timestamp:      binary.LittleEndian.Uint32(b[6:10]),
		CRC32:          binary.LittleEndian.Uint32(b[10:14]),
		CompressedSize: binary.LittleEndian.Uint32(b[14:18]),
		OriginalSize:   binary.LittleEndian.Uint32(b[18:22]),
		NameLength:     binary.LittleEndian.Uint16(b[22:24]),
		ExtraLength:    binary.LittleEndian.Uint16(b[24:26]),
	}
	r.NameOffset = pkOffset + 4 + 26
	r.ExtraOffset = r.NameOffset + int64(r.NameLength)
	r.DataOffset = r.ExtraOffset + int64(r.ExtraLength)
	r.EndOffset = r.DataOffset + int64(r.CompressedSize)
	return r
}

func (r *LocalFileHeader) Offset() int64    { return r.PKOffset }
func (r *LocalFileHeader) End() int64       { return r.EndOffset }
func (r *LocalFileHeader) Type() RecordType { return TypeLocalFileHeader }

// Modified decodes the record's DOS timestamp. A non-nil error means the
// date fields were out of range and the epoch floor was substituted.
func (r *LocalFileHeader) Modified() (time.Time, error) {
	return DecodeTimestamp(r.Timestamp)
}

// LoadItems reads the entry name and extra field. The compressed data region
// is never loaded here; use OpenEntry or RawBlocks for that.
func (r *LocalFileHeader) LoadItems(src io.ReadSeeker) error {
	if r.loaded {
		return nil
	}
	name, err := readRegion(src, r.NameOffset, int64(r.NameLength))
	if err != nil {
		return fmt.Errorf("load name: %w", err)
	}
	extra, err := readRegion(src, r.ExtraOffset, int64(r.ExtraLength))
	if err != nil {
		return fmt.Errorf("load extra field: %w", err)
	}
	r.Name = DecodeName(name)
	r.Extra = extra
	r.loaded = true
	return nil
}

func (r *LocalFileHeader) String() string {
	s := fmt.Sprintf("PK.0304: %04x %04x %04x %08x %08x %08x %08x %04x %04x |  %08x %08x %08x %08x",
		r.NeededVersion, r.Flags, r.Method, r.Timestamp, r.CRC32,
		r.CompressedSize, r.OriginalSize, r.NameLength, r.ExtraLength,
		r.NameOffset, r.ExtraOffset, r.DataOffset, r.EndOffset)
	if r.Name != "" {
		s += " - " + r.Name
	}
	return s
}

// CentralDirEntry is one entry of the archive's central directory (PK.0102).
type CentralDirEntry struct {
	PKOffset       int64
	CreateVersion  uint16
	NeededVersion  uint16
	Flags          uint16
	Method         uint16
	Timestamp      uint32
	CRC32          uint32
	CompressedSize uint32
	OriginalSize   uint32
	NameLength     uint16
	ExtraLength    uint16
	CommentLength  uint16
	DiskNrStart    uint16
	ZipAttrs       uint16
	OSAttrs        uint32
	HeaderOffset   uint32 // offset of the entry's local file header

	NameOffset    int64
	ExtraOffset   int64
	CommentOffset int64
	EndOffset     int64

	Name    string
	Extra   []byte
	Comment string
	loaded  bool
}

func decodeCentralDirEntry(pkOffset int64, b []byte) Record {
	r := &CentralDirEntry{
		PKOffset:       pkOffset,
		CreateVersion:  binary.LittleEndian.Uint16(b[0:2]),
		NeededVersion:  binary.LittleEndian.Uint16(b[2:4]),
		Flags:          binary.LittleEndian.Uint16(b[4:6]),
		Method:         binary.LittleEndian.Uint16(b[6:8]),
		Timestamp:      binary.LittleEndian.Uint32(b[8:12]),
		CRC32:          binary.LittleEndian.Uint32(b[12:16]),
		CompressedSize: binary.LittleEndian.Uint32(b[16:20]),
		OriginalSize:   binary.LittleEndian.Uint32(b[20:24]),
		NameLength:     binary.LittleEndian.Uint16(b[24:26]),
		ExtraLength:    binary.LittleEndian.Uint16(b[26:28]),
		CommentLength:  binary.LittleEndian.Uint16(b[28:30]),
		DiskNrStart:    binary.LittleEndian.Uint16(b[30:32]),
		ZipAttrs:       binary.LittleEndian.Uint16(b[32:34]),
		OSAttrs:        binary.LittleEndian.Uint32(b[34:38]),
		HeaderOffset:   binary.LittleEndian.Uint32(b[38:42]),
	}
	r.NameOffset = pkOffset + 4 + 42
	r.ExtraOffset = r.NameOffset + int64(r.NameLength)
	r.CommentOffset = r.ExtraOffset + int64(r.ExtraLength)
	r.EndOffset = r.CommentOffset + int64(r.CommentLength)
	return r
}

func (r *CentralDirEntry) Offset() int64    { return r.PKOffset }
func (r *CentralDirEntry) End() int64       { return r.EndOffset }
func (r *CentralDirEntry) Type() RecordType { return TypeCentralDirEntry }

// Modified decodes the record's DOS timestamp. A non-nil error means the
// date fields were out of range and the epoch floor was substituted.
func (r *CentralDirEntry) Modified() (time.Time, error) {
	return DecodeTimestamp(r.Timestamp)
}

// LoadItems reads the entry name, extra field and comment.
func (r *CentralDirEntry) LoadItems(src io.ReadSeeker) error {
	if r.loaded {
		return nil
	}
	name, err := readRegion(src, r.NameOffset, int64(r.NameLength))
	if err != nil {
		return fmt.Errorf("load name: %w", err)
	}
	extra, err := readRegion(src, r.ExtraOffset, int64(r.ExtraLength))
	if err != nil {
		return fmt.Errorf("load extra field: %w", err)
	}
	comment, err := readRegion(src, r.CommentOffset, int64(r.CommentLength))
	if err != nil {
		return fmt.Errorf("load comment: %w", err)
	}
	r.Name = DecodeName(name)
	r.Extra = extra
	r.Comment = DecodeComment(comment, r.Flags&FlagUTF8 != 0)
	r.loaded = true
	return nil
}

// Summary is a one-line human rendition: size, compression ratio, timestamp,
// crc and encryption flag.
func (r *CentralDirEntry) Summary() string {
	var ratio float64
	if r.OriginalSize != 0 {
		ratio = 100.0 * float64(r.CompressedSize) / float64(r.OriginalSize)
	}
	var flag string
	switch {
	case r.Flags&FlagStrongEncryption != 0:
		flag = "AES"
	case r.Flags&FlagEncrypted != 0:
		flag = "CRYPT"
	}
	ts, _ := DecodeTimestamp(r.Timestamp)
	return fmt.Sprintf("%10d (%5.1f%%)  %s  %08x [%5s] %s",
		r.OriginalSize, ratio, ts.Format("2006-01-02 15:04:05"), r.CRC32, flag, r.Name)
}

func (r *CentralDirEntry) String() string {
	s := fmt.Sprintf("PK.0102: %04x %04x %04x %04x %08x %08x %08x %08x %04x %04x %04x %04x %04x %08x %08x |  %08x %08x %08x %08x",
		r.CreateVersion, r.NeededVersion, r.Flags, r.Method, r.Timestamp,
		r.CRC32, r.CompressedSize, r.OriginalSize, r.NameLength, r.ExtraLength,
		r.CommentLength, r.DiskNrStart, r.ZipAttrs, r.OSAttrs, r.HeaderOffset,
		r.NameOffset, r.ExtraOffset, r.CommentOffset, r.EndOffset)
	if r.Name != "" {
		s += " - " + r.Name
	}
	return s
}

// EndOfCentralDir anchors the central directory's offset, size and entry
// count near the end of the archive (PK.0506).
type EndOfCentralDir struct {
	PKOffset      int64
	ThisDiskNr    uint16
	StartDiskNr   uint16
	ThisEntries   uint16
	TotalEntries  uint16
	DirSize       uint32
	DirOffset     uint32
	CommentLength uint16

	CommentOffset int64
	EndOffset     int64

	Comment string
	loaded  bool
}

func decodeEndOfCentralDir(pkOffset int64, b []byte) Record {
	r := &EndOfCentralDir{
		PKOffset:      pkOffset,
		ThisDiskNr:    binary.LittleEndian.Uint16(b[0:2]),
		StartDiskNr:   binary.LittleEndian.Uint16(b[2:4]),
		ThisEntries:   binary.LittleEndian.Uint16(b[4:6]),
		TotalEntries:  binary.LittleEndian.Uint16(b[6:8]),
		DirSize:       binary.LittleEndian.Uint32(b[8:12]),
		DirOffset:     binary.LittleEndian.Uint32(b[12:16]),
		CommentLength: binary.LittleEndian.Uint16(b[16:18]),
	}
	r.CommentOffset = pkOffset + 4 + 18
	r.EndOffset = r.CommentOffset + int64(r.CommentLength)
	return r
}

func (r *EndOfCentralDir) Offset() int64    { return r.PKOffset }
func (r *EndOfCentralDir) End() int64       { return r.EndOffset }
func (r *EndOfCentralDir) Type() RecordType { return TypeEndOfCentralDir }

// LoadItems reads the archive comment, if any.
func (r *EndOfCentralDir) LoadItems(src io.ReadSeeker) error {
	if r.loaded || r.CommentLength == 0 {
		return nil
	}
	comment, err := readRegion(src, r.CommentOffset, int64(r.CommentLength))
	if err != nil {
		return fmt.Errorf("load comment: %w", err)
	}
	r.Comment = DecodeArchiveComment(comment)
	r.loaded = true
	return nil
}

// Spanned reports whether the entry counts indicate a multi-volume archive.
func (r *EndOfCentralDir) Spanned() bool {
	return r.ThisEntries != r.TotalEntries
}

// Summary is a one-line human rendition of the directory map.
func (r *EndOfCentralDir) Summary() string {
	var s string
	if r.Spanned() {
		s = fmt.Sprintf("Spanned archive %d .. %d  ( %d of %d entries )",
			r.StartDiskNr, r.ThisDiskNr, r.ThisEntries, r.TotalEntries)
	} else {
		s = fmt.Sprintf("EOD: %d entries", r.TotalEntries)
	}
	return s + fmt.Sprintf(", %d byte directory", r.DirSize)
}

func (r *EndOfCentralDir) String() string {
	return fmt.Sprintf("PK.0506: %04x %04x %04x %04x %08x %08x %04x |  %08x %08x",
		r.ThisDiskNr, r.StartDiskNr, r.ThisEntries, r.TotalEntries, r.DirSize,
		r.DirOffset, r.CommentLength, r.CommentOffset, r.EndOffset)
}

// DataDescriptor trails an entry whose sizes were unknown when its local
// header was written (PK.0708).
type DataDescriptor struct {
	PKOffset       int64
	CRC32          uint32
	CompressedSize uint32
	OriginalSize   uint32

	EndOffset int64
}

func decodeDataDescriptor(pkOffset int64, b []byte) Record {
	r := &DataDescriptor{
		PKOffset:       pkOffset,
		CRC32:          binary.LittleEndian.Uint32(b[0:4]),
		CompressedSize: binary.LittleEndian.Uint32(b[4:8]),
		OriginalSize:   binary.LittleEndian.Uint32(b[8:12]),
	}
	r.EndOffset = pkOffset + 4 + 12
	return r
}

func (r *DataDescriptor) Offset() int64                 { return r.PKOffset }
func (r *DataDescriptor) End() int64                    { return r.EndOffset }
func (r *DataDescriptor) Type() RecordType              { return TypeDataDescriptor }
func (r *DataDescriptor) LoadItems(io.ReadSeeker) error { return nil }

func (r *DataDescriptor) String() string {
	return fmt.Sprintf("PK.0708: %08x %08x %08x |  %08x",
		r.CRC32, r.CompressedSize, r.OriginalSize, r.EndOffset)
}

// Marker is a record that is recognized by its magic but carries no decoded
// fixed header: the two ZIP64 end records, the archive extra data record, the
// spanned-archive marker and the archive signature.
type Marker struct {
	PKOffset int64
	Kind     RecordType
}

func decodeMarker(kind RecordType) func(int64, []byte) Record {
	return func(pkOffset int64, _ []byte) Record {
		return &Marker{PKOffset: pkOffset, Kind: kind}
	}
}

func (r *Marker) Offset() int64                 { return r.PKOffset }
func (r *Marker) End() int64                    { return r.PKOffset + 4 }
func (r *Marker) Type() RecordType              { return r.Kind }
func (r *Marker) LoadItems(io.ReadSeeker) error { return nil }

func (r *Marker) String() string { return r.Kind.String() }

// DecodeRecord constructs the record starting at window[ofs-4:], where ofs
// points at the byte immediately after a confirmed two-byte type code. It
// returns nil when the type code is unknown or the fixed header does not fit
// in the window. The base offset is the absolute position of window[0].
func DecodeRecord(base int64, window []byte, ofs int) Record {
	if ofs < 4 || ofs > len(window) {
		return nil
	}
	typ := RecordType(binary.LittleEndian.Uint16(window[ofs-2 : ofs]))
	dec, ok := recordTypes[typ]
	if !ok {
		return nil
	}
	if ofs+dec.headerSize > len(window) {
		return nil
	}
	return dec.decode(base+int64(ofs-4), window[ofs:ofs+dec.headerSize])
}
