// Copyright 2026 The zipdump Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"iter"
)

// minArchiveSize is the smallest possible valid archive: an empty central
// directory is still anchored by a full end record.
const minArchiveSize = 100

// maxEODDistance is how far from the end of the file the end-of-central-
// directory magic can be: its fixed header plus a maximal 65535-byte comment.
const maxEODDistance = 0x10100

var eodMagic = []byte{'P', 'K', 0x05, 0x06}

// QuickScan locates the end-of-central-directory record near the end of the
// source and walks the central directory it declares, yielding the end
// record first and then every directory entry in ascending offset order.
//
// Unlike ScanRecords it reads only the directory regions, which makes it
// cheap over remote range-read sources, but it trusts the end record's
// declared offsets: a missing central-directory signature at a declared
// position aborts the walk with ErrCorrupted.
func QuickScan(src io.ReadSeeker) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		eod, err := findEndOfCentralDir(src)
		if err != nil {
			yield(nil, err)
			return
		}
		if !yield(eod, nil) {
			return
		}

		dirOfs := int64(eod.DirOffset)
		for i := 0; i < int(eod.TotalEntries); i++ {
			hdr, err := readRegion(src, dirOfs, 4+42)
			if err != nil {
				yield(nil, fmt.Errorf("directory entry %d at %#x: %w", i, dirOfs, err))
				return
			}
			if !magicAt(hdr, TypeCentralDirEntry) {
				yield(nil, fmt.Errorf("%w: no directory entry at %#x", ErrCorrupted, dirOfs))
				return
			}
			ent := decodeCentralDirEntry(dirOfs, hdr[4:])
			if !yield(ent, nil) {
				return
			}
			dirOfs = ent.End()
		}
	}
}

// findEndOfCentralDir searches the trailing bytes of the source for the end
// record's magic, taking the match closest to the end. The first pass covers
// the minimum archive size; if that misses, a single wider pass covers the
// largest possible comment.
func findEndOfCentralDir(src io.ReadSeeker) (*EndOfCentralDir, error) {
	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("determine size: %w", err)
	}
	if size < minArchiveSize {
		return nil, fmt.Errorf("%w: %d bytes is below the %d byte minimum",
			ErrNotArchive, size, minArchiveSize)
	}

	for _, span := range []int64{minArchiveSize, maxEODDistance} {
		if span > size {
			span = size
		}
		tail, err := readRegion(src, size-span, span)
		if err != nil {
			return nil, fmt.Errorf("read trailer: %w", err)
		}
		if i := bytes.LastIndex(tail, eodMagic); i >= 0 {
			base := size - span
			rec := DecodeRecord(base, tail, i+4)
			if eod, ok := rec.(*EndOfCentralDir); ok {
				return eod, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no end-of-central-directory record", ErrNotArchive)
}

// magicAt reports whether the four bytes at b start a record of the given
// type.
func magicAt(b []byte, typ RecordType) bool {
	return len(b) >= 4 && b[0] == 'P' && b[1] == 'K' &&
		RecordType(binary.LittleEndian.Uint16(b[2:4])) == typ
}
