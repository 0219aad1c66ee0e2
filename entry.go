// Copyright 2026 The zipdump Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipdump

import (
	"fmt"
	"io"
)

// entryData describes where an entry's compressed payload lives and how it
// is packaged, resolved from either header flavor.
type entryData struct {
	offset int64
	size   int64
	flags  uint16
	method uint16
}

// resolveEntry maps a record to its data region. Local file headers are used
// directly. Central directory entries are followed to their local header,
// whose magic is verified; the directory's sizes win when the local header
// deferred them to a data descriptor.
func resolveEntry(rec Record, src io.ReadSeeker) (entryData, error) {
	switch r := rec.(type) {
	case *LocalFileHeader:
		return entryData{
			offset: r.DataOffset,
			size:   int64(r.CompressedSize),
			flags:  r.Flags,
			method: r.Method,
		}, nil

	case *CentralDirEntry:
		hdr, err := readRegion(src, int64(r.HeaderOffset), 4+26)
		if err != nil {
			return entryData{}, fmt.Errorf("local header at %#x: %w", r.HeaderOffset, err)
		}
		if !magicAt(hdr, TypeLocalFileHeader) {
			return entryData{}, fmt.Errorf("%w: no local header at %#x", ErrCorrupted, r.HeaderOffset)
		}
		lfh := decodeLocalFileHeader(int64(r.HeaderOffset), hdr[4:]).(*LocalFileHeader)
		size := int64(lfh.CompressedSize)
		if size == 0 {
			size = int64(r.CompressedSize)
		}
		return entryData{
			offset: lfh.DataOffset,
			size:   size,
			flags:  r.Flags,
			method: r.Method,
		}, nil

	default:
		return entryData{}, fmt.Errorf("%w: %v", ErrNotEntry, rec.Type())
	}
}

// OpenEntry returns the entry's plaintext content as a lazy block sequence:
// the compressed data region is read in chunks, decrypted when the entry is
// encrypted, and decompressed per its method.
//
// rec must be a *LocalFileHeader or a *CentralDirEntry; a directory entry is
// resolved through its local header. Encrypted entries require key material;
// a wrong password is not detected and simply produces garbage, usually
// followed by an inflate error. Entries using strong (AES) encryption are
// rejected with ErrStrongEncryption.
func OpenEntry(rec Record, src io.ReadSeeker, key KeyMaterial) (BlockSeq, error) {
	e, err := resolveEntry(rec, src)
	if err != nil {
		return nil, err
	}
	seq, err := e.raw(src, key)
	if err != nil {
		return nil, err
	}
	if e.flags&FlagEncrypted != 0 {
		seq = SkipBytes(seq, encryptionHeaderLen, nil)
	}
	return Decode(seq, e.method), nil
}

// OpenEntryRaw is OpenEntry without the decompression stage: it yields the
// entry's compressed bytes, decrypted when key material is given for an
// encrypted entry. The 12-byte encryption header is included either way, so
// yielded offsets line up with the entry's data region on disk. With a nil
// key the encrypted payload is yielded as-is.
func OpenEntryRaw(rec Record, src io.ReadSeeker, key KeyMaterial) (BlockSeq, error) {
	e, err := resolveEntry(rec, src)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return RawBlocks(src, e.offset, e.size, 0), nil
	}
	return e.raw(src, key)
}

// raw yields the entry's data region, decrypted when it is encrypted and key
// material is given. The encryption header is decrypted but not dropped.
func (e entryData) raw(src io.ReadSeeker, key KeyMaterial) (BlockSeq, error) {
	seq := RawBlocks(src, e.offset, e.size, 0)
	if e.flags&FlagEncrypted == 0 {
		return seq, nil
	}
	if e.flags&FlagStrongEncryption != 0 {
		return nil, ErrStrongEncryption
	}
	if key == nil {
		return nil, ErrPasswordRequired
	}
	return DecryptBlocks(seq, key), nil
}
