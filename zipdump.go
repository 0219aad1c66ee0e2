// Copyright 2026 The zipdump Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zipdump analyzes PKZIP file contents.
//
// Unlike archive/zip, which refuses anything that is not a well-formed
// archive, zipdump is a forensic tool: it locates PK records inside a byte
// stream that may be incomplete, corrupted, or embedded in unrelated data,
// reconstructs the archive's logical structure, and optionally decrypts and
// decompresses individual entries.
//
// Two complementary discovery strategies are provided:
//
//  1. ScanRecords brute-forces the whole stream for "PK" signatures, chunk by
//     chunk. It finds local headers, directory entries and end markers even
//     when the archive is truncated or its directory is gone, at the cost of
//     false positives when the signature occurs inside payload data.
//
//  2. QuickScan locates the end-of-central-directory record near the end of
//     the stream and follows its declared offsets through the central
//     directory. It reads only a few small regions, which makes it cheap over
//     remote range-read sources (see the urlstream package).
//
// Both yield records lazily in file-offset order. A record's variable-length
// fields (name, extra, comment) are not read at discovery time; call
// [Record.LoadItems] to resolve them against the source.
//
// Entry content is produced by a pull-based pipeline of byte-block stages
// (decrypt, then store/inflate); see [OpenEntry]. The traditional ZIP stream
// cipher is implemented in [Cipher]; WinZip AES encryption is detected and
// reported but not decrypted.
package zipdump

import (
	"fmt"
	"io"
)

// Record type codes: the two bytes following the "PK" prefix, little-endian.
// The full four-byte signature of a record is "PK" followed by these bytes,
// e.g. 0x04034b50 for a local file header.
const (
	TypeCentralDirEntry  RecordType = 0x0201
	TypeSpannedMarker    RecordType = 0x0303
	TypeLocalFileHeader  RecordType = 0x0403
	TypeArchiveSignature RecordType = 0x0505
	TypeEndOfCentralDir  RecordType = 0x0605
	TypeZip64EndOfDir    RecordType = 0x0606
	TypeArchiveExtraData RecordType = 0x0806
	TypeZip64Locator     RecordType = 0x0706
	TypeDataDescriptor   RecordType = 0x0807
)

// General purpose bit flag masks.
const (
	FlagEncrypted         uint16 = 0x0001 // traditional PKWARE encryption
	FlagHasDataDescriptor uint16 = 0x0008 // sizes and crc follow the data
	FlagStrongEncryption  uint16 = 0x0040 // strong (AES) encryption
	FlagUTF8              uint16 = 0x0800 // name and comment are UTF-8
)

// Compression method codes the decode pipeline understands.
const (
	MethodStore   uint16 = 0
	MethodDeflate uint16 = 8
)

// DefaultChunkSize is the read granularity used by ScanRecords and RawBlocks
// when no explicit chunk size is given.
const DefaultChunkSize = 1024 * 1024

// encryptionHeaderLen is the size of the encryption header preceding the
// payload of a traditionally encrypted entry: 11 random bytes plus a check
// byte the format never lets us verify reliably.
const encryptionHeaderLen = 12

// readRegion reads exactly n bytes at the given absolute offset.
func readRegion(src io.ReadSeeker, offset, n int64) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if _, err := src.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to %#x: %w", offset, err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(src, buf); err != nil {
		return nil, fmt.Errorf("read %d bytes at %#x: %w", n, offset, err)
	}
	return buf, nil
}
