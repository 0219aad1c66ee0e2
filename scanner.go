// Copyright 2026 The zipdump Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipdump

import (
	"bytes"
	"fmt"
	"io"
	"iter"
)

// carryLen is the number of trailing window bytes carried into the next
// chunk so that a record header straddling a chunk boundary still decodes.
// It must cover the "PK" magic, the type code and the largest fixed header.
const carryLen = 4 + maxFixedHeaderSize + 18

// ScanOptions bounds a brute-force scan.
type ScanOptions struct {
	// Offset is where the scan starts. A negative value counts back from
	// the end of the source.
	Offset int64

	// Length limits how many bytes are scanned. Zero means until the end
	// of the source.
	Length int64

	// ChunkSize is the read granularity (DefaultChunkSize if zero).
	ChunkSize int
}

// ScanRecords brute-forces the source for PK record signatures and yields
// every record it can decode, lazily, in file-offset order. It makes no
// assumption about archive well-formedness: any "PK" byte pair followed by a
// known type code and a decodable fixed header is reported, so payload data
// can produce false positives.
//
// The source is re-positioned before every chunk read, so a consumer may
// freely seek src between pulls (e.g. to LoadItems on a yielded record).
func ScanRecords(src io.ReadSeeker, opts ScanOptions) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		size, err := src.Seek(0, io.SeekEnd)
		if err != nil {
			yield(nil, fmt.Errorf("determine size: %w", err))
			return
		}

		offset := opts.Offset
		if offset < 0 {
			offset += size
		}
		if offset < 0 {
			offset = 0
		}
		if offset > size {
			offset = size
		}
		remaining := size - offset
		if opts.Length > 0 && opts.Length < remaining {
			remaining = opts.Length
		}
		chunkSize := opts.ChunkSize
		if chunkSize <= 0 {
			chunkSize = DefaultChunkSize
		}

		var prev []byte
		chunk := make([]byte, chunkSize)
		for remaining > 0 {
			if _, err := src.Seek(offset, io.SeekStart); err != nil {
				yield(nil, fmt.Errorf("seek to %#x: %w", offset, err))
				return
			}
			n := chunkSize
			if int64(n) > remaining {
				n = int(remaining)
			}
			if _, err := io.ReadFull(src, chunk[:n]); err != nil {
				yield(nil, fmt.Errorf("read %d bytes at %#x: %w", n, offset, err))
				return
			}

			window := chunk[:n]
			if len(prev) > 0 {
				window = append(prev, window...)
			}
			base := offset - int64(len(prev))

			for pos := 0; ; {
				i := bytes.Index(window[pos:], []byte("PK"))
				if i < 0 {
					break
				}
				pos += i
				rec := DecodeRecord(base, window, pos+4)
				pos += 2
				if rec == nil {
					continue
				}
				// A record whose fixed header lies entirely inside the
				// carried prefix was already decodable, and yielded, in the
				// previous window.
				hdrEnd := int(rec.End()-base) - variableSize(rec)
				if hdrEnd <= len(prev) {
					continue
				}
				if !yield(rec, nil) {
					return
				}
			}

			keep := carryLen
			if keep > len(window) {
				keep = len(window)
			}
			prev = append(prev[:0], window[len(window)-keep:]...)
			offset += int64(n)
			remaining -= int64(n)
		}
	}
}

// variableSize is the total length of the record's variable-length regions
// (name, extra, comment, data), i.e. End minus the fixed part.
func variableSize(rec Record) int {
	switch r := rec.(type) {
	case *LocalFileHeader:
		return int(r.NameLength) + int(r.ExtraLength) + int(r.CompressedSize)
	case *CentralDirEntry:
		return int(r.NameLength) + int(r.ExtraLength) + int(r.CommentLength)
	case *EndOfCentralDir:
		return int(r.CommentLength)
	default:
		return 0
	}
}
