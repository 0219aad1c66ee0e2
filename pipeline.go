// Copyright 2026 The zipdump Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipdump

import (
	"fmt"
	"io"
	"iter"

	"github.com/klauspost/compress/flate"
)

// BlockSeq is a lazy sequence of byte blocks. Stages compose by wrapping:
// each pulls blocks from its input, transforms them, and yields the result.
// A yielded block is only valid until the next block is produced; consumers
// that need to keep data must copy it. After a non-nil error the sequence
// ends.
type BlockSeq = iter.Seq2[[]byte, error]

// RawBlocks yields length bytes starting at offset, in blocks of at most
// chunkSize (DefaultChunkSize if zero). The source is re-positioned before
// every read, so interleaved seeks on src between pulls are harmless. The
// yielded block is reused between iterations.
func RawBlocks(src io.ReadSeeker, offset, length int64, chunkSize int) BlockSeq {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return func(yield func([]byte, error) bool) {
		buf := make([]byte, chunkSize)
		for length > 0 {
			if _, err := src.Seek(offset, io.SeekStart); err != nil {
				yield(nil, fmt.Errorf("seek to %#x: %w", offset, err))
				return
			}
			n := len(buf)
			if int64(n) > length {
				n = int(length)
			}
			if _, err := io.ReadFull(src, buf[:n]); err != nil {
				yield(nil, fmt.Errorf("read %d bytes at %#x: %w", n, offset, err))
				return
			}
			offset += int64(n)
			length -= int64(n)
			if !yield(buf[:n], nil) {
				return
			}
		}
	}
}

// SkipBytes returns a stage that drops the first n bytes of seq. If observe
// is non-nil it receives the skipped bytes, in order, possibly across
// several calls. It is used to discard the 12-byte encryption header while
// still letting a caller inspect it.
func SkipBytes(seq BlockSeq, n int, observe func([]byte)) BlockSeq {
	return func(yield func([]byte, error) bool) {
		remaining := n
		for block, err := range seq {
			if err != nil {
				yield(nil, err)
				return
			}
			if remaining > 0 {
				skip := remaining
				if skip > len(block) {
					skip = len(block)
				}
				if observe != nil {
					observe(block[:skip])
				}
				remaining -= skip
				block = block[skip:]
				if len(block) == 0 {
					continue
				}
			}
			if !yield(block, nil) {
				return
			}
		}
	}
}

// Decode returns a stage that undoes the given compression method: stored
// entries pass through unchanged, deflated entries are inflated with a raw
// (headerless) DEFLATE decoder. Other methods fail with
// ErrUnsupportedMethod.
func Decode(seq BlockSeq, method uint16) BlockSeq {
	switch method {
	case MethodStore:
		return seq
	case MethodDeflate:
		return inflate(seq)
	default:
		return func(yield func([]byte, error) bool) {
			yield(nil, fmt.Errorf("%w: %d", ErrUnsupportedMethod, method))
		}
	}
}

func inflate(seq BlockSeq) BlockSeq {
	return func(yield func([]byte, error) bool) {
		br := newBlockReader(seq)
		defer br.stop()

		fr := flate.NewReader(br)
		defer fr.Close()

		buf := make([]byte, DefaultChunkSize)
		for {
			n, err := fr.Read(buf)
			if n > 0 && !yield(buf[:n], nil) {
				return
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				// Prefer the upstream error over flate's view of the
				// truncated stream it caused.
				if br.err != nil {
					err = br.err
				}
				yield(nil, fmt.Errorf("inflate: %w", err))
				return
			}
		}
	}
}

// blockReader adapts a BlockSeq to io.Reader so it can feed flate.
type blockReader struct {
	next func() ([]byte, error, bool)
	stop func()
	rest []byte
	err  error
	done bool
}

func newBlockReader(seq BlockSeq) *blockReader {
	next, stop := iter.Pull2(seq)
	return &blockReader{next: next, stop: stop}
}

func (r *blockReader) Read(p []byte) (int, error) {
	for len(r.rest) == 0 {
		if r.done {
			if r.err != nil {
				return 0, r.err
			}
			return 0, io.EOF
		}
		block, err, ok := r.next()
		if !ok {
			r.done = true
			continue
		}
		if err != nil {
			r.done = true
			r.err = err
			return 0, err
		}
		r.rest = block
	}
	n := copy(p, r.rest)
	r.rest = r.rest[n:]
	return n, nil
}
