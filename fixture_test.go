// Copyright 2026 The zipdump Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipdump

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/klauspost/compress/flate"
)

// 2024-06-15 12:34:56 as a packed DOS timestamp.
const testStamp = uint32(0x58CF<<16 | 0x645C)

type testEntry struct {
	name     string
	content  string
	method   uint16
	password string // encrypt with the traditional cipher when set
}

// buildArchive assembles a well-formed single-volume archive: local headers
// with data, the central directory, and the end record with an optional
// comment.
func buildArchive(t *testing.T, entries []testEntry, comment string) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	type placed struct {
		testEntry
		offset   uint32
		crc      uint32
		compSize uint32
		flags    uint16
	}
	var dir []placed

	for _, e := range entries {
		p := placed{testEntry: e}
		p.offset = uint32(buf.Len())
		p.crc = crc32.ChecksumIEEE([]byte(e.content))

		data := []byte(e.content)
		if e.method == MethodDeflate {
			data = deflateBytes(t, data)
		}
		if e.password != "" {
			p.flags |= FlagEncrypted
			hdr := make([]byte, encryptionHeaderLen)
			for i := range hdr {
				hdr[i] = byte(0x40 + i)
			}
			hdr[encryptionHeaderLen-1] = byte(p.crc >> 24)
			c := NewCipher(Password(e.password))
			c.Encrypt(hdr)
			enc := append([]byte{}, data...)
			c.Encrypt(enc)
			data = append(hdr, enc...)
		}
		p.compSize = uint32(len(data))

		binary.Write(buf, binary.LittleEndian, uint32(0x04034b50))
		binary.Write(buf, binary.LittleEndian, uint16(20))       // version needed
		binary.Write(buf, binary.LittleEndian, p.flags)          // flags
		binary.Write(buf, binary.LittleEndian, e.method)         // method
		binary.Write(buf, binary.LittleEndian, testStamp)        // dos timestamp
		binary.Write(buf, binary.LittleEndian, p.crc)            // crc32
		binary.Write(buf, binary.LittleEndian, p.compSize)       // compressed size
		binary.Write(buf, binary.LittleEndian, uint32(len(e.content)))
		binary.Write(buf, binary.LittleEndian, uint16(len(e.name)))
		binary.Write(buf, binary.LittleEndian, uint16(0)) // extra len
		buf.WriteString(e.name)
		buf.Write(data)

		dir = append(dir, p)
	}

	dirOffset := uint32(buf.Len())
	for _, p := range dir {
		binary.Write(buf, binary.LittleEndian, uint32(0x02014b50))
		binary.Write(buf, binary.LittleEndian, uint16(20)) // version made by
		binary.Write(buf, binary.LittleEndian, uint16(20)) // version needed
		binary.Write(buf, binary.LittleEndian, p.flags)
		binary.Write(buf, binary.LittleEndian, p.method)
		binary.Write(buf, binary.LittleEndian, testStamp)
		binary.Write(buf, binary.LittleEndian, p.crc)
		binary.Write(buf, binary.LittleEndian, p.compSize)
		binary.Write(buf, binary.LittleEndian, uint32(len(p.content)))
		binary.Write(buf, binary.LittleEndian, uint16(len(p.name)))
		binary.Write(buf, binary.LittleEndian, uint16(0)) // extra len
		binary.Write(buf, binary.LittleEndian, uint16(0)) // comment len
		binary.Write(buf, binary.LittleEndian, uint16(0)) // disk nr start
		binary.Write(buf, binary.LittleEndian, uint16(0)) // internal attrs
		binary.Write(buf, binary.LittleEndian, uint32(0)) // external attrs
		binary.Write(buf, binary.LittleEndian, p.offset)
		buf.WriteString(p.name)
	}
	dirSize := uint32(buf.Len()) - dirOffset

	binary.Write(buf, binary.LittleEndian, uint32(0x06054b50))
	binary.Write(buf, binary.LittleEndian, uint16(0)) // this disk
	binary.Write(buf, binary.LittleEndian, uint16(0)) // start disk
	binary.Write(buf, binary.LittleEndian, uint16(len(dir)))
	binary.Write(buf, binary.LittleEndian, uint16(len(dir)))
	binary.Write(buf, binary.LittleEndian, dirSize)
	binary.Write(buf, binary.LittleEndian, dirOffset)
	binary.Write(buf, binary.LittleEndian, uint16(len(comment)))
	buf.WriteString(comment)

	// The quick scan refuses anything below the minimum archive size; keep
	// fixtures above it.
	if buf.Len() < minArchiveSize {
		t.Fatalf("fixture too small: %d bytes", buf.Len())
	}
	return buf.Bytes()
}

func deflateBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	fw, err := flate.NewWriter(buf, flate.DefaultCompression)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := fw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// collect drains a block sequence into one buffer, failing the test on a
// sequence error.
func collect(t *testing.T, seq BlockSeq) []byte {
	t.Helper()
	var out []byte
	for blk, err := range seq {
		if err != nil {
			t.Fatalf("sequence error: %v", err)
		}
		out = append(out, blk...)
	}
	return out
}
