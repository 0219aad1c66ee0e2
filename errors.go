// Copyright 2026 The zipdump Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipdump

import "errors"

var (
	// ErrNotArchive is returned when no end-of-central-directory record can
	// be located, meaning the input is most likely not a PKZIP file.
	ErrNotArchive = errors.New("zipdump: not a recognizable archive")

	// ErrCorrupted is returned by the directory walker when an expected
	// record signature is missing at a declared offset.
	ErrCorrupted = errors.New("zipdump: corrupted central directory")

	// ErrUnsupportedMethod is returned when an entry uses a compression
	// method other than store or deflate.
	ErrUnsupportedMethod = errors.New("zipdump: unsupported compression method")

	// ErrStrongEncryption is returned when an entry uses strong (AES)
	// encryption, which is detected but not decrypted.
	ErrStrongEncryption = errors.New("zipdump: strong encryption not supported")

	// ErrPasswordRequired is returned when an encrypted entry is opened
	// without key material. Note that a wrong password is not detectable:
	// the traditional cipher silently yields garbage.
	ErrPasswordRequired = errors.New("zipdump: entry is encrypted and no key material was given")

	// ErrNotEntry is returned when a record that does not describe entry
	// data is passed to OpenEntry.
	ErrNotEntry = errors.New("zipdump: record does not reference entry data")

	// ErrBadTimestamp reports a DOS date with out-of-range fields. The
	// decoded time falls back to 1980-01-01; the error is informational.
	ErrBadTimestamp = errors.New("zipdump: timestamp out of range")
)
