// Copyright 2026 The zipdump Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipdump

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func quickScanAll(t *testing.T, data []byte) ([]Record, error) {
	t.Helper()
	var recs []Record
	for rec, err := range QuickScan(bytes.NewReader(data)) {
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func TestQuickScan(t *testing.T) {
	archive := buildArchive(t, []testEntry{
		{name: "a.txt", content: "first file content", method: MethodStore},
		{name: "b.txt", content: "second file content", method: MethodStore},
	}, "")

	recs, err := quickScanAll(t, archive)
	require.NoError(t, err)
	require.Equal(t, []RecordType{
		TypeEndOfCentralDir, TypeCentralDirEntry, TypeCentralDirEntry,
	}, typesOf(recs))

	eod := recs[0].(*EndOfCentralDir)
	require.EqualValues(t, 2, eod.TotalEntries)
	require.False(t, eod.Spanned())

	a := recs[1].(*CentralDirEntry)
	require.NoError(t, a.LoadItems(bytes.NewReader(archive)))
	require.Equal(t, "a.txt", a.Name)

	// The end record leads; the entries that follow ascend by offset.
	require.Less(t, recs[1].Offset(), recs[2].Offset())
	require.Less(t, recs[2].Offset(), eod.Offset())
}

func TestQuickScanPrefixedArchive(t *testing.T) {
	// The walker trusts the declared dirOffset. A prefix shifts every real
	// offset, so the declared one no longer points at a directory entry and
	// the walk must abort instead of decoding garbage.
	archive := buildArchive(t, []testEntry{
		{name: "a.txt", content: "first file content", method: MethodStore},
	}, "")
	data := append([]byte(strings.Repeat("#", 64)), archive...)

	_, err := quickScanAll(t, data)
	require.ErrorIs(t, err, ErrCorrupted)
}

func TestQuickScanLargeComment(t *testing.T) {
	// An archive comment longer than the first trailing window forces the
	// widened second pass.
	archive := buildArchive(t, []testEntry{
		{name: "a.txt", content: "content behind a large comment", method: MethodStore},
	}, strings.Repeat("c", 500))

	recs, err := quickScanAll(t, archive)
	require.NoError(t, err)
	require.Equal(t, []RecordType{
		TypeEndOfCentralDir, TypeCentralDirEntry,
	}, typesOf(recs))
}

func TestQuickScanNotAnArchive(t *testing.T) {
	_, err := quickScanAll(t, bytes.Repeat([]byte("not a zip file. "), 64))
	require.ErrorIs(t, err, ErrNotArchive)
}

func TestQuickScanTooSmall(t *testing.T) {
	_, err := quickScanAll(t, []byte("tiny"))
	require.ErrorIs(t, err, ErrNotArchive)

	_, err = quickScanAll(t, nil)
	require.ErrorIs(t, err, ErrNotArchive)
}

func TestQuickScanCorruptedDirectory(t *testing.T) {
	archive := buildArchive(t, []testEntry{
		{name: "a.txt", content: "first file content", method: MethodStore},
	}, "")

	// Overwrite the directory entry's magic.
	i := bytes.Index(archive, []byte{'P', 'K', 0x01, 0x02})
	require.GreaterOrEqual(t, i, 0)
	corrupted := append([]byte{}, archive...)
	copy(corrupted[i:], "XXXX")

	recs, err := quickScanAll(t, corrupted)
	require.ErrorIs(t, err, ErrCorrupted)
	// Only the end record made it out before the walk aborted.
	require.Equal(t, []RecordType{TypeEndOfCentralDir}, typesOf(recs))
}

func TestQuickScanIgnoresEarlierMagic(t *testing.T) {
	// An end-record magic embedded in entry data must not win over the real
	// end record: the backward search takes the match closest to the end.
	archive := buildArchive(t, []testEntry{
		{name: "a.txt", content: "data with a fake PK\x05\x06 magic inside, padded to keep the whole archive within one trailing window", method: MethodStore},
	}, "")

	recs, err := quickScanAll(t, archive)
	require.NoError(t, err)
	require.Equal(t, []RecordType{
		TypeEndOfCentralDir, TypeCentralDirEntry,
	}, typesOf(recs))

	eod := recs[0].(*EndOfCentralDir)
	require.EqualValues(t, 1, eod.TotalEntries)
}
