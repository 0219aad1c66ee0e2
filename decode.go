// Copyright 2026 The zipdump Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipdump

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// nonPrintable lists formatting and separator code points that slip past a
// plain printability check but still wreck terminal or log output when they
// appear in entry names.
var nonPrintable = map[rune]bool{
	'\u0009': true, '\u000b': true, '\u000c': true,
	'\u001c': true, '\u001d': true, '\u001e': true, '\u001f': true,
	'\u2000': true, '\u2001': true, '\u2002': true, '\u2003': true,
	'\u2004': true, '\u2005': true, '\u2006': true,
	'\u2008': true, '\u2009': true, '\u200a': true,
	'\u2028': true, '\u2029': true, '\u205f': true, '\u3000': true,
}

// DecodeName renders entry name bytes as text. The bytes are used verbatim
// when they are valid UTF-8 and contain no control or formatting code points;
// anything else is rendered as a hex-escaped fallback so that hostile names
// cannot corrupt terminal output.
func DecodeName(name []byte) string {
	if utf8.Valid(name) {
		s := string(name)
		ok := true
		for _, r := range s {
			if nonPrintable[r] || !unicode.IsPrint(r) {
				ok = false
				break
			}
		}
		if ok {
			return s
		}
	}
	return "hex-" + hex.EncodeToString(name)
}

// DecodeComment renders comment bytes as text. Comments are informational,
// so decoding is forgiving: invalid UTF-8 in an archive without the UTF-8
// flag is treated as CP437, the encoding of the DOS-era tools that produced
// such archives; otherwise invalid sequences are dropped.
func DecodeComment(comment []byte, isUTF8 bool) string {
	if len(comment) == 0 {
		return ""
	}
	if utf8.Valid(comment) {
		return string(comment)
	}
	if !isUTF8 {
		if s, err := charmap.CodePage437.NewDecoder().String(string(comment)); err == nil {
			return s
		}
	}
	return strings.ToValidUTF8(string(comment), "")
}

// DecodeArchiveComment renders the EOCD comment. Android packages signed
// with SignApk store a binary signature block here; it is rendered as hex
// behind its marker text instead of being dumped raw.
func DecodeArchiveComment(comment []byte) string {
	const signApkMarker = "signed by SignApk"
	if len(comment) > len(signApkMarker) && string(comment[:len(signApkMarker)]) == signApkMarker {
		return fmt.Sprintf("%q%s", comment[:len(signApkMarker)], hex.EncodeToString(comment[len(signApkMarker)+1:]))
	}
	return DecodeComment(comment, false)
}

// epochFloor is the earliest moment the DOS timestamp format can express.
var epochFloor = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// DecodeTimestamp decodes a packed DOS timestamp: the 16-bit date in the
// high half (year since 1980, month, day) and the 16-bit time in the low
// half (hour, minute, two-second count). A zero date decodes to the epoch
// floor. Out-of-range date fields also fall back to the floor, but return an
// informational ErrBadTimestamp describing the rejected value; the time of
// day is preserved either way.
func DecodeTimestamp(ts uint32) (time.Time, error) {
	date := uint16(ts >> 16)
	tod := time.Duration(ts>>11&0x1f)*time.Hour +
		time.Duration(ts>>5&0x3f)*time.Minute +
		time.Duration(ts&0x1f)*2*time.Second

	if date == 0 {
		return epochFloor.Add(tod), nil
	}

	year := int(date>>9) + 1980
	month := int(date >> 5 & 0x0f)
	day := int(date & 0x1f)
	if month < 1 || month > 12 || day < 1 {
		return epochFloor.Add(tod),
			fmt.Errorf("%w: %04d-%02d-%02d", ErrBadTimestamp, year, month, day)
	}

	// time.Date normalizes days the month doesn't have (Feb 30 becomes
	// Mar 2); such dates are rejected, not repaired.
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return epochFloor.Add(tod),
			fmt.Errorf("%w: %04d-%02d-%02d", ErrBadTimestamp, year, month, day)
	}

	return d.Add(tod), nil
}
