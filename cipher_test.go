// Copyright 2026 The zipdump Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipdump

import (
	"bytes"
	"testing"
)

func TestCipherRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		password string
		data     []byte
	}{
		{"short", "secret", []byte("hello")},
		{"empty password", "", []byte("data with empty password")},
		{"binary data", "p4ssw0rd!", bytes.Repeat([]byte{0x00, 0xff, 0x7f}, 100)},
		{"empty data", "key", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := append([]byte{}, tc.data...)
			NewCipher(Password(tc.password)).Encrypt(buf)
			if len(tc.data) > 0 && bytes.Equal(buf, tc.data) {
				t.Error("ciphertext equals plaintext")
			}
			NewCipher(Password(tc.password)).Decrypt(buf)
			if !bytes.Equal(buf, tc.data) {
				t.Errorf("round trip mismatch: got %x, want %x", buf, tc.data)
			}
		})
	}
}

func TestCipherInitialKeys(t *testing.T) {
	keys := NewCipher(Password(nil)).Keys()
	want := RawKeys{K0: 0x12345678, K1: 0x23456789, K2: 0x34567890}
	if keys != want {
		t.Errorf("initial keys = %+v, want %+v", keys, want)
	}
}

func TestRawKeysMatchDerived(t *testing.T) {
	// A cipher resumed from another cipher's key registers must produce the
	// same keystream.
	derived := NewCipher(Password("correct horse"))
	resumed := NewCipher(derived.Keys())

	plain := []byte("battery staple battery staple")
	a := append([]byte{}, plain...)
	b := append([]byte{}, plain...)
	derived.Encrypt(a)
	resumed.Encrypt(b)
	if !bytes.Equal(a, b) {
		t.Errorf("keystreams differ: %x vs %x", a, b)
	}
}

func TestCipherStateAdvances(t *testing.T) {
	c := NewCipher(Password("pw"))
	before := c.Keys()
	c.Encrypt([]byte("x"))
	if c.Keys() == before {
		t.Error("key registers did not advance")
	}
}

func TestDecryptBlocksMatchesWholeBuffer(t *testing.T) {
	plain := bytes.Repeat([]byte("0123456789abcdef"), 33)
	enc := append([]byte{}, plain...)
	NewCipher(Password("pw")).Encrypt(enc)

	// Split the ciphertext into uneven blocks; the stage must carry cipher
	// state across the boundaries.
	blocks := func(yield func([]byte, error) bool) {
		rest := append([]byte{}, enc...)
		for _, n := range []int{1, 7, 100, len(rest)} {
			if n > len(rest) {
				n = len(rest)
			}
			if !yield(rest[:n], nil) {
				return
			}
			rest = rest[n:]
		}
	}

	got := []byte{}
	for blk, err := range DecryptBlocks(blocks, Password("pw")) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, blk...)
	}
	if !bytes.Equal(got, plain) {
		t.Error("block-wise decryption does not match whole-buffer encryption")
	}
}
