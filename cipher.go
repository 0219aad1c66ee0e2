// Copyright 2026 The zipdump Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipdump

import "hash/crc32"

const cipherMagic = 134775813

// KeyMaterial initializes a [Cipher]. Two forms exist: a [Password], which
// derives the internal key registers the way PKZIP does, and [RawKeys],
// which sets the registers directly. Raw keys are what key-recovery attacks
// against this cipher produce, so entries can be decrypted without ever
// learning the password.
type KeyMaterial interface {
	apply(*Cipher)
}

// Password derives cipher keys from a password. The bytes are fed through
// the key schedule verbatim; no text encoding is assumed.
type Password []byte

func (p Password) apply(c *Cipher) {
	for _, b := range p {
		c.updateKeys(b)
	}
}

// RawKeys sets the cipher's three key registers directly, bypassing password
// derivation.
type RawKeys struct {
	K0, K1, K2 uint32
}

func (k RawKeys) apply(c *Cipher) {
	c.k0, c.k1, c.k2 = k.K0, k.K1, k.K2
}

// Cipher implements the traditional PKWARE stream cipher. It is stateful:
// every byte processed advances the key registers, so a single Cipher
// decrypts one entry's stream from start to finish and is not reusable.
//
// The cipher is symmetric in structure but not in API: the keystream is
// updated with plaintext bytes, so encryption and decryption differ in
// whether the update happens before or after the XOR.
type Cipher struct {
	k0, k1, k2 uint32
}

// NewCipher returns a cipher initialized from the given key material.
func NewCipher(key KeyMaterial) *Cipher {
	c := &Cipher{
		k0: 0x12345678,
		k1: 0x23456789,
		k2: 0x34567890,
	}
	key.apply(c)
	return c
}

// Keys reports the current key registers, e.g. to persist the state of a
// partially consumed stream.
func (c *Cipher) Keys() RawKeys {
	return RawKeys{K0: c.k0, K1: c.k1, K2: c.k2}
}

func (c *Cipher) updateKeys(b byte) {
	c.k0 = crc32.IEEETable[(c.k0^uint32(b))&0xff] ^ (c.k0 >> 8)
	c.k1 = (c.k1 + (c.k0 & 0xff)) * cipherMagic
	c.k1++
	c.k2 = crc32.IEEETable[(c.k2^(c.k1>>24))&0xff] ^ (c.k2 >> 8)
}

func (c *Cipher) keystreamByte() byte {
	t := (c.k2 | 2) & 0xffff
	return byte((t * (t ^ 1)) >> 8)
}

// Encrypt encrypts buf in place.
func (c *Cipher) Encrypt(buf []byte) {
	for i, b := range buf {
		buf[i] = b ^ c.keystreamByte()
		c.updateKeys(b)
	}
}

// Decrypt decrypts buf in place.
func (c *Cipher) Decrypt(buf []byte) {
	for i, b := range buf {
		p := b ^ c.keystreamByte()
		c.updateKeys(p)
		buf[i] = p
	}
}

// DecryptBlocks returns a stage that decrypts every block of seq in place
// with a cipher initialized from key. Block boundaries are preserved; the
// cipher state carries across them.
func DecryptBlocks(seq BlockSeq, key KeyMaterial) BlockSeq {
	return func(yield func([]byte, error) bool) {
		c := NewCipher(key)
		for block, err := range seq {
			if err != nil {
				yield(nil, err)
				return
			}
			c.Decrypt(block)
			if !yield(block, nil) {
				return
			}
		}
	}
}
