// Copyright 2026 The zipdump Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package urlstream

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func rangeServer(t *testing.T, content []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// ServeContent implements Range and Content-Range handling.
		http.ServeContent(w, r, "blob.bin", time.Time{}, bytes.NewReader(content))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestReadAt(t *testing.T) {
	content := []byte("0123456789abcdefghijklmnopqrstuvwxyz")
	srv := rangeServer(t, content)
	r := Open(context.Background(), srv.URL)

	buf := make([]byte, 10)
	n, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 10, n)
	require.Equal(t, "0123456789", string(buf))

	// Sequential reads advance.
	n, err = r.Read(buf[:5])
	require.NoError(t, err)
	require.Equal(t, "abcde", string(buf[:5]))
	_ = n
}

func TestSeekAndSize(t *testing.T) {
	content := []byte(strings.Repeat("x", 1000) + "TAIL")
	srv := rangeServer(t, content)
	r := Open(context.Background(), srv.URL)

	// End-relative seek probes the size.
	pos, err := r.Seek(-4, io.SeekEnd)
	require.NoError(t, err)
	require.EqualValues(t, 1000, pos)

	buf := make([]byte, 4)
	_, err = r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "TAIL", string(buf))

	size, err := r.Size()
	require.NoError(t, err)
	require.EqualValues(t, len(content), size)
}

func TestReadPastEnd(t *testing.T) {
	content := []byte("short resource")
	srv := rangeServer(t, content)
	r := Open(context.Background(), srv.URL)

	// Over-long read is truncated at the end of the resource.
	buf := make([]byte, 100)
	n, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, len(content), n)
	require.Equal(t, string(content), string(buf[:n]))

	// At EOF.
	_, err = r.Read(buf)
	require.ErrorIs(t, err, io.EOF)
}

func TestWholeFileThroughReadAll(t *testing.T) {
	content := bytes.Repeat([]byte("block of data "), 100)
	srv := rangeServer(t, content)
	r := Open(context.Background(), srv.URL)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestNoRangeSupport(t *testing.T) {
	content := []byte("server ignores ranges entirely")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	t.Cleanup(srv.Close)

	r := Open(context.Background(), srv.URL)
	_, err := r.Seek(5, io.SeekStart)
	require.NoError(t, err)
	_, err = r.Read(make([]byte, 4))
	require.ErrorIs(t, err, ErrNoRangeSupport)
}

func TestHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	r := Open(context.Background(), srv.URL)
	_, err := r.Read(make([]byte, 4))
	require.Error(t, err)
}
