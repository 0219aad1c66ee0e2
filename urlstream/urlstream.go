// Copyright 2026 The zipdump Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package urlstream exposes an HTTP resource as a seekable byte source using
// range requests. Combined with a directory quick scan it lets an archive
// hosted on a web server be listed, and individual entries extracted, while
// transferring only the byte regions actually read.
package urlstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// ErrNoRangeSupport is returned when the server answers a ranged request
// with a full-body response.
var ErrNoRangeSupport = errors.New("urlstream: server does not support range requests")

// Reader reads an HTTP resource through range requests. It implements
// io.ReadSeekCloser. The total size is probed lazily, on the first seek
// relative to the end.
//
// Every Read costs one round trip, so callers should read in large chunks;
// the scanner and pipeline chunk sizes make this a non-issue in practice.
type Reader struct {
	client *http.Client
	ctx    context.Context
	url    string
	log    *slog.Logger

	offset int64
	size   int64 // -1 until probed
}

// Option configures a Reader.
type Option func(*Reader)

// WithClient substitutes the HTTP client used for all requests.
func WithClient(c *http.Client) Option {
	return func(r *Reader) { r.client = c }
}

// WithLogger enables debug logging of the requests issued.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reader) { r.log = l }
}

// Open prepares a reader for the given URL. No request is issued until the
// first Read or end-relative Seek.
func Open(ctx context.Context, url string, opts ...Option) *Reader {
	r := &Reader{
		client: http.DefaultClient,
		ctx:    ctx,
		url:    url,
		log:    slog.New(slog.DiscardHandler),
		size:   -1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read fetches len(p) bytes at the current offset with a single ranged GET.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.size >= 0 && r.offset >= r.size {
		return 0, io.EOF
	}

	resp, err := r.get(fmt.Sprintf("bytes=%d-%d", r.offset, r.offset+int64(len(p))-1))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		// ok
	case http.StatusRequestedRangeNotSatisfiable:
		return 0, io.EOF
	case http.StatusOK:
		if r.offset != 0 {
			return 0, ErrNoRangeSupport
		}
	default:
		return 0, fmt.Errorf("urlstream: GET %s: %s", r.url, resp.Status)
	}

	if total, ok := contentRangeTotal(resp.Header.Get("Content-Range")); ok {
		r.size = total
	}

	n, err := io.ReadFull(resp.Body, p)
	r.offset += int64(n)
	if err == io.ErrUnexpectedEOF || (err == io.EOF && n > 0) {
		// Short range at the end of the resource.
		err = nil
	}
	return n, err
}

// Seek repositions the reader. Seeking relative to the end probes the
// resource size with a one-byte ranged request if it is not yet known.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.offset + offset
	case io.SeekEnd:
		size, err := r.Size()
		if err != nil {
			return 0, err
		}
		abs = size + offset
	default:
		return 0, fmt.Errorf("urlstream: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("urlstream: negative position")
	}
	r.offset = abs
	return abs, nil
}

// Size reports the total size of the resource, probing it if necessary.
func (r *Reader) Size() (int64, error) {
	if r.size >= 0 {
		return r.size, nil
	}

	resp, err := r.get("bytes=0-0")
	if err != nil {
		return 0, err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		total, ok := contentRangeTotal(resp.Header.Get("Content-Range"))
		if !ok {
			return 0, fmt.Errorf("urlstream: unparsable Content-Range %q",
				resp.Header.Get("Content-Range"))
		}
		r.size = total
	case http.StatusOK:
		if resp.ContentLength < 0 {
			return 0, ErrNoRangeSupport
		}
		r.size = resp.ContentLength
	default:
		return 0, fmt.Errorf("urlstream: GET %s: %s", r.url, resp.Status)
	}
	return r.size, nil
}

// Close implements io.Closer. Requests are per-Read, so there is nothing
// to release.
func (r *Reader) Close() error { return nil }

func (r *Reader) get(rng string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("urlstream: %w", err)
	}
	req.Header.Set("Range", rng)
	r.log.Debug("range request", "url", r.url, "range", rng)
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("urlstream: %w", err)
	}
	return resp, nil
}

// contentRangeTotal extracts the total size from a "bytes start-end/total"
// Content-Range header. An unknown total ("*") reports false.
func contentRangeTotal(h string) (int64, bool) {
	h, ok := strings.CutPrefix(h, "bytes ")
	if !ok {
		return 0, false
	}
	_, totalStr, ok := strings.Cut(h, "/")
	if !ok || totalStr == "*" {
		return 0, false
	}
	total, err := strconv.ParseInt(totalStr, 10, 64)
	if err != nil {
		return 0, false
	}
	return total, true
}
