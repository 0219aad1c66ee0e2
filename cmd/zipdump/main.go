// Copyright 2026 The zipdump Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command zipdump scans file contents for PKZIP records.
package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vaginessa/zipdump"
	"github.com/vaginessa/zipdump/urlstream"
)

type options struct {
	quick     bool
	verbose   int
	quiet     bool
	cat       []string
	raw       []string
	save      []string
	outputDir string
	recurse   bool
	skipLinks bool
	offset    int64
	length    int64
	chunkSize int
	dumpRaw   bool

	password    string
	hexPassword string
	keys        string

	key zipdump.KeyMaterial
	log *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "zipdump [flags] [files or urls...]",
		Short: "scan file contents for PKZIP data",
		Long: `zipdump scans files, directories or URLs for PKZIP records.

By default every byte of the input is searched for record signatures, which
finds entries even in truncated or damaged archives. With --quick only the
central directory is read, which also makes scanning an archive behind a URL
cheap: just the directory regions are downloaded, not the whole file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args)
		},
	}

	fl := cmd.Flags()
	fl.BoolVarP(&opts.quick, "quick", "q", false, "quick dir scan; quick with URLs as well")
	fl.CountVarP(&opts.verbose, "verbose", "v", "print records in full")
	fl.BoolVar(&opts.quiet, "quiet", false, "suppress per-file banners")
	fl.StringArrayVarP(&opts.cat, "cat", "c", nil, "decompress file(s) to stdout")
	fl.StringArrayVarP(&opts.raw, "raw", "p", nil, "print raw compressed file(s) data to stdout")
	fl.StringArrayVarP(&opts.save, "save", "s", nil, "extract file(s) to the output directory")
	fl.StringVarP(&opts.outputDir, "outputdir", "d", ".", "the output directory")
	fl.BoolVarP(&opts.recurse, "recurse", "r", false, "recurse into directories")
	fl.BoolVarP(&opts.skipLinks, "skiplinks", "L", false, "skip symbolic links")
	fl.Int64VarP(&opts.offset, "offset", "o", 0, "start processing at offset, negative counts from the end")
	fl.Int64VarP(&opts.length, "length", "l", 0, "max length of data to process")
	fl.IntVar(&opts.chunkSize, "chunksize", zipdump.DefaultChunkSize, "scan read granularity")
	fl.BoolVar(&opts.dumpRaw, "dumpraw", false, "hexdump extra fields, comments and compressed data")
	fl.StringVar(&opts.password, "password", "", "password for pkzip decryption")
	fl.StringVar(&opts.hexPassword, "hexpassword", "", "hexadecimal password for pkzip decryption")
	fl.StringVar(&opts.keys, "keys", "", "internal key representation for pkzip decryption: k0,k1,k2")

	return cmd
}

func run(ctx context.Context, opts *options, args []string) error {
	level := slog.LevelWarn
	if opts.verbose > 1 {
		level = slog.LevelDebug
	}
	opts.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	key, err := keyMaterial(opts)
	if err != nil {
		return err
	}
	opts.key = key

	if len(args) == 0 {
		// stdin is not seekable; buffer it.
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		return processFile(opts, bytes.NewReader(data))
	}

	paths, err := enumeratePaths(opts, args)
	if err != nil {
		return err
	}
	for _, fn := range paths {
		if len(paths) > 1 && !opts.quiet {
			fmt.Printf("\n==> %s <==\n\n", fn)
		}
		if err := processOne(ctx, opts, fn); err != nil {
			opts.log.Error("processing failed", "file", fn, "error", err)
		}
	}
	return nil
}

func processOne(ctx context.Context, opts *options, fn string) error {
	if isURL(fn) {
		src := urlstream.Open(ctx, fn, urlstream.WithLogger(opts.log))
		defer src.Close()
		return processFile(opts, src)
	}
	fh, err := os.Open(fn)
	if err != nil {
		return err
	}
	defer fh.Close()
	return processFile(opts, fh)
}

// keyMaterial resolves the three mutually exclusive key flags.
func keyMaterial(opts *options) (zipdump.KeyMaterial, error) {
	switch {
	case opts.hexPassword != "":
		pw, err := hex.DecodeString(opts.hexPassword)
		if err != nil {
			return nil, fmt.Errorf("--hexpassword: %w", err)
		}
		return zipdump.Password(pw), nil
	case opts.keys != "":
		parts := strings.Split(opts.keys, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("--keys: want k0,k1,k2, got %q", opts.keys)
		}
		var k [3]uint32
		for i, p := range parts {
			v, err := strconv.ParseUint(strings.TrimSpace(p), 0, 32)
			if err != nil {
				return nil, fmt.Errorf("--keys: %w", err)
			}
			k[i] = uint32(v)
		}
		return zipdump.RawKeys{K0: k[0], K1: k[1], K2: k[2]}, nil
	case opts.password != "":
		return zipdump.Password(opts.password), nil
	}
	return nil, nil
}

func processFile(opts *options, src io.ReadSeeker) error {
	var records iter.Seq2[zipdump.Record, error]
	if opts.quick {
		records = zipdump.QuickScan(src)
	} else {
		records = zipdump.ScanRecords(src, zipdump.ScanOptions{
			Offset:    opts.offset,
			Length:    opts.length,
			ChunkSize: opts.chunkSize,
		})
	}

	extract := len(opts.cat)+len(opts.raw)+len(opts.save) > 0
	if opts.verbose > 0 && !extract {
		fmt.Println("   0304            need flgs  mth    stamp  --crc-- compsize fullsize nlen xlen      namofs     xofs   datofs   endofs")
		fmt.Println("   0102            crea need flgs  mth    stamp  --crc-- compsize fullsize nlen xlen clen dsk0 attr osattr     datptr      namofs     xofs   cmtofs   endofs")
	}

	var nrec, entryBytes int64
	for rec, err := range records {
		if err != nil {
			return err
		}
		nrec++
		if extract {
			if err := extractRecord(opts, src, rec); err != nil {
				return err
			}
			continue
		}
		if err := rec.LoadItems(src); err != nil {
			opts.log.Warn("could not load record fields", "offset", rec.Offset(), "error", err)
		}
		if cde, ok := rec.(*zipdump.CentralDirEntry); ok {
			entryBytes += int64(cde.OriginalSize)
		}
		printRecord(opts, src, rec)
	}

	if opts.quick && !opts.quiet && opts.verbose == 0 && !extract {
		fmt.Printf("%d records, %s of entry data\n", nrec, humanize.Bytes(uint64(entryBytes)))
	}
	return nil
}

// printRecord renders one record in listing mode: the full field dump when
// verbose or brute-force scanning, the one-line summary in quick mode.
func printRecord(opts *options, src io.ReadSeeker, rec zipdump.Record) {
	if opts.verbose > 0 || !opts.quick {
		fmt.Printf("%08x: %s\n", rec.Offset(), rec)
	} else {
		switch r := rec.(type) {
		case *zipdump.CentralDirEntry:
			fmt.Println(r.Summary())
			if r.Comment != "" && !opts.dumpRaw {
				fmt.Println(r.Comment)
			}
		case *zipdump.EndOfCentralDir:
			fmt.Println(r.Summary())
			if r.Comment != "" && !opts.dumpRaw {
				fmt.Println(r.Comment)
			}
		default:
			fmt.Printf("%08x: %s\n", rec.Offset(), rec)
		}
	}
	if opts.dumpRaw {
		dumpRawRegions(opts, src, rec)
	}
}

func dumpRawRegions(opts *options, src io.ReadSeeker, rec zipdump.Record) {
	switch r := rec.(type) {
	case *zipdump.LocalFileHeader:
		if len(r.Extra) > 0 {
			fmt.Printf("%08x: XTRA: %s\n", r.ExtraOffset, hex.EncodeToString(r.Extra))
		}
		blks, err := zipdump.OpenEntryRaw(r, src, opts.key)
		if err != nil {
			opts.log.Warn("cannot dump entry data", "name", r.Name, "error", err)
			return
		}
		blockDump(r.DataOffset, blks)
	case *zipdump.CentralDirEntry:
		if len(r.Extra) > 0 {
			fmt.Printf("%08x: XTRA: %s\n", r.ExtraOffset, hex.EncodeToString(r.Extra))
		}
		if r.Comment != "" {
			fmt.Printf("%08x: CMT: %s\n", r.CommentOffset, r.Comment)
		}
	}
}

// extractRecord handles --cat, --raw and --save for one record. In quick
// mode directory entries name the content; in scan mode local headers do.
func extractRecord(opts *options, src io.ReadSeeker, rec zipdump.Record) error {
	switch rec.Type() {
	case zipdump.TypeCentralDirEntry:
		if !opts.quick {
			return nil
		}
	case zipdump.TypeLocalFileHeader:
		if opts.quick {
			return nil
		}
	default:
		return nil
	}

	if err := rec.LoadItems(src); err != nil {
		return err
	}
	name := entryName(rec)

	doCat := matchesArg(opts.cat, name)
	doRaw := matchesArg(opts.raw, name)
	doSave := matchesArg(opts.save, name)
	if !doCat && !doRaw && !doSave {
		return nil
	}

	if multipleNames(opts.cat, opts.raw) {
		fmt.Printf("\n===> %s <===\n\n", name)
	}

	if doCat {
		blks, err := zipdump.OpenEntry(rec, src, opts.key)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := writeBlocks(os.Stdout, blks); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if doRaw {
		blks, err := zipdump.OpenEntryRaw(rec, src, opts.key)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := writeBlocks(os.Stdout, blks); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if doSave {
		blks, err := zipdump.OpenEntry(rec, src, opts.key)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		path, err := saveFile(opts.outputDir, name, blks)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		opts.log.Debug("saved", "entry", name, "path", path)
	}
	return nil
}

func entryName(rec zipdump.Record) string {
	switch r := rec.(type) {
	case *zipdump.LocalFileHeader:
		return r.Name
	case *zipdump.CentralDirEntry:
		return r.Name
	}
	return ""
}

// matchesArg reports whether the flag selects this entry: any value "*"
// matches everything.
func matchesArg(arg []string, name string) bool {
	for _, a := range arg {
		if a == "*" || a == name {
			return true
		}
	}
	return false
}

// multipleNames reports whether stdout will carry more than one entry, in
// which case each is preceded by a banner.
func multipleNames(cat, raw []string) bool {
	for _, a := range cat {
		if a == "*" {
			return true
		}
	}
	for _, a := range raw {
		if a == "*" {
			return true
		}
	}
	return len(cat)+len(raw) > 1
}

func writeBlocks(w io.Writer, blks zipdump.BlockSeq) error {
	for blk, err := range blks {
		if err != nil {
			return err
		}
		if _, err := w.Write(blk); err != nil {
			return err
		}
	}
	return nil
}

func blockDump(baseOfs int64, blks zipdump.BlockSeq) {
	o := baseOfs
	for blk, err := range blks {
		if err != nil {
			fmt.Printf("%08x: ERROR: %v\n", o, err)
			return
		}
		fmt.Printf("%08x: %s\n", o, hex.EncodeToString(blk))
		o += int64(len(blk))
	}
}

// saveFile writes the entry under outDir, deriving a fresh name when the
// entry's own name is already taken. The chosen path is returned.
func saveFile(outDir, name string, blks zipdump.BlockSeq) (string, error) {
	dst := filepath.Join(outDir, filepath.FromSlash(path.Clean("/" + name))[1:])
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	var fh *os.File
	var chosen string
	for cand := range nameVariants(dst) {
		f, err := os.OpenFile(cand, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			fh, chosen = f, cand
			break
		}
		if !os.IsExist(err) {
			return "", err
		}
	}

	if err := writeBlocks(fh, blks); err != nil {
		fh.Close()
		os.Remove(chosen)
		return "", err
	}
	return chosen, fh.Close()
}

// nameVariants yields the name itself, then "name-1.ext", "name-2.ext", …
// with the counter inserted before the extension.
func nameVariants(name string) func(yield func(string) bool) {
	return func(yield func(string) bool) {
		if !yield(name) {
			return
		}
		ext := filepath.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		for i := 1; ; i++ {
			if !yield(fmt.Sprintf("%s-%d%s", stem, i, ext)) {
				return
			}
		}
	}
}

func isURL(s string) bool {
	i := strings.Index(s, "://")
	return i == 3 || i == 4 || i == 5
}

// enumeratePaths expands the command line into concrete inputs: URLs pass
// through, directories are walked when --recurse is given, symlinks are
// dropped when --skiplinks is given.
func enumeratePaths(opts *options, args []string) ([]string, error) {
	var out []string
	for _, fn := range args {
		if isURL(fn) {
			out = append(out, fn)
			continue
		}
		st, err := os.Lstat(fn)
		if err != nil {
			return nil, err
		}
		if st.Mode()&fs.ModeSymlink != 0 && opts.skipLinks {
			continue
		}
		st, err = os.Stat(fn)
		if err != nil {
			return nil, err
		}
		if st.IsDir() {
			if !opts.recurse {
				continue
			}
			err := filepath.WalkDir(fn, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					opts.log.Warn("cannot access", "path", p, "error", err)
					return nil
				}
				if d.Type()&fs.ModeSymlink != 0 && opts.skipLinks {
					return nil
				}
				if d.Type().IsRegular() {
					out = append(out, p)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			continue
		}
		out = append(out, fn)
	}
	return out, nil
}
