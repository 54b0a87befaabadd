/*
 * archive.go, part of disloc.
 *
 *
 * Copyright 2026 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

//Package archive writes and reads compressed LAMMPS dump artifacts. The compression
//is chosen from the file extension: .zst for zstd, .gz for gzip, anything else is
//written uncompressed.
package archive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rmera/disloc"
)

//Ext is the extension used for the artifacts written by disloc.
const Ext = ".dump.zst"

//Error is the error type for the archive package.
type Error struct {
	message  string
	filename string
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return fmt.Sprintf("archive %s error: %s", err.filename, err.message)
}

//Decorate adds new information to the error
func (E Error) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

//FileName returns the file associated to the error
func (err Error) FileName() string { return err.filename }

//Critical returns true if the error is critical, false otherwise
func (err Error) Critical() bool { return err.critical }

//zstdCloser makes a *zstd.Decoder an io.ReadCloser.
type zstdCloser struct {
	*zstd.Decoder
}

func (z zstdCloser) Close() error {
	z.Decoder.Close()
	return nil
}

func compressor(name string, w io.Writer) (io.WriteCloser, error) {
	switch {
	case strings.HasSuffix(name, ".zst"):
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	case strings.HasSuffix(name, ".gz"):
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	default:
		return nopCloser{w}, nil
	}
}

func decompressor(name string, r io.Reader) (io.ReadCloser, error) {
	switch {
	case strings.HasSuffix(name, ".zst"):
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zstdCloser{d}, nil
	case strings.HasSuffix(name, ".gz"):
		return gzip.NewReader(r)
	default:
		return io.NopCloser(r), nil
	}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

//Writer writes frames to a compressed dump file.
type Writer struct {
	f        *os.File
	buf      *bufio.Writer
	c        io.WriteCloser
	filename string
	props    []string
	frames   int
}

//NewWriter creates the file name. props are the per-atom properties written with
//every frame (nil for all of them).
func NewWriter(name string, props []string) (*Writer, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, Error{err.Error(), name, []string{"NewWriter"}, true}
	}
	W := &Writer{f: f, filename: name, props: props}
	W.buf = bufio.NewWriter(f)
	W.c, err = compressor(name, W.buf)
	if err != nil {
		f.Close()
		return nil, Error{err.Error(), name, []string{"NewWriter"}, true}
	}
	return W, nil
}

//WriteFrame writes S as a new frame. The timestep is the frame's index.
func (W *Writer) WriteFrame(S *disloc.System) error {
	if err := disloc.WriteDump(W.c, S, W.frames, W.props); err != nil {
		return Error{err.Error(), W.filename, []string{"WriteFrame"}, true}
	}
	W.frames++
	return nil
}

//Len returns the number of frames written.
func (W *Writer) Len() int { return W.frames }

//Close flushes the compressed stream and closes the file.
func (W *Writer) Close() error {
	err := W.c.Close()
	if err2 := W.buf.Flush(); err == nil {
		err = err2
	}
	if err2 := W.f.Close(); err == nil {
		err = err2
	}
	if err != nil {
		return Error{err.Error(), W.filename, []string{"Close"}, true}
	}
	return nil
}

//WriteDump writes S as a single-frame dump to the file name.
func WriteDump(name string, S *disloc.System, props []string) error {
	W, err := NewWriter(name, props)
	if err != nil {
		return err
	}
	if err := W.WriteFrame(S); err != nil {
		W.Close()
		return err
	}
	return W.Close()
}

//ReadDump reads the last frame of the dump file name. symbols and masses are
//passed to disloc.ReadDump.
func ReadDump(name string, symbols []string, masses []float64) (*disloc.System, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, Error{err.Error(), name, []string{"ReadDump"}, true}
	}
	defer f.Close()
	r, err := decompressor(name, bufio.NewReader(f))
	if err != nil {
		return nil, Error{err.Error(), name, []string{"ReadDump"}, true}
	}
	defer r.Close()
	S, err := disloc.ReadDump(r, symbols, masses)
	if err != nil {
		return nil, Error{err.Error(), name, []string{"ReadDump"}, true}
	}
	return S, nil
}
