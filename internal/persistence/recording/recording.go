// Package recording stores input recordings on disk. The format follows the
// file name: ".json" is the array form, anything else the line form, and a
// trailing ".zst" compresses either.
package recording

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"timewarp.dev/internal/sim/input"
)

type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// FormatOf picks the format and compression for path.
func FormatOf(path string) (f Format, compressed bool) {
	name := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(name, ".zst") {
		compressed = true
		name = strings.TrimSuffix(name, ".zst")
	}
	if strings.HasSuffix(name, ".json") {
		return FormatJSON, compressed
	}
	return FormatText, compressed
}

func Write(path string, rec input.Recording) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := writeFile(tmp, path, rec); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeFile(tmp, path string, rec input.Recording) error {
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	format, compressed := FormatOf(path)
	var out io.Writer = f
	var enc *zstd.Encoder
	if compressed {
		enc, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		out = enc
	}
	bw := bufio.NewWriterSize(out, 64*1024)
	if err := Encode(bw, format, rec); err != nil {
		return fmt.Errorf("recording %s: %w", filepath.Base(path), err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return err
		}
	}
	return f.Sync()
}

func Read(path string) (input.Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	format, compressed := FormatOf(path)
	var in io.Reader = f
	if compressed {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		in = dec
	}
	rec, err := Decode(bufio.NewReaderSize(in, 64*1024), format)
	if err != nil {
		return nil, fmt.Errorf("recording %s: %w", filepath.Base(path), err)
	}
	return rec, nil
}

func Encode(w io.Writer, format Format, rec input.Recording) error {
	if format == FormatText {
		return rec.WriteText(w)
	}
	if rec == nil {
		rec = input.Recording{}
	}
	return json.NewEncoder(w).Encode(rec)
}

func Decode(r io.Reader, format Format) (input.Recording, error) {
	if format == FormatText {
		return input.ReadText(r)
	}
	var rec input.Recording
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, err
	}
	return rec, nil
}
