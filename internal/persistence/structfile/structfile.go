// Package structfile stores encoded structure documents on disk, either as
// plain JSON or zstd-compressed when the path ends in ".zst".
package structfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"voxelforge.ai/internal/sim/blockstate"
	"voxelforge.ai/internal/structure"
)

const CompressedExt = ".zst"

func Compressed(path string) bool { return strings.HasSuffix(path, CompressedExt) }

func WriteFile(path string, s *structure.Snapshot) error {
	raw, err := structure.Encode(s)
	if err != nil {
		return err
	}
	return WriteRaw(path, raw)
}

// WriteRaw writes an already encoded document.
func WriteRaw(path string, raw []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if !Compressed(path) {
		if _, err := f.Write(raw); err != nil {
			return err
		}
		return f.Close()
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)
	if _, err := bw.Write(raw); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("zstd close: %w", err)
	}
	return f.Close()
}

// ReadRaw returns the decompressed document bytes.
func ReadRaw(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !Compressed(path) {
		return io.ReadAll(f)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("zstd read %s: %w", filepath.Base(path), err)
	}
	return raw, nil
}

// ReadFile decodes the document at path under key. With a non-nil registry
// property sets are checked against registered block types.
func ReadFile(path, key string, blocks *blockstate.Registry) (*structure.Snapshot, error) {
	raw, err := ReadRaw(path)
	if err != nil {
		return nil, err
	}
	if blocks == nil {
		return structure.Decode(key, raw)
	}
	return structure.DecodeResolved(key, raw, blocks)
}
