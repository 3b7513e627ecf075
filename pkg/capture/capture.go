// Package capture loads capture bytes from disk, decompressing zstd archives.
package capture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Extension is the file extension of Slippi captures
const Extension = ".slp"

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// IsCompressed reports whether b starts with a zstd frame
func IsCompressed(b []byte) bool {
	return bytes.HasPrefix(b, zstdMagic)
}

// DefaultMaxBytes bounds a capture read from disk, after decompression
const DefaultMaxBytes int64 = 512 << 20

// ErrTooLarge is returned when a capture exceeds the read limit
var ErrTooLarge = errors.New("capture exceeds size limit")

// ReadFile reads a capture, transparently decompressing .slp.zst files
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read reads a capture from r with DefaultMaxBytes as the limit
func Read(r io.Reader) ([]byte, error) {
	return ReadLimit(r, DefaultMaxBytes)
}

// ReadLimit reads a capture from r, decompressing it when it is zstd framed.
// Neither the raw nor the decompressed capture may exceed maxBytes.
func ReadLimit(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := readAllLimit(r, maxBytes)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read capture: %w", err)
	}
	if !IsCompressed(data) {
		return data, nil
	}

	dec, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderMaxMemory(uint64(maxBytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer dec.Close()

	out, err := readAllLimit(dec, maxBytes)
	if err != nil {
		if errors.Is(err, ErrTooLarge) || errors.Is(err, zstd.ErrDecoderSizeExceeded) ||
			errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return nil, ErrTooLarge
		}
		return nil, fmt.Errorf("failed to decompress capture: %w", err)
	}
	return out, nil
}

func readAllLimit(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// IsCapture reports whether name looks like a capture file
func IsCapture(name string) bool {
	name = strings.ToLower(name)
	return strings.HasSuffix(name, Extension) || strings.HasSuffix(name, Extension+".zst")
}

// List returns the capture files directly inside dir, sorted by name
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsCapture(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Compress returns data as a single zstd frame
func Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd writer: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}
