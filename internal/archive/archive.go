// Package archive keeps timestamped copies of pipeline outputs so runs can
// be compared after the fact. Copies are optionally zstd-compressed.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Write stores data as archiveDir/<prefix>_<timestamp>.json, appending
// ".zst" and compressing when compress is set. Returns the archive path.
func Write(archiveDir, prefix string, ts time.Time, data []byte, compress bool) (string, error) {
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	destPath := Path(archiveDir, prefix, ts, compress)
	if !compress {
		if err := os.WriteFile(destPath, data, 0o644); err != nil {
			return "", fmt.Errorf("write archive: %w", err)
		}
		return destPath, nil
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer dest.Close()

	encoder, err := zstd.NewWriter(dest)
	if err != nil {
		return "", fmt.Errorf("create zstd encoder: %w", err)
	}
	if _, err := encoder.Write(data); err != nil {
		encoder.Close()
		return "", fmt.Errorf("compress: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("finalize compression: %w", err)
	}
	return destPath, nil
}

// Read loads an archived output, decompressing when the path ends in .zst.
func Read(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".zst") {
		return io.ReadAll(f)
	}

	decoder, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer decoder.Close()

	data, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return data, nil
}

// Path returns the deterministic archive path for an output prefix and
// timestamp, e.g. sequence_output_20260830_141500.json.zst.
func Path(archiveDir, prefix string, ts time.Time, compress bool) string {
	name := fmt.Sprintf("%s_%s.json", prefix, ts.UTC().Format("20060102_150405"))
	if compress {
		name += ".zst"
	}
	return filepath.Join(archiveDir, name)
}
