package snapshot

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// formatVersion is the on-disk snapshot format version.
const formatVersion = 1

// maxPayloadSize caps the decompressed payload size (200MB). A header that
// passed checksum verification can still front a gzip bomb.
const maxPayloadSize = 200 * 1024 * 1024

// Header is the plain-text first line of a snapshot file. It can be read
// without decompressing the payload.
type Header struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
}

// Write serializes a snapshot to path: header line, newline, gzip payload.
// The parent directory is created if missing and the file is written via a
// temp file and rename so a crash never leaves a truncated snapshot behind.
func Write(path string, snap *Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("writing snapshot: marshaling payload: %w", err)
	}

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(payload); err != nil {
		return fmt.Errorf("writing snapshot: compressing payload: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("writing snapshot: closing gzip writer: %w", err)
	}

	header := Header{
		Version:   formatVersion,
		CreatedAt: snap.CreatedAt,
		Checksum:  checksum(compressed.Bytes()),
		NodeCount: len(snap.Nodes),
		EdgeCount: len(snap.Edges),
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("writing snapshot: marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("writing snapshot: creating directory: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(headerBytes)
	buf.WriteByte('\n')
	buf.Write(compressed.Bytes())

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing snapshot: writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing snapshot: renaming temp file: %w", err)
	}
	return nil
}

// Read loads a snapshot from path, verifying the checksum before
// decompressing the payload.
func Read(path string) (*Snapshot, error) {
	header, compressed, err := readFramed(path)
	if err != nil {
		return nil, err
	}

	if got := checksum(compressed); got != header.Checksum {
		return nil, fmt.Errorf("reading snapshot %s: checksum mismatch: header %s, payload %s",
			filepath.Base(path), header.Checksum, got)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: opening gzip payload: %w", err)
	}
	defer gzr.Close()

	payload, err := io.ReadAll(io.LimitReader(gzr, maxPayloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: decompressing payload: %w", err)
	}
	if int64(len(payload)) > maxPayloadSize {
		return nil, fmt.Errorf("reading snapshot: payload exceeds %d bytes", maxPayloadSize)
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("reading snapshot: parsing payload: %w", err)
	}
	return &snap, nil
}

// ReadHeader reads only the header line of a snapshot file.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot header: %w", err)
	}
	defer f.Close()

	headerLine, err := bufio.NewReader(f).ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading snapshot header: %w", err)
	}
	return parseHeader(headerLine, path)
}

// Verify checks the payload checksum without decompressing.
func Verify(path string) error {
	header, compressed, err := readFramed(path)
	if err != nil {
		return err
	}
	if got := checksum(compressed); got != header.Checksum {
		return fmt.Errorf("verifying snapshot %s: checksum mismatch: header %s, payload %s",
			filepath.Base(path), header.Checksum, got)
	}
	return nil
}

// readFramed splits a snapshot file into its parsed header and the raw
// compressed payload.
func readFramed(path string) (*Header, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	headerLine, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("reading snapshot header line: %w", err)
	}

	header, err := parseHeader(headerLine, path)
	if err != nil {
		return nil, nil, err
	}

	compressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("reading snapshot payload: %w", err)
	}
	return header, compressed, nil
}

func parseHeader(line []byte, path string) (*Header, error) {
	var header Header
	if err := json.Unmarshal(bytes.TrimSpace(line), &header); err != nil {
		return nil, fmt.Errorf("parsing snapshot header of %s: %w", filepath.Base(path), err)
	}
	if header.Version != formatVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d in %s", header.Version, filepath.Base(path))
	}
	return &header, nil
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}
