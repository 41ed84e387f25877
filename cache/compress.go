package cache

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"sync"
)

// gzipMarker tags compressed values so entries written with compression off
// stay readable after it is turned on, and the other way round.
const gzipMarker = "gz:"

var writerPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestCompression)
		return w
	},
}

// compressValue gzips value and returns it base64 encoded with the marker prefix
func compressValue(value string) (string, error) {
	var buf bytes.Buffer
	zw := writerPool.Get().(*gzip.Writer)
	defer writerPool.Put(zw)
	zw.Reset(&buf)

	if _, err := zw.Write([]byte(value)); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return gzipMarker + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// decodeValue returns the plain value, decompressing it if it carries the marker
func decodeValue(stored string) (string, error) {
	if !strings.HasPrefix(stored, gzipMarker) {
		return stored, nil
	}

	data, err := base64.StdEncoding.DecodeString(stored[len(gzipMarker):])
	if err != nil {
		return "", fmt.Errorf("invalid base64: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("invalid gzip stream: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
