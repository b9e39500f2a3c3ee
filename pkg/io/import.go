package io

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/etftools/etf/pkg/errors"
)

// StdStream is the path that selects stdin for input and stdout for output.
const StdStream = "-"

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	utf8BOM   = []byte{0xef, 0xbb, 0xbf}
)

// NewReader returns a reader yielding the plain JSON text of r.
// Compressed streams are decompressed and a UTF-8 BOM is dropped.
// The returned close function releases decoder resources; it does not
// close r.
func NewReader(r io.Reader) (io.Reader, func(), error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(4)

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		plain, _, err := NewReader(zr)
		if err != nil {
			return nil, nil, err
		}
		return plain, func() { _ = zr.Close() }, nil
	case bytes.HasPrefix(head, zstdMagic):
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		plain, _, err := NewReader(dec)
		if err != nil {
			dec.Close()
			return nil, nil, err
		}
		return plain, dec.Close, nil
	case bytes.HasPrefix(head, utf8BOM):
		_, _ = br.Discard(len(utf8BOM))
	}
	return br, func() {}, nil
}

// ReadJSON decodes one JSON value from r into v.
//
// Numbers are kept as json.Number when v holds generic values. Trailing
// data after the value is rejected. Errors carry the MALFORMED_DATA code.
// ReadJSON does not close r.
func ReadJSON(r io.Reader, v any) error {
	plain, done, err := NewReader(r)
	if err != nil {
		return errors.Wrap(errors.ErrCodeMalformedData, err, "read input")
	}
	defer done()

	dec := json.NewDecoder(plain)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeMalformedData, err, "decode JSON")
	}
	if dec.More() {
		return errors.New(errors.ErrCodeMalformedData, "unexpected data after JSON document")
	}
	return nil
}

// ImportJSON reads the JSON file at path into v.
// The path "-" reads stdin. Errors are wrapped with the file path.
func ImportJSON(path string, v any) error {
	if path == "" || path == StdStream {
		return ReadJSON(os.Stdin, v)
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", path)
	}
	defer f.Close()
	if err := ReadJSON(f, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
